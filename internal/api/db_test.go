package api

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2"
)

func TestReadOnlyStatement(t *testing.T) {
	tests := []struct {
		query string
		ok    bool
	}{
		{"SELECT count(*) FROM cases", true},
		{"  select 1;  ", true},
		{"WITH t AS (SELECT 1) SELECT * FROM t", true},
		{"SELECT\n\tstatus FROM cases", true},
		{"COPY (SELECT 42 AS n) TO '/tmp/leak.csv'", false},
		{"SELECT 1; COPY cases TO '/tmp/leak.csv'", false},
		{"DROP TABLE cases", false},
		{"INSERT INTO cases VALUES (1)", false},
		{"ATTACH '/tmp/x.db'", false},
		{"SELECTED", false},
		{"-- comment\nSELECT 1", false},
		{";", false},
	}
	for _, tt := range tests {
		q, err := readOnlyStatement(tt.query)
		if tt.ok && err != nil {
			t.Fatalf("%q: unexpected error %v", tt.query, err)
		}
		if !tt.ok && err == nil {
			t.Fatalf("%q: expected rejection, got %q", tt.query, q)
		}
	}
}

func TestDBHandler_QueryRejectsWrites(t *testing.T) {
	h := NewDBHandler(nil)
	in := &QueryInput{}
	in.Body.Query = "COPY (SELECT 42 AS n) TO '/tmp/leak.csv'"

	_, err := h.Query(context.Background(), in)
	var se huma.StatusError
	if !errors.As(err, &se) || se.GetStatus() != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}
