// Package db keeps an in-memory DuckDB copy of the loaded cases for ad-hoc
// SQL. Nothing is written to disk and queries cannot reach the host
// filesystem; the table is rebuilt on every load.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"sync"

	_ "github.com/marcboeker/go-duckdb"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/geo311/internal/cases"
	"github.com/joeblew999/geo311/internal/proj"
)

// Table is the name of the case table.
const Table = "cases"

const createTable = `CREATE OR REPLACE TABLE cases (
	case_id      VARCHAR,
	status       VARCHAR,
	request_type VARCHAR,
	category     VARCHAR,
	agency       VARCHAR,
	address      VARCHAR,
	opened_ts    VARCHAR,
	closed_ts    VARCHAR,
	status_notes VARCHAR,
	x            DOUBLE,
	y            DOUBLE,
	lat          DOUBLE,
	lon          DOUBLE
)`

// sandbox cuts the database off from the host filesystem and network, then
// freezes the configuration so queries cannot turn access back on.
var sandbox = []string{
	"SET enable_external_access = false",
	"SET lock_configuration = true",
}

const insertCase = `INSERT INTO cases VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// Store is an in-memory DuckDB database.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open creates an empty in-memory database holding an empty case table.
func Open(ctx context.Context) (*Store, error) {
	conn, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	// Each pooled connection to "" would be its own database.
	conn.SetMaxOpenConns(1)

	if _, err := conn.ExecContext(ctx, createTable); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create %s table: %w", Table, err)
	}
	for _, stmt := range sandbox {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			conn.Close()
			return nil, fmt.Errorf("restrict duckdb (%s): %w", stmt, err)
		}
	}
	return &Store{db: conn}, nil
}

// DB exposes the connection for read queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// ReplaceCases swaps the table contents for fc in one transaction.
func (s *Store) ReplaceCases(ctx context.Context, fc *geojson.FeatureCollection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, createTable); err != nil {
		return fmt.Errorf("recreate %s table: %w", Table, err)
	}

	stmt, err := tx.PrepareContext(ctx, insertCase)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	if fc != nil {
		for i, f := range fc.Features {
			if _, err := stmt.ExecContext(ctx, row(f)...); err != nil {
				return fmt.Errorf("insert case %d: %w", i, err)
			}
		}
	}
	return tx.Commit()
}

// row flattens a case into table column order. Missing coordinates are NULL.
func row(f *geojson.Feature) []any {
	d := cases.DetailOf(f)
	var x, y, lat, lon sql.NullFloat64
	if p, ok := proj.ProjectFeature(f); ok {
		src := f.Geometry.(orb.Point)
		x = sql.NullFloat64{Float64: src[0], Valid: true}
		y = sql.NullFloat64{Float64: src[1], Valid: true}
		lat = sql.NullFloat64{Float64: p.Lat(), Valid: !math.IsNaN(p.Lat())}
		lon = sql.NullFloat64{Float64: p.Lon(), Valid: !math.IsNaN(p.Lon())}
	}
	return []any{
		nullString(d.CaseID), nullString(d.Status), nullString(d.RequestType),
		nullString(d.Category), nullString(d.Agency), nullString(d.Address),
		nullString(d.OpenedAt), nullString(d.ClosedAt), nullString(d.Notes),
		x, y, lat, lon,
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
