package wfs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog"
)

// ErrUnexpectedStatus is returned for any non-200 GetFeature response.
var ErrUnexpectedStatus = errors.New("unexpected status code")

// ErrMissingFeatures is returned when a response has no features array.
var ErrMissingFeatures = errors.New("response has no features array")

// PageFetcher retrieves one page of features.
type PageFetcher interface {
	FetchPage(ctx context.Context, startIndex, count int) (*geojson.FeatureCollection, error)
}

// Client fetches GetFeature pages over HTTP.
type Client struct {
	query  Query
	client *http.Client
	log    zerolog.Logger
}

// NewClient creates a client for q. A nil httpClient uses a client without
// a timeout.
func NewClient(q Query, httpClient *http.Client, log zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{query: q, client: httpClient, log: log}
}

// FetchPage issues one GetFeature request and decodes its GeoJSON body.
func (c *Client) FetchPage(ctx context.Context, startIndex, count int) (*geojson.FeatureCollection, error) {
	pageURL, err := c.query.PageURL(startIndex, count)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.log.Trace().Str("url", pageURL).Msg("wfs request")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get features: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := requireFeatures(body); err != nil {
		return nil, fmt.Errorf("decode feature collection: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(body)
	if err != nil {
		return nil, fmt.Errorf("decode feature collection: %w", err)
	}
	return fc, nil
}

// requireFeatures rejects bodies whose features member is absent or null.
// Decoding them would yield an empty page and end pagination as if the
// dataset were complete.
func requireFeatures(body []byte) error {
	var members struct {
		Features json.RawMessage `json:"features"`
	}
	if err := json.Unmarshal(body, &members); err != nil {
		return err
	}
	if f := bytes.TrimSpace(members.Features); len(f) == 0 || bytes.Equal(f, []byte("null")) {
		return ErrMissingFeatures
	}
	return nil
}
