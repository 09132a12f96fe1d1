// client.go — REST persistence client with conflict-key upsert semantics.
// Talks to a PostgREST-style API: every write is idempotent against a unique
// key and returns the stable row identifier.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/aetheria-dev/aetheria/internal/ingest"
)

// Client is a thin typed wrapper over the persistence REST API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     *zap.Logger
}

// NewClient returns a client for the given REST base (e.g. the project URL;
// "/rest/v1" is appended here).
func NewClient(baseURL, apiKey string, log *zap.Logger) *Client {
	return &Client{
		baseURL: trimSlash(baseURL) + "/rest/v1",
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 20 * time.Second},
		log:     log,
	}
}

func trimSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}

// apiError is a non-2xx response surfaced with its body.
type apiError struct {
	Status int
	Body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("persistence API returned %d: %s", e.Status, e.Body)
}

// do issues one request and decodes the response into out (if non-nil).
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation,resolution=merge-duplicates")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &apiError{Status: resp.StatusCode, Body: string(data)}
		c.log.Warn("persistence API error", zap.Int("status", resp.StatusCode), zap.String("path", path))
		return apiErr
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

// idRow is the representation slice PostgREST returns for writes.
type idRow struct {
	ID string `json:"id"`
}

// Customer is one customer listing row.
type Customer struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	CreatedAt string `json:"created_at"`
}

// UpsertCustomer upserts a customer keyed by normalized phone and returns the
// stable row id. A phone that normalizes to nothing is an error — it is the
// unique key.
func (c *Client) UpsertCustomer(ctx context.Context, name, phone string) (string, error) {
	ph := NormalizePhone(phone)
	if ph == "" {
		return "", fmt.Errorf("phone required for customer upsert")
	}
	body := []map[string]any{{"phone": ph, "name": nilIfEmpty(name)}}
	q := url.Values{"on_conflict": {"phone"}, "select": {"id,phone,name"}}

	var rows []idRow
	if err := c.do(ctx, http.MethodPost, "/customers", q, body, &rows); err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", fmt.Errorf("customer upsert returned no rows")
	}
	return rows[0].ID, nil
}

// UpsertScan upserts one normalized scan for a customer, keyed by the
// externally supplied url_id/url_sign identity pair, and returns the row id.
func (c *Client) UpsertScan(ctx context.Context, customerID string, scan *ingest.Scan) (string, error) {
	if scan.URLID == nil || scan.URLSign == "" {
		return "", fmt.Errorf("scan identity pair (url_id, url_sign) required")
	}
	body := []map[string]any{{
		"customer_id":     customerID,
		"vendor_checkid":  scan.CheckID,
		"age":             scan.SkinAge,
		"metrics":         scan.Metrics,
		"sampling_images": scan.SamplingImages,
		"raw":             scan.Raw,
		"url_id":          *scan.URLID,
		"url_sign":        scan.URLSign,
	}}
	q := url.Values{"on_conflict": {"url_id,url_sign"}, "select": {"id"}}

	var rows []idRow
	if err := c.do(ctx, http.MethodPost, "/machine_scans", q, body, &rows); err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", fmt.Errorf("scan upsert returned no rows")
	}
	return rows[0].ID, nil
}

// ListCustomers returns up to limit customers, most recent first.
func (c *Client) ListCustomers(ctx context.Context, limit int) ([]Customer, error) {
	q := url.Values{
		"select": {"id,name,phone,created_at"},
		"order":  {"created_at.desc"},
		"limit":  {strconv.Itoa(limit)},
	}
	var rows []Customer
	if err := c.do(ctx, http.MethodGet, "/customers", q, nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// LatestScanForCustomer returns the newest scan row for a customer, or nil.
func (c *Client) LatestScanForCustomer(ctx context.Context, customerID string) (map[string]any, error) {
	q := url.Values{
		"select":      {"*"},
		"customer_id": {"eq." + customerID},
		"order":       {"created_at.desc"},
		"limit":       {"1"},
	}
	var rows []map[string]any
	if err := c.do(ctx, http.MethodGet, "/machine_scans", q, nil, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
