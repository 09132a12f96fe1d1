// ingest.go — Vendor payload fetch and normalization.
// The vendor's field names and shapes are undocumented and unstable; the
// normalizer keys on a fixed label dictionary and tolerates missing or
// garbled values everywhere.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/aetheria-dev/aetheria/internal/banding"
)

// DefaultVendorEndpoint is the vendor report API.
const DefaultVendorEndpoint = "https://data.wax-apple.cn/Index/Report/pifu_profes"

// reportReferer is the report frontend origin the vendor expects to see.
const reportReferer = "https://report.wax-apple.cn/"

// vendorToInternal maps vendor datalist labels to internal metric keys.
// Unmapped labels are skipped, not guessed.
var vendorToInternal = map[string]string{
	"RGB Moisture":    "moisture",
	"RGB Grease":      "sebum",
	"PL Texture":      "texture",
	"UV Pigmentation": "pigmentation_uv",
	"PL Hyperemia":    "redness",
	"UV Pore":         "pores",
	"UV Acne":         "acne",
	"UV spot":         "uv_spots",
	"Brown area":      "brown_areas",
	"Sensitive Area":  "sensitivity",
}

// Client fetches vendor reports.
type Client struct {
	Endpoint string
	HTTP     *http.Client
	log      *zap.Logger
}

// NewClient returns a vendor client with the standard endpoint and timeout.
func NewClient(log *zap.Logger) *Client {
	return &Client{
		Endpoint: DefaultVendorEndpoint,
		HTTP:     &http.Client{Timeout: 25 * time.Second},
		log:      log,
	}
}

// FetchReport retrieves and decodes the vendor payload for one id/sign pair.
func (c *Client) FetchReport(ctx context.Context, id, sign string) (map[string]any, error) {
	q := url.Values{"id": {id}, "sign": {sign}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("User-Agent", "Aetheria/1.0")
	req.Header.Set("Referer", reportReferer)
	req.Header.Set("Origin", strings.TrimSuffix(reportReferer, "/"))

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vendor request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading vendor response: %w", err)
	}
	payload, err := decodeLenient(body)
	if err != nil {
		return nil, fmt.Errorf("decoding vendor response: %w", err)
	}
	c.log.Debug("vendor report fetched", zap.String("id", id), zap.Int("bytes", len(body)))
	return payload, nil
}

// decodeLenient decodes JSON, retrying on the outermost {...} slice when the
// vendor pads the body with stray text.
func decodeLenient(body []byte) (map[string]any, error) {
	var out map[string]any
	if err := json.Unmarshal(body, &out); err == nil {
		return out, nil
	}
	s := strings.Index(string(body), "{")
	e := strings.LastIndex(string(body), "}")
	if s == -1 || e == -1 || e <= s {
		return nil, fmt.Errorf("no JSON object in body")
	}
	if err := json.Unmarshal(body[s:e+1], &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Normalize turns a raw vendor payload into a Scan. bands may be nil, in
// which case metrics carry no band/color.
func Normalize(payload map[string]any, bands *banding.Table) *Scan {
	out := &Scan{
		SamplingImages: map[string]string{},
		Metrics:        map[string]Metric{},
		Raw:            payload,
	}
	if v, ok := payload["checkid"].(float64); ok && v == float64(int(v)) {
		id := int(v)
		out.CheckID = &id
	}
	out.Name, _ = payload["name"].(string)
	out.Phone, _ = payload["phone"].(string)
	if v, ok := payload["age"].(float64); ok && v == float64(int(v)) {
		age := int(v)
		out.SkinAge = &age
	}

	if sampling, ok := payload["sampling"].([]any); ok {
		for _, s := range sampling {
			m, ok := s.(map[string]any)
			if !ok {
				continue
			}
			name, _ := m["name"].(string)
			u, _ := m["url"].(string)
			if name != "" && u != "" {
				out.SamplingImages[name] = u
			}
		}
	}

	if datalist, ok := payload["datalist"].([]any); ok {
		for _, d := range datalist {
			m, ok := d.(map[string]any)
			if !ok {
				continue
			}
			label, _ := m["items"].(string)
			key, known := vendorToInternal[label]
			if !known {
				continue
			}
			val := toFloat(m["value"])
			cloud := toFloat(m["cloudvalue"])
			metric := Metric{
				Key:        key,
				Label:      label,
				Value:      val,
				CloudValue: cloud,
			}
			if val != nil && cloud != nil {
				d := *val - *cloud
				metric.DeltaFromCloud = &d
			}
			if level, _ := m["level"].(string); strings.TrimSpace(level) != "" {
				metric.VendorLevel = strings.TrimSpace(level)
			}
			if bands != nil {
				metric.Band, metric.Color = bands.BandFor(key, val)
			}
			out.Metrics[key] = metric
		}
	}
	return out
}

// toFloat coerces vendor numerics: numbers pass through, strings are trimmed
// and stripped of a percent sign, anything else is nil.
func toFloat(x any) *float64 {
	switch v := x.(type) {
	case nil:
		return nil
	case float64:
		return &v
	case int:
		f := float64(v)
		return &f
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(v), "%", "")
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		return &f
	default:
		return nil
	}
}

// MaskPhone hides the middle digits of a phone for display. Phones shorter
// than six characters are returned unmasked-empty.
func MaskPhone(phone string) string {
	if len(phone) < 6 {
		return ""
	}
	return phone[:2] + "****" + phone[len(phone)-2:]
}
