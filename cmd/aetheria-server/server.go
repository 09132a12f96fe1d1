// server.go — HTTP surface for the ingest API.
// Endpoints: /health, /ingest, /img, /customers, /save. CORS is permissive:
// the viewer frontend is served from arbitrary origins during development.
package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/aetheria-dev/aetheria/internal/banding"
	"github.com/aetheria-dev/aetheria/internal/config"
	"github.com/aetheria-dev/aetheria/internal/ingest"
	"github.com/aetheria-dev/aetheria/internal/store"
)

// vendorReferer accompanies proxied image fetches; the vendor CDN rejects
// bare requests.
const vendorReferer = "https://report.wax-apple.cn/"

type server struct {
	cfg    config.Config
	log    *zap.Logger
	bands  *banding.Table
	vendor *ingest.Client
	store  *store.Client // nil when persistence is unconfigured
	proxy  *http.Client
}

func newServer(cfg config.Config, log *zap.Logger, bands *banding.Table) *server {
	return &server{
		cfg:   cfg,
		log:   log,
		bands: bands,
		proxy: &http.Client{Timeout: 25 * time.Second},
	}
}

// routes builds the handler tree with CORS applied to everything.
func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /ingest", s.handleIngest)
	mux.HandleFunc("GET /img", s.handleImageProxy)
	mux.HandleFunc("GET /customers", s.handleListCustomers)
	mux.HandleFunc("POST /save", s.handleSave)
	return cors(mux)
}

// cors answers preflights and stamps permissive headers on every response.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// ingestRequest accepts either a full report URL or an explicit id/sign pair.
type ingestRequest struct {
	URL  string `json:"url"`
	ID   string `json:"id"`
	Sign string `json:"sign"`
}

func (s *server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	id, sign := strings.TrimSpace(req.ID), strings.TrimSpace(req.Sign)
	if u := strings.TrimSpace(req.URL); u != "" && (id == "" || sign == "") {
		var err error
		id, sign, err = ingest.ParseIDSign(u)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
	}
	if id == "" || sign == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "need url or id+sign"})
		return
	}

	payload, err := s.vendor.FetchReport(r.Context(), id, sign)
	if err != nil {
		s.log.Warn("vendor fetch failed", zap.String("id", id), zap.Error(err))
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}

	scan := ingest.Normalize(payload, s.bands)
	if n, err := strconv.Atoi(id); err == nil {
		scan.URLID = &n
	}
	scan.URLSign = sign
	scan.PhoneMasked = ingest.MaskPhone(scan.Phone)

	writeJSON(w, http.StatusOK, scan)
}

func (s *server) handleImageProxy(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("u")
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad url"})
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, raw, nil)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad url"})
		return
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")
	req.Header.Set("Referer", vendorReferer)
	req.Header.Set("Accept", "image/*")

	resp, err := s.proxy.Do(req)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "image fetch failed: " + err.Error()})
		return
	}
	defer resp.Body.Close()

	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = "image/jpeg"
	}
	w.Header().Set("Content-Type", strings.Split(ct, ";")[0])
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, resp.Body)
}

func (s *server) handleListCustomers(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "persistence not configured"})
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	rows, err := s.store.ListCustomers(r.Context(), limit)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// saveRequest wraps a normalized scan under "scan"; a bare scan object is
// accepted too.
type saveRequest struct {
	Scan *ingest.Scan `json:"scan"`
}

func (s *server) handleSave(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "persistence not configured"})
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	var req saveRequest
	scan := &ingest.Scan{}
	if err := json.Unmarshal(body, &req); err == nil && req.Scan != nil {
		scan = req.Scan
	} else if err := json.Unmarshal(body, scan); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}

	if scan.URLID == nil || strings.TrimSpace(scan.URLSign) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing url_id/url_sign"})
		return
	}
	phone := store.ToE164(scan.Phone, s.cfg.DefaultCountryCode)
	if phone == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "scan.phone missing or invalid"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	customerID, err := s.store.UpsertCustomer(ctx, strings.TrimSpace(scan.Name), phone)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": err.Error(), "stage": "customer_upsert"})
		return
	}
	scanID, err := s.store.UpsertScan(ctx, customerID, scan)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": err.Error(), "stage": "scan_upsert"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":          true,
		"customer_id": customerID,
		"scan_id":     scanID,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
