package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/loglens/loglens/internal/cache"
	"github.com/loglens/loglens/internal/export"
	"github.com/loglens/loglens/internal/models"
	"github.com/loglens/loglens/internal/pagination"
	"github.com/loglens/loglens/internal/session"
	"github.com/loglens/loglens/internal/store"
)

func testServer(t *testing.T, secret string) *httptest.Server {
	t.Helper()
	boltStore, err := store.NewBoltStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { boltStore.Close() })

	sess := session.New(nil)
	r := chi.NewRouter()
	Routes(r, Handlers{
		Session: NewSessionHandler(
			sess,
			pagination.NewPaginator(100, 1000),
			cache.NewFilterCache(cache.NewMemoryCache(16), time.Minute),
		),
		Query:       NewQueryHandler(sess, boltStore),
		Extract:     NewExtractHandler(sess, boltStore),
		Export:      NewExportHandler(sess, export.NewExporter()),
		FilterStore: NewFilterStoreHandler(boltStore),
		JWTSecret:   secret,
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body interface{}, out interface{}) int {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatal(err)
		}
	}
	return resp.StatusCode
}

func ingest(t *testing.T, srv *httptest.Server, text string) {
	t.Helper()
	resp, err := http.Post(srv.URL+"/session/ingest?final=true", "text/plain", strings.NewReader(text))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("ingest status = %d", resp.StatusCode)
	}
}

const testLog = `2023-06-15 10:00:00 INFO service started
2023-06-15 10:00:01 ERROR connection refused host=db1
2023-06-15 10:00:02 ERROR timeout host=db2
`

func TestIngestFilterAndPage(t *testing.T) {
	srv := testServer(t, "")
	ingest(t, srv, testLog)

	var result models.FilterResult
	status := doJSON(t, http.MethodPost, srv.URL+"/filter/", models.FilterRequest{
		Query: "level:ERROR",
	}, &result)
	if status != http.StatusOK || result.MatchedCount != 2 || result.TotalCount != 3 {
		t.Fatalf("status=%d result=%+v", status, result)
	}

	var page pagination.PageResponse
	if status := doJSON(t, http.MethodGet, srv.URL+"/entries?page=1&page_size=10", nil, &page); status != http.StatusOK {
		t.Fatalf("entries status = %d", status)
	}
	if len(page.Rows) != 2 || page.Rows[0].Level != "ERROR" {
		t.Errorf("page: %+v", page)
	}
}

func TestApplyFilterBadQuery(t *testing.T) {
	srv := testServer(t, "")
	ingest(t, srv, testLog)

	var body map[string]string
	status := doJSON(t, http.MethodPost, srv.URL+"/filter/", models.FilterRequest{Query: `"oops`}, &body)
	if status != http.StatusBadRequest || body["error"] == "" {
		t.Errorf("status=%d body=%v", status, body)
	}
}

func TestParseQueryEndpoint(t *testing.T) {
	srv := testServer(t, "")

	var resp struct {
		Valid       bool                `json:"valid"`
		Expressible bool                `json:"expressible"`
		Rules       []models.FilterRule `json:"rules"`
		Fragment    string              `json:"fragment"`
	}
	doJSON(t, http.MethodPost, srv.URL+"/query/parse", map[string]string{"query": "level:ERROR host:db1"}, &resp)
	if !resp.Valid || !resp.Expressible || len(resp.Rules) != 2 {
		t.Errorf("parse: %+v", resp)
	}

	doJSON(t, http.MethodPost, srv.URL+"/query/parse", map[string]string{"query": "level:"}, &resp)
	if resp.Valid {
		t.Errorf("invalid query accepted: %+v", resp)
	}
}

func TestExtractorLifecycle(t *testing.T) {
	srv := testServer(t, "")
	ingest(t, srv, testLog)

	var saved models.Extractor
	status := doJSON(t, http.MethodPost, srv.URL+"/extractors/", models.Extractor{
		Name:    "host",
		Pattern: `host=(?P<host>\w+)`,
		Enabled: true,
	}, &saved)
	if status != http.StatusOK || saved.ID == "" {
		t.Fatalf("save: status=%d %+v", status, saved)
	}

	// Rejects a pattern that does not compile.
	if status := doJSON(t, http.MethodPost, srv.URL+"/extractors/", models.Extractor{
		Name:    "bad",
		Pattern: `host=(?P<host>`,
	}, nil); status != http.StatusBadRequest {
		t.Errorf("bad pattern status = %d", status)
	}

	// Empty extractor list falls back to the saved ones.
	var result models.ExtractionResult
	doJSON(t, http.MethodPost, srv.URL+"/extract", models.ExtractionRequest{}, &result)
	if result.TotalHits != 2 || len(result.UpdatedFieldNames) != 1 {
		t.Errorf("extraction: %+v", result)
	}

	var stats models.FieldStats
	doJSON(t, http.MethodGet, srv.URL+"/stats/host", nil, &stats)
	if stats.WithValue != 2 {
		t.Errorf("host stats: %+v", stats)
	}
}

func TestExportCSVEndpoint(t *testing.T) {
	srv := testServer(t, "")
	ingest(t, srv, testLog)

	resp, err := http.Get(srv.URL + "/export/?format=csv")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/csv" {
		t.Errorf("content type = %q", ct)
	}

	resp, err = http.Get(srv.URL + "/export/?format=pdf")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unsupported format status = %d", resp.StatusCode)
	}
}

func TestAuthRequiredWhenSecretSet(t *testing.T) {
	srv := testServer(t, "test-secret")

	resp, err := http.Get(srv.URL + "/entries")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status without token = %d", resp.StatusCode)
	}

	// Health stays open.
	resp, err = http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d", resp.StatusCode)
	}
}
