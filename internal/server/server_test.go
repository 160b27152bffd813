package server_test

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/go-json-experiment/json"
	"github.com/google/go-cmp/cmp"
	_ "modernc.org/sqlite"

	"github.com/raysh454/headprobe/internal/app"
	"github.com/raysh454/headprobe/internal/headerdoc"
	"github.com/raysh454/headprobe/internal/history"
	"github.com/raysh454/headprobe/internal/server"
	"github.com/raysh454/headprobe/internal/testutil"
	"github.com/raysh454/headprobe/internal/urlnet"
	"github.com/raysh454/headprobe/internal/webclient"
)

func newOrigin(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header()["ETag"] = []string{"a", "b"}
		w.Header().Set("X-Query", r.URL.RawQuery)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func newTestServer(t *testing.T, withHistory bool) *server.Server {
	t.Helper()
	logger := &testutil.DummyLogger{}

	client, err := webclient.NewNetHTTPClient(webclient.Config{}, logger, nil)
	if err != nil {
		t.Fatalf("NewNetHTTPClient: %v", err)
	}

	var store *history.Store
	if withHistory {
		db, err := sql.Open("sqlite", ":memory:")
		if err != nil {
			t.Fatalf("open db: %v", err)
		}
		db.SetMaxOpenConns(1)
		t.Cleanup(func() { db.Close() })
		store, err = history.NewStore(db, logger)
		if err != nil {
			t.Fatalf("NewStore: %v", err)
		}
	}

	prober := app.NewProber(urlnet.Config{}, client, store, logger)
	return server.NewServer(server.Config{ListenAddr: ":0", Logger: logger}, prober)
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHead_ReturnsDocumentAndRecordsIt(t *testing.T) {
	t.Parallel()
	origin := newOrigin(t)
	s := newTestServer(t, true)

	path := "/head?url=" + url.QueryEscape(origin.URL+"/page") + "&param=" + url.QueryEscape("id=7")
	rec := get(t, s, path)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	doc, err := headerdoc.Decode(rec.Body.Bytes())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got, _ := doc.Values("ETag"); !cmp.Equal(got, []string{"a", "b"}) {
		t.Errorf("ETag = %v; names = %v", got, doc.Names())
	}
	if got, _ := doc.Values("X-Query"); !cmp.Equal(got, []string{"id=7"}) {
		t.Errorf("X-Query = %v", got)
	}

	id := rec.Header().Get("X-Probe-ID")
	if id == "" {
		t.Fatal("missing X-Probe-ID")
	}

	stored := get(t, s, "/probes/"+id)
	if stored.Code != http.StatusOK {
		t.Fatalf("GET /probes/%s: %d", id, stored.Code)
	}
	if stored.Body.String() != rec.Body.String() {
		t.Errorf("stored document differs from the served one")
	}

	list := get(t, s, "/probes?limit=5")
	var summaries []server.ProbeSummary
	if err := json.Unmarshal(list.Body.Bytes(), &summaries); err != nil {
		t.Fatalf("decode list: %v (%s)", err, list.Body.String())
	}
	if len(summaries) != 1 || summaries[0].ID != id || summaries[0].Method != http.MethodHead {
		t.Errorf("unexpected listing: %+v", summaries)
	}
}

func TestHead_ErrorStatuses(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, false)

	cases := []struct {
		name string
		path string
		want int
	}{
		{"missing url", "/head", http.StatusBadRequest},
		{"malformed url", "/head?url=" + url.QueryEscape("no-scheme.example"), http.StatusBadRequest},
		{"unsupported protocol", "/head?url=" + url.QueryEscape("ftp://example.com/f"), http.StatusBadRequest},
		{"bad param", "/head?url=" + url.QueryEscape("http://example.com") + "&param=novalue", http.StatusBadRequest},
		{"unreachable", "/head?url=" + url.QueryEscape("http://127.0.0.1:1/"), http.StatusBadGateway},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			rec := get(t, s, tc.path)
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d: %s", tc.want, rec.Code, rec.Body.String())
			}
			var body server.ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body.Error == "" {
				t.Errorf("expected error payload, got %q", rec.Body.String())
			}
		})
	}
}

func TestProbes_HistoryDisabledOrUnknown(t *testing.T) {
	t.Parallel()
	disabled := newTestServer(t, false)
	if rec := get(t, disabled, "/probes"); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 with history disabled, got %d", rec.Code)
	}

	enabled := newTestServer(t, true)
	if rec := get(t, enabled, "/probes/unknown"); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown probe, got %d", rec.Code)
	}
	if rec := get(t, enabled, "/probes?limit=-1"); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for negative limit, got %d", rec.Code)
	}
}

func TestOptions_CORS(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, false)
	req := httptest.NewRequestWithContext(context.Background(), http.MethodOptions, "/head", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Methods") != "GET" {
		t.Errorf("allow methods = %q", rec.Header().Get("Access-Control-Allow-Methods"))
	}
}

func TestProbes_Diff(t *testing.T) {
	t.Parallel()
	var hits atomic.Int32
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := hits.Add(1)
		w.Header().Set("ETag", fmt.Sprintf("v%d", n))
		w.Header().Set("Set-Cookie", fmt.Sprintf("session=%d", n))
		if n > 1 {
			w.Header().Set("X-Frame-Options", "DENY")
		}
	}))
	t.Cleanup(origin.Close)
	s := newTestServer(t, true)

	var ids []string
	for i := 0; i < 2; i++ {
		rec := get(t, s, "/head?url="+url.QueryEscape(origin.URL))
		if rec.Code != http.StatusOK {
			t.Fatalf("probe %d: %d %s", i, rec.Code, rec.Body.String())
		}
		ids = append(ids, rec.Header().Get("X-Probe-ID"))
	}

	rec := get(t, s, "/probes/"+ids[0]+"/diff/"+ids[1])
	if rec.Code != http.StatusOK {
		t.Fatalf("diff: %d %s", rec.Code, rec.Body.String())
	}
	var res history.Comparison
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode diff: %v (%s)", err, rec.Body.String())
	}
	if _, ok := res.Headers.Added["x-frame-options"]; !ok {
		t.Errorf("expected x-frame-options added: %+v", res.Headers)
	}
	if c, ok := res.Headers.Changed["etag"]; !ok || !cmp.Equal(c.To, []string{"v2"}) {
		t.Errorf("etag change = %+v", res.Headers.Changed)
	}
	if !cmp.Equal(res.Headers.Redacted, []string{"set-cookie"}) {
		t.Errorf("redacted = %v", res.Headers.Redacted)
	}

	raw := get(t, s, "/probes/"+ids[0]+"/diff/"+ids[1]+"?redact=false")
	var unredacted history.Comparison
	if err := json.Unmarshal(raw.Body.Bytes(), &unredacted); err != nil {
		t.Fatalf("decode diff: %v", err)
	}
	if _, ok := unredacted.Headers.Changed["set-cookie"]; !ok {
		t.Errorf("expected set-cookie change without redaction: %+v", unredacted.Headers)
	}

	if rec := get(t, s, "/probes/"+ids[0]+"/diff/nope"); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown probe, got %d", rec.Code)
	}
	if rec := get(t, s, "/probes/"+ids[0]+"/diff/"+ids[1]+"?redact=maybe"); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad redact, got %d", rec.Code)
	}
}
