package history_test

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	_ "modernc.org/sqlite"

	"github.com/raysh454/headprobe/internal/history"
	"github.com/raysh454/headprobe/internal/testutil"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestStore(t *testing.T) *history.Store {
	t.Helper()
	store, err := history.NewStore(openTestDB(t), &testutil.DummyLogger{})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store
}

func TestStore_SaveAssignsIDAndGetReturnsRecord(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()

	rec := &history.Record{
		URL:        "https://example.com/?",
		Method:     "HEAD",
		StatusCode: 200,
		FinalURL:   "https://example.com/",
		Document:   []byte("{\n  \"Etag\": [\n    \"a\"\n  ]\n}\n"),
	}
	if err := store.Save(ctx, rec); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if rec.ID == "" || rec.CreatedAt == 0 {
		t.Fatalf("Save did not fill ID/CreatedAt: %+v", rec)
	}

	got, err := store.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if diff := cmp.Diff(rec, got); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_GetUnknown(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	_, err := store.Get(context.Background(), "does-not-exist")
	if !errors.Is(err, history.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestStore_ListNewestFirstWithLimit(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()

	for i, u := range []string{"https://a.example/", "https://b.example/", "https://c.example/"} {
		rec := &history.Record{URL: u, Method: "HEAD", Document: []byte("{}"), CreatedAt: int64(100 + i)}
		if err := store.Save(ctx, rec); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	recs, err := store.List(ctx, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var urls []string
	for _, r := range recs {
		urls = append(urls, r.URL)
	}
	if diff := cmp.Diff([]string{"https://c.example/", "https://b.example/"}, urls); diff != "" {
		t.Errorf("List order mismatch (-want +got):\n%s", diff)
	}

	all, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 records with default limit, got %d", len(all))
	}
}

func TestNewStore_NilDB(t *testing.T) {
	t.Parallel()
	if _, err := history.NewStore(nil, &testutil.DummyLogger{}); err == nil {
		t.Fatal("expected error for nil db")
	}
}

func TestStore_Compare(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()

	base := &history.Record{
		URL:    "http://example.com/?",
		Method: "HEAD",
		Document: []byte(`{
  "Etag": ["\"a\"", "\"b\""],
  "Set-Cookie": ["session=old"]
}
`),
	}
	head := &history.Record{
		URL:    "http://example.com/?",
		Method: "HEAD",
		Document: []byte(`{
  "Etag": ["\"c\""],
  "Set-Cookie": ["session=new"],
  "X-Frame-Options": ["DENY"]
}
`),
	}
	for _, rec := range []*history.Record{base, head} {
		if err := store.Save(ctx, rec); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	cmpRes, err := store.Compare(ctx, base.ID, head.ID, true)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if cmpRes.BaseID != base.ID || cmpRes.HeadID != head.ID {
		t.Errorf("ids = %s/%s", cmpRes.BaseID, cmpRes.HeadID)
	}
	want := history.HeaderDiff{
		Added:    map[string][]string{"x-frame-options": {"DENY"}},
		Changed:  map[string]history.Change{"etag": {From: []string{`"a"`, `"b"`}, To: []string{`"c"`}}},
		Redacted: []string{"set-cookie"},
	}
	if diff := cmp.Diff(want, cmpRes.Headers); diff != "" {
		t.Errorf("header diff mismatch (-want +got):\n%s", diff)
	}
	for _, c := range cmpRes.Chunks {
		if strings.Contains(c.Content, "session=") {
			t.Errorf("redacted value leaked in chunk %+v", c)
		}
	}

	if _, err := store.Compare(ctx, base.ID, "missing", true); !errors.Is(err, history.ErrRecordNotFound) {
		t.Errorf("Compare with missing head: err = %v, want ErrRecordNotFound", err)
	}
}
