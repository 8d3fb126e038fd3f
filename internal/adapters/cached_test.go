package adapters

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/otcheredev/report-resolver/internal/cache"
	"github.com/otcheredev/report-resolver/internal/config"
	"github.com/otcheredev/report-resolver/internal/models"
)

func storeTestConfig() config.ObjectStoreConfig {
	return config.ObjectStoreConfig{
		Host:       "objectstore.example.net",
		PathMarker: "/second-opinion/",
	}
}

func seedEntry(t *testing.T, c cache.Cache, identity string, entry cache.Entry) {
	t.Helper()
	data, err := cache.EncodeEntry(entry)
	if err != nil {
		t.Fatalf("Failed to encode entry: %v", err)
	}
	if err := c.Set(context.Background(), cache.ReportURLKey(identity), data, time.Hour); err != nil {
		t.Fatalf("Failed to seed cache: %v", err)
	}
}

func TestCachedAdapterReturnsURLVerbatimWithoutNetwork(t *testing.T) {
	networkCalls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		networkCalls++
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := cache.NewMemoryCache()
	defer c.Close()
	seedEntry(t, c, "patient:123", cache.Entry{
		URL: "https://objectstore.example.net/second-opinion/123.pdf",
	})

	adapter := NewCachedURLAdapter(c, storeTestConfig(), localTestConfig(srv.URL), StaticToken("tok"))
	ref, err := adapter.TryResolve(context.Background(), models.ReportQuery{PatientID: int64Ptr(123)})
	if err != nil {
		t.Fatalf("TryResolve failed: %v", err)
	}
	if ref.URL != "https://objectstore.example.net/second-opinion/123.pdf" {
		t.Errorf("Expected cached URL verbatim, got %q", ref.URL)
	}
	if ref.Source != models.SourceCached {
		t.Errorf("Expected cached source, got %s", ref.Source)
	}
	if networkCalls != 0 {
		t.Errorf("Expected no network calls, got %d", networkCalls)
	}
}

func TestCachedAdapterAcceptsBucketSubdomain(t *testing.T) {
	c := cache.NewMemoryCache()
	defer c.Close()
	seedEntry(t, c, "patient:5", cache.Entry{
		URL: "https://reports.objectstore.example.net/second-opinion/5/report.pdf?sig=abc",
	})

	adapter := NewCachedURLAdapter(c, storeTestConfig(), localTestConfig("http://unused.invalid"), StaticToken("tok"))
	ref, err := adapter.TryResolve(context.Background(), models.ReportQuery{PatientID: int64Ptr(5)})
	if err != nil {
		t.Fatalf("TryResolve failed: %v", err)
	}
	if ref.URL == "" {
		t.Error("Expected cached URL")
	}
}

func TestCachedAdapterRejectsForeignURL(t *testing.T) {
	c := cache.NewMemoryCache()
	defer c.Close()
	seedEntry(t, c, "patient:5", cache.Entry{
		URL: "https://evil.example.com/second-opinion/5.pdf",
	})

	adapter := NewCachedURLAdapter(c, storeTestConfig(), localTestConfig("http://unused.invalid"), StaticToken("tok"))
	_, err := adapter.TryResolve(context.Background(), models.ReportQuery{PatientID: int64Ptr(5)})
	if err != ErrNotFound {
		t.Fatalf("Expected ErrNotFound for URL outside the object store, got %v", err)
	}
}

func TestCachedAdapterPresignsObjectKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/storage/presign-view" {
			http.NotFound(w, r)
			return
		}
		if got := r.URL.Query().Get("key"); got != "second-opinion/9/report.pdf" {
			t.Errorf("Expected object key in presign call, got %q", got)
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Error("Presign call must carry the bearer credential")
		}
		w.Write([]byte(`{"view_url": "https://objectstore.example.net/second-opinion/9/report.pdf?fresh=1", "key": "second-opinion/9/report.pdf"}`))
	}))
	defer srv.Close()

	c := cache.NewMemoryCache()
	defer c.Close()
	seedEntry(t, c, "patient:9", cache.Entry{ObjectKey: "second-opinion/9/report.pdf"})

	adapter := NewCachedURLAdapter(c, storeTestConfig(), localTestConfig(srv.URL), StaticToken("tok"))
	ref, err := adapter.TryResolve(context.Background(), models.ReportQuery{PatientID: int64Ptr(9)})
	if err != nil {
		t.Fatalf("TryResolve failed: %v", err)
	}
	if ref.URL != "https://objectstore.example.net/second-opinion/9/report.pdf?fresh=1" {
		t.Errorf("Expected freshly presigned URL, got %q", ref.URL)
	}
	if ref.ObjectKey != "second-opinion/9/report.pdf" {
		t.Errorf("Expected object key preserved, got %q", ref.ObjectKey)
	}
}

func TestCachedAdapterPresignFailureIsMiss(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	c := cache.NewMemoryCache()
	defer c.Close()
	seedEntry(t, c, "patient:9", cache.Entry{ObjectKey: "second-opinion/9/report.pdf"})

	adapter := NewCachedURLAdapter(c, storeTestConfig(), localTestConfig(srv.URL), StaticToken("tok"))
	_, err := adapter.TryResolve(context.Background(), models.ReportQuery{PatientID: int64Ptr(9)})
	if err != ErrNotFound {
		t.Fatalf("Presign failure must be a miss, got %v", err)
	}
}

func TestCachedAdapterEmptyCacheIsMiss(t *testing.T) {
	c := cache.NewMemoryCache()
	defer c.Close()

	adapter := NewCachedURLAdapter(c, storeTestConfig(), localTestConfig("http://unused.invalid"), StaticToken("tok"))
	_, err := adapter.TryResolve(context.Background(), models.ReportQuery{PatientID: int64Ptr(1)})
	if err != ErrNotFound {
		t.Fatalf("Expected ErrNotFound on cache miss, got %v", err)
	}
}

func TestCachedAdapterGarbageEntryIsMiss(t *testing.T) {
	c := cache.NewMemoryCache()
	defer c.Close()
	if err := c.Set(context.Background(), cache.ReportURLKey("patient:1"), []byte("not json"), time.Hour); err != nil {
		t.Fatalf("Failed to seed cache: %v", err)
	}

	adapter := NewCachedURLAdapter(c, storeTestConfig(), localTestConfig("http://unused.invalid"), StaticToken("tok"))
	_, err := adapter.TryResolve(context.Background(), models.ReportQuery{PatientID: int64Ptr(1)})
	if err != ErrNotFound {
		t.Fatalf("A broken cache entry must be a miss, got %v", err)
	}
}
