package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/genarch/sheetpress/pkg/cache"
	"github.com/genarch/sheetpress/pkg/errors"
)

func TestFetchPNG(t *testing.T) {
	payload := pngBytes(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer srv.Close()

	client := NewClient(nil, nil, nil)
	data, format, err := client.Fetch(context.Background(), srv.URL+"/panel.png")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if format != FormatPNG {
		t.Errorf("format = %q, want %q", format, FormatPNG)
	}
	if len(data) != len(payload) {
		t.Errorf("payload length = %d, want %d", len(data), len(payload))
	}
}

func TestFetchRejectsHTMLWithSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("<!DOCTYPE html><html><body>upstream error</body></html>"))
	}))
	defer srv.Close()

	client := NewClient(nil, nil, nil)
	_, _, err := client.Fetch(context.Background(), srv.URL+"/panel.png")
	if err == nil {
		t.Fatal("Fetch() should reject an HTML payload regardless of headers")
	}
	if !errors.Is(err, errors.ErrCodeFetch) {
		t.Errorf("error code = %q, want %q", errors.GetCode(err), errors.ErrCodeFetch)
	}
}

func TestFetchRetriesServerErrors(t *testing.T) {
	payload := pngBytes(t)
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write(payload)
	}))
	defer srv.Close()

	client := NewClient(nil, nil, nil)
	_, _, err := client.Fetch(context.Background(), srv.URL+"/panel.png")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("server calls = %d, want 3", got)
	}
}

func TestFetchDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(nil, nil, nil)
	_, _, err := client.Fetch(context.Background(), srv.URL+"/missing.png")
	if err == nil {
		t.Fatal("Fetch() should fail on 404")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("server calls = %d, want 1", got)
	}
}

func TestFetchServesFromCache(t *testing.T) {
	payload := pngBytes(t)
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write(payload)
	}))
	defer srv.Close()

	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache() error = %v", err)
	}
	defer c.Close()

	client := NewClient(c, nil, nil)
	source := srv.URL + "/panel.png"

	for i := 0; i < 2; i++ {
		if _, _, err := client.Fetch(context.Background(), source); err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("server calls = %d, want 1 (second fetch should hit the cache)", got)
	}
}

func TestFetchTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	client := NewClient(nil, nil, nil, WithTimeout(50*time.Millisecond))
	_, _, err := client.Fetch(context.Background(), srv.URL+"/slow.png")
	if err == nil {
		t.Fatal("Fetch() should time out")
	}
}

func TestFetchRejectsInvalidURL(t *testing.T) {
	client := NewClient(nil, nil, nil)
	for _, source := range []string{"", "ftp://host/x.png", "file:///etc/passwd", "relative/path.png"} {
		if _, _, err := client.Fetch(context.Background(), source); err == nil {
			t.Errorf("Fetch(%q) should fail validation", source)
		}
	}
}
