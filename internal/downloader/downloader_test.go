package downloader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestFilenameFromURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url  string
		want string
	}{
		{"https://storage.modworkshop.net/mods/files/53461_71246_abc.zip?filename=Rich%20Presence%20Musical.zip", "Rich Presence Musical.zip"},
		{"https://example.test/files/theme.zip", "theme.zip"},
		{"https://example.test/dl?filename=../../evil.zip", "evil.zip"},
	}
	for _, tt := range tests {
		got, err := FilenameFromURL(tt.url)
		if err != nil {
			t.Fatalf("FilenameFromURL(%q) error: %v", tt.url, err)
		}
		if got != tt.want {
			t.Fatalf("FilenameFromURL(%q)=%q want=%q", tt.url, got, tt.want)
		}
	}

	if _, err := FilenameFromURL("https://example.test/"); err == nil {
		t.Fatalf("expected error for URL without file name")
	}
}

func TestIsURL(t *testing.T) {
	t.Parallel()

	if !IsURL("https://example.test/a.zip") || !IsURL("http://example.test/a.zip") {
		t.Fatalf("http(s) URLs not detected")
	}
	if IsURL("/tmp/a.zip") || IsURL("a.zip") {
		t.Fatalf("local paths treated as URLs")
	}
}

func TestFetchDownloadsAndCaches(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte("zipdata"))
	}))
	defer srv.Close()

	cacheDir := filepath.Join(t.TempDir(), "cache")
	var last Progress
	path, err := Fetch(context.Background(), Download{URL: srv.URL + "/dl?filename=theme.zip"}, cacheDir, false, func(p Progress) { last = p })
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if got, want := filepath.Base(path), "theme.zip"; got != want {
		t.Fatalf("file name=%q want=%q", got, want)
	}
	if got, want := filepath.Dir(filepath.Dir(path)), cacheDir; got != want {
		t.Fatalf("cache entry parent=%q want=%q", got, want)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "zipdata" {
		t.Fatalf("unexpected file content %q err=%v", data, err)
	}
	if last.Completed != int64(len("zipdata")) {
		t.Fatalf("progress completed=%d want=%d", last.Completed, len("zipdata"))
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(path), partialName)); !os.IsNotExist(err) {
		t.Fatalf("temporary file left behind")
	}

	if _, err := Fetch(context.Background(), Download{URL: srv.URL + "/dl?filename=theme.zip"}, cacheDir, false, nil); err != nil {
		t.Fatalf("second Fetch failed: %v", err)
	}
	if hits.Load() != 1 {
		t.Fatalf("cache not used, hits=%d", hits.Load())
	}

	if _, err := Fetch(context.Background(), Download{URL: srv.URL + "/dl?filename=theme.zip"}, cacheDir, true, nil); err != nil {
		t.Fatalf("refresh Fetch failed: %v", err)
	}
	if hits.Load() != 2 {
		t.Fatalf("refresh did not download again, hits=%d", hits.Load())
	}
}

func TestFetchKeepsURLsWithSameNameApart(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte("content of " + r.URL.Path))
	}))
	defer srv.Close()

	cacheDir := filepath.Join(t.TempDir(), "cache")
	for round := 0; round < 2; round++ {
		for _, id := range []string{"1", "2"} {
			urlPath := "/mods/" + id + "/download"
			got, err := Fetch(context.Background(), Download{URL: srv.URL + urlPath}, cacheDir, false, nil)
			if err != nil {
				t.Fatalf("Fetch(%s) failed: %v", urlPath, err)
			}
			data, err := os.ReadFile(got)
			if err != nil {
				t.Fatalf("reading %s: %v", got, err)
			}
			if string(data) != "content of "+urlPath {
				t.Fatalf("Fetch(%s) content=%q", urlPath, data)
			}
		}
	}
	if hits.Load() != 2 {
		t.Fatalf("hits=%d want=2", hits.Load())
	}
}

func TestFetchPrefersContentDisposition(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Disposition", `attachment; filename="Rich Presence Musical.zip"`)
		w.Write([]byte("zipdata"))
	}))
	defer srv.Close()

	cacheDir := filepath.Join(t.TempDir(), "cache")
	got, err := Fetch(context.Background(), Download{URL: srv.URL + "/mods/53461/download"}, cacheDir, false, nil)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if base := filepath.Base(got); base != "Rich Presence Musical.zip" {
		t.Fatalf("file name=%q want=%q", base, "Rich Presence Musical.zip")
	}

	again, err := Fetch(context.Background(), Download{URL: srv.URL + "/mods/53461/download"}, cacheDir, true, nil)
	if err != nil {
		t.Fatalf("refresh Fetch failed: %v", err)
	}
	entries, err := os.ReadDir(filepath.Dir(again))
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("cache entry holds %d files, want 1", len(entries))
	}
}

func TestFilenameFromDisposition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		header string
		want   string
	}{
		{`attachment; filename="theme.zip"`, "theme.zip"},
		{`attachment; filename="../../evil.zip"`, "evil.zip"},
		{`attachment; filename*=UTF-8''caf%C3%A9.zip`, "café.zip"},
		{`attachment`, ""},
		{`attachment; filename=".hidden"`, ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := filenameFromDisposition(tt.header); got != tt.want {
			t.Fatalf("filenameFromDisposition(%q)=%q want=%q", tt.header, got, tt.want)
		}
	}
}

func TestDownloadToFileRetriesServerErrors(t *testing.T) {
	old := retryBackoff
	retryBackoff = time.Millisecond
	defer func() { retryBackoff = old }()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "mod.zip")
	if err := DownloadToFile(context.Background(), srv.URL, dest, nil); err != nil {
		t.Fatalf("DownloadToFile failed: %v", err)
	}
	if hits.Load() != 3 {
		t.Fatalf("hits=%d want=3", hits.Load())
	}
}

func TestDownloadToFileDoesNotRetryNotFound(t *testing.T) {
	old := retryBackoff
	retryBackoff = time.Millisecond
	defer func() { retryBackoff = old }()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "mod.zip")
	err := DownloadToFile(context.Background(), srv.URL, dest, nil)
	if err == nil || !strings.Contains(err.Error(), "HTTP 404") {
		t.Fatalf("unexpected error: %v", err)
	}
	if hits.Load() != 1 {
		t.Fatalf("hits=%d want=1", hits.Load())
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Fatalf("no file expected after failure")
	}
}
