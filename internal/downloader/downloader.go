package downloader

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/caedis/void-mod-installer/internal/logging"
)

// Download names a remote archive.
type Download struct {
	URL string
	// Filename overrides the name derived from the URL.
	Filename string
}

// Progress reports downloaded bytes. Total is -1 when the server did not send
// a content length.
type Progress struct {
	Completed int64
	Total     int64
}

const maxRetries = 3

// retryBackoff is multiplied by the attempt number between retries.
var retryBackoff = 2 * time.Second

// IsURL reports whether s looks like an http(s) URL rather than a local path.
func IsURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// FilenameFromURL derives the archive's file name, preferring a "filename"
// query parameter over the last path segment.
func FilenameFromURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parsing url: %w", err)
	}
	name := u.Query().Get("filename")
	if name == "" {
		name = path.Base(u.Path)
	}
	name = filepath.Base(filepath.FromSlash(strings.ReplaceAll(name, `\`, "/")))
	if name == "" || name == "." || name == "/" || name == ".." {
		return "", fmt.Errorf("no file name in %s", raw)
	}
	return name, nil
}

// Fetch downloads dl into cacheDir and returns the local path. Each URL gets
// its own cache entry, so URLs ending in the same path segment do not collide.
// An archive already present in the entry is reused unless refresh is set.
func Fetch(ctx context.Context, dl Download, cacheDir string, refresh bool, onProgress func(Progress)) (string, error) {
	entryDir := filepath.Join(cacheDir, cacheKey(dl.URL))
	if err := os.MkdirAll(entryDir, 0o755); err != nil {
		return "", fmt.Errorf("creating cache dir: %w", err)
	}

	if !refresh {
		if cached, ok := cachedFile(entryDir); ok {
			logging.Debugf("Verbose: cache hit file=%s\n", filepath.Base(cached))
			return cached, nil
		}
		logging.Debugf("Verbose: cache miss url=%s\n", dl.URL)
	}

	tmpPath := filepath.Join(entryDir, partialName)
	suggested, err := download(ctx, dl.URL, tmpPath, onProgress)
	if err != nil {
		return "", err
	}

	filename := dl.Filename
	if filename == "" {
		filename = suggested
	}
	if filename == "" {
		if filename, err = FilenameFromURL(dl.URL); err != nil {
			os.Remove(tmpPath)
			return "", err
		}
	}

	if err := clearEntry(entryDir); err != nil {
		os.Remove(tmpPath)
		return "", err
	}
	destPath := filepath.Join(entryDir, filename)
	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("finalizing %s: %w", filename, err)
	}
	return destPath, nil
}

// partialName holds a download in progress inside a cache entry. Dot files
// are never reported as cache hits.
const partialName = ".partial"

func cacheKey(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	return hex.EncodeToString(sum[:])[:12]
}

func cachedFile(entryDir string) (string, bool) {
	entries, err := os.ReadDir(entryDir)
	if err != nil {
		return "", false
	}
	for _, e := range entries {
		if e.Type().IsRegular() && !strings.HasPrefix(e.Name(), ".") {
			return filepath.Join(entryDir, e.Name()), true
		}
	}
	return "", false
}

// clearEntry removes previously cached files so a refreshed download under a
// new name does not leave the old one behind.
func clearEntry(entryDir string) error {
	entries, err := os.ReadDir(entryDir)
	if err != nil {
		return fmt.Errorf("reading cache entry: %w", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if err := os.RemoveAll(filepath.Join(entryDir, e.Name())); err != nil {
			return fmt.Errorf("clearing cache entry: %w", err)
		}
	}
	return nil
}

// DownloadToFile downloads a single file from the given URL to destPath with
// retries. The file appears at destPath only once it is complete.
func DownloadToFile(ctx context.Context, url, destPath string, onProgress func(Progress)) error {
	tmpPath := destPath + ".tmp"
	if _, err := download(ctx, url, tmpPath, onProgress); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("finalizing %s: %w", filepath.Base(destPath), err)
	}
	logging.Debugf("Verbose: download complete file=%s\n", filepath.Base(destPath))
	return nil
}

// download writes url to tmpPath with retries and returns the file name the
// server suggested in Content-Disposition, if any. tmpPath is removed on
// failure.
func download(ctx context.Context, url, tmpPath string, onProgress func(Progress)) (string, error) {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			logging.Debugf("Verbose: retrying download %s attempt=%d/%d\n", url, attempt+1, maxRetries)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(attempt) * retryBackoff):
			}
		}

		var suggested string
		suggested, lastErr = downloadOnce(ctx, url, tmpPath, onProgress)
		if lastErr == nil {
			return suggested, nil
		}
		var perm *permanentError
		if errors.As(lastErr, &perm) {
			return "", perm.err
		}
	}
	return "", lastErr
}

// permanentError marks failures that a retry cannot fix.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }

func downloadOnce(ctx context.Context, url, tmpPath string, onProgress func(Progress)) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &permanentError{fmt.Errorf("creating request: %w", err)}
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("downloading: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("downloading: HTTP %d", resp.StatusCode)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return "", &permanentError{err}
		}
		return "", err
	}

	f, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("creating file: %w", err)
	}

	var body io.Reader = resp.Body
	if onProgress != nil {
		body = &progressReader{r: resp.Body, total: resp.ContentLength, fn: onProgress}
	}

	_, err = io.Copy(f, body)
	closeErr := f.Close()
	if err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("writing file: %w", err)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("closing file: %w", closeErr)
	}
	return filenameFromDisposition(resp.Header.Get("Content-Disposition")), nil
}

// filenameFromDisposition returns the base name of the attachment file name
// in a Content-Disposition header, or "" when there is none.
func filenameFromDisposition(header string) string {
	if header == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	name := filepath.Base(filepath.FromSlash(strings.ReplaceAll(params["filename"], `\`, "/")))
	if name == "." || name == ".." || name == "/" || strings.HasPrefix(name, ".") {
		return ""
	}
	return name
}

type progressReader struct {
	r     io.Reader
	done  int64
	total int64
	fn    func(Progress)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.done += int64(n)
		p.fn(Progress{Completed: p.done, Total: p.total})
	}
	return n, err
}
