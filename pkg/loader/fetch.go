package loader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// maxDocumentSize caps a single fetched document.
const maxDocumentSize = 32 << 20

// Fetcher reads raw document bytes for the URIs it can handle.
type Fetcher interface {
	CanHandle(uri string) bool
	Read(ctx context.Context, uri string) ([]byte, error)
}

// FileFetcher reads local paths and file:// URIs. Relative paths resolve
// against Dir when set.
type FileFetcher struct {
	Dir string
}

func (f FileFetcher) CanHandle(uri string) bool {
	u, err := url.Parse(uri)
	if err != nil {
		return true
	}
	return u.Scheme == "" || u.Scheme == "file" || len(u.Scheme) == 1 // windows drive letters
}

func (f FileFetcher) Read(_ context.Context, uri string) ([]byte, error) {
	path := strings.TrimPrefix(uri, "file://")
	if f.Dir != "" && !filepath.IsAbs(path) {
		path = filepath.Join(f.Dir, path)
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, maxDocumentSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(data) > maxDocumentSize {
		return nil, fmt.Errorf("%s exceeds %d bytes", path, maxDocumentSize)
	}
	return data, nil
}

// HTTPFetcher retrieves http and https URIs.
type HTTPFetcher struct {
	Client *http.Client
}

func (f HTTPFetcher) CanHandle(uri string) bool {
	return strings.HasPrefix(uri, "http://") || strings.HasPrefix(uri, "https://")
}

func (f HTTPFetcher) Read(ctx context.Context, uri string) ([]byte, error) {
	client := f.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", uri, err)
	}
	req.Header.Set("Accept", "application/schema+json, application/json, application/yaml;q=0.9, */*;q=0.5")
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", uri, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("failed to fetch %s: unexpected status %s", uri, resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", uri, err)
	}
	if len(data) > maxDocumentSize {
		return nil, fmt.Errorf("%s exceeds %d bytes", uri, maxDocumentSize)
	}
	return data, nil
}
