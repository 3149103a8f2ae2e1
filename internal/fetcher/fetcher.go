package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/pbaille/msgedit/internal/codec"
	"github.com/pbaille/msgedit/internal/domain"
)

const maxBody = 5 * 1024 * 1024

// Fetcher loads base catalogs from a URL or a local file
type Fetcher struct {
	Client  *http.Client
	Formats *codec.Registry
}

// New creates a Fetcher with a 30s HTTP timeout and the default formats
func New() *Fetcher {
	return &Fetcher{
		Client:  &http.Client{Timeout: 30 * time.Second},
		Formats: codec.Default(),
	}
}

// Fetch retrieves and parses the catalog at src
func (f *Fetcher) Fetch(ctx context.Context, src string) (domain.Catalog, error) {
	if strings.TrimSpace(src) == "" {
		return nil, fmt.Errorf("no catalog source configured")
	}

	var (
		data []byte
		name string
		err  error
	)
	if IsURL(src) {
		data, name, err = f.get(ctx, src)
	} else {
		data, err = os.ReadFile(src)
		name = src
		if err != nil {
			err = fmt.Errorf("read catalog: %w", err)
		}
	}
	if err != nil {
		return nil, err
	}

	c, err := f.Formats.Parse(name, data)
	if err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(c) == 0 {
		return nil, fmt.Errorf("catalog %s has no messages", src)
	}
	return c, nil
}

func (f *Fetcher) get(ctx context.Context, rawURL string) ([]byte, string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if strings.HasPrefix(rawURL, "www.") {
		rawURL = "https://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, "", fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, "", fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "msgedit/1.0")
	req.Header.Set("Accept", "application/json, application/toml;q=0.9, */*;q=0.1")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	// Read body with size limit, one extra byte to detect overflow
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody+1))
	if err != nil {
		return nil, "", fmt.Errorf("read body: %w", err)
	}
	if len(body) > maxBody {
		return nil, "", fmt.Errorf("catalog larger than %d bytes", maxBody)
	}

	return body, path.Base(u.Path), nil
}

// IsURL checks if a string looks like a URL
func IsURL(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "http://") ||
		strings.HasPrefix(s, "https://") ||
		strings.HasPrefix(s, "www.")
}
