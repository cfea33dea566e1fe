package library

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/cryguy/mermaid/internal/core"
)

// Loader reads custom libraries from files or http(s) URLs.
type Loader struct {
	client   *retryablehttp.Client
	maxBytes int64
}

// NewLoader returns a Loader enforcing cfg.MaxScriptSizeKB.
func NewLoader(cfg core.EngineConfig) *Loader {
	cfg = cfg.WithDefaults()
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.Logger = nil
	return &Loader{
		client:   client,
		maxBytes: int64(cfg.MaxScriptSizeKB) * 1024,
	}
}

// Load fetches ref (a path or an http(s) URL) and prepares it for
// execution with Prepare.
func (l *Loader) Load(ctx context.Context, ref string) (string, error) {
	var (
		src string
		err error
	)
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		src, err = l.fetch(ctx, ref)
	} else {
		src, err = l.readFile(ref)
	}
	if err != nil {
		return "", err
	}
	return Prepare(src)
}

func (l *Loader) readFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening library: %w", err)
	}
	defer f.Close()
	return l.readLimited(f, path)
}

func (l *Loader) fetch(ctx context.Context, url string) (string, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("creating library request: %w", err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching library: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching library %s: status %d", url, resp.StatusCode)
	}
	return l.readLimited(resp.Body, url)
}

func (l *Loader) readLimited(r io.Reader, name string) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, l.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("reading library %s: %w", name, err)
	}
	if int64(len(data)) > l.maxBytes {
		return "", fmt.Errorf("%w: %s exceeds %d KB", ErrTooLarge, name, l.maxBytes/1024)
	}
	return string(data), nil
}
