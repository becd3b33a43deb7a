// Package seed loads the one-time starter task list from a static JSON
// document, either on disk or over HTTP.
package seed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"todo-tracker/model"
)

// DefaultSource is the document read when nothing else is configured.
const DefaultSource = "data/todos.json"

// maxSeedBytes bounds how much of a seed document is read.
const maxSeedBytes = 1 << 20

var (
	ErrEmptySeed = errors.New("seed document has no tasks")
	ErrBadStatus = errors.New("seed request failed")
)

// Fetcher is what New returns; both implementations satisfy app.SeedFetcher.
type Fetcher interface {
	FetchSeed(ctx context.Context) ([]model.Task, error)
}

// New picks an HTTPFetcher for http(s) URLs and a FileFetcher otherwise.
// An empty source returns nil (seeding disabled).
func New(source string, timeout time.Duration) Fetcher {
	source = strings.TrimSpace(source)
	switch {
	case source == "":
		return nil
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		return &HTTPFetcher{URL: source, Client: &http.Client{Timeout: timeout}}
	default:
		return &FileFetcher{Path: source}
	}
}

// FileFetcher reads the seed from a local file.
type FileFetcher struct {
	Path string
}

func (f *FileFetcher) FetchSeed(ctx context.Context) ([]model.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("open seed %s: %w", f.Path, err)
	}
	defer file.Close()
	return decode(io.LimitReader(file, maxSeedBytes))
}

// HTTPFetcher GETs the seed document. A nil Client uses http.DefaultClient.
type HTTPFetcher struct {
	URL    string
	Client *http.Client
}

func (f *HTTPFetcher) FetchSeed(ctx context.Context) ([]model.Task, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch seed %s: %w", f.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned %d", ErrBadStatus, f.URL, resp.StatusCode)
	}
	return decode(io.LimitReader(resp.Body, maxSeedBytes))
}

func decode(r io.Reader) ([]model.Task, error) {
	var records []model.Task
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrEmptySeed
	}
	return records, nil
}
