package seed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todo-tracker/model"
)

func TestNewPicksFetcherBySource(t *testing.T) {
	assert.Nil(t, New("  ", time.Second))
	assert.IsType(t, &FileFetcher{}, New("data/todos.json", time.Second))

	f := New("https://example.com/todos.json", 3*time.Second)
	require.IsType(t, &HTTPFetcher{}, f)
	assert.Equal(t, 3*time.Second, f.(*HTTPFetcher).Client.Timeout)
}

func TestFileFetcherDecodesTaskLikeRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "todos.json")
	doc := `[{"text":"Seed task"},{"id":3,"text":"Dated","date":"2024-01-02","status":"done"}]`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	records, err := (&FileFetcher{Path: path}).FetchSeed(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "Seed task", records[0].Text)
	assert.Zero(t, records[0].ID)
	assert.Empty(t, records[0].Status)
	assert.Equal(t, model.NewDate(2024, 1, 2), records[1].Date)
	assert.Equal(t, model.StatusDone, records[1].Status)
}

func TestFileFetcherErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := (&FileFetcher{Path: filepath.Join(dir, "missing.json")}).FetchSeed(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)

	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte(`[]`), 0o644))
	_, err = (&FileFetcher{Path: empty}).FetchSeed(context.Background())
	assert.ErrorIs(t, err, ErrEmptySeed)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"text":"not an array"}`), 0o644))
	_, err = (&FileFetcher{Path: bad}).FetchSeed(context.Background())
	assert.Error(t, err)
}

func TestHTTPFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/data/todos.json":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[{"text":"Seed task"}]`))
		case "/garbage":
			_, _ = w.Write([]byte(`<html>`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	records, err := (&HTTPFetcher{URL: srv.URL + "/data/todos.json"}).FetchSeed(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Seed task", records[0].Text)

	_, err = (&HTTPFetcher{URL: srv.URL + "/missing"}).FetchSeed(context.Background())
	assert.ErrorIs(t, err, ErrBadStatus)

	_, err = (&HTTPFetcher{URL: srv.URL + "/garbage"}).FetchSeed(context.Background())
	assert.Error(t, err)
}

func TestHTTPFetcherHonoursContext(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := (&HTTPFetcher{URL: srv.URL}).FetchSeed(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
