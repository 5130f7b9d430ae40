package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wikidatago/pkg/cache"
	"wikidatago/pkg/request"
	"wikidatago/pkg/tracker"
	"wikidatago/pkg/wikidata"
)

type memCache struct {
	m map[string][]byte
}

func (c *memCache) GetCache(_ context.Context, key string) ([]byte, bool) {
	v, ok := c.m[key]
	return v, ok
}

func (c *memCache) SetCache(_ context.Context, key string, val []byte) error {
	c.m[key] = val
	return nil
}

func newTestClient(t *testing.T, c cache.Cacher, h http.HandlerFunc) *Client {
	t.Helper()
	svr := httptest.NewServer(h)
	t.Cleanup(svr.Close)

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := request.New(c, tracker.New(), request.Options{
		BaseDelay: time.Millisecond,
		MaxDelay:  5 * time.Millisecond,
		MinGap:    -1,
		Logger:    quiet,
	})
	client := NewClient(r, quiet)
	client.APIEndpoint = svr.URL + "/w/api.php"
	client.EntityDataURL = svr.URL + "/wiki/Special:EntityData/"
	return client
}

func TestGetEntity(t *testing.T) {
	var hits int32
	mc := &memCache{m: map[string][]byte{}}
	client := newTestClient(t, mc, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		assert.Equal(t, "/wiki/Special:EntityData/Q42.json", r.URL.Path)
		fmt.Fprint(w, `{"entities":{"Q42":{"type":"item","id":"Q42","labels":{}}}}`)
	})

	raw, err := client.GetEntity(context.Background(), wikidata.QID(42))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"item","id":"Q42","labels":{}}`, string(raw))

	// Second call is served from cache.
	_, err = client.GetEntity(context.Background(), wikidata.QID(42))
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	assert.Contains(t, mc.m, "wd_entity_Q42")
}

func TestGetEntity_Redirect(t *testing.T) {
	client := newTestClient(t, cache.Noop{}, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"entities":{"Q2":{"type":"item","id":"Q2"}}}`)
	})
	raw, err := client.GetEntity(context.Background(), wikidata.QID(999))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"Q2"`)
}

func TestGetEntity_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    error
	}{
		{"404", func(w http.ResponseWriter, _ *http.Request) { http.NotFound(w, nil) }, ErrNotFound},
		{"missing stub", func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, `{"entities":{"Q1":{"id":"Q1","missing":""}}}`)
		}, ErrNotFound},
		{"not json", func(w http.ResponseWriter, _ *http.Request) { fmt.Fprint(w, `<html>`) }, ErrBadResponse},
		{"no entities", func(w http.ResponseWriter, _ *http.Request) { fmt.Fprint(w, `{"foo":1}`) }, ErrBadResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, cache.Noop{}, tt.handler)
			_, err := client.GetEntity(context.Background(), wikidata.QID(1))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestGetEntitiesBatch(t *testing.T) {
	var requests []string
	client := newTestClient(t, cache.Noop{}, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "wbgetentities", r.URL.Query().Get("action"))
		ids := strings.Split(r.URL.Query().Get("ids"), "|")
		requests = append(requests, r.URL.Query().Get("ids"))

		var parts []string
		for _, id := range ids {
			if id == "Q404" {
				parts = append(parts, `"Q404":{"id":"Q404","missing":""}`)
				continue
			}
			parts = append(parts, fmt.Sprintf(`%q:{"type":"item","id":%q}`, id, id))
		}
		fmt.Fprintf(w, `{"entities":{%s},"success":1}`, strings.Join(parts, ","))
	})
	client.BatchSize = 2

	ids := []wikidata.EntityID{wikidata.QID(3), wikidata.QID(1), wikidata.QID(404), wikidata.QID(2), wikidata.QID(1)}
	got, err := client.GetEntitiesBatch(context.Background(), ids)
	require.NoError(t, err)

	assert.Len(t, got, 3)
	assert.Contains(t, got, wikidata.QID(3))
	assert.NotContains(t, got, wikidata.QID(404))
	// Sorted, deduplicated, chunked.
	assert.Equal(t, []string{"Q1|Q2", "Q3|Q404"}, requests)
}

func TestGetEntitiesBatch_APIError(t *testing.T) {
	client := newTestClient(t, cache.Noop{}, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"error":{"code":"param-illegal","info":"bad ids"}}`)
	})
	_, err := client.GetEntitiesBatch(context.Background(), []wikidata.EntityID{wikidata.QID(1)})
	assert.ErrorIs(t, err, ErrBadResponse)
	assert.Contains(t, err.Error(), "param-illegal")

	got, err := client.GetEntitiesBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSearchEntities(t *testing.T) {
	client := newTestClient(t, cache.Noop{}, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "adams", r.URL.Query().Get("search"))
		assert.Equal(t, "3", r.URL.Query().Get("limit"))
		fmt.Fprint(w, `{"search":[{"id":"Q42","label":"Douglas Adams","description":"writer"},{"id":"bogus"}]}`)
	})
	hits, err := client.SearchEntities(context.Background(), "adams", "", 3)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, SearchResult{ID: wikidata.QID(42), Label: "Douglas Adams", Description: "writer"}, hits[0])
}
