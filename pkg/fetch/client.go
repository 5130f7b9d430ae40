// Package fetch retrieves raw entity documents from the Wikidata API.
// It only transports bytes; decoding is left to pkg/wikidata.
package fetch

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"wikidatago/pkg/request"
	"wikidatago/pkg/wikidata"
)

const (
	apiEndpoint   = "https://www.wikidata.org/w/api.php"
	entityDataURL = "https://www.wikidata.org/wiki/Special:EntityData/"

	// MaxBatchSize is the wbgetentities limit for anonymous clients.
	MaxBatchSize = 50
)

// Client fetches entity JSON through a request.Client, so responses are
// queued per provider, cached and tracked.
type Client struct {
	request       *request.Client
	APIEndpoint   string
	EntityDataURL string
	BatchSize     int
	Logger        *slog.Logger
}

// NewClient creates a new Wikidata client with the public endpoints.
func NewClient(r *request.Client, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		request:       r,
		APIEndpoint:   apiEndpoint,
		EntityDataURL: entityDataURL,
		BatchSize:     MaxBatchSize,
		Logger:        logger.With("component", "fetch"),
	}
}

// GetEntity downloads Special:EntityData/<id>.json and returns the entity
// object itself, unwrapped from the {"entities":{...}} envelope. A redirected
// id resolves to the target entity.
func (c *Client) GetEntity(ctx context.Context, id wikidata.EntityID) ([]byte, error) {
	u := strings.TrimSuffix(c.EntityDataURL, "/") + "/" + url.PathEscape(id.String()) + ".json"

	body, err := c.request.Get(ctx, u, "wd_entity_"+id.String())
	if err != nil {
		var se *request.StatusError
		if errors.As(err, &se) && se.Code == http.StatusNotFound {
			return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("fetch %s: %w", id, err)
	}

	entities, err := envelope(body)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", id, err)
	}

	var raw gjson.Result
	if r := entities.Get(gjson.Escape(id.String())); r.Exists() {
		raw = r
	} else {
		// Redirects come back keyed by the target id.
		entities.ForEach(func(_, v gjson.Result) bool {
			raw = v
			return false
		})
	}
	if !raw.Exists() || raw.Get("missing").Exists() {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return []byte(raw.Raw), nil
}

// GetEntitiesBatch fetches many entities through wbgetentities, BatchSize ids
// per request. Missing entities are absent from the result map. Ids are
// sorted before chunking so repeated calls hit the same cache keys.
func (c *Client) GetEntitiesBatch(ctx context.Context, ids []wikidata.EntityID) (map[wikidata.EntityID][]byte, error) {
	result := make(map[wikidata.EntityID][]byte, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	sorted := make([]string, 0, len(ids))
	for _, id := range ids {
		sorted = append(sorted, id.String())
	}
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	batchSize := c.BatchSize
	if batchSize <= 0 || batchSize > MaxBatchSize {
		batchSize = MaxBatchSize
	}

	for chunk := range slices.Chunk(sorted, batchSize) {
		idStr := strings.Join(chunk, "|")

		// Create stable cache key
		hash := md5.Sum([]byte(idStr))
		cacheKey := "wd_batch_" + hex.EncodeToString(hash[:])

		u, err := url.Parse(c.APIEndpoint)
		if err != nil {
			return nil, fmt.Errorf("invalid api endpoint: %w", err)
		}
		q := u.Query()
		q.Add("action", "wbgetentities")
		q.Add("format", "json")
		q.Add("ids", idStr)
		u.RawQuery = q.Encode()

		body, err := c.request.Get(ctx, u.String(), cacheKey)
		if err != nil {
			return nil, fmt.Errorf("fetch batch of %d: %w", len(chunk), err)
		}

		entities, err := envelope(body)
		if err != nil {
			return nil, err
		}

		entities.ForEach(func(k, v gjson.Result) bool {
			if v.Get("missing").Exists() {
				c.Logger.Debug("Entity missing", "id", k.Str)
				return true
			}
			id, perr := wikidata.ParseEntityID(k.Str)
			if perr != nil {
				c.Logger.Warn("Skipping entity with unparseable key", "key", k.Str, "error", perr)
				return true
			}
			result[id] = []byte(v.Raw)
			return true
		})
	}

	return result, nil
}

// SearchResult is one hit of wbsearchentities.
type SearchResult struct {
	ID          wikidata.EntityID
	Label       string
	Description string
}

// SearchEntities searches for items in Wikidata by name/label.
func (c *Client) SearchEntities(ctx context.Context, query, lang string, limit int) ([]SearchResult, error) {
	if lang == "" {
		lang = "en"
	}
	u, err := url.Parse(c.APIEndpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid api endpoint: %w", err)
	}
	q := u.Query()
	q.Add("action", "wbsearchentities")
	q.Add("search", query)
	q.Add("language", lang)
	q.Add("format", "json")
	q.Add("type", "item")
	q.Add("limit", strconv.Itoa(max(limit, 1)))
	u.RawQuery = q.Encode()

	body, err := c.request.Get(ctx, u.String(), "")
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("search: %w: invalid json", ErrBadResponse)
	}

	var out []SearchResult
	for _, hit := range gjson.GetBytes(body, "search").Array() {
		id, err := wikidata.ParseEntityID(hit.Get("id").Str)
		if err != nil {
			continue
		}
		out = append(out, SearchResult{
			ID:          id,
			Label:       hit.Get("label").Str,
			Description: hit.Get("description").Str,
		})
	}
	return out, nil
}

// envelope validates an API body and returns its "entities" object.
func envelope(body []byte) (gjson.Result, error) {
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("%w: invalid json", ErrBadResponse)
	}
	if apiErr := gjson.GetBytes(body, "error"); apiErr.Exists() {
		if apiErr.Get("code").Str == "no-such-entity" {
			return gjson.Result{}, ErrNotFound
		}
		return gjson.Result{}, fmt.Errorf("%w: %s: %s", ErrBadResponse, apiErr.Get("code").Str, apiErr.Get("info").Str)
	}
	entities := gjson.GetBytes(body, "entities")
	if !entities.IsObject() {
		return gjson.Result{}, fmt.Errorf("%w: no entities object", ErrBadResponse)
	}
	return entities, nil
}
