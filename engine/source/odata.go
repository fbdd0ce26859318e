package source

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sheetbridge/sheetbridge/engine/core"
)

// customPrefix marks enterprise custom-field properties on entity payloads.
const customPrefix = "Custom_"

// page is one OData response page. The next-link key varies across protocol
// versions; both spellings are honored.
type page struct {
	Value      []json.RawMessage `json:"value"`
	NextLink   string            `json:"@odata.nextLink"`
	NextLinkV3 string            `json:"odata.nextLink"`
}

func (p *page) next() string {
	if p.NextLink != "" {
		return p.NextLink
	}
	return p.NextLinkV3
}

// customFieldCarrier is implemented by entities that keep their
// Custom_<guid> payload properties.
type customFieldCarrier interface {
	setCustomValues(map[string]any)
}

// decodeEntity unmarshals an entity payload and, when the target carries
// custom values, harvests the Custom_ properties into it.
func decodeEntity[T any](raw json.RawMessage, item *T) error {
	if err := json.Unmarshal(raw, item); err != nil {
		return core.NewDataError("malformed entity payload", err)
	}
	carrier, ok := any(item).(customFieldCarrier)
	if !ok {
		return nil
	}
	var props map[string]any
	if err := json.Unmarshal(raw, &props); err != nil {
		return core.NewDataError("malformed entity payload", err)
	}
	var custom map[string]any
	for key, value := range props {
		if !strings.HasPrefix(key, customPrefix) || value == nil {
			continue
		}
		if custom == nil {
			custom = make(map[string]any)
		}
		custom[key] = value
	}
	if custom != nil {
		carrier.setCustomValues(custom)
	}
	return nil
}

// Iterator lazily walks an OData feed page by page, following every
// next-link until absent. It is finite and consume-once: pages are fetched
// on demand and never buffered beyond the current one.
type Iterator[T any] struct {
	fetch   func(ctx context.Context, url string) (*page, error)
	nextURL string
	buf     []json.RawMessage
	pos     int
	current T
	err     error
	done    bool
}

func newIterator[T any](startURL string, fetch func(ctx context.Context, url string) (*page, error)) *Iterator[T] {
	return &Iterator[T]{fetch: fetch, nextURL: startURL}
}

// Next advances to the next entity, fetching the next page when the current
// one is exhausted. It returns false at the end of the feed or on error.
func (it *Iterator[T]) Next(ctx context.Context) bool {
	if it.err != nil || it.done {
		return false
	}
	for it.pos >= len(it.buf) {
		if it.nextURL == "" {
			it.done = true
			return false
		}
		pg, err := it.fetch(ctx, it.nextURL)
		if err != nil {
			it.err = err
			return false
		}
		it.buf = pg.Value
		it.pos = 0
		it.nextURL = pg.next()
	}
	raw := it.buf[it.pos]
	it.pos++
	var item T
	if err := decodeEntity(raw, &item); err != nil {
		it.err = err
		return false
	}
	it.current = item
	return true
}

// Item returns the entity positioned by the last successful Next.
func (it *Iterator[T]) Item() T {
	return it.current
}

// Err returns the error that terminated iteration, if any.
func (it *Iterator[T]) Err() error {
	return it.err
}

// Collect drains the iterator. Extraction snapshots use it; loaders that
// can stream should iterate instead.
func Collect[T any](ctx context.Context, it *Iterator[T]) ([]T, error) {
	var items []T
	for it.Next(ctx) {
		items = append(items, it.Item())
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Query carries the optional OData system query options.
type Query struct {
	Filter string
	Select string
	Expand string
}

func (q Query) encode() string {
	var parts []string
	if q.Filter != "" {
		parts = append(parts, "$filter="+escapeQuery(q.Filter))
	}
	if q.Select != "" {
		parts = append(parts, "$select="+escapeQuery(q.Select))
	}
	if q.Expand != "" {
		parts = append(parts, "$expand="+escapeQuery(q.Expand))
	}
	if len(parts) == 0 {
		return ""
	}
	return "?" + strings.Join(parts, "&")
}

// escapeQuery percent-encodes the characters that break URL parsing while
// leaving OData operators readable.
func escapeQuery(s string) string {
	replacer := strings.NewReplacer(" ", "%20", "'", "%27", "\"", "%22")
	return replacer.Replace(s)
}

func guidPath(collection, projectID string) string {
	return fmt.Sprintf("/Projects(guid'%s')/%s", projectID, collection)
}
