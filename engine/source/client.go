package source

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/sheetbridge/sheetbridge/engine/core"
	"github.com/sheetbridge/sheetbridge/pkg/config"
	"github.com/sheetbridge/sheetbridge/pkg/logger"
	"github.com/sheetbridge/sheetbridge/pkg/retry"
)

// TokenProvider supplies a valid bearer token for the source surface.
// engine/auth implements it.
type TokenProvider interface {
	AccessToken(ctx context.Context) (string, error)
}

// Client reads the ProjectData OData feeds. All listings return lazy
// iterators that follow every next-link; every page request passes through
// the shared token bucket and the retry engine.
type Client struct {
	http     *resty.Client
	tokens   TokenProvider
	limiter  *rate.Limiter
	retryCfg retry.Config
	baseURL  string
}

// Option customizes client construction.
type Option func(*Client)

// WithBaseURL overrides the feed root, used by tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// NewClient builds a source client from configuration. The default feed
// root is <PROJECT_ONLINE_URL>/_api/ProjectData.
func NewClient(cfg *config.Config, tokens TokenProvider, opts ...Option) *Client {
	perMinute := cfg.Source.RateLimitPerMin
	if perMinute <= 0 {
		perMinute = 300
	}
	c := &Client{
		http:     resty.New().SetTimeout(cfg.Runtime.RequestTimeout).SetHeader("Accept", "application/json"),
		tokens:   tokens,
		limiter:  rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), perMinute/10+1),
		retryCfg: retry.NewConfig(cfg.Runtime.MaxRetries, cfg.Runtime.RetryDelay),
		baseURL:  strings.TrimRight(cfg.Source.ProjectOnlineURL, "/") + "/_api/ProjectData",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// getPage fetches one feed page. Next-links are absolute; initial paths are
// resolved against the feed root.
func (c *Client) getPage(ctx context.Context, url string) (*page, error) {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = c.baseURL + url
	}
	var pg *page
	err := retry.Do(ctx, c.retryCfg, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		token, err := c.tokens.AccessToken(ctx)
		if err != nil {
			return err
		}
		resp, err := c.http.R().
			SetContext(ctx).
			SetAuthToken(token).
			Get(url)
		if err != nil {
			return core.NewConnectionError(fmt.Sprintf("GET %s failed", url), err)
		}
		if resp.IsError() {
			return mapODataStatus(url, resp)
		}
		var decoded page
		if err := json.Unmarshal(resp.Body(), &decoded); err != nil {
			return core.NewDataError(fmt.Sprintf("malformed feed page from %s", url), err)
		}
		pg = &decoded
		logger.FromContext(ctx).Debug("source page fetched",
			"url", url, "entities", len(decoded.Value), "has_next", decoded.next() != "")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pg, nil
}

func mapODataStatus(url string, resp *resty.Response) error {
	status := resp.StatusCode()
	msg := fmt.Sprintf("GET %s: %s", url, resp.Status())
	switch status {
	case 401:
		err := core.NewAuthError(core.AuthRefresh, msg, nil)
		err.StatusCode = status
		return err
	case 403:
		err := core.NewPermissionError(msg)
		err.StatusCode = status
		return err
	case 429:
		retryAfter := time.Duration(0)
		if secs, convErr := strconv.Atoi(strings.TrimSpace(resp.Header().Get("Retry-After"))); convErr == nil && secs >= 0 {
			retryAfter = time.Duration(secs) * time.Second
		}
		return core.NewRateLimitError(msg, retryAfter, nil)
	default:
		err := core.NewConnectionError(msg, nil)
		err.StatusCode = status
		return err
	}
}

// -----------------------------------------------------------------------------
// Listings
// -----------------------------------------------------------------------------

func (c *Client) ListProjects(query Query) *Iterator[Project] {
	return newIterator[Project]("/Projects"+query.encode(), c.getPage)
}

func (c *Client) ListTasks(projectID string, query Query) *Iterator[Task] {
	return newIterator[Task](guidPath("Tasks", projectID)+query.encode(), c.getPage)
}

// ListResources lists the project's resources, or the whole tenant pool
// when projectID is empty.
func (c *Client) ListResources(projectID string, query Query) *Iterator[Resource] {
	if projectID == "" {
		return newIterator[Resource]("/Resources"+query.encode(), c.getPage)
	}
	return newIterator[Resource](guidPath("ProjectResources", projectID)+query.encode(), c.getPage)
}

func (c *Client) ListAssignments(projectID string) *Iterator[Assignment] {
	return newIterator[Assignment](guidPath("Assignments", projectID), c.getPage)
}

// GetProject fetches a single project by GUID. A singleton GET returns the
// entity at the top level rather than under a value array.
func (c *Client) GetProject(ctx context.Context, projectID string) (*Project, error) {
	raw, err := c.getRaw(ctx, fmt.Sprintf("/Projects(guid'%s')", projectID))
	if err != nil {
		return nil, err
	}
	var project Project
	if err := decodeEntity(raw, &project); err != nil {
		return nil, err
	}
	if project.ID == "" {
		return nil, core.NewDataError(fmt.Sprintf("project %s not found", projectID), nil)
	}
	return &project, nil
}

func (c *Client) getRaw(ctx context.Context, url string) (json.RawMessage, error) {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = c.baseURL + url
	}
	var raw json.RawMessage
	err := retry.Do(ctx, c.retryCfg, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		token, err := c.tokens.AccessToken(ctx)
		if err != nil {
			return err
		}
		resp, err := c.http.R().SetContext(ctx).SetAuthToken(token).Get(url)
		if err != nil {
			return core.NewConnectionError(fmt.Sprintf("GET %s failed", url), err)
		}
		if resp.IsError() {
			return mapODataStatus(url, resp)
		}
		raw = append(raw[:0], resp.Body()...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// CustomFieldSchema fetches all custom-field metadata grouped by the entity
// kind the field applies to.
func (c *Client) CustomFieldSchema(ctx context.Context) (map[core.EntityKind][]CustomField, error) {
	it := newIterator[CustomField]("/CustomFields"+Query{Expand: "LookupEntries"}.encode(), c.getPage)
	fields, err := Collect(ctx, it)
	if err != nil {
		return nil, err
	}
	schema := make(map[core.EntityKind][]CustomField)
	for _, field := range fields {
		kind := core.EntityKind(field.EntityKind)
		switch kind {
		case core.EntityProject, core.EntityTask, core.EntityResource:
			schema[kind] = append(schema[kind], field)
		default:
			logger.FromContext(ctx).Debug("skipping custom field for unsupported entity",
				"field", field.InternalName, "entity", field.EntityKind)
		}
	}
	return schema, nil
}
