package target

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/sheetbridge/sheetbridge/engine/core"
	"github.com/sheetbridge/sheetbridge/pkg/config"
	"github.com/sheetbridge/sheetbridge/pkg/logger"
	"github.com/sheetbridge/sheetbridge/pkg/retry"
)

const defaultBaseURL = "https://api.smartsheet.com/2.0"

// API is the typed operation surface consumed by the resiliency layer and
// the orchestrator. Implementations must map HTTP failures to the core
// error taxonomy before returning.
type API interface {
	ListWorkspaces(ctx context.Context) ([]Workspace, error)
	CreateWorkspace(ctx context.Context, name string) (Workspace, error)
	GetWorkspaceChildren(ctx context.Context, workspaceID int64) ([]WorkspaceChild, error)
	GetSheet(ctx context.Context, sheetID int64) (*Sheet, error)
	CreateSheetInWorkspace(ctx context.Context, workspaceID int64, spec SheetSpec) (*Sheet, error)
	RenameSheet(ctx context.Context, sheetID int64, newName string) error
	DeleteRows(ctx context.Context, sheetID int64, rowIDs []int64) error
	AddColumns(ctx context.Context, sheetID int64, columns []Column) ([]Column, error)
	UpdateColumn(ctx context.Context, sheetID int64, column Column) (Column, error)
	AddRows(ctx context.Context, sheetID int64, rows []Row) ([]Row, error)
	UpdateRows(ctx context.Context, sheetID int64, rows []Row) ([]Row, error)
	CopySheetToWorkspace(ctx context.Context, sheetID, workspaceID int64, newName string) (*Sheet, error)
}

// Client implements API against the Smartsheet REST surface.
type Client struct {
	http     *resty.Client
	limiter  *rate.Limiter
	retryCfg retry.Config
	dryRun   bool

	// dryRunSeq hands out synthetic IDs when writes are suppressed.
	dryRunSeq atomic.Int64
}

// Option customizes client construction.
type Option func(*Client)

// WithBaseURL overrides the API endpoint, used by tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.http.SetBaseURL(baseURL)
	}
}

// WithRateLimit overrides the outbound requests-per-minute bucket.
func WithRateLimit(perMinute int) Option {
	return func(c *Client) {
		c.limiter = newMinuteLimiter(perMinute)
	}
}

func newMinuteLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		perMinute = 300
	}
	return rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), perMinute/10+1)
}

// NewClient builds a Smartsheet client from configuration.
func NewClient(cfg *config.Config, opts ...Option) *Client {
	httpClient := resty.New().
		SetBaseURL(defaultBaseURL).
		SetTimeout(cfg.Runtime.RequestTimeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetAuthToken(cfg.Smartsheet.APIToken.Value())

	c := &Client{
		http:     httpClient,
		limiter:  newMinuteLimiter(300),
		retryCfg: retry.NewConfig(cfg.Runtime.MaxRetries, cfg.Runtime.RetryDelay),
		dryRun:   cfg.Runtime.DryRun,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// resultEnvelope is the Smartsheet mutation response wrapper.
type resultEnvelope[T any] struct {
	ResultCode int    `json:"resultCode"`
	Message    string `json:"message"`
	Result     T      `json:"result"`
}

type listEnvelope[T any] struct {
	Data []T `json:"data"`
}

// apiError is the Smartsheet error payload.
type apiError struct {
	ErrorCode int    `json:"errorCode"`
	Message   string `json:"message"`
}

func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	return retry.Do(ctx, c.retryCfg, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		req := c.http.R().SetContext(ctx)
		if body != nil {
			req.SetBody(body)
		}
		if result != nil {
			req.SetResult(result)
		}
		var errBody apiError
		req.SetError(&errBody)

		resp, err := req.Execute(method, path)
		if err != nil {
			return core.NewConnectionError(fmt.Sprintf("%s %s failed", method, path), err)
		}
		if resp.IsError() {
			return c.mapStatus(method, path, resp, &errBody)
		}
		logger.FromContext(ctx).Debug("smartsheet request",
			"method", method, "path", path, "status", resp.StatusCode())
		return nil
	})
}

// mapStatus converts an HTTP failure to the error taxonomy.
func (c *Client) mapStatus(method, path string, resp *resty.Response, body *apiError) error {
	status := resp.StatusCode()
	detail := body.Message
	if detail == "" {
		detail = resp.Status()
	}
	msg := fmt.Sprintf("%s %s: %s", method, path, detail)
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
		return core.NewRateLimitError(msg, parseRetryAfter(resp.Header().Get("Retry-After")), nil)
	default:
		err := core.NewConnectionError(msg, nil)
		err.StatusCode = status
		return err
	}
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(header)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := time.Parse(time.RFC1123, header); err == nil {
		if wait := time.Until(at); wait > 0 {
			return wait
		}
	}
	return 0
}

func (c *Client) nextDryRunID() int64 {
	return 1_000_000_000 + c.dryRunSeq.Add(1)
}

// -----------------------------------------------------------------------------
// Workspaces
// -----------------------------------------------------------------------------

func (c *Client) ListWorkspaces(ctx context.Context) ([]Workspace, error) {
	var out listEnvelope[Workspace]
	if err := c.do(ctx, resty.MethodGet, "/workspaces?includeAll=true", nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (c *Client) CreateWorkspace(ctx context.Context, name string) (Workspace, error) {
	if c.dryRun {
		logger.FromContext(ctx).Info("dry-run: would create workspace", "name", name)
		return Workspace{ID: c.nextDryRunID(), Name: name}, nil
	}
	var out resultEnvelope[Workspace]
	err := c.do(ctx, resty.MethodPost, "/workspaces", map[string]string{"name": name}, &out)
	if err != nil {
		return Workspace{}, err
	}
	return out.Result, nil
}

// workspaceDetail is the GET /workspaces/{id} payload: sheets and folders
// arrive as separate arrays, flattened here into WorkspaceChild entries.
type workspaceDetail struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Sheets  []struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"sheets"`
	Folders []struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"folders"`
	Reports []struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"reports"`
}

func (c *Client) GetWorkspaceChildren(ctx context.Context, workspaceID int64) ([]WorkspaceChild, error) {
	var out workspaceDetail
	path := fmt.Sprintf("/workspaces/%d?loadAll=true", workspaceID)
	if err := c.do(ctx, resty.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	children := make([]WorkspaceChild, 0, len(out.Sheets)+len(out.Folders)+len(out.Reports))
	for _, s := range out.Sheets {
		children = append(children, WorkspaceChild{ID: s.ID, Name: s.Name, Kind: ChildSheet})
	}
	for _, f := range out.Folders {
		children = append(children, WorkspaceChild{ID: f.ID, Name: f.Name, Kind: ChildFolder})
	}
	for _, r := range out.Reports {
		children = append(children, WorkspaceChild{ID: r.ID, Name: r.Name, Kind: ChildReport})
	}
	return children, nil
}

// -----------------------------------------------------------------------------
// Sheets
// -----------------------------------------------------------------------------

func (c *Client) GetSheet(ctx context.Context, sheetID int64) (*Sheet, error) {
	var out Sheet
	if err := c.do(ctx, resty.MethodGet, fmt.Sprintf("/sheets/%d", sheetID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateSheetInWorkspace(ctx context.Context, workspaceID int64, spec SheetSpec) (*Sheet, error) {
	if c.dryRun {
		logger.FromContext(ctx).Info("dry-run: would create sheet", "name", spec.Name)
		return c.syntheticSheet(spec), nil
	}
	var out resultEnvelope[Sheet]
	path := fmt.Sprintf("/workspaces/%d/sheets", workspaceID)
	if err := c.do(ctx, resty.MethodPost, path, spec, &out); err != nil {
		return nil, err
	}
	return &out.Result, nil
}

func (c *Client) RenameSheet(ctx context.Context, sheetID int64, newName string) error {
	if c.dryRun {
		logger.FromContext(ctx).Info("dry-run: would rename sheet", "sheet_id", sheetID, "name", newName)
		return nil
	}
	return c.do(ctx, resty.MethodPut, fmt.Sprintf("/sheets/%d", sheetID),
		map[string]string{"name": newName}, nil)
}

func (c *Client) DeleteRows(ctx context.Context, sheetID int64, rowIDs []int64) error {
	if len(rowIDs) == 0 {
		return nil
	}
	if c.dryRun {
		logger.FromContext(ctx).Info("dry-run: would delete rows", "sheet_id", sheetID, "count", len(rowIDs))
		return nil
	}
	ids := make([]string, len(rowIDs))
	for i, id := range rowIDs {
		ids[i] = strconv.FormatInt(id, 10)
	}
	path := fmt.Sprintf("/sheets/%d/rows?ids=%s&ignoreRowsNotFound=true", sheetID, strings.Join(ids, ","))
	return c.do(ctx, resty.MethodDelete, path, nil, nil)
}

func (c *Client) CopySheetToWorkspace(ctx context.Context, sheetID, workspaceID int64, newName string) (*Sheet, error) {
	if c.dryRun {
		logger.FromContext(ctx).Info("dry-run: would copy sheet", "sheet_id", sheetID, "new_name", newName)
		return &Sheet{ID: c.nextDryRunID(), Name: newName}, nil
	}
	body := map[string]any{
		"destinationType": "workspace",
		"destinationId":   workspaceID,
		"newName":         newName,
	}
	var out resultEnvelope[Sheet]
	path := fmt.Sprintf("/sheets/%d/copy?include=data,rules", sheetID)
	if err := c.do(ctx, resty.MethodPost, path, body, &out); err != nil {
		return nil, err
	}
	return &out.Result, nil
}

// -----------------------------------------------------------------------------
// Columns
// -----------------------------------------------------------------------------

// AddColumns issues one request for the whole batch. Issuing per-column
// requests where a batch is possible is a defect.
func (c *Client) AddColumns(ctx context.Context, sheetID int64, columns []Column) ([]Column, error) {
	if len(columns) == 0 {
		return nil, nil
	}
	if c.dryRun {
		logger.FromContext(ctx).Info("dry-run: would add columns", "sheet_id", sheetID, "count", len(columns))
		out := make([]Column, len(columns))
		for i, col := range columns {
			col.ID = c.nextDryRunID()
			out[i] = col
		}
		return out, nil
	}
	var out resultEnvelope[[]Column]
	path := fmt.Sprintf("/sheets/%d/columns", sheetID)
	if err := c.do(ctx, resty.MethodPost, path, columns, &out); err != nil {
		return nil, err
	}
	return out.Result, nil
}

func (c *Client) UpdateColumn(ctx context.Context, sheetID int64, column Column) (Column, error) {
	if column.ID == 0 {
		return Column{}, core.NewValidationError("column update requires a column id")
	}
	if c.dryRun {
		logger.FromContext(ctx).Info("dry-run: would update column", "sheet_id", sheetID, "column", column.Title)
		return column, nil
	}
	var out resultEnvelope[Column]
	path := fmt.Sprintf("/sheets/%d/columns/%d", sheetID, column.ID)
	if err := c.do(ctx, resty.MethodPut, path, column, &out); err != nil {
		return Column{}, err
	}
	return out.Result, nil
}

// -----------------------------------------------------------------------------
// Rows
// -----------------------------------------------------------------------------

// AddRows issues one request for the whole batch and returns rows with their
// assigned IDs in input order.
func (c *Client) AddRows(ctx context.Context, sheetID int64, rows []Row) ([]Row, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	if c.dryRun {
		logger.FromContext(ctx).Info("dry-run: would add rows", "sheet_id", sheetID, "count", len(rows))
		out := make([]Row, len(rows))
		for i, row := range rows {
			row.ID = c.nextDryRunID()
			out[i] = row
		}
		return out, nil
	}
	var out resultEnvelope[[]Row]
	path := fmt.Sprintf("/sheets/%d/rows", sheetID)
	if err := c.do(ctx, resty.MethodPost, path, rows, &out); err != nil {
		return nil, err
	}
	return out.Result, nil
}

func (c *Client) UpdateRows(ctx context.Context, sheetID int64, rows []Row) ([]Row, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	if c.dryRun {
		logger.FromContext(ctx).Info("dry-run: would update rows", "sheet_id", sheetID, "count", len(rows))
		return rows, nil
	}
	var out resultEnvelope[[]Row]
	path := fmt.Sprintf("/sheets/%d/rows", sheetID)
	if err := c.do(ctx, resty.MethodPut, path, rows, &out); err != nil {
		return nil, err
	}
	return out.Result, nil
}

func (c *Client) syntheticSheet(spec SheetSpec) *Sheet {
	sheet := &Sheet{ID: c.nextDryRunID(), Name: spec.Name}
	sheet.Columns = make([]Column, len(spec.Columns))
	for i, col := range spec.Columns {
		col.ID = c.nextDryRunID()
		sheet.Columns[i] = col
	}
	return sheet
}
