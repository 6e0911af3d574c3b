// Package client talks to a shticell server on behalf of one user.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ryanbastic/go-shticell/internal/cell"
	"github.com/ryanbastic/go-shticell/internal/permission"
	"github.com/ryanbastic/go-shticell/internal/sheet"
	"github.com/ryanbastic/go-shticell/internal/sheeterr"
	"github.com/ryanbastic/go-shticell/internal/version"
	"github.com/ryanbastic/go-shticell/internal/wire"
)

// errServer marks a 5xx answer, which is worth retrying for reads.
var errServer = errors.New("server error")

// Client is an HTTP client for one user. Reads are retried with
// exponential backoff on network and 5xx errors; writes are sent once.
type Client struct {
	baseURL    string
	username   string
	httpClient *http.Client
	maxRetries int
	baseDelay  time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetries sets how often reads are retried and the first backoff delay.
func WithRetries(maxRetries int, baseDelay time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.baseDelay = baseDelay
	}
}

// New returns a client acting as username against baseURL.
func New(baseURL, username string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		username:   username,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		maxRetries: 2,
		baseDelay:  100 * time.Millisecond,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Username is the user this client acts as.
func (c *Client) Username() string { return c.username }

// Login opens the session of the client's user.
func (c *Client) Login(ctx context.Context) error {
	return c.send(ctx, http.MethodPost, "/v1/sessions", wire.LoginBody{Username: c.username}, nil)
}

// Logout closes the session of the client's user.
func (c *Client) Logout(ctx context.Context) error {
	return c.send(ctx, http.MethodDelete, "/v1/sessions/"+url.PathEscape(c.username), nil, nil)
}

// Users lists the logged-in users.
func (c *Client) Users(ctx context.Context) ([]wire.SessionResponse, error) {
	var out []wire.SessionResponse
	err := c.get(ctx, "/v1/users", &out)
	return out, err
}

// Upload creates a sheet owned by the client's user.
func (c *Client) Upload(ctx context.Context, def sheet.Definition) (wire.SheetInfo, error) {
	body := wire.UploadSheetBody{Name: def.Name, Rows: def.Rows, Cols: def.Cols, Cells: def.Cells, Ranges: def.Ranges}
	var out wire.SheetInfo
	err := c.send(ctx, http.MethodPost, "/v1/sheets", body, &out)
	return out, err
}

// ListSheets lists every sheet with the user's level on it.
func (c *Client) ListSheets(ctx context.Context) ([]wire.SheetInfo, error) {
	var out []wire.SheetInfo
	err := c.get(ctx, "/v1/sheets", &out)
	return out, err
}

// Sheet fetches version v of a sheet; v <= 0 fetches the latest.
func (c *Client) Sheet(ctx context.Context, id uuid.UUID, v int64) (*sheet.Snapshot, error) {
	path := sheetPath(id, "")
	if v > 0 {
		path += "?version=" + strconv.FormatInt(v, 10)
	}
	var out sheet.Snapshot
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Version returns the latest version number of a sheet.
func (c *Client) Version(ctx context.Context, id uuid.UUID) (int64, error) {
	var out wire.VersionResponse
	err := c.get(ctx, sheetPath(id, "/version"), &out)
	return out.Version, err
}

// Versions lists the retained versions of a sheet.
func (c *Client) Versions(ctx context.Context, id uuid.UUID) ([]version.Summary, error) {
	var out []version.Summary
	err := c.get(ctx, sheetPath(id, "/versions"), &out)
	return out, err
}

// Changes diffs version since against the latest.
func (c *Client) Changes(ctx context.Context, id uuid.UUID, since int64) (version.Changes, error) {
	var out version.Changes
	err := c.get(ctx, sheetPath(id, "/changes?since="+strconv.FormatInt(since, 10)), &out)
	return out, err
}

// Cell fetches one cell of the latest version.
func (c *Client) Cell(ctx context.Context, id uuid.UUID, cellID string) (cell.Cell, error) {
	var out cell.Cell
	err := c.get(ctx, sheetPath(id, "/cells/"+url.PathEscape(cellID)), &out)
	return out, err
}

// SetCell stores text in a cell.
func (c *Client) SetCell(ctx context.Context, id uuid.UUID, cellID, text string) (wire.EditResponse, error) {
	var out wire.EditResponse
	err := c.send(ctx, http.MethodPut, sheetPath(id, "/cells/"+url.PathEscape(cellID)), wire.SetCellBody{Text: text}, &out)
	return out, err
}

// Preview evaluates the sheet with cellID holding text, without committing.
func (c *Client) Preview(ctx context.Context, id uuid.UUID, cellID, text string) (*sheet.Snapshot, error) {
	var out sheet.Snapshot
	if err := c.send(ctx, http.MethodPost, sheetPath(id, "/preview"), wire.PreviewBody{CellID: cellID, Text: text}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AddRange defines a named range such as A1..B3.
func (c *Client) AddRange(ctx context.Context, id uuid.UUID, name, area string) (wire.EditResponse, error) {
	var out wire.EditResponse
	err := c.send(ctx, http.MethodPost, sheetPath(id, "/ranges"), wire.AddRangeBody{Name: name, Range: area}, &out)
	return out, err
}

// DeleteRange removes a named range no formula uses.
func (c *Client) DeleteRange(ctx context.Context, id uuid.UUID, name string) (wire.EditResponse, error) {
	var out wire.EditResponse
	err := c.send(ctx, http.MethodDelete, sheetPath(id, "/ranges/"+url.PathEscape(name)), nil, &out)
	return out, err
}

// Sort returns the rows of area ordered by columns.
func (c *Client) Sort(ctx context.Context, id uuid.UUID, area string, columns []string) (sheet.View, error) {
	var out sheet.View
	err := c.send(ctx, http.MethodPost, sheetPath(id, "/sort"), wire.SortBody{Range: area, Columns: columns}, &out)
	return out, err
}

// Filter returns the rows of area whose column shows one of values.
func (c *Client) Filter(ctx context.Context, id uuid.UUID, area, column string, values []string) (sheet.View, error) {
	var out sheet.View
	err := c.send(ctx, http.MethodPost, sheetPath(id, "/filter"), wire.FilterBody{Range: area, Column: column, Values: values}, &out)
	return out, err
}

// Permissions returns the access table and request history of a sheet.
func (c *Client) Permissions(ctx context.Context, id uuid.UUID) (wire.Permissions, error) {
	var out wire.Permissions
	err := c.get(ctx, sheetPath(id, "/permissions"), &out)
	return out, err
}

// RequestPermission asks the owner for level.
func (c *Client) RequestPermission(ctx context.Context, id uuid.UUID, level permission.Level) (permission.Request, error) {
	var out permission.Request
	err := c.send(ctx, http.MethodPost, sheetPath(id, "/permissions/requests"), wire.RequestPermissionBody{Level: string(level)}, &out)
	return out, err
}

// DecidePermission approves or denies target's pending request.
func (c *Client) DecidePermission(ctx context.Context, id uuid.UUID, target string, approve bool) (permission.Request, error) {
	var out permission.Request
	body := wire.DecidePermissionBody{Username: target, Approve: approve}
	err := c.send(ctx, http.MethodPost, sheetPath(id, "/permissions/decisions"), body, &out)
	return out, err
}

// SetLevel sets target's level directly; permission.None revokes access.
func (c *Client) SetLevel(ctx context.Context, id uuid.UUID, target string, level permission.Level) error {
	body := wire.SetLevelBody{Level: string(level)}
	return c.send(ctx, http.MethodPut, sheetPath(id, "/permissions/"+url.PathEscape(target)), body, nil)
}

// Functions lists the functions formulas can call.
func (c *Client) Functions(ctx context.Context) ([]wire.FunctionInfo, error) {
	var out []wire.FunctionInfo
	err := c.get(ctx, "/v1/functions", &out)
	return out, err
}

func sheetPath(id uuid.UUID, suffix string) string {
	return "/v1/sheets/" + id.String() + suffix
}

// get performs an idempotent read with retries.
func (c *Client) get(ctx context.Context, path string, out any) error {
	var lastErr error
	for attempt := range c.maxRetries + 1 {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := c.do(ctx, http.MethodGet, path, nil, out)
		if err == nil {
			return nil
		}
		var se *sheeterr.Error
		if errors.As(err, &se) || !retryable(err) {
			return err
		}
		lastErr = err

		if attempt < c.maxRetries {
			delay := c.baseDelay * time.Duration(math.Pow(2, float64(attempt)))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return fmt.Errorf("GET %s failed after %d attempts: %w", path, c.maxRetries+1, lastErr)
}

func (c *Client) send(ctx context.Context, method, path string, body, out any) error {
	var data []byte
	if body != nil {
		var err error
		if data, err = json.Marshal(body); err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}
	return c.do(ctx, method, path, data, out)
}

func (c *Client) do(ctx context.Context, method, path string, data []byte, out any) error {
	var body io.Reader
	if data != nil {
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(wire.UserHeader, c.username)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return decodeError(resp.StatusCode, raw)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

// problem is the error document the server answers with.
type problem struct {
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail"`
	Errors []struct {
		Message  string `json:"message"`
		Location string `json:"location"`
		Value    any    `json:"value"`
	} `json:"errors"`
}

// decodeError turns an error answer back into a *sheeterr.Error when the
// server named a kind, so callers can use errors.Is on client errors too.
func decodeError(status int, raw []byte) error {
	var p problem
	if err := json.Unmarshal(raw, &p); err == nil {
		for _, d := range p.Errors {
			name, _ := d.Value.(string)
			if d.Location != wire.KindLocation || name == "" {
				continue
			}
			if kind := sheeterr.ParseKind(name); kind != sheeterr.KindUnknown {
				return &sheeterr.Error{Kind: kind, Message: d.Message}
			}
		}
		if p.Detail != "" {
			raw = []byte(p.Detail)
		}
	}
	err := fmt.Errorf("unexpected status %d: %s", status, strings.TrimSpace(string(raw)))
	if status >= 500 {
		return fmt.Errorf("%w: %w", errServer, err)
	}
	return err
}

func retryable(err error) bool {
	if errors.Is(err, errServer) {
		return true
	}
	var ue *url.Error
	return errors.As(err, &ue) && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
