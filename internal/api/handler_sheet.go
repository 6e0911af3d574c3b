package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/ryanbastic/go-shticell/internal/cell"
	"github.com/ryanbastic/go-shticell/internal/engine"
	"github.com/ryanbastic/go-shticell/internal/sheet"
	"github.com/ryanbastic/go-shticell/internal/version"
	"github.com/ryanbastic/go-shticell/internal/wire"
)

// --- Huma Input/Output types ---

type UploadSheetInput struct {
	User string `header:"X-Username" doc:"Caller"`
	Body wire.UploadSheetBody
}

type SheetInfoOutput struct {
	Body wire.SheetInfo
}

type ListSheetsInput struct {
	User string `header:"X-Username" doc:"Caller"`
}

type ListSheetsOutput struct {
	Body []wire.SheetInfo
}

type SheetPath struct {
	User    string `header:"X-Username" doc:"Caller"`
	SheetID string `path:"sheet_id" doc:"Sheet UUID"`
}

type GetSheetInput struct {
	SheetPath
	Version int64 `query:"version" doc:"Version to read; 0 reads the latest" minimum:"0"`
}

type SnapshotOutput struct {
	Body *sheet.Snapshot
}

type GetVersionInput struct {
	SheetPath
}

type GetVersionOutput struct {
	Body wire.VersionResponse
}

type ListVersionsInput struct {
	SheetPath
}

type ListVersionsOutput struct {
	Body []version.Summary
}

type ChangesInput struct {
	SheetPath
	Since int64 `query:"since" doc:"Version the caller already has" required:"true" minimum:"1"`
}

type ChangesOutput struct {
	Body version.Changes
}

type GetCellInput struct {
	SheetPath
	CellID string `path:"cell_id" doc:"Cell id such as A1"`
}

type GetCellOutput struct {
	Body cell.Cell
}

type SetCellInput struct {
	SheetPath
	CellID string `path:"cell_id" doc:"Cell id such as A1"`
	Body   wire.SetCellBody
}

type EditOutput struct {
	Body wire.EditResponse
}

type PreviewInput struct {
	SheetPath
	Body wire.PreviewBody
}

// --- Handler ---

type SheetHandler struct {
	engine *engine.Engine
	logger *slog.Logger
}

func NewSheetHandler(eng *engine.Engine, logger *slog.Logger) *SheetHandler {
	return &SheetHandler{engine: eng, logger: logger}
}

func registerSheetRoutes(api huma.API, h *SheetHandler) {
	huma.Register(api, huma.Operation{
		OperationID:   "upload-sheet",
		Method:        http.MethodPost,
		Path:          "/v1/sheets",
		Summary:       "Upload a sheet definition",
		Tags:          []string{"sheets"},
		DefaultStatus: http.StatusCreated,
	}, h.Upload)

	huma.Register(api, huma.Operation{
		OperationID: "list-sheets",
		Method:      http.MethodGet,
		Path:        "/v1/sheets",
		Summary:     "List sheets with the caller's permission",
		Tags:        []string{"sheets"},
	}, h.List)

	huma.Register(api, huma.Operation{
		OperationID: "get-sheet",
		Method:      http.MethodGet,
		Path:        "/v1/sheets/{sheet_id}",
		Summary:     "Get a sheet snapshot",
		Tags:        []string{"sheets"},
	}, h.Get)

	huma.Register(api, huma.Operation{
		OperationID: "get-sheet-version",
		Method:      http.MethodGet,
		Path:        "/v1/sheets/{sheet_id}/version",
		Summary:     "Get the latest version number",
		Tags:        []string{"sheets"},
	}, h.Version)

	huma.Register(api, huma.Operation{
		OperationID: "list-sheet-versions",
		Method:      http.MethodGet,
		Path:        "/v1/sheets/{sheet_id}/versions",
		Summary:     "List retained versions",
		Tags:        []string{"sheets"},
	}, h.Versions)

	huma.Register(api, huma.Operation{
		OperationID: "get-sheet-changes",
		Method:      http.MethodGet,
		Path:        "/v1/sheets/{sheet_id}/changes",
		Summary:     "Diff a version against the latest",
		Tags:        []string{"sheets"},
	}, h.Changes)

	huma.Register(api, huma.Operation{
		OperationID: "get-cell",
		Method:      http.MethodGet,
		Path:        "/v1/sheets/{sheet_id}/cells/{cell_id}",
		Summary:     "Get a cell of the latest version",
		Tags:        []string{"cells"},
	}, h.GetCell)

	huma.Register(api, huma.Operation{
		OperationID: "set-cell",
		Method:      http.MethodPut,
		Path:        "/v1/sheets/{sheet_id}/cells/{cell_id}",
		Summary:     "Set a cell's text",
		Tags:        []string{"cells"},
	}, h.SetCell)

	huma.Register(api, huma.Operation{
		OperationID: "preview-cell",
		Method:      http.MethodPost,
		Path:        "/v1/sheets/{sheet_id}/preview",
		Summary:     "Evaluate the sheet with a cell changed, without committing",
		Tags:        []string{"cells"},
	}, h.Preview)
}

func (h *SheetHandler) Upload(ctx context.Context, input *UploadSheetInput) (*SheetInfoOutput, error) {
	def := sheet.Definition{
		Name:   input.Body.Name,
		Rows:   input.Body.Rows,
		Cols:   input.Body.Cols,
		Cells:  input.Body.Cells,
		Ranges: input.Body.Ranges,
	}
	info, err := h.engine.Upload(input.User, def)
	if err != nil {
		return nil, engineError(h.logger, "upload", err)
	}
	return &SheetInfoOutput{Body: info}, nil
}

func (h *SheetHandler) List(ctx context.Context, input *ListSheetsInput) (*ListSheetsOutput, error) {
	sheets, err := h.engine.ListSheets(input.User)
	if err != nil {
		return nil, engineError(h.logger, "list sheets", err)
	}
	return &ListSheetsOutput{Body: sheets}, nil
}

func (h *SheetHandler) Get(ctx context.Context, input *GetSheetInput) (*SnapshotOutput, error) {
	id, err := parseSheetID(input.SheetID)
	if err != nil {
		return nil, err
	}
	snap, err := h.engine.Sheet(input.User, id, input.Version)
	if err != nil {
		return nil, engineError(h.logger, "get sheet", err)
	}
	return &SnapshotOutput{Body: snap}, nil
}

func (h *SheetHandler) Version(ctx context.Context, input *GetVersionInput) (*GetVersionOutput, error) {
	id, err := parseSheetID(input.SheetID)
	if err != nil {
		return nil, err
	}
	v, err := h.engine.Latest(input.User, id)
	if err != nil {
		return nil, engineError(h.logger, "get version", err)
	}
	return &GetVersionOutput{Body: wire.VersionResponse{Version: v}}, nil
}

func (h *SheetHandler) Versions(ctx context.Context, input *ListVersionsInput) (*ListVersionsOutput, error) {
	id, err := parseSheetID(input.SheetID)
	if err != nil {
		return nil, err
	}
	vs, err := h.engine.Versions(input.User, id)
	if err != nil {
		return nil, engineError(h.logger, "list versions", err)
	}
	return &ListVersionsOutput{Body: vs}, nil
}

func (h *SheetHandler) Changes(ctx context.Context, input *ChangesInput) (*ChangesOutput, error) {
	id, err := parseSheetID(input.SheetID)
	if err != nil {
		return nil, err
	}
	ch, err := h.engine.ChangesSince(input.User, id, input.Since)
	if err != nil {
		return nil, engineError(h.logger, "get changes", err)
	}
	return &ChangesOutput{Body: ch}, nil
}

func (h *SheetHandler) GetCell(ctx context.Context, input *GetCellInput) (*GetCellOutput, error) {
	id, err := parseSheetID(input.SheetID)
	if err != nil {
		return nil, err
	}
	c, err := h.engine.Cell(input.User, id, input.CellID)
	if err != nil {
		return nil, engineError(h.logger, "get cell", err)
	}
	return &GetCellOutput{Body: c}, nil
}

func (h *SheetHandler) SetCell(ctx context.Context, input *SetCellInput) (*EditOutput, error) {
	id, err := parseSheetID(input.SheetID)
	if err != nil {
		return nil, err
	}
	res, err := h.engine.SetCell(input.User, id, input.CellID, input.Body.Text)
	if err != nil {
		return nil, engineError(h.logger, "set cell", err)
	}
	return &EditOutput{Body: editResponse(res)}, nil
}

func (h *SheetHandler) Preview(ctx context.Context, input *PreviewInput) (*SnapshotOutput, error) {
	id, err := parseSheetID(input.SheetID)
	if err != nil {
		return nil, err
	}
	snap, err := h.engine.Preview(input.User, id, input.Body.CellID, input.Body.Text)
	if err != nil {
		return nil, engineError(h.logger, "preview", err)
	}
	return &SnapshotOutput{Body: snap}, nil
}

func editResponse(res sheet.Result) wire.EditResponse {
	out := wire.EditResponse{Version: res.Version, Changed: res.Changed}
	if out.Changed == nil {
		out.Changed = []cell.Coord{}
	}
	if res.ParseErr != nil {
		out.ParseError = res.ParseErr.Error()
	}
	return out
}
