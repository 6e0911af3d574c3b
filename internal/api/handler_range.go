package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/ryanbastic/go-shticell/internal/engine"
	"github.com/ryanbastic/go-shticell/internal/sheet"
	"github.com/ryanbastic/go-shticell/internal/wire"
)

// --- Huma Input/Output types ---

type AddRangeInput struct {
	SheetPath
	Body wire.AddRangeBody
}

type DeleteRangeInput struct {
	SheetPath
	Name string `path:"name" doc:"Range name"`
}

type SortInput struct {
	SheetPath
	Body wire.SortBody
}

type FilterInput struct {
	SheetPath
	Body wire.FilterBody
}

type ViewOutput struct {
	Body sheet.View
}

type DistinctInput struct {
	SheetPath
	Range  string `query:"range" doc:"Range to inspect" required:"true"`
	Column string `query:"column" doc:"Column letter" required:"true"`
}

type DistinctOutput struct {
	Body []string
}

// --- Handler ---

type RangeHandler struct {
	engine *engine.Engine
	logger *slog.Logger
}

func NewRangeHandler(eng *engine.Engine, logger *slog.Logger) *RangeHandler {
	return &RangeHandler{engine: eng, logger: logger}
}

func registerRangeRoutes(api huma.API, h *RangeHandler) {
	huma.Register(api, huma.Operation{
		OperationID:   "add-range",
		Method:        http.MethodPost,
		Path:          "/v1/sheets/{sheet_id}/ranges",
		Summary:       "Add a named range",
		Tags:          []string{"ranges"},
		DefaultStatus: http.StatusCreated,
	}, h.AddRange)

	huma.Register(api, huma.Operation{
		OperationID: "delete-range",
		Method:      http.MethodDelete,
		Path:        "/v1/sheets/{sheet_id}/ranges/{name}",
		Summary:     "Delete an unused named range",
		Tags:        []string{"ranges"},
	}, h.DeleteRange)

	huma.Register(api, huma.Operation{
		OperationID: "sort-range",
		Method:      http.MethodPost,
		Path:        "/v1/sheets/{sheet_id}/sort",
		Summary:     "Sort the rows of a range",
		Tags:        []string{"views"},
	}, h.Sort)

	huma.Register(api, huma.Operation{
		OperationID: "filter-range",
		Method:      http.MethodPost,
		Path:        "/v1/sheets/{sheet_id}/filter",
		Summary:     "Filter the rows of a range by column values",
		Tags:        []string{"views"},
	}, h.Filter)

	huma.Register(api, huma.Operation{
		OperationID: "distinct-values",
		Method:      http.MethodGet,
		Path:        "/v1/sheets/{sheet_id}/distinct",
		Summary:     "List the distinct values of a column in a range",
		Tags:        []string{"views"},
	}, h.Distinct)
}

func (h *RangeHandler) AddRange(ctx context.Context, input *AddRangeInput) (*EditOutput, error) {
	id, err := parseSheetID(input.SheetID)
	if err != nil {
		return nil, err
	}
	res, err := h.engine.AddRange(input.User, id, input.Body.Name, input.Body.Range)
	if err != nil {
		return nil, engineError(h.logger, "add range", err)
	}
	return &EditOutput{Body: editResponse(res)}, nil
}

func (h *RangeHandler) DeleteRange(ctx context.Context, input *DeleteRangeInput) (*EditOutput, error) {
	id, err := parseSheetID(input.SheetID)
	if err != nil {
		return nil, err
	}
	res, err := h.engine.DeleteRange(input.User, id, input.Name)
	if err != nil {
		return nil, engineError(h.logger, "delete range", err)
	}
	return &EditOutput{Body: editResponse(res)}, nil
}

func (h *RangeHandler) Sort(ctx context.Context, input *SortInput) (*ViewOutput, error) {
	id, err := parseSheetID(input.SheetID)
	if err != nil {
		return nil, err
	}
	v, err := h.engine.Sort(input.User, id, input.Body.Range, input.Body.Columns)
	if err != nil {
		return nil, engineError(h.logger, "sort", err)
	}
	return &ViewOutput{Body: v}, nil
}

func (h *RangeHandler) Filter(ctx context.Context, input *FilterInput) (*ViewOutput, error) {
	id, err := parseSheetID(input.SheetID)
	if err != nil {
		return nil, err
	}
	v, err := h.engine.Filter(input.User, id, input.Body.Range, input.Body.Column, input.Body.Values)
	if err != nil {
		return nil, engineError(h.logger, "filter", err)
	}
	return &ViewOutput{Body: v}, nil
}

func (h *RangeHandler) Distinct(ctx context.Context, input *DistinctInput) (*DistinctOutput, error) {
	id, err := parseSheetID(input.SheetID)
	if err != nil {
		return nil, err
	}
	vals, err := h.engine.DistinctValues(input.User, id, input.Range, input.Column)
	if err != nil {
		return nil, engineError(h.logger, "distinct values", err)
	}
	return &DistinctOutput{Body: vals}, nil
}
