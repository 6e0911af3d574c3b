package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/ryanbastic/go-shticell/internal/engine"
	"github.com/ryanbastic/go-shticell/internal/permission"
	"github.com/ryanbastic/go-shticell/internal/wire"
)

// --- Huma Input/Output types ---

type GetPermissionsInput struct {
	SheetPath
}

type PermissionsOutput struct {
	Body wire.Permissions
}

type RequestPermissionInput struct {
	SheetPath
	Body wire.RequestPermissionBody
}

type PermissionRequestOutput struct {
	Body permission.Request
}

type DecidePermissionInput struct {
	SheetPath
	Body wire.DecidePermissionBody
}

type SetLevelInput struct {
	SheetPath
	Username string `path:"username" doc:"User whose level changes"`
	Body     wire.SetLevelBody
}

// --- Handler ---

type PermissionHandler struct {
	engine *engine.Engine
	logger *slog.Logger
}

func NewPermissionHandler(eng *engine.Engine, logger *slog.Logger) *PermissionHandler {
	return &PermissionHandler{engine: eng, logger: logger}
}

func registerPermissionRoutes(api huma.API, h *PermissionHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "get-permissions",
		Method:      http.MethodGet,
		Path:        "/v1/sheets/{sheet_id}/permissions",
		Summary:     "List users, levels and request history",
		Tags:        []string{"permissions"},
	}, h.Get)

	huma.Register(api, huma.Operation{
		OperationID:   "request-permission",
		Method:        http.MethodPost,
		Path:          "/v1/sheets/{sheet_id}/permissions/requests",
		Summary:       "Ask the owner for access",
		Tags:          []string{"permissions"},
		DefaultStatus: http.StatusCreated,
	}, h.Request)

	huma.Register(api, huma.Operation{
		OperationID: "decide-permission",
		Method:      http.MethodPost,
		Path:        "/v1/sheets/{sheet_id}/permissions/decisions",
		Summary:     "Approve or deny a pending request",
		Tags:        []string{"permissions"},
	}, h.Decide)

	huma.Register(api, huma.Operation{
		OperationID:   "set-permission",
		Method:        http.MethodPut,
		Path:          "/v1/sheets/{sheet_id}/permissions/{username}",
		Summary:       "Set a user's level directly",
		Tags:          []string{"permissions"},
		DefaultStatus: http.StatusNoContent,
	}, h.SetLevel)
}

func (h *PermissionHandler) Get(ctx context.Context, input *GetPermissionsInput) (*PermissionsOutput, error) {
	id, err := parseSheetID(input.SheetID)
	if err != nil {
		return nil, err
	}
	p, err := h.engine.Permissions(input.User, id)
	if err != nil {
		return nil, engineError(h.logger, "get permissions", err)
	}
	return &PermissionsOutput{Body: p}, nil
}

func (h *PermissionHandler) Request(ctx context.Context, input *RequestPermissionInput) (*PermissionRequestOutput, error) {
	id, err := parseSheetID(input.SheetID)
	if err != nil {
		return nil, err
	}
	req, err := h.engine.RequestPermission(input.User, id, permission.Level(input.Body.Level))
	if err != nil {
		return nil, engineError(h.logger, "request permission", err)
	}
	return &PermissionRequestOutput{Body: req}, nil
}

func (h *PermissionHandler) Decide(ctx context.Context, input *DecidePermissionInput) (*PermissionRequestOutput, error) {
	id, err := parseSheetID(input.SheetID)
	if err != nil {
		return nil, err
	}
	req, err := h.engine.DecidePermission(input.User, id, input.Body.Username, input.Body.Approve)
	if err != nil {
		return nil, engineError(h.logger, "decide permission", err)
	}
	return &PermissionRequestOutput{Body: req}, nil
}

func (h *PermissionHandler) SetLevel(ctx context.Context, input *SetLevelInput) (*struct{}, error) {
	id, err := parseSheetID(input.SheetID)
	if err != nil {
		return nil, err
	}
	if err := h.engine.SetLevel(input.User, id, input.Username, permission.Level(input.Body.Level)); err != nil {
		return nil, engineError(h.logger, "set permission", err)
	}
	return nil, nil
}
