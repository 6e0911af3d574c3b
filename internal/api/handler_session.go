package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/ryanbastic/go-shticell/internal/engine"
	"github.com/ryanbastic/go-shticell/internal/wire"
)

// --- Huma Input/Output types ---

type LoginInput struct {
	Body wire.LoginBody
}

type LoginOutput struct {
	Body wire.SessionResponse
}

type LogoutInput struct {
	User     string `header:"X-Username" doc:"Caller"`
	Username string `path:"username" doc:"User to log out"`
}

type ListUsersInput struct{}

type ListUsersOutput struct {
	Body []wire.SessionResponse
}

// --- Handler ---

type SessionHandler struct {
	engine *engine.Engine
	logger *slog.Logger
}

func NewSessionHandler(eng *engine.Engine, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{engine: eng, logger: logger}
}

func registerSessionRoutes(api huma.API, h *SessionHandler) {
	huma.Register(api, huma.Operation{
		OperationID:   "login",
		Method:        http.MethodPost,
		Path:          "/v1/sessions",
		Summary:       "Log a user in",
		Tags:          []string{"sessions"},
		DefaultStatus: http.StatusCreated,
	}, h.Login)

	huma.Register(api, huma.Operation{
		OperationID:   "logout",
		Method:        http.MethodDelete,
		Path:          "/v1/sessions/{username}",
		Summary:       "Log a user out",
		Tags:          []string{"sessions"},
		DefaultStatus: http.StatusNoContent,
	}, h.Logout)

	huma.Register(api, huma.Operation{
		OperationID: "list-users",
		Method:      http.MethodGet,
		Path:        "/v1/users",
		Summary:     "List logged-in users",
		Tags:        []string{"sessions"},
	}, h.ListUsers)
}

func (h *SessionHandler) Login(ctx context.Context, input *LoginInput) (*LoginOutput, error) {
	s, err := h.engine.Login(input.Body.Username)
	if err != nil {
		return nil, engineError(h.logger, "login", err)
	}
	return &LoginOutput{Body: wire.SessionResponse{Username: s.Username, Since: s.Since}}, nil
}

// Logout only lets users end their own session.
func (h *SessionHandler) Logout(ctx context.Context, input *LogoutInput) (*struct{}, error) {
	if err := h.engine.Authenticate(input.User); err != nil {
		return nil, engineError(h.logger, "logout", err)
	}
	if input.User != input.Username {
		return nil, huma.Error403Forbidden("users can only log themselves out")
	}
	if err := h.engine.Logout(input.Username); err != nil {
		return nil, engineError(h.logger, "logout", err)
	}
	return nil, nil
}

func (h *SessionHandler) ListUsers(ctx context.Context, input *ListUsersInput) (*ListUsersOutput, error) {
	sessions := h.engine.Users()
	resp := make([]wire.SessionResponse, len(sessions))
	for i, s := range sessions {
		resp[i] = wire.SessionResponse{Username: s.Username, Since: s.Since}
	}
	return &ListUsersOutput{Body: resp}, nil
}
