package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/ryanbastic/go-shticell/internal/engine"
	"github.com/ryanbastic/go-shticell/internal/wire"
)

type ListFunctionsInput struct{}

type ListFunctionsOutput struct {
	Body []wire.FunctionInfo
}

type FunctionHandler struct {
	engine *engine.Engine
}

func NewFunctionHandler(eng *engine.Engine) *FunctionHandler {
	return &FunctionHandler{engine: eng}
}

func registerFunctionRoutes(api huma.API, h *FunctionHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "list-functions",
		Method:      http.MethodGet,
		Path:        "/v1/functions",
		Summary:     "List the functions formulas can call",
		Tags:        []string{"functions"},
	}, h.List)
}

func (h *FunctionHandler) List(ctx context.Context, input *ListFunctionsInput) (*ListFunctionsOutput, error) {
	return &ListFunctionsOutput{Body: h.engine.Functions()}, nil
}
