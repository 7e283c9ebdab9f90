package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dohr-michael/graphcalc/internal/calculator"
)

// Tool names.
const (
	ToolEvaluate      = "evaluate"
	ToolDifferentiate = "differentiate"
	ToolIntegrate     = "integrate"
	ToolSample        = "sample"
)

type tool struct {
	spec ToolSpec
	run  func(ctx context.Context, args json.RawMessage) (any, error)
}

func tools(calc *calculator.Calculator) []tool {
	expression := Param{Type: "string", Description: "Arithmetic expression, e.g. sin(x)^2 + 3*x", Required: true}
	variable := Param{Type: "string", Description: "Variable name", Default: "x"}

	return []tool{
		{
			spec: ToolSpec{
				Name:        ToolEvaluate,
				Description: "Evaluate an expression against the session variables and record it in the history.",
				Parameters:  map[string]Param{"expression": expression},
			},
			run: func(ctx context.Context, raw json.RawMessage) (any, error) {
				var args struct {
					Expression string `json:"expression"`
				}
				if err := decodeArgs(raw, &args); err != nil {
					return nil, err
				}
				return calc.Evaluate(ctx, args.Expression)
			},
		},
		{
			spec: ToolSpec{
				Name:        ToolDifferentiate,
				Description: "Symbolic derivative of an expression.",
				Parameters:  map[string]Param{"expression": expression, "variable": variable},
			},
			run: func(_ context.Context, raw json.RawMessage) (any, error) {
				var args struct {
					Expression string `json:"expression"`
					Variable   string `json:"variable"`
				}
				if err := decodeArgs(raw, &args); err != nil {
					return nil, err
				}
				d, err := calc.Derive(args.Expression, args.Variable)
				if err != nil {
					return nil, err
				}
				return map[string]string{"derivative": d}, nil
			},
		},
		{
			spec: ToolSpec{
				Name:        ToolIntegrate,
				Description: "Definite integral by adaptive quadrature. Without bounds the session x range is used.",
				Parameters: map[string]Param{
					"expression": expression,
					"variable":   variable,
					"lower":      {Type: "number", Description: "Lower bound"},
					"upper":      {Type: "number", Description: "Upper bound"},
				},
			},
			run: func(ctx context.Context, raw json.RawMessage) (any, error) {
				var args struct {
					Expression string   `json:"expression"`
					Variable   string   `json:"variable"`
					Lower      *float64 `json:"lower"`
					Upper      *float64 `json:"upper"`
				}
				if err := decodeArgs(raw, &args); err != nil {
					return nil, err
				}
				var bounds *calculator.Bounds
				switch {
				case args.Lower != nil && args.Upper != nil:
					bounds = &calculator.Bounds{Lower: *args.Lower, Upper: *args.Upper}
				case args.Lower != nil || args.Upper != nil:
					return nil, fmt.Errorf("lower and upper must be given together")
				}
				return calc.Integrate(ctx, args.Expression, args.Variable, bounds)
			},
		},
		{
			spec: ToolSpec{
				Name:        ToolSample,
				Description: "Sample an expression in x (2d) or x and y (3d) over the session plot ranges. Undefined points are null.",
				Parameters: map[string]Param{
					"expression": expression,
					"dimensions": {Type: "integer", Description: "2 for a curve, 3 for a surface", Enum: []any{2, 3}, Default: 2},
					"samples":    {Type: "integer", Description: "Points per axis"},
				},
			},
			run: func(_ context.Context, raw json.RawMessage) (any, error) {
				var args struct {
					Expression string `json:"expression"`
					Dimensions int    `json:"dimensions"`
					Samples    int    `json:"samples"`
				}
				if err := decodeArgs(raw, &args); err != nil {
					return nil, err
				}
				switch args.Dimensions {
				case 0, 2:
					return calc.Plot2D(args.Expression, args.Samples)
				case 3:
					return calc.Plot3D(args.Expression, args.Samples)
				}
				return nil, fmt.Errorf("dimensions must be 2 or 3, got %d", args.Dimensions)
			},
		},
	}
}

func decodeArgs(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// NewMCPServer exposes the calculator tools. A non-empty filter restricts
// the server to the named tools.
func NewMCPServer(calc *calculator.Calculator, filter ...string) *mcpsdk.Server {
	server := mcpsdk.NewServer(&mcpsdk.Implementation{
		Name:    "graphcalc",
		Version: "0.1.0",
	}, nil)

	for _, t := range tools(calc) {
		if len(filter) > 0 && !slices.Contains(filter, t.spec.Name) {
			continue
		}
		server.AddTool(toMCPTool(t.spec), handler(t))
		slog.Debug("mcp tool registered", "tool", t.spec.Name)
	}
	return server
}

func handler(t tool) mcpsdk.ToolHandler {
	return func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
		result, err := t.run(ctx, req.Params.Arguments)
		if err != nil {
			slog.Debug("mcp tool error", "tool", t.spec.Name, "error", err)
			return errorResult(err), nil
		}
		data, err := json.Marshal(result)
		if err != nil {
			return errorResult(err), nil
		}
		return &mcpsdk.CallToolResult{
			Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: string(data)}},
		}, nil
	}
}

func errorResult(err error) *mcpsdk.CallToolResult {
	return &mcpsdk.CallToolResult{
		IsError: true,
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: err.Error()}},
	}
}
