package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.opentelemetry.io/otel/trace"

	"factscout/internal/domain"
	"factscout/internal/infra/tracer"
	"factscout/internal/usecase/eventbus"
)

// routerState is the routing state machine position.
type routerState int

const (
	stateRouting routerState = iota
	stateToolExecuting
	stateDone
)

// RouteResult is the outcome of one router execution: the full message
// history and, when a tool ran, its retrieval result.
type RouteResult struct {
	Messages  []domain.Message
	Retrieval *domain.RetrievalResult
	ToolName  string
}

// ToolInvoked reports whether a retriever was executed.
func (r *RouteResult) ToolInvoked() bool { return r.ToolName != "" }

// Router asks the model which retriever fits a query, then executes at most
// one. The state machine is Routing, ToolExecuting, Done; once a tool has
// run the router never routes again, so a single execution performs at most
// one adapter call no matter how many tool calls the model emits.
type Router struct {
	provider domain.LLMProvider
	bus      *eventbus.Bus
	logger   *slog.Logger
}

// NewRouter creates a tool router.
func NewRouter(provider domain.LLMProvider, bus *eventbus.Bus, logger *slog.Logger) *Router {
	return &Router{provider: provider, bus: bus, logger: logger}
}

// Route runs the state machine for query over the given retrievers.
// Retriever hard errors propagate to the caller; schema-invalid tool
// arguments are soft and end up as a tool message carrying the validation
// error text.
func (r *Router) Route(ctx context.Context, query string, retrievers []domain.Retriever) (*RouteResult, error) {
	ctx, span := tracer.StartSpan(ctx, "Router.Route",
		trace.WithAttributes(tracer.IntAttr("retrievers", len(retrievers))))
	defer span.End()

	byName := make(map[string]domain.Retriever, len(retrievers))
	schemas := make([]domain.ToolSchema, 0, len(retrievers))
	for _, retriever := range retrievers {
		byName[retriever.Name()] = retriever
		schemas = append(schemas, retriever.Schema())
	}

	result := &RouteResult{
		Messages: []domain.Message{
			{Role: domain.RoleSystem, Content: routerSystemPrompt},
			{Role: domain.RoleUser, Content: query},
		},
	}

	for state := stateRouting; state != stateDone; {
		switch state {
		case stateRouting:
			r.bus.Emit(ctx, domain.EventLLMCallStarted, map[string]string{"caller": "router"})
			resp, err := r.provider.Chat(ctx, domain.ChatRequest{
				Messages: result.Messages,
				Tools:    schemas,
			})
			if err != nil {
				tracer.RecordError(span, err)
				return nil, fmt.Errorf("router model call: %w", err)
			}
			r.bus.Emit(ctx, domain.EventLLMCallCompleted, map[string]string{"caller": "router"})

			result.Messages = append(result.Messages, resp.Message)
			if len(resp.Message.ToolCalls) > 0 {
				state = stateToolExecuting
			} else {
				state = stateDone
			}

		case stateToolExecuting:
			assistant := result.Messages[len(result.Messages)-1]
			toolMsg, retrieval, toolName, err := r.executeFirstValid(ctx, assistant.ToolCalls, byName)
			if err != nil {
				tracer.RecordError(span, err)
				return nil, err
			}
			result.Messages = append(result.Messages, toolMsg)
			result.Retrieval = retrieval
			result.ToolName = toolName
			// Termination guarantee: a tool ran, so routing never resumes.
			state = stateDone
		}
	}

	r.bus.Emit(ctx, domain.EventRouteDecided, map[string]string{"tool": result.ToolName})
	tracer.SetOK(span)
	return result, nil
}

// executeFirstValid runs the first tool call naming a known retriever with
// schema-valid arguments. Unknown names and invalid arguments produce a soft
// tool message instead of an adapter call.
func (r *Router) executeFirstValid(ctx context.Context, calls []domain.ToolCall, byName map[string]domain.Retriever) (domain.Message, *domain.RetrievalResult, string, error) {
	var softFailure string

	for _, call := range calls {
		retriever, ok := byName[call.Name]
		if !ok {
			softFailure = fmt.Sprintf("unknown tool %q", call.Name)
			continue
		}

		topic, err := validateToolArgs(retriever.Schema(), call.Arguments)
		if err != nil {
			r.logger.Warn("tool call arguments rejected", "tool", call.Name, "error", err)
			softFailure = fmt.Sprintf("invalid arguments for %q: %v", call.Name, err)
			continue
		}

		r.bus.Emit(ctx, domain.EventToolCallStarted, map[string]string{"tool": call.Name, "topic": topic})
		retrieval, err := retriever.Fetch(ctx, topic)
		if err != nil {
			return domain.Message{}, nil, "", fmt.Errorf("tool %s: %w", call.Name, err)
		}
		r.bus.Emit(ctx, domain.EventToolCallCompleted, map[string]string{"tool": call.Name})

		content, err := json.Marshal(retrieval)
		if err != nil {
			return domain.Message{}, nil, "", fmt.Errorf("encode tool result: %w", err)
		}
		msg := domain.Message{
			Role:      domain.RoleTool,
			Name:      call.Name,
			Content:   string(content),
			ToolCalls: []domain.ToolCall{call},
		}
		return msg, retrieval, call.Name, nil
	}

	if softFailure == "" {
		softFailure = "no executable tool call"
	}
	return domain.Message{Role: domain.RoleTool, Content: softFailure}, nil, "", nil
}

// validateToolArgs checks args against the tool's JSON schema and extracts
// the query argument.
func validateToolArgs(schema domain.ToolSchema, args json.RawMessage) (string, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(schema.Parameters)); err != nil {
		return "", fmt.Errorf("add schema resource: %w", err)
	}
	compiled, err := compiler.Compile("schema.json")
	if err != nil {
		return "", fmt.Errorf("compile schema: %w", err)
	}

	var v any
	if err := json.Unmarshal(args, &v); err != nil {
		return "", fmt.Errorf("invalid JSON: %w", err)
	}
	if err := compiled.Validate(v); err != nil {
		return "", fmt.Errorf("schema validation failed: %w", err)
	}

	var parsed struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal(args, &parsed); err != nil {
		return "", fmt.Errorf("decode arguments: %w", err)
	}
	return parsed.Query, nil
}
