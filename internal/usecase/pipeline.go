package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"factscout/internal/domain"
	"factscout/internal/infra/tracer"
	"factscout/internal/usecase/eventbus"
)

// stageSpec is one pipeline stage: a name, a fixed system instruction, and a
// template wrapping the previous stage's output as user content.
type stageSpec struct {
	name       string
	system     string
	userFormat string
}

// The stage order is fixed. Stages communicate only through their textual
// output; no stage is skippable.
var pipelineStages = []stageSpec{
	{
		name:       "monitor",
		system:     monitorSystemPrompt,
		userFormat: "Please analyze the following content as a Monitor Agent and identify any new activity or events:\n\n%s",
	},
	{
		name:       "summarizer",
		system:     summarizerSystemPrompt,
		userFormat: "Please summarize the following event information as a Summarizer Agent:\n\n%s",
	},
	{
		name:       "analyst",
		system:     analystSystemPrompt,
		userFormat: "Please analyze the following summary as an Analyst Agent and provide risk assessment and recommendations:\n\n%s",
	},
	{
		name:       "factchecker",
		system:     factCheckerSystemPrompt,
		userFormat: "Please fact-check the following analysis and claims as a Fact-Checker Agent:\n\n%s",
	},
}

const finalSummaryUserFormat = `Please create a final integrated report based on these agent outputs:

MONITOR AGENT OUTPUT:
%s

SUMMARIZER AGENT OUTPUT:
%s

ANALYST AGENT OUTPUT:
%s

FACT-CHECKER AGENT OUTPUT:
%s`

// Pipeline runs retrieved content through the fixed multi-stage analysis
// workflow: monitor, summarizer, analyst, fact-checker, then a final
// integration pass over all four outputs.
type Pipeline struct {
	provider domain.LLMProvider
	budget   *TokenBudget
	bus      *eventbus.Bus
	logger   *slog.Logger
}

// NewPipeline creates a processing pipeline. budget may be nil to disable
// stage-input truncation.
func NewPipeline(provider domain.LLMProvider, budget *TokenBudget, bus *eventbus.Bus, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		provider: provider,
		budget:   budget,
		bus:      bus,
		logger:   logger,
	}
}

// Process runs all five stages over content. Stage N's full output is the
// input of stage N+1; the final stage merges all four prior outputs. A stage
// failure aborts the run, no partial result is returned.
func (p *Pipeline) Process(ctx context.Context, content string) (*domain.WorkflowResult, error) {
	ctx, span := tracer.StartSpan(ctx, "Pipeline.Process")
	defer span.End()

	outputs := make([]string, 0, len(pipelineStages))
	input := content
	for _, stage := range pipelineStages {
		output, err := p.runStage(ctx, stage, input)
		if err != nil {
			tracer.RecordError(span, err)
			return nil, err
		}
		outputs = append(outputs, output)
		input = output
	}

	finalInput := fmt.Sprintf(finalSummaryUserFormat, outputs[0], outputs[1], outputs[2], outputs[3])
	finalSummary, err := p.callStage(ctx, "final", finalSummarySystemPrompt, finalInput)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}

	tracer.SetOK(span)
	return &domain.WorkflowResult{
		MonitorResult:     outputs[0],
		SummarizerResult:  outputs[1],
		AnalystResult:     outputs[2],
		FactCheckerResult: outputs[3],
		FinalSummary:      finalSummary,
	}, nil
}

func (p *Pipeline) runStage(ctx context.Context, stage stageSpec, input string) (string, error) {
	return p.callStage(ctx, stage.name, stage.system, fmt.Sprintf(stage.userFormat, input))
}

func (p *Pipeline) callStage(ctx context.Context, name, system, user string) (string, error) {
	p.bus.Emit(ctx, domain.EventStageStarted, map[string]string{"stage": name})
	p.logger.Debug("pipeline stage started", "stage", name)

	resp, err := p.provider.Chat(ctx, domain.ChatRequest{
		Messages: []domain.Message{
			{Role: domain.RoleSystem, Content: system},
			{Role: domain.RoleUser, Content: p.budget.Truncate(user)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: stage %s: %v", domain.ErrPipelineStage, name, err)
	}

	p.bus.Emit(ctx, domain.EventStageCompleted, map[string]string{"stage": name})
	p.logger.Debug("pipeline stage completed", "stage", name, "output_len", len(resp.Message.Content))
	return resp.Message.Content, nil
}
