package domain

// WorkflowResult is the append-only record of the processing pipeline:
// one field per stage plus the synthesized final summary. All five fields
// are non-empty strings once a workflow completes.
type WorkflowResult struct {
	MonitorResult     string `json:"monitorResult"`
	SummarizerResult  string `json:"summarizerResult"`
	AnalystResult     string `json:"analystResult"`
	FactCheckerResult string `json:"factCheckerResult"`
	FinalSummary      string `json:"finalSummary"`
}

// Report is the query handler's response. Direct (tool-bypass) answers carry
// only Direct; pipeline answers carry OriginalResponse plus Workflow.
type Report struct {
	// Direct holds the raw retrieval result for paths that skip the
	// pipeline (recency-specific profile queries).
	Direct *RetrievalResult `json:"direct,omitempty"`
	// OriginalResponse is the text that fed the pipeline.
	OriginalResponse string `json:"originalResponse,omitempty"`
	// Workflow is the structured pipeline output.
	Workflow *WorkflowResult `json:"agentWorkflow,omitempty"`
}

// ContextDecision is the tagged outcome of the grounded-answer step:
// either the model answered from the supplied context, or it signalled
// that the context is irrelevant.
type ContextDecision struct {
	Answered bool   `json:"answered"`
	Text     string `json:"text,omitempty"`
}
