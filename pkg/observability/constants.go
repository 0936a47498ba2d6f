package observability

const (
	AttrServiceName     = "service.name"
	AttrServiceVersion  = "service.version"
	AttrNodeName        = "node.name"
	AttrWorkerID        = "worker.id"
	AttrLemmaID         = "lemma.id"
	AttrToolName        = "tool.name"
	AttrLLMModel        = "llm.model"
	AttrLLMTokensInput  = "llm.tokens.input"
	AttrLLMTokensOutput = "llm.tokens.output"
	AttrErrorType       = "error.type"
	AttrStatusCode      = "http.status_code"

	SpanNodeRun       = "node.run"
	SpanLLMRequest    = "node.llm_request"
	SpanToolExecution = "node.tool_execution"
	SpanWorkerRun     = "orchestrator.worker_run"

	DefaultServiceName = "alphasolve"
)
