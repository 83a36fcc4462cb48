package llm

// Finish reasons that drive behavior elsewhere in the pipeline.
const (
	FinishReasonStop         = "stop"
	FinishReasonToolCalls    = "tool_calls"
	FinishReasonFunctionCall = "function_call"
	FinishReasonLength       = "length"
	FinishReasonToolUse      = "tool_use"
)

// ErrorResponse is the body returned to clients when the proxy itself fails.
type ErrorResponse struct {
	Error string `json:"error"`
}
