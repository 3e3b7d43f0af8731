package models

// ResultKind tags a tool result so callers can branch without parsing text.
type ResultKind string

const (
	ResultOK          ResultKind = "ok"
	ResultNotFound    ResultKind = "not_found"
	ResultConflict    ResultKind = "conflict"
	ResultInvalid     ResultKind = "invalid"
	ResultUnavailable ResultKind = "unavailable"
	ResultFailed      ResultKind = "failed"
)

type ToolResult struct {
	Kind    ResultKind `json:"kind"`
	Message string     `json:"message"`
}

func OK(message string) ToolResult {
	return ToolResult{Kind: ResultOK, Message: message}
}

func Fail(kind ResultKind, message string) ToolResult {
	return ToolResult{Kind: kind, Message: message}
}

func (r ToolResult) IsOK() bool {
	return r.Kind == ResultOK
}
