package util

type ContextKey string

const (
	RequestIDKey ContextKey = "requestID"
	OperationKey ContextKey = "operation"
	LogSourceKey ContextKey = "source"
)
