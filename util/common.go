package util

import (
	"context"
	"os"
)

// FileExists returns true if specified file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// SystemContext returns a context tagged for logging as a system operation
func SystemContext(parent context.Context, operation string) context.Context {
	//nolint
	ctx := context.WithValue(parent, LogSourceKey, SystemSource)
	//nolint
	return context.WithValue(ctx, OperationKey, operation)
}
