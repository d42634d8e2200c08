// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package log

import (
	"log/slog"
	"time"
)

// Op describes a unit of work for logging purposes.
type Op struct {
	// Name is the operation name (e.g., "solution_scan", "fmt", "export").
	Name string

	// ScanID ties the operation to a solution scan, if any.
	ScanID string

	// Path is the file the operation targets, if any.
	Path string

	// Metadata contains additional operation metadata.
	Metadata map[string]interface{}
}

// OpResult describes an operation outcome for logging purposes.
type OpResult struct {
	// Success indicates whether the operation succeeded.
	Success bool

	// Error is the error message if the operation failed.
	Error string

	// DurationMs is the duration of the operation in milliseconds.
	DurationMs int64

	// Metadata contains additional result metadata.
	Metadata map[string]interface{}
}

// LogOpStart logs the beginning of an operation.
func LogOpStart(logger *slog.Logger, op *Op) {
	attrs := []any{
		EventKey, "op_start",
		"op", op.Name,
	}

	if op.ScanID != "" {
		attrs = append(attrs, ScanIDKey, op.ScanID)
	}

	if op.Path != "" {
		attrs = append(attrs, FileKey, op.Path)
	}

	for k, v := range op.Metadata {
		attrs = append(attrs, k, v)
	}

	logger.Debug("operation started", attrs...)
}

// LogOpEnd logs an operation outcome.
func LogOpEnd(logger *slog.Logger, op *Op, res *OpResult) {
	attrs := []any{
		EventKey, "op_end",
		"op", op.Name,
		"success", res.Success,
		DurationKey, res.DurationMs,
	}

	if op.ScanID != "" {
		attrs = append(attrs, ScanIDKey, op.ScanID)
	}

	if op.Path != "" {
		attrs = append(attrs, FileKey, op.Path)
	}

	if res.Error != "" {
		attrs = append(attrs, "error", res.Error)
	}

	for k, v := range res.Metadata {
		attrs = append(attrs, k, v)
	}

	level := slog.LevelDebug
	message := "operation completed"

	if !res.Success {
		level = slog.LevelError
		message = "operation failed"
	}

	logger.Log(nil, level, message, attrs...)
}

// OpMiddleware wraps a function with start/end logging.
// It logs the operation when it starts and its outcome when it completes.
type OpMiddleware struct {
	logger *slog.Logger
}

// NewOpMiddleware creates a new operation logging middleware.
func NewOpMiddleware(logger *slog.Logger) *OpMiddleware {
	return &OpMiddleware{
		logger: logger,
	}
}

// Run wraps a function that performs an operation.
// It logs the start and outcome automatically and returns the function's error.
func (m *OpMiddleware) Run(op *Op, fn func() error) error {
	start := time.Now()

	LogOpStart(m.logger, op)

	err := fn()

	duration := time.Since(start).Milliseconds()

	res := &OpResult{
		Success:    err == nil,
		DurationMs: duration,
	}

	if err != nil {
		res.Error = err.Error()
	}

	LogOpEnd(m.logger, op, res)

	return err
}

// RunWithMetadata wraps a function that performs an operation and returns metadata.
// It logs the outcome with the returned metadata attached.
func (m *OpMiddleware) RunWithMetadata(op *Op, fn func() (map[string]interface{}, error)) (map[string]interface{}, error) {
	start := time.Now()

	LogOpStart(m.logger, op)

	metadata, err := fn()

	duration := time.Since(start).Milliseconds()

	res := &OpResult{
		Success:    err == nil,
		DurationMs: duration,
		Metadata:   metadata,
	}

	if err != nil {
		res.Error = err.Error()
	}

	LogOpEnd(m.logger, op, res)

	return metadata, err
}
