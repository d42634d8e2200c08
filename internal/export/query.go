package export

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/itchyny/gojq"

	commentaryerrors "github.com/tombee/commentary/pkg/errors"
)

const (
	// DefaultQueryTimeout bounds jq transform execution (1 second).
	DefaultQueryTimeout = 1 * time.Second

	// DefaultMaxQueryInput is the maximum JSON input size for transforms (10MB).
	DefaultMaxQueryInput = 10 * 1024 * 1024
)

// QueryExecutor evaluates jq expressions over exported anchor data with
// timeout and size limits.
type QueryExecutor struct {
	timeout      time.Duration
	maxInputSize int64
}

// NewQueryExecutor creates a query executor. Zero values select the defaults.
func NewQueryExecutor(timeout time.Duration, maxInputSize int64) *QueryExecutor {
	if timeout == 0 {
		timeout = DefaultQueryTimeout
	}
	if maxInputSize == 0 {
		maxInputSize = DefaultMaxQueryInput
	}

	return &QueryExecutor{
		timeout:      timeout,
		maxInputSize: maxInputSize,
	}
}

// Execute runs a jq expression against the given data with timeout protection.
// An empty expression returns the data unchanged. A query producing a single
// value yields that value; multiple values yield an array.
func (e *QueryExecutor) Execute(ctx context.Context, expression string, data interface{}) (interface{}, error) {
	if expression == "" {
		return data, nil
	}

	if err := e.validateInputSize(data); err != nil {
		return nil, err
	}

	execCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	query, err := gojq.Parse(expression)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}

	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("compile error: %w", err)
	}

	resultChan := make(chan interface{}, 1)
	errorChan := make(chan error, 1)

	go func() {
		iter := code.Run(data)

		var results []interface{}
		for {
			v, ok := iter.Next()
			if !ok {
				break
			}

			if err, isErr := v.(error); isErr {
				errorChan <- err
				return
			}

			results = append(results, v)
		}

		switch len(results) {
		case 0:
			resultChan <- nil
		case 1:
			resultChan <- results[0]
		default:
			resultChan <- results
		}
	}()

	select {
	case result := <-resultChan:
		return result, nil
	case err := <-errorChan:
		return nil, err
	case <-execCtx.Done():
		return nil, &commentaryerrors.TimeoutError{
			Operation: "export query",
			Duration:  e.timeout,
			Cause:     execCtx.Err(),
		}
	}
}

// Validate checks a jq expression compiles without running it. Used by the
// export command to reject bad queries before scanning.
func (e *QueryExecutor) Validate(expression string) error {
	if expression == "" {
		return nil
	}

	query, err := gojq.Parse(expression)
	if err != nil {
		return fmt.Errorf("invalid jq expression: %w", err)
	}

	if _, err := gojq.Compile(query); err != nil {
		return fmt.Errorf("jq compilation failed: %w", err)
	}

	return nil
}

func (e *QueryExecutor) validateInputSize(data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	if int64(len(jsonData)) > e.maxInputSize {
		return fmt.Errorf("data size (%d bytes) exceeds maximum (%d bytes)",
			len(jsonData), e.maxInputSize)
	}

	return nil
}
