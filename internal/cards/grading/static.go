package grading

import (
	"context"
	"fmt"
	"sync/atomic"

	"cardledger/internal/cards/models"
)

// Static returns a fixed verdict. Used for local development and tests.
type Static struct {
	result Result
	err    error
	calls  atomic.Int64
}

func NewStatic(grade string, confidence float64) *Static {
	return &Static{result: Result{Grade: grade, Confidence: confidence}}
}

// NewFailing returns a gateway that always fails with err.
func NewFailing(err error) *Static {
	return &Static{err: err}
}

func (s *Static) Grade(ctx context.Context, image models.Image) (Result, error) {
	s.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(image.Data) == 0 {
		return Result{}, fmt.Errorf("%w: empty image", ErrRejected)
	}
	if s.err != nil {
		return Result{}, s.err
	}
	return s.result, nil
}

// Calls reports how many times Grade was invoked.
func (s *Static) Calls() int64 {
	return s.calls.Load()
}
