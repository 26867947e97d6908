// Package grading talks to the external card grading service.
package grading

import (
	"context"
	"errors"

	"cardledger/internal/cards/models"
)

var (
	// ErrUnavailable means no verdict was obtained: unreachable, timed out, 5xx or circuit open.
	ErrUnavailable = errors.New("grading service unavailable")
	// ErrRejected means the service answered but refused the image or returned garbage.
	ErrRejected = errors.New("grading rejected")
)

// Result is a grading verdict.
type Result struct {
	Grade      string
	Confidence float64
}

// Gateway obtains a grade for an image. Implementations do not retry.
type Gateway interface {
	Grade(ctx context.Context, image models.Image) (Result, error)
}

// Labels produced by the reference grader, worst to best.
var Labels = []string{"Poor", "Mint 9", "Gem 10"}
