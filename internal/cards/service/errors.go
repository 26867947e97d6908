package service

import (
	"context"
	"errors"

	"cardledger/internal/cards/grading"
	dErrors "cardledger/pkg/domain-errors"
	"cardledger/pkg/platform/sentinel"
)

// wrapStoreErr translates store sentinels into domain errors. Errors already classified
// pass through unchanged.
func wrapStoreErr(err error, msg string) error {
	if err == nil {
		return nil
	}
	if _, ok := dErrors.As(err); ok {
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "card not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeStaleState, "card owner changed concurrently")
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		return dErrors.Wrap(err, dErrors.CodeDuplicateIdentity, "card id already in use")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return dErrors.Wrap(err, dErrors.CodeTimeout, msg)
	default:
		return dErrors.Wrap(err, dErrors.CodeStorageFailure, msg)
	}
}

// wrapGradingErr classifies a gateway failure. The reason stays in the message.
func wrapGradingErr(err error) error {
	if errors.Is(err, grading.ErrRejected) {
		return dErrors.Wrap(err, dErrors.CodeGradingRejected, err.Error())
	}
	return dErrors.Wrap(err, dErrors.CodeGradingUnavailable, "grading service unavailable")
}

func gradingFailureKind(err error) string {
	if errors.Is(err, grading.ErrRejected) {
		return "rejected"
	}
	return "unavailable"
}
