package models

import (
	"strings"

	dErrors "cardledger/pkg/domain-errors"
)

const (
	MaxNameLength  = 128
	MaxOwnerLength = 128
	MaxInfoLength  = 2048
)

// CreateCardRequest carries an upload into the service.
type CreateCardRequest struct {
	Name        string
	Info        string
	Owner       string
	ContentType string
	Image       []byte
}

// Normalize trims text fields and lower-cases the content type.
func (r *CreateCardRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Info = strings.TrimSpace(r.Info)
	r.Owner = strings.TrimSpace(r.Owner)
	r.ContentType = strings.ToLower(strings.TrimSpace(r.ContentType))
}

// Validate checks the request before any grading work is done.
func (r *CreateCardRequest) Validate(maxImageBytes int64) error {
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "card_name is required")
	}
	if r.Owner == "" {
		return dErrors.New(dErrors.CodeValidation, "owner is required")
	}
	if len(r.Name) > MaxNameLength {
		return dErrors.New(dErrors.CodeValidation, "card_name must be at most 128 characters")
	}
	if len(r.Owner) > MaxOwnerLength {
		return dErrors.New(dErrors.CodeValidation, "owner must be at most 128 characters")
	}
	if len(r.Info) > MaxInfoLength {
		return dErrors.New(dErrors.CodeValidation, "card_info must be at most 2048 characters")
	}
	if !strings.HasPrefix(r.ContentType, "image/") {
		return dErrors.New(dErrors.CodeValidation, "file must be an image")
	}
	if len(r.Image) == 0 {
		return dErrors.New(dErrors.CodeValidation, "file is empty")
	}
	if maxImageBytes > 0 && int64(len(r.Image)) > maxImageBytes {
		return dErrors.New(dErrors.CodeValidation, "file is too large")
	}
	return nil
}

// TransferRequest asks to move a card to a new owner. ExpectedOwner, when set, must match
// the current owner or the transfer fails as stale.
type TransferRequest struct {
	CardID        string
	ToOwner       string
	ExpectedOwner string
}

func (r *TransferRequest) Normalize() {
	r.CardID = strings.TrimSpace(r.CardID)
	r.ToOwner = strings.TrimSpace(r.ToOwner)
	r.ExpectedOwner = strings.TrimSpace(r.ExpectedOwner)
}

// Validate returns the parsed card id.
func (r *TransferRequest) Validate() (CardID, error) {
	cardID, err := ParseCardID(r.CardID)
	if err != nil {
		return CardID{}, err
	}
	if r.ToOwner == "" {
		return CardID{}, dErrors.New(dErrors.CodeValidation, "to_owner is required")
	}
	if len(r.ToOwner) > MaxOwnerLength {
		return CardID{}, dErrors.New(dErrors.CodeValidation, "to_owner must be at most 128 characters")
	}
	return cardID, nil
}
