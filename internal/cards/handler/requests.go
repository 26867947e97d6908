package handler

import (
	"strconv"
	"strings"

	"github.com/asaskevich/govalidator"

	"cardledger/internal/cards/models"
	dErrors "cardledger/pkg/domain-errors"
)

var (
	maxName  = strconv.Itoa(models.MaxNameLength)
	maxOwner = strconv.Itoa(models.MaxOwnerLength)
	maxInfo  = strconv.Itoa(models.MaxInfoLength)
)

// UploadRequest is the parsed multipart body of POST /upload.
type UploadRequest struct {
	Name        string
	Info        string
	Owner       string
	ContentType string
	Image       []byte
}

// Validate trims and bounds the text fields. Image checks are left to the service.
func (r *UploadRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.Info = strings.TrimSpace(r.Info)
	r.Owner = strings.TrimSpace(r.Owner)

	if !govalidator.StringLength(r.Name, "1", maxName) {
		return dErrors.New(dErrors.CodeValidation, "card_name is required and must be at most "+maxName+" characters")
	}
	if !govalidator.StringLength(r.Owner, "1", maxOwner) {
		return dErrors.New(dErrors.CodeValidation, "owner is required and must be at most "+maxOwner+" characters")
	}
	if r.Info != "" && !govalidator.StringLength(r.Info, "0", maxInfo) {
		return dErrors.New(dErrors.CodeValidation, "card_info must be at most "+maxInfo+" characters")
	}
	return nil
}

func (r *UploadRequest) toModel() models.CreateCardRequest {
	return models.CreateCardRequest{
		Name:        r.Name,
		Info:        r.Info,
		Owner:       r.Owner,
		ContentType: r.ContentType,
		Image:       r.Image,
	}
}

// TradeRequest is the body of POST /trade. FromOwner, when present, must be the card's
// current owner.
type TradeRequest struct {
	CardID    string `json:"card_id"`
	ToOwner   string `json:"to_owner"`
	FromOwner string `json:"from_owner,omitempty"`
}

// Validate implements httputil.Validatable.
func (r *TradeRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.CardID = strings.TrimSpace(r.CardID)
	r.ToOwner = strings.TrimSpace(r.ToOwner)
	r.FromOwner = strings.TrimSpace(r.FromOwner)

	if r.CardID == "" {
		return dErrors.New(dErrors.CodeValidation, "card_id is required")
	}
	if !govalidator.IsUUID(r.CardID) {
		return dErrors.New(dErrors.CodeValidation, "card_id must be a UUID")
	}
	if !govalidator.StringLength(r.ToOwner, "1", maxOwner) {
		return dErrors.New(dErrors.CodeValidation, "to_owner is required and must be at most "+maxOwner+" characters")
	}
	if len(r.FromOwner) > models.MaxOwnerLength {
		return dErrors.New(dErrors.CodeValidation, "from_owner must be at most "+maxOwner+" characters")
	}
	return nil
}

func (r *TradeRequest) toModel() models.TransferRequest {
	return models.TransferRequest{
		CardID:        r.CardID,
		ToOwner:       r.ToOwner,
		ExpectedOwner: r.FromOwner,
	}
}
