package models

import (
	"encoding/base64"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/blake2b"

	dErrors "cardledger/pkg/domain-errors"
)

// CardID identifies a card for its whole life. Assigned once, never reused.
type CardID uuid.UUID

func NewCardID() CardID {
	return CardID(uuid.New())
}

// ParseCardID validates a card id at a trust boundary.
func ParseCardID(s string) (CardID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return CardID{}, dErrors.New(dErrors.CodeValidation, "card_id is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return CardID{}, dErrors.New(dErrors.CodeValidation, "card_id must be a UUID")
	}
	return CardID(u), nil
}

func (id CardID) String() string {
	return uuid.UUID(id).String()
}

func (id CardID) IsNil() bool {
	return uuid.UUID(id) == uuid.Nil
}

// Card is the graded record of one physical card.
//
// Invariants:
//   - ID, Name, Info, Grade, Confidence, ImageRef, ImageDigest and CreatedAt never change
//   - Owner changes only through a transfer, which also appends a trade record
//   - Confidence is within [0, 1]
type Card struct {
	ID             CardID
	Owner          string
	Name           string
	Info           string
	Grade          string
	Confidence     float64
	ImageRef       string
	ImageDigest    string
	EstimatedValue decimal.NullDecimal
	CreatedAt      time.Time
}

// NewCard builds a card from a grading result.
func NewCard(id CardID, owner, name, info string, grade Grade, img Image, now time.Time) (*Card, error) {
	if id.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "card id is required")
	}
	if owner == "" || name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "card owner and name are required")
	}
	if err := grade.Validate(); err != nil {
		return nil, err
	}
	return &Card{
		ID:          id,
		Owner:       owner,
		Name:        name,
		Info:        info,
		Grade:       grade.Label,
		Confidence:  grade.Confidence,
		ImageRef:    img.DataURI(),
		ImageDigest: img.Digest(),
		CreatedAt:   now,
	}, nil
}

// Clone returns a copy safe to hand out of a store.
func (c *Card) Clone() *Card {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}

// Grade is the outcome of grading an image.
type Grade struct {
	Label      string
	Confidence float64
}

func (g Grade) Validate() error {
	if strings.TrimSpace(g.Label) == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "grade label is required")
	}
	if g.Confidence < 0 || g.Confidence > 1 {
		return dErrors.New(dErrors.CodeInvariantViolation, "confidence must be within [0, 1]")
	}
	return nil
}

// Image is an uploaded card image.
type Image struct {
	ContentType string
	Data        []byte
}

// DataURI encodes the image as a data: URI, the form stored on the card and sent to the grader.
func (i Image) DataURI() string {
	return "data:" + i.ContentType + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

// Digest is the hex BLAKE2b-256 of the raw bytes.
func (i Image) Digest() string {
	sum := blake2b.Sum256(i.Data)
	return hex.EncodeToString(sum[:])
}
