package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"cardledger/internal/cards/models"
)

// UploadResponse is the response for POST /upload.
type UploadResponse struct {
	CardID     string    `json:"card_id"`
	Grade      string    `json:"grade"`
	Confidence float64   `json:"confidence"`
	Name       string    `json:"card_name"`
	Info       string    `json:"card_info"`
	Owner      string    `json:"owner"`
	DateAdded  time.Time `json:"date_added"`
}

// CardResponse is the full card returned by GET /card/{id}.
type CardResponse struct {
	CardID         string              `json:"card_id"`
	Owner          string              `json:"owner"`
	Name           string              `json:"card_name"`
	Info           string              `json:"card_info"`
	Grade          string              `json:"grade"`
	Confidence     float64             `json:"confidence"`
	EstimatedValue decimal.NullDecimal `json:"estimated_value"`
	ImagePath      string              `json:"image_path"`
	DateAdded      time.Time           `json:"date_added"`
}

// TradeResponse is one ledger entry, and also the response for POST /trade.
type TradeResponse struct {
	CardID    string    `json:"card_id"`
	FromOwner string    `json:"from_owner"`
	ToOwner   string    `json:"to_owner"`
	TradeDate time.Time `json:"trade_date"`
}

// CollectionItemResponse summarises a card in an owner's collection.
type CollectionItemResponse struct {
	CardID     string    `json:"card_id"`
	Owner      string    `json:"owner"`
	Name       string    `json:"card_name"`
	Info       string    `json:"card_info"`
	Grade      string    `json:"grade"`
	Confidence float64   `json:"confidence"`
	ImagePath  string    `json:"image_path"`
	DateAdded  time.Time `json:"date_added"`
	AcquiredAt time.Time `json:"acquired_at"`
}

func toUploadResponse(c *models.Card) *UploadResponse {
	return &UploadResponse{
		CardID:     c.ID.String(),
		Grade:      c.Grade,
		Confidence: c.Confidence,
		Name:       c.Name,
		Info:       c.Info,
		Owner:      c.Owner,
		DateAdded:  c.CreatedAt,
	}
}

func toCardResponse(c *models.Card) *CardResponse {
	return &CardResponse{
		CardID:         c.ID.String(),
		Owner:          c.Owner,
		Name:           c.Name,
		Info:           c.Info,
		Grade:          c.Grade,
		Confidence:     c.Confidence,
		EstimatedValue: c.EstimatedValue,
		ImagePath:      c.ImageRef,
		DateAdded:      c.CreatedAt,
	}
}

func toTransferResponse(s *models.TransferSummary) *TradeResponse {
	return &TradeResponse{
		CardID:    s.CardID.String(),
		FromOwner: s.FromOwner,
		ToOwner:   s.ToOwner,
		TradeDate: s.TradedAt,
	}
}

func toTradeResponses(history []models.TradeRecord) []TradeResponse {
	out := make([]TradeResponse, 0, len(history))
	for _, rec := range history {
		out = append(out, TradeResponse{
			CardID:    rec.CardID.String(),
			FromOwner: rec.FromOwner,
			ToOwner:   rec.ToOwner,
			TradeDate: rec.TradedAt,
		})
	}
	return out
}

func toCollectionResponse(items []models.CollectionItem) []CollectionItemResponse {
	out := make([]CollectionItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, CollectionItemResponse{
			CardID:     item.Card.ID.String(),
			Owner:      item.Card.Owner,
			Name:       item.Card.Name,
			Info:       item.Card.Info,
			Grade:      item.Card.Grade,
			Confidence: item.Card.Confidence,
			ImagePath:  item.Card.ImageRef,
			DateAdded:  item.Card.CreatedAt,
			AcquiredAt: item.AcquiredAt,
		})
	}
	return out
}
