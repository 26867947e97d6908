package service

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"cardledger/internal/cards/models"
	dErrors "cardledger/pkg/domain-errors"
	"cardledger/pkg/requestcontext"
)

// Transfer moves a card to a new owner. The owner update, the trade record and the
// transfer event commit together or not at all, and transfers of one card never interleave.
func (s *Service) Transfer(ctx context.Context, req models.TransferRequest) (*models.TransferSummary, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "cards.Transfer")
	defer span.End()

	summary, err := s.transfer(ctx, req)
	if s.metrics != nil {
		outcome := "ok"
		if err != nil {
			outcome = string(dErrors.CodeOf(err))
		}
		s.metrics.ObserveTransfer(outcome, start)
	}
	if err != nil {
		s.logger.InfoContext(ctx, "card transfer refused",
			"request_id", requestcontext.RequestID(ctx),
			"card_id", req.CardID,
			"to_owner", req.ToOwner,
			"error", err,
		)
		return nil, s.fail(span, err)
	}
	span.SetAttributes(attribute.String("card.id", summary.CardID.String()))

	s.logger.InfoContext(ctx, "card transferred",
		"request_id", requestcontext.RequestID(ctx),
		"card_id", summary.CardID.String(),
		"from_owner", summary.FromOwner,
		"to_owner", summary.ToOwner,
	)
	return summary, nil
}

func (s *Service) transfer(ctx context.Context, req models.TransferRequest) (*models.TransferSummary, error) {
	req.Normalize()
	cardID, err := req.Validate()
	if err != nil {
		return nil, err
	}

	var summary *models.TransferSummary
	err = s.tx.RunInTx(ctx, cardID.String(), func(txCtx context.Context) error {
		card, err := s.cards.FindByIDForUpdate(txCtx, cardID)
		if err != nil {
			return wrapStoreErr(err, "failed to load card")
		}
		if req.ExpectedOwner != "" && req.ExpectedOwner != card.Owner {
			return dErrors.New(dErrors.CodeStaleState, fmt.Sprintf("card is no longer owned by %s", req.ExpectedOwner))
		}
		if req.ToOwner == card.Owner {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("card already belongs to %s", card.Owner))
		}

		tradedAt, err := s.nextTradeTime(txCtx, cardID)
		if err != nil {
			return err
		}
		rec, err := models.NewTradeRecord(cardID, card.Owner, req.ToOwner, tradedAt)
		if err != nil {
			return err
		}

		if err := s.cards.UpdateOwner(txCtx, cardID, card.Owner, req.ToOwner); err != nil {
			return wrapStoreErr(err, "failed to update card owner")
		}
		if err := s.ledger.Append(txCtx, rec); err != nil {
			return wrapStoreErr(err, "failed to record trade")
		}
		if err := s.emitCardTransferred(txCtx, rec); err != nil {
			return wrapStoreErr(err, "failed to record transfer event")
		}

		summary = &models.TransferSummary{
			CardID:    cardID,
			FromOwner: rec.FromOwner,
			ToOwner:   rec.ToOwner,
			TradedAt:  rec.TradedAt,
		}
		return nil
	})
	if err != nil {
		return nil, wrapStoreErr(err, "transfer failed")
	}
	return summary, nil
}

// nextTradeTime is the request time, moved forward if needed so the card's history stays
// ordered by trade time even when requests commit out of arrival order.
func (s *Service) nextTradeTime(ctx context.Context, cardID models.CardID) (time.Time, error) {
	now := requestcontext.Now(ctx)
	latest, err := s.ledger.LatestFor(ctx, []models.CardID{cardID})
	if err != nil {
		return time.Time{}, wrapStoreErr(err, "failed to load trade history")
	}
	if last, ok := latest[cardID]; ok && now.Before(last.TradedAt) {
		return last.TradedAt, nil
	}
	return now, nil
}
