package models

import (
	"fmt"
	"time"

	dErrors "cardledger/pkg/domain-errors"
)

// TradeRecord is one ownership change. Records are appended, never changed.
type TradeRecord struct {
	ID        int64
	CardID    CardID
	FromOwner string
	ToOwner   string
	TradedAt  time.Time
}

func NewTradeRecord(cardID CardID, from, to string, at time.Time) (*TradeRecord, error) {
	if cardID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "trade requires a card id")
	}
	if from == "" || to == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "trade requires both owners")
	}
	if from == to {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "trade must change the owner")
	}
	return &TradeRecord{CardID: cardID, FromOwner: from, ToOwner: to, TradedAt: at}, nil
}

// VerifyChain checks that history (oldest first) links up and ends at currentOwner.
func VerifyChain(currentOwner string, history []TradeRecord) error {
	for i := 1; i < len(history); i++ {
		if history[i].FromOwner != history[i-1].ToOwner {
			return fmt.Errorf("trade %d from %q does not follow trade %d to %q",
				history[i].ID, history[i].FromOwner, history[i-1].ID, history[i-1].ToOwner)
		}
	}
	if n := len(history); n > 0 && history[n-1].ToOwner != currentOwner {
		return fmt.Errorf("latest trade ends at %q but card is owned by %q", history[n-1].ToOwner, currentOwner)
	}
	return nil
}

// TransferSummary is returned by a successful transfer.
type TransferSummary struct {
	CardID    CardID
	FromOwner string
	ToOwner   string
	TradedAt  time.Time
}

// CollectionItem is a card as listed in an owner's collection.
type CollectionItem struct {
	Card       *Card
	AcquiredAt time.Time
}
