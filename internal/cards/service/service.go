// Package service implements the card lifecycle: grading uploads into cards, fetching
// and listing them, and transferring ownership with a matching ledger entry.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"cardledger/internal/cards/grading"
	cardmetrics "cardledger/internal/cards/metrics"
	"cardledger/internal/cards/models"
	dErrors "cardledger/pkg/domain-errors"
	"cardledger/pkg/platform/outbox"
	"cardledger/pkg/requestcontext"
)

type CardStore interface {
	Insert(ctx context.Context, card *models.Card) error
	FindByID(ctx context.Context, id models.CardID) (*models.Card, error)
	FindByIDForUpdate(ctx context.Context, id models.CardID) (*models.Card, error)
	OwnerOf(ctx context.Context, id models.CardID) (string, error)
	ListByOwner(ctx context.Context, owner string) ([]*models.Card, error)
	UpdateOwner(ctx context.Context, id models.CardID, expectedOwner, newOwner string) error
}

type Ledger interface {
	Append(ctx context.Context, rec *models.TradeRecord) error
	HistoryFor(ctx context.Context, cardID models.CardID) ([]models.TradeRecord, error)
	LatestFor(ctx context.Context, cardIDs []models.CardID) (map[models.CardID]models.TradeRecord, error)
}

// Cache is an optional read cache for the fields a card never changes after grading.
// The owner it returns is ignored. A miss is (nil, nil).
type Cache interface {
	Get(ctx context.Context, id models.CardID) (*models.Card, error)
	Set(ctx context.Context, card *models.Card) error
}

type OutboxStore interface {
	Append(ctx context.Context, entry outbox.Entry) error
}

const (
	defaultMaxImageBytes  = 10 << 20
	defaultGradingTimeout = 30 * time.Second
)

// Service is the card facade used by transports.
type Service struct {
	cards          CardStore
	ledger         Ledger
	grader         grading.Gateway
	tx             StoreTx
	cache          Cache
	outbox         OutboxStore
	logger         *slog.Logger
	metrics        *cardmetrics.Metrics
	tracer         trace.Tracer
	newID          func() models.CardID
	maxImageBytes  int64
	gradingTimeout time.Duration
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *cardmetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithCache(c Cache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

func WithOutbox(o OutboxStore) Option {
	return func(s *Service) {
		s.outbox = o
	}
}

// WithTx replaces the in-memory sharded transaction with a durable one.
func WithTx(tx StoreTx) Option {
	return func(s *Service) {
		s.tx = tx
	}
}

// WithIDGenerator overrides card id generation. Tests only.
func WithIDGenerator(fn func() models.CardID) Option {
	return func(s *Service) {
		s.newID = fn
	}
}

func WithMaxImageBytes(n int64) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxImageBytes = n
		}
	}
}

func WithGradingTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.gradingTimeout = d
		}
	}
}

// New constructs a Service. Without WithTx it uses the in-memory sharded transaction,
// which only pairs with the in-memory stores.
func New(cards CardStore, ledger Ledger, grader grading.Gateway, opts ...Option) *Service {
	s := &Service{
		cards:          cards,
		ledger:         ledger,
		grader:         grader,
		logger:         slog.Default(),
		tracer:         otel.Tracer("cardledger/internal/cards/service"),
		newID:          models.NewCardID,
		maxImageBytes:  defaultMaxImageBytes,
		gradingTimeout: defaultGradingTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tx == nil {
		s.tx = newShardedCardTx()
	}
	return s
}

// CreateAndGrade validates the upload, grades it and stores the card. No card exists
// unless grading succeeded and the insert committed.
func (s *Service) CreateAndGrade(ctx context.Context, req models.CreateCardRequest) (*models.Card, error) {
	ctx, span := s.tracer.Start(ctx, "cards.CreateAndGrade")
	defer span.End()

	req.Normalize()
	if err := req.Validate(s.maxImageBytes); err != nil {
		return nil, s.fail(span, err)
	}
	img := models.Image{ContentType: req.ContentType, Data: req.Image}

	result, err := s.grade(ctx, img)
	if err != nil {
		s.logger.WarnContext(ctx, "grading failed",
			"request_id", requestcontext.RequestID(ctx),
			"owner", req.Owner,
			"error", err,
		)
		return nil, s.fail(span, wrapGradingErr(err))
	}
	if err := ctx.Err(); err != nil {
		return nil, s.fail(span, dErrors.Wrap(err, dErrors.CodeTimeout, "request abandoned after grading"))
	}

	card, err := models.NewCard(s.newID(), req.Owner, req.Name, req.Info,
		models.Grade{Label: result.Grade, Confidence: result.Confidence}, img, requestcontext.Now(ctx))
	if err != nil {
		return nil, s.fail(span, dErrors.Wrap(err, dErrors.CodeGradingRejected, "grading returned an invalid result"))
	}
	span.SetAttributes(attribute.String("card.id", card.ID.String()))

	err = s.tx.RunInTx(ctx, card.ID.String(), func(txCtx context.Context) error {
		if err := s.cards.Insert(txCtx, card); err != nil {
			return wrapStoreErr(err, "failed to store card")
		}
		if err := s.emitCardGraded(txCtx, card); err != nil {
			return wrapStoreErr(err, "failed to record card event")
		}
		return nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "card insert failed",
			"request_id", requestcontext.RequestID(ctx),
			"card_id", card.ID.String(),
			"error", err,
		)
		return nil, s.fail(span, wrapStoreErr(err, "failed to store card"))
	}

	if s.metrics != nil {
		s.metrics.IncrementCardsCreated()
	}
	s.logger.InfoContext(ctx, "card graded",
		"request_id", requestcontext.RequestID(ctx),
		"card_id", card.ID.String(),
		"owner", card.Owner,
		"grade", card.Grade,
	)
	return card, nil
}

func (s *Service) grade(ctx context.Context, img models.Image) (grading.Result, error) {
	gradeCtx, cancel := context.WithTimeout(ctx, s.gradingTimeout)
	defer cancel()

	start := time.Now()
	result, err := s.grader.Grade(gradeCtx, img)
	if s.metrics != nil {
		s.metrics.ObserveGrading(start)
		if err != nil {
			s.metrics.IncrementGradingFailure(gradingFailureKind(err))
		}
	}
	if err != nil && !errors.Is(err, grading.ErrRejected) && !errors.Is(err, grading.ErrUnavailable) {
		err = errors.Join(grading.ErrUnavailable, err)
	}
	return result, err
}

// Fetch returns the current state of a card. A cache hit supplies the graded fields;
// the owner always comes from the card store.
func (s *Service) Fetch(ctx context.Context, id models.CardID) (*models.Card, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, id)
		switch {
		case err != nil:
			s.cacheLookup("error")
			s.logger.WarnContext(ctx, "card cache read failed", "card_id", id.String(), "error", err)
		case cached != nil:
			s.cacheLookup("hit")
			owner, err := s.cards.OwnerOf(ctx, id)
			if err != nil {
				return nil, wrapStoreErr(err, "failed to load card owner")
			}
			cached.Owner = owner
			return cached, nil
		default:
			s.cacheLookup("miss")
		}
	}

	card, err := s.cards.FindByID(ctx, id)
	if err != nil {
		return nil, wrapStoreErr(err, "failed to load card")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, card); err != nil {
			s.logger.WarnContext(ctx, "card cache write failed", "card_id", id.String(), "error", err)
		}
	}
	return card, nil
}

// History returns the card's trades, oldest first. The card and its trades are read
// from one snapshot.
func (s *Service) History(ctx context.Context, id models.CardID) ([]models.TradeRecord, error) {
	var (
		owner   string
		history []models.TradeRecord
	)
	err := s.tx.RunReadOnly(ctx, func(ctx context.Context) error {
		card, err := s.cards.FindByID(ctx, id)
		if err != nil {
			return wrapStoreErr(err, "failed to load card")
		}
		owner = card.Owner
		history, err = s.ledger.HistoryFor(ctx, id)
		if err != nil {
			return wrapStoreErr(err, "failed to load trade history")
		}
		return nil
	})
	if err != nil {
		return nil, wrapStoreErr(err, "failed to load trade history")
	}
	if err := models.VerifyChain(owner, history); err != nil {
		s.logger.ErrorContext(ctx, "trade history inconsistent with card owner",
			"card_id", id.String(),
			"error", err,
		)
	}
	return history, nil
}

// ListByOwner returns the owner's cards in insertion order.
func (s *Service) ListByOwner(ctx context.Context, owner string) ([]models.CollectionItem, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "owner is required")
	}

	var (
		cards  []*models.Card
		latest map[models.CardID]models.TradeRecord
	)
	err := s.tx.RunReadOnly(ctx, func(ctx context.Context) error {
		var err error
		cards, err = s.cards.ListByOwner(ctx, owner)
		if err != nil {
			return wrapStoreErr(err, "failed to list cards")
		}
		ids := make([]models.CardID, len(cards))
		for i, c := range cards {
			ids[i] = c.ID
		}
		latest, err = s.ledger.LatestFor(ctx, ids)
		if err != nil {
			return wrapStoreErr(err, "failed to load trade history")
		}
		return nil
	})
	if err != nil {
		return nil, wrapStoreErr(err, "failed to list cards")
	}

	items := make([]models.CollectionItem, 0, len(cards))
	for _, c := range cards {
		acquired := c.CreatedAt
		if rec, ok := latest[c.ID]; ok && rec.ToOwner == owner {
			acquired = rec.TradedAt
		}
		items = append(items, models.CollectionItem{Card: c, AcquiredAt: acquired})
	}
	return items, nil
}

func (s *Service) cacheLookup(result string) {
	if s.metrics != nil {
		s.metrics.IncrementCacheLookup(result)
	}
}

func (s *Service) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
	return err
}
