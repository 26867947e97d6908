package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"cardledger/internal/cards/models"
	dErrors "cardledger/pkg/domain-errors"
	"cardledger/pkg/platform/httputil"
	"cardledger/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/service_mock.go -package=mocks Service

// Service defines the card operations exposed over HTTP.
type Service interface {
	CreateAndGrade(ctx context.Context, req models.CreateCardRequest) (*models.Card, error)
	Fetch(ctx context.Context, id models.CardID) (*models.Card, error)
	History(ctx context.Context, id models.CardID) ([]models.TradeRecord, error)
	Transfer(ctx context.Context, req models.TransferRequest) (*models.TransferSummary, error)
	ListByOwner(ctx context.Context, owner string) ([]models.CollectionItem, error)
}

// multipartOverhead is the allowance for form fields and boundaries on top of the image.
const multipartOverhead = 1 << 20

// Handler wires card endpoints to the card service.
type Handler struct {
	service        Service
	logger         *slog.Logger
	maxUploadBytes int64
	uploadLimiter  func(http.Handler) http.Handler
}

type Option func(h *Handler)

// WithUploadLimiter wraps POST /upload, typically with a per-IP rate limiter.
func WithUploadLimiter(mw func(http.Handler) http.Handler) Option {
	return func(h *Handler) {
		h.uploadLimiter = mw
	}
}

// New constructs a card handler. maxUploadBytes bounds the image part of an upload.
func New(service Service, logger *slog.Logger, maxUploadBytes int64, opts ...Option) *Handler {
	h := &Handler{
		service:        service,
		logger:         logger,
		maxUploadBytes: maxUploadBytes,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts card endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		if h.uploadLimiter != nil {
			r.Use(h.uploadLimiter)
		}
		r.Post("/upload", h.HandleUpload)
	})
	r.Get("/card/{id}", h.HandleGetCard)
	r.Get("/card/{id}/history", h.HandleHistory)
	r.Post("/trade", h.HandleTrade)
	r.Get("/collection/{owner}", h.HandleCollection)
}

// HandleUpload handles POST /upload: a multipart form with the card image and details.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, err := h.readUpload(w, r)
	if err != nil {
		h.logger.WarnContext(ctx, "invalid upload",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	card, err := h.service.CreateAndGrade(ctx, req.toModel())
	if err != nil {
		h.logFailure(ctx, "card upload failed", err,
			"request_id", requestID,
			"owner", req.Owner,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "card uploaded",
		"request_id", requestID,
		"card_id", card.ID.String(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, toUploadResponse(card))
}

func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) (*UploadRequest, error) {
	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartOverhead)
	}
	if err := r.ParseMultipartForm(multipartOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, dErrors.New(dErrors.CodeValidation, "file is too large")
		}
		return nil, dErrors.New(dErrors.CodeBadRequest, "invalid multipart form")
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	req := &UploadRequest{
		Name:  r.FormValue("card_name"),
		Info:  r.FormValue("card_info"),
		Owner: r.FormValue("owner"),
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, "file is required")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "failed to read file")
	}
	req.Image = data
	req.ContentType = header.Header.Get("Content-Type")
	if req.ContentType == "" || req.ContentType == "application/octet-stream" {
		req.ContentType = http.DetectContentType(data)
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}
	return req, nil
}

// HandleGetCard handles GET /card/{id}.
func (h *Handler) HandleGetCard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := models.ParseCardID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	card, err := h.service.Fetch(ctx, id)
	if err != nil {
		h.logFailure(ctx, "card fetch failed", err,
			"request_id", requestcontext.RequestID(ctx),
			"card_id", id.String(),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toCardResponse(card))
}

// HandleHistory handles GET /card/{id}/history.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := models.ParseCardID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	history, err := h.service.History(ctx, id)
	if err != nil {
		h.logFailure(ctx, "card history failed", err,
			"request_id", requestcontext.RequestID(ctx),
			"card_id", id.String(),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toTradeResponses(history))
}

// HandleTrade handles POST /trade. The body is JSON or a url-encoded form.
func (h *Handler) HandleTrade(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	var req *TradeRequest
	if isJSON(r) {
		var ok bool
		req, ok = httputil.DecodeAndPrepare[TradeRequest](w, r, h.logger, ctx, requestID)
		if !ok {
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid form body"))
			return
		}
		req = &TradeRequest{
			CardID:    r.PostFormValue("card_id"),
			ToOwner:   r.PostFormValue("to_owner"),
			FromOwner: r.PostFormValue("from_owner"),
		}
		if err := req.Validate(); err != nil {
			httputil.WriteError(w, err)
			return
		}
	}

	summary, err := h.service.Transfer(ctx, req.toModel())
	if err != nil {
		h.logFailure(ctx, "card transfer failed", err,
			"request_id", requestID,
			"card_id", req.CardID,
			"to_owner", req.ToOwner,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toTransferResponse(summary))
}

// HandleCollection handles GET /collection/{owner}.
func (h *Handler) HandleCollection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner := chi.URLParam(r, "owner")

	items, err := h.service.ListByOwner(ctx, owner)
	if err != nil {
		h.logFailure(ctx, "collection listing failed", err,
			"request_id", requestcontext.RequestID(ctx),
			"owner", owner,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toCollectionResponse(items))
}

// logFailure logs client errors at warn and server errors at error.
func (h *Handler) logFailure(ctx context.Context, msg string, err error, attrs ...any) {
	attrs = append(attrs, "error", err)
	if dErrors.ToHTTPStatus(dErrors.CodeOf(err)) >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, msg, attrs...)
		return
	}
	h.logger.WarnContext(ctx, msg, attrs...)
}

func isJSON(r *http.Request) bool {
	return strings.HasPrefix(strings.ToLower(r.Header.Get("Content-Type")), "application/json")
}
