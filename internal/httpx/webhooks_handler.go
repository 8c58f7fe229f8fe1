package httpx

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/ariefcatur/go-shop-payments/internal/apperr"
	"github.com/ariefcatur/go-shop-payments/internal/archive"
	"github.com/ariefcatur/go-shop-payments/internal/logx"
	"github.com/ariefcatur/go-shop-payments/internal/payments"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	headerEventID   = "X-Razorpay-Event-Id"
	headerSignature = "X-Razorpay-Signature"
)

type webhookResp struct {
	Status string `json:"status"` // processed | ignored | duplicate
}

func (h *Handler) razorpayWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logx.Ctx(ctx, h.Log)

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, r, h.Log, apperr.Validation("unreadable body"))
		return
	}
	if h.VerifyWebhooks && !h.WebhookSigner.VerifyBody(body, r.Header.Get(headerSignature)) {
		writeError(w, r, h.Log, apperr.InvalidSignature("invalid webhook signature"))
		return
	}

	ev, err := payments.ParseGatewayEvent(body)
	eventID := r.Header.Get(headerEventID)
	h.saveWebhook(ctx, archive.Record{Source: "razorpay", Event: ev.Event, EventID: eventID, Body: string(body)})
	if err != nil {
		writeError(w, r, h.Log, apperr.Validation(err.Error()))
		return
	}

	if eventID != "" && h.Dedup != nil {
		first, err := h.Dedup.FirstSeen(ctx, eventID)
		if err != nil {
			log.Warn("webhook dedup unavailable", zap.String("event_id", eventID), zap.Error(err))
		} else if !first {
			log.Info("duplicate webhook skipped", zap.String("event_id", eventID))
			writeJSON(w, http.StatusOK, webhookResp{Status: "duplicate"})
			return
		}
	}

	handled, err := h.Payments.HandleGatewayWebhook(ctx, ev)
	if err != nil {
		h.forget(ctx, eventID)
		writeError(w, r, h.Log, err)
		return
	}
	if !handled {
		writeJSON(w, http.StatusOK, webhookResp{Status: "ignored"})
		return
	}
	writeJSON(w, http.StatusOK, webhookResp{Status: "processed"})
}

func (h *Handler) mockWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, r, h.Log, apperr.Validation("unreadable body"))
		return
	}

	var ev payments.MockEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		writeError(w, r, h.Log, apperr.Validation("malformed JSON body"))
		return
	}
	h.saveWebhook(r.Context(), archive.Record{Source: "mock", Event: ev.Status, EventID: ev.PaymentID, Body: string(body)})
	if err := validate(h.validate, &ev); err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	p, err := h.Payments.HandleMockWebhook(r.Context(), ev)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) webhookEvents(w http.ResponseWriter, r *http.Request) {
	if h.Archive == nil {
		writeJSON(w, http.StatusOK, []archive.Record{})
		return
	}
	limit, err := strconv.ParseInt(r.URL.Query().Get("limit"), 10, 64)
	if err != nil || limit <= 0 || limit > 200 {
		limit = 50
	}
	recs, err := h.Archive.Recent(r.Context(), r.URL.Query().Get("source"), limit)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

// saveWebhook stores the raw body. Failures never fail the webhook.
func (h *Handler) saveWebhook(ctx context.Context, rec archive.Record) {
	if h.Archive == nil {
		return
	}
	rec.ID = uuid.NewString()
	rec.ReceivedAt = time.Now().UTC()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := h.Archive.Save(ctx, rec); err != nil {
		logx.Ctx(ctx, h.Log).Warn("webhook archive failed", zap.String("source", rec.Source), zap.Error(err))
	}
}

// forget releases the dedup mark so the gateway's retry is processed.
func (h *Handler) forget(ctx context.Context, eventID string) {
	if eventID == "" || h.Dedup == nil {
		return
	}
	if err := h.Dedup.Forget(ctx, eventID); err != nil {
		logx.Ctx(ctx, h.Log).Warn("webhook dedup release failed", zap.String("event_id", eventID), zap.Error(err))
	}
}
