package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/deliverability/internal/domain"
	"github.com/ignite/deliverability/internal/service/dispatch"
	"github.com/ignite/deliverability/internal/service/reputation"
	"github.com/ignite/deliverability/internal/service/warmup"
)

// Dispatcher is the campaign dispatch surface used by the API.
type Dispatcher interface {
	Dispatch(ctx context.Context, campaignID string) (string, error)
	Cancel(ctx context.Context, campaignID string) error
}

// CampaignReader fetches campaign snapshots.
type CampaignReader interface {
	Get(ctx context.Context, id string) (*domain.Campaign, error)
}

// PlatformChecker runs the platform-wide reputation check on demand.
type PlatformChecker interface {
	Check(ctx context.Context) (*reputation.PlatformReport, error)
}

// PoolChecker reports shared identity pool availability.
type PoolChecker interface {
	CheckPool(ctx context.Context) (*warmup.PoolReport, error)
}

// Handlers holds all HTTP handlers and their dependencies.
type Handlers struct {
	dispatcher Dispatcher
	campaigns  CampaignReader
	events     EventSink
	platform   PlatformChecker
	pool       PoolChecker
	archiver   Archiver
}

// NewHandlers creates the handler set.
func NewHandlers(dispatcher Dispatcher, campaigns CampaignReader, events EventSink, platform PlatformChecker, pool PoolChecker, archiver Archiver) *Handlers {
	return &Handlers{
		dispatcher: dispatcher,
		campaigns:  campaigns,
		events:     events,
		platform:   platform,
		pool:       pool,
		archiver:   archiver,
	}
}

// HealthCheck reports service liveness.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// DispatchCampaign starts (or re-joins) a campaign's batch send.
func (h *Handlers) DispatchCampaign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	batchID, err := h.dispatcher.Dispatch(r.Context(), id)
	if err != nil {
		if errors.Is(err, dispatch.ErrNotFound) {
			writeError(w, http.StatusNotFound, "campaign not found")
			return
		}
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"campaign_id": id,
		"batch_id":    batchID,
	})
}

// CancelCampaign raises the cooperative cancellation flag on a campaign's
// running batch.
func (h *Handlers) CancelCampaign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	err := h.dispatcher.Cancel(r.Context(), id)
	switch {
	case errors.Is(err, dispatch.ErrNotFound):
		writeError(w, http.StatusNotFound, "campaign not found")
	case errors.Is(err, dispatch.ErrNoBatch):
		writeError(w, http.StatusConflict, "campaign has no batch to cancel")
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, map[string]string{"campaign_id": id, "status": "cancelling"})
	}
}

// GetCampaign returns one campaign snapshot with its counters.
func (h *Handlers) GetCampaign(w http.ResponseWriter, r *http.Request) {
	c, err := h.campaigns.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, dispatch.ErrNotFound) {
			writeError(w, http.StatusNotFound, "campaign not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// GetPlatformReputation runs the trailing-24h platform check and returns the
// report.
func (h *Handlers) GetPlatformReputation(w http.ResponseWriter, r *http.Request) {
	report, err := h.platform.Check(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// GetPoolReport returns shared identity pool availability.
func (h *Handlers) GetPoolReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.pool.CheckPool(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
