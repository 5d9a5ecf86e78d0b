// internal/api/status/handlers.go
package status

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/a-h/templ"
	"github.com/rs/zerolog/log"

	"github.com/codr1/courtside/internal/api/apiutil"
	"github.com/codr1/courtside/internal/api/htmx"
	"github.com/codr1/courtside/internal/courtstatus"
	"github.com/codr1/courtside/internal/ratelimit"
	"github.com/codr1/courtside/internal/request"
)

const (
	// StatusUpdatedEvent is sent in HX-Trigger after a manual refresh.
	StatusUpdatedEvent = "court-status-updated"

	defaultHeartbeat = 25 * time.Second
	refreshTimeout   = 15 * time.Second
)

var (
	manager      *courtstatus.Manager
	limiter      *ratelimit.Limiter
	trustProxy   bool
	heartbeat    = defaultHeartbeat
	handlersOnce sync.Once
)

type Deps struct {
	Manager    *courtstatus.Manager
	Limiter    *ratelimit.Limiter
	TrustProxy bool
	// Heartbeat is the idle interval between SSE keepalive comments.
	Heartbeat time.Duration
}

type statusResponse struct {
	CourtID   int64                     `json:"courtId"`
	Court     string                    `json:"court"`
	Status    courtstatus.DerivedStatus `json:"status"`
	IsLoading bool                      `json:"isLoading"`
}

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(deps Deps) {
	if deps.Manager == nil {
		return
	}
	handlersOnce.Do(func() {
		manager = deps.Manager
		limiter = deps.Limiter
		trustProxy = deps.TrustProxy
		heartbeat = defaultHeartbeat
		if deps.Heartbeat > 0 {
			heartbeat = deps.Heartbeat
		}
	})
}

// GET /
func HandleBoardPage(w http.ResponseWriter, r *http.Request) {
	if manager == nil {
		log.Ctx(r.Context()).Error().Msg("Court status manager not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	courts := manager.Courts()
	widgets := make([]widgetData, 0, len(courts))
	for _, court := range courts {
		poller, ok := manager.Poller(court.ID)
		if !ok {
			continue
		}
		widgets = append(widgets, widgetData{
			Court:     court,
			Status:    poller.Status(),
			IsLoading: poller.IsLoading(),
		})
	}

	renderHTMLComponent(r.Context(), w, boardPageComponent(widgets), "Failed to render status board", "Failed to render status board")
}

// GET /api/v1/courts/{court_id}/status
func HandleCourtStatus(w http.ResponseWriter, r *http.Request) {
	poller, ok := pollerFromRequest(w, r)
	if !ok {
		return
	}
	writeStatus(w, r, poller, poller.Status())
}

// POST /api/v1/courts/{court_id}/status/refresh
func HandleStatusRefresh(w http.ResponseWriter, r *http.Request) {
	poller, ok := pollerFromRequest(w, r)
	if !ok {
		return
	}

	if limiter != nil {
		ip := ratelimit.GetClientIP(r, trustProxy)
		key := ip
		if key == "" {
			key = r.RemoteAddr
		}
		result := limiter.Allow(key)
		if !result.Allowed {
			ratelimit.LogRateLimitExceeded("status_refresh", key, ip, result)
			w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(result.RetryAfter)))
			apiutil.WriteError(w, r, http.StatusTooManyRequests, "Too many refresh requests, try again shortly")
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), refreshTimeout)
	defer cancel()

	current := poller.Refresh(ctx)
	log.Ctx(r.Context()).Debug().
		Int64("court_id", poller.Court().ID).
		Str("facility_status", string(current.FacilityStatus)).
		Msg("Manual court status refresh")

	htmx.SetTrigger(w, StatusUpdatedEvent)
	writeStatus(w, r, poller, current)
}

// GET /api/v1/courts/{court_id}/status/stream
func HandleStatusStream(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	poller, ok := pollerFromRequest(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		logger.Error().Msg("Response writer does not support streaming")
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	// The server write timeout would otherwise cut long-lived streams.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	updates, unsubscribe := poller.Subscribe()
	defer unsubscribe()

	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case current, open := <-updates:
			if !open {
				return
			}
			if err := writeEvent(w, "status", newStatusResponse(poller, current)); err != nil {
				logger.Debug().Err(err).Msg("Status stream closed")
				return
			}
			flusher.Flush()
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func pollerFromRequest(w http.ResponseWriter, r *http.Request) (*courtstatus.Poller, bool) {
	if manager == nil {
		log.Ctx(r.Context()).Error().Msg("Court status manager not initialized")
		apiutil.WriteError(w, r, http.StatusInternalServerError, "Internal Server Error")
		return nil, false
	}

	courtID, ok := request.CourtIDFromPath(r)
	if !ok {
		apiutil.WriteError(w, r, http.StatusBadRequest, "Invalid court ID")
		return nil, false
	}

	poller, ok := manager.Poller(courtID)
	if !ok {
		apiutil.WriteError(w, r, http.StatusNotFound, "Court not found")
		return nil, false
	}
	return poller, true
}

func writeStatus(w http.ResponseWriter, r *http.Request, poller *courtstatus.Poller, current courtstatus.DerivedStatus) {
	if htmx.IsRequest(r) {
		data := widgetData{Court: poller.Court(), Status: current, IsLoading: poller.IsLoading()}
		renderHTMLComponent(r.Context(), w, widgetComponent(data), "Failed to render court status", "Failed to render court status")
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, newStatusResponse(poller, current)); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to write court status response")
	}
}

func newStatusResponse(poller *courtstatus.Poller, current courtstatus.DerivedStatus) statusResponse {
	court := poller.Court()
	return statusResponse{
		CourtID:   court.ID,
		Court:     court.Label(),
		Status:    current,
		IsLoading: poller.IsLoading(),
	}
}

func writeEvent(w http.ResponseWriter, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}

func retryAfterSeconds(d time.Duration) int {
	seconds := int(math.Ceil(d.Seconds()))
	if seconds < 1 {
		return 1
	}
	return seconds
}

func renderHTMLComponent(ctx context.Context, w http.ResponseWriter, component templ.Component, logMsg string, errMsg string) {
	logger := log.Ctx(ctx)
	var buf bytes.Buffer
	if err := component.Render(ctx, &buf); err != nil {
		logger.Error().Err(err).Msg(logMsg)
		http.Error(w, errMsg, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html")
	if _, err := w.Write(buf.Bytes()); err != nil {
		logger.Error().Err(err).Msg("Failed to write response")
	}
}
