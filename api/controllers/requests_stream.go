package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/angelmondragon/acertamais-backend/api/responses"
	"github.com/angelmondragon/acertamais-backend/internal/requests"
	pkgerrors "github.com/angelmondragon/acertamais-backend/pkg/errors"
	"github.com/angelmondragon/acertamais-backend/pkg/logger"
)

const DefaultStreamHeartbeat = 25 * time.Second

// RequestsPendingStream serves the caller's pending requests as server-sent
// events. Each "snapshot" event carries the full pending list; comment lines
// keep idle connections open. The subscription is closed when the client
// disconnects.
func RequestsPendingStream(svc requests.Service, heartbeat time.Duration, logg *logger.Logger) http.HandlerFunc {
	if heartbeat <= 0 {
		heartbeat = DefaultStreamHeartbeat
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("request"))
			return
		}
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rc := http.NewResponseController(w)
		ctx := r.Context()

		sub, err := svc.Subscribe(ctx, userID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		defer func() {
			if err := sub.Close(); err != nil && logg != nil {
				logg.Warn(logg.WithField(ctx, "error", err.Error()), "stream.close_failed")
			}
		}()

		// Streams outlive the server write timeout.
		_ = rc.SetWriteDeadline(time.Time{})

		h := w.Header()
		h.Set("Content-Type", "text/event-stream")
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		h.Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)
		if err := rc.Flush(); err != nil {
			if logg != nil {
				logg.Error(ctx, "stream.flush_unsupported", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "flush"))
			}
			return
		}

		ticker := time.NewTicker(heartbeat)
		defer ticker.Stop()

		var seq int
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
					return
				}
			case snap, ok := <-sub.Updates():
				if !ok {
					return
				}
				seq++
				if err := writeEvent(w, seq, "snapshot", snap); err != nil {
					if logg != nil {
						logg.Warn(logg.WithField(ctx, "error", err.Error()), "stream.write_failed")
					}
					return
				}
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, id int, event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", id, event, payload)
	return err
}
