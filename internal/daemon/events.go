package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"clipforge/internal/api"
	"clipforge/internal/jobs"
	"clipforge/internal/logging"
)

const sseKeepAlive = 15 * time.Second

// handleEvents streams job snapshots as server-sent events: the current
// snapshot first, then every committed snapshot in order until the job is
// terminal. Delivery is at-most-once; a reconnecting client resumes from
// Last-Event-ID.
func (s *apiServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	ctx := r.Context()

	since := s.daemon.hub.Latest(id)
	resumed := false
	if last := strings.TrimSpace(r.Header.Get("Last-Event-ID")); last != "" {
		if parsed, err := strconv.ParseUint(last, 10, 64); err == nil {
			since = parsed
			resumed = true
		}
	}
	job, err := s.ownedJob(r, id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if !resumed {
		if err := writeEvent(w, since, job); err != nil {
			return
		}
		if job.Status.IsTerminal() {
			_ = rc.Flush()
			return
		}
	}
	if err := rc.Flush(); err != nil {
		return
	}

	for {
		waitCtx, cancel := context.WithTimeout(ctx, sseKeepAlive)
		batch, next, err := s.daemon.hub.Fetch(waitCtx, id, since, true)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, context.DeadlineExceeded) {
				if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
					return
				}
				if err := rc.Flush(); err != nil {
					return
				}
				continue
			}
			logging.WithContext(ctx, s.logger).Warn("event stream ended",
				logging.Error(err),
				logging.String(logging.FieldJobID, id),
				logging.String(logging.FieldEventType, "sse_stream_error"),
				logging.String(logging.FieldErrorHint, "client should reconnect"),
			)
			return
		}
		since = next
		for _, evt := range batch {
			if err := writeEvent(w, evt.Sequence, evt.Job); err != nil {
				return
			}
			if evt.Status.IsTerminal() {
				_ = rc.Flush()
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, seq uint64, job jobs.Job) error {
	payload, err := json.Marshal(api.FromJob(job))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "id: %d\nevent: status\ndata: %s\n\n", seq, payload)
	return err
}
