package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/query"
	"expensetracker/internal/viewstate"
)

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner, err := ownerFrom(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	window, err := core.ParseTimeWindow(r.URL.Query().Get("window"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	c := viewstate.NewStatsController(s.gw, owner, s.viewOptions(ctx)...)
	defer c.Close()

	c.SetWindow(window)
	if err := c.Reload(ctx); err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Failed to load stats",
			log.FieldOwnerID, owner,
			log.FieldWindow, window,
			log.FieldError, err)
		writeError(w, r, http.StatusBadGateway, lastError(c.Errors(), err))
		return
	}
	writeJSON(w, r, http.StatusOK, statsSnapshot(c, window))
}

// handleStatsStream sends a server-sent "stats" event after every recompute
// and an "error" event for transport errors, until the client goes away.
func (s *Server) handleStatsStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner, err := ownerFrom(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	window, err := core.ParseTimeWindow(r.URL.Query().Get("window"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	logger := log.FromContext(ctx)
	loop := viewstate.NewLoop(logger)
	defer loop.Close()

	c := viewstate.NewStatsController(s.gw, owner, s.viewOptions(ctx, viewstate.WithScheduler(loop))...)
	defer c.Close()

	// Observers run on the loop; they must not block it, so only the latest
	// pending event is kept.
	events := make(chan sseEvent, 1)
	push := func(ev sseEvent) {
		select {
		case events <- ev:
		default:
			select {
			case <-events:
			default:
			}
			events <- ev
		}
	}
	// ByCategory is set last in a recompute, so the other outputs are current.
	cancelStats := c.ByCategory().Observe(func(_ []query.CategoryTotal) {
		push(sseEvent{name: "stats", data: statsSnapshot(c, window)})
	})
	defer cancelStats()
	cancelErrs := c.Errors().Observe(func(msg string) {
		push(sseEvent{name: "error", data: errorResponse{Error: msg}})
	})
	defer cancelErrs()

	c.SetWindow(window)
	if err := c.Start(ctx); err != nil {
		writeError(w, r, http.StatusBadGateway, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	logger.InfoContext(ctx, "Stats stream opened", log.FieldOwnerID, owner, log.FieldWindow, window)
	for {
		select {
		case <-ctx.Done():
			logger.InfoContext(ctx, "Stats stream closed", log.FieldOwnerID, owner)
			return
		case <-s.streams.Done():
			logger.InfoContext(ctx, "Stats stream closed for shutdown", log.FieldOwnerID, owner)
			return
		case ev := <-events:
			if err := ev.write(w); err != nil {
				logger.WarnContext(ctx, "Failed to write stats event", log.FieldError, err)
				return
			}
			flusher.Flush()
		}
	}
}

type sseEvent struct {
	name string
	data any
}

func (e sseEvent) write(w http.ResponseWriter) error {
	b, err := json.Marshal(e.data)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.name, b)
	return err
}

func statsSnapshot(c *viewstate.StatsController, window core.TimeWindow) statsResponse {
	items, _ := c.Filtered().Get()
	total, _ := c.Total().Get()
	daily, _ := c.Daily().Get()
	cats, _ := c.ByCategory().Get()
	return statsResponse{
		Window:     window,
		Total:      total,
		Count:      len(items),
		Daily:      nonNil(daily),
		ByCategory: nonNil(cats),
		Items:      nonNil(items),
	}
}
