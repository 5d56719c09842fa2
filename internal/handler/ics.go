package handler

import (
	"log/slog"
	"net/http"

	"github.com/camda/countdown/internal/ics"
	"github.com/camda/countdown/internal/store"
)

type ICSHandler struct {
	eventStore *store.EventStore
	logger     *slog.Logger
}

func NewICSHandler(es *store.EventStore, logger *slog.Logger) *ICSHandler {
	return &ICSHandler{eventStore: es, logger: logger}
}

// Feed handles GET /calendar.ics so calendar apps can subscribe to the
// event list.
func (h *ICSHandler) Feed(w http.ResponseWriter, r *http.Request) {
	events, err := h.eventStore.List()
	if err != nil {
		h.logger.Error("list events for feed", "error", err)
		http.Error(w, "failed to build feed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="countdown.ics"`)
	w.Write([]byte(ics.Feed(events, "Countdown")))
}
