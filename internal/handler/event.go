package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/camda/countdown/internal/model"
	"github.com/camda/countdown/internal/recurrence"
	"github.com/camda/countdown/internal/store"
	"github.com/camda/countdown/internal/websocket"
)

type EventHandler struct {
	eventStore *store.EventStore
	hub        *websocket.Hub
	logger     *slog.Logger
}

func NewEventHandler(es *store.EventStore, hub *websocket.Hub, logger *slog.Logger) *EventHandler {
	return &EventHandler{eventStore: es, hub: hub, logger: logger}
}

func (h *EventHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

type eventRequest struct {
	Title     string `json:"title"`
	Location  string `json:"location"`
	Anchor    string `json:"anchor"`
	Color     string `json:"color"`
	TextColor string `json:"text_color"`

	Recurrence    string `json:"recurrence"`
	IntervalCount int    `json:"interval_count"`
	IntervalUnit  string `json:"interval_unit"`
	DayOfMonth    *int   `json:"day_of_month"`
	Month         *int   `json:"month"`
	WeekOfMonth   *int   `json:"week_of_month"`
	Weekday       *int   `json:"weekday"`

	Notify              bool `json:"notify"`
	NotifyMinutesBefore int  `json:"notify_minutes_before"`
	Pinned              bool `json:"pinned"`
}

func (h *EventHandler) parseAndValidate(r *http.Request, w http.ResponseWriter) (*model.Event, bool) {
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return nil, false
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title is required"})
		return nil, false
	}

	if _, err := model.ParseLocalTime(req.Anchor); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "anchor must be YYYY-MM-DDTHH:MM format"})
		return nil, false
	}

	if req.NotifyMinutesBefore < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "notify_minutes_before must not be negative"})
		return nil, false
	}

	if req.Recurrence == "" {
		req.Recurrence = "none"
	}
	if req.Color == "" {
		req.Color = "#4F46E5"
	}
	if req.TextColor == "" {
		req.TextColor = "#FFFFFF"
	}

	return &model.Event{
		Title:               req.Title,
		Location:            strings.TrimSpace(req.Location),
		Anchor:              req.Anchor,
		Color:               req.Color,
		TextColor:           req.TextColor,
		Recurrence:          req.Recurrence,
		IntervalCount:       req.IntervalCount,
		IntervalUnit:        req.IntervalUnit,
		DayOfMonth:          req.DayOfMonth,
		Month:               req.Month,
		WeekOfMonth:         req.WeekOfMonth,
		Weekday:             req.Weekday,
		Notify:              req.Notify,
		NotifyMinutesBefore: req.NotifyMinutesBefore,
		Pinned:              req.Pinned,
	}, true
}

// countdownParts breaks the remaining time into display units.
type countdownParts struct {
	Days    int `json:"days"`
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
}

// eventView is an event plus its resolved occurrence, as the countdown
// display consumes it.
type eventView struct {
	model.Event
	NextOccurrence string         `json:"next_occurrence"`
	Countdown      countdownParts `json:"countdown"`
	Elapsed        bool           `json:"elapsed"`
	RuleText       string         `json:"rule_text"`
	WeekLabel      string         `json:"week_label,omitempty"`
}

func viewOf(e *model.Event, now time.Time) eventView {
	v := eventView{Event: *e}

	target := e.DueOccurrence()
	if target.IsZero() {
		v.Elapsed = true
		return v
	}

	v.NextOccurrence = model.FormatLocalTime(target)
	rule := e.Rule()
	v.RuleText = rule.Describe(e.AnchorTime())
	if rule.Kind == recurrence.MonthlyNthWeekday || rule.Kind == recurrence.YearlyNthWeekday {
		// "4th Thursday" vs "Last Thursday" for the anchor's week, so
		// edit forms can preselect the right choice.
		v.WeekLabel = recurrence.WeekLabel(e.AnchorTime())
	}

	remaining := target.Sub(now)
	if remaining <= 0 {
		v.Elapsed = true
		return v
	}

	v.Countdown = countdownParts{
		Days:    int(remaining / (24 * time.Hour)),
		Hours:   int(remaining % (24 * time.Hour) / time.Hour),
		Minutes: int(remaining % time.Hour / time.Minute),
	}
	return v
}

func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	e, ok := h.parseAndValidate(r, w)
	if !ok {
		return
	}

	created, err := h.eventStore.Create(e)
	if err != nil {
		h.logger.Error("create event", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create event"})
		return
	}

	h.broadcast(websocket.EventMessage("created", created.ID))
	writeJSON(w, http.StatusCreated, viewOf(created, time.Now()))
}

// List returns all events with resolved occurrences, pinned events first,
// the rest ordered by how soon they come due.
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	events, err := h.eventStore.List()
	if err != nil {
		h.logger.Error("list events", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list events"})
		return
	}

	now := time.Now()
	views := make([]eventView, 0, len(events))
	for i := range events {
		views = append(views, viewOf(&events[i], now))
	}

	sort.SliceStable(views, func(i, j int) bool {
		if views[i].Pinned != views[j].Pinned {
			return views[i].Pinned
		}
		if views[i].Elapsed != views[j].Elapsed {
			return views[j].Elapsed
		}
		return views[i].NextOccurrence < views[j].NextOccurrence
	})

	writeJSON(w, http.StatusOK, views)
}

func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	event, err := h.eventStore.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get event"})
		return
	}
	if event == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "event not found"})
		return
	}

	writeJSON(w, http.StatusOK, viewOf(event, time.Now()))
}

func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	existing, err := h.eventStore.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get event"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "event not found"})
		return
	}

	e, ok := h.parseAndValidate(r, w)
	if !ok {
		return
	}
	// Editing the schedule invalidates the completion checkpoint.
	e.CompletedThrough = nil

	updated, err := h.eventStore.Update(id, e)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update event"})
		return
	}

	h.broadcast(websocket.EventMessage("updated", id))
	writeJSON(w, http.StatusOK, viewOf(updated, time.Now()))
}

func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	existing, err := h.eventStore.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get event"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "event not found"})
		return
	}

	if err := h.eventStore.Delete(id); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete event"})
		return
	}

	h.broadcast(websocket.EventMessage("deleted", id))
	w.WriteHeader(http.StatusNoContent)
}

// Complete marks everything due through now as done, advancing the
// countdown to the first occurrence still ahead. Once a non-recurring
// event is completed it stays elapsed.
func (h *EventHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	event, err := h.eventStore.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get event"})
		return
	}
	if event == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "event not found"})
		return
	}

	// Completing through now catches a neglected recurring event up in
	// one action instead of one click per missed occurrence.
	checkpoint := model.FormatLocalTime(time.Now())
	updated, err := h.eventStore.SetCompletedThrough(id, &checkpoint)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to complete event"})
		return
	}

	h.broadcast(websocket.EventMessage("completed", id))
	writeJSON(w, http.StatusOK, viewOf(updated, time.Now()))
}

// Uncomplete clears the completion checkpoint, returning the countdown
// to the anchor-based occurrence.
func (h *EventHandler) Uncomplete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	event, err := h.eventStore.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get event"})
		return
	}
	if event == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "event not found"})
		return
	}

	updated, err := h.eventStore.SetCompletedThrough(id, nil)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update event"})
		return
	}

	h.broadcast(websocket.EventMessage("completed", id))
	writeJSON(w, http.StatusOK, viewOf(updated, time.Now()))
}

type pinRequest struct {
	Pinned bool `json:"pinned"`
}

func (h *EventHandler) Pin(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var req pinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	event, err := h.eventStore.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get event"})
		return
	}
	if event == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "event not found"})
		return
	}

	updated, err := h.eventStore.SetPinned(id, req.Pinned)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update event"})
		return
	}

	h.broadcast(websocket.EventMessage("pinned", id))
	writeJSON(w, http.StatusOK, viewOf(updated, time.Now()))
}
