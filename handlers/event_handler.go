package handlers

import (
	"errors"
	"net/http"

	"github.com/Dosada05/competition-system/middleware"
	"github.com/Dosada05/competition-system/models"
	"github.com/Dosada05/competition-system/services"
)

type EventHandler struct {
	eventService   services.EventService
	bracketService services.BracketService
}

func NewEventHandler(es services.EventService, bs services.BracketService) *EventHandler {
	return &EventHandler{
		eventService:   es,
		bracketService: bs,
	}
}

type generateBracketInput struct {
	Seeds []models.SeedEntry `json:"seeds"`
	// Start defaults to true; false keeps the event upcoming with a pre-generated bracket.
	Start *bool `json:"start"`
}

type teamListInput struct {
	TeamIDs []int `json:"team_ids"`
}

// GetEventHandler обрабатывает GET /events/{eventID}
func (h *EventHandler) GetEventHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "eventID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	event, err := h.eventService.GetEvent(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"event": event}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetBracketHandler обрабатывает GET /events/{eventID}/bracket
func (h *EventHandler) GetBracketHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "eventID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	bracket, err := h.bracketService.GetBracket(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"bracket": bracket}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GenerateBracketHandler обрабатывает POST /events/{eventID}/bracket
func (h *EventHandler) GenerateBracketHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "eventID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input generateBracketInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	start := input.Start == nil || *input.Start

	bracket, err := h.bracketService.GenerateBracket(r.Context(), middleware.GrantFromContext(r.Context()), id, input.Seeds, start)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"bracket": bracket}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ResetBracketHandler обрабатывает DELETE /events/{eventID}/bracket?confirm=true
func (h *EventHandler) ResetBracketHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "eventID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if r.URL.Query().Get("confirm") != "true" {
		mapServiceErrorToHTTP(w, r, services.ErrResetNotConfirmed)
		return
	}

	if err := h.bracketService.ResetBracket(r.Context(), middleware.GrantFromContext(r.Context()), id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// StartEventHandler обрабатывает POST /events/{eventID}/start
func (h *EventHandler) StartEventHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "eventID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	event, err := h.eventService.StartEvent(r.Context(), middleware.GrantFromContext(r.Context()), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"event": event}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// CompleteEventHandler обрабатывает POST /events/{eventID}/complete
func (h *EventHandler) CompleteEventHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "eventID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	event, err := h.eventService.CompleteEvent(r.Context(), middleware.GrantFromContext(r.Context()), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"event": event}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// CreateCombinedMatchHandler обрабатывает POST /events/{eventID}/combined
func (h *EventHandler) CreateCombinedMatchHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "eventID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input teamListInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	bracket, err := h.eventService.CreateCombinedMatch(r.Context(), middleware.GrantFromContext(r.Context()), id, input.TeamIDs)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"bracket": bracket}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// RecordStandingsHandler обрабатывает POST /events/{eventID}/standings
func (h *EventHandler) RecordStandingsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "eventID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input teamListInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if len(input.TeamIDs) == 0 {
		badRequestResponse(w, r, errors.New("team_ids must not be empty"))
		return
	}

	event, err := h.eventService.RecordStandings(r.Context(), middleware.GrantFromContext(r.Context()), id, input.TeamIDs)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"event": event}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
