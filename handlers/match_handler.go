package handlers

import (
	"errors"
	"net/http"

	"github.com/Dosada05/competition-system/brackets"
	"github.com/Dosada05/competition-system/middleware"
	"github.com/Dosada05/competition-system/models"
	"github.com/Dosada05/competition-system/services"
)

type MatchHandler struct {
	matchService services.MatchService
}

func NewMatchHandler(ms services.MatchService) *MatchHandler {
	return &MatchHandler{matchService: ms}
}

type updateMatchInput struct {
	Score     *models.Score `json:"score"`
	Completed bool          `json:"completed"`
	WinnerID  *int          `json:"winner_id"`
	Override  bool          `json:"override"`
}

// UpdateMatchHandler обрабатывает PATCH /matches/{matchID}
func (h *MatchHandler) UpdateMatchHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input updateMatchInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.Score == nil {
		badRequestResponse(w, r, errors.New("score is required"))
		return
	}

	upd := brackets.ScoreUpdate{
		Score:     *input.Score,
		Completed: input.Completed,
		WinnerID:  input.WinnerID,
		Override:  input.Override,
	}
	result, err := h.matchService.UpdateMatch(r.Context(), middleware.GrantFromContext(r.Context()), id, upd)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, result, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
