package handlers

import (
	"net/http"

	"github.com/Dosada05/competition-system/services"
)

type RatingHandler struct {
	ratingService      services.RatingService
	leaderboardService services.LeaderboardService
}

func NewRatingHandler(rs services.RatingService, ls services.LeaderboardService) *RatingHandler {
	return &RatingHandler{
		ratingService:      rs,
		leaderboardService: ls,
	}
}

// TeamRatingHandler обрабатывает GET /teams/{teamID}/rating?event_id=
func (h *RatingHandler) TeamRatingHandler(w http.ResponseWriter, r *http.Request) {
	teamID, err := getIDFromURL(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	eventID, err := optionalIntQuery(r, "event_id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	rating, err := h.ratingService.AverageRating(r.Context(), teamID, eventID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	env := jsonResponse{"team_id": teamID, "rating": rating}
	if eventID != nil {
		env["event_id"] = *eventID
	}
	if err := writeJSON(w, http.StatusOK, env, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// PlayerTrendHandler обрабатывает GET /players/{playerID}/trend
func (h *RatingHandler) PlayerTrendHandler(w http.ResponseWriter, r *http.Request) {
	playerID, err := getIDFromURL(r, "playerID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	trend, err := h.ratingService.Trend(r.Context(), playerID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"player_id": playerID, "trend": trend}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// LeaderboardHandler обрабатывает GET /seasons/{seasonID}/leaderboard
func (h *RatingHandler) LeaderboardHandler(w http.ResponseWriter, r *http.Request) {
	seasonID, err := getIDFromURL(r, "seasonID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	entries, err := h.leaderboardService.Leaderboard(r.Context(), seasonID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if entries == nil {
		entries = []services.LeaderboardEntry{}
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"season_id": seasonID, "leaderboard": entries}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
