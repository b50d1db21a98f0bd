package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/Dosada05/competition-system/brackets"
	"github.com/Dosada05/competition-system/middleware"
	"github.com/Dosada05/competition-system/models"
	"github.com/Dosada05/competition-system/repositories"
	"github.com/Dosada05/competition-system/services"
)

type fakeEventService struct {
	GetEventFunc            func(ctx context.Context, eventID int) (*models.Event, error)
	StartEventFunc          func(ctx context.Context, grant models.AdminGrant, eventID int) (*models.Event, error)
	CompleteEventFunc       func(ctx context.Context, grant models.AdminGrant, eventID int) (*models.Event, error)
	CreateCombinedMatchFunc func(ctx context.Context, grant models.AdminGrant, eventID int, teamIDs []int) (*brackets.BracketView, error)
	RecordStandingsFunc     func(ctx context.Context, grant models.AdminGrant, eventID int, teamIDs []int) (*models.Event, error)
}

func (f *fakeEventService) GetEvent(ctx context.Context, eventID int) (*models.Event, error) {
	return f.GetEventFunc(ctx, eventID)
}

func (f *fakeEventService) StartEvent(ctx context.Context, grant models.AdminGrant, eventID int) (*models.Event, error) {
	return f.StartEventFunc(ctx, grant, eventID)
}

func (f *fakeEventService) CompleteEvent(ctx context.Context, grant models.AdminGrant, eventID int) (*models.Event, error) {
	return f.CompleteEventFunc(ctx, grant, eventID)
}

func (f *fakeEventService) CreateCombinedMatch(ctx context.Context, grant models.AdminGrant, eventID int, teamIDs []int) (*brackets.BracketView, error) {
	return f.CreateCombinedMatchFunc(ctx, grant, eventID, teamIDs)
}

func (f *fakeEventService) RecordStandings(ctx context.Context, grant models.AdminGrant, eventID int, teamIDs []int) (*models.Event, error) {
	return f.RecordStandingsFunc(ctx, grant, eventID, teamIDs)
}

type fakeBracketService struct {
	GenerateBracketFunc func(ctx context.Context, grant models.AdminGrant, eventID int, seeds []models.SeedEntry, start bool) (*brackets.BracketView, error)
	GetBracketFunc      func(ctx context.Context, eventID int) (*brackets.BracketView, error)
	ResetBracketFunc    func(ctx context.Context, grant models.AdminGrant, eventID int) error
}

func (f *fakeBracketService) GenerateBracket(ctx context.Context, grant models.AdminGrant, eventID int, seeds []models.SeedEntry, start bool) (*brackets.BracketView, error) {
	return f.GenerateBracketFunc(ctx, grant, eventID, seeds, start)
}

func (f *fakeBracketService) GetBracket(ctx context.Context, eventID int) (*brackets.BracketView, error) {
	return f.GetBracketFunc(ctx, eventID)
}

func (f *fakeBracketService) ResetBracket(ctx context.Context, grant models.AdminGrant, eventID int) error {
	return f.ResetBracketFunc(ctx, grant, eventID)
}

type fakeMatchService struct {
	UpdateMatchFunc func(ctx context.Context, grant models.AdminGrant, matchID int, upd brackets.ScoreUpdate) (*services.MatchUpdate, error)
}

func (f *fakeMatchService) UpdateMatch(ctx context.Context, grant models.AdminGrant, matchID int, upd brackets.ScoreUpdate) (*services.MatchUpdate, error) {
	return f.UpdateMatchFunc(ctx, grant, matchID, upd)
}

type fakeRatingService struct {
	AverageRatingFunc func(ctx context.Context, teamID int, eventID *int) (float64, error)
	TrendFunc         func(ctx context.Context, playerID int) (float64, error)
}

func (f *fakeRatingService) AverageRating(ctx context.Context, teamID int, eventID *int) (float64, error) {
	return f.AverageRatingFunc(ctx, teamID, eventID)
}

func (f *fakeRatingService) WinProbability(ratingA, ratingB float64) (int, int) {
	return 50, 50
}

func (f *fakeRatingService) Trend(ctx context.Context, playerID int) (float64, error) {
	return f.TrendFunc(ctx, playerID)
}

func (f *fakeRatingService) ApplyMatchResult(context.Context, repositories.SQLExecutor, *models.Match) error {
	return nil
}

func (f *fakeRatingService) RevertMatch(context.Context, repositories.SQLExecutor, int) error {
	return nil
}

func (f *fakeRatingService) RevertEvent(context.Context, repositories.SQLExecutor, int) error {
	return nil
}

type fakeLeaderboardService struct {
	LeaderboardFunc func(ctx context.Context, seasonID int) ([]services.LeaderboardEntry, error)
}

func (f *fakeLeaderboardService) Leaderboard(ctx context.Context, seasonID int) ([]services.LeaderboardEntry, error) {
	return f.LeaderboardFunc(ctx, seasonID)
}

var testAdmin = models.Principal{UserID: 1, Role: models.RoleAdmin}

// serve routes one request through a chi router so URL params resolve.
// A non-nil principal is attached to the request context.
func serve(t *testing.T, pattern, method, target, body string, principal *models.Principal, h http.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	router := chi.NewRouter()
	router.Method(method, pattern, h)

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	if principal != nil {
		req = req.WithContext(middleware.WithPrincipal(req.Context(), *principal))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}
