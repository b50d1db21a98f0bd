package services

import (
	"context"
	"sort"
	"time"

	"github.com/Dosada05/competition-system/brackets"
	"github.com/Dosada05/competition-system/models"
	"github.com/Dosada05/competition-system/repositories"
)

// ------------------------
// In-memory store
// ------------------------

// memStore backs every fake repository. fakeTx snapshots it before a unit of
// work and restores the snapshot when the unit fails.
type memStore struct {
	events       map[int]*models.Event
	matches      map[int]*models.Match
	participants map[int]*models.Participant
	teams        map[int]*models.Team
	players      map[int]*models.Player
	roster       map[int][]int      // team id -> player ids
	overrides    map[[2]int]float64 // (player id, event id) -> rating
	changes      map[int]models.RatingChange
	nextID       int
	now          time.Time
}

func newMemStore() *memStore {
	return &memStore{
		events:       map[int]*models.Event{},
		matches:      map[int]*models.Match{},
		participants: map[int]*models.Participant{},
		teams:        map[int]*models.Team{},
		players:      map[int]*models.Player{},
		roster:       map[int][]int{},
		overrides:    map[[2]int]float64{},
		changes:      map[int]models.RatingChange{},
		nextID:       1000,
		now:          time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (s *memStore) id() int {
	s.nextID++
	return s.nextID
}

func (s *memStore) clone() *memStore {
	c := newMemStore()
	for k, v := range s.events {
		e := *v
		e.FinalStandings = append([]int(nil), v.FinalStandings...)
		c.events[k] = &e
	}
	for k, v := range s.matches {
		c.matches[k] = v.Clone()
	}
	for k, v := range s.participants {
		p := *v
		c.participants[k] = &p
	}
	for k, v := range s.teams {
		c.teams[k] = v
	}
	for k, v := range s.players {
		p := *v
		c.players[k] = &p
	}
	for k, v := range s.roster {
		c.roster[k] = append([]int(nil), v...)
	}
	for k, v := range s.overrides {
		c.overrides[k] = v
	}
	for k, v := range s.changes {
		c.changes[k] = v
	}
	c.nextID = s.nextID
	c.now = s.now
	return c
}

func (s *memStore) restore(from *memStore) {
	*s = *from
}

// --- seeding helpers ---

func (s *memStore) addEvent(eventType models.EventType, status models.EventStatus) *models.Event {
	e := &models.Event{ID: s.id(), SeasonID: 1, Name: string(eventType), Type: eventType, Status: status}
	s.events[e.ID] = e
	return e
}

// addTeam creates a team with two players rated rating.
func (s *memStore) addTeam(name, abbr string, rating float64) *models.Team {
	t := &models.Team{ID: s.id(), SeasonID: 1, Name: name, Abbreviation: abbr, Color: "#000000"}
	s.teams[t.ID] = t
	for i := 0; i < 2; i++ {
		p := &models.Player{ID: s.id(), Name: name + " player", GlobalRating: rating}
		s.players[p.ID] = p
		s.roster[t.ID] = append(s.roster[t.ID], p.ID)
	}
	return t
}

func (s *memStore) eventMatches(eventID int) []*models.Match {
	var out []*models.Match
	for _, m := range s.matches {
		if m.EventID == eventID {
			out = append(out, m.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MatchNumber < out[j].MatchNumber })
	return out
}

func (s *memStore) matchByUID(eventID int, uid string) *models.Match {
	for _, m := range s.matches {
		if m.EventID == eventID && m.BracketMatchUID == uid {
			return m.Clone()
		}
	}
	return nil
}

func (s *memStore) participant(eventID, teamID int) *models.Participant {
	for _, p := range s.participants {
		if p.EventID == eventID && p.TeamID == teamID {
			c := *p
			return &c
		}
	}
	return nil
}

func (s *memStore) eventParticipants(eventID int) []models.Participant {
	var out []models.Participant
	for _, p := range s.participants {
		if p.EventID == eventID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seed < out[j].Seed })
	return out
}

func (s *memStore) teamRating(teamID int) float64 {
	var sum float64
	for _, id := range s.roster[teamID] {
		sum += s.players[id].GlobalRating
	}
	return sum / float64(len(s.roster[teamID]))
}

// ------------------------
// Fake Transactor
// ------------------------

type fakeTx struct {
	store     *memStore
	commits   int
	rollbacks int
}

func (f *fakeTx) WithinTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	snapshot := f.store.clone()
	if err := fn(nil); err != nil {
		f.store.restore(snapshot)
		f.rollbacks++
		return err
	}
	f.commits++
	return nil
}

// ------------------------
// Fake Event Repository
// ------------------------

type fakeEvents struct {
	s *memStore
}

func (f *fakeEvents) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Event, error) {
	e, ok := f.s.events[id]
	if !ok {
		return nil, repositories.ErrEventNotFound
	}
	c := *e
	c.FinalStandings = append([]int(nil), e.FinalStandings...)
	return &c, nil
}

func (f *fakeEvents) GetForUpdate(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Event, error) {
	return f.GetByID(ctx, exec, id)
}

func (f *fakeEvents) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, id int, status models.EventStatus) error {
	e, ok := f.s.events[id]
	if !ok {
		return repositories.ErrEventNotFound
	}
	e.Status = status
	if status != models.EventStatusCompleted {
		e.FinalStandings = nil
	}
	return nil
}

func (f *fakeEvents) Complete(ctx context.Context, exec repositories.SQLExecutor, id int, standings []int) error {
	e, ok := f.s.events[id]
	if !ok {
		return repositories.ErrEventNotFound
	}
	e.Status = models.EventStatusCompleted
	e.FinalStandings = append([]int(nil), standings...)
	return nil
}

func (f *fakeEvents) ListCompletedBySeason(ctx context.Context, exec repositories.SQLExecutor, seasonID int) ([]*models.Event, error) {
	var out []*models.Event
	for _, e := range f.s.events {
		if e.SeasonID == seasonID && e.Status == models.EventStatusCompleted {
			c := *e
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ------------------------
// Fake Match Repository
// ------------------------

type fakeMatches struct {
	s *memStore

	CreateFunc func(ctx context.Context, match *models.Match) error
	UpdateFunc func(ctx context.Context, match *models.Match) error
}

func (f *fakeMatches) Create(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) error {
	if f.CreateFunc != nil {
		if err := f.CreateFunc(ctx, match); err != nil {
			return err
		}
	}
	for _, m := range f.s.matches {
		if m.EventID == match.EventID && m.MatchNumber == match.MatchNumber {
			return repositories.ErrMatchNumberInUse
		}
	}
	match.ID = f.s.id()
	match.CreatedAt = f.s.now
	match.UpdatedAt = f.s.now
	f.s.matches[match.ID] = match.Clone()
	return nil
}

func (f *fakeMatches) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Match, error) {
	m, ok := f.s.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	return m.Clone(), nil
}

func (f *fakeMatches) ListByEvent(ctx context.Context, exec repositories.SQLExecutor, eventID int) ([]*models.Match, error) {
	out := f.s.eventMatches(eventID)
	if out == nil {
		out = []*models.Match{}
	}
	return out, nil
}

func (f *fakeMatches) Update(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) error {
	if f.UpdateFunc != nil {
		if err := f.UpdateFunc(ctx, match); err != nil {
			return err
		}
	}
	if _, ok := f.s.matches[match.ID]; !ok {
		return repositories.ErrMatchNotFound
	}
	f.s.matches[match.ID] = match.Clone()
	return nil
}

func (f *fakeMatches) DeleteByEvent(ctx context.Context, exec repositories.SQLExecutor, eventID int) (int64, error) {
	var n int64
	for id, m := range f.s.matches {
		if m.EventID == eventID {
			delete(f.s.matches, id)
			n++
		}
	}
	return n, nil
}

// ------------------------
// Fake Participant Repository
// ------------------------

type fakeParticipants struct {
	s *memStore
}

func (f *fakeParticipants) Create(ctx context.Context, exec repositories.SQLExecutor, p *models.Participant) error {
	for _, existing := range f.s.participants {
		if existing.EventID == p.EventID && (existing.TeamID == p.TeamID || existing.Seed == p.Seed) {
			return repositories.ErrParticipantConflict
		}
	}
	p.ID = f.s.id()
	p.CreatedAt = f.s.now
	c := *p
	f.s.participants[p.ID] = &c
	return nil
}

func (f *fakeParticipants) ListByEvent(ctx context.Context, exec repositories.SQLExecutor, eventID int) ([]models.Participant, error) {
	out := f.s.eventParticipants(eventID)
	if out == nil {
		out = []models.Participant{}
	}
	return out, nil
}

func (f *fakeParticipants) find(eventID, teamID int) (*models.Participant, error) {
	for _, p := range f.s.participants {
		if p.EventID == eventID && p.TeamID == teamID {
			return p, nil
		}
	}
	return nil, repositories.ErrParticipantNotFound
}

func (f *fakeParticipants) SetElimination(ctx context.Context, exec repositories.SQLExecutor, eventID, teamID int, round *int) error {
	p, err := f.find(eventID, teamID)
	if err != nil {
		return err
	}
	p.IsEliminated = round != nil
	p.EliminationRound = round
	return nil
}

func (f *fakeParticipants) SetFinalPosition(ctx context.Context, exec repositories.SQLExecutor, eventID, teamID, position int) error {
	p, err := f.find(eventID, teamID)
	if err != nil {
		return err
	}
	p.FinalPosition = &position
	return nil
}

func (f *fakeParticipants) DeleteByEvent(ctx context.Context, exec repositories.SQLExecutor, eventID int) error {
	for id, p := range f.s.participants {
		if p.EventID == eventID {
			delete(f.s.participants, id)
		}
	}
	return nil
}

// ------------------------
// Fake Team Repository
// ------------------------

type fakeTeams struct {
	s *memStore
}

func (f *fakeTeams) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Team, error) {
	t, ok := f.s.teams[id]
	if !ok {
		return nil, repositories.ErrTeamNotFound
	}
	return t, nil
}

func (f *fakeTeams) ListByIDs(ctx context.Context, exec repositories.SQLExecutor, ids []int) (map[int]*models.Team, error) {
	out := make(map[int]*models.Team, len(ids))
	for _, id := range ids {
		if t, ok := f.s.teams[id]; ok {
			out[id] = t
		}
	}
	return out, nil
}

func (f *fakeTeams) ListBySeason(ctx context.Context, exec repositories.SQLExecutor, seasonID int) ([]*models.Team, error) {
	var out []*models.Team
	for _, t := range f.s.teams {
		if t.SeasonID == seasonID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeTeams) Rosters(ctx context.Context, exec repositories.SQLExecutor, teamIDs []int, eventID *int) (map[int][]models.Player, error) {
	out := make(map[int][]models.Player, len(teamIDs))
	for _, teamID := range teamIDs {
		for _, playerID := range f.s.roster[teamID] {
			p := *f.s.players[playerID]
			if eventID != nil {
				if r, ok := f.s.overrides[[2]int{playerID, *eventID}]; ok {
					p.EventRating = &r
				}
			}
			out[teamID] = append(out[teamID], p)
		}
	}
	return out, nil
}

// ------------------------
// Fake Rating Repository
// ------------------------

type fakeRatings struct {
	s *memStore
}

func (f *fakeRatings) GetPlayer(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Player, error) {
	p, ok := f.s.players[id]
	if !ok {
		return nil, repositories.ErrPlayerNotFound
	}
	c := *p
	return &c, nil
}

func (f *fakeRatings) AdjustRating(ctx context.Context, exec repositories.SQLExecutor, playerID int, delta float64) (float64, error) {
	p, ok := f.s.players[playerID]
	if !ok {
		return 0, repositories.ErrPlayerNotFound
	}
	p.GlobalRating += delta
	return p.GlobalRating, nil
}

func (f *fakeRatings) CreateChange(ctx context.Context, exec repositories.SQLExecutor, change *models.RatingChange) error {
	change.ID = f.s.id()
	if change.CreatedAt.IsZero() {
		change.CreatedAt = f.s.now
	}
	f.s.changes[change.ID] = *change
	return nil
}

func (f *fakeRatings) list(keep func(models.RatingChange) bool) []models.RatingChange {
	var out []models.RatingChange
	for _, c := range f.s.changes {
		if keep(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeRatings) ListChangesByMatch(ctx context.Context, exec repositories.SQLExecutor, matchID int) ([]models.RatingChange, error) {
	return f.list(func(c models.RatingChange) bool { return c.MatchID == matchID }), nil
}

func (f *fakeRatings) ListChangesByEvent(ctx context.Context, exec repositories.SQLExecutor, eventID int) ([]models.RatingChange, error) {
	return f.list(func(c models.RatingChange) bool { return c.EventID == eventID }), nil
}

func (f *fakeRatings) DeleteChangesByMatch(ctx context.Context, exec repositories.SQLExecutor, matchID int) error {
	for id, c := range f.s.changes {
		if c.MatchID == matchID {
			delete(f.s.changes, id)
		}
	}
	return nil
}

func (f *fakeRatings) DeleteChangesByEvent(ctx context.Context, exec repositories.SQLExecutor, eventID int) error {
	for id, c := range f.s.changes {
		if c.EventID == eventID {
			delete(f.s.changes, id)
		}
	}
	return nil
}

func (f *fakeRatings) SumDeltasSince(ctx context.Context, exec repositories.SQLExecutor, playerID int, since time.Time) (float64, error) {
	var sum float64
	for _, c := range f.s.changes {
		if c.PlayerID == playerID && !c.CreatedAt.Before(since) {
			sum += c.Delta
		}
	}
	return sum, nil
}

// ------------------------
// Fake Notifier / Archiver
// ------------------------

type sentMessage struct {
	Room    string
	Message interface{}
}

type fakeNotifier struct {
	sent []sentMessage
}

func (f *fakeNotifier) BroadcastToRoom(roomID string, message interface{}) {
	f.sent = append(f.sent, sentMessage{Room: roomID, Message: message})
}

type fakeArchiver struct {
	archived []int
	err      error
}

func (f *fakeArchiver) Archive(ctx context.Context, eventID int, snapshot interface{}) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.archived = append(f.archived, eventID)
	return "https://archive.example.com/snapshot.json", nil
}

// ------------------------
// Test environment
// ------------------------

type testEnv struct {
	store        *memStore
	tx           *fakeTx
	matchRepo    *fakeMatches
	notifier     *fakeNotifier
	archiver     *fakeArchiver
	admin        models.AdminGrant
	ratings      RatingService
	brackets     BracketService
	matches      MatchService
	events       EventService
	leaderboards LeaderboardService
}

func newTestEnv() *testEnv {
	store := newMemStore()
	env := &testEnv{
		store:     store,
		tx:        &fakeTx{store: store},
		matchRepo: &fakeMatches{s: store},
		notifier:  &fakeNotifier{},
		archiver:  &fakeArchiver{},
	}
	grant, err := models.GrantAdmin(models.Principal{UserID: 1, Role: models.RoleAdmin})
	if err != nil {
		panic(err)
	}
	env.admin = grant

	events := &fakeEvents{s: store}
	participants := &fakeParticipants{s: store}
	teams := &fakeTeams{s: store}
	settings := Settings{DefaultPointsTable: models.PointsTable{1: 10, 2: 6, 3: 3}}

	ratingSvc := NewRatingService(teams, &fakeRatings{s: store}, settings)
	ratingSvc.(*ratingService).now = func() time.Time { return store.now }
	env.ratings = ratingSvc

	env.brackets = NewBracketService(BracketServiceDeps{
		Tx: env.tx, Events: events, Matches: env.matchRepo, Participants: participants, Teams: teams,
		ReadEvents: events, ReadMatches: env.matchRepo, ReadParticipants: participants, ReadTeams: teams,
		Ratings: ratingSvc, Notifier: env.notifier, Settings: settings,
	})
	env.matches = NewMatchService(MatchServiceDeps{
		Tx: env.tx, Events: events, Matches: env.matchRepo, Participants: participants, Teams: teams,
		Ratings: ratingSvc, Notifier: env.notifier, Archiver: env.archiver, Settings: settings,
	})
	env.events = NewEventService(EventServiceDeps{
		Tx: env.tx, Events: events, Matches: env.matchRepo, Participants: participants, Teams: teams,
		Notifier: env.notifier, Archiver: env.archiver, Settings: settings,
		Shuffle: func(n int, swap func(i, j int)) {
			for i := 0; i < n/2; i++ {
				swap(i, n-1-i)
			}
		},
	})
	env.leaderboards = NewLeaderboardService(events, teams, settings)
	return env
}

// seededTournament creates an upcoming tournament and n teams seeded in order.
func (env *testEnv) seededTournament(n int) (*models.Event, []models.SeedEntry) {
	event := env.store.addEvent(models.EventTypeTournament, models.EventStatusUpcoming)
	seeds := make([]models.SeedEntry, n)
	for i := range seeds {
		name := string(rune('A' + i))
		team := env.store.addTeam("Team "+name, name+name+name, 5000)
		seeds[i] = models.SeedEntry{TeamID: team.ID, Seed: i + 1}
	}
	return event, seeds
}

func (env *testEnv) messageTypes() []string {
	var out []string
	for _, m := range env.notifier.sent {
		if msg, ok := m.Message.(brackets.WebSocketMessage); ok {
			out = append(out, msg.Type)
		}
	}
	return out
}
