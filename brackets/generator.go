package brackets

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/Dosada05/competition-system/models"
)

var (
	ErrNotEnoughTeams = errors.New("at least 2 seeded teams are required")
	ErrDuplicateSeed  = errors.New("seed numbers must be unique")
	ErrDuplicateTeam  = errors.New("a team can only be seeded once")
	ErrSeedGap        = errors.New("seeds must form a contiguous range starting at 1")
)

type GenerateBracketParams struct {
	EventID int
	Seeds   []models.SeedEntry
}

type BracketGenerator interface {
	GenerateBracket(ctx context.Context, params GenerateBracketParams) ([]*BracketMatch, error)

	GetName() string
}

// SourceRef points a bracket slot at the winner or loser of another generated match.
type SourceRef struct {
	MatchUID string
	Winner   bool
}

// BracketMatch is a generated match before it is persisted. Exactly one of
// TeamNID / SourceN is set for every slot.
type BracketMatch struct {
	UID         string
	Side        models.BracketSide
	Kind        models.MatchKind
	Round       int
	MatchNumber int

	Team1ID *int
	Team2ID *int

	Source1 *SourceRef
	Source2 *SourceRef
}

// ToModel converts a generated match into a persistable one. ids must already
// contain the database id of every match referenced by a source.
func (bm *BracketMatch) ToModel(eventID int, ids map[string]int) (*models.Match, error) {
	slot1, err := toSlot(bm.Team1ID, bm.Source1, ids)
	if err != nil {
		return nil, fmt.Errorf("match %s slot 1: %w", bm.UID, err)
	}
	slot2, err := toSlot(bm.Team2ID, bm.Source2, ids)
	if err != nil {
		return nil, fmt.Errorf("match %s slot 2: %w", bm.UID, err)
	}
	return &models.Match{
		EventID:         eventID,
		BracketMatchUID: bm.UID,
		Round:           bm.Round,
		MatchNumber:     bm.MatchNumber,
		Bracket:         bm.Side,
		Kind:            bm.Kind,
		Status:          models.MatchStatusScheduled,
		Team1:           slot1,
		Team2:           slot2,
	}, nil
}

func toSlot(teamID *int, src *SourceRef, ids map[string]int) (models.Slot, error) {
	switch {
	case teamID != nil && src == nil:
		return models.Resolved(*teamID), nil
	case teamID == nil && src != nil:
		id, ok := ids[src.MatchUID]
		if !ok {
			return models.Slot{}, fmt.Errorf("source match %s has not been created", src.MatchUID)
		}
		return models.Pending(id, src.Winner), nil
	}
	return models.Slot{}, models.ErrInvalidSlot
}

// ValidateSeeds checks the seed list and returns team ids ordered by seed.
func ValidateSeeds(seeds []models.SeedEntry) ([]int, error) {
	if len(seeds) < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrNotEnoughTeams, len(seeds))
	}
	sorted := make([]models.SeedEntry, len(seeds))
	copy(sorted, seeds)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Seed < sorted[j].Seed })

	seenTeams := make(map[int]bool, len(sorted))
	teamIDs := make([]int, 0, len(sorted))
	for i, s := range sorted {
		if i > 0 && s.Seed == sorted[i-1].Seed {
			return nil, fmt.Errorf("%w: seed %d is used twice", ErrDuplicateSeed, s.Seed)
		}
		if s.Seed != i+1 {
			return nil, fmt.Errorf("%w: expected seed %d, got %d", ErrSeedGap, i+1, s.Seed)
		}
		if seenTeams[s.TeamID] {
			return nil, fmt.Errorf("%w: team %d", ErrDuplicateTeam, s.TeamID)
		}
		seenTeams[s.TeamID] = true
		teamIDs = append(teamIDs, s.TeamID)
	}
	return teamIDs, nil
}

// SeedOrder returns the bracket positions for a field of size p (a power of two),
// e.g. p=8 -> [1 8 4 5 2 7 3 6]. Adjacent pairs are round-1 matchups and the two
// top seeds land in opposite halves.
func SeedOrder(p int) []int {
	order := []int{1}
	for len(order) < p {
		n := len(order)*2 + 1
		next := make([]int, 0, len(order)*2)
		for _, s := range order {
			next = append(next, s, n-s)
		}
		order = next
	}
	return order
}

// RoundsFor is ceil(log2(n)) for n >= 1.
func RoundsFor(n int) int {
	rounds := 0
	for (1 << rounds) < n {
		rounds++
	}
	return rounds
}
