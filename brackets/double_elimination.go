package brackets

import (
	"context"
	"fmt"

	"github.com/Dosada05/competition-system/models"
)

type nodeKind uint8

const (
	nodeBye nodeKind = iota
	nodeTeam
	nodeRef
)

// node is what feeds one side of a template match.
type node struct {
	kind   nodeKind
	teamID int
	ref    string
	winner bool
}

func teamNode(id int) node     { return node{kind: nodeTeam, teamID: id} }
func winnerOf(uid string) node { return node{kind: nodeRef, ref: uid, winner: true} }
func loserOf(uid string) node  { return node{kind: nodeRef, ref: uid, winner: false} }

func (n node) isBye() bool { return n.kind == nodeBye }

type templateMatch struct {
	uid   string
	side  models.BracketSide
	kind  models.MatchKind
	round int
	a, b  node
}

// walkover records where a collapsed match sends its winner and loser.
type walkover struct {
	winner node
	loser  node
}

type DoubleEliminationGenerator struct{}

func NewDoubleEliminationGenerator() BracketGenerator {
	return &DoubleEliminationGenerator{}
}

func (g *DoubleEliminationGenerator) GetName() string {
	return "DoubleElimination"
}

// GenerateBracket lays out the full double-elimination bracket for the seeded
// field. The field is padded to the next power of two; matches against a bye
// are never emitted, their entrant is wired straight into the next match.
func (g *DoubleEliminationGenerator) GenerateBracket(ctx context.Context, params GenerateBracketParams) ([]*BracketMatch, error) {
	teamIDs, err := ValidateSeeds(params.Seeds)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	templates := buildTemplate(teamIDs)
	return collapseByes(templates)
}

func wbUID(round, idx int) string { return fmt.Sprintf("WB-R%d-M%d", round, idx+1) }
func lbUID(round, idx int) string { return fmt.Sprintf("LB-R%d-M%d", round, idx+1) }

const (
	grandFinalUID  = "GF"
	ifNecessaryUID = "GF-IF"
)

// buildTemplate produces every match of a 2^R bracket in play order:
// WB1, then WBr followed by the two losers rounds it feeds, then the finals.
func buildTemplate(teamIDs []int) []templateMatch {
	n := len(teamIDs)
	rounds := RoundsFor(n)
	size := 1 << rounds
	order := SeedOrder(size)

	var out []templateMatch

	// winners round 1
	for i := 0; i < size/2; i++ {
		out = append(out, templateMatch{
			uid:   wbUID(1, i),
			side:  models.BracketWinners,
			kind:  models.MatchKindRegular,
			round: 1,
			a:     seedNode(order[2*i], teamIDs),
			b:     seedNode(order[2*i+1], teamIDs),
		})
	}

	for r := 2; r <= rounds; r++ {
		count := size >> r
		for i := 0; i < count; i++ {
			out = append(out, templateMatch{
				uid:   wbUID(r, i),
				side:  models.BracketWinners,
				kind:  models.MatchKindRegular,
				round: r,
				a:     winnerOf(wbUID(r-1, 2*i)),
				b:     winnerOf(wbUID(r-1, 2*i+1)),
			})
		}
		out = append(out, losersRoundsFedBy(r, size)...)
	}

	lbChampion := loserOf(wbUID(1, 0))
	if rounds >= 2 {
		lbChampion = winnerOf(lbUID(2*(rounds-1), 0))
	}

	out = append(out,
		templateMatch{
			uid:   grandFinalUID,
			side:  models.BracketWinners,
			kind:  models.MatchKindGrandFinal,
			round: rounds + 1,
			a:     winnerOf(wbUID(rounds, 0)),
			b:     lbChampion,
		},
		templateMatch{
			uid:   ifNecessaryUID,
			side:  models.BracketWinners,
			kind:  models.MatchKindIfNecessary,
			round: rounds + 2,
			// the winners-bracket champion keeps slot 1: it is the grand final loser
			// whenever this match is actually played
			a: loserOf(grandFinalUID),
			b: winnerOf(grandFinalUID),
		},
	)
	return out
}

func seedNode(seed int, teamIDs []int) node {
	if seed > len(teamIDs) {
		return node{kind: nodeBye}
	}
	return teamNode(teamIDs[seed-1])
}

// losersRoundsFedBy returns the minor and major losers rounds that become
// playable once winners round wr is done. Losers round 2j (major) takes the
// drop-ins from winners round j+1; round 2j+1 (minor) halves the field.
func losersRoundsFedBy(wr, size int) []templateMatch {
	var out []templateMatch

	// minor round: LB1 pairs winners-round-1 losers, later minors pair LB winners
	minor := 2*wr - 3
	if minor == 1 {
		count := size / 4
		for i := 0; i < count; i++ {
			out = append(out, templateMatch{
				uid:   lbUID(1, i),
				side:  models.BracketLosers,
				kind:  models.MatchKindRegular,
				round: 1,
				a:     loserOf(wbUID(1, 2*i)),
				b:     loserOf(wbUID(1, 2*i+1)),
			})
		}
	} else {
		j := wr - 2
		count := size >> (j + 2)
		for i := 0; i < count; i++ {
			out = append(out, templateMatch{
				uid:   lbUID(minor, i),
				side:  models.BracketLosers,
				kind:  models.MatchKindRegular,
				round: minor,
				a:     winnerOf(lbUID(minor-1, 2*i)),
				b:     winnerOf(lbUID(minor-1, 2*i+1)),
			})
		}
	}

	// major round: survivors meet the losers dropping from winners round wr.
	// Drop-ins are mirrored on alternate rounds to delay rematches.
	j := wr - 1
	major := 2 * j
	count := size >> (j + 1)
	for i := 0; i < count; i++ {
		dropIdx := i
		if j%2 == 1 {
			dropIdx = count - 1 - i
		}
		out = append(out, templateMatch{
			uid:   lbUID(major, i),
			side:  models.BracketLosers,
			kind:  models.MatchKindRegular,
			round: major,
			a:     winnerOf(lbUID(major-1, i)),
			b:     loserOf(wbUID(wr, dropIdx)),
		})
	}
	return out
}

// collapseByes removes every match that has a bye on at least one side and
// rewires its consumers, then numbers the remaining matches in play order.
func collapseByes(templates []templateMatch) ([]*BracketMatch, error) {
	walkovers := make(map[string]walkover)
	resolve := func(n node) node {
		if n.kind != nodeRef {
			return n
		}
		if w, ok := walkovers[n.ref]; ok {
			if n.winner {
				return w.winner
			}
			return w.loser
		}
		return n
	}

	out := make([]*BracketMatch, 0, len(templates))
	for _, t := range templates {
		a, b := resolve(t.a), resolve(t.b)
		switch {
		case a.isBye() && b.isBye():
			walkovers[t.uid] = walkover{winner: a, loser: a}
			continue
		case a.isBye():
			walkovers[t.uid] = walkover{winner: b, loser: a}
			continue
		case b.isBye():
			walkovers[t.uid] = walkover{winner: a, loser: b}
			continue
		}

		bm := &BracketMatch{
			UID:         t.uid,
			Side:        t.side,
			Kind:        t.kind,
			Round:       t.round,
			MatchNumber: len(out) + 1,
		}
		bm.Team1ID, bm.Source1 = fromNode(a)
		bm.Team2ID, bm.Source2 = fromNode(b)
		out = append(out, bm)
	}

	if len(out) == 0 || out[len(out)-1].Kind != models.MatchKindIfNecessary {
		return nil, fmt.Errorf("bracket layout lost its final matches (%d generated)", len(out))
	}
	return out, nil
}

func fromNode(n node) (*int, *SourceRef) {
	if n.kind == nodeTeam {
		id := n.teamID
		return &id, nil
	}
	return nil, &SourceRef{MatchUID: n.ref, Winner: n.winner}
}
