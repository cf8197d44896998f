package service

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"edubattle/internal/model"
)

// MaxPointsPerStep caps a single answer's award. The points value itself is
// client-asserted (see SubmitAnswer); the clamp bounds the damage of a
// misbehaving client without re-deriving the quiz's own scoring.
const MaxPointsPerStep = 1000

// ScoreAnswer converts a submitted answer into the points actually awarded.
// Incorrect or late answers award nothing; otherwise the client-reported
// value is clamped to [0, MaxPointsPerStep].
func ScoreAnswer(isCorrect bool, claimedPoints int, elapsed, stepWindow time.Duration) int {
	if !isCorrect {
		return 0
	}
	if stepWindow > 0 && elapsed > stepWindow {
		return 0
	}
	if claimedPoints < 0 {
		return 0
	}
	if claimedPoints > MaxPointsPerStep {
		return MaxPointsPerStep
	}
	return claimedPoints
}

// Casual-mode rank bonuses, first place first. Ranks past the table get the
// last value.
var expRankBonus = []int{50, 30, 20, 10}

type ranked struct {
	email string
	score int
	rank  int // competition ranking: equal scores share a rank
}

// Settle converts a finished battle's final scores into ledger entries, one
// per participant. Deterministic: the same snapshot always yields the same
// entries. Callers guarantee it runs once per battle; re-entrant finishes
// read back the stored entries instead.
//
// Wagered policy: every participant stakes BetAmount; the pot is
// BetAmount x N. Rank-1 participants split the pot evenly, with any
// indivisible remainder handed out one point each in join order. Losers are
// debited their stake. If every participant shares rank 1 (including a
// battle of one), all stakes are refunded.
func Settle(battle *model.Battle, now time.Time) []model.LedgerEntry {
	standings := rankParticipants(battle.Participants)
	entries := make([]model.LedgerEntry, 0, len(standings))

	switch battle.Mode {
	case model.ModeWagered:
		entries = settleWagered(battle, standings, now)
	case model.ModeCasual:
		entries = settleCasual(battle, standings, now)
	}
	return entries
}

func settleWagered(battle *model.Battle, standings []ranked, now time.Time) []model.LedgerEntry {
	n := len(standings)
	winners := 0
	for _, s := range standings {
		if s.rank == 1 {
			winners++
		}
	}

	entries := make([]model.LedgerEntry, 0, n)
	if winners == n {
		// Everybody tied: stakes go back where they came from.
		for _, s := range standings {
			entries = append(entries, newEntry(battle, s, model.EntryWagerRefund, 0, now))
		}
		return entries
	}

	pot := battle.BetAmount * n
	share := pot / winners
	remainder := pot % winners

	for _, s := range standings {
		if s.rank != 1 {
			entries = append(entries, newEntry(battle, s, model.EntryWagerLoss, -battle.BetAmount, now))
			continue
		}
		delta := share - battle.BetAmount
		if remainder > 0 {
			delta++
			remainder--
		}
		entries = append(entries, newEntry(battle, s, model.EntryWagerWin, delta, now))
	}
	return entries
}

func settleCasual(battle *model.Battle, standings []ranked, now time.Time) []model.LedgerEntry {
	entries := make([]model.LedgerEntry, 0, len(standings))
	for _, s := range standings {
		bonusIdx := s.rank - 1
		if bonusIdx >= len(expRankBonus) {
			bonusIdx = len(expRankBonus) - 1
		}
		delta := s.score/10 + expRankBonus[bonusIdx]
		entries = append(entries, newEntry(battle, s, model.EntryExpAward, delta, now))
	}
	return entries
}

// rankParticipants orders by score descending, join order within equal
// scores, and assigns competition ranks (1, 1, 3, ...).
func rankParticipants(participants []model.Participant) []ranked {
	standings := make([]ranked, len(participants))
	for i, p := range participants {
		standings[i] = ranked{email: p.Email, score: p.Score}
	}
	sort.SliceStable(standings, func(a, b int) bool {
		return standings[a].score > standings[b].score
	})
	for i := range standings {
		if i > 0 && standings[i].score == standings[i-1].score {
			standings[i].rank = standings[i-1].rank
		} else {
			standings[i].rank = i + 1
		}
	}
	return standings
}

func newEntry(battle *model.Battle, s ranked, kind model.EntryKind, delta int, now time.Time) model.LedgerEntry {
	return model.LedgerEntry{
		ID:         uuid.New().String(),
		BattleCode: battle.Code,
		Email:      s.email,
		Kind:       kind,
		Delta:      delta,
		Rank:       s.rank,
		FinalScore: s.score,
		CreatedAt:  now,
	}
}
