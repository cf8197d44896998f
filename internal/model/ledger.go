package model

import "time"

// EntryKind is the closed set of ledger entry kinds produced by settlement.
type EntryKind string

const (
	EntryWagerWin    EntryKind = "wager_win"
	EntryWagerLoss   EntryKind = "wager_loss"
	EntryWagerRefund EntryKind = "wager_refund"
	EntryExpAward    EntryKind = "exp_award"
)

// Valid reports whether k is a known entry kind.
func (k EntryKind) Valid() bool {
	switch k {
	case EntryWagerWin, EntryWagerLoss, EntryWagerRefund, EntryExpAward:
		return true
	}
	return false
}

// LedgerEntry is one settlement credit or debit for one participant. Entries
// for a battle are written exactly once, when the battle finishes.
type LedgerEntry struct {
	ID         string    `json:"id" bson:"_id"`
	BattleCode string    `json:"battleCode" bson:"battleCode"`
	Email      string    `json:"email" bson:"email"`
	Kind       EntryKind `json:"kind" bson:"kind"`
	Delta      int       `json:"delta" bson:"delta"`
	Rank       int       `json:"rank" bson:"rank"`
	FinalScore int       `json:"finalScore" bson:"finalScore"`
	CreatedAt  time.Time `json:"createdAt" bson:"createdAt"`
}
