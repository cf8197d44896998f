package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"edubattle/internal/model"
)

// LedgerRepo persists settlement entries. A battle's entries are written in
// one batch, exactly once; GetByBattleCode serves re-entrant finish calls.
type LedgerRepo interface {
	InsertEntries(ctx context.Context, entries []model.LedgerEntry) error
	GetByBattleCode(ctx context.Context, code string) ([]model.LedgerEntry, error)
}

type ledgerRepo struct {
	collection *mongo.Collection
}

// NewLedgerRepo creates a ledger repository over the ledger collection.
func NewLedgerRepo(db *mongo.Database) LedgerRepo {
	return &ledgerRepo{collection: db.Collection("ledger")}
}

// EnsureLedgerIndexes creates the per-battle uniqueness guard: one entry per
// (battleCode, email) pair, so a racing double-settlement cannot double-credit.
func EnsureLedgerIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection("ledger").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "battleCode", Value: 1}, {Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (r *ledgerRepo) InsertEntries(ctx context.Context, entries []model.LedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}
	docs := make([]interface{}, len(entries))
	for i, e := range entries {
		docs[i] = e
	}
	_, err := r.collection.InsertMany(ctx, docs)
	return err
}

func (r *ledgerRepo) GetByBattleCode(ctx context.Context, code string) ([]model.LedgerEntry, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"battleCode": code})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []model.LedgerEntry
	if err = cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
