package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"edubattle/internal/model"
)

// ErrNoMatch is returned by conditional updates when no document satisfied
// the filter. The caller re-reads the battle to classify why.
var ErrNoMatch = errors.New("no battle matched the update condition")

// BattleRepo is the single source of truth for battle state. Every mutation
// is one atomic conditional update keyed by room code; concurrent requests
// coordinate only through these operations, never through read-then-replace.
type BattleRepo interface {
	Create(ctx context.Context, battle *model.Battle) error
	GetByCode(ctx context.Context, code string) (*model.Battle, error)
	ActiveCodeExists(ctx context.Context, code string) (bool, error)

	// AddParticipant inserts p if no participant with the same email exists
	// and the battle is still joinable. Insert-if-absent in one update so
	// concurrent joiners cannot clobber each other.
	AddParticipant(ctx context.Context, code string, p model.Participant, now time.Time) (*model.Battle, error)

	// AdvanceStep moves currentStepIndex from fromIndex to fromIndex+1 for
	// the given host. The fromIndex condition makes the increment a
	// compare-and-set, so a doubled request advances at most once.
	AdvanceStep(ctx context.Context, code, hostEmail string, fromIndex int, expiresAt, now time.Time) (*model.Battle, error)

	// RecordAnswer writes the participant's answer for stepIndex and bumps
	// their score, only if the step is the current one, still open, and the
	// participant has no answer for it yet.
	RecordAnswer(ctx context.Context, code, email string, stepIndex int, ans model.StepAnswer, now time.Time) (*model.Battle, error)

	// MarkFinished flips the battle to finished for the given host.
	MarkFinished(ctx context.Context, code, hostEmail string, now time.Time) (*model.Battle, error)
}

type battleRepo struct {
	collection *mongo.Collection
}

// NewBattleRepo creates a battle repository over the battles collection.
func NewBattleRepo(db *mongo.Database) BattleRepo {
	return &battleRepo{collection: db.Collection("battles")}
}

// EnsureBattleIndexes creates the lookup index for room codes.
func EnsureBattleIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection("battles").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "code", Value: 1}},
	})
	return err
}

func (r *battleRepo) Create(ctx context.Context, battle *model.Battle) error {
	_, err := r.collection.InsertOne(ctx, battle)
	return err
}

func (r *battleRepo) GetByCode(ctx context.Context, code string) (*model.Battle, error) {
	var battle model.Battle
	err := r.collection.FindOne(ctx, bson.M{"code": code}).Decode(&battle)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil // battle not found
		}
		return nil, err
	}
	return &battle, nil
}

func (r *battleRepo) ActiveCodeExists(ctx context.Context, code string) (bool, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{
		"code":   code,
		"status": bson.M{"$in": []model.BattleStatus{model.BattleWaiting, model.BattleInProgress}},
	})
	return n > 0, err
}

func (r *battleRepo) AddParticipant(ctx context.Context, code string, p model.Participant, now time.Time) (*model.Battle, error) {
	filter := bson.M{
		"code":               code,
		"status":             bson.M{"$in": []model.BattleStatus{model.BattleWaiting, model.BattleInProgress}},
		"participants.email": bson.M{"$ne": p.Email},
	}
	update := bson.M{
		"$push": bson.M{"participants": p},
		"$set":  bson.M{"updatedAt": now},
	}
	return r.findOneAndUpdate(ctx, filter, update)
}

func (r *battleRepo) AdvanceStep(ctx context.Context, code, hostEmail string, fromIndex int, expiresAt, now time.Time) (*model.Battle, error) {
	filter := bson.M{
		"code":             code,
		"hostEmail":        hostEmail,
		"status":           bson.M{"$ne": model.BattleFinished},
		"currentStepIndex": fromIndex,
	}
	update := bson.M{
		"$inc": bson.M{"currentStepIndex": 1},
		"$set": bson.M{
			"status":               model.BattleInProgress,
			"currentStepExpiresAt": expiresAt,
			"updatedAt":            now,
		},
	}
	return r.findOneAndUpdate(ctx, filter, update)
}

func (r *battleRepo) RecordAnswer(ctx context.Context, code, email string, stepIndex int, ans model.StepAnswer, now time.Time) (*model.Battle, error) {
	answerKey := fmt.Sprintf("answers.%d", stepIndex)
	filter := bson.M{
		"code":                 code,
		"status":               model.BattleInProgress,
		"currentStepIndex":     stepIndex,
		"currentStepExpiresAt": bson.M{"$gte": now},
		"participants": bson.M{"$elemMatch": bson.M{
			"email":   email,
			answerKey: bson.M{"$exists": false},
		}},
	}
	update := bson.M{
		"$set": bson.M{
			"participants.$." + answerKey: ans,
			"updatedAt":                   now,
		},
		"$inc": bson.M{"participants.$.score": ans.Points},
	}
	return r.findOneAndUpdate(ctx, filter, update)
}

func (r *battleRepo) MarkFinished(ctx context.Context, code, hostEmail string, now time.Time) (*model.Battle, error) {
	filter := bson.M{
		"code":      code,
		"hostEmail": hostEmail,
		"status":    bson.M{"$ne": model.BattleFinished},
	}
	update := bson.M{
		"$set": bson.M{
			"status":     model.BattleFinished,
			"finishedAt": now,
			"updatedAt":  now,
		},
	}
	return r.findOneAndUpdate(ctx, filter, update)
}

func (r *battleRepo) findOneAndUpdate(ctx context.Context, filter, update bson.M) (*model.Battle, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var battle model.Battle
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&battle)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNoMatch
		}
		return nil, err
	}
	return &battle, nil
}
