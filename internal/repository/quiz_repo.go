package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"edubattle/internal/model"
)

// QuizRepo reads externally-owned quiz content. Battles only touch it once,
// at creation, to snapshot questions.
type QuizRepo interface {
	GetByID(ctx context.Context, id string) (*model.Quiz, error)
	Create(ctx context.Context, quiz *model.Quiz) error
}

type quizRepo struct {
	collection *mongo.Collection
}

// NewQuizRepo creates a quiz repository over the quizzes collection.
func NewQuizRepo(db *mongo.Database) QuizRepo {
	return &quizRepo{collection: db.Collection("quizzes")}
}

func (r *quizRepo) GetByID(ctx context.Context, id string) (*model.Quiz, error) {
	var quiz model.Quiz
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&quiz)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil // quiz not found
		}
		return nil, err
	}
	return &quiz, nil
}

func (r *quizRepo) Create(ctx context.Context, quiz *model.Quiz) error {
	_, err := r.collection.InsertOne(ctx, quiz)
	return err
}
