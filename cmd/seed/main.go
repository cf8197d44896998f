package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"edubattle/internal/model"
)

func main() {
	mongoURI := os.Getenv("MONGO_URI")
	if mongoURI == "" {
		mongoURI = "mongodb://localhost:27017"
	}
	dbName := os.Getenv("MONGO_DB")
	if dbName == "" {
		dbName = "edubattle"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(ctx)

	quizColl := client.Database(dbName).Collection("quizzes")

	quiz := model.Quiz{
		ID:        "quiz_go_basics",
		TopicID:   "topic_go",
		TopicSlug: "go-fundamentals",
		Title:     "Go Fundamentals",
		Questions: []model.QuizQuestion{
			{
				ID:           "q1",
				Prompt:       "Which keyword declares a new goroutine?",
				Options:      []string{"go", "async", "spawn", "thread"},
				CorrectIndex: 0,
			},
			{
				ID:           "q2",
				Prompt:       "What is the zero value of a pointer?",
				Options:      []string{"0", "nil", "undefined", "empty struct"},
				CorrectIndex: 1,
			},
			{
				ID:           "q3",
				Prompt:       "Which builtin grows a slice?",
				Options:      []string{"push", "grow", "append", "extend"},
				CorrectIndex: 2,
			},
		},
		CreatedAt: time.Now().UTC(),
	}

	if _, err := quizColl.InsertOne(ctx, quiz); err != nil {
		log.Fatalf("Failed to insert quiz: %v", err)
	}

	fmt.Printf("Seeded quiz %s with %d questions\n", quiz.ID, len(quiz.Questions))
}
