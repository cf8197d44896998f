package model

import "time"

// QuizQuestion is one question inside an authored quiz.
type QuizQuestion struct {
	ID           string   `json:"id" bson:"id"`
	Prompt       string   `json:"prompt" bson:"prompt"`
	Options      []string `json:"options" bson:"options"`
	CorrectIndex int      `json:"correctIndex" bson:"correctIndex"`
}

// Quiz is externally-owned content. Battles snapshot its questions at
// creation and never read it again.
type Quiz struct {
	ID        string         `json:"id" bson:"_id"`
	TopicID   string         `json:"topicId" bson:"topicId"`
	TopicSlug string         `json:"topicSlug" bson:"topicSlug"`
	Title     string         `json:"title" bson:"title"`
	Questions []QuizQuestion `json:"questions" bson:"questions"`
	CreatedAt time.Time      `json:"createdAt" bson:"createdAt"`
}

// Snapshot copies the quiz questions into battle-embedded form.
func (q *Quiz) Snapshot() []QuestionSnapshot {
	out := make([]QuestionSnapshot, len(q.Questions))
	for i, qq := range q.Questions {
		out[i] = QuestionSnapshot{
			ID:           qq.ID,
			Prompt:       qq.Prompt,
			Options:      qq.Options,
			CorrectIndex: qq.CorrectIndex,
		}
	}
	return out
}
