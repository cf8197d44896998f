package model

import "time"

type BattleStatus string

const (
	BattleWaiting    BattleStatus = "waiting"
	BattleInProgress BattleStatus = "in_progress"
	BattleFinished   BattleStatus = "finished"
)

// Mode is the closed set of battle modes. Settlement switches over it
// exhaustively; adding a mode without extending Settle is a compile-visible
// change, not a silently-ignored string.
type Mode string

const (
	ModeCasual  Mode = "casual"
	ModeWagered Mode = "wagered"
)

// Valid reports whether m is a known battle mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeCasual, ModeWagered:
		return true
	}
	return false
}

// StepAnswer is one participant's answer record for a single step.
type StepAnswer struct {
	IsCorrect   bool      `json:"isCorrect" bson:"isCorrect"`
	Points      int       `json:"points" bson:"points"`
	SubmittedAt time.Time `json:"submittedAt" bson:"submittedAt"`
}

// Participant is one player inside a battle. Answers are keyed by the
// stringified step index so a step can hold at most one record per player.
type Participant struct {
	Email    string                `json:"email" bson:"email"`
	Name     string                `json:"name" bson:"name"`
	Image    string                `json:"image,omitempty" bson:"image,omitempty"`
	Score    int                   `json:"score" bson:"score"`
	Answers  map[string]StepAnswer `json:"answers" bson:"answers"`
	JoinedAt time.Time             `json:"joinedAt" bson:"joinedAt"`
}

// QuestionSnapshot is a question copied out of the quiz at battle creation.
// Later edits to the quiz never change an in-flight battle.
type QuestionSnapshot struct {
	ID           string   `json:"id" bson:"id"`
	Prompt       string   `json:"prompt" bson:"prompt"`
	Options      []string `json:"options" bson:"options"`
	CorrectIndex int      `json:"-" bson:"correctIndex"`
}

// Battle is the full state of one live battle session, one document per room
// code. The code is the natural key; participants keep join order.
type Battle struct {
	Code                 string             `json:"code" bson:"code"`
	HostEmail            string             `json:"hostEmail" bson:"hostEmail"`
	Status               BattleStatus       `json:"status" bson:"status"`
	Mode                 Mode               `json:"type" bson:"type"`
	BetAmount            int                `json:"betAmount" bson:"betAmount"`
	TopicID              string             `json:"topicId" bson:"topicId"`
	TopicSlug            string             `json:"topicSlug" bson:"topicSlug"`
	QuizID               string             `json:"quizId" bson:"quizId"`
	Questions            []QuestionSnapshot `json:"questions" bson:"questions"`
	StepDurationSeconds  int                `json:"stepDurationSeconds" bson:"stepDurationSeconds"`
	CurrentStepIndex     int                `json:"currentStepIndex" bson:"currentStepIndex"`
	CurrentStepExpiresAt time.Time          `json:"currentStepExpiresAt" bson:"currentStepExpiresAt"`
	Participants         []Participant      `json:"participants" bson:"participants"`
	CreatedAt            time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt            time.Time          `json:"updatedAt" bson:"updatedAt"`
	FinishedAt           *time.Time         `json:"finishedAt,omitempty" bson:"finishedAt,omitempty"`
}

// ParticipantByEmail returns the participant entry for email, or nil.
func (b *Battle) ParticipantByEmail(email string) *Participant {
	for i := range b.Participants {
		if b.Participants[i].Email == email {
			return &b.Participants[i]
		}
	}
	return nil
}

// Active reports whether the battle still accepts joins.
func (b *Battle) Active() bool {
	return b.Status == BattleWaiting || b.Status == BattleInProgress
}

// StepOpen reports whether the current step accepts submissions at now.
func (b *Battle) StepOpen(now time.Time) bool {
	return b.Status == BattleInProgress &&
		b.CurrentStepIndex >= 0 &&
		!now.After(b.CurrentStepExpiresAt)
}
