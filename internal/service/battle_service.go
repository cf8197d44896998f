package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"edubattle/internal/cache"
	"edubattle/internal/model"
	"edubattle/internal/repository"
)

// DefaultStepDurationSeconds is the per-question time budget applied when a
// create request leaves it unset.
const DefaultStepDurationSeconds = 30

// Identity is a verified user, as resolved by the auth boundary.
type Identity struct {
	Email string
	Name  string
	Image string
}

// CreateInput carries the host's create request.
type CreateInput struct {
	TopicID             string
	TopicSlug           string
	QuizID              string
	StepDurationSeconds int
	Mode                model.Mode
	BetAmount           int
}

// BattleService owns the battle lifecycle: create, join, advance, submit,
// finish. All coordination between concurrent requests happens through the
// battle repo's atomic conditional updates; the service itself keeps no
// cross-request state.
type BattleService struct {
	battleRepo  repository.BattleRepo
	quizRepo    repository.QuizRepo
	ledgerRepo  repository.LedgerRepo
	codeCache   cache.CodeCache
	leaderboard cache.LeaderboardCache
	logger      *zap.Logger
}

// NewBattleService creates a new battle service
func NewBattleService(
	battleRepo repository.BattleRepo,
	quizRepo repository.QuizRepo,
	ledgerRepo repository.LedgerRepo,
	codeCache cache.CodeCache,
	leaderboard cache.LeaderboardCache,
	logger *zap.Logger,
) *BattleService {
	return &BattleService{
		battleRepo:  battleRepo,
		quizRepo:    quizRepo,
		ledgerRepo:  ledgerRepo,
		codeCache:   codeCache,
		leaderboard: leaderboard,
		logger:      logger,
	}
}

// Create resolves the referenced quiz, snapshots its questions, and persists
// a new waiting battle with the host pre-registered as a participant.
func (s *BattleService) Create(ctx context.Context, host Identity, in CreateInput) (*model.Battle, error) {
	if !in.Mode.Valid() {
		in.Mode = model.ModeCasual
	}
	if in.StepDurationSeconds <= 0 {
		in.StepDurationSeconds = DefaultStepDurationSeconds
	}

	quiz, err := s.quizRepo.GetByID(ctx, in.QuizID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve quiz: %w", err)
	}
	if quiz == nil || len(quiz.Questions) == 0 {
		return nil, ErrInvalidContent
	}

	code, err := s.generateCode(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to generate room code: %w", err)
	}

	now := time.Now().UTC()
	battle := &model.Battle{
		Code:                code,
		HostEmail:           host.Email,
		Status:              model.BattleWaiting,
		Mode:                in.Mode,
		BetAmount:           in.BetAmount,
		TopicID:             in.TopicID,
		TopicSlug:           in.TopicSlug,
		QuizID:              in.QuizID,
		Questions:           quiz.Snapshot(),
		StepDurationSeconds: in.StepDurationSeconds,
		CurrentStepIndex:    -1,
		Participants: []model.Participant{{
			Email:    host.Email,
			Name:     host.Name,
			Image:    host.Image,
			Score:    0,
			Answers:  map[string]model.StepAnswer{},
			JoinedAt: now,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.battleRepo.Create(ctx, battle); err != nil {
		return nil, fmt.Errorf("failed to create battle: %w", err)
	}
	if err := s.leaderboard.UpdateScore(ctx, code, host.Email, 0); err != nil {
		s.logger.Warn("leaderboard init failed", zap.String("code", code), zap.Error(err))
	}

	s.logger.Info("battle created",
		zap.String("code", code),
		zap.String("host", host.Email),
		zap.String("mode", string(in.Mode)))
	return battle, nil
}

// Join adds the caller to the battle's participant set. Joining a battle you
// are already in returns the current state unchanged.
func (s *BattleService) Join(ctx context.Context, code string, user Identity) (*model.Battle, error) {
	now := time.Now().UTC()
	p := model.Participant{
		Email:    user.Email,
		Name:     user.Name,
		Image:    user.Image,
		Score:    0,
		Answers:  map[string]model.StepAnswer{},
		JoinedAt: now,
	}

	battle, err := s.battleRepo.AddParticipant(ctx, code, p, now)
	if err == nil {
		if lerr := s.leaderboard.UpdateScore(ctx, code, user.Email, 0); lerr != nil {
			s.logger.Warn("leaderboard init failed", zap.String("code", code), zap.Error(lerr))
		}
		return battle, nil
	}
	if !errors.Is(err, repository.ErrNoMatch) {
		return nil, fmt.Errorf("failed to join battle: %w", err)
	}

	// The insert-if-absent did not fire; find out why.
	battle, err = s.battleRepo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	switch {
	case battle == nil:
		return nil, ErrNotFound
	case battle.ParticipantByEmail(user.Email) != nil:
		return battle, nil // idempotent join
	case battle.Status == model.BattleFinished:
		return nil, ErrAlreadyFinished
	default:
		return nil, fmt.Errorf("failed to join battle %s", code)
	}
}

// AdvanceStep moves the battle to the next question. Only the host may call
// it; advancing past the last question finishes the battle instead.
func (s *BattleService) AdvanceStep(ctx context.Context, code, hostEmail string) (*model.Battle, error) {
	battle, err := s.battleRepo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if battle == nil {
		return nil, ErrNotFound
	}
	if battle.HostEmail != hostEmail {
		return nil, ErrForbidden
	}
	if battle.Status == model.BattleFinished {
		return nil, ErrAlreadyFinished
	}

	next := battle.CurrentStepIndex + 1
	if next >= len(battle.Questions) {
		finished, _, ferr := s.Finish(ctx, code, hostEmail)
		return finished, ferr
	}

	now := time.Now().UTC()
	expiresAt := now.Add(time.Duration(battle.StepDurationSeconds) * time.Second)
	updated, err := s.battleRepo.AdvanceStep(ctx, code, hostEmail, battle.CurrentStepIndex, expiresAt, now)
	if err == nil {
		s.logger.Info("step advanced",
			zap.String("code", code),
			zap.Int("step", updated.CurrentStepIndex))
		return updated, nil
	}
	if !errors.Is(err, repository.ErrNoMatch) {
		return nil, fmt.Errorf("failed to advance step: %w", err)
	}
	return nil, s.classifyAdvanceFailure(ctx, code, hostEmail)
}

func (s *BattleService) classifyAdvanceFailure(ctx context.Context, code, hostEmail string) error {
	battle, err := s.battleRepo.GetByCode(ctx, code)
	if err != nil {
		return err
	}
	switch {
	case battle == nil:
		return ErrNotFound
	case battle.HostEmail != hostEmail:
		return ErrForbidden
	case battle.Status == model.BattleFinished:
		return ErrAlreadyFinished
	default:
		return ErrStepConflict
	}
}

// SubmitAnswer records the caller's answer for the current step, exactly
// once. A second submission for the same step is rejected and does not touch
// the stored state.
func (s *BattleService) SubmitAnswer(ctx context.Context, code, email string, isCorrect bool, claimedPoints int) (*model.Battle, error) {
	battle, err := s.battleRepo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if battle == nil {
		return nil, ErrNotFound
	}
	if battle.ParticipantByEmail(email) == nil {
		return nil, ErrForbidden
	}
	now := time.Now().UTC()
	if !battle.StepOpen(now) {
		return nil, ErrStepClosed
	}

	window := time.Duration(battle.StepDurationSeconds) * time.Second
	elapsed := window - battle.CurrentStepExpiresAt.Sub(now)
	ans := model.StepAnswer{
		IsCorrect:   isCorrect,
		Points:      ScoreAnswer(isCorrect, claimedPoints, elapsed, window),
		SubmittedAt: now,
	}

	updated, err := s.battleRepo.RecordAnswer(ctx, code, email, battle.CurrentStepIndex, ans, now)
	if err == nil {
		if p := updated.ParticipantByEmail(email); p != nil {
			if lerr := s.leaderboard.UpdateScore(ctx, code, email, p.Score); lerr != nil {
				s.logger.Warn("leaderboard update failed", zap.String("code", code), zap.Error(lerr))
			}
		}
		return updated, nil
	}
	if !errors.Is(err, repository.ErrNoMatch) {
		return nil, fmt.Errorf("failed to record answer: %w", err)
	}
	return nil, s.classifySubmitFailure(ctx, code, email, battle.CurrentStepIndex)
}

func (s *BattleService) classifySubmitFailure(ctx context.Context, code, email string, stepIndex int) error {
	battle, err := s.battleRepo.GetByCode(ctx, code)
	if err != nil {
		return err
	}
	if battle == nil {
		return ErrNotFound
	}
	p := battle.ParticipantByEmail(email)
	if p == nil {
		return ErrForbidden
	}
	if _, exists := p.Answers[fmt.Sprintf("%d", stepIndex)]; exists {
		return ErrDuplicateSubmission
	}
	return ErrStepClosed
}

// Finish moves the battle to its terminal state and settles scores into the
// ledger. Exactly one caller wins the terminal transition and computes the
// entries; repeat calls get the stored entries back.
func (s *BattleService) Finish(ctx context.Context, code, hostEmail string) (*model.Battle, []model.LedgerEntry, error) {
	now := time.Now().UTC()
	battle, err := s.battleRepo.MarkFinished(ctx, code, hostEmail, now)
	if err == nil {
		entries := Settle(battle, now)
		if lerr := s.ledgerRepo.InsertEntries(ctx, entries); lerr != nil {
			return nil, nil, fmt.Errorf("failed to persist settlement: %w", lerr)
		}
		if cerr := s.codeCache.Release(ctx, code); cerr != nil {
			s.logger.Warn("code release failed", zap.String("code", code), zap.Error(cerr))
		}
		s.logger.Info("battle finished",
			zap.String("code", code),
			zap.Int("participants", len(battle.Participants)),
			zap.Int("ledgerEntries", len(entries)))
		return battle, entries, nil
	}
	if !errors.Is(err, repository.ErrNoMatch) {
		return nil, nil, fmt.Errorf("failed to finish battle: %w", err)
	}

	battle, err = s.battleRepo.GetByCode(ctx, code)
	if err != nil {
		return nil, nil, err
	}
	switch {
	case battle == nil:
		return nil, nil, ErrNotFound
	case battle.HostEmail != hostEmail:
		return nil, nil, ErrForbidden
	case battle.Status == model.BattleFinished:
		// Idempotent finish: hand back the settlement computed the first time.
		entries, lerr := s.ledgerRepo.GetByBattleCode(ctx, code)
		if lerr != nil {
			return nil, nil, lerr
		}
		return battle, entries, nil
	default:
		return nil, nil, fmt.Errorf("failed to finish battle %s", code)
	}
}

// GetStatus is a pure read. Unknown codes return (nil, nil); the transport
// decides whether that is a 404.
func (s *BattleService) GetStatus(ctx context.Context, code string) (*model.Battle, error) {
	return s.battleRepo.GetByCode(ctx, code)
}

// Results returns the final standings for a battle: stored ledger entries
// plus the Redis leaderboard view.
func (s *BattleService) Results(ctx context.Context, code string) (*model.Battle, []model.LedgerEntry, []cache.LeaderboardEntry, error) {
	battle, err := s.battleRepo.GetByCode(ctx, code)
	if err != nil {
		return nil, nil, nil, err
	}
	if battle == nil {
		return nil, nil, nil, ErrNotFound
	}
	entries, err := s.ledgerRepo.GetByBattleCode(ctx, code)
	if err != nil {
		return nil, nil, nil, err
	}
	top, err := s.leaderboard.GetTop(ctx, code, len(battle.Participants))
	if err != nil {
		s.logger.Warn("leaderboard read failed", zap.String("code", code), zap.Error(err))
		top = nil
	}
	return battle, entries, top, nil
}

// generateCode creates a 6-char alphanumeric code, collision-checked against
// live battles via the Redis reservation and the store itself.
func (s *BattleService) generateCode(ctx context.Context) (string, error) {
	const chars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	const codeLen = 6

	for attempts := 0; attempts < 10; attempts++ {
		b := make([]byte, codeLen)
		if _, err := rand.Read(b); err != nil {
			return "", err
		}

		code := make([]byte, codeLen)
		for i := range code {
			code[i] = chars[int(b[i])%len(chars)]
		}
		codeStr := string(code)

		reserved, err := s.codeCache.Reserve(ctx, codeStr)
		if err != nil {
			return "", err
		}
		if !reserved {
			continue
		}

		// The reservation can outlive Redis restarts; double-check the store.
		exists, err := s.battleRepo.ActiveCodeExists(ctx, codeStr)
		if err != nil {
			return "", err
		}
		if !exists {
			return codeStr, nil
		}
	}

	return "", fmt.Errorf("failed to generate unique room code")
}
