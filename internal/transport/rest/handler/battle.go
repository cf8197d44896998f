package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"edubattle/internal/model"
	"edubattle/internal/service"
	"edubattle/internal/transport/rest/middleware"
)

// BattleHandler handles battle lifecycle endpoints
type BattleHandler struct {
	battleSvc *service.BattleService
}

// NewBattleHandler creates a new battle handler
func NewBattleHandler(battleSvc *service.BattleService) *BattleHandler {
	return &BattleHandler{battleSvc: battleSvc}
}

func identityFrom(r *http.Request) service.Identity {
	return service.Identity{
		Email: middleware.GetEmail(r.Context()),
		Name:  middleware.GetName(r.Context()),
	}
}

// CreateBattleRequest is the request body for creating a battle
type CreateBattleRequest struct {
	TopicID             string     `json:"topicId"`
	TopicSlug           string     `json:"topicSlug"`
	QuizID              string     `json:"quizId"`
	Type                model.Mode `json:"type"`
	BetAmount           int        `json:"betAmount"`
	StepDurationSeconds int        `json:"stepDurationSeconds"`
}

// Create handles POST /v1/battles
func (h *BattleHandler) Create(w http.ResponseWriter, r *http.Request) {
	host := identityFrom(r)
	if host.Email == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreateBattleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	battle, err := h.battleSvc.Create(r.Context(), host, service.CreateInput{
		TopicID:             req.TopicID,
		TopicSlug:           req.TopicSlug,
		QuizID:              req.QuizID,
		Mode:                req.Type,
		BetAmount:           req.BetAmount,
		StepDurationSeconds: req.StepDurationSeconds,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidContent) {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeError(w, statusForError(err), err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, battle)
}

// JoinRequest is the request body for joining a battle
type JoinRequest struct {
	Code string `json:"code"`
}

// Join handles POST /v1/battles/join
func (h *BattleHandler) Join(w http.ResponseWriter, r *http.Request) {
	user := identityFrom(r)
	if user.Email == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req JoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Code == "" {
		writeError(w, http.StatusBadRequest, "code is required")
		return
	}

	battle, err := h.battleSvc.Join(r.Context(), req.Code, user)
	if err != nil {
		// Unknown and finished rooms are both a plain client error here.
		if errors.Is(err, service.ErrNotFound) || errors.Is(err, service.ErrAlreadyFinished) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, statusForError(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, battle)
}

// Get handles GET /v1/battles/{code}
func (h *BattleHandler) Get(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	battle, err := h.battleSvc.GetStatus(r.Context(), code)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if battle == nil {
		writeError(w, http.StatusNotFound, "battle not found")
		return
	}

	writeJSON(w, http.StatusOK, battle)
}

// UpdateRequest is the request body for PATCH /v1/battles/{code}
type UpdateRequest struct {
	Action string `json:"action,omitempty"`
}

// Update handles PATCH /v1/battles/{code}: action "finish" ends the battle,
// anything else advances the step.
func (h *BattleHandler) Update(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	host := identityFrom(r)

	var req UpdateRequest
	if r.Body != nil {
		// An empty body means a plain step advance.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	if req.Action == "finish" {
		battle, entries, err := h.battleSvc.Finish(r.Context(), code, host.Email)
		if err != nil {
			writeError(w, statusForError(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"battle": battle,
			"ledger": entries,
		})
		return
	}

	battle, err := h.battleSvc.AdvanceStep(r.Context(), code, host.Email)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, battle)
}

// SubmitRequest is the request body for submitting an answer
type SubmitRequest struct {
	IsCorrect bool `json:"isCorrect"`
	Points    int  `json:"points"`
}

// Submit handles POST /v1/battles/{code}/submit
func (h *BattleHandler) Submit(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	user := identityFrom(r)

	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	battle, err := h.battleSvc.SubmitAnswer(r.Context(), code, user.Email, req.IsCorrect, req.Points)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, battle)
}

// Results handles GET /v1/battles/{code}/results
func (h *BattleHandler) Results(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	battle, entries, leaderboard, err := h.battleSvc.Results(r.Context(), code)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"battle":      battle,
		"ledger":      entries,
		"leaderboard": leaderboard,
	})
}
