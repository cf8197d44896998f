package service

import "errors"

// Failure classes surfaced by the battle engine. Handlers map these to HTTP
// status codes; nothing below is retried by the engine itself.
var (
	ErrUnauthorized        = errors.New("missing or invalid identity")
	ErrForbidden           = errors.New("identity not allowed to perform this action")
	ErrNotFound            = errors.New("battle not found")
	ErrAlreadyFinished     = errors.New("battle already finished")
	ErrStepClosed          = errors.New("current step is closed for submissions")
	ErrNotStarted          = errors.New("battle has not started")
	ErrDuplicateSubmission = errors.New("answer already submitted for this step")
	ErrInvalidContent      = errors.New("referenced quiz could not be resolved")
	ErrStepConflict        = errors.New("step advanced concurrently")
)
