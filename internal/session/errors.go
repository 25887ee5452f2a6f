package session

import "errors"

// Validation failures are caller contract violations: rejected
// synchronously, never retried, no partial effect.
var (
	// ErrInvalidSelection means the scenario id is not offered at the
	// session's current stage.
	ErrInvalidSelection = errors.New("scenario not available in current batch")

	// ErrSessionFinished means both batches are done; no further selection
	// or conversation is possible.
	ErrSessionFinished = errors.New("session is finished")

	// ErrNoSelection means no scenario has been selected for the current
	// stage.
	ErrNoSelection = errors.New("no scenario selected")

	// ErrConversationActive rejects operations that require the
	// conversation to be over.
	ErrConversationActive = errors.New("conversation is still active")

	// ErrConversationInactive rejects operations that require an active
	// conversation.
	ErrConversationInactive = errors.New("no active conversation")

	// ErrNoMessages rejects survey submission before any conversation
	// took place.
	ErrNoMessages = errors.New("no conversation to submit feedback for")

	// ErrAlreadySubmitted rejects a second survey submission for the same
	// attempt.
	ErrAlreadySubmitted = errors.New("feedback already submitted for this attempt")

	// ErrCompletionDisabled means no completion client is configured, so
	// conversation operations are blocked.
	ErrCompletionDisabled = errors.New("conversation partner is not configured")
)
