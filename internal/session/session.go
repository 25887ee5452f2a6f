// Package session implements the per-student attempt state machine: scenario
// selection, the conversation with the simulated partner, and survey
// submission with durable recording.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ErumAfzal/Roleplay-App-sub000/internal/catalog"
	"github.com/ErumAfzal/Roleplay-App-sub000/internal/model"
	"github.com/ErumAfzal/Roleplay-App-sub000/internal/survey"
)

// Completer produces the simulated partner's next reply from the full
// conversation history, including the seeded persona instruction.
type Completer interface {
	Complete(ctx context.Context, messages []model.Message) (string, error)
}

// Recorder durably stores one completed attempt.
type Recorder interface {
	RecordAttempt(ctx context.Context, entry model.LogEntry) error
}

// Shown in place of the partner's reply when the completion call fails.
// The failure stays part of the conversation record, so the log reflects
// what the student actually saw.
var completionErrorText = map[model.Language]string{
	model.LangEN: "[The conversation partner is currently unavailable. Your message was not lost. Please try again.]",
	model.LangDE: "[Der Gesprächspartner ist momentan nicht erreichbar. Ihre Nachricht ist nicht verloren. Bitte versuchen Sie es erneut.]",
}

// Session owns the state of one student's progression through the two
// scenario batches. All mutation goes through its methods; the mutex is
// held across the completion call so no second message can be posted while
// one is in flight.
type Session struct {
	mu sync.Mutex

	catalog   *catalog.Catalog
	questions *survey.Set
	completer Completer
	recorder  Recorder

	studentID  string
	language   model.Language
	stage      model.Stage
	scenarioID int // 0 means nothing selected

	messages           []model.Message
	conversationActive bool
	surveySubmitted    bool

	lastSeen time.Time
}

// State is a read-only snapshot of a session for rendering.
type State struct {
	StudentID          string         `json:"student_id"`
	Language           model.Language `json:"language"`
	Stage              model.Stage    `json:"batch_stage"`
	ScenarioID         int            `json:"scenario_id"`
	MessageCount       int            `json:"message_count"`
	ConversationActive bool           `json:"conversation_active"`
	SurveySubmitted    bool           `json:"survey_submitted"`
}

func newSession(c *catalog.Catalog, q *survey.Set, comp Completer, rec Recorder, lang model.Language) *Session {
	return &Session{
		catalog:   c,
		questions: q,
		completer: comp,
		recorder:  rec,
		language:  lang,
		stage:     model.StageBatch1,
		lastSeen:  time.Now(),
	}
}

// State returns a snapshot of the session.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		StudentID:          s.studentID,
		Language:           s.language,
		Stage:              s.stage,
		ScenarioID:         s.scenarioID,
		MessageCount:       len(s.messages),
		ConversationActive: s.conversationActive,
		SurveySubmitted:    s.surveySubmitted,
	}
}

// Messages returns a copy of the current conversation.
func (s *Session) Messages() []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Transcript returns the human-readable transcript of the current
// conversation in the session language.
func (s *Session) Transcript() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.Transcript(s.messages, s.language)
}

// SetStudentID records the free-text student identifier. It is carried
// into the log record and never validated beyond trimming.
func (s *Session) SetStudentID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.studentID = strings.TrimSpace(id)
}

// Select picks a scenario and language for the current stage. If the
// effective (scenario, language, stage) triple changes, any conversation
// in progress is discarded: selection and conversation cannot be
// decoupled mid-attempt.
func (s *Session) Select(scenarioID int, lang model.Language) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if s.stage == model.StageFinished {
		return ErrSessionFinished
	}
	sc, err := s.catalog.Get(scenarioID)
	if err != nil {
		return fmt.Errorf("%w: id %d", ErrInvalidSelection, scenarioID)
	}
	if sc.Batch != s.stage.Batch() {
		return fmt.Errorf("%w: scenario %d belongs to batch %d, current stage offers batch %d",
			ErrInvalidSelection, scenarioID, sc.Batch, s.stage.Batch())
	}

	if scenarioID != s.scenarioID || lang != s.language {
		s.resetAttempt()
	}
	s.scenarioID = scenarioID
	s.language = lang
	return nil
}

// StartAttempt begins (or restarts) the conversation for the selected
// scenario. The message list is seeded with exactly one system entry
// built from the scenario's hidden persona script.
func (s *Session) StartAttempt() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if s.stage == model.StageFinished {
		return ErrSessionFinished
	}
	if s.completer == nil {
		return ErrCompletionDisabled
	}
	if s.scenarioID == 0 {
		return ErrNoSelection
	}
	sc, err := s.catalog.Get(s.scenarioID)
	if err != nil || sc.Batch != s.stage.Batch() {
		return fmt.Errorf("%w: id %d", ErrInvalidSelection, s.scenarioID)
	}

	s.messages = []model.Message{{
		Speaker: model.SpeakerSystem,
		Text:    buildPersonaPrompt(sc, s.language),
	}}
	s.conversationActive = true
	s.surveySubmitted = false
	return nil
}

// PostUserMessage appends the student's message and the partner's reply.
// A completion failure is not an error of this operation: the failure is
// surfaced in-band as the partner's turn and the conversation stays open.
// The two appended messages are returned.
func (s *Session) PostUserMessage(ctx context.Context, text string) ([]model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if !s.conversationActive {
		return nil, ErrConversationInactive
	}
	if s.completer == nil {
		return nil, ErrCompletionDisabled
	}

	s.messages = append(s.messages, model.Message{Speaker: model.SpeakerUser, Text: text})

	reply, err := s.completer.Complete(ctx, s.messages)
	if err != nil {
		slog.Error("completion failed", "scenario", s.scenarioID, "error", err)
		reply = completionErrorText[s.language]
	}
	s.messages = append(s.messages, model.Message{Speaker: model.SpeakerPartner, Text: reply})

	pair := make([]model.Message, 2)
	copy(pair, s.messages[len(s.messages)-2:])
	return pair, nil
}

// EndAttempt closes the conversation. Messages are kept for the survey
// and the log record.
func (s *Session) EndAttempt() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if !s.conversationActive {
		return ErrConversationInactive
	}
	s.conversationActive = false
	return nil
}

// SubmitSurvey validates the answers, records the completed attempt, and
// advances the stage. If recording fails the session is left unchanged so
// the student can retry without losing the conversation.
func (s *Session) SubmitSurvey(ctx context.Context, answers model.Answers) (model.LogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if s.conversationActive {
		return model.LogEntry{}, ErrConversationActive
	}
	// Checked before the message count: a successful submission clears
	// the messages, so the repeat case must win until the next attempt
	// resets the flag.
	if s.surveySubmitted {
		return model.LogEntry{}, ErrAlreadySubmitted
	}
	if len(s.messages) == 0 {
		return model.LogEntry{}, ErrNoMessages
	}
	if err := s.questions.Validate(answers); err != nil {
		return model.LogEntry{}, fmt.Errorf("invalid survey answers: %w", err)
	}

	sc, err := s.catalog.Get(s.scenarioID)
	if err != nil {
		return model.LogEntry{}, fmt.Errorf("%w: id %d", ErrInvalidSelection, s.scenarioID)
	}

	msgs := make([]model.Message, len(s.messages))
	copy(msgs, s.messages)
	entry := model.LogEntry{
		Timestamp:   time.Now().UTC(),
		StudentID:   s.studentID,
		Language:    s.language,
		Stage:       s.stage,
		ScenarioID:  s.scenarioID,
		Orientation: sc.Orientation,
		Messages:    msgs,
		Answers:     answers,
	}

	if err := s.recorder.RecordAttempt(ctx, entry); err != nil {
		return model.LogEntry{}, err
	}

	s.surveySubmitted = true
	s.stage = s.stage.Next()
	s.messages = nil
	s.scenarioID = 0
	return entry, nil
}

func (s *Session) resetAttempt() {
	s.messages = nil
	s.conversationActive = false
	s.surveySubmitted = false
}

func (s *Session) touch() {
	s.lastSeen = time.Now()
}

// idleFor reports whether the session has been untouched for longer
// than ttl. It never waits for the session mutex: a session busy with
// an in-flight request, including a slow completion call, counts as
// active.
func (s *Session) idleFor(ttl time.Duration) bool {
	if !s.mu.TryLock() {
		return false
	}
	defer s.mu.Unlock()
	return time.Since(s.lastSeen) > ttl
}

// buildPersonaPrompt frames the scenario's persona script as the system
// instruction for the completion service.
func buildPersonaPrompt(sc model.Scenario, lang model.Language) string {
	var sb strings.Builder
	sb.WriteString(sc.Persona.In(lang))
	sb.WriteString("\n\n")
	if lang == model.LangDE {
		sb.WriteString("Bleiben Sie durchgehend in dieser Rolle. Antworten Sie auf Deutsch, ")
		sb.WriteString("in kurzen, gesprochenen Sätzen, wie in einem echten Gespräch. ")
		sb.WriteString("Erwähnen Sie niemals, dass Sie eine KI sind oder dass dies eine Übung ist.")
	} else {
		sb.WriteString("Stay in this role throughout. Reply in English, ")
		sb.WriteString("in short spoken sentences, as in a real conversation. ")
		sb.WriteString("Never mention that you are an AI or that this is an exercise.")
	}
	return sb.String()
}
