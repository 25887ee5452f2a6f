package model

import (
	"fmt"
	"time"
)

// Language is a supported conversation and interface language.
type Language string

const (
	LangEN Language = "en"
	LangDE Language = "de"
)

// ParseLanguage validates a language code from user input.
func ParseLanguage(s string) (Language, error) {
	switch Language(s) {
	case LangEN, LangDE:
		return Language(s), nil
	}
	return "", fmt.Errorf("unsupported language %q", s)
}

// Text is a bilingual text bundle.
type Text struct {
	EN string `json:"en"`
	DE string `json:"de"`
}

// In returns the text for the given language.
func (t Text) In(lang Language) string {
	if lang == LangDE {
		return t.DE
	}
	return t.EN
}

// Orientation tags a scenario's communication orientation. It is carried
// through to the log record and does not change control flow.
type Orientation string

const (
	OrientationStrategic     Orientation = "strategic"
	OrientationUnderstanding Orientation = "understanding"
)

// Scenario is a fixed bilingual role-play prompt bundle.
type Scenario struct {
	ID          int         `json:"id"`
	Batch       int         `json:"batch"`
	Orientation Orientation `json:"orientation"`
	Title       Text        `json:"title"`
	// Briefing is shown to the student before the conversation.
	Briefing Text `json:"briefing"`
	// Persona is the hidden script for the simulated partner. It is never
	// exposed to the student.
	Persona Text `json:"persona"`
}

// Stage is a session's position in the batch progression. It only ever
// moves forward: batch1 → batch2 → finished.
type Stage string

const (
	StageBatch1   Stage = "batch1"
	StageBatch2   Stage = "batch2"
	StageFinished Stage = "finished"
)

// Batch returns the scenario batch offered at this stage, or 0 for finished.
func (s Stage) Batch() int {
	switch s {
	case StageBatch1:
		return 1
	case StageBatch2:
		return 2
	}
	return 0
}

// Next returns the stage that follows a completed attempt. Finished is
// terminal.
func (s Stage) Next() Stage {
	switch s {
	case StageBatch1:
		return StageBatch2
	case StageBatch2:
		return StageFinished
	}
	return StageFinished
}

// Speaker identifies who produced a conversation message.
type Speaker string

const (
	SpeakerSystem  Speaker = "system"
	SpeakerUser    Speaker = "user"
	SpeakerPartner Speaker = "partner"
)

// Message is a single entry in a conversation.
type Message struct {
	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text"`
}

// Rating bounds for survey answers.
const (
	RatingMin = 1
	RatingMax = 5
)

// SurveyQuestion is one fixed-scale feedback question.
type SurveyQuestion struct {
	Key  string `json:"key"`
	Text Text   `json:"text"`
}

// Answers holds one submitted feedback survey: a rating per question key
// plus a free-text comment.
type Answers struct {
	Ratings map[string]int `json:"ratings"`
	Comment string         `json:"comment"`
}

// LogEntry is the record persisted for one completed attempt. It is
// immutable once constructed.
type LogEntry struct {
	Timestamp   time.Time   `json:"timestamp"`
	StudentID   string      `json:"student_id"`
	Language    Language    `json:"language"`
	Stage       Stage       `json:"batch_stage"`
	ScenarioID  int         `json:"scenario_id"`
	Orientation Orientation `json:"orientation"`
	Messages    []Message   `json:"messages"`
	Answers     Answers     `json:"answers"`
}
