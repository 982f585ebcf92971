package assessment

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/mwalimu/elimika/core"
)

type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "MULTIPLE_CHOICE"
	QuestionWritten        QuestionType = "WRITTEN"
	QuestionFileUpload     QuestionType = "FILE_UPLOAD"
)

type SubmissionStatus string

const (
	StatusGraded        SubmissionStatus = "GRADED"
	StatusPendingReview SubmissionStatus = "PENDING_REVIEW"
)

// QuestionConfig is the type-specific payload of a Question.
// Grading dispatch is exhaustive over the concrete type.
type QuestionConfig interface {
	QuestionType() QuestionType
	// Sanitized returns a copy safe to expose across the trust boundary
	// to a learner. For multiple choice, the answer key is stripped.
	Sanitized() QuestionConfig
}

// MultipleChoiceConfig is the only auto-gradable question payload.
// CorrectChoice must never reach a learner before grading.
type MultipleChoiceConfig struct {
	Prompt        string   `json:"prompt"`
	Choices       []string `json:"choices"`
	CorrectChoice string   `json:"correct_choice,omitempty"`
	CaseSensitive bool     `json:"case_sensitive"`
}

func (MultipleChoiceConfig) QuestionType() QuestionType { return QuestionMultipleChoice }

func (c MultipleChoiceConfig) Sanitized() QuestionConfig {
	c.CorrectChoice = ""
	return c
}

// IsCorrect compares a submitted value to the answer key: trimmed,
// case-sensitive unless configured otherwise.
func (c MultipleChoiceConfig) IsCorrect(value string) bool {
	submitted := core.CleanString(value)
	want := core.CleanString(c.CorrectChoice)
	if c.CaseSensitive {
		return submitted == want
	}
	return strings.EqualFold(submitted, want)
}

// WrittenConfig requires manual grading by a reviewer.
type WrittenConfig struct {
	Prompt    string `json:"prompt"`
	MaxLength int    `json:"max_length,omitempty"`
}

func (WrittenConfig) QuestionType() QuestionType  { return QuestionWritten }
func (c WrittenConfig) Sanitized() QuestionConfig { return c }

// FileUploadConfig requires manual grading by a reviewer.
type FileUploadConfig struct {
	Prompt              string   `json:"prompt"`
	AllowedContentTypes []string `json:"allowed_content_types,omitempty"`
	MaxSizeBytes        int64    `json:"max_size_bytes,omitempty"`
}

func (FileUploadConfig) QuestionType() QuestionType  { return QuestionFileUpload }
func (c FileUploadConfig) Sanitized() QuestionConfig { return c }

// UnmarshalConfig decodes a raw config payload for the given question type.
func UnmarshalConfig(qt QuestionType, raw []byte) (QuestionConfig, error) {
	switch qt {
	case QuestionMultipleChoice:
		var c MultipleChoiceConfig
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, errors.Wrap(err, "unmarshalling multiple choice config")
		}
		return c, nil
	case QuestionWritten:
		var c WrittenConfig
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, errors.Wrap(err, "unmarshalling written config")
		}
		return c, nil
	case QuestionFileUpload:
		var c FileUploadConfig
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, errors.Wrap(err, "unmarshalling file upload config")
		}
		return c, nil
	}
	return nil, errors.Errorf("unknown question type %q", qt)
}

type Question struct {
	ID       string         `json:"id"`
	TestID   string         `json:"test_id"`
	Type     QuestionType   `json:"type"`
	Position int            `json:"position"`
	Config   QuestionConfig `json:"config"`
}

func (q *Question) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID       string          `json:"id"`
		TestID   string          `json:"test_id"`
		Type     QuestionType    `json:"type"`
		Position int             `json:"position"`
		Config   json.RawMessage `json:"config"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	q.ID = raw.ID
	q.TestID = raw.TestID
	q.Type = raw.Type
	q.Position = raw.Position
	if len(raw.Config) > 0 {
		cfg, err := UnmarshalConfig(raw.Type, raw.Config)
		if err != nil {
			return err
		}
		q.Config = cfg
	}
	return nil
}

// Test is an ordered question set attached to a course, or to a single
// module when ModuleID is set. MaxAttempts 0 means unlimited.
type Test struct {
	ID           string      `json:"id"`
	CourseID     string      `json:"course_id"`
	ModuleID     null.String `json:"module_id"`
	Title        string      `json:"title"`
	MaxAttempts  int         `json:"max_attempts"`
	PassingScore int         `json:"passing_score"` // percentage, 0-100
	IsRequired   bool        `json:"is_required"`
	IsFinalExam  bool        `json:"is_final_exam"`
	CreatedAt    time.Time   `json:"created_at"` // UTC
	UpdatedAt    time.Time   `json:"updated_at"` // UTC
	Questions    []Question  `json:"questions,omitempty"`
}

// CourseLevel reports whether the test covers the whole course rather
// than a single module. Course-level tests are gated on full module
// completion.
func (t Test) CourseLevel() bool {
	return !t.ModuleID.Valid
}

type Answer struct {
	ID           string `json:"id"`
	SubmissionID string `json:"submission_id"`
	QuestionID   string `json:"question_id"`
	Value        string `json:"value"`
}

type Submission struct {
	ID            string           `json:"id"`
	TestID        string           `json:"test_id"`
	UserID        string           `json:"user_id"`
	AttemptNumber int              `json:"attempt_number"`
	Status        SubmissionStatus `json:"status"`
	Score         null.Int         `json:"score"`
	IsPassed      null.Bool        `json:"is_passed"`
	SubmittedAt   time.Time        `json:"submitted_at"` // UTC
	Answers       []Answer         `json:"answers,omitempty"`
}

// AttemptStatus summarizes a user's standing on a test.
// AttemptsRemaining is null when attempts are unlimited.
type AttemptStatus struct {
	AttemptsUsed      int      `json:"attempts_used"`
	AttemptsRemaining null.Int `json:"attempts_remaining"`
	BestScore         null.Int `json:"best_score"`
	AlreadyPassed     bool     `json:"already_passed"`
}

// AnswerInput is one submitted answer.
type AnswerInput struct {
	QuestionID string `json:"question_id" validate:"required"`
	Value      string `json:"value"`
}

// NewTest contains information needed to create a new Test.
type NewTest struct {
	Title        string        `json:"title" validate:"required"`
	ModuleID     string        `json:"module_id"` // empty = course-level
	MaxAttempts  int           `json:"max_attempts" validate:"gte=0"`
	PassingScore int           `json:"passing_score" validate:"gte=0,lte=100"`
	IsRequired   bool          `json:"is_required"`
	IsFinalExam  bool          `json:"is_final_exam"`
	Questions    []NewQuestion `json:"questions" validate:"required,min=1,dive"`
}

// NewQuestion carries the per-type payload of a new question; fields not
// belonging to the declared type are ignored.
type NewQuestion struct {
	Type                QuestionType `json:"type" validate:"required"`
	Prompt              string       `json:"prompt" validate:"required"`
	Choices             []string     `json:"choices"`
	CorrectChoice       string       `json:"correct_choice"`
	CaseSensitive       bool         `json:"case_sensitive"`
	MaxLength           int          `json:"max_length"`
	AllowedContentTypes []string     `json:"allowed_content_types"`
	MaxSizeBytes        int64        `json:"max_size_bytes"`
}

func (nt *NewTest) Validate() error {
	nt.Title = core.CleanString(nt.Title)
	if err := core.Validate.Struct(nt); err != nil {
		return err
	}
	for i := range nt.Questions {
		if err := nt.Questions[i].validate(); err != nil {
			return err
		}
	}
	return nil
}

func (nq *NewQuestion) validate() error {
	nq.Prompt = core.CleanString(nq.Prompt)
	switch nq.Type {
	case QuestionMultipleChoice:
		if len(nq.Choices) < 2 {
			return core.NewValidationError(nil, core.FieldError{
				Field: "choices", Error: "at least 2 choices are required",
			})
		}
		nq.CorrectChoice = core.CleanString(nq.CorrectChoice)
		var found bool
		for _, choice := range nq.Choices {
			if choice == nq.CorrectChoice {
				found = true
				break
			}
		}
		if !found {
			return core.NewValidationError(nil, core.FieldError{
				Field: "correct_choice", Error: "correct choice must be one of the choices",
			})
		}
	case QuestionWritten, QuestionFileUpload:
		// prompt-only; nothing more to check
	default:
		return core.NewValidationError(nil, core.FieldError{
			Field: "type", Error: "unknown question type",
		})
	}
	return nil
}

func (nq NewQuestion) config() QuestionConfig {
	switch nq.Type {
	case QuestionMultipleChoice:
		return MultipleChoiceConfig{
			Prompt:        nq.Prompt,
			Choices:       nq.Choices,
			CorrectChoice: nq.CorrectChoice,
			CaseSensitive: nq.CaseSensitive,
		}
	case QuestionWritten:
		return WrittenConfig{
			Prompt:    nq.Prompt,
			MaxLength: nq.MaxLength,
		}
	case QuestionFileUpload:
		return FileUploadConfig{
			Prompt:              nq.Prompt,
			AllowedContentTypes: nq.AllowedContentTypes,
			MaxSizeBytes:        nq.MaxSizeBytes,
		}
	}
	return nil
}
