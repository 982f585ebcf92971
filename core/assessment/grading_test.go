package assessment

import (
	"testing"
	"time"

	"github.com/volatiletech/null/v8"
)

func mcQuestion(id, correct string, caseSensitive bool) Question {
	return Question{
		ID:   id,
		Type: QuestionMultipleChoice,
		Config: MultipleChoiceConfig{
			Prompt:        "pick one",
			Choices:       []string{"A", "B", "C"},
			CorrectChoice: correct,
			CaseSensitive: caseSensitive,
		},
	}
}

func Test_grade(t *testing.T) {
	tests := []struct {
		name       string
		test       Test
		answers    map[string]string
		wantScore  null.Int
		wantPassed null.Bool
		wantStatus SubmissionStatus
	}{
		{
			name: "all correct",
			test: Test{PassingScore: 70, Questions: []Question{
				mcQuestion("q1", "A", false),
				mcQuestion("q2", "B", false),
			}},
			answers:    map[string]string{"q1": "A", "q2": "B"},
			wantScore:  null.IntFrom(100),
			wantPassed: null.BoolFrom(true),
			wantStatus: StatusGraded,
		},
		{
			name: "3 of 4 rounds to 75 and passes at 70",
			test: Test{PassingScore: 70, Questions: []Question{
				mcQuestion("q1", "A", false),
				mcQuestion("q2", "B", false),
				mcQuestion("q3", "C", false),
				mcQuestion("q4", "A", false),
			}},
			answers:    map[string]string{"q1": "A", "q2": "B", "q3": "C", "q4": "B"},
			wantScore:  null.IntFrom(75),
			wantPassed: null.BoolFrom(true),
			wantStatus: StatusGraded,
		},
		{
			name: "75 fails at 80",
			test: Test{PassingScore: 80, Questions: []Question{
				mcQuestion("q1", "A", false),
				mcQuestion("q2", "B", false),
				mcQuestion("q3", "C", false),
				mcQuestion("q4", "A", false),
			}},
			answers:    map[string]string{"q1": "A", "q2": "B", "q3": "C", "q4": "B"},
			wantScore:  null.IntFrom(75),
			wantPassed: null.BoolFrom(false),
			wantStatus: StatusGraded,
		},
		{
			name: "case-insensitive match by default",
			test: Test{PassingScore: 100, Questions: []Question{
				mcQuestion("q1", "Apple", false),
			}},
			answers:    map[string]string{"q1": " apple "},
			wantScore:  null.IntFrom(100),
			wantPassed: null.BoolFrom(true),
			wantStatus: StatusGraded,
		},
		{
			name: "case-sensitive when configured",
			test: Test{PassingScore: 100, Questions: []Question{
				mcQuestion("q1", "Apple", true),
			}},
			answers:    map[string]string{"q1": "apple"},
			wantScore:  null.IntFrom(0),
			wantPassed: null.BoolFrom(false),
			wantStatus: StatusGraded,
		},
		{
			name: "written question forces pending review",
			test: Test{PassingScore: 70, Questions: []Question{
				mcQuestion("q1", "A", false),
				{ID: "q2", Type: QuestionWritten, Config: WrittenConfig{Prompt: "explain"}},
			}},
			answers:    map[string]string{"q1": "A", "q2": "because"},
			wantStatus: StatusPendingReview,
		},
		{
			name: "file upload forces pending review",
			test: Test{PassingScore: 70, Questions: []Question{
				{ID: "q1", Type: QuestionFileUpload, Config: FileUploadConfig{Prompt: "upload"}},
			}},
			answers:    map[string]string{"q1": "gs://bucket/essay.pdf"},
			wantStatus: StatusPendingReview,
		},
		{
			name:       "no gradable question forces pending review",
			test:       Test{PassingScore: 70},
			answers:    map[string]string{},
			wantStatus: StatusPendingReview,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, isPassed, status := grade(tt.test, tt.answers)
			if score != tt.wantScore {
				t.Errorf("grade() score = %v, want %v", score, tt.wantScore)
			}
			if isPassed != tt.wantPassed {
				t.Errorf("grade() isPassed = %v, want %v", isPassed, tt.wantPassed)
			}
			if status != tt.wantStatus {
				t.Errorf("grade() status = %v, want %v", status, tt.wantStatus)
			}
		})
	}
}

func Test_computeScore(t *testing.T) {
	tests := []struct {
		correct, total, want int
	}{
		{0, 4, 0},
		{1, 3, 33},
		{2, 3, 67},
		{3, 4, 75},
		{4, 4, 100},
		{1, 6, 17},
	}
	for _, tt := range tests {
		if got := computeScore(tt.correct, tt.total); got != tt.want {
			t.Errorf("computeScore(%d, %d) = %d, want %d", tt.correct, tt.total, got, tt.want)
		}
	}
}

func Test_bestSubmission(t *testing.T) {
	now := time.Now()

	t.Run("no graded submission", func(t *testing.T) {
		if _, ok := bestSubmission([]Submission{{Status: StatusPendingReview}}); ok {
			t.Error("expected no best submission")
		}
	})

	t.Run("highest score wins", func(t *testing.T) {
		best, ok := bestSubmission([]Submission{
			{ID: "s1", Score: null.IntFrom(50), SubmittedAt: now},
			{ID: "s2", Score: null.IntFrom(80), SubmittedAt: now.Add(-time.Hour)},
		})
		if !ok || best.ID != "s2" {
			t.Errorf("bestSubmission() = %v, %v; want s2", best.ID, ok)
		}
	})

	t.Run("most recent wins on tie", func(t *testing.T) {
		best, ok := bestSubmission([]Submission{
			{ID: "s1", Score: null.IntFrom(80), SubmittedAt: now},
			{ID: "s2", Score: null.IntFrom(80), SubmittedAt: now.Add(time.Hour)},
		})
		if !ok || best.ID != "s2" {
			t.Errorf("bestSubmission() = %v, %v; want s2", best.ID, ok)
		}
	})
}
