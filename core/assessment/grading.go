package assessment

import (
	"math"

	"github.com/volatiletech/null/v8"
)

// grade auto-scores a submission against the test's answer keys.
// answers maps question ID to the submitted value.
//
// A test containing any WRITTEN or FILE_UPLOAD question lands in
// PENDING_REVIEW with a null score until a reviewer finalizes it; so does
// a test with no auto-gradable question at all.
func grade(t Test, answers map[string]string) (score null.Int, isPassed null.Bool, status SubmissionStatus) {
	var gradable, correct int
	var needsReview bool

	for _, q := range t.Questions {
		switch cfg := q.Config.(type) {
		case MultipleChoiceConfig:
			gradable++
			if cfg.IsCorrect(answers[q.ID]) {
				correct++
			}
		case WrittenConfig, FileUploadConfig:
			needsReview = true
		default:
			needsReview = true
		}
	}

	if needsReview || gradable == 0 {
		return null.Int{}, null.Bool{}, StatusPendingReview
	}

	pct := computeScore(correct, gradable)
	return null.IntFrom(pct), null.BoolFrom(pct >= t.PassingScore), StatusGraded
}

// computeScore rounds 100*correct/total to the nearest integer percentage.
func computeScore(correct, total int) int {
	return int(math.Round(100 * float64(correct) / float64(total)))
}

// bestSubmission picks the submission to surface in review UIs:
// highest graded score, most recent on tie. Returns false when no
// submission has been graded yet.
func bestSubmission(subs []Submission) (Submission, bool) {
	var best Submission
	var found bool
	for _, sub := range subs {
		if !sub.Score.Valid {
			continue
		}
		if !found ||
			sub.Score.Int > best.Score.Int ||
			(sub.Score.Int == best.Score.Int && sub.SubmittedAt.After(best.SubmittedAt)) {
			best = sub
			found = true
		}
	}
	return best, found
}
