package quiz

import (
	"sort"

	"github.com/volatiletech/null/v8"
)

// Outcome is the result of grading one answer.
type Outcome int

const (
	// Unknown answers cannot be graded automatically and wait for a manual review.
	Unknown Outcome = iota
	Correct
	Incorrect
)

func (o Outcome) String() string {
	switch o {
	case Correct:
		return "correct"
	case Incorrect:
		return "incorrect"
	default:
		return "unknown"
	}
}

// Bool is the stored form of the outcome: NULL when Unknown.
func (o Outcome) Bool() null.Bool {
	switch o {
	case Correct:
		return null.BoolFrom(true)
	case Incorrect:
		return null.BoolFrom(false)
	default:
		return null.Bool{}
	}
}

// Grade grades one answer against the question's key.
// Choice answers are correct iff the selected ids equal the correct ids; no partial credit.
func Grade(key AnswerKey, ans Answer) Outcome {
	if !key.Type.IsChoice() {
		return Unknown
	}
	if sameIDs(key.CorrectOptionIDs, ans.SelectedOptionIDs) {
		return Correct
	}
	return Incorrect
}

// sameIDs compares both id sets after an ascending sort. Duplicated ids are kept.
func sameIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	sa := sortedCopy(a)
	sb := sortedCopy(b)
	for i := range sa {
		if sa[i] != sb[i] {
			return false
		}
	}
	return true
}

func sortedCopy(ids []int64) []int64 {
	cp := make([]int64, len(ids))
	copy(cp, ids)
	sort.Slice(cp, func(i, j int) bool { return cp[i] < cp[j] })
	return cp
}

// Grading is the graded form of a whole submission.
type Grading struct {
	Answers          []SubmissionAnswer
	Score            int
	MaxPossibleScore int
	UnknownQuestions []int64 // ids not part of the quiz, dropped
	Duplicates       []int64 // ids answered more than once, later answers dropped
}

// GradeSubmission grades answers against the quiz's keys.
// MaxPossibleScore sums the points of every question, answered or not.
func GradeSubmission(keys []AnswerKey, answers []Answer) Grading {
	var g Grading
	byID := make(map[int64]AnswerKey, len(keys))
	for _, k := range keys {
		byID[k.QuestionID] = k
		g.MaxPossibleScore += k.Points
	}

	seen := make(map[int64]bool, len(answers))
	g.Answers = make([]SubmissionAnswer, 0, len(answers))
	for _, ans := range answers {
		key, ok := byID[ans.QuestionID]
		if !ok {
			g.UnknownQuestions = append(g.UnknownQuestions, ans.QuestionID)
			continue
		}
		if seen[ans.QuestionID] {
			g.Duplicates = append(g.Duplicates, ans.QuestionID)
			continue
		}
		seen[ans.QuestionID] = true

		outcome := Grade(key, ans)
		sa := SubmissionAnswer{
			QuestionID:        ans.QuestionID,
			SelectedOptionIDs: []int64{},
			IsCorrect:         outcome.Bool(),
		}
		if key.Type.IsChoice() {
			if ans.SelectedOptionIDs != nil {
				sa.SelectedOptionIDs = ans.SelectedOptionIDs
			}
		} else {
			sa.AnswerText = null.StringFromPtr(ans.AnswerText)
		}
		if outcome == Correct {
			sa.PointsAwarded = key.Points
			g.Score += key.Points
		}
		g.Answers = append(g.Answers, sa)
	}
	return g
}
