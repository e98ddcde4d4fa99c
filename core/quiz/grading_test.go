package quiz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/volatiletech/null/v8"
)

func strPtr(s string) *string { return &s }

func TestGrade(t *testing.T) {
	single := AnswerKey{QuestionID: 1, Type: TypeSingleChoice, Points: 2, CorrectOptionIDs: []int64{10}}
	multi := AnswerKey{QuestionID: 2, Type: TypeMultiChoice, Points: 3, CorrectOptionIDs: []int64{20, 21}}
	short := AnswerKey{QuestionID: 3, Type: TypeShortAnswer, Points: 1, CorrectOptionIDs: []int64{}}
	trueFalse := AnswerKey{QuestionID: 4, Type: TypeTrueFalse, Points: 1, CorrectOptionIDs: []int64{41}}

	tests := []struct {
		name string
		key  AnswerKey
		ans  Answer
		want Outcome
	}{
		{name: "single correct", key: single, ans: Answer{QuestionID: 1, SelectedOptionIDs: []int64{10}}, want: Correct},
		{name: "single wrong option", key: single, ans: Answer{QuestionID: 1, SelectedOptionIDs: []int64{11}}, want: Incorrect},
		{name: "single nothing selected", key: single, ans: Answer{QuestionID: 1}, want: Incorrect},
		{name: "single extra option", key: single, ans: Answer{QuestionID: 1, SelectedOptionIDs: []int64{10, 11}}, want: Incorrect},
		{name: "multi any order", key: multi, ans: Answer{QuestionID: 2, SelectedOptionIDs: []int64{21, 20}}, want: Correct},
		{name: "multi partial", key: multi, ans: Answer{QuestionID: 2, SelectedOptionIDs: []int64{20}}, want: Incorrect},
		{name: "multi repeated id", key: multi, ans: Answer{QuestionID: 2, SelectedOptionIDs: []int64{20, 20}}, want: Incorrect},
		{name: "true false", key: trueFalse, ans: Answer{QuestionID: 4, SelectedOptionIDs: []int64{41}}, want: Correct},
		{name: "short answer", key: short, ans: Answer{QuestionID: 3, AnswerText: strPtr("photosynthesis")}, want: Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Grade(tt.key, tt.ans))
		})
	}
}

func TestGradeSubmission(t *testing.T) {
	keys := []AnswerKey{
		{QuestionID: 1, Type: TypeSingleChoice, Points: 2, CorrectOptionIDs: []int64{10}},
		{QuestionID: 2, Type: TypeShortAnswer, Points: 3, CorrectOptionIDs: []int64{}},
		{QuestionID: 3, Type: TypeMultiChoice, Points: 4, CorrectOptionIDs: []int64{30, 31}},
	}

	t.Run("single choice and short answer", func(t *testing.T) {
		g := GradeSubmission(keys[:2], []Answer{
			{QuestionID: 1, SelectedOptionIDs: []int64{10}},
			{QuestionID: 2, AnswerText: strPtr("foo")},
		})
		assert.Equal(t, 2, g.Score)
		assert.Equal(t, 5, g.MaxPossibleScore)
		if assert.Len(t, g.Answers, 2) {
			assert.Equal(t, null.BoolFrom(true), g.Answers[0].IsCorrect)
			assert.Equal(t, 2, g.Answers[0].PointsAwarded)
			assert.Equal(t, []int64{10}, g.Answers[0].SelectedOptionIDs)

			assert.False(t, g.Answers[1].IsCorrect.Valid)
			assert.Equal(t, 0, g.Answers[1].PointsAwarded)
			assert.Equal(t, null.StringFrom("foo"), g.Answers[1].AnswerText)
			assert.Equal(t, []int64{}, g.Answers[1].SelectedOptionIDs)
		}
	})

	t.Run("unanswered questions count towards the max", func(t *testing.T) {
		g := GradeSubmission(keys, []Answer{{QuestionID: 3, SelectedOptionIDs: []int64{31, 30}}})
		assert.Equal(t, 4, g.Score)
		assert.Equal(t, 9, g.MaxPossibleScore)
		assert.Len(t, g.Answers, 1)
	})

	t.Run("no partial credit", func(t *testing.T) {
		g := GradeSubmission(keys, []Answer{{QuestionID: 3, SelectedOptionIDs: []int64{30}}})
		assert.Equal(t, 0, g.Score)
		if assert.Len(t, g.Answers, 1) {
			assert.Equal(t, null.BoolFrom(false), g.Answers[0].IsCorrect)
		}
	})

	t.Run("unknown and repeated questions are dropped", func(t *testing.T) {
		g := GradeSubmission(keys, []Answer{
			{QuestionID: 99, SelectedOptionIDs: []int64{10}},
			{QuestionID: 1, SelectedOptionIDs: []int64{11}},
			{QuestionID: 1, SelectedOptionIDs: []int64{10}},
		})
		assert.Equal(t, []int64{99}, g.UnknownQuestions)
		assert.Equal(t, []int64{1}, g.Duplicates)
		assert.Equal(t, 0, g.Score, "the first answer wins")
		assert.Len(t, g.Answers, 1)
	})

	t.Run("text on a choice question is ignored", func(t *testing.T) {
		g := GradeSubmission(keys, []Answer{{QuestionID: 1, SelectedOptionIDs: []int64{10}, AnswerText: strPtr("ten")}})
		if assert.Len(t, g.Answers, 1) {
			assert.False(t, g.Answers[0].AnswerText.Valid)
		}
	})

	t.Run("empty quiz", func(t *testing.T) {
		g := GradeSubmission(nil, []Answer{{QuestionID: 1}})
		assert.Equal(t, 0, g.MaxPossibleScore)
		assert.Empty(t, g.Answers)
	})
}

func TestOutcomeBool(t *testing.T) {
	assert.Equal(t, null.BoolFrom(true), Correct.Bool())
	assert.Equal(t, null.BoolFrom(false), Incorrect.Bool())
	assert.False(t, Unknown.Bool().Valid)
	assert.Equal(t, "unknown", Unknown.String())
}
