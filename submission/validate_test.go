package submission

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miniforms/miniforms/model"
)

type fakeUploads map[int]*model.Upload

func (f fakeUploads) Lookup(_ context.Context, uploadID int) (*model.Upload, error) {
	return f[uploadID], nil
}

func textQuestion(id int, required bool) Question {
	return Question{ID: id, Type: model.QuestionText, Required: required}
}

func radioQuestion(id int, required bool, options map[int]string) Question {
	return Question{ID: id, Type: model.QuestionRadio, Required: required, Options: options}
}

func checkboxQuestion(id int, required bool, options map[int]string) Question {
	return Question{ID: id, Type: model.QuestionCheckbox, Required: required, Options: options}
}

func uploadQuestion(id int, required bool) Question {
	return Question{ID: id, Type: model.QuestionUpload, Required: required}
}

func TestValidateRequiredQuestionMissing(t *testing.T) {
	answers, errs, err := Validate(context.Background(),
		[]Question{textQuestion(10, true)},
		map[int]any{},
		fakeUploads{},
	)

	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, fieldError(10, MsgAnswerRequired), errs[0])
	assert.Empty(t, answers)
}

// each question type reports its own flavor of "required" when the answer
// is entirely absent
func TestValidateRequiredMessagesByType(t *testing.T) {
	questions := []Question{
		textQuestion(1, true),
		radioQuestion(2, true, map[int]string{1: "Yes"}),
		checkboxQuestion(3, true, map[int]string{1: "A"}),
		uploadQuestion(4, true),
	}

	_, errs, err := Validate(context.Background(), questions, map[int]any{}, fakeUploads{})

	require.NoError(t, err)
	require.Len(t, errs, 4)
	assert.Equal(t, MsgAnswerRequired, errs[0].Message)
	assert.Equal(t, MsgSelectOption, errs[1].Message)
	assert.Equal(t, MsgSelectAtLeastOne, errs[2].Message)
	assert.Equal(t, MsgUploadRequired, errs[3].Message)
}

func TestValidateOptionalQuestionMissing(t *testing.T) {
	answers, errs, err := Validate(context.Background(),
		[]Question{textQuestion(10, false)},
		map[int]any{},
		fakeUploads{},
	)

	require.NoError(t, err)
	assert.Empty(t, errs)
	assert.Empty(t, answers)
}

func TestValidateText(t *testing.T) {
	t.Run("trims and keeps", func(t *testing.T) {
		answers, errs, err := Validate(context.Background(),
			[]Question{textQuestion(1, true)},
			map[int]any{1: "  hello  "},
			fakeUploads{},
		)
		require.NoError(t, err)
		assert.Empty(t, errs)
		require.Len(t, answers, 1)
		assert.Equal(t, "hello", answers[0].Text)
	})

	t.Run("required blank", func(t *testing.T) {
		_, errs, err := Validate(context.Background(),
			[]Question{textQuestion(1, true)},
			map[int]any{1: "   "},
			fakeUploads{},
		)
		require.NoError(t, err)
		require.Len(t, errs, 1)
		assert.Equal(t, MsgAnswerRequired, errs[0].Message)
	})

	t.Run("non-string coerces to empty", func(t *testing.T) {
		_, errs, err := Validate(context.Background(),
			[]Question{textQuestion(1, true)},
			map[int]any{1: float64(42)},
			fakeUploads{},
		)
		require.NoError(t, err)
		require.Len(t, errs, 1)
		assert.Equal(t, MsgAnswerRequired, errs[0].Message)
	})
}

func TestValidateRadio(t *testing.T) {
	options := map[int]string{1: "Yes", 2: "No"}

	t.Run("valid numeric id", func(t *testing.T) {
		answers, errs, err := Validate(context.Background(),
			[]Question{radioQuestion(10, true, options)},
			map[int]any{10: float64(1)},
			fakeUploads{},
		)
		require.NoError(t, err)
		assert.Empty(t, errs)
		require.Len(t, answers, 1)
		assert.Equal(t, 1, answers[0].OptionID)
	})

	t.Run("valid numeric string", func(t *testing.T) {
		answers, _, err := Validate(context.Background(),
			[]Question{radioQuestion(10, true, options)},
			map[int]any{10: "2"},
			fakeUploads{},
		)
		require.NoError(t, err)
		require.Len(t, answers, 1)
		assert.Equal(t, 2, answers[0].OptionID)
	})

	t.Run("record with id field", func(t *testing.T) {
		answers, _, err := Validate(context.Background(),
			[]Question{radioQuestion(10, true, options)},
			map[int]any{10: map[string]any{"id": float64(1)}},
			fakeUploads{},
		)
		require.NoError(t, err)
		require.Len(t, answers, 1)
		assert.Equal(t, 1, answers[0].OptionID)
	})

	t.Run("unknown option id", func(t *testing.T) {
		answers, errs, err := Validate(context.Background(),
			[]Question{radioQuestion(10, true, options)},
			map[int]any{10: float64(99)},
			fakeUploads{},
		)
		require.NoError(t, err)
		require.Len(t, errs, 1)
		assert.Equal(t, MsgInvalidOption, errs[0].Message)
		require.NotNil(t, errs[0].OptionID)
		assert.Equal(t, 99, *errs[0].OptionID)
		require.Len(t, answers, 1)
		assert.Zero(t, answers[0].OptionID)
	})

	t.Run("required with no selection", func(t *testing.T) {
		_, errs, err := Validate(context.Background(),
			[]Question{radioQuestion(10, true, options)},
			map[int]any{10: "not a number"},
			fakeUploads{},
		)
		require.NoError(t, err)
		require.Len(t, errs, 1)
		assert.Equal(t, MsgSelectOption, errs[0].Message)
	})
}

func TestValidateCheckbox(t *testing.T) {
	options := map[int]string{1: "A", 2: "B", 3: "C"}

	t.Run("not a list", func(t *testing.T) {
		answers, errs, err := Validate(context.Background(),
			[]Question{checkboxQuestion(20, true, options)},
			map[int]any{20: "oops"},
			fakeUploads{},
		)
		require.NoError(t, err)
		require.Len(t, errs, 1)
		assert.Equal(t, MsgNotAList, errs[0].Message)
		assert.Empty(t, answers)
	})

	t.Run("required empty list", func(t *testing.T) {
		_, errs, err := Validate(context.Background(),
			[]Question{checkboxQuestion(20, true, options)},
			map[int]any{20: []any{}},
			fakeUploads{},
		)
		require.NoError(t, err)
		require.Len(t, errs, 1)
		assert.Equal(t, MsgSelectAtLeastOne, errs[0].Message)
	})

	t.Run("one valid one invalid yields one error and keeps both", func(t *testing.T) {
		answers, errs, err := Validate(context.Background(),
			[]Question{checkboxQuestion(20, true, options)},
			map[int]any{20: []any{float64(1), float64(99)}},
			fakeUploads{},
		)
		require.NoError(t, err)
		require.Len(t, errs, 1)
		assert.Equal(t, MsgInvalidOption, errs[0].Message)
		require.NotNil(t, errs[0].OptionID)
		assert.Equal(t, 99, *errs[0].OptionID)
		require.Len(t, answers, 1)
		assert.Equal(t, []int{1, 99}, answers[0].OptionIDs)
	})

	t.Run("all valid", func(t *testing.T) {
		answers, errs, err := Validate(context.Background(),
			[]Question{checkboxQuestion(20, false, options)},
			map[int]any{20: []any{float64(3), float64(1)}},
			fakeUploads{},
		)
		require.NoError(t, err)
		assert.Empty(t, errs)
		require.Len(t, answers, 1)
		assert.Equal(t, []int{3, 1}, answers[0].OptionIDs)
	})
}

func TestValidateUpload(t *testing.T) {
	uploads := fakeUploads{
		5: {ID: 5, Status: model.UploadTemporary, ExpiresAt: time.Now().Add(time.Hour)},
		6: {ID: 6, Status: model.UploadAttached, ExpiresAt: time.Now().Add(time.Hour)},
		7: {ID: 7, Status: model.UploadTemporary, ExpiresAt: time.Now().Add(-time.Hour)},
		8: {ID: 8, Status: model.UploadAttached, ExpiresAt: time.Now().Add(-time.Hour)},
	}

	t.Run("required missing", func(t *testing.T) {
		_, errs, err := Validate(context.Background(),
			[]Question{uploadQuestion(30, true)},
			map[int]any{30: map[string]any{"upload_id": float64(0)}},
			uploads,
		)
		require.NoError(t, err)
		require.Len(t, errs, 1)
		assert.Equal(t, MsgUploadRequired, errs[0].Message)
	})

	t.Run("valid temporary upload", func(t *testing.T) {
		answers, errs, err := Validate(context.Background(),
			[]Question{uploadQuestion(30, true)},
			map[int]any{30: map[string]any{"upload_id": float64(5)}},
			uploads,
		)
		require.NoError(t, err)
		assert.Empty(t, errs)
		require.Len(t, answers, 1)
		assert.Equal(t, 5, answers[0].UploadID)
	})

	t.Run("bare id value", func(t *testing.T) {
		answers, errs, err := Validate(context.Background(),
			[]Question{uploadQuestion(30, true)},
			map[int]any{30: float64(5)},
			uploads,
		)
		require.NoError(t, err)
		assert.Empty(t, errs)
		require.Len(t, answers, 1)
		assert.Equal(t, 5, answers[0].UploadID)
	})

	t.Run("not found", func(t *testing.T) {
		_, errs, err := Validate(context.Background(),
			[]Question{uploadQuestion(30, true)},
			map[int]any{30: float64(404)},
			uploads,
		)
		require.NoError(t, err)
		require.Len(t, errs, 1)
		assert.Equal(t, MsgUploadNotFound, errs[0].Message)
	})

	t.Run("already used", func(t *testing.T) {
		_, errs, err := Validate(context.Background(),
			[]Question{uploadQuestion(30, true)},
			map[int]any{30: float64(6)},
			uploads,
		)
		require.NoError(t, err)
		require.Len(t, errs, 1)
		assert.Equal(t, MsgUploadUsed, errs[0].Message)
	})

	t.Run("expired", func(t *testing.T) {
		_, errs, err := Validate(context.Background(),
			[]Question{uploadQuestion(30, true)},
			map[int]any{30: float64(7)},
			uploads,
		)
		require.NoError(t, err)
		require.Len(t, errs, 1)
		assert.Equal(t, MsgUploadExpired, errs[0].Message)
	})

	t.Run("used and expired are independent errors", func(t *testing.T) {
		_, errs, err := Validate(context.Background(),
			[]Question{uploadQuestion(30, true)},
			map[int]any{30: float64(8)},
			uploads,
		)
		require.NoError(t, err)
		require.Len(t, errs, 2)
		assert.Equal(t, MsgUploadUsed, errs[0].Message)
		assert.Equal(t, MsgUploadExpired, errs[1].Message)
	})
}

func TestValidateForeignQuestion(t *testing.T) {
	answers, errs, err := Validate(context.Background(),
		[]Question{textQuestion(1, false)},
		map[int]any{1: "fine", 77: "whose question is this", 42: "and this"},
		fakeUploads{},
	)

	require.NoError(t, err)
	require.Len(t, errs, 2)
	assert.Equal(t, fieldError(42, MsgForeignQuestion), errs[0])
	assert.Equal(t, fieldError(77, MsgForeignQuestion), errs[1])
	require.Len(t, answers, 1)
}

func TestValidateAccumulatesAcrossQuestions(t *testing.T) {
	questions := []Question{
		textQuestion(1, true),
		radioQuestion(2, true, map[int]string{1: "Yes"}),
		checkboxQuestion(3, true, map[int]string{5: "A"}),
	}

	_, errs, err := Validate(context.Background(),
		questions,
		map[int]any{1: "", 2: float64(9), 3: []any{}},
		fakeUploads{},
	)

	require.NoError(t, err)
	messages := make([]string, len(errs))
	for i, e := range errs {
		messages[i] = e.Message
	}
	assert.Equal(t, []string{MsgAnswerRequired, MsgInvalidOption, MsgSelectAtLeastOne}, messages)
}
