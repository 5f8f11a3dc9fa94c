package submission

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/miniforms/miniforms/model"
)

// UploadLookup resolves upload ids while validating. (nil, nil) means no
// such upload; a non-nil error is an infrastructure failure.
type UploadLookup interface {
	Lookup(ctx context.Context, uploadID int) (*model.Upload, error)
}

// Answer is the canonical, storage-ready form of one question's answer.
type Answer struct {
	QuestionID int
	Type       string
	Text       string // text types, trimmed
	OptionID   int    // radio; 0 when nothing valid was selected
	OptionIDs  []int  // checkbox, invalid ids included
	UploadID   int    // upload; 0 when absent
}

// typeValidator checks one raw value against one question's constraints and
// produces its canonical form. A nil answer means the value was structurally
// unusable and nothing canonical exists for the question. requiredMessage is
// the violation reported when a required question got no answer at all.
type typeValidator interface {
	requiredMessage() string
	validate(ctx context.Context, q Question, raw any) (*Answer, []FieldError, error)
}

// Validate runs once per schema question, in schema order, and accumulates
// every violation instead of stopping at the first. Normalized answers
// targeting questions outside the schema are flagged afterwards.
func Validate(ctx context.Context, questions []Question, normalized map[int]any, uploads UploadLookup) ([]Answer, []FieldError, error) {
	validators := map[string]typeValidator{
		model.QuestionText:     textValidator{},
		model.QuestionLongText: textValidator{},
		model.QuestionRadio:    radioValidator{},
		model.QuestionCheckbox: checkboxValidator{},
		model.QuestionUpload:   uploadValidator{uploads},
	}

	var answers []Answer
	var errs []FieldError

	known := map[int]bool{}
	for _, q := range questions {
		known[q.ID] = true

		validator, ok := validators[q.Type]

		raw, answered := normalized[q.ID]
		if !answered {
			if q.Required {
				message := MsgQuestionRequired
				if ok {
					message = validator.requiredMessage()
				}
				errs = append(errs, fieldError(q.ID, message))
			}
			continue
		}

		if !ok {
			continue
		}
		answer, fieldErrs, err := validator.validate(ctx, q, raw)
		if err != nil {
			return nil, nil, err
		}
		errs = append(errs, fieldErrs...)
		if answer != nil {
			answer.QuestionID = q.ID
			answer.Type = q.Type
			answers = append(answers, *answer)
		}
	}

	var foreign []int
	for questionID := range normalized {
		if !known[questionID] {
			foreign = append(foreign, questionID)
		}
	}
	sort.Ints(foreign)
	for _, questionID := range foreign {
		errs = append(errs, fieldError(questionID, MsgForeignQuestion))
	}

	return answers, errs, nil
}

type textValidator struct{}

func (textValidator) requiredMessage() string { return MsgAnswerRequired }

func (textValidator) validate(_ context.Context, q Question, raw any) (*Answer, []FieldError, error) {
	text, _ := raw.(string)
	text = strings.TrimSpace(text)

	var errs []FieldError
	if q.Required && text == "" {
		errs = append(errs, fieldError(q.ID, MsgAnswerRequired))
	}
	return &Answer{Text: text}, errs, nil
}

type radioValidator struct{}

func (radioValidator) requiredMessage() string { return MsgSelectOption }

func (radioValidator) validate(_ context.Context, q Question, raw any) (*Answer, []FieldError, error) {
	optionID := 0
	if record, ok := raw.(map[string]any); ok {
		optionID = toInt(record["id"])
	} else {
		optionID = toInt(raw)
	}

	var errs []FieldError
	switch {
	case optionID <= 0:
		optionID = 0
		if q.Required {
			errs = append(errs, fieldError(q.ID, MsgSelectOption))
		}
	default:
		if _, valid := q.Options[optionID]; !valid {
			errs = append(errs, optionError(q.ID, MsgInvalidOption, optionID))
			optionID = 0
		}
	}
	return &Answer{OptionID: optionID}, errs, nil
}

type checkboxValidator struct{}

func (checkboxValidator) requiredMessage() string { return MsgSelectAtLeastOne }

func (checkboxValidator) validate(_ context.Context, q Question, raw any) (*Answer, []FieldError, error) {
	list, ok := raw.([]any)
	if !ok {
		return nil, []FieldError{fieldError(q.ID, MsgNotAList)}, nil
	}

	var errs []FieldError
	if q.Required && len(list) == 0 {
		errs = append(errs, fieldError(q.ID, MsgSelectAtLeastOne))
	}

	// invalid ids are flagged individually but kept in the canonical list:
	// the accumulated errors fail the submission as a whole anyway
	optionIDs := make([]int, 0, len(list))
	for _, entry := range list {
		optionID := toInt(entry)
		if _, valid := q.Options[optionID]; optionID <= 0 || !valid {
			errs = append(errs, optionError(q.ID, MsgInvalidOption, optionID))
		}
		optionIDs = append(optionIDs, optionID)
	}
	return &Answer{OptionIDs: optionIDs}, errs, nil
}

type uploadValidator struct {
	uploads UploadLookup
}

func (uploadValidator) requiredMessage() string { return MsgUploadRequired }

func (v uploadValidator) validate(ctx context.Context, q Question, raw any) (*Answer, []FieldError, error) {
	uploadID := 0
	if record, ok := raw.(map[string]any); ok {
		uploadID = toInt(record["upload_id"])
	} else {
		uploadID = toInt(raw)
	}
	if uploadID < 0 {
		uploadID = 0
	}

	var errs []FieldError
	if uploadID == 0 {
		if q.Required {
			errs = append(errs, fieldError(q.ID, MsgUploadRequired))
		}
		return &Answer{}, errs, nil
	}

	upload, err := v.uploads.Lookup(ctx, uploadID)
	if err != nil {
		return nil, nil, err
	}
	switch {
	case upload == nil:
		errs = append(errs, fieldError(q.ID, MsgUploadNotFound))
	default:
		// status and expiry are independent violations
		if upload.Status != model.UploadTemporary {
			errs = append(errs, fieldError(q.ID, MsgUploadUsed))
		}
		if !upload.ExpiresAt.IsZero() && upload.ExpiresAt.Before(time.Now()) {
			errs = append(errs, fieldError(q.ID, MsgUploadExpired))
		}
	}
	return &Answer{UploadID: uploadID}, errs, nil
}
