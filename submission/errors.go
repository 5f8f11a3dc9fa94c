package submission

import (
	"errors"
	"fmt"
)

var (
	// ErrFormNotFound covers unknown, unpublished and archived forms alike:
	// a slug is publicly resolvable only while published and not archived.
	ErrFormNotFound = errors.New("form not found")

	// ErrUploadConflict is returned when an attach loses the race for a
	// temporary upload. The whole submission unit rolls back.
	ErrUploadConflict = errors.New("upload already attached")
)

const (
	MsgQuestionRequired = "question is required"
	MsgAnswerRequired   = "answer is required"
	MsgSelectOption     = "must select an option"
	MsgInvalidOption    = "invalid option"
	MsgNotAList         = "must be a list"
	MsgSelectAtLeastOne = "select at least one option"
	MsgUploadRequired   = "upload required"
	MsgUploadNotFound   = "upload not found"
	MsgUploadUsed       = "upload already used"
	MsgUploadExpired    = "upload expired"
	MsgForeignQuestion  = "question does not belong to this form"
)

// FieldError describes one independent rule violation for one question.
type FieldError struct {
	QuestionID int    `json:"question_id"`
	Message    string `json:"message"`
	OptionID   *int   `json:"option_id,omitempty"`
}

func fieldError(questionID int, message string) FieldError {
	return FieldError{QuestionID: questionID, Message: message}
}

func optionError(questionID int, message string, optionID int) FieldError {
	return FieldError{QuestionID: questionID, Message: message, OptionID: &optionID}
}

// ValidationError carries the full accumulated error list of one failed
// submission. It is never partially applied: no persistence happens when
// the list is non-empty.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed with %d error(s)", len(e.Fields))
}
