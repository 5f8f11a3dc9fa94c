package model

import "time"

const (
	QuestionText     = "text"
	QuestionLongText = "long_text"
	QuestionRadio    = "radio"
	QuestionCheckbox = "checkbox"
	QuestionUpload   = "upload"
)

// HasOptions reports whether a question type carries an option set.
func HasOptions(questionType string) bool {
	return questionType == QuestionRadio || questionType == QuestionCheckbox
}

func ValidQuestionType(questionType string) bool {
	switch questionType {
	case QuestionText, QuestionLongText, QuestionRadio, QuestionCheckbox, QuestionUpload:
		return true
	}
	return false
}

type Form struct {
	ID          int        `json:"id"`
	UserID      int        `json:"-"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Slug        string     `json:"slug,omitempty"`
	Theme       any        `json:"theme_settings"`
	Published   bool       `json:"is_published"`
	Archived    bool       `json:"is_archived"`
	CreatedAt   time.Time  `json:"created_at,omitempty"`
	Questions   []Question `json:"questions,omitempty"`
}

type Question struct {
	ID          int      `json:"id"`
	FormID      int      `json:"-"`
	Type        string   `json:"type"`
	Label       string   `json:"label"`
	Placeholder string   `json:"placeholder"`
	Required    bool     `json:"is_required"`
	Position    int      `json:"position"`
	Config      any      `json:"config"`
	Options     []Option `json:"options,omitempty"`
}

type Option struct {
	ID       int    `json:"id"`
	Label    string `json:"option_label"`
	Position int    `json:"position"`
}

const (
	UploadTemporary = "temporary"
	UploadAttached  = "attached"
)

type Upload struct {
	ID           int       `json:"upload_id"`
	StorageKey   string    `json:"-"`
	OriginalName string    `json:"original_name"`
	MimeType     string    `json:"mime_type"`
	SizeBytes    int64     `json:"size_bytes"`
	Status       string    `json:"-"`
	ExpiresAt    time.Time `json:"expires_at"`
	ResponseID   *int      `json:"-"`
}

type Response struct {
	ID          int       `json:"id"`
	FormID      int       `json:"form_id,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
	IP          *string   `json:"ip_address,omitempty"`
	UserAgent   *string   `json:"-"`
}

// Answer is the admin-facing view of one stored answer, joined with its
// question's label and type.
type Answer struct {
	ID         int     `json:"id"`
	QuestionID int     `json:"question_id"`
	Value      *string `json:"answer_value"`
	FilePath   *string `json:"file_path,omitempty"`
	Label      string  `json:"label"`
	Type       string  `json:"type"`
	Parsed     any     `json:"answer_parsed,omitempty"`
	UploadID   int     `json:"upload_id,omitempty"`
	Download   string  `json:"download_endpoint,omitempty"`
}

type User struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}
