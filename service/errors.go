package service

// Reason classifies a ValidationError.
type Reason string

const (
	ReasonMissing   Reason = "missing"
	ReasonType      Reason = "type"
	ReasonFormat    Reason = "format"
	ReasonDuplicate Reason = "duplicate"
)

// ValidationError reports input that cannot be stored. Message is safe to
// show to API clients.
type ValidationError struct {
	Reason  Reason
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NotFoundError reports that the addressed member (or any member) does not
// exist. Message is safe to show to API clients.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// Sentinels returned by MemberService; compare with errors.Is.
var (
	ErrMissingInformation = &ValidationError{Reason: ReasonMissing, Message: "Missing information."}
	ErrInvalidInputType   = &ValidationError{Reason: ReasonType, Message: "Invalid input type."}
	ErrInvalidEmail       = &ValidationError{Reason: ReasonFormat, Message: "Invalid email."}
	ErrEmailExists        = &ValidationError{Reason: ReasonDuplicate, Message: "Email already exists."}

	ErrInvalidMemberID = &NotFoundError{Message: "Invalid member ID."}
	ErrNoMembers       = &NotFoundError{Message: "Member not found."}
)
