package invitation

import "errors"

// Kind names a class of workflow failure. It is what callers see in results and JSON.
type Kind string

// Kinds reported by the invitation workflow.
const (
	KindNone                     Kind = ""
	KindNotFound                 Kind = "not_found"
	KindExpired                  Kind = "expired"
	KindAlreadyUsed              Kind = "already_used"
	KindEmailTaken               Kind = "email_taken"
	KindEmailMismatch            Kind = "email_mismatch"
	KindNotAClient               Kind = "not_a_client"
	KindLimitReached             Kind = "limit_reached"
	KindRelationshipCreateFailed Kind = "relationship_create_failed"
	KindUnauthenticated          Kind = "unauthenticated"
	KindServerConfiguration      Kind = "server_configuration"
	KindPendingExists            Kind = "pending_exists"
	KindAlreadyClient            Kind = "already_client"
	KindInvalidInput             Kind = "invalid_input"
	KindInternal                 Kind = "internal"
)

// Domain errors. Each maps to exactly one Kind.
var (
	ErrNotFound                 = errors.New("invitation not found")
	ErrExpired                  = errors.New("invitation has expired")
	ErrAlreadyUsed              = errors.New("invitation has already been used")
	ErrEmailTaken               = errors.New("an account already exists for this email")
	ErrEmailMismatch            = errors.New("email does not match the invitation")
	ErrNotAClient               = errors.New("only client accounts can accept invitations")
	ErrLimitReached             = errors.New("trainer has reached their client limit")
	ErrRelationshipCreateFailed = errors.New("could not create trainer-client relationship")
	ErrUnauthenticated          = errors.New("sign in required")
	ErrServerConfiguration      = errors.New("server configuration error")
	ErrPendingExists            = errors.New("a pending invitation already exists for this email")
	ErrAlreadyClient            = errors.New("this person is already your client")
	ErrInvalidInput             = errors.New("invalid input")
)

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrNotFound, KindNotFound},
	{ErrExpired, KindExpired},
	{ErrAlreadyUsed, KindAlreadyUsed},
	{ErrEmailTaken, KindEmailTaken},
	{ErrEmailMismatch, KindEmailMismatch},
	{ErrNotAClient, KindNotAClient},
	{ErrLimitReached, KindLimitReached},
	{ErrRelationshipCreateFailed, KindRelationshipCreateFailed},
	{ErrUnauthenticated, KindUnauthenticated},
	{ErrServerConfiguration, KindServerConfiguration},
	{ErrPendingExists, KindPendingExists},
	{ErrAlreadyClient, KindAlreadyClient},
	{ErrInvalidInput, KindInvalidInput},
}

// KindOf classifies err. nil yields KindNone; unrecognised errors yield KindInternal.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}

// Message returns the text shown to the person on the other end of a failed step.
func (k Kind) Message() string {
	switch k {
	case KindNone:
		return ""
	case KindNotFound:
		return "This invitation link is not valid. Ask your trainer to send a new one."
	case KindExpired:
		return "This invitation has expired. Ask your trainer to send a new one."
	case KindAlreadyUsed:
		return "This invitation has already been used."
	case KindEmailTaken:
		return "An account already exists for this email. Sign in to accept the invitation."
	case KindEmailMismatch:
		return "Sign in with the email address the invitation was sent to."
	case KindNotAClient:
		return "Invitations can only be accepted from a client account."
	case KindLimitReached:
		return "Your trainer cannot take on more clients right now."
	case KindRelationshipCreateFailed:
		return "We could not link you with your trainer. Please try again."
	case KindUnauthenticated:
		return "Please sign in to continue."
	case KindServerConfiguration:
		return "The server is not configured correctly. Please contact support."
	case KindPendingExists:
		return "You already have a pending invitation for this email."
	case KindAlreadyClient:
		return "This person is already one of your clients."
	case KindInvalidInput:
		return "Some of the details provided are not valid."
	}
	return "Something went wrong. Please try again."
}
