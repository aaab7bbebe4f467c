package errcode

import "fmt"

// Error represents a business error
type Error struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("errcode: %d, msg: %s", e.Code, e.Msg)
}

// New creates a new error with code and message
func New(code int, msg string) *Error {
	return &Error{Code: code, Msg: msg}
}

// Wrap wraps an error with additional context
func (e *Error) Wrap(err error) *Error {
	if err == nil {
		return e
	}
	return &Error{
		Code: e.Code,
		Msg:  fmt.Sprintf("%s: %v", e.Msg, err),
	}
}

// Is reports whether target carries the same error code.
// Lets callers match wrapped errors with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Common error codes
var (
	// Success
	ErrSuccess = New(0, "success")

	// Common errors (1xxx)
	ErrInvalidParam   = New(1001, "invalid parameter")
	ErrInternalServer = New(1002, "internal server error")
	ErrUnauthorized   = New(1003, "unauthorized")
	ErrForbidden      = New(1004, "forbidden")
	ErrNotFound       = New(1005, "not found")
	ErrStoreTimeout   = New(1006, "store operation timed out, retry")

	// Auth errors (2xxx)
	ErrTokenInvalid = New(2001, "token invalid")
	ErrTokenExpired = New(2002, "token expired")
	ErrTokenMissing = New(2003, "token missing")

	// Conversation errors (3xxx)
	ErrConvNotFound        = New(3001, "conversation not found")
	ErrNotMember           = New(3002, "not a conversation member")
	ErrAlreadyMember       = New(3003, "already a conversation member")
	ErrMemberNotFound      = New(3004, "user not in conversation")
	ErrNotCreator          = New(3005, "only the creator may do this")
	ErrNotAdmin            = New(3006, "admin rights required")
	ErrCannotRemoveAdmin   = New(3007, "only the creator can remove another admin")
	ErrCannotRemoveCreator = New(3008, "cannot remove the conversation creator")
	ErrDirectImmutable     = New(3009, "direct conversations have fixed membership")
	ErrNotGroup            = New(3010, "not a group conversation")
	ErrNotDemotable        = New(3011, "user is not an admin")
	ErrSelfTarget          = New(3012, "operation cannot target yourself")
	ErrConvConflict        = New(3013, "conversation already exists for this pair")

	// Message errors (4xxx)
	ErrMessageNotFound  = New(4001, "message not found")
	ErrMessageDuplicate = New(4002, "duplicate message")
	ErrMessageEmpty     = New(4003, "message has no content")
	ErrSendBlocked      = New(4004, "cannot message this user")
	ErrSendFailed       = New(4005, "message send failed")
	ErrMediaKindInvalid = New(4006, "unknown media kind")
)
