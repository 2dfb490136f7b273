package pgwire

import "fmt"

// ProtocolError reports a malformed frame, an unexpected tag, or a
// violation of a local wire-format invariant. It is never raised for a
// server-side ErrorResponse, which is a valid protocol event, not a
// codec failure.
type ProtocolError struct {
	Kind   string
	Detail string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("pgwire: %s: %s", e.Kind, e.Detail)
}

// InvalidMessageError builds a ProtocolError for a malformed frame,
// unknown tag, or residual bytes after a fixed-shape payload.
func InvalidMessageError(format string, args ...interface{}) *ProtocolError {
	return &ProtocolError{Kind: "invalid message", Detail: fmt.Sprintf(format, args...)}
}

// UnsupportedAuthError reports a server-requested authentication method
// the engine does not implement (Kerberos, GSS, SSPI).
func UnsupportedAuthError(kind AuthKind) *ProtocolError {
	return &ProtocolError{Kind: "unsupported auth", Detail: fmt.Sprintf("auth kind %d", kind)}
}

// IllegalStateTransitionError reports a message that is not legal to
// send or receive in the connection's current state.
func IllegalStateTransitionError(state ConnectionState, event string) *ProtocolError {
	return &ProtocolError{
		Kind:   "illegal state transition",
		Detail: fmt.Sprintf("state=%s event=%s", state, event),
	}
}

// AuthError reports a failure within the SCRAM exchange: a nonce or
// server-signature mismatch, or a malformed SCRAM field.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string { return "pgwire: auth: " + e.Reason }

// SqlErrorKind classifies a SqlError by SQLSTATE class.
type SqlErrorKind int

const (
	SqlErrorGeneric SqlErrorKind = iota
	SqlErrorSyntax
	SqlErrorUndefinedTable
	SqlErrorUniqueViolation
	SqlErrorConnection
)

// SqlError wraps a server ErrorResponse, classified by its SQLSTATE code.
type SqlError struct {
	Kind    SqlErrorKind
	Code    string
	Message string
	Fields  []ErrorField
}

func (e *SqlError) Error() string {
	return fmt.Sprintf("pgwire: sql error %s: %s", e.Code, e.Message)
}

// NewSqlError classifies an ErrorResponse's fields into a SqlError,
// inspecting the Code (SQLSTATE) and Message fields as spec.md §7
// requires.
func NewSqlError(fields []ErrorField) *SqlError {
	e := &SqlError{Kind: SqlErrorGeneric, Fields: fields}
	for _, f := range fields {
		switch f.Type {
		case FieldCode:
			e.Code = f.Value
		case FieldMessage:
			e.Message = f.Value
		}
	}
	switch e.Code {
	case SQLStateSyntaxError:
		e.Kind = SqlErrorSyntax
	case SQLStateUndefinedTable:
		e.Kind = SqlErrorUndefinedTable
	case SQLStateUniqueViolation:
		e.Kind = SqlErrorUniqueViolation
	case SQLStateConnectionException, SQLStateConnectionFailure:
		e.Kind = SqlErrorConnection
	}
	return e
}
