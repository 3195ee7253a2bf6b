package shopify

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	pkgerrors "github.com/angelmondragon/orderbridge/pkg/errors"
)

// Kind classifies a gateway failure.
type Kind string

const (
	// KindTransport means the request never produced a usable HTTP response.
	KindTransport Kind = "transport"
	// KindProtocol covers non-200 statuses, undecodable bodies and top-level GraphQL errors.
	KindProtocol Kind = "protocol"
	// KindUserErrors means the mutation ran but the platform rejected its input.
	KindUserErrors Kind = "user_errors"
	KindNotFound   Kind = "not_found"
	KindThrottled  Kind = "throttled"
)

// UserError is a field-level problem reported by the platform.
type UserError struct {
	Field   []string `json:"field,omitempty"`
	Message string   `json:"message"`
	Code    string   `json:"code,omitempty"`
}

// Error is returned by every Client operation that fails.
type Error struct {
	Kind          Kind
	Operation     string
	StatusCode    int
	Message       string
	UserErrors    []UserError
	GraphQLErrors []UserError
	Cause         error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("shopify %s: %s", e.Operation, e.Message)
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// AsError extracts the gateway error from err's chain.
func AsError(err error) (*Error, bool) {
	var gwErr *Error
	if errors.As(err, &gwErr) && gwErr != nil {
		return gwErr, true
	}
	return nil, false
}

// IsNotFound reports whether err is a gateway not-found failure.
func IsNotFound(err error) bool {
	gwErr, ok := AsError(err)
	return ok && gwErr.Kind == KindNotFound
}

// DomainCode maps a gateway failure onto the service error codes.
func DomainCode(err error) pkgerrors.Code {
	gwErr, ok := AsError(err)
	if !ok {
		return pkgerrors.CodeInternal
	}
	switch gwErr.Kind {
	case KindNotFound:
		return pkgerrors.CodeNotFound
	case KindUserErrors:
		return pkgerrors.CodeRemoteUserError
	case KindThrottled:
		return pkgerrors.CodeRateLimit
	default:
		return pkgerrors.CodeRemoteProtocol
	}
}

func statusError(op string, status int, body string) *Error {
	kind := KindProtocol
	switch status {
	case http.StatusNotFound:
		kind = KindNotFound
	case http.StatusTooManyRequests:
		kind = KindThrottled
	}
	return &Error{
		Kind:       kind,
		Operation:  op,
		StatusCode: status,
		Message:    fmt.Sprintf("status %d: %s", status, body),
	}
}

func graphQLFailure(op string, gqlErrors []graphQLError) *Error {
	kind := KindProtocol
	converted := make([]UserError, 0, len(gqlErrors))
	messages := make([]string, 0, len(gqlErrors))
	for _, gqlErr := range gqlErrors {
		if strings.EqualFold(gqlErr.Extensions.Code, "THROTTLED") {
			kind = KindThrottled
		}
		converted = append(converted, UserError{
			Field:   pathStrings(gqlErr.Path),
			Message: gqlErr.Message,
			Code:    gqlErr.Extensions.Code,
		})
		messages = append(messages, gqlErr.Message)
	}
	return &Error{
		Kind:          kind,
		Operation:     op,
		StatusCode:    http.StatusOK,
		Message:       strings.Join(messages, "; "),
		GraphQLErrors: converted,
	}
}

func userErrorsFailure(op string, userErrors []UserError) *Error {
	if len(userErrors) == 0 {
		return nil
	}
	kind := KindUserErrors
	messages := make([]string, 0, len(userErrors))
	for _, ue := range userErrors {
		if isNotFoundUserError(ue) {
			kind = KindNotFound
		}
		messages = append(messages, ue.Message)
	}
	return &Error{
		Kind:       kind,
		Operation:  op,
		StatusCode: http.StatusOK,
		Message:    strings.Join(messages, "; "),
		UserErrors: userErrors,
	}
}

func notFound(op, resource, id string) *Error {
	return &Error{
		Kind:       KindNotFound,
		Operation:  op,
		StatusCode: http.StatusOK,
		Message:    fmt.Sprintf("%s %s not found", resource, id),
	}
}

func isNotFoundUserError(ue UserError) bool {
	if strings.HasSuffix(strings.ToUpper(ue.Code), "NOT_FOUND") {
		return true
	}
	lower := strings.ToLower(ue.Message)
	return strings.Contains(lower, "not found") || strings.Contains(lower, "does not exist")
}

func pathStrings(path []any) []string {
	if len(path) == 0 {
		return nil
	}
	out := make([]string, 0, len(path))
	for _, p := range path {
		out = append(out, fmt.Sprint(p))
	}
	return out
}
