package api

import (
	"errors"
	"net/http"

	"github.com/dkeye/Lobby/internal/domain"
)

// Stable error codes on the wire.
const (
	CodeRoomNotFound    = "room_not_found"
	CodeRoomFull        = "room_full"
	CodeRoomClosed      = "room_closed"
	CodeMemberNotFound  = "member_not_found"
	CodeForbidden       = "forbidden"
	CodeUnauthorized    = "unauthorized"
	CodeInvalidArgument = "invalid_argument"
	CodeInvalidCode     = "invalid_code"
	CodeCodeExpired     = "code_expired"
	CodeAllocation      = "allocation_failed"
	CodeRateLimited     = "rate_limited"
	CodeInternal        = "internal"
)

var codes = []struct {
	err    error
	code   string
	status int
}{
	{domain.ErrRoomNotFound, CodeRoomNotFound, http.StatusNotFound},
	{domain.ErrRoomFull, CodeRoomFull, http.StatusConflict},
	{domain.ErrRoomClosed, CodeRoomClosed, http.StatusGone},
	{domain.ErrMemberNotFound, CodeMemberNotFound, http.StatusNotFound},
	{domain.ErrForbidden, CodeForbidden, http.StatusForbidden},
	{domain.ErrUnauthorized, CodeUnauthorized, http.StatusUnauthorized},
	{domain.ErrInvalidArgument, CodeInvalidArgument, http.StatusBadRequest},
	{domain.ErrPlayerNameEmpty, CodeInvalidArgument, http.StatusBadRequest},
	{domain.ErrPlayerNameTooLong, CodeInvalidArgument, http.StatusBadRequest},
	{domain.ErrInvalidCode, CodeInvalidCode, http.StatusNotFound},
	{domain.ErrCodeExpired, CodeCodeExpired, http.StatusGone},
	{domain.ErrAllocation, CodeAllocation, http.StatusServiceUnavailable},
}

// StatusFor maps a domain error to an HTTP status and wire code.
func StatusFor(err error) (int, string) {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.status, c.code
		}
	}
	return http.StatusInternalServerError, CodeInternal
}

// ErrorFor maps a wire error back to a domain error. 5xx responses and
// unknown codes are transient.
func ErrorFor(status int, resp ErrorResponse) error {
	if status < 500 {
		for _, c := range codes {
			if c.code == resp.Code {
				return domain.NewOpError("remote", c.err, resp.Message)
			}
		}
		if status == http.StatusTooManyRequests {
			return domain.NewOpError("remote", domain.ErrTransient, "rate limited")
		}
	}
	return domain.NewOpError("remote", domain.ErrTransient, resp.Message)
}
