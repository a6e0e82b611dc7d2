package apperr

import (
	"errors"
	"strings"
)

// Messages produced by Friendly.
const (
	MsgInvalidSport       = "Please choose a valid sport type."
	MsgAlreadyExists      = "This item already exists. Please try a different value."
	MsgNoPermission       = "You do not have permission to perform this action."
	MsgSessionExpired     = "Your session expired. Please login again."
	MsgInvalidCredentials = "Invalid email or password. Please try again."
	MsgEmailNotConfirmed  = "Please verify your email before logging in."
	MsgNetwork            = "Network issue detected. Please try again."
)

type rule struct {
	needles []string
	message string
}

// rules are checked in order; the first match wins.
var rules = []rule{
	{needles: []string{"invalid input value for enum"}, message: MsgInvalidSport},
	{needles: []string{"duplicate key", "unique constraint failed"}, message: MsgAlreadyExists},
	{needles: []string{"violates row-level security"}, message: MsgNoPermission},
	{needles: []string{"jwt", "token is expired", "not authenticated"}, message: MsgSessionExpired},
	{needles: []string{"invalid login credentials"}, message: MsgInvalidCredentials},
	{needles: []string{"email not confirmed"}, message: MsgEmailNotConfirmed},
	{needles: []string{"network", "connection refused", "i/o timeout"}, message: MsgNetwork},
}

// Friendly maps a backend failure to a message that is safe to show. The match
// is a case-insensitive substring test over the whole error chain text;
// anything unrecognised yields fallback.
func Friendly(err error, fallback string) string {
	if err == nil {
		return fallback
	}
	text := strings.ToLower(err.Error())
	for _, r := range rules {
		for _, needle := range r.needles {
			if strings.Contains(text, needle) {
				return r.message
			}
		}
	}
	return fallback
}

// Normalize wraps err in an *Error with code and the friendly message for it.
// An err that already carries an *Error yields that *Error.
func Normalize(err error, code Code, fallback string) error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Wrap(code, Friendly(err, fallback), err)
}
