package serrors

import (
	"errors"
	"fmt"
)

// BaseError carries a stable machine-readable code next to the message.
type BaseError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	LocaleKey string `json:"locale_key,omitempty"`
}

func NewError(code, message, localeKey string) *BaseError {
	return &BaseError{
		Code:      code,
		Message:   message,
		LocaleKey: localeKey,
	}
}

func (e *BaseError) Error() string {
	return e.Message
}

// Is matches any BaseError with the same code so wrapped copies still compare equal.
func (e *BaseError) Is(target error) bool {
	var other *BaseError
	if !errors.As(target, &other) {
		return false
	}
	return other.Code == e.Code
}

func (e *BaseError) Wrap(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{e}, args...)...)
}

// Code returns the code of the first BaseError in the chain, or "".
func Code(err error) string {
	var base *BaseError
	if errors.As(err, &base) {
		return base.Code
	}
	return ""
}
