package domain

import (
	"errors"
	"fmt"

	goerrors "github.com/goliatone/go-errors"
)

var (
	// ErrValidation marks missing or invalid required fields. No network call was attempted.
	ErrValidation = errors.New("editorial: validation failed")
	// ErrUnauthorized marks a create attempted without an authenticated author.
	ErrUnauthorized = errors.New("editorial: no authenticated author")
	// ErrTimeout marks a network call that exceeded its bound.
	ErrTimeout = errors.New("editorial: operation timed out")
	// ErrStore marks a failure reported by the document store.
	ErrStore = errors.New("editorial: store rejected the request")
	// ErrIdentityConflict marks an attempt to rebind a buffer to a different identity.
	ErrIdentityConflict = errors.New("editorial: identity already bound")
	// ErrUpload marks an asset transform or storage failure.
	ErrUpload = errors.New("editorial: upload failed")
)

const (
	TextCodeValidation       = "VALIDATION_FAILED"
	TextCodeUnauthorized     = "UNAUTHORIZED"
	TextCodeTimeout          = "TIMEOUT"
	TextCodeStore            = "STORE_ERROR"
	TextCodeIdentityConflict = "IDENTITY_CONFLICT"
	TextCodeUpload           = "UPLOAD_FAILED"
)

// ValidationError builds a validation failure. Field level details from ozzo
// validation are preserved when cause carries them.
func ValidationError(message string, cause error) error {
	var err *goerrors.Error
	if cause != nil {
		err = goerrors.FromOzzoValidation(cause, message)
	} else {
		err = goerrors.New(message, goerrors.CategoryValidation)
	}
	err.TextCode = TextCodeValidation
	err.Source = join(ErrValidation, err.Source)
	return err
}

// UnauthorizedError reports a create without an author.
func UnauthorizedError(message string) error {
	return build(goerrors.CategoryAuth, TextCodeUnauthorized, ErrUnauthorized, message, nil)
}

// TimeoutError reports an operation exceeding its bound.
func TimeoutError(operation string, cause error) error {
	return build(goerrors.CategoryExternal, TextCodeTimeout, ErrTimeout,
		fmt.Sprintf("%s timed out", operation), cause)
}

// StoreError passes the store's message through untouched.
func StoreError(cause error) error {
	message := "store request failed"
	if cause != nil {
		message = cause.Error()
	}
	return build(goerrors.CategoryExternal, TextCodeStore, ErrStore, message, cause)
}

// IdentityConflictError reports a rebind attempt.
func IdentityConflictError(bound, requested string) error {
	return build(goerrors.CategoryConflict, TextCodeIdentityConflict, ErrIdentityConflict,
		fmt.Sprintf("buffer bound to %q, refusing %q", bound, requested), nil).
		WithMetadata(map[string]any{"bound": bound, "requested": requested})
}

// UploadError reports a failed asset upload.
func UploadError(asset string, cause error) error {
	message := fmt.Sprintf("upload of %q failed", asset)
	if cause != nil {
		message = fmt.Sprintf("%s: %s", message, UserMessage(cause))
	}
	return build(goerrors.CategoryOperation, TextCodeUpload, ErrUpload, message, cause)
}

// UserMessage returns the human readable message of err, without category
// prefixes, suitable for showing to the author verbatim.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var typed *goerrors.Error
	if errors.As(err, &typed) && typed.Message != "" {
		return typed.Message
	}
	return err.Error()
}

// TextCode extracts the text code of a categorised error.
func TextCode(err error) string {
	var typed *goerrors.Error
	if errors.As(err, &typed) {
		return typed.TextCode
	}
	return ""
}

func build(category goerrors.Category, code string, sentinel error, message string, cause error) *goerrors.Error {
	err := goerrors.New(message, category).WithTextCode(code)
	err.Source = join(sentinel, cause)
	return err
}

func join(sentinel, cause error) error {
	if cause == nil {
		return sentinel
	}
	return errors.Join(sentinel, cause)
}
