package errors

import (
	stdErrors "errors"
	"fmt"
)

type Code string

const (
	CodeNetwork          Code = "NETWORK_ERROR"
	CodeValidation       Code = "VALIDATION_ERROR"
	CodeAuth             Code = "AUTH_ERROR"
	CodeNotAuthenticated Code = "NOT_AUTHENTICATED"
	CodeAssetTooLarge    Code = "ASSET_TOO_LARGE"
	CodeAssetUnsupported Code = "ASSET_UNSUPPORTED"
	CodeNotFound         Code = "NOT_FOUND"
	CodeDependency       Code = "DEPENDENCY_ERROR"
	CodeInternal         Code = "INTERNAL_ERROR"
)

// Surface tells the caller where a failure belongs in the UI.
type Surface string

const (
	SurfaceNotice   Surface = "notice"
	SurfaceInline   Surface = "inline"
	SurfaceRedirect Surface = "redirect"
)

type Metadata struct {
	Surface       Surface
	Retryable     bool
	PublicMessage string
}

var metadataByCode = map[Code]Metadata{
	CodeNetwork: {
		Surface:       SurfaceNotice,
		Retryable:     true,
		PublicMessage: "could not reach the server",
	},
	CodeValidation: {
		Surface:       SurfaceInline,
		Retryable:     false,
		PublicMessage: "validation failed",
	},
	CodeAuth: {
		Surface:       SurfaceNotice,
		Retryable:     false,
		PublicMessage: "session expired, please sign in again",
	},
	CodeNotAuthenticated: {
		Surface:       SurfaceRedirect,
		Retryable:     false,
		PublicMessage: "sign in to continue",
	},
	CodeAssetTooLarge: {
		Surface:       SurfaceInline,
		Retryable:     false,
		PublicMessage: "file is too large",
	},
	CodeAssetUnsupported: {
		Surface:       SurfaceInline,
		Retryable:     false,
		PublicMessage: "file type is not supported",
	},
	CodeNotFound: {
		Surface:       SurfaceNotice,
		Retryable:     false,
		PublicMessage: "resource not found",
	},
	CodeDependency: {
		Surface:       SurfaceNotice,
		Retryable:     true,
		PublicMessage: "service unavailable, try again shortly",
	},
	CodeInternal: {
		Surface:       SurfaceNotice,
		Retryable:     true,
		PublicMessage: "something went wrong",
	},
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.Code() == code
}
