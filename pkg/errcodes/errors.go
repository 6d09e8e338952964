package errcodes

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

const (
	//tygo:emit export type ErrorCode = typeof CodeNotFound | typeof CodeUnsupportedFormat | typeof CodeDecodeFailure | typeof CodeNetworkUnavailable | typeof CodeStorageQuotaExceeded;
	CodeNotFound             = "not_found"
	CodeUnsupportedFormat    = "unsupported_format"
	CodeDecodeFailure        = "decode_failure"
	CodeNetworkUnavailable   = "offline"
	CodeStorageQuotaExceeded = "storage_quota_exceeded"
)

type Error struct {
	HTTPCode int
	Message  string
	Code     string
}

func (err *Error) Error() string {
	return err.Message
}

func (err *Error) As(target interface{}) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	te.HTTPCode = err.HTTPCode
	te.Message = err.Message
	te.Code = err.Code
	return true
}

// Is matches on the error code alone when the target carries no message, so
// errors.Is(err, &Error{Code: CodeNotFound}) matches any missing resource.
func (err *Error) Is(target error) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	if te.Message == "" && te.HTTPCode == 0 {
		return te.Code == err.Code
	}
	return te.HTTPCode == err.HTTPCode &&
		te.Message == err.Message &&
		te.Code == err.Code
}

// HasCode reports whether err (or anything it wraps) is an *Error with the
// given code.
func HasCode(err error, code string) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Code == code
}

// NotFound returns a 404 error with a message indicating the given resource.
func NotFound(resource string) error {
	return &Error{
		http.StatusNotFound,
		resource + " not found.",
		CodeNotFound,
	}
}

// UnsupportedFormat is returned by the dispatcher for content types it has no
// renderer for.
func UnsupportedFormat(contentType string) error {
	return &Error{
		http.StatusUnsupportedMediaType,
		fmt.Sprintf("Unsupported format %q.", contentType),
		CodeUnsupportedFormat,
	}
}

// DecodeFailure wraps a renderer that could not make sense of a blob.
func DecodeFailure(format string, cause error) error {
	msg := fmt.Sprintf("Failed to decode %s.", format)
	if cause != nil {
		msg = fmt.Sprintf("Failed to decode %s: %s", format, cause.Error())
	}
	return &Error{
		http.StatusUnprocessableEntity,
		msg,
		CodeDecodeFailure,
	}
}

func NetworkUnavailable() error {
	return &Error{
		http.StatusServiceUnavailable,
		"Offline",
		CodeNetworkUnavailable,
	}
}

func StorageQuotaExceeded(needed, available int64) error {
	return &Error{
		http.StatusInsufficientStorage,
		fmt.Sprintf("Storage quota exceeded: need %d bytes, %d available.", needed, available),
		CodeStorageQuotaExceeded,
	}
}

func UnknownParameter(param string) error {
	return &Error{
		http.StatusUnprocessableEntity,
		fmt.Sprintf("Unknown Parameter %q", param),
		"unknown_parameter",
	}
}

func ValidationTypeError(msg string) error {
	return &Error{
		http.StatusUnprocessableEntity,
		msg,
		"validation_type_error",
	}
}

func ValidationError(msg string) error {
	return &Error{
		http.StatusUnprocessableEntity,
		msg,
		"validation_error",
	}
}

func MalformedPayload() error {
	return &Error{
		http.StatusBadRequest,
		"Malformed Payload",
		"malformed_payload",
	}
}

func EmptyRequestBody() error {
	return &Error{
		http.StatusBadRequest,
		"Request body can't be empty.",
		"empty_request_body",
	}
}
