package handlers

import (
	"errors"
	"net/http"
)

// Request classifications. Every handler error wraps exactly one of these.
var (
	ErrInvalidBody       = errors.New("request body is not json")
	ErrMissingIdentifier = errors.New("entry_id not provided")
	ErrEmptyIdentifier   = errors.New("entry_id is empty")
	ErrInvalidIdentifier = errors.New("invalid entry_id")
	ErrStorageFailure    = errors.New("storage failure")
	ErrImageNotFound     = errors.New("qr code not found")
)

// Fine-grained error codes, exposed in the X-Error-Code header
const (
	CodeNotJSONContentType  = "not_json_content_type"
	CodeMalformedBody       = "malformed_body"
	CodeMissingIdentifier   = "missing_identifier"
	CodeIdentifierNotScalar = "identifier_not_scalar"
	CodeEmptyIdentifier     = "empty_identifier"
	CodeIdentifierUnsafe    = "identifier_unsafe"
	CodeEncodeRejected      = "encode_rejected"
	CodeStorageFailure      = "storage_failure"
	CodeImageNotFound       = "image_not_found"
)

const errorCodeHeader = "X-Error-Code"

// requestError pairs a classification with its code and underlying cause
type requestError struct {
	class error
	code  string
	cause error
}

func newRequestError(class error, code string, cause error) *requestError {
	return &requestError{class: class, code: code, cause: cause}
}

func (e *requestError) Error() string {
	if e.cause == nil {
		return e.class.Error()
	}
	return e.class.Error() + ": " + e.cause.Error()
}

func (e *requestError) Unwrap() []error {
	if e.cause == nil {
		return []error{e.class}
	}
	return []error{e.class, e.cause}
}

type errorResponse struct {
	class   error
	status  int
	message string
}

var errorResponses = []errorResponse{
	{ErrInvalidBody, http.StatusBadRequest, "Request must be JSON"},
	{ErrMissingIdentifier, http.StatusBadRequest, "entry_id not provided"},
	{ErrEmptyIdentifier, http.StatusBadRequest, "entry_id is empty"},
	{ErrInvalidIdentifier, http.StatusBadRequest, "Invalid entry_id"},
	{ErrImageNotFound, http.StatusNotFound, "QR code not found"},
	{ErrStorageFailure, http.StatusInternalServerError, "Error processing QR code"},
}

// statusFor maps err to an HTTP status and client message. Unclassified
// errors are treated as storage failures.
func statusFor(err error) (int, string) {
	for _, r := range errorResponses {
		if errors.Is(err, r.class) {
			return r.status, r.message
		}
	}
	return http.StatusInternalServerError, "Error processing QR code"
}

func codeFor(err error) string {
	var re *requestError
	if errors.As(err, &re) {
		return re.code
	}
	return CodeStorageFailure
}
