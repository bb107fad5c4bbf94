// Package errors defines the two-kind error taxonomy the query core
// surfaces to callers: user-caused request errors and internal failures.
// Everything here wraps with fmt.Errorf("...: %w", err), the same style
// the teacher analyzer uses for its mmap/codec failures.
package errors

import (
	"errors"
	"fmt"
)

// Kind classifies an error as caller-fixable or not.
type Kind int

const (
	// KindInternal covers missing DB entries, codec failures, storage
	// engine failures and anything the caller cannot repair by changing
	// their request.
	KindInternal Kind = iota
	// KindUser covers invalid filter/sort syntax, non-filterable or
	// non-sortable fields, bad facet value types, and similarly
	// caller-repairable mistakes.
	KindUser
)

func (k Kind) String() string {
	if k == KindUser {
		return "user_error"
	}
	return "internal_error"
}

// UserError carries a rendered, field-specific message plus the list of
// currently valid fields so the caller can repair the request without a
// second round trip.
type UserError struct {
	Code       string
	Message    string
	Field      string
	ValidNames []string
	cause      error
}

func (e *UserError) Error() string {
	if len(e.ValidNames) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (valid: %v)", e.Message, e.ValidNames)
}

func (e *UserError) Unwrap() error { return e.cause }
func (e *UserError) Kind() Kind    { return KindUser }

// NewUserError builds a UserError naming the offending field and the
// current set of valid field names for that context.
func NewUserError(code, field, message string, validNames []string) *UserError {
	return &UserError{Code: code, Field: field, Message: message, ValidNames: validNames}
}

// InternalError wraps a lower-level failure (storage, codec, vector
// store I/O) that the caller cannot repair.
type InternalError struct {
	Code    string
	Message string
	cause   error
}

func (e *InternalError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *InternalError) Unwrap() error { return e.cause }
func (e *InternalError) Kind() Kind    { return KindInternal }

// Wrap builds an InternalError wrapping cause under code/message.
func Wrap(code, message string, cause error) *InternalError {
	return &InternalError{Code: code, Message: message, cause: cause}
}

// Sentinel internal errors for conditions that don't carry extra context.
var (
	ErrMissingDBEntry  = &InternalError{Code: "missing_db_entry", Message: "required database entry is absent"}
	ErrDecodeFailed    = &InternalError{Code: "decode_failed", Message: "codec decode failure"}
	ErrEncodeFailed    = &InternalError{Code: "encode_failed", Message: "codec encode failure"}
	ErrStorageFull     = &InternalError{Code: "storage_full", Message: "memory-mapped store is full"}
	ErrStoreClosing    = &InternalError{Code: "store_closing", Message: "store is closing"}
	ErrInvalidStore    = &InternalError{Code: "invalid_store", Message: "store file is not a valid kestrel store"}
	ErrAbortedIndexing = &InternalError{Code: "aborted_indexing", Message: "indexation was aborted"}
	ErrVectorStoreIO   = &InternalError{Code: "vector_store_io", Message: "vector store I/O failure"}
)

// UnknownDocumentID is a UserError raised when a request references an
// internal document id that does not exist in the current snapshot.
func UnknownDocumentID(id uint32) *UserError {
	return NewUserError("unknown_document_id", "", fmt.Sprintf("unknown internal document id %d", id), nil)
}

// IsUser reports whether err (or something it wraps) is a UserError.
func IsUser(err error) bool {
	var u *UserError
	return errors.As(err, &u)
}

// IsInternal reports whether err (or something it wraps) is an InternalError.
func IsInternal(err error) bool {
	var i *InternalError
	return errors.As(err, &i)
}
