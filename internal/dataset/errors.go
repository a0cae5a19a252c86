package dataset

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	// CodeDataMissing marks a document that is absent or unreadable.
	CodeDataMissing ErrorCode = "DATA_MISSING"
	// CodeMalformedRecord marks a document that could not be decoded, or a
	// record that lacked an expected field.
	CodeMalformedRecord ErrorCode = "MALFORMED_RECORD"
)

// ErrNoDatasets is returned by Load when none of the three documents could
// be used.
var ErrNoDatasets = errors.New("no datasets available: api surface, infrastructure and product documents are all missing or unusable")

// DocumentError describes why one input document contributed no facts.
type DocumentError struct {
	Code     ErrorCode
	Document string
	Message  string
	Err      error
}

func (e *DocumentError) Error() string {
	msg := fmt.Sprintf("[%s] %s: %s", e.Code, e.Document, e.Message)
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *DocumentError) Unwrap() error {
	return e.Err
}

func missing(doc, msg string, err error) error {
	return &DocumentError{Code: CodeDataMissing, Document: doc, Message: msg, Err: err}
}

func malformed(doc, msg string, err error) error {
	return &DocumentError{Code: CodeMalformedRecord, Document: doc, Message: msg, Err: err}
}

// IsCode reports whether err wraps a DocumentError with the given code.
func IsCode(err error, code ErrorCode) bool {
	var de *DocumentError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}
