// Package errortypes defines the failure kinds the embedding pipeline can
// report. Components return these values; only the transport layer turns
// them into status codes.
package errortypes

import (
	"errors"
	"fmt"
)

// Kind identifies one member of the pipeline error taxonomy.
type Kind string

const (
	KindUnsupportedFormat Kind = "unsupported_format"
	KindPayloadTooLarge   Kind = "payload_too_large"
	KindDecode            Kind = "decode"
	KindExtraction        Kind = "extraction"
	KindEmptyContent      Kind = "empty_content"
	KindChunking          Kind = "chunking"
	KindTransport         Kind = "transport"
	KindProvider          Kind = "provider"
	KindMalformedResponse Kind = "malformed_response"
)

// Sentinels usable with errors.Is. Matching is by kind only.
var (
	ErrUnsupportedFormat = &Error{Kind: KindUnsupportedFormat}
	ErrPayloadTooLarge   = &Error{Kind: KindPayloadTooLarge}
	ErrDecode            = &Error{Kind: KindDecode}
	ErrExtraction        = &Error{Kind: KindExtraction}
	ErrEmptyContent      = &Error{Kind: KindEmptyContent}
	ErrChunking          = &Error{Kind: KindChunking}
	ErrTransport         = &Error{Kind: KindTransport}
	ErrProvider          = &Error{Kind: KindProvider}
	ErrMalformedResponse = &Error{Kind: KindMalformedResponse}
)

// Error is a pipeline failure with its kind and optional cause.
type Error struct {
	Kind    Kind
	Message string
	// Status and Detail are set for provider errors: the upstream status
	// code and the raw response detail.
	Status int
	Detail string
	Err    error
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Kind == KindProvider && e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Detail != "" {
		msg = msg + ": " + e.Detail
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap unwraps the error to support errors.Is and errors.As
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func newError(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

func UnsupportedFormat(ext string, allowed []string) *Error {
	return newError(KindUnsupportedFormat, nil, "file type '%s' not supported, allowed types: %v", ext, allowed)
}

func PayloadTooLarge(size, limit int) *Error {
	return newError(KindPayloadTooLarge, nil, "file too large (%d bytes), maximum size: %.1fMB", size, float64(limit)/(1024*1024))
}

func Decode(err error) *Error {
	return newError(KindDecode, err, "unable to decode text file, please ensure it is UTF-8")
}

func Extraction(err error) *Error {
	return newError(KindExtraction, err, "text extraction failed")
}

func EmptyContent() *Error {
	return newError(KindEmptyContent, nil, "no text content found")
}

func Chunking(err error) *Error {
	return newError(KindChunking, err, "failed to create text chunks")
}

func Transport(err error) *Error {
	return newError(KindTransport, err, "network error")
}

// Provider reports a non-success response from the embedding provider.
func Provider(status int, detail string, err error) *Error {
	return &Error{Kind: KindProvider, Message: "embedding provider error", Status: status, Detail: detail, Err: err}
}

func MalformedResponse(detail string) *Error {
	return &Error{Kind: KindMalformedResponse, Message: "invalid response format from embedding provider", Detail: detail}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// IsClientError reports whether the kind is caused by the caller's input.
func IsClientError(kind Kind) bool {
	switch kind {
	case KindUnsupportedFormat, KindPayloadTooLarge, KindDecode, KindEmptyContent:
		return true
	}
	return false
}
