// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package errors defines the error taxonomy shared by the knowledge ingestion
// and retrieval engine: a small, closed set of kinds that every layer (readers,
// providers, the vector store, the queue manager) wraps its failures into, so
// the orchestrator can convert any error into the right caller-visible status.
package errors

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the purposes of status reporting and retry
// policy. It is not an HTTP status code; nothing in this engine serves HTTP.
type Kind string

const (
	// KindValidation covers missing/invalid fields in a base, model reference,
	// or item payload. Carries a Fields map naming the offending keys.
	KindValidation Kind = "validation"

	// KindServiceUnavailable covers a provider that is configured but unusable
	// right now (missing base URL, unreachable endpoint at call time).
	KindServiceUnavailable Kind = "service_unavailable"

	// KindNotFound marks a reader target that is missing. Readers translate
	// this into an empty result rather than surfacing it as an error; the kind
	// exists so internal helpers can still distinguish the case.
	KindNotFound Kind = "not_found"

	// KindAbort marks cooperative cancellation. See AbortErr.
	KindAbort Kind = "abort"

	// KindTransient covers external I/O failures that may be retried or
	// skipped by the caller: non-2xx HTTP responses, provider rate limits,
	// partial sitemap fetch failures.
	KindTransient Kind = "transient"

	// KindIntegrity covers invariant violations that are fatal to a job:
	// dimension mismatch on add, unsupported item type, unknown action.
	KindIntegrity Kind = "integrity"

	// KindInternal covers unexpected failures with no better classification.
	KindInternal Kind = "internal"
)

// Error is the concrete error type produced by this module. It wraps an
// optional cause and carries a Kind plus, for validation failures, a map of
// field name to problem description.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
	Cause   error
}

// New creates an Error with no cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an Error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error that preserves cause for errors.Is/As and logging.
func Wrap(cause error, kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Wrapf is Wrap with a formatted message.
func Wrapf(cause error, kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// WithField attaches a field-level validation detail and returns the receiver
// for chaining. Intended for KindValidation errors enumerating offending
// fields, per spec ("a validation failure enumerating the offending field").
func (e *Error) WithField(field, problem string) *Error {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = problem
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the cause to errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same Kind, so callers can
// write errors.Is(err, errors.New(KindAbort, "")) style checks without caring
// about the message.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// KindOf extracts the Kind of err if it is (or wraps) an *Error, defaulting to
// KindInternal for anything else.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// abortError is the distinguished cancellation error named in spec §4.3: "a
// distinguished abort error whose name is AbortError". Go has no notion of a
// "named error type" the way the source language does, so Name() is the
// mechanical equivalent other packages check against.
type abortError struct {
	reason string
}

// Name returns the fixed string "AbortError", mirroring the source's
// convention of tagging cancellation errors by name rather than by Go type
// switch, so callers that only know the spec's vocabulary can check it.
func (e *abortError) Name() string { return "AbortError" }

func (e *abortError) Error() string {
	if e.reason != "" {
		return fmt.Sprintf("AbortError: %s", e.reason)
	}
	return "AbortError: aborted"
}

// NewAbort creates a cancellation error. reason may be empty.
func NewAbort(reason string) error {
	return &abortError{reason: reason}
}

// IsAbort reports whether err is (or wraps) the distinguished abort error.
func IsAbort(err error) bool {
	if err == nil {
		return false
	}
	type named interface{ Name() string }
	var n named
	if errors.As(err, &n) {
		return n.Name() == "AbortError"
	}
	return false
}
