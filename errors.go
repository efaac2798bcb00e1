package main

import "fmt"

// PreconditionError is returned when the caller's input violates one of
// the Driver's preconditions (the compilation unit, the source file
// entry, or the --proto_message argument is missing or malformed).
// Always fatal.
type PreconditionError struct {
	Msg string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("precondition: %s", e.Msg)
}

// NotFoundError is returned when a named entity (a root message type, an
// Any-wrapper's dynamic type, a required input) cannot be located.
// Fatal for the root message; non-fatal (logged) when it names an
// Any-wrapper's embedded type.
type NotFoundError struct {
	Entity string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("not found: %s", e.Entity)
}

// ParseFailureError wraps a failure from the textproto parser. Always
// fatal.
type ParseFailureError struct {
	Err error
}

func (e *ParseFailureError) Error() string {
	return fmt.Sprintf("parse failure: %v", e.Err)
}

func (e *ParseFailureError) Unwrap() error {
	return e.Err
}

// InternalError marks a violated invariant: a state the analyzer should
// never be able to reach given a well-formed descriptor pool and value
// tree. Always fatal.
type InternalError struct {
	Msg string
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal: %s", e.Msg)
}

// SchemaCommentError wraps a failure encountered while analyzing the
// proto-message/proto-file/proto-import comment directives. Non-fatal:
// the Driver records it as a diagnostic on the file node and continues.
type SchemaCommentError struct {
	Err error
}

func (e *SchemaCommentError) Error() string {
	return fmt.Sprintf("schema comment: %v", e.Err)
}

func (e *SchemaCommentError) Unwrap() error {
	return e.Err
}
