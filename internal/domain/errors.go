// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrInvalidState indicates an operation is not legal in the entity's current state.
var ErrInvalidState = errors.New("invalid state")

// ErrNoBackends indicates discovery found no usable backend CLI.
var ErrNoBackends = errors.New("no backends available")

// ErrUnknownBackend indicates a request named a backend that was not discovered.
var ErrUnknownBackend = errors.New("unknown backend")
