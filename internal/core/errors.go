package core

import (
	"errors"
	"fmt"
)

// Caller input / precondition errors. Reported to the caller as-is, never
// retried internally.
var (
	ErrMatchIDMissing           = errors.New("match id missing")
	ErrTransportNotFound        = errors.New("transport not found")
	ErrNoProducerAvailable      = errors.New("no producer available")
	ErrIncompatibleCapabilities = errors.New("incompatible capabilities")
	ErrEngineUninitialized      = errors.New("media engine not initialized")
)

// EngineError wraps a media engine failure. The coordinator guarantees no
// partial registration is left behind on create/connect/produce/consume
// paths, so callers may retry.
type EngineError struct {
	Op  string
	Err error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("engine %s: %v", e.Op, e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }

// WrapEngine returns err as an *EngineError unless it is one of the caller
// errors the engine is allowed to surface directly.
func WrapEngine(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrIncompatibleCapabilities) || errors.Is(err, ErrEngineUninitialized) {
		return err
	}
	return &EngineError{Op: op, Err: err}
}

func IsEngineError(err error) bool {
	var ee *EngineError
	return errors.As(err, &ee)
}
