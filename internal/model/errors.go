package model

import "errors"

// Error taxonomy of the detection pipeline. All of these are local to one
// flow, one rule, or one dispatch attempt; none of them abort processing of
// other flows.
var (
	// ErrInvalidObservation marks a malformed observation, rejected before
	// any state mutation.
	ErrInvalidObservation = errors.New("invalid observation")

	// ErrModelUnavailable marks a failed ML inference call; callers degrade
	// to rule-only detection.
	ErrModelUnavailable = errors.New("model unavailable")

	// ErrDispatchFailed marks a verdict that could not be delivered to one
	// or more response sinks. The verdict itself still stands.
	ErrDispatchFailed = errors.New("dispatch failed")
)
