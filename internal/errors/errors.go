// Package errors holds the sentinel and typed errors shared by the model,
// the fill engine and the transports.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions
var (
	// ErrUntrainedModel is returned when scoring, generation or fill runs before training completed
	ErrUntrainedModel = errors.New("model is not trained")

	// ErrModelAlreadyTrained is returned when Fit is called a second time on the same model
	ErrModelAlreadyTrained = errors.New("model is already trained")

	// ErrEmptyVocabulary is returned when the training corpus yields no usable symbols
	ErrEmptyVocabulary = errors.New("training corpus yields an empty vocabulary")

	// ErrInvalidBeamConfiguration is returned for a beam width or top-k outside the allowed range
	ErrInvalidBeamConfiguration = errors.New("invalid beam configuration")

	// ErrNoCandidates is returned when a gap segment expands to nothing
	ErrNoCandidates = errors.New("no candidates for gap")

	// ErrInvalidModelConfiguration is returned when model options are inconsistent
	ErrInvalidModelConfiguration = errors.New("invalid model configuration")
)

// InvalidBeamConfigurationError carries the rejected beam width and top-k.
type InvalidBeamConfigurationError struct {
	BeamWidth int
	TopK      int
	Reason    string
}

func (e *InvalidBeamConfigurationError) Error() string {
	return fmt.Sprintf("invalid beam configuration (beam_width=%d, top_k=%d): %s", e.BeamWidth, e.TopK, e.Reason)
}

func (e *InvalidBeamConfigurationError) Is(target error) bool {
	return target == ErrInvalidBeamConfiguration
}

// NewInvalidBeamConfigurationError creates a new InvalidBeamConfigurationError
func NewInvalidBeamConfigurationError(beamWidth, topK int, reason string) *InvalidBeamConfigurationError {
	return &InvalidBeamConfigurationError{BeamWidth: beamWidth, TopK: topK, Reason: reason}
}

// NoCandidatesError names the segment whose expansion was empty.
type NoCandidatesError struct {
	Segment string
}

func (e *NoCandidatesError) Error() string {
	return fmt.Sprintf("segment '%s' expanded to no candidates", e.Segment)
}

func (e *NoCandidatesError) Is(target error) bool {
	return target == ErrNoCandidates
}

// NewNoCandidatesError creates a new NoCandidatesError
func NewNoCandidatesError(segment string) *NoCandidatesError {
	return &NoCandidatesError{Segment: segment}
}

// ModelConfigError describes which model option is invalid.
type ModelConfigError struct {
	Field   string
	Message string
}

func (e *ModelConfigError) Error() string {
	return fmt.Sprintf("invalid model option '%s': %s", e.Field, e.Message)
}

func (e *ModelConfigError) Is(target error) bool {
	return target == ErrInvalidModelConfiguration
}

// NewModelConfigError creates a new ModelConfigError
func NewModelConfigError(field, message string) *ModelConfigError {
	return &ModelConfigError{Field: field, Message: message}
}

// IsUntrained reports whether err stems from using a model before training.
func IsUntrained(err error) bool {
	return errors.Is(err, ErrUntrainedModel)
}

// IsInvalidBeamConfiguration reports whether err is a rejected beam configuration.
func IsInvalidBeamConfiguration(err error) bool {
	return errors.Is(err, ErrInvalidBeamConfiguration)
}
