package domain

import (
	"errors"
	"fmt"
)

var (
	ErrTabNotFound        = errors.New("tab not found")
	ErrDuplicateTab       = errors.New("tab already exists")
	ErrNotCustomTab       = errors.New("tab is not a custom tab")
	ErrNotPermutation     = errors.New("ordering is not a permutation of the visible tabs")
	ErrPositionOutOfRange = errors.New("position out of range")
	ErrTabNotHidden       = errors.New("tab is not hidden")
	ErrTabNotVisible      = errors.New("tab is not visible")
	ErrUnknownFilterType  = errors.New("unknown filter type")
	ErrMissingField       = errors.New("missing required field")
	ErrUnknownPreset      = errors.New("unknown preset")
	ErrNotFound           = errors.New("not found")
	ErrLayoutNotFound     = errors.New("layout not found")
)

// FilterParamError reports a filter whose shape cannot be decoded or built
type FilterParamError struct {
	Err   error
	Type  FilterType
	Field string
}

func (e *FilterParamError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("filter %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("%s filter %s: %v", e.Type, e.Field, e.Err)
}

func (e *FilterParamError) Unwrap() error {
	return e.Err
}

// CorruptConfigError is returned when persisted tab settings are structurally
// broken. The whole configuration is rejected; BackupKey is where the raw
// bytes were kept, if a backup was taken.
type CorruptConfigError struct {
	Err       error
	TabID     string
	BackupKey string
}

func (e *CorruptConfigError) Error() string {
	if e.TabID != "" {
		return fmt.Sprintf("corrupt tab configuration (tab %s): %v", e.TabID, e.Err)
	}
	return fmt.Sprintf("corrupt tab configuration: %v", e.Err)
}

func (e *CorruptConfigError) Unwrap() error {
	return e.Err
}

func NewCorruptConfigError(tabID string, err error) *CorruptConfigError {
	return &CorruptConfigError{
		TabID: tabID,
		Err:   err,
	}
}

// IsCorruptConfig reports whether err carries a CorruptConfigError
func IsCorruptConfig(err error) bool {
	var cce *CorruptConfigError
	return errors.As(err, &cce)
}
