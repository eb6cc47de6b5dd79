package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is matched by every lookup failure below.
	ErrNotFound = errors.New("not found")
	// ErrActivityNotFound is returned when an activity cannot be located.
	ErrActivityNotFound = fmt.Errorf("activity %w", ErrNotFound)
	// ErrSubmissionNotFound is returned when a proof submission cannot be located.
	ErrSubmissionNotFound = fmt.Errorf("submission %w", ErrNotFound)
	// ErrUnitNotFound is returned when a unit is not part of the roster.
	ErrUnitNotFound = fmt.Errorf("unit %w", ErrNotFound)

	// ErrValidation wraps malformed activity or review input.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidAttachment is returned for evidence that is not a JPEG or PNG image.
	ErrInvalidAttachment = errors.New("invalid attachment: send a JPEG or PNG image")
	// ErrAdjustmentJustificationRequired is returned when an approval changes the
	// point value without explaining why.
	ErrAdjustmentJustificationRequired = errors.New("adjustment justification required")
	// ErrInvalidTransition is returned when a review targets a submission that is not awaiting one.
	ErrInvalidTransition = errors.New("submission is not pending review")
	// ErrVersionConflict is returned when the stored state moved past the version the caller saw.
	ErrVersionConflict = errors.New("version conflict")
)

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
