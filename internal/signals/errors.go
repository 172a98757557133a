package signals

import (
	"errors"
	"fmt"
	"gatekeeper/internal/models"
)

var (
	// ErrUnsupportedType is returned by the factory for an unknown backend type.
	ErrUnsupportedType = errors.New("unsupported storage type")

	// ErrInvalidEvent is returned when an event carries no identity hash or
	// misses a required field.
	ErrInvalidEvent = errors.New("invalid event")

	// ErrUnknownDimension is returned for a dimension the backend cannot query.
	ErrUnknownDimension = errors.New("unknown dimension")
)

func validateUsageEvent(event *models.UsageEvent) error {
	if event == nil {
		return fmt.Errorf("%w: nil usage event", ErrInvalidEvent)
	}
	if event.Identity().Empty() {
		return fmt.Errorf("%w: usage event %s has no identity hash", ErrInvalidEvent, event.ID)
	}
	if event.Action == "" {
		return fmt.Errorf("%w: usage event %s has no action", ErrInvalidEvent, event.ID)
	}
	if event.ID == "" {
		return fmt.Errorf("%w: usage event has no id", ErrInvalidEvent)
	}
	return nil
}

func validateAbuseEvent(event *models.AbuseEvent) error {
	if event == nil {
		return fmt.Errorf("%w: nil abuse event", ErrInvalidEvent)
	}
	if event.Identity().Empty() {
		return fmt.Errorf("%w: abuse event %s has no identity hash", ErrInvalidEvent, event.ID)
	}
	if event.ID == "" {
		return fmt.Errorf("%w: abuse event has no id", ErrInvalidEvent)
	}
	return nil
}

func validateDimension(dim models.Dimension) error {
	switch dim {
	case models.DimensionOrigin, models.DimensionClient:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDimension, dim)
	}
}
