package lifecycle

import (
	"errors"

	"greenbox-backend/internal/slots"
)

// Error kinds surfaced to the caller. Conflict errors (capacity, container,
// active loan, wrong state) come from legitimate races or stale client
// state; the caller is expected to re-query and retry, the engine never
// retries on its own.
var (
	// ErrOutOfHours is the allocator's rejection of a pickup time outside
	// operating hours.
	ErrOutOfHours = slots.ErrOutOfHours

	ErrInvalidLocation = errors.New("unknown or inactive location")

	ErrCapacityExceeded = errors.New("pickup slot has no remaining capacity")

	ErrAlreadyActive = errors.New("user already has an active checkout")

	ErrContainerUnavailable = errors.New("container is not available for pickup")

	ErrNotReserved = errors.New("checkout is not in reserved state")

	ErrNotPickedUp = errors.New("checkout is not in picked_up state")

	ErrInvalidTransition = errors.New("illegal container state transition")

	ErrForbidden = errors.New("requester does not own this checkout")

	ErrNotFound = errors.New("record not found")

	// ErrStorageUnavailable wraps persistence failures. The engine
	// propagates them as-is rather than masking them with fabricated data.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
