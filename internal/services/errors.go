package services

import "errors"

// Typed failures of the pool lifecycle. Handlers map these onto HTTP status
// codes with errors.Is; services wrap them with context but never swallow
// them into a generic failure.
var (
	// ErrNotFound covers both unknown pool ids and pools belonging to a
	// different organization, so existence never leaks across tenants.
	ErrNotFound = errors.New("pool not found")

	// ErrInvalidTransition is returned when an operation's status
	// precondition does not hold.
	ErrInvalidTransition = errors.New("invalid pool state for operation")

	// ErrEmptyCleanedSet rejects a clean approval with no keywords.
	ErrEmptyCleanedSet = errors.New("cleaned keyword set is empty")

	// ErrIncompletePlan rejects approval of a plan whose groups do not
	// cover the cleaned keyword set exactly.
	ErrIncompletePlan = errors.New("grouping plan is incomplete")

	// ErrNoPlan is returned when an override/reset/approval targets a pool
	// that has no generated plan.
	ErrNoPlan = errors.New("no grouping plan generated")

	// ErrDuplicateAssignment rejects a mutation that would put one phrase
	// in two groups. Silent dedupe would hide the upstream logic error, so
	// the mutation is refused outright.
	ErrDuplicateAssignment = errors.New("phrase already assigned to another group")

	// ErrConcurrentModification means the pool's version token changed
	// between the caller's read and this write. The caller must re-fetch
	// and retry; the server never retries on its behalf.
	ErrConcurrentModification = errors.New("pool was modified concurrently")

	// ErrGenerationFailed surfaces a cleaner/grouper failure. The pool is
	// left untouched; the caller may retry.
	ErrGenerationFailed = errors.New("generation failed")

	// ErrBadGroupIndex rejects an override addressing a group ordinal that
	// does not exist in the current plan.
	ErrBadGroupIndex = errors.New("group index out of range")
)
