// Package core holds the error taxonomy shared by every portal
// component. Handlers map these onto HTTP status codes; services
// return them as plain error values.
package core

import "fmt"

// ValidationError reports bad caller input, e.g. a missing required
// custom field or an empty rejection reason.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// IneligibleError reports a membership-tier rule failure.
type IneligibleError struct {
	Tier         string
	AllowedTiers []string
}

func (e *IneligibleError) Error() string {
	return fmt.Sprintf("tier %q is not eligible; allowed tiers: %v", e.Tier, e.AllowedTiers)
}

// CapacityExceededError reports a full activity.
type CapacityExceededError struct {
	ActivityID uint
	Capacity   int
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("activity %d is full (capacity %d)", e.ActivityID, e.Capacity)
}

// InvalidStateTransitionError reports an operation that is not valid
// from the record's current status.
type InvalidStateTransitionError struct {
	Entity    string
	Current   string
	Requested string
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("%s cannot move from %q to %q", e.Entity, e.Current, e.Requested)
}

// SignatureInvalidError reports a payment callback whose signature
// did not verify. Never auto-repaired.
type SignatureInvalidError struct {
	OrderRef string
}

func (e *SignatureInvalidError) Error() string {
	return fmt.Sprintf("invalid gateway signature for order %s", e.OrderRef)
}

// AmountMismatchError reports a callback amount that differs from the
// frozen fee. Never auto-repaired.
type AmountMismatchError struct {
	OrderRef string
	Expected int64
	Got      int64
}

func (e *AmountMismatchError) Error() string {
	return fmt.Sprintf("amount mismatch for order %s: expected %d, got %d", e.OrderRef, e.Expected, e.Got)
}

// NotFoundError reports a missing record.
type NotFoundError struct {
	Entity string
	Ref    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.Ref)
}

// ConflictError reports an optimistic-concurrency loss, e.g. two
// staff racing to decide the same donation.
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string { return e.Msg }
