package enums

import "fmt"

// RequestStatus tracks a service request after submission.
type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "pending"
	RequestStatusCancelled RequestStatus = "cancelled"
	RequestStatusConfirmed RequestStatus = "confirmed"
)

var validRequestStatuses = []RequestStatus{
	RequestStatusPending,
	RequestStatusCancelled,
	RequestStatusConfirmed,
}

// String implements fmt.Stringer.
func (s RequestStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known RequestStatus.
func (s RequestStatus) IsValid() bool {
	for _, candidate := range validRequestStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s RequestStatus) IsTerminal() bool {
	return s == RequestStatusCancelled || s == RequestStatusConfirmed
}

// CanTransitionTo reports whether moving from s to next is allowed.
// Only pending requests move, and never back to pending.
func (s RequestStatus) CanTransitionTo(next RequestStatus) bool {
	if s != RequestStatusPending {
		return false
	}
	return next == RequestStatusCancelled || next == RequestStatusConfirmed
}

// ParseRequestStatus converts raw input into a RequestStatus.
func ParseRequestStatus(value string) (RequestStatus, error) {
	for _, candidate := range validRequestStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid request status %q", value)
}
