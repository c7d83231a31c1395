package model

import "fmt"

// TransitionPolicy decides which status changes a donation accepts.
type TransitionPolicy int

const (
	// PolicyPermissive accepts any valid status from any prior status.
	PolicyPermissive TransitionPolicy = iota
	// PolicyStrict only accepts moves listed in the transition table.
	PolicyStrict
)

// transitions lists the forward moves of the pickup lifecycle.
var transitions = map[DonationStatus][]DonationStatus{
	StatusToCollect: {StatusOnTheWay},
	StatusOnTheWay:  {StatusReceived},
	StatusReceived:  nil,
}

// NextStatuses returns the statuses reachable in one forward step from s.
func NextStatuses(s DonationStatus) []DonationStatus {
	return transitions[s]
}

// CheckTransition returns nil if moving from -> to is allowed under p.
// Re-applying the current status is always allowed so replays are harmless.
func (p TransitionPolicy) CheckTransition(from, to DonationStatus) error {
	if !to.Valid() {
		return fmt.Errorf("%w: status %q", ErrInvalidArgument, to)
	}
	if p == PolicyPermissive || from == to {
		return nil
	}
	for _, next := range transitions[from] {
		if next == to {
			return nil
		}
	}
	return fmt.Errorf("%w: cannot move donation from %s to %s", ErrConflict, from, to)
}

func (p TransitionPolicy) String() string {
	if p == PolicyStrict {
		return "strict"
	}
	return "permissive"
}
