package encounter

import (
	"fmt"
	"strings"
)

// Status is the encounter's position in the care pathway.
type Status string

const (
	StatusRegistered     Status = "registered"
	StatusPaymentPending Status = "payment_pending"
	StatusInNursing      Status = "in_nursing"
	StatusWithDoctor     Status = "with_doctor"
	StatusInWard         Status = "in_ward"
	StatusAdmitted       Status = "admitted"
	StatusCheckout       Status = "checkout"
	StatusDischarged     Status = "discharged"
	StatusCompleted      Status = "completed"
	StatusCancelled      Status = "cancelled"
)

var Statuses = []Status{
	StatusRegistered, StatusPaymentPending, StatusInNursing, StatusWithDoctor, StatusInWard,
	StatusAdmitted, StatusCheckout, StatusDischarged, StatusCompleted, StatusCancelled,
}

func ParseStatus(s string) (Status, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, st := range Statuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown encounter status %q", s)
}

// Closed reports whether the encounter has ended. Closed encounters hold no
// bed and do not block new encounters.
func (s Status) Closed() bool {
	switch s {
	case StatusDischarged, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// transitions lists the edges of the care pathway. Cancellation is added for
// every open status in CanTransition.
var transitions = map[Status][]Status{
	StatusRegistered:     {StatusPaymentPending, StatusInNursing, StatusWithDoctor, StatusInWard, StatusAdmitted},
	StatusPaymentPending: {StatusInNursing, StatusWithDoctor},
	StatusInNursing:      {StatusWithDoctor, StatusInWard, StatusAdmitted, StatusCheckout},
	StatusWithDoctor:     {StatusInNursing, StatusInWard, StatusAdmitted, StatusCheckout, StatusDischarged, StatusCompleted},
	StatusInWard:         {StatusAdmitted, StatusWithDoctor, StatusCheckout, StatusDischarged},
	StatusAdmitted:       {StatusInWard, StatusWithDoctor, StatusCheckout, StatusDischarged},
	StatusCheckout:       {StatusDischarged, StatusCompleted},
	StatusDischarged:     {StatusCompleted},
}

// CanTransition reports whether from -> to is an edge of the pathway.
func CanTransition(from, to Status) bool {
	if to == StatusCancelled {
		return !from.Closed()
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NextStatuses lists the statuses reachable from s in one step.
func NextStatuses(s Status) []Status {
	out := append([]Status(nil), transitions[s]...)
	if !s.Closed() {
		out = append(out, StatusCancelled)
	}
	return out
}

// Policy decides what happens to edges outside the pathway.
type Policy string

const (
	// PolicyStrict rejects edges outside the pathway.
	PolicyStrict Policy = "strict"
	// PolicyAdvisory accepts any edge and flags off-pathway ones.
	PolicyAdvisory Policy = "advisory"
)

// Check returns whether from -> to is off the pathway, and an error when
// the policy forbids it.
func (p Policy) Check(from, to Status) (offTable bool, err error) {
	if CanTransition(from, to) {
		return false, nil
	}
	if p == PolicyAdvisory {
		return true, nil
	}
	return true, ErrInvalidTransition.Withf("cannot move encounter from %s to %s", from, to)
}

// InitialStatus is the status a new encounter starts in. Inpatient and
// External Investigation encounters are triaged manually and stay
// registered; others wait for payment when anything is owed.
func InitialStatus(t Type, total float64) Status {
	switch t {
	case TypeInpatient, TypeExternalInvestigation:
		return StatusRegistered
	}
	if total > 0 {
		return StatusPaymentPending
	}
	return StatusInNursing
}
