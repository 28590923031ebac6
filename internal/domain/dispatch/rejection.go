package dispatch

import "fmt"

// RejectionKind classifies why a vehicle never reached the scorer.
type RejectionKind string

const (
	RejectionOutOfZone  RejectionKind = "out-of-zone"
	RejectionNoCapacity RejectionKind = "no-capacity"
	RejectionOverWeight RejectionKind = "over-weight"
)

// CandidateRejection records a vehicle filtered out before scoring.
// Rejection is data for the verdict, not an error.
type CandidateRejection struct {
	VehicleID string        `json:"vehicle_id"`
	Kind      RejectionKind `json:"kind"`
	Detail    string        `json:"detail"`
}

func (r CandidateRejection) String() string {
	return fmt.Sprintf("%s: %s (%s)", r.VehicleID, r.Kind, r.Detail)
}

// FailureReason explains why a dispatch call produced no assignment.
type FailureReason string

const (
	FailureUnresolvedAddress  FailureReason = "unresolved-address"
	FailureNoCapacity         FailureReason = "no-capacity"
	FailureInfeasibleAll      FailureReason = "infeasible-all"
	FailureTimeBudgetExceeded FailureReason = "time-budget-exceeded"
)
