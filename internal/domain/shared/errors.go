package shared

import "fmt"

// DomainError is the base error type for all domain errors
type DomainError struct {
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func NewDomainError(message string) *DomainError {
	return &DomainError{Message: message}
}

// Order-related errors

type OrderError struct {
	*DomainError
	OrderID string
}

func NewOrderError(orderID, message string) *OrderError {
	return &OrderError{
		DomainError: &DomainError{Message: message},
		OrderID:     orderID,
	}
}

type InvalidOrderDataError struct {
	*OrderError
}

func NewInvalidOrderDataError(orderID, message string) *InvalidOrderDataError {
	return &InvalidOrderDataError{OrderError: NewOrderError(orderID, message)}
}

type InvalidOrderTransitionError struct {
	*OrderError
	From string
	To   string
}

func NewInvalidOrderTransitionError(orderID, from, to string) *InvalidOrderTransitionError {
	return &InvalidOrderTransitionError{
		OrderError: NewOrderError(orderID,
			fmt.Sprintf("order %s cannot move from %s to %s", orderID, from, to)),
		From: from,
		To:   to,
	}
}

// Vehicle-related errors

type VehicleError struct {
	*DomainError
	VehicleID string
}

func NewVehicleError(vehicleID, message string) *VehicleError {
	return &VehicleError{
		DomainError: &DomainError{Message: message},
		VehicleID:   vehicleID,
	}
}

type InvalidVehicleDataError struct {
	*VehicleError
}

func NewInvalidVehicleDataError(vehicleID, message string) *InvalidVehicleDataError {
	return &InvalidVehicleDataError{VehicleError: NewVehicleError(vehicleID, message)}
}

type CapacityExceededError struct {
	*VehicleError
	Capacity int
	Load     int
}

func NewCapacityExceededError(vehicleID string, capacity, load int) *CapacityExceededError {
	return &CapacityExceededError{
		VehicleError: NewVehicleError(vehicleID,
			fmt.Sprintf("vehicle %s has no free slots: %d/%d in use", vehicleID, load, capacity)),
		Capacity: capacity,
		Load:     load,
	}
}

type WeightExceededError struct {
	*VehicleError
	MaxWeightKg float64
	CommittedKg float64
	OrderKg     float64
}

func NewWeightExceededError(vehicleID string, maxWeightKg, committedKg, orderKg float64) *WeightExceededError {
	return &WeightExceededError{
		VehicleError: NewVehicleError(vehicleID,
			fmt.Sprintf("vehicle %s cannot carry %.1f kg more: %.1f/%.1f kg committed",
				vehicleID, orderKg, committedKg, maxWeightKg)),
		MaxWeightKg: maxWeightKg,
		CommittedKg: committedKg,
		OrderKg:     orderKg,
	}
}

// Validation error

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
