package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/andrescamacho/dispatch-go/internal/domain/shared"
)

// respondJSON writes the payload with the given status. Encoding
// failures are logged; by then the status line is already out.
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Warning: failed to encode response: %v", err)
	}
}

// respondError maps an error to a status code and writes the error
// body. Malformed input is the caller's fault (400); everything else is
// a system failure (500). Failed assignments never reach this path,
// they are 200s with a failure_reason.
func respondError(w http.ResponseWriter, err error) {
	respondJSON(w, statusFor(err), ErrorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	var validationErr *shared.ValidationError
	if errors.As(err, &validationErr) {
		return http.StatusBadRequest
	}
	var orderErr *shared.InvalidOrderDataError
	if errors.As(err, &orderErr) {
		return http.StatusBadRequest
	}
	var transitionErr *shared.InvalidOrderTransitionError
	if errors.As(err, &transitionErr) {
		return http.StatusBadRequest
	}
	var vehicleErr *shared.InvalidVehicleDataError
	if errors.As(err, &vehicleErr) {
		return http.StatusBadRequest
	}
	var capacityErr *shared.CapacityExceededError
	if errors.As(err, &capacityErr) {
		return http.StatusBadRequest
	}
	var weightErr *shared.WeightExceededError
	if errors.As(err, &weightErr) {
		return http.StatusBadRequest
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		return http.StatusBadRequest
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return http.StatusBadRequest
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// decodeJSON decodes the request body into dst, rejecting unknown
// fields so typos fail loudly instead of silently using defaults.
func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return shared.NewValidationError("body", err.Error())
	}
	return nil
}
