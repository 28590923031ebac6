package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/dispatch-go/internal/domain/dispatch"
	"github.com/andrescamacho/dispatch-go/internal/domain/shared"
)

func TestOrderDTODefaultsCreatedAtToServerClock(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	dto := OrderDTO{
		ID:       "ORD-1",
		Address:  AddressDTO{Latitude: f64(-34.9), Longitude: f64(-56.16)},
		Deadline: now.Add(2 * time.Hour),
		WeightKg: 1,
	}

	o, err := dto.toDomain(now)
	require.NoError(t, err)
	assert.Equal(t, now, o.CreatedAt())
	assert.Equal(t, shared.PriorityNormal, o.Priority())
}

func TestOrderDTORejectsUnknownPriority(t *testing.T) {
	dto := OrderDTO{
		ID:       "ORD-1",
		Address:  AddressDTO{Latitude: f64(-34.9), Longitude: f64(-56.16)},
		Deadline: time.Now().Add(time.Hour),
		Priority: "asap",
	}

	_, err := dto.toDomain(time.Now())
	require.Error(t, err)
	var validationErr *shared.ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestAddressDTORequiresSomethingResolvable(t *testing.T) {
	_, err := AddressDTO{}.toDomain()
	require.Error(t, err)
	var validationErr *shared.ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestVehicleDTOLoadsCommittedOrders(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	dto := testVehicle("V1", 3)
	dto.CurrentOrders = []OrderDTO{
		{ID: "C-1", Address: AddressDTO{Latitude: f64(-34.91), Longitude: f64(-56.17)}, Deadline: now.Add(time.Hour), WeightKg: 2},
		{ID: "C-2", Address: AddressDTO{Latitude: f64(-34.92), Longitude: f64(-56.18)}, Deadline: now.Add(2 * time.Hour), WeightKg: 3},
	}

	v, err := dto.toDomain(now)
	require.NoError(t, err)
	assert.Equal(t, 2, v.CurrentLoad())
	assert.InDelta(t, 5.0, v.CommittedWeightKg(), 1e-9)
}

func TestVehicleDTORejectsOverCommittedLoad(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	dto := testVehicle("V1", 1)
	dto.CurrentOrders = []OrderDTO{
		{ID: "C-1", Address: AddressDTO{Latitude: f64(-34.91), Longitude: f64(-56.17)}, Deadline: now.Add(time.Hour), WeightKg: 1},
		{ID: "C-2", Address: AddressDTO{Latitude: f64(-34.92), Longitude: f64(-56.18)}, Deadline: now.Add(time.Hour), WeightKg: 1},
	}

	_, err := dto.toDomain(now)
	require.Error(t, err)
	var capacityErr *shared.CapacityExceededError
	assert.ErrorAs(t, err, &capacityErr)
}

func TestDispatchOptionsApplyKeepsDefaults(t *testing.T) {
	defaults := dispatch.Options{
		FastMode:      true,
		MaxCandidates: 5,
		TimeBudget:    30 * time.Second,
	}

	opts, err := DispatchOptionsDTO{}.apply(defaults)
	require.NoError(t, err)
	assert.Equal(t, defaults, opts)
}

func TestDispatchOptionsApplyOverrides(t *testing.T) {
	defaults := dispatch.Options{FastMode: true, MaxCandidates: 5}
	off := false

	opts, err := DispatchOptionsDTO{
		FastMode:      &off,
		MaxCandidates: 2,
		TimeBudgetS:   1.5,
	}.apply(defaults)
	require.NoError(t, err)
	assert.False(t, opts.FastMode)
	assert.Equal(t, 2, opts.MaxCandidates)
	assert.Equal(t, 1500*time.Millisecond, opts.TimeBudget)
}

func TestBatchOptionsApplyBudgetBoundsTheBatch(t *testing.T) {
	defaults := dispatch.BatchOptions{
		Dispatch: dispatch.Options{TimeBudget: 30 * time.Second},
		Budget:   60 * time.Second,
	}

	opts, err := BatchOptionsDTO{
		DispatchOptionsDTO: DispatchOptionsDTO{TimeBudgetS: 1},
	}.apply(defaults)
	require.NoError(t, err)

	// In a batch body the budget bounds the whole run, not each order.
	assert.Equal(t, time.Second, opts.Budget)
	assert.Equal(t, 30*time.Second, opts.Dispatch.TimeBudget)
}

func TestDispatchResponseScoresNeverNull(t *testing.T) {
	res := &dispatch.Result{OrderID: "ORD-1", FailureReason: dispatch.FailureNoCapacity}
	out := dispatchResponseFromResult(res)
	assert.NotNil(t, out.Scores)
	assert.Nil(t, out.AssignedVehicleID)
}
