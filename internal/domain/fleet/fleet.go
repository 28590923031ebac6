package fleet

// Fleet is the set of vehicles considered during one dispatch decision.
// The slice order is the caller's input order; the dispatcher never
// depends on it for the final pick.
type Fleet []*Vehicle

// FindByID returns the vehicle with the given id, or nil.
func (f Fleet) FindByID(id string) *Vehicle {
	for _, v := range f {
		if v.ID() == id {
			return v
		}
	}
	return nil
}

// Clone returns a deep copy of the fleet. Batch dispatch mutates its
// working copy between orders, so callers that need the original intact
// clone first.
func (f Fleet) Clone() Fleet {
	out := make(Fleet, len(f))
	for i, v := range f {
		out[i] = v.Clone()
	}
	return out
}

// TotalInFlight returns the total number of committed orders across the
// fleet.
func (f Fleet) TotalInFlight() int {
	total := 0
	for _, v := range f {
		total += v.CurrentLoad()
	}
	return total
}

// IDs returns the vehicle ids in fleet order.
func (f Fleet) IDs() []string {
	ids := make([]string, len(f))
	for i, v := range f {
		ids[i] = v.ID()
	}
	return ids
}
