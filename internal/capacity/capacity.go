package capacity

import "fmt"

// ExceededError carries the remaining places so handlers can tell the
// user how many travellers would still fit.
type ExceededError struct {
	Requested int
	Remaining int
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("capacity: requested %d places but only %d remain", e.Requested, e.Remaining)
}

// CanBook reports whether a date option with the given remaining capacity
// can take the requested traveller count. A sold-out option (capacity 0)
// never accepts a booking.
func CanBook(travellers, capacity int) bool {
	return capacity > 0 && travellers <= capacity
}

func Validate(travellers, capacity int) error {
	if CanBook(travellers, capacity) {
		return nil
	}
	return &ExceededError{Requested: travellers, Remaining: capacity}
}
