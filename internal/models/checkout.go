package models

// Agreements are the checkboxes presented before payment. Terms and
// TripInfo are both required; Marketing is an optional opt-in.
type Agreements struct {
	Terms     bool `json:"terms"`
	TripInfo  bool `json:"trip_info"`
	Marketing bool `json:"marketing"`
}

func (a Agreements) Accepted() bool {
	return a.Terms && a.TripInfo
}
