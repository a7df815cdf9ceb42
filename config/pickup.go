package config

// PickupLocation describes a place and hours where completed orders can be
// collected. The set is fixed at process start and handed to the handlers by
// value; it is never mutated at runtime.
type PickupLocation struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Days    string `json:"days"`
	Hours   string `json:"hours"`
}

// DefaultPickupLocations returns the built-in pickup locations
func DefaultPickupLocations() []PickupLocation {
	return []PickupLocation{
		{
			Name:    "Bakery Counter",
			Address: "12 Flour Mill Lane, Brunswick VIC 3056",
			Days:    "Tuesday - Saturday",
			Hours:   "08:00 - 16:00",
		},
		{
			Name:    "Weekend Market Stall",
			Address: "Queen Victoria Market, Melbourne VIC 3000",
			Days:    "Saturday - Sunday",
			Hours:   "09:00 - 14:00",
		},
	}
}
