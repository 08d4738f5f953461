package tracker

// vehicleResponse is one entry of GET /api/vehicles
type vehicleResponse struct {
	ID           int    `json:"id"`
	Year         int    `json:"year"`
	Make         string `json:"make"`
	Model        string `json:"model"`
	LicensePlate string `json:"licensePlate"`
}

// extraFieldGroup is one entry of GET /api/extrafields
type extraFieldGroup struct {
	RecordType  string `json:"recordType"`
	ExtraFields []struct {
		Name string `json:"name"`
	} `json:"extraFields"`
}

// ErrorResponse is the tracker's JSON error envelope
type ErrorResponse struct {
	Message string `json:"message"`
	Success bool   `json:"success"`
}

// FuelRecord is a fill-up ready for submission
type FuelRecord struct {
	VehicleID    int
	Date         string
	Odometer     *float64
	FuelConsumed *float64
	Cost         *float64
	IsFillToFull bool
	MissedFuelUp bool
	Notes        string
	Tags         []string
}
