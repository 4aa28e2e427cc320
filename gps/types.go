package gps

// Coordinate represents a GPS fix in decimal degrees
type Coordinate struct {
	Lat  float64 `json:"lat" msgpack:"lat"`
	Long float64 `json:"long" msgpack:"long"`
}

// Position represents a GPS fix with altitude in meters
type Position struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Altitude  float64 `json:"altitude"`
}
