package domain

// LocationState is the progress of the location picker
type LocationState string

const (
	LocationIdle      LocationState = "idle"
	LocationSearching LocationState = "searching"
	LocationChosen    LocationState = "location_chosen"
	WeatherFetched    LocationState = "weather_fetched"
	WeatherFailed     LocationState = "weather_failed"
	// LocationDenied is terminal until the user tries again
	LocationDenied LocationState = "location_denied"
)

// LocationSource names how a location entered the picker
type LocationSource string

const (
	SourceSuggestion LocationSource = "suggestion"
	SourceMap        LocationSource = "map"
	SourceDevice     LocationSource = "device"
)

// LocationInput is one attempt to choose a location. For SourceDevice a
// non-empty DeviceError reports a failed browser geolocation request.
type LocationInput struct {
	Source      LocationSource `json:"source"`
	Lat         float64        `json:"lat"`
	Lon         float64        `json:"lon"`
	Label       string         `json:"label,omitempty"`
	DeviceError string         `json:"error,omitempty"`
}

// LocationStep is the "pick a location, get weather" unit
type LocationStep struct {
	State   LocationState   `json:"state"`
	Query   string          `json:"query,omitempty"`
	Label   string          `json:"label,omitempty"`
	Marker  *Coordinates    `json:"marker,omitempty"`
	// View is the map center; it follows the marker once weather is fetched
	View    Coordinates     `json:"view"`
	Weather *WeatherReading `json:"weather,omitempty"`
	Message string          `json:"message,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Center is the map view before any location is chosen
var Center = Coordinates{Latitude: 20.5937, Longitude: 78.9629}
