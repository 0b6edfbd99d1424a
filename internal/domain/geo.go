package domain

// GeoSuggestion is one autocomplete candidate
type GeoSuggestion struct {
	ID    string  `json:"id"`
	Label string  `json:"label"`
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
}

// SuggestionResponse wraps suggestions for one query.
// Stale is set when a newer query from the same session superseded this one.
type SuggestionResponse struct {
	Data    []GeoSuggestion `json:"data"`
	Stale   bool            `json:"stale"`
	Success bool            `json:"success"`
}
