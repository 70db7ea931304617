package entity

// Asset holds reference data for a tradable asset as reported by the
// market data provider. It is not owned by this system, only cached
// transiently for pickers and display.
type Asset struct {
	ID          string `json:"id"`
	Symbol      string `json:"symbol"`
	DisplayName string `json:"displayName"`
	ImageRef    string `json:"imageRef,omitempty"`
}

// Currency is the unit in which holdings are valued. Symbol is the key
// used against the market data provider and is always lower-cased before
// a request is issued.
type Currency struct {
	ID          string `json:"id"`
	Symbol      string `json:"symbol"`
	DisplayName string `json:"displayName"`
}
