package ordapi

import "encoding/json"

// Collection is the market metadata for one inscription collection
type Collection struct {
	Symbol     string  `json:"symbol"`
	Name       string  `json:"name"`
	Supply     int64   `json:"supply,omitempty"`
	FloorPrice float64 `json:"floorPrice,omitempty"`
	Owners     int64   `json:"owners,omitempty"`
}

// Holder is a wallet and the inscription ids it owns within one collection
type Holder struct {
	Wallet         string   `json:"wallet"`
	InscriptionIDs []string `json:"inscription_ids"`
}

// BitmapRecord is a wallet and its bitmap inscription ids. The id field is
// kept raw because the upstream occasionally answers with a non-list shape;
// the aggregator validates and skips those records
type BitmapRecord struct {
	Wallet         string          `json:"wallet"`
	InscriptionIDs json.RawMessage `json:"inscription_ids"`
}
