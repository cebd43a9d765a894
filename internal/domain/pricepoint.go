package domain

// PricePoint is one observed price for a contract. Series are stored
// sorted by (contract_address, timestamp_ms).
type PricePoint struct {
	ContractAddress string  `json:"contract_address"`
	TimestampMs     int64   `json:"timestamp_ms"`
	Price           float64 `json:"price"`
}
