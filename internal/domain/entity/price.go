package entity

// PricePoint is one observation of a historical price series.
type PricePoint struct {
	Timestamp int64   `json:"timestamp"`
	Price     float64 `json:"price"`
}

// OraclePrice is the current-price record returned by the oracle for one key.
type OraclePrice struct {
	Price     float64 `json:"price"`
	Symbol    string  `json:"symbol"`
	Timestamp int64   `json:"timestamp"`
}

// ExplorerTransaction is one row of a block-explorer transaction list.
// Gas fields stay decimal strings so gas math can run in integer wei.
type ExplorerTransaction struct {
	Hash     string `json:"hash"`
	From     string `json:"from"`
	To       string `json:"to"`
	Value    string `json:"value"`
	GasUsed  string `json:"gasUsed"`
	GasPrice string `json:"gasPrice"`
	IsError  string `json:"isError"`
}
