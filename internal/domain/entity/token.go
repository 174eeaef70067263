package entity

// TokenInfo holds the details of a tracked token on one chain.
type TokenInfo struct {
	ChainID  uint64 `json:"chainId"`
	Address  string `json:"address"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
	LogoURL  string `json:"logoUrl,omitempty"`
}
