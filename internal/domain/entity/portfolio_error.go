package entity

// PortfolioError records a partial failure encountered while assembling a
// portfolio. These are collected into a side list, never thrown, so one bad
// chain or token cannot take down the whole fetch.
type PortfolioError struct {
	WalletAddress string `json:"walletAddress,omitempty"`
	ChainID       string `json:"chainId,omitempty"`
	ChainName     string `json:"chainName,omitempty"`
	TokenSymbol   string `json:"tokenSymbol,omitempty"`
	TokenAddress  string `json:"tokenAddress,omitempty"`
	IsNative      bool   `json:"isNative,omitempty"`
	Message       string `json:"message"`
}
