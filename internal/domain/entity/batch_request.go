package entity

import "math/big"

// BalanceRequestType defines the type of balance request.
type BalanceRequestType int

const (
	// NativeBalanceRequest requests the native coin balance of a wallet.
	NativeBalanceRequest BalanceRequestType = iota
	// TokenBalanceRequest requests the balance of a specific ERC20 token.
	TokenBalanceRequest
)

// BalanceRequestItem represents a single item in a batch balance request.
type BalanceRequestItem struct {
	ID            string
	Type          BalanceRequestType
	WalletAddress string
	TokenAddress  string
	TokenSymbol   string
	TokenName     string
	TokenLogoURL  string
	TokenDecimals uint8
}

// BalanceResultItem represents the result of a single balance sub-request.
// A sub-request failure is carried in Error and never aborts the batch.
type BalanceResultItem struct {
	RequestID        string
	WalletAddress    string
	TokenAddress     string
	TokenSymbol      string
	TokenName        string
	TokenLogoURL     string
	Decimals         uint8
	IsNative         bool
	Balance          *big.Int
	FormattedBalance string
	Error            error
}
