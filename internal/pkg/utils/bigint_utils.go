package utils

import (
	"fmt"
	"math/big"
	"strings"
)

// FormatBigInt converts a smallest-unit amount to a human-readable decimal
// string for the given number of decimals.
// Example: amount=1234500000000000000, decimals=18 => "1.2345"
func FormatBigInt(amount *big.Int, decimals uint8) (string, error) {
	if amount == nil {
		return "0", nil
	}
	if decimals == 0 {
		return amount.String(), nil
	}

	amountFloat := new(big.Float).SetInt(amount)
	divisor := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	value := new(big.Float).Quo(amountFloat, divisor)

	formatted := value.Text('f', int(decimals))
	if strings.Contains(formatted, ".") {
		formatted = strings.TrimRight(formatted, "0")
		formatted = strings.TrimRight(formatted, ".")
	}
	if strings.HasPrefix(formatted, ".") {
		formatted = "0" + formatted
	}
	if formatted == "" {
		if amount.Sign() == 0 {
			return "0", nil
		}
		return value.Text('f', 2), fmt.Errorf("formatting resulted in empty string for non-zero value")
	}
	return formatted, nil
}

const etherDecimals = 18

// WeiToEtherString converts a wei amount to an ETH-denominated decimal
// string. The division happens only here, at the very end of any gas math,
// so everything upstream stays in integer wei.
func WeiToEtherString(wei *big.Int) string {
	if wei == nil || wei.Sign() == 0 {
		return "0"
	}
	s, err := FormatBigInt(wei, etherDecimals)
	if err != nil {
		return "0"
	}
	return s
}
