package watchlist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

func TestGetAddressesSkipsCommentsAndInvalidLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallets.txt")
	require.NoError(t, os.WriteFile(path, []byte(`# primary wallet
0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045

not-an-address
0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B
`), 0o644))

	addresses, err := NewFileLoader(path, nopLogger{}).GetAddresses()
	require.NoError(t, err)
	assert.Equal(t, []string{
		"0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045",
		"0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B",
	}, addresses)
}

func TestGetAddressesMissingFile(t *testing.T) {
	_, err := NewFileLoader(filepath.Join(t.TempDir(), "nope.txt"), nopLogger{}).GetAddresses()
	require.Error(t, err)
}
