package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"portfolio_tracker/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTotalGasSpentSumsOutgoingTransactions(t *testing.T) {
	lister := &fakeTransactionLister{txs: []entity.ExplorerTransaction{
		// 21000 * 50 gwei = 0.00105 ETH
		{From: testAddress, To: "0xreceiver", GasUsed: "21000", GasPrice: "50000000000"},
		// Incoming transfer, gas paid by the other side.
		{From: "0xsomeoneelse", To: testAddress, GasUsed: "21000", GasPrice: "100000000000"},
	}}
	svc := NewGasService(lister, time.Minute, nopLogger{})

	assert.Equal(t, "0.00105", svc.TotalGasSpent(context.Background(), testAddress))
}

func TestTotalGasSpentCaseInsensitiveSender(t *testing.T) {
	lister := &fakeTransactionLister{txs: []entity.ExplorerTransaction{
		{From: "0xD8DA6BF26964AF9D7EED9E03E53415D37AA96045", GasUsed: "21000", GasPrice: "50000000000"},
	}}
	svc := NewGasService(lister, time.Minute, nopLogger{})

	assert.Equal(t, "0.00105", svc.TotalGasSpent(context.Background(), testAddress))
}

func TestTotalGasSpentSkipsMalformedNumbers(t *testing.T) {
	lister := &fakeTransactionLister{txs: []entity.ExplorerTransaction{
		{From: testAddress, GasUsed: "garbage", GasPrice: "50000000000"},
		{From: testAddress, GasUsed: "21000", GasPrice: ""},
		{From: testAddress, GasUsed: "21000", GasPrice: "50000000000"},
	}}
	svc := NewGasService(lister, time.Minute, nopLogger{})

	assert.Equal(t, "0.00105", svc.TotalGasSpent(context.Background(), testAddress))
}

func TestTotalGasSpentListerFailureYieldsZero(t *testing.T) {
	lister := &fakeTransactionLister{err: errors.New("explorer down")}
	svc := NewGasService(lister, time.Minute, nopLogger{})

	assert.Equal(t, "0", svc.TotalGasSpent(context.Background(), testAddress))
}

func TestTotalGasSpentNoTransactions(t *testing.T) {
	lister := &fakeTransactionLister{}
	svc := NewGasService(lister, time.Minute, nopLogger{})

	assert.Equal(t, "0", svc.TotalGasSpent(context.Background(), testAddress))
}

func TestTotalGasSpentCachesResult(t *testing.T) {
	lister := &fakeTransactionLister{txs: []entity.ExplorerTransaction{
		{From: testAddress, GasUsed: "21000", GasPrice: "50000000000"},
	}}
	svc := NewGasService(lister, time.Minute, nopLogger{})

	first := svc.TotalGasSpent(context.Background(), testAddress)
	// Same address in a different case must hit the cache, not the explorer.
	second := svc.TotalGasSpent(context.Background(), "0xD8DA6BF26964AF9D7EED9E03E53415D37AA96045")

	require.Equal(t, first, second)
	assert.Equal(t, 1, lister.calls)
}

func TestTotalGasSpentFailureNotCached(t *testing.T) {
	lister := &fakeTransactionLister{err: errors.New("explorer down")}
	svc := NewGasService(lister, time.Minute, nopLogger{})

	assert.Equal(t, "0", svc.TotalGasSpent(context.Background(), testAddress))

	lister.err = nil
	lister.txs = []entity.ExplorerTransaction{
		{From: testAddress, GasUsed: "21000", GasPrice: "50000000000"},
	}
	assert.Equal(t, "0.00105", svc.TotalGasSpent(context.Background(), testAddress))
}
