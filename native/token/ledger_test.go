package token

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"cgiftledger/native/amount"
)

type mockLedgerState struct {
	tokens  map[string]*Token
	burns   []*Burn
	seq     uint64
	burnErr error
}

func newMockLedgerState() *mockLedgerState {
	return &mockLedgerState{tokens: make(map[string]*Token)}
}

func (m *mockLedgerState) Token(symbol string) (*Token, bool, error) {
	tok, ok := m.tokens[symbol]
	if !ok {
		return nil, false, nil
	}
	return tok.Clone(), true, nil
}

func (m *mockLedgerState) PutToken(t *Token) error {
	m.tokens[t.Symbol] = t.Clone()
	return nil
}

func (m *mockLedgerState) RecordBurn(updated *Token, b *Burn) error {
	if m.burnErr != nil {
		err := m.burnErr
		m.burnErr = nil
		return err
	}
	m.tokens[updated.Symbol] = updated.Clone()
	m.burns = append(m.burns, b)
	return nil
}

func (m *mockLedgerState) NextTxHash(kind string) (string, error) {
	m.seq++
	return fmt.Sprintf("0x%s-%d", kind, m.seq), nil
}

func newTestLedger(state *mockLedgerState) *Ledger {
	ledger := NewLedger(Genesis{
		Symbol:            "CGIFT",
		Name:              "CeleGift Token",
		TotalSupply:       amount.MustParse("1000000000"),
		CirculatingSupply: amount.MustParse("500000000"),
	})
	ledger.SetState(state)
	ledger.SetNowFunc(func() time.Time { return time.Unix(1_700_000_000, 0).UTC() })
	return ledger
}

func TestInitializeIsIdempotent(t *testing.T) {
	state := newMockLedgerState()
	ledger := newTestLedger(state)

	created, err := ledger.Initialize()
	require.NoError(t, err)
	require.Equal(t, "1000000000.000000000000000000", created.TotalSupply.String())
	require.Equal(t, "500000000.000000000000000000", created.CirculatingSupply.String())
	require.Equal(t, "500000000.000000000000000000", created.TreasuryReserve.String())
	require.True(t, created.BurnedAmount.IsZero())
	require.True(t, created.Active)
	require.EqualValues(t, 18, created.Decimals)

	again, err := ledger.Initialize()
	require.NoError(t, err)
	require.Equal(t, created.TotalSupply.String(), again.TotalSupply.String())
	require.Len(t, state.tokens, 1)
}

func TestBurnAdjustsSupply(t *testing.T) {
	state := newMockLedgerState()
	ledger := newTestLedger(state)
	_, err := ledger.Initialize()
	require.NoError(t, err)

	receipt, err := ledger.Burn("ops", amount.MustParse("100000000"), "scheduled burn")
	require.NoError(t, err)
	require.Equal(t, "900000000.000000000000000000", receipt.NewTotalSupply.String())
	require.NotEmpty(t, receipt.TxHash)

	tok, err := ledger.Info()
	require.NoError(t, err)
	require.Equal(t, "400000000.000000000000000000", tok.CirculatingSupply.String())
	require.Equal(t, "100000000.000000000000000000", tok.BurnedAmount.String())
	// Identity: total == circulating + treasury.
	sum := tok.CirculatingSupply.Add(tok.TreasuryReserve)
	require.Equal(t, 0, sum.Cmp(tok.TotalSupply))

	require.Len(t, state.burns, 1)
	require.Equal(t, "scheduled burn", state.burns[0].Reason)
	require.Equal(t, "ops", state.burns[0].BurnedBy)
}

func TestBurnSpillsIntoTreasury(t *testing.T) {
	state := newMockLedgerState()
	ledger := newTestLedger(state)
	_, err := ledger.Initialize()
	require.NoError(t, err)

	// 600M exceeds the 500M circulating genesis; the excess draws down the
	// treasury reserve.
	receipt, err := ledger.Burn("ops", amount.MustParse("600000000"), "")
	require.NoError(t, err)
	require.Equal(t, "400000000.000000000000000000", receipt.NewTotalSupply.String())

	tok, err := ledger.Info()
	require.NoError(t, err)
	require.True(t, tok.CirculatingSupply.IsZero())
	require.Equal(t, "400000000.000000000000000000", tok.TreasuryReserve.String())

	_, err = ledger.Burn("ops", amount.MustParse("500000000"), "")
	require.ErrorIs(t, err, ErrBurnExceedsSupply)
}

func TestBurnRejectsZeroAndUninitialized(t *testing.T) {
	state := newMockLedgerState()
	ledger := newTestLedger(state)

	_, err := ledger.Burn("ops", amount.MustParse("1"), "")
	require.ErrorIs(t, err, ErrTokenNotFound)

	_, err = ledger.Initialize()
	require.NoError(t, err)
	_, err = ledger.Burn("ops", amount.Zero(), "")
	require.ErrorIs(t, err, amount.ErrInvalidAmount)
	require.Empty(t, state.burns)
}

func TestFailedBurnLeavesSupplyIntact(t *testing.T) {
	state := newMockLedgerState()
	ledger := newTestLedger(state)
	_, err := ledger.Initialize()
	require.NoError(t, err)

	state.burnErr = fmt.Errorf("version mismatch")
	_, err = ledger.Burn("ops", amount.MustParse("100000000"), "")
	require.Error(t, err)
	require.Empty(t, state.burns)

	tok, err := ledger.Info()
	require.NoError(t, err)
	require.Equal(t, "1000000000.000000000000000000", tok.TotalSupply.String())
	require.True(t, tok.BurnedAmount.IsZero())

	// The retry destroys the amount exactly once.
	receipt, err := ledger.Burn("ops", amount.MustParse("100000000"), "")
	require.NoError(t, err)
	require.Equal(t, "900000000.000000000000000000", receipt.NewTotalSupply.String())
	require.Len(t, state.burns, 1)
}

func TestBurnTxHashesAreUnique(t *testing.T) {
	state := newMockLedgerState()
	ledger := newTestLedger(state)
	_, err := ledger.Initialize()
	require.NoError(t, err)

	seen := make(map[string]bool)
	for i := 0; i < 5; i++ {
		receipt, err := ledger.Burn("ops", amount.MustParse("1"), "")
		require.NoError(t, err)
		require.False(t, seen[receipt.TxHash])
		seen[receipt.TxHash] = true
	}
}

func TestReserveTreasury(t *testing.T) {
	state := newMockLedgerState()
	ledger := newTestLedger(state)
	_, err := ledger.Initialize()
	require.NoError(t, err)

	tok, err := ledger.ReserveTreasury(amount.MustParse("1000"))
	require.NoError(t, err)
	require.Equal(t, "499999000.000000000000000000", tok.CirculatingSupply.String())
	require.Equal(t, "500001000.000000000000000000", tok.TreasuryReserve.String())
	require.Equal(t, "1000000000.000000000000000000", tok.TotalSupply.String())

	_, err = ledger.ReserveTreasury(amount.MustParse("999999999999"))
	require.ErrorIs(t, err, amount.ErrUnderflow)
}

func TestMetricsPercentages(t *testing.T) {
	state := newMockLedgerState()
	ledger := newTestLedger(state)
	_, err := ledger.Initialize()
	require.NoError(t, err)

	metrics, err := ledger.Metrics()
	require.NoError(t, err)
	require.EqualValues(t, 0, metrics.BurnPercentage)
	require.EqualValues(t, 50, metrics.CirculationPercentage)

	_, err = ledger.Burn("ops", amount.MustParse("250000000"), "")
	require.NoError(t, err)

	metrics, err = ledger.Metrics()
	require.NoError(t, err)
	// burned 250M over a 750M total floors to 33%.
	require.EqualValues(t, 33, metrics.BurnPercentage)
	require.EqualValues(t, 33, metrics.CirculationPercentage)
}
