package token

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Balance is one holder's balance inside a Snapshot.
type Balance struct {
	Holder common.Address `json:"holder"`
	Amount *big.Int       `json:"amount"`
}

// Snapshot is the serialisable state of a Ledger.
type Snapshot struct {
	Address     common.Address `json:"address"`
	Symbol      string         `json:"symbol"`
	Decimals    uint8          `json:"decimals"`
	MaxSupply   *big.Int       `json:"max_supply,omitempty"`
	TotalMinted *big.Int       `json:"total_minted"`
	TotalBurned *big.Int       `json:"total_burned"`
	Balances    []Balance      `json:"balances"`
}

func (l *Ledger) Snapshot() Snapshot {
	holders := l.Holders()
	balances := make([]Balance, 0, len(holders))
	for _, h := range holders {
		balances = append(balances, Balance{Holder: h, Amount: l.BalanceOf(h)})
	}
	return Snapshot{
		Address:     l.address,
		Symbol:      l.symbol,
		Decimals:    l.decimals,
		MaxSupply:   l.MaxSupply(),
		TotalMinted: l.TotalMinted(),
		TotalBurned: l.TotalBurned(),
		Balances:    balances,
	}
}

// Restore replaces the ledger's counters and balances with s.
func (l *Ledger) Restore(s Snapshot) error {
	if s.Address != l.address {
		return fmt.Errorf("snapshot for %s applied to %s", s.Address.Hex(), l.address.Hex())
	}
	if s.TotalMinted == nil || s.TotalBurned == nil {
		return fmt.Errorf("snapshot for %s missing supply counters", s.Address.Hex())
	}
	balances := make(map[common.Address]*big.Int, len(s.Balances))
	sum := big.NewInt(0)
	for _, b := range s.Balances {
		if b.Amount == nil || b.Amount.Sign() < 0 {
			return fmt.Errorf("snapshot for %s has invalid balance for %s", s.Address.Hex(), b.Holder.Hex())
		}
		if b.Amount.Sign() == 0 {
			continue
		}
		balances[b.Holder] = new(big.Int).Set(b.Amount)
		sum.Add(sum, b.Amount)
	}
	supply := new(big.Int).Sub(s.TotalMinted, s.TotalBurned)
	if sum.Cmp(supply) != 0 {
		return fmt.Errorf("snapshot for %s balances sum %s != supply %s", s.Address.Hex(), sum, supply)
	}
	l.totalMinted = new(big.Int).Set(s.TotalMinted)
	l.totalBurned = new(big.Int).Set(s.TotalBurned)
	l.balances = balances
	return nil
}
