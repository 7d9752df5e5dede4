package token

import (
	"errors"
	"fmt"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidAmount       = errors.New("invalid amount")
)

// Ledger is an in-memory fungible token. A nil max supply means uncapped.
type Ledger struct {
	address     common.Address
	symbol      string
	decimals    uint8
	maxSupply   *big.Int
	totalMinted *big.Int
	totalBurned *big.Int
	balances    map[common.Address]*big.Int
}

// NewLedger creates an empty ledger.
func NewLedger(address common.Address, symbol string, decimals uint8, maxSupply *big.Int) *Ledger {
	var max *big.Int
	if maxSupply != nil {
		max = new(big.Int).Set(maxSupply)
	}
	return &Ledger{
		address:     address,
		symbol:      symbol,
		decimals:    decimals,
		maxSupply:   max,
		totalMinted: big.NewInt(0),
		totalBurned: big.NewInt(0),
		balances:    make(map[common.Address]*big.Int),
	}
}

func (l *Ledger) Address() common.Address { return l.address }
func (l *Ledger) Symbol() string          { return l.symbol }
func (l *Ledger) Decimals() uint8         { return l.decimals }

// MaxSupply returns the mint ceiling or nil when uncapped.
func (l *Ledger) MaxSupply() *big.Int {
	if l.maxSupply == nil {
		return nil
	}
	return new(big.Int).Set(l.maxSupply)
}

func (l *Ledger) TotalMinted() *big.Int { return new(big.Int).Set(l.totalMinted) }
func (l *Ledger) TotalBurned() *big.Int { return new(big.Int).Set(l.totalBurned) }

// TotalSupply is minted minus burned.
func (l *Ledger) TotalSupply() *big.Int {
	return new(big.Int).Sub(l.totalMinted, l.totalBurned)
}

func (l *Ledger) BalanceOf(holder common.Address) *big.Int {
	if bal, ok := l.balances[holder]; ok {
		return new(big.Int).Set(bal)
	}
	return big.NewInt(0)
}

// Mint credits to with at most amount, clipped so totalMinted never exceeds
// the ceiling. It returns the amount actually minted.
func (l *Ledger) Mint(to common.Address, amount *big.Int) (*big.Int, error) {
	if amount == nil || amount.Sign() < 0 {
		return nil, fmt.Errorf("%w: mint %v", ErrInvalidAmount, amount)
	}
	actual := new(big.Int).Set(amount)
	if l.maxSupply != nil {
		room := new(big.Int).Sub(l.maxSupply, l.totalMinted)
		if room.Sign() <= 0 {
			return big.NewInt(0), nil
		}
		if actual.Cmp(room) > 0 {
			actual = room
		}
	}
	if actual.Sign() == 0 {
		return actual, nil
	}
	l.credit(to, actual)
	l.totalMinted.Add(l.totalMinted, actual)
	return new(big.Int).Set(actual), nil
}

// Burn destroys amount from holder. Burned supply is never re-mintable.
func (l *Ledger) Burn(from common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("%w: burn %v", ErrInvalidAmount, amount)
	}
	if err := l.debit(from, amount); err != nil {
		return err
	}
	l.totalBurned.Add(l.totalBurned, amount)
	return nil
}

// Transfer moves amount from one holder to another.
func (l *Ledger) Transfer(from, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("%w: transfer %v", ErrInvalidAmount, amount)
	}
	if err := l.debit(from, amount); err != nil {
		return err
	}
	l.credit(to, amount)
	return nil
}

func (l *Ledger) credit(to common.Address, amount *big.Int) {
	bal, ok := l.balances[to]
	if !ok {
		bal = big.NewInt(0)
		l.balances[to] = bal
	}
	bal.Add(bal, amount)
}

func (l *Ledger) debit(from common.Address, amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	bal, ok := l.balances[from]
	if !ok || bal.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientBalance, from.Hex(), l.BalanceOf(from), amount)
	}
	bal.Sub(bal, amount)
	if bal.Sign() == 0 {
		delete(l.balances, from)
	}
	return nil
}

// Holders returns every address with a non-zero balance in byte order.
func (l *Ledger) Holders() []common.Address {
	out := make([]common.Address, 0, len(l.balances))
	for addr := range l.balances {
		out = append(out, addr)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Cmp(out[j]) < 0
	})
	return out
}
