package farm

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Token is the fungible-token capability the farm depends on. MaxSupply
// returns nil for uncapped tokens.
type Token interface {
	Address() common.Address
	Mint(to common.Address, amount *big.Int) (*big.Int, error)
	Burn(from common.Address, amount *big.Int) error
	Transfer(from, to common.Address, amount *big.Int) error
	BalanceOf(holder common.Address) *big.Int
	TotalMinted() *big.Int
	TotalSupply() *big.Int
	MaxSupply() *big.Int
}
