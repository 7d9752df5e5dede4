package farm

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Split of every mint, in parts per poolShareParts of the pool share.
const (
	poolShareParts     = 1000
	devShareParts      = 125
	treasuryShareParts = 25
	totalShareParts    = poolShareParts + devShareParts + treasuryShareParts
)

// MintResult is the amounts minted to each recipient of one settlement.
type MintResult struct {
	Pool       *big.Int
	Dev        *big.Int
	Treasury   *big.Int
	CapLimited bool
}

// Total returns the sum of all three parts.
func (r MintResult) Total() *big.Int {
	out := new(big.Int).Add(r.Pool, r.Dev)
	return out.Add(out, r.Treasury)
}

func zeroMint() MintResult {
	return MintResult{Pool: big.NewInt(0), Dev: big.NewInt(0), Treasury: big.NewInt(0)}
}

// MintGovernor mints reward-token emissions without ever letting the token's
// lifetime minted total exceed its maximum supply.
type MintGovernor struct {
	token  Token
	logger *zap.Logger
}

func NewMintGovernor(token Token, logger *zap.Logger) *MintGovernor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MintGovernor{token: token, logger: logger}
}

// Plan computes the split for base without minting.
func (g *MintGovernor) Plan(base *big.Int) MintResult {
	if base == nil || base.Sign() <= 0 {
		return zeroMint()
	}
	dev := new(big.Int).Mul(base, big.NewInt(devShareParts))
	dev.Quo(dev, big.NewInt(poolShareParts))
	treasury := new(big.Int).Mul(base, big.NewInt(treasuryShareParts))
	treasury.Quo(treasury, big.NewInt(poolShareParts))
	full := MintResult{Pool: new(big.Int).Set(base), Dev: dev, Treasury: treasury}

	max := g.token.MaxSupply()
	if max == nil {
		return full
	}
	minted := g.token.TotalMinted()
	after := new(big.Int).Add(minted, full.Total())
	if after.Cmp(max) <= 0 {
		return full
	}
	if minted.Cmp(max) >= 0 {
		out := zeroMint()
		out.CapLimited = true
		return out
	}

	remaining := new(big.Int).Sub(max, minted)
	return MintResult{
		Pool:       scaleShare(remaining, poolShareParts),
		Dev:        scaleShare(remaining, devShareParts),
		Treasury:   scaleShare(remaining, treasuryShareParts),
		CapLimited: true,
	}
}

// Mint plans the split for base and mints it to the three recipients.
func (g *MintGovernor) Mint(base *big.Int, pool, dev, treasury common.Address) (MintResult, error) {
	plan := g.Plan(base)
	out := zeroMint()
	out.CapLimited = plan.CapLimited

	var err error
	if out.Pool, err = g.mintPart(pool, plan.Pool); err != nil {
		return out, err
	}
	if out.Dev, err = g.mintPart(dev, plan.Dev); err != nil {
		return out, err
	}
	if out.Treasury, err = g.mintPart(treasury, plan.Treasury); err != nil {
		return out, err
	}
	if plan.CapLimited {
		g.logger.Warn("mint limited by max supply",
			zap.String("requested", base.String()),
			zap.String("minted", out.Total().String()),
			zap.String("total_minted", g.token.TotalMinted().String()),
		)
	}
	return out, nil
}

func (g *MintGovernor) mintPart(to common.Address, amount *big.Int) (*big.Int, error) {
	if amount.Sign() == 0 {
		return big.NewInt(0), nil
	}
	got, err := g.token.Mint(to, amount)
	if err != nil {
		return big.NewInt(0), fmt.Errorf("mint %s to %s: %w", amount, to.Hex(), err)
	}
	return got, nil
}

func scaleShare(remaining *big.Int, parts int64) *big.Int {
	out := new(big.Int).Mul(remaining, big.NewInt(parts))
	return out.Quo(out, big.NewInt(totalShareParts))
}
