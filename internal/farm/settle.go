package farm

import (
	"fmt"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// baseReward is the pool's un-capped share of emission over [from, to).
func (f *Farm) baseReward(p *Pool, from, to uint64) (*big.Int, error) {
	emitted, err := f.schedule.Emission(from, to)
	if err != nil {
		return nil, err
	}
	emitted.Mul(emitted, new(big.Int).SetUint64(p.AllocWeight))
	return emitted.Quo(emitted, new(big.Int).SetUint64(f.totalAllocWeight)), nil
}

func (f *Farm) emits(p *Pool) bool {
	return p.TotalStaked.Sign() > 0 && f.totalAllocWeight > 0
}

// settle brings the pool's accumulator up to now, minting its share.
func (f *Farm) settle(p *Pool, now uint64) error {
	if now <= p.LastRewardTime {
		return nil
	}
	if !f.emits(p) {
		p.LastRewardTime = now
		return nil
	}

	base, err := f.baseReward(p, p.LastRewardTime, now)
	if err != nil {
		return fmt.Errorf("settle pool %d: %w", p.ID, err)
	}
	minted, err := f.governor.Mint(base, f.bucket, f.dev, f.treasury)
	if err != nil {
		return fmt.Errorf("settle pool %d: %w", p.ID, err)
	}

	inc := new(big.Int).Mul(minted.Pool, Scale)
	inc.Quo(inc, p.TotalStaked)
	p.AccRewardPerShare.Add(p.AccRewardPerShare, inc)
	from := p.LastRewardTime
	p.LastRewardTime = now

	f.metrics.RecordSettlement(strconv.FormatUint(p.ID, 10), minted.Pool, minted.Dev, minted.Treasury, minted.CapLimited)
	f.metrics.SetTotalMinted(f.reward.TotalMinted())
	f.logger.Debug("pool settled",
		zap.Uint64("pool", p.ID),
		zap.Uint64("from", from),
		zap.Uint64("to", now),
		zap.String("base", base.String()),
		zap.String("pool_minted", minted.Pool.String()),
		zap.String("dev_minted", minted.Dev.String()),
		zap.String("treasury_minted", minted.Treasury.String()),
	)
	return nil
}

func (f *Farm) massSettle(now uint64) error {
	for _, p := range f.pools {
		if err := f.settle(p, now); err != nil {
			return err
		}
	}
	return nil
}

// MassSettle settles every pool at the current time.
func (f *Farm) MassSettle() error {
	return f.massSettle(f.clock.Now())
}

// Settle settles a single pool at the current time.
func (f *Farm) Settle(poolID uint64) error {
	p, err := f.pool(poolID)
	if err != nil {
		return err
	}
	return f.settle(p, f.clock.Now())
}

// PendingReward returns what the user would receive if the pool settled now.
// It has no side effects.
func (f *Farm) PendingReward(poolID uint64, user common.Address) (*big.Int, error) {
	p, err := f.pool(poolID)
	if err != nil {
		return nil, err
	}
	acc := new(big.Int).Set(p.AccRewardPerShare)
	now := f.clock.Now()
	if now > p.LastRewardTime && f.emits(p) {
		base, err := f.baseReward(p, p.LastRewardTime, now)
		if err != nil {
			return nil, err
		}
		plan := f.governor.Plan(base)
		inc := new(big.Int).Mul(plan.Pool, Scale)
		acc.Add(acc, inc.Quo(inc, p.TotalStaked))
	}

	pos := f.UserInfo(poolID, user)
	return accrued(pos.Amount, acc, pos.RewardDebt), nil
}

// accrued is amount*acc/Scale - debt.
func accrued(amount, acc, debt *big.Int) *big.Int {
	out := rewardDebt(amount, acc)
	return out.Sub(out, debt)
}

func rewardDebt(amount, acc *big.Int) *big.Int {
	out := new(big.Int).Mul(amount, acc)
	return out.Quo(out, Scale)
}
