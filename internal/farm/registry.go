package farm

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// stakingWeight derives pool 0's weight from every other pool.
func stakingWeight(pools []*Pool) uint64 {
	var sum uint64
	for _, p := range pools[1:] {
		sum += p.AllocWeight
	}
	return sum / 4
}

func totalWeight(pools []*Pool) uint64 {
	var sum uint64
	for _, p := range pools {
		sum += p.AllocWeight
	}
	return sum
}

func (f *Farm) recomputeWeights() {
	f.pools[0].AllocWeight = stakingWeight(f.pools)
	f.totalAllocWeight = totalWeight(f.pools)
}

// AddPool registers a new pool for asset and returns its id.
func (f *Farm) AddPool(caller common.Address, weight uint64, asset Token) (uint64, error) {
	if caller != f.owner {
		return 0, fmt.Errorf("add pool: %w", ErrUnauthorized)
	}
	if asset == nil {
		return 0, fmt.Errorf("add pool: asset is required")
	}
	if _, ok := f.assets[asset.Address()]; ok {
		return 0, fmt.Errorf("add pool %s: %w", asset.Address().Hex(), ErrDuplicatePool)
	}

	now := f.clock.Now()
	if err := f.massSettle(now); err != nil {
		return 0, fmt.Errorf("add pool: %w", err)
	}

	id := uint64(len(f.pools))
	f.pools = append(f.pools, &Pool{
		ID:                id,
		Asset:             asset,
		AllocWeight:       weight,
		LastRewardTime:    maxUint64(now, f.schedule.StartTime),
		AccRewardPerShare: big.NewInt(0),
		TotalStaked:       big.NewInt(0),
	})
	f.assets[asset.Address()] = id
	f.recomputeWeights()

	f.logger.Info("pool added",
		zap.Uint64("pool", id),
		zap.String("asset", asset.Address().Hex()),
		zap.Uint64("weight", weight),
		zap.Uint64("staking_weight", f.pools[0].AllocWeight),
	)
	return id, nil
}

// SetPoolWeight changes the weight of a non-staking pool.
func (f *Farm) SetPoolWeight(caller common.Address, poolID uint64, weight uint64) error {
	if caller != f.owner {
		return fmt.Errorf("set pool weight: %w", ErrUnauthorized)
	}
	if poolID == 0 {
		return fmt.Errorf("set pool weight: %w", ErrImmutablePool)
	}
	p, err := f.pool(poolID)
	if err != nil {
		return fmt.Errorf("set pool weight: %w", err)
	}

	if err := f.massSettle(f.clock.Now()); err != nil {
		return fmt.Errorf("set pool weight: %w", err)
	}
	prev := p.AllocWeight
	p.AllocWeight = weight
	f.recomputeWeights()

	f.logger.Info("pool weight updated",
		zap.Uint64("pool", poolID),
		zap.Uint64("from", prev),
		zap.Uint64("to", weight),
		zap.Uint64("staking_weight", f.pools[0].AllocWeight),
	)
	return nil
}
