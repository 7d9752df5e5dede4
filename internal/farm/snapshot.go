package farm

import (
	"bytes"
	"fmt"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
)

// PoolState is the serialisable form of a Pool.
type PoolState struct {
	ID                uint64         `json:"id"`
	Asset             common.Address `json:"asset"`
	AllocWeight       uint64         `json:"alloc_weight"`
	LastRewardTime    uint64         `json:"last_reward_time"`
	AccRewardPerShare *big.Int       `json:"acc_reward_per_share"`
	TotalStaked       *big.Int       `json:"total_staked"`
}

// PositionState is the serialisable form of a Position.
type PositionState struct {
	PoolID     uint64         `json:"pool_id"`
	User       common.Address `json:"user"`
	Amount     *big.Int       `json:"amount"`
	RewardDebt *big.Int       `json:"reward_debt"`
}

// Snapshot is the serialisable state of a Farm.
type Snapshot struct {
	Owner            common.Address  `json:"owner"`
	Dev              common.Address  `json:"dev"`
	Treasury         common.Address  `json:"treasury"`
	TotalAllocWeight uint64          `json:"total_alloc_weight"`
	Pools            []PoolState     `json:"pools"`
	Positions        []PositionState `json:"positions"`
}

func (f *Farm) Snapshot() Snapshot {
	pools := make([]PoolState, 0, len(f.pools))
	for _, p := range f.pools {
		pools = append(pools, PoolState{
			ID:                p.ID,
			Asset:             p.Asset.Address(),
			AllocWeight:       p.AllocWeight,
			LastRewardTime:    p.LastRewardTime,
			AccRewardPerShare: new(big.Int).Set(p.AccRewardPerShare),
			TotalStaked:       new(big.Int).Set(p.TotalStaked),
		})
	}
	positions := make([]PositionState, 0, len(f.positions))
	for key, pos := range f.positions {
		positions = append(positions, PositionState{
			PoolID:     key.pool,
			User:       key.user,
			Amount:     new(big.Int).Set(pos.Amount),
			RewardDebt: new(big.Int).Set(pos.RewardDebt),
		})
	}
	sort.Slice(positions, func(i, j int) bool {
		if positions[i].PoolID != positions[j].PoolID {
			return positions[i].PoolID < positions[j].PoolID
		}
		return bytes.Compare(positions[i].User[:], positions[j].User[:]) < 0
	})
	return Snapshot{
		Owner:            f.owner,
		Dev:              f.dev,
		Treasury:         f.treasury,
		TotalAllocWeight: f.totalAllocWeight,
		Pools:            pools,
		Positions:        positions,
	}
}

// Restore replaces the farm's pool and position tables with s. resolve maps a
// pool asset address to its Token.
func (f *Farm) Restore(s Snapshot, resolve func(common.Address) (Token, bool)) error {
	if len(s.Pools) == 0 || s.Pools[0].Asset != f.reward.Address() {
		return fmt.Errorf("snapshot pool 0 must stake %s", f.reward.Address().Hex())
	}
	pools := make([]*Pool, 0, len(s.Pools))
	assets := make(map[common.Address]uint64, len(s.Pools))
	for i, ps := range s.Pools {
		if ps.ID != uint64(i) {
			return fmt.Errorf("snapshot pool %d at index %d", ps.ID, i)
		}
		if ps.AccRewardPerShare == nil || ps.TotalStaked == nil {
			return fmt.Errorf("snapshot pool %d missing accumulator", ps.ID)
		}
		if _, dup := assets[ps.Asset]; dup {
			return fmt.Errorf("snapshot pool %d: %w", ps.ID, ErrDuplicatePool)
		}
		asset := f.reward
		if i > 0 {
			tok, ok := resolve(ps.Asset)
			if !ok {
				return fmt.Errorf("snapshot pool %d: unknown asset %s", ps.ID, ps.Asset.Hex())
			}
			asset = tok
		}
		pools = append(pools, &Pool{
			ID:                ps.ID,
			Asset:             asset,
			AllocWeight:       ps.AllocWeight,
			LastRewardTime:    ps.LastRewardTime,
			AccRewardPerShare: new(big.Int).Set(ps.AccRewardPerShare),
			TotalStaked:       new(big.Int).Set(ps.TotalStaked),
		})
		assets[ps.Asset] = ps.ID
	}
	if totalWeight(pools) != s.TotalAllocWeight {
		return fmt.Errorf("snapshot total weight %d != sum of pool weights %d", s.TotalAllocWeight, totalWeight(pools))
	}

	positions := make(map[positionKey]*Position, len(s.Positions))
	for _, ps := range s.Positions {
		if ps.PoolID >= uint64(len(pools)) {
			return fmt.Errorf("snapshot position for unknown pool %d", ps.PoolID)
		}
		if ps.Amount == nil || ps.RewardDebt == nil {
			return fmt.Errorf("snapshot position %d/%s incomplete", ps.PoolID, ps.User.Hex())
		}
		positions[positionKey{pool: ps.PoolID, user: ps.User}] = &Position{
			Amount:     new(big.Int).Set(ps.Amount),
			RewardDebt: new(big.Int).Set(ps.RewardDebt),
		}
	}

	f.owner = s.Owner
	f.dev = s.Dev
	f.treasury = s.Treasury
	f.pools = pools
	f.assets = assets
	f.positions = positions
	f.totalAllocWeight = s.TotalAllocWeight
	return nil
}
