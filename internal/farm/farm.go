package farm

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"farmLedger/internal/emission"
	"farmLedger/internal/metrics"
)

// Scale is the fixed-point scale of AccRewardPerShare.
var Scale = big.NewInt(1_000_000_000_000)

// DefaultStakingWeight is pool 0's weight before any other pool exists.
const DefaultStakingWeight uint64 = 1000

// Config wires a Farm to its tokens, accounts and clock.
type Config struct {
	Schedule     emission.Schedule
	RewardToken  Token
	ReceiptToken Token
	// Account holds staked principal of every pool.
	Account common.Address
	// RewardBucket receives the pool share of every mint until it is paid out.
	RewardBucket  common.Address
	Owner         common.Address
	Dev           common.Address
	Treasury      common.Address
	StakingWeight uint64
	Clock         Clock
	Logger        *zap.Logger
	Metrics       *metrics.Metrics
}

// Pool is one entry of the pool table.
type Pool struct {
	ID                uint64
	Asset             Token
	AllocWeight       uint64
	LastRewardTime    uint64
	AccRewardPerShare *big.Int
	TotalStaked       *big.Int
}

// Position is a user's stake in one pool.
type Position struct {
	Amount     *big.Int
	RewardDebt *big.Int
}

type positionKey struct {
	pool uint64
	user common.Address
}

// Farm is the multi-pool emission ledger. It is not safe for concurrent use;
// callers serialize operations.
type Farm struct {
	schedule emission.Schedule
	reward   Token
	receipt  Token
	account  common.Address
	bucket   common.Address
	owner    common.Address
	dev      common.Address
	treasury common.Address

	pools            []*Pool
	assets           map[common.Address]uint64
	positions        map[positionKey]*Position
	totalAllocWeight uint64

	governor *MintGovernor
	clock    Clock
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

// New builds a Farm with the staking pool (pool 0) already registered.
func New(cfg Config) (*Farm, error) {
	if cfg.RewardToken == nil || cfg.ReceiptToken == nil {
		return nil, fmt.Errorf("reward and receipt tokens are required")
	}
	if cfg.RewardToken.Address() == cfg.ReceiptToken.Address() {
		return nil, fmt.Errorf("reward and receipt tokens must differ")
	}
	if cfg.ReceiptToken.MaxSupply() != nil {
		return nil, fmt.Errorf("receipt %s: %w", cfg.ReceiptToken.Address().Hex(), ErrCappedReceipt)
	}
	if cfg.Schedule.SegmentLength == 0 || cfg.Schedule.EmissionPerSecond == nil {
		return nil, fmt.Errorf("schedule is not initialised")
	}
	if cfg.Clock == nil {
		return nil, fmt.Errorf("clock is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	bucket := cfg.RewardBucket
	if bucket == (common.Address{}) {
		bucket = cfg.ReceiptToken.Address()
	}
	if bucket == cfg.Account {
		return nil, fmt.Errorf("reward bucket and farm account %s: %w", bucket.Hex(), ErrAccountCollision)
	}
	weight := cfg.StakingWeight
	if weight == 0 {
		weight = DefaultStakingWeight
	}

	f := &Farm{
		schedule:  cfg.Schedule,
		reward:    cfg.RewardToken,
		receipt:   cfg.ReceiptToken,
		account:   cfg.Account,
		bucket:    bucket,
		owner:     cfg.Owner,
		dev:       cfg.Dev,
		treasury:  cfg.Treasury,
		assets:    make(map[common.Address]uint64),
		positions: make(map[positionKey]*Position),
		governor:  NewMintGovernor(cfg.RewardToken, logger),
		clock:     cfg.Clock,
		logger:    logger,
		metrics:   cfg.Metrics,
	}
	f.pools = append(f.pools, &Pool{
		ID:                0,
		Asset:             cfg.RewardToken,
		AllocWeight:       weight,
		LastRewardTime:    maxUint64(cfg.Clock.Now(), cfg.Schedule.StartTime),
		AccRewardPerShare: big.NewInt(0),
		TotalStaked:       big.NewInt(0),
	})
	f.assets[cfg.RewardToken.Address()] = 0
	f.totalAllocWeight = weight
	return f, nil
}

// Schedule returns the emission schedule.
func (f *Farm) Schedule() emission.Schedule { return f.schedule }

// RewardToken returns the emitted token, which is also pool 0's asset.
func (f *Farm) RewardToken() Token { return f.reward }

// ReceiptToken returns the token minted 1:1 for pool-0 stake.
func (f *Farm) ReceiptToken() Token { return f.receipt }

// Account holds every pool's staked principal.
func (f *Farm) Account() common.Address { return f.account }

// RewardBucket holds minted pool rewards until they are paid out.
func (f *Farm) RewardBucket() common.Address { return f.bucket }

// Owner may add and reweight pools.
func (f *Farm) Owner() common.Address { return f.owner }

// Dev receives the dev share of each mint.
func (f *Farm) Dev() common.Address { return f.dev }

// Treasury receives the treasury share of each mint.
func (f *Farm) Treasury() common.Address { return f.treasury }

// TotalAllocWeight is the sum of all pool weights.
func (f *Farm) TotalAllocWeight() uint64 { return f.totalAllocWeight }

// PoolLength returns the number of pools, including pool 0.
func (f *Farm) PoolLength() int { return len(f.pools) }

// Multiplier exposes the schedule's time-weighted factor.
func (f *Farm) Multiplier(from, to uint64) (uint64, error) {
	return f.schedule.Multiplier(from, to)
}

func (f *Farm) pool(id uint64) (*Pool, error) {
	if id >= uint64(len(f.pools)) {
		return nil, fmt.Errorf("%w: %d", ErrPoolNotFound, id)
	}
	return f.pools[id], nil
}

// PoolInfo returns a copy of pool id.
func (f *Farm) PoolInfo(id uint64) (Pool, error) {
	p, err := f.pool(id)
	if err != nil {
		return Pool{}, err
	}
	return Pool{
		ID:                p.ID,
		Asset:             p.Asset,
		AllocWeight:       p.AllocWeight,
		LastRewardTime:    p.LastRewardTime,
		AccRewardPerShare: new(big.Int).Set(p.AccRewardPerShare),
		TotalStaked:       new(big.Int).Set(p.TotalStaked),
	}, nil
}

// UserInfo returns a copy of the user's position; unknown positions are zero.
func (f *Farm) UserInfo(poolID uint64, user common.Address) Position {
	pos, ok := f.positions[positionKey{pool: poolID, user: user}]
	if !ok {
		return Position{Amount: big.NewInt(0), RewardDebt: big.NewInt(0)}
	}
	return Position{
		Amount:     new(big.Int).Set(pos.Amount),
		RewardDebt: new(big.Int).Set(pos.RewardDebt),
	}
}

// PoolByAsset returns the id of the pool staking asset.
func (f *Farm) PoolByAsset(asset common.Address) (uint64, bool) {
	id, ok := f.assets[asset]
	return id, ok
}

func (f *Farm) position(poolID uint64, user common.Address) *Position {
	key := positionKey{pool: poolID, user: user}
	pos, ok := f.positions[key]
	if !ok {
		pos = &Position{Amount: big.NewInt(0), RewardDebt: big.NewInt(0)}
		f.positions[key] = pos
	}
	return pos
}

func maxUint64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}
