package vault

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"farmLedger/internal/farm"
	"farmLedger/internal/metrics"
)

const stakingPool uint64 = 0

var precision = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// Staking is the slice of the farm the vault compounds into.
type Staking interface {
	EnterStaking(caller common.Address, amount *big.Int) (*big.Int, error)
	LeaveStaking(caller common.Address, amount *big.Int) (*big.Int, error)
	EmergencyWithdraw(caller common.Address, poolID uint64) (*big.Int, error)
	PendingReward(poolID uint64, user common.Address) (*big.Int, error)
	UserInfo(poolID uint64, user common.Address) farm.Position
	Account() common.Address
	RewardBucket() common.Address
}

type Config struct {
	Token   farm.Token
	Farm    Staking
	Account common.Address
	Owner   common.Address
	Admin   common.Address
	Fees    Fees
	Clock   farm.Clock
	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// User is one share holder's vault record.
type User struct {
	Shares                *big.Int
	LastDepositedTime     uint64
	TokenAtLastUserAction *big.Int
	LastUserActionTime    uint64
}

// Vault auto-compounds staking-pool rewards on behalf of share holders.
type Vault struct {
	token   farm.Token
	farm    Staking
	account common.Address
	owner   common.Address
	admin   common.Address
	fees    Fees
	paused  bool

	totalShares       *big.Int
	users             map[common.Address]*User
	lastHarvestedTime uint64

	clock   farm.Clock
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func New(cfg Config) (*Vault, error) {
	if cfg.Token == nil || cfg.Farm == nil {
		return nil, fmt.Errorf("token and farm are required")
	}
	if cfg.Clock == nil {
		return nil, fmt.Errorf("clock is required")
	}
	if cfg.Account == cfg.Farm.Account() || cfg.Account == cfg.Farm.RewardBucket() {
		return nil, fmt.Errorf("vault account %s: %w", cfg.Account.Hex(), farm.ErrAccountCollision)
	}
	if err := cfg.Fees.Validate(); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Vault{
		token:       cfg.Token,
		farm:        cfg.Farm,
		account:     cfg.Account,
		owner:       cfg.Owner,
		admin:       cfg.Admin,
		fees:        cfg.Fees,
		totalShares: big.NewInt(0),
		users:       make(map[common.Address]*User),
		clock:       cfg.Clock,
		logger:      logger,
		metrics:     cfg.Metrics,
	}, nil
}

// Account returns the address holding the vault's idle reward and stake.
func (v *Vault) Account() common.Address { return v.account }

// Owner returns the vault owner.
func (v *Vault) Owner() common.Address { return v.owner }

// Admin returns the address allowed to set fees and pause.
func (v *Vault) Admin() common.Address { return v.admin }

// Fees returns the current fee settings.
func (v *Vault) Fees() Fees { return v.fees }

// Paused reports whether deposits and harvests are paused.
func (v *Vault) Paused() bool { return v.paused }

// LastHarvestedTime returns the timestamp of the last harvest.
func (v *Vault) LastHarvestedTime() uint64 { return v.lastHarvestedTime }

// TotalShares returns a copy of the outstanding share supply.
func (v *Vault) TotalShares() *big.Int { return new(big.Int).Set(v.totalShares) }

// Available is the vault's idle reward-token balance.
func (v *Vault) Available() *big.Int {
	return v.token.BalanceOf(v.account)
}

// Balance is idle balance plus principal staked in pool 0.
func (v *Vault) Balance() *big.Int {
	out := v.Available()
	return out.Add(out, v.farm.UserInfo(stakingPool, v.account).Amount)
}

// UserInfo returns a copy of the user's record.
func (v *Vault) UserInfo(user common.Address) User {
	u, ok := v.users[user]
	if !ok {
		return User{Shares: big.NewInt(0), TokenAtLastUserAction: big.NewInt(0)}
	}
	return User{
		Shares:                new(big.Int).Set(u.Shares),
		LastDepositedTime:     u.LastDepositedTime,
		TokenAtLastUserAction: new(big.Int).Set(u.TokenAtLastUserAction),
		LastUserActionTime:    u.LastUserActionTime,
	}
}

func (v *Vault) user(addr common.Address) *User {
	u, ok := v.users[addr]
	if !ok {
		u = &User{Shares: big.NewInt(0), TokenAtLastUserAction: big.NewInt(0)}
		v.users[addr] = u
	}
	return u
}

// PricePerFullShare is the value of 1e18 shares.
func (v *Vault) PricePerFullShare() *big.Int {
	if v.totalShares.Sign() == 0 {
		return new(big.Int).Set(precision)
	}
	out := new(big.Int).Mul(v.Balance(), precision)
	return out.Quo(out, v.totalShares)
}

// CalculateTotalPendingRewards is pending pool-0 reward plus idle balance.
func (v *Vault) CalculateTotalPendingRewards() (*big.Int, error) {
	pending, err := v.farm.PendingReward(stakingPool, v.account)
	if err != nil {
		return nil, err
	}
	return pending.Add(pending, v.Available()), nil
}

// CalculateHarvestRewards is the call fee a harvest would pay right now.
func (v *Vault) CalculateHarvestRewards() (*big.Int, error) {
	total, err := v.CalculateTotalPendingRewards()
	if err != nil {
		return nil, err
	}
	return applyBps(total, v.fees.Call), nil
}

func (v *Vault) shareValue(shares *big.Int, balance *big.Int) *big.Int {
	if v.totalShares.Sign() == 0 {
		return big.NewInt(0)
	}
	out := new(big.Int).Mul(shares, balance)
	return out.Quo(out, v.totalShares)
}

// earn stakes every idle token into pool 0.
func (v *Vault) earn() error {
	bal := v.Available()
	if bal.Sign() == 0 {
		return nil
	}
	if _, err := v.farm.EnterStaking(v.account, bal); err != nil {
		return fmt.Errorf("restake: %w", err)
	}
	return nil
}
