package replay

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"farmLedger/internal/emission"
	"farmLedger/internal/farm"
	"farmLedger/internal/genesis"
	"farmLedger/internal/metrics"
	"farmLedger/internal/token"
	"farmLedger/internal/vault"
)

// Engine is a farm deployment driven by a manual clock: the reward and
// receipt tokens, every other declared token, the farm and the optional vault.
type Engine struct {
	Clock   *farm.ManualClock
	Reward  *token.Ledger
	Receipt *token.Ledger
	Farm    *farm.Farm
	Vault   *vault.Vault
	LastSeq uint64

	tokens  map[common.Address]*token.Ledger
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewEngine builds an engine from a validated genesis document.
func NewEngine(g *genesis.Genesis, logger *zap.Logger, m *metrics.Metrics) (*Engine, error) {
	if g == nil {
		return nil, fmt.Errorf("genesis is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	rate, err := genesis.Amount(g.Schedule.EmissionPerSecond)
	if err != nil {
		return nil, fmt.Errorf("emission per second: %w", err)
	}
	schedule, err := emission.NewSchedule(g.Schedule.StartTime, g.Schedule.SegmentLength, rate)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		Clock:   farm.NewManualClock(g.Time),
		tokens:  make(map[common.Address]*token.Ledger),
		logger:  logger,
		metrics: m,
	}

	if e.Reward, err = e.addToken(g.Reward); err != nil {
		return nil, fmt.Errorf("reward token: %w", err)
	}
	if e.Receipt, err = e.addToken(g.Receipt); err != nil {
		return nil, fmt.Errorf("receipt token: %w", err)
	}
	for i, spec := range g.Tokens {
		if _, err := e.addToken(spec); err != nil {
			return nil, fmt.Errorf("tokens[%d]: %w", i, err)
		}
	}

	for i, b := range g.Balances {
		if err := e.mintBalance(b); err != nil {
			return nil, fmt.Errorf("balances[%d]: %w", i, err)
		}
	}

	account, _ := genesis.Address(g.Farm.Account)
	owner, _ := genesis.Address(g.Farm.Owner)
	dev, _ := genesis.Address(g.Farm.Dev)
	treasury, _ := genesis.Address(g.Farm.Treasury)
	var bucket common.Address
	if g.Farm.RewardBucket != "" {
		bucket, _ = genesis.Address(g.Farm.RewardBucket)
	}

	e.Farm, err = farm.New(farm.Config{
		Schedule:      schedule,
		RewardToken:   e.Reward,
		ReceiptToken:  e.Receipt,
		Account:       account,
		RewardBucket:  bucket,
		Owner:         owner,
		Dev:           dev,
		Treasury:      treasury,
		StakingWeight: g.Farm.StakingWeight,
		Clock:         e.Clock,
		Logger:        logger.Named("farm"),
		Metrics:       m,
	})
	if err != nil {
		return nil, fmt.Errorf("build farm: %w", err)
	}

	for i, p := range g.Pools {
		asset, err := e.token(p.Asset)
		if err != nil {
			return nil, fmt.Errorf("pools[%d]: %w", i, err)
		}
		if _, err := e.Farm.AddPool(owner, p.Weight, asset); err != nil {
			return nil, fmt.Errorf("pools[%d]: %w", i, err)
		}
	}

	if g.Vault != nil {
		if e.Vault, err = e.buildVault(*g.Vault); err != nil {
			return nil, fmt.Errorf("build vault: %w", err)
		}
	}

	logger.Info("engine ready",
		zap.Uint64("time", g.Time),
		zap.Uint64("start_time", schedule.StartTime),
		zap.Uint64("finish_bonus_at", schedule.FinishBonusAt()),
		zap.Int("pools", e.Farm.PoolLength()),
		zap.Bool("vault", e.Vault != nil),
	)
	return e, nil
}

func (e *Engine) addToken(spec genesis.TokenSpec) (*token.Ledger, error) {
	addr, err := genesis.Address(spec.Address)
	if err != nil {
		return nil, err
	}
	maxSupply, err := genesis.OptionalAmount(spec.MaxSupply)
	if err != nil {
		return nil, err
	}
	l := token.NewLedger(addr, spec.Symbol, spec.TokenDecimals(), maxSupply)
	e.tokens[addr] = l
	return l, nil
}

func (e *Engine) mintBalance(b genesis.Balance) error {
	l, err := e.token(b.Token)
	if err != nil {
		return err
	}
	holder, err := genesis.Address(b.Holder)
	if err != nil {
		return err
	}
	amount, err := genesis.Amount(b.Amount)
	if err != nil {
		return err
	}
	minted, err := l.Mint(holder, amount)
	if err != nil {
		return err
	}
	if minted.Cmp(amount) != 0 {
		return fmt.Errorf("%s exceeds max supply of %s", amount, l.Symbol())
	}
	return nil
}

func (e *Engine) buildVault(spec genesis.VaultSpec) (*vault.Vault, error) {
	account, _ := genesis.Address(spec.Account)
	owner, _ := genesis.Address(spec.Owner)
	admin, _ := genesis.Address(spec.Admin)

	fees := vault.DefaultFees()
	if spec.PerformanceFee != nil {
		fees.Performance = *spec.PerformanceFee
	}
	if spec.CallFee != nil {
		fees.Call = *spec.CallFee
	}
	if spec.WithdrawFee != nil {
		fees.Withdraw = *spec.WithdrawFee
	}
	if spec.WithdrawFeePeriod != nil {
		fees.WithdrawPeriod = *spec.WithdrawFeePeriod
	}

	return vault.New(vault.Config{
		Token:   e.Reward,
		Farm:    e.Farm,
		Account: account,
		Owner:   owner,
		Admin:   admin,
		Fees:    fees,
		Clock:   e.Clock,
		Logger:  e.logger.Named("vault"),
		Metrics: e.metrics,
	})
}

// Token returns the ledger registered at addr.
func (e *Engine) Token(addr common.Address) (*token.Ledger, bool) {
	l, ok := e.tokens[addr]
	return l, ok
}

func (e *Engine) token(value string) (*token.Ledger, error) {
	addr, err := genesis.Address(value)
	if err != nil {
		return nil, err
	}
	l, ok := e.tokens[addr]
	if !ok {
		return nil, fmt.Errorf("unknown token %s", addr.Hex())
	}
	return l, nil
}

// Tokens returns every ledger ordered by address.
func (e *Engine) Tokens() []*token.Ledger {
	out := make([]*token.Ledger, 0, len(e.tokens))
	for _, l := range e.tokens {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Address(), out[j].Address()
		return bytes.Compare(a[:], b[:]) < 0
	})
	return out
}

// State is the serialisable state of an Engine.
type State struct {
	LastSeq   uint64           `json:"last_seq"`
	Timestamp uint64           `json:"ts"`
	Tokens    []token.Snapshot `json:"tokens"`
	Farm      farm.Snapshot    `json:"farm"`
	Vault     *vault.Snapshot  `json:"vault,omitempty"`
}

// Snapshot captures the engine state.
func (e *Engine) Snapshot() State {
	s := State{
		LastSeq:   e.LastSeq,
		Timestamp: e.Clock.Now(),
		Farm:      e.Farm.Snapshot(),
	}
	for _, l := range e.Tokens() {
		s.Tokens = append(s.Tokens, l.Snapshot())
	}
	if e.Vault != nil {
		vs := e.Vault.Snapshot()
		s.Vault = &vs
	}
	return s
}

// Restore replaces the engine state with s. The token set and the presence of
// a vault must match the engine's genesis.
func (e *Engine) Restore(s State) error {
	if len(s.Tokens) != len(e.tokens) {
		return fmt.Errorf("state has %d tokens, engine has %d", len(s.Tokens), len(e.tokens))
	}
	if (s.Vault == nil) != (e.Vault == nil) {
		return fmt.Errorf("state and engine disagree on vault presence")
	}
	for _, ts := range s.Tokens {
		l, ok := e.tokens[ts.Address]
		if !ok {
			return fmt.Errorf("state token %s not declared in genesis", ts.Address.Hex())
		}
		if err := l.Restore(ts); err != nil {
			return fmt.Errorf("restore token %s: %w", ts.Address.Hex(), err)
		}
	}
	resolve := func(addr common.Address) (farm.Token, bool) {
		l, ok := e.tokens[addr]
		return l, ok
	}
	if err := e.Farm.Restore(s.Farm, resolve); err != nil {
		return fmt.Errorf("restore farm: %w", err)
	}
	if s.Vault != nil {
		if err := e.Vault.Restore(*s.Vault); err != nil {
			return fmt.Errorf("restore vault: %w", err)
		}
	}
	e.Clock.Set(s.Timestamp)
	e.LastSeq = s.LastSeq
	return nil
}
