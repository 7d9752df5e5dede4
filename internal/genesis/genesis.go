// Package genesis loads the YAML document describing a farm deployment:
// schedule, tokens, initial balances, roles, pools and vault.
package genesis

import (
	"bytes"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

const defaultDecimals uint8 = 18

// Genesis is the initial state of a farm deployment.
type Genesis struct {
	// Time is the clock value the engine is built at.
	Time     uint64       `yaml:"time"`
	Schedule ScheduleSpec `yaml:"schedule"`
	Reward   TokenSpec    `yaml:"reward_token"`
	Receipt  TokenSpec    `yaml:"receipt_token"`
	Tokens   []TokenSpec  `yaml:"tokens"`
	Balances []Balance    `yaml:"balances"`
	Farm     FarmSpec     `yaml:"farm"`
	Pools    []PoolSpec   `yaml:"pools"`
	Vault    *VaultSpec   `yaml:"vault"`
}

type ScheduleSpec struct {
	StartTime         uint64 `yaml:"start_time"`
	SegmentLength     uint64 `yaml:"segment_length"`
	EmissionPerSecond string `yaml:"emission_per_second"`
}

type TokenSpec struct {
	Address   string `yaml:"address"`
	Symbol    string `yaml:"symbol"`
	Decimals  *uint8 `yaml:"decimals"`
	MaxSupply string `yaml:"max_supply"`
}

// Balance is minted to Holder when the engine is built.
type Balance struct {
	Token  string `yaml:"token"`
	Holder string `yaml:"holder"`
	Amount string `yaml:"amount"`
}

type FarmSpec struct {
	Account       string `yaml:"account"`
	RewardBucket  string `yaml:"reward_bucket"`
	Owner         string `yaml:"owner"`
	Dev           string `yaml:"dev"`
	Treasury      string `yaml:"treasury"`
	StakingWeight uint64 `yaml:"staking_weight"`
}

type PoolSpec struct {
	Asset  string `yaml:"asset"`
	Weight uint64 `yaml:"weight"`
}

type VaultSpec struct {
	Account           string  `yaml:"account"`
	Owner             string  `yaml:"owner"`
	Admin             string  `yaml:"admin"`
	PerformanceFee    *uint64 `yaml:"performance_fee"`
	CallFee           *uint64 `yaml:"call_fee"`
	WithdrawFee       *uint64 `yaml:"withdraw_fee"`
	WithdrawFeePeriod *uint64 `yaml:"withdraw_fee_period"`
}

// Load reads and validates a genesis file.
func Load(path string) (*Genesis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read genesis: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a genesis document.
func Parse(data []byte) (*Genesis, error) {
	g := &Genesis{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(g); err != nil {
		return nil, fmt.Errorf("parse genesis: %w", err)
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// Validate checks addresses, amounts and references.
func (g *Genesis) Validate() error {
	if g.Schedule.SegmentLength == 0 {
		return fmt.Errorf("schedule.segment_length must be greater than zero")
	}
	if _, err := Amount(g.Schedule.EmissionPerSecond); err != nil {
		return fmt.Errorf("schedule.emission_per_second: %w", err)
	}

	known := make(map[common.Address]bool)
	check := func(field string, t TokenSpec) error {
		addr, err := Address(t.Address)
		if err != nil {
			return fmt.Errorf("%s.address: %w", field, err)
		}
		if known[addr] {
			return fmt.Errorf("%s: token %s declared twice", field, addr.Hex())
		}
		known[addr] = true
		if t.MaxSupply != "" {
			if _, err := Amount(t.MaxSupply); err != nil {
				return fmt.Errorf("%s.max_supply: %w", field, err)
			}
		}
		return nil
	}
	if err := check("reward_token", g.Reward); err != nil {
		return err
	}
	if g.Reward.MaxSupply == "" {
		return fmt.Errorf("reward_token.max_supply is required")
	}
	if err := check("receipt_token", g.Receipt); err != nil {
		return err
	}
	if g.Receipt.MaxSupply != "" {
		return fmt.Errorf("receipt_token.max_supply must be empty: receipts are minted 1:1 with stake")
	}
	for i, t := range g.Tokens {
		if err := check(fmt.Sprintf("tokens[%d]", i), t); err != nil {
			return err
		}
	}

	for i, b := range g.Balances {
		addr, err := Address(b.Token)
		if err != nil {
			return fmt.Errorf("balances[%d].token: %w", i, err)
		}
		if !known[addr] {
			return fmt.Errorf("balances[%d]: unknown token %s", i, addr.Hex())
		}
		if _, err := Address(b.Holder); err != nil {
			return fmt.Errorf("balances[%d].holder: %w", i, err)
		}
		if _, err := Amount(b.Amount); err != nil {
			return fmt.Errorf("balances[%d].amount: %w", i, err)
		}
	}

	for field, value := range map[string]string{
		"farm.account":  g.Farm.Account,
		"farm.owner":    g.Farm.Owner,
		"farm.dev":      g.Farm.Dev,
		"farm.treasury": g.Farm.Treasury,
	} {
		if _, err := Address(value); err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
	}
	farmAccount, _ := Address(g.Farm.Account)
	bucket, _ := Address(g.Receipt.Address)
	if g.Farm.RewardBucket != "" {
		addr, err := Address(g.Farm.RewardBucket)
		if err != nil {
			return fmt.Errorf("farm.reward_bucket: %w", err)
		}
		bucket = addr
	}
	if bucket == farmAccount {
		return fmt.Errorf("farm.reward_bucket and farm.account are both %s", bucket.Hex())
	}

	for i, p := range g.Pools {
		addr, err := Address(p.Asset)
		if err != nil {
			return fmt.Errorf("pools[%d].asset: %w", i, err)
		}
		if !known[addr] {
			return fmt.Errorf("pools[%d]: unknown token %s", i, addr.Hex())
		}
	}

	if g.Vault != nil {
		for field, value := range map[string]string{
			"vault.account": g.Vault.Account,
			"vault.owner":   g.Vault.Owner,
			"vault.admin":   g.Vault.Admin,
		} {
			if _, err := Address(value); err != nil {
				return fmt.Errorf("%s: %w", field, err)
			}
		}
		vaultAccount, _ := Address(g.Vault.Account)
		if vaultAccount == farmAccount || vaultAccount == bucket {
			return fmt.Errorf("vault.account %s is already the farm account or reward bucket", vaultAccount.Hex())
		}
	}
	return nil
}

// TokenDecimals returns the declared decimals, defaulting to 18.
func (t TokenSpec) TokenDecimals() uint8 {
	if t.Decimals == nil {
		return defaultDecimals
	}
	return *t.Decimals
}

// Address parses a hex account address.
func Address(value string) (common.Address, error) {
	value = strings.TrimSpace(value)
	if !common.IsHexAddress(value) {
		return common.Address{}, fmt.Errorf("invalid address %q", value)
	}
	return common.HexToAddress(value), nil
}

// Amount parses a non-negative base-10 integer.
func Amount(value string) (*big.Int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, fmt.Errorf("amount is required")
	}
	out, ok := new(big.Int).SetString(value, 10)
	if !ok || out.Sign() < 0 {
		return nil, fmt.Errorf("invalid amount %q", value)
	}
	return out, nil
}

// OptionalAmount parses value, returning nil when it is empty.
func OptionalAmount(value string) (*big.Int, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	return Amount(value)
}
