package vault

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"farmLedger/internal/farm"
)

// Deposit moves amount of the reward token into the vault and mints shares.
// It returns the shares minted.
func (v *Vault) Deposit(caller common.Address, amount *big.Int) (*big.Int, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, fmt.Errorf("vault deposit: %w", ErrZeroAmount)
	}
	if v.paused {
		return nil, fmt.Errorf("vault deposit: %w", ErrPaused)
	}
	if bal := v.token.BalanceOf(caller); bal.Cmp(amount) < 0 {
		return nil, fmt.Errorf("vault deposit %s: %w", amount, farm.ErrInsufficientBalance)
	}

	now := v.clock.Now()
	pool := v.Balance()
	shares := new(big.Int).Set(amount)
	if v.totalShares.Sign() > 0 && pool.Sign() > 0 {
		shares.Mul(amount, v.totalShares)
		shares.Quo(shares, pool)
	}

	u := v.user(caller)
	u.Shares.Add(u.Shares, shares)
	u.LastDepositedTime = now
	v.totalShares.Add(v.totalShares, shares)
	u.TokenAtLastUserAction = v.shareValue(u.Shares, new(big.Int).Add(pool, amount))
	u.LastUserActionTime = now

	if err := v.token.Transfer(caller, v.account, amount); err != nil {
		return nil, fmt.Errorf("vault deposit: %w", err)
	}
	if err := v.earn(); err != nil {
		return nil, fmt.Errorf("vault deposit: %w", err)
	}

	v.logger.Debug("vault deposit",
		zap.String("user", caller.Hex()),
		zap.String("amount", amount.String()),
		zap.String("shares", shares.String()),
	)
	return shares, nil
}

// WithdrawAll redeems every share the caller holds.
func (v *Vault) WithdrawAll(caller common.Address) (*big.Int, error) {
	return v.Withdraw(caller, v.UserInfo(caller).Shares)
}

// Withdraw redeems shares for the underlying token, charging the withdraw
// fee inside the fee window. It returns the amount paid to the caller.
func (v *Vault) Withdraw(caller common.Address, shares *big.Int) (*big.Int, error) {
	if shares == nil || shares.Sign() <= 0 {
		return nil, fmt.Errorf("vault withdraw: %w", ErrZeroAmount)
	}
	held := v.UserInfo(caller)
	if shares.Cmp(held.Shares) > 0 {
		return nil, fmt.Errorf("vault withdraw %s of %s shares: %w", shares, held.Shares, ErrInsufficientShares)
	}

	now := v.clock.Now()
	amount := v.shareValue(shares, v.Balance())

	u := v.user(caller)
	u.Shares.Sub(u.Shares, shares)
	v.totalShares.Sub(v.totalShares, shares)

	bal := v.Available()
	if bal.Cmp(amount) < 0 {
		need := new(big.Int).Sub(amount, bal)
		if _, err := v.farm.LeaveStaking(v.account, need); err != nil {
			u.Shares.Add(u.Shares, shares)
			v.totalShares.Add(v.totalShares, shares)
			return nil, fmt.Errorf("vault withdraw: %w", err)
		}
		diff := new(big.Int).Sub(v.Available(), bal)
		if diff.Cmp(need) < 0 {
			amount = bal.Add(bal, diff)
		}
	}

	fee := big.NewInt(0)
	if now < held.LastDepositedTime+v.fees.WithdrawPeriod {
		fee = applyBps(amount, v.fees.Withdraw)
		amount.Sub(amount, fee)
	}

	after := new(big.Int).Sub(v.Balance(), amount)
	after.Sub(after, fee)
	u.TokenAtLastUserAction = v.shareValue(u.Shares, after)
	u.LastUserActionTime = now

	if fee.Sign() > 0 {
		if err := v.token.Burn(v.account, fee); err != nil {
			return nil, fmt.Errorf("vault withdraw: burn fee: %w", err)
		}
		v.metrics.RecordWithdrawFee(fee)
	}
	if err := v.token.Transfer(v.account, caller, amount); err != nil {
		return nil, fmt.Errorf("vault withdraw: %w", err)
	}

	v.logger.Debug("vault withdraw",
		zap.String("user", caller.Hex()),
		zap.String("shares", shares.String()),
		zap.String("amount", amount.String()),
		zap.String("fee", fee.String()),
	)
	return amount, nil
}

// HarvestResult describes one harvest.
type HarvestResult struct {
	Harvested      *big.Int
	PerformanceFee *big.Int
	CallFee        *big.Int
	Restaked       *big.Int
}

// Harvest claims pool-0 reward, burns the performance fee, pays the call fee
// to caller and restakes the rest.
func (v *Vault) Harvest(caller common.Address) (HarvestResult, error) {
	if v.paused {
		return HarvestResult{}, fmt.Errorf("vault harvest: %w", ErrPaused)
	}
	now := v.clock.Now()
	if _, err := v.farm.LeaveStaking(v.account, big.NewInt(0)); err != nil {
		return HarvestResult{}, fmt.Errorf("vault harvest: %w", err)
	}
	v.lastHarvestedTime = now

	bal := v.Available()
	res := HarvestResult{
		Harvested:      bal,
		PerformanceFee: applyBps(bal, v.fees.Performance),
		CallFee:        applyBps(bal, v.fees.Call),
	}
	res.Restaked = new(big.Int).Sub(bal, res.PerformanceFee)
	res.Restaked.Sub(res.Restaked, res.CallFee)

	if res.PerformanceFee.Sign() > 0 {
		if err := v.token.Burn(v.account, res.PerformanceFee); err != nil {
			return HarvestResult{}, fmt.Errorf("vault harvest: burn fee: %w", err)
		}
	}
	if res.CallFee.Sign() > 0 {
		if err := v.token.Transfer(v.account, caller, res.CallFee); err != nil {
			return HarvestResult{}, fmt.Errorf("vault harvest: call fee: %w", err)
		}
	}
	if err := v.earn(); err != nil {
		return HarvestResult{}, fmt.Errorf("vault harvest: %w", err)
	}

	v.metrics.RecordHarvest(res.PerformanceFee, res.CallFee)
	v.logger.Info("vault harvest",
		zap.String("caller", caller.Hex()),
		zap.String("harvested", res.Harvested.String()),
		zap.String("performance_fee", res.PerformanceFee.String()),
		zap.String("call_fee", res.CallFee.String()),
	)
	return res, nil
}
