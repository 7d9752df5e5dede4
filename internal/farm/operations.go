package farm

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

func normalizeAmount(amount *big.Int) (*big.Int, error) {
	if amount == nil {
		return big.NewInt(0), nil
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAmount, amount)
	}
	return new(big.Int).Set(amount), nil
}

// Deposit stakes amount of the pool's asset for caller and pays out any
// pending reward. It returns the reward paid.
func (f *Farm) Deposit(caller common.Address, poolID uint64, amount *big.Int) (*big.Int, error) {
	amount, err := normalizeAmount(amount)
	if err != nil {
		return nil, fmt.Errorf("deposit: %w", err)
	}
	p, err := f.pool(poolID)
	if err != nil {
		return nil, fmt.Errorf("deposit: %w", err)
	}
	if bal := p.Asset.BalanceOf(caller); bal.Cmp(amount) < 0 {
		return nil, fmt.Errorf("deposit %s into pool %d: %w", amount, poolID, ErrInsufficientBalance)
	}

	now := f.clock.Now()
	if err := f.settle(p, now); err != nil {
		return nil, fmt.Errorf("deposit: %w", err)
	}

	pos := f.position(poolID, caller)
	pending := accrued(pos.Amount, p.AccRewardPerShare, pos.RewardDebt)
	pos.Amount.Add(pos.Amount, amount)
	p.TotalStaked.Add(p.TotalStaked, amount)
	pos.RewardDebt = rewardDebt(pos.Amount, p.AccRewardPerShare)

	paid, err := f.payReward(caller, pending)
	if err != nil {
		return nil, fmt.Errorf("deposit: %w", err)
	}
	if amount.Sign() > 0 {
		if err := p.Asset.Transfer(caller, f.account, amount); err != nil {
			return nil, fmt.Errorf("deposit: pull asset: %w", err)
		}
		if poolID == 0 {
			minted, err := f.receipt.Mint(caller, amount)
			if err != nil {
				return nil, fmt.Errorf("deposit: mint receipt: %w", err)
			}
			if minted.Cmp(amount) != 0 {
				return nil, fmt.Errorf("deposit: minted %s of %s: %w", minted, amount, ErrReceiptMint)
			}
		}
	}

	f.logger.Debug("deposit",
		zap.Uint64("pool", poolID),
		zap.String("user", caller.Hex()),
		zap.String("amount", amount.String()),
		zap.String("reward", paid.String()),
	)
	return paid, nil
}

// Withdraw unstakes amount for caller and pays out any pending reward. It
// returns the reward paid.
func (f *Farm) Withdraw(caller common.Address, poolID uint64, amount *big.Int) (*big.Int, error) {
	amount, err := normalizeAmount(amount)
	if err != nil {
		return nil, fmt.Errorf("withdraw: %w", err)
	}
	p, err := f.pool(poolID)
	if err != nil {
		return nil, fmt.Errorf("withdraw: %w", err)
	}
	if staked := f.UserInfo(poolID, caller).Amount; staked.Cmp(amount) < 0 {
		return nil, fmt.Errorf("withdraw %s from pool %d (staked %s): %w", amount, poolID, staked, ErrInsufficientStake)
	}
	if poolID == 0 {
		if bal := f.receipt.BalanceOf(caller); bal.Cmp(amount) < 0 {
			return nil, fmt.Errorf("withdraw %s from pool 0 (receipt %s): %w", amount, bal, ErrInsufficientReceipt)
		}
	}

	now := f.clock.Now()
	if err := f.settle(p, now); err != nil {
		return nil, fmt.Errorf("withdraw: %w", err)
	}

	pos := f.position(poolID, caller)
	pending := accrued(pos.Amount, p.AccRewardPerShare, pos.RewardDebt)
	pos.Amount.Sub(pos.Amount, amount)
	p.TotalStaked.Sub(p.TotalStaked, amount)
	pos.RewardDebt = rewardDebt(pos.Amount, p.AccRewardPerShare)

	if poolID == 0 && amount.Sign() > 0 {
		if err := f.receipt.Burn(caller, amount); err != nil {
			return nil, fmt.Errorf("withdraw: burn receipt: %w", err)
		}
	}
	paid, err := f.payReward(caller, pending)
	if err != nil {
		return nil, fmt.Errorf("withdraw: %w", err)
	}
	if amount.Sign() > 0 {
		if err := p.Asset.Transfer(f.account, caller, amount); err != nil {
			return nil, fmt.Errorf("withdraw: return asset: %w", err)
		}
	}

	f.logger.Debug("withdraw",
		zap.Uint64("pool", poolID),
		zap.String("user", caller.Hex()),
		zap.String("amount", amount.String()),
		zap.String("reward", paid.String()),
	)
	return paid, nil
}

// EnterStaking deposits reward tokens into the staking pool.
func (f *Farm) EnterStaking(caller common.Address, amount *big.Int) (*big.Int, error) {
	return f.Deposit(caller, 0, amount)
}

// LeaveStaking withdraws reward tokens from the staking pool.
func (f *Farm) LeaveStaking(caller common.Address, amount *big.Int) (*big.Int, error) {
	return f.Withdraw(caller, 0, amount)
}

// EmergencyWithdraw returns the caller's whole stake and forfeits pending
// reward. It returns the amount returned.
func (f *Farm) EmergencyWithdraw(caller common.Address, poolID uint64) (*big.Int, error) {
	p, err := f.pool(poolID)
	if err != nil {
		return nil, fmt.Errorf("emergency withdraw: %w", err)
	}
	amount := f.UserInfo(poolID, caller).Amount
	if poolID == 0 {
		if bal := f.receipt.BalanceOf(caller); bal.Cmp(amount) < 0 {
			return nil, fmt.Errorf("emergency withdraw %s from pool 0 (receipt %s): %w", amount, bal, ErrInsufficientReceipt)
		}
	}

	now := f.clock.Now()
	if err := f.settle(p, now); err != nil {
		return nil, fmt.Errorf("emergency withdraw: %w", err)
	}

	pos := f.position(poolID, caller)
	pos.Amount = big.NewInt(0)
	pos.RewardDebt = big.NewInt(0)
	p.TotalStaked.Sub(p.TotalStaked, amount)

	if amount.Sign() > 0 {
		if poolID == 0 {
			if err := f.receipt.Burn(caller, amount); err != nil {
				return nil, fmt.Errorf("emergency withdraw: burn receipt: %w", err)
			}
		}
		if err := p.Asset.Transfer(f.account, caller, amount); err != nil {
			return nil, fmt.Errorf("emergency withdraw: return asset: %w", err)
		}
	}

	f.logger.Info("emergency withdraw",
		zap.Uint64("pool", poolID),
		zap.String("user", caller.Hex()),
		zap.String("amount", amount.String()),
	)
	return amount, nil
}

// payReward transfers up to amount from the reward bucket to the user.
func (f *Farm) payReward(to common.Address, amount *big.Int) (*big.Int, error) {
	if amount.Sign() <= 0 {
		return big.NewInt(0), nil
	}
	pay := new(big.Int).Set(amount)
	if bal := f.reward.BalanceOf(f.bucket); bal.Cmp(pay) < 0 {
		pay = bal
	}
	if pay.Sign() == 0 {
		return pay, nil
	}
	if err := f.reward.Transfer(f.bucket, to, pay); err != nil {
		return nil, fmt.Errorf("pay reward: %w", err)
	}
	f.metrics.RecordRewardPaid(pay)
	return pay, nil
}

// SetDev hands the dev beneficiary role to next. Only the current dev may.
func (f *Farm) SetDev(caller, next common.Address) error {
	if caller != f.dev {
		return fmt.Errorf("set dev: %w", ErrUnauthorized)
	}
	f.dev = next
	f.logger.Info("dev updated", zap.String("dev", next.Hex()))
	return nil
}

// SetTreasury hands the treasury role to next. Only the current treasury may.
func (f *Farm) SetTreasury(caller, next common.Address) error {
	if caller != f.treasury {
		return fmt.Errorf("set treasury: %w", ErrUnauthorized)
	}
	f.treasury = next
	f.logger.Info("treasury updated", zap.String("treasury", next.Hex()))
	return nil
}

// Burn destroys amount of the caller's own reward tokens.
func (f *Farm) Burn(caller common.Address, amount *big.Int) error {
	amount, err := normalizeAmount(amount)
	if err != nil {
		return fmt.Errorf("burn: %w", err)
	}
	if bal := f.reward.BalanceOf(caller); bal.Cmp(amount) < 0 {
		return fmt.Errorf("burn %s: %w", amount, ErrInsufficientBalance)
	}
	if err := f.reward.Burn(caller, amount); err != nil {
		return fmt.Errorf("burn: %w", err)
	}
	return nil
}
