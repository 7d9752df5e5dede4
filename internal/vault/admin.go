package vault

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"farmLedger/internal/farm"
)

func (v *Vault) onlyAdmin(caller common.Address, op string) error {
	if caller != v.admin {
		return fmt.Errorf("%s: %w", op, farm.ErrUnauthorized)
	}
	return nil
}

// SetAdmin hands the admin role to next. Owner only.
func (v *Vault) SetAdmin(caller, next common.Address) error {
	if caller != v.owner {
		return fmt.Errorf("set admin: %w", farm.ErrUnauthorized)
	}
	v.admin = next
	v.logger.Info("vault admin updated", zap.String("admin", next.Hex()))
	return nil
}

func (v *Vault) SetPerformanceFee(caller common.Address, bps uint64) error {
	return v.setFee(caller, "set performance fee", bps, MaxPerformanceFee, &v.fees.Performance)
}

func (v *Vault) SetCallFee(caller common.Address, bps uint64) error {
	return v.setFee(caller, "set call fee", bps, MaxCallFee, &v.fees.Call)
}

func (v *Vault) SetWithdrawFee(caller common.Address, bps uint64) error {
	return v.setFee(caller, "set withdraw fee", bps, MaxWithdrawFee, &v.fees.Withdraw)
}

func (v *Vault) SetWithdrawFeePeriod(caller common.Address, seconds uint64) error {
	return v.setFee(caller, "set withdraw fee period", seconds, MaxWithdrawFeePeriod, &v.fees.WithdrawPeriod)
}

func (v *Vault) setFee(caller common.Address, op string, value, max uint64, field *uint64) error {
	if err := v.onlyAdmin(caller, op); err != nil {
		return err
	}
	if err := checkBound(op, value, max); err != nil {
		return err
	}
	*field = value
	v.logger.Info("vault fee updated", zap.String("op", op), zap.Uint64("value", value))
	return nil
}

// EmergencyWithdraw pulls all principal out of pool 0, forfeiting reward.
func (v *Vault) EmergencyWithdraw(caller common.Address) error {
	if err := v.onlyAdmin(caller, "vault emergency withdraw"); err != nil {
		return err
	}
	amount, err := v.farm.EmergencyWithdraw(v.account, stakingPool)
	if err != nil {
		return fmt.Errorf("vault emergency withdraw: %w", err)
	}
	v.logger.Warn("vault emergency withdraw", zap.String("amount", amount.String()))
	return nil
}

func (v *Vault) Pause(caller common.Address) error {
	if err := v.onlyAdmin(caller, "pause"); err != nil {
		return err
	}
	v.paused = true
	return nil
}

func (v *Vault) Unpause(caller common.Address) error {
	if err := v.onlyAdmin(caller, "unpause"); err != nil {
		return err
	}
	v.paused = false
	return nil
}
