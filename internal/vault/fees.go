package vault

import (
	"fmt"
	"math/big"
)

const (
	MaxPerformanceFee    uint64 = 500
	MaxCallFee           uint64 = 100
	MaxWithdrawFee       uint64 = 100
	MaxWithdrawFeePeriod uint64 = 72 * 3600

	feeDenominator = 10000
)

// Fees holds the vault's fee parameters. Rates are basis points.
type Fees struct {
	Performance    uint64 `json:"performance"`
	Call           uint64 `json:"call"`
	Withdraw       uint64 `json:"withdraw"`
	WithdrawPeriod uint64 `json:"withdraw_period"`
}

// DefaultFees returns 2% performance, 0.25% call, 0.5% withdraw within 72h.
func DefaultFees() Fees {
	return Fees{
		Performance:    200,
		Call:           25,
		Withdraw:       50,
		WithdrawPeriod: 72 * 3600,
	}
}

func (f Fees) Validate() error {
	if err := checkBound("performance fee", f.Performance, MaxPerformanceFee); err != nil {
		return err
	}
	if err := checkBound("call fee", f.Call, MaxCallFee); err != nil {
		return err
	}
	if err := checkBound("withdraw fee", f.Withdraw, MaxWithdrawFee); err != nil {
		return err
	}
	return checkBound("withdraw fee period", f.WithdrawPeriod, MaxWithdrawFeePeriod)
}

func checkBound(name string, value, max uint64) error {
	if value > max {
		return fmt.Errorf("%s %d exceeds %d: %w", name, value, max, ErrFeeOutOfBounds)
	}
	return nil
}

func applyBps(amount *big.Int, bps uint64) *big.Int {
	out := new(big.Int).Mul(amount, new(big.Int).SetUint64(bps))
	return out.Quo(out, big.NewInt(feeDenominator))
}
