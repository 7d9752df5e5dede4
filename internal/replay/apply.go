package replay

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"farmLedger/internal/farm"
	"farmLedger/internal/model"
	"farmLedger/internal/vault"
)

// ErrUnknownOp is returned for journal records with an unrecognised op name.
var ErrUnknownOp = errors.New("unknown op")

// ErrNoVault is returned for vault ops against an engine built without one.
var ErrNoVault = errors.New("vault not configured")

// ErrClockReversed is returned when a record is older than the engine clock.
var ErrClockReversed = errors.New("timestamp moves backwards")

// Apply advances the clock to rec.Timestamp and executes rec. A failed
// operation leaves the engine as it was before rec and is reported in the
// result. Only a timestamp older than the engine clock, or a failure to roll
// back, is returned as an error.
func (e *Engine) Apply(rec model.OpRecord) (model.OpResult, error) {
	if rec.Timestamp < e.Clock.Now() {
		return model.OpResult{}, fmt.Errorf("seq %d at %d: %w (clock %d)", rec.Seq, rec.Timestamp, ErrClockReversed, e.Clock.Now())
	}
	e.Clock.Set(rec.Timestamp)

	before := e.Snapshot()
	outputs, err := e.dispatch(rec)
	if err != nil {
		if rerr := e.Restore(before); rerr != nil {
			return model.OpResult{}, fmt.Errorf("seq %d: roll back %q: %w", rec.Seq, rec.Op, rerr)
		}
	}
	e.metrics.RecordOperation(rec.Op, err)
	e.metrics.RecordApplied(rec.Seq, rec.Timestamp)
	if rec.Seq > e.LastSeq {
		e.LastSeq = rec.Seq
	}

	res := buildResult(rec, outputs, err)
	if err != nil {
		e.logger.Debug("op rejected", zap.Uint64("seq", rec.Seq), zap.String("op", rec.Op), zap.Error(err))
	} else {
		e.logger.Debug("op applied", zap.Uint64("seq", rec.Seq), zap.String("op", rec.Op))
	}
	return res, nil
}

// Harvest runs a keeper harvest at ts on behalf of keeper.
func (e *Engine) Harvest(ts uint64, keeper common.Address) (model.OpResult, error) {
	res, err := e.Apply(model.OpRecord{
		Seq:       e.LastSeq,
		Timestamp: ts,
		Op:        model.OpVaultHarvest,
		Caller:    keeper.Hex(),
	})
	res.Keeper = true
	return res, err
}

func (e *Engine) dispatch(rec model.OpRecord) (map[string]string, error) {
	caller, err := parseAddress("caller", rec.Caller)
	if err != nil {
		return nil, err
	}

	switch rec.Op {
	case model.OpAddPool:
		asset, err := e.token(rec.Asset)
		if err != nil {
			return nil, err
		}
		id, err := e.Farm.AddPool(caller, rec.Weight, asset)
		if err != nil {
			return nil, err
		}
		return map[string]string{"pool_id": strconv.FormatUint(id, 10)}, nil

	case model.OpSetPoolWeight:
		return nil, e.Farm.SetPoolWeight(caller, rec.Pool, rec.Weight)

	case model.OpDeposit, model.OpWithdraw, model.OpEnterStaking, model.OpLeaveStaking:
		amount, err := model.ParseAmount(rec.Amount)
		if err != nil {
			return nil, err
		}
		pool, err := e.poolID(rec)
		if err != nil {
			return nil, err
		}
		var paid *big.Int
		switch rec.Op {
		case model.OpDeposit:
			paid, err = e.Farm.Deposit(caller, pool, amount)
		case model.OpWithdraw:
			paid, err = e.Farm.Withdraw(caller, pool, amount)
		case model.OpEnterStaking:
			paid, err = e.Farm.EnterStaking(caller, amount)
		default:
			paid, err = e.Farm.LeaveStaking(caller, amount)
		}
		if err != nil {
			return nil, err
		}
		return map[string]string{"reward_paid": model.AmountString(paid)}, nil

	case model.OpEmergencyWithdraw:
		pool, err := e.poolID(rec)
		if err != nil {
			return nil, err
		}
		amount, err := e.Farm.EmergencyWithdraw(caller, pool)
		if err != nil {
			return nil, err
		}
		return map[string]string{"amount": model.AmountString(amount)}, nil

	case model.OpSettle:
		pool, err := e.poolID(rec)
		if err != nil {
			return nil, err
		}
		return nil, e.Farm.Settle(pool)

	case model.OpMassSettle:
		return nil, e.Farm.MassSettle()

	case model.OpSetDev, model.OpSetTreasury:
		to, err := parseAddress("to", rec.To)
		if err != nil {
			return nil, err
		}
		if rec.Op == model.OpSetDev {
			return nil, e.Farm.SetDev(caller, to)
		}
		return nil, e.Farm.SetTreasury(caller, to)

	case model.OpBurn:
		amount, err := model.ParseAmount(rec.Amount)
		if err != nil {
			return nil, err
		}
		return nil, e.Farm.Burn(caller, amount)

	case model.OpTransfer:
		return nil, e.transfer(caller, rec)
	}

	return e.dispatchVault(caller, rec)
}

// poolID resolves the record's pool, by staked asset when one is named.
func (e *Engine) poolID(rec model.OpRecord) (uint64, error) {
	if rec.Asset == "" {
		return rec.Pool, nil
	}
	asset, err := parseAddress("asset", rec.Asset)
	if err != nil {
		return 0, err
	}
	id, ok := e.Farm.PoolByAsset(asset)
	if !ok {
		return 0, fmt.Errorf("asset %s: %w", asset.Hex(), farm.ErrPoolNotFound)
	}
	return id, nil
}

func (e *Engine) transfer(caller common.Address, rec model.OpRecord) error {
	l := e.Reward
	if rec.Asset != "" {
		var err error
		if l, err = e.token(rec.Asset); err != nil {
			return err
		}
	}
	to, err := parseAddress("to", rec.To)
	if err != nil {
		return err
	}
	amount, err := model.ParseAmount(rec.Amount)
	if err != nil {
		return err
	}
	return l.Transfer(caller, to, amount)
}

func (e *Engine) dispatchVault(caller common.Address, rec model.OpRecord) (map[string]string, error) {
	switch rec.Op {
	case model.OpVaultDeposit, model.OpVaultWithdraw, model.OpVaultWithdrawAll, model.OpVaultHarvest,
		model.OpVaultEmergency, model.OpVaultPause, model.OpVaultUnpause, model.OpVaultSetAdmin,
		model.OpSetPerformanceFee, model.OpSetCallFee, model.OpSetWithdrawFee, model.OpSetWithdrawFeePeriod:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownOp, rec.Op)
	}
	v := e.Vault
	if v == nil {
		return nil, ErrNoVault
	}

	switch rec.Op {
	case model.OpVaultDeposit:
		amount, err := model.ParseAmount(rec.Amount)
		if err != nil {
			return nil, err
		}
		shares, err := v.Deposit(caller, amount)
		if err != nil {
			return nil, err
		}
		return map[string]string{"shares": model.AmountString(shares)}, nil

	case model.OpVaultWithdraw, model.OpVaultWithdrawAll:
		var (
			paid *big.Int
			err  error
		)
		if rec.Op == model.OpVaultWithdrawAll {
			paid, err = v.WithdrawAll(caller)
		} else {
			shares, perr := model.ParseAmount(rec.Amount)
			if perr != nil {
				return nil, perr
			}
			paid, err = v.Withdraw(caller, shares)
		}
		if err != nil {
			return nil, err
		}
		return map[string]string{"amount": model.AmountString(paid)}, nil

	case model.OpVaultHarvest:
		res, err := v.Harvest(caller)
		if err != nil {
			return nil, err
		}
		return harvestOutputs(res), nil

	case model.OpVaultEmergency:
		return nil, v.EmergencyWithdraw(caller)
	case model.OpVaultPause:
		return nil, v.Pause(caller)
	case model.OpVaultUnpause:
		return nil, v.Unpause(caller)

	case model.OpVaultSetAdmin:
		to, err := parseAddress("to", rec.To)
		if err != nil {
			return nil, err
		}
		return nil, v.SetAdmin(caller, to)

	case model.OpSetPerformanceFee:
		return nil, v.SetPerformanceFee(caller, rec.Value)
	case model.OpSetCallFee:
		return nil, v.SetCallFee(caller, rec.Value)
	case model.OpSetWithdrawFee:
		return nil, v.SetWithdrawFee(caller, rec.Value)
	default:
		return nil, v.SetWithdrawFeePeriod(caller, rec.Value)
	}
}

func harvestOutputs(res vault.HarvestResult) map[string]string {
	return map[string]string{
		"harvested":       model.AmountString(res.Harvested),
		"performance_fee": model.AmountString(res.PerformanceFee),
		"call_fee":        model.AmountString(res.CallFee),
		"restaked":        model.AmountString(res.Restaked),
	}
}
