package replay

import (
	"encoding/json"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"farmLedger/internal/farm"
	"farmLedger/internal/genesis"
	"farmLedger/internal/model"
	"farmLedger/internal/token"
)

var (
	bob      = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	owner    = common.HexToAddress("0x0000000000000000000000000000000000000001")
	devAddr  = common.HexToAddress("0x0000000000000000000000000000000000000d01")
	treasury = common.HexToAddress("0x0000000000000000000000000000000000000d02")
	lpAddr   = common.HexToAddress("0x0000000000000000000000000000000000003000")
	keeper   = common.HexToAddress("0x000000000000000000000000000000000000cee9")
)

func tokens(t *testing.T, whole string) *big.Int {
	t.Helper()
	v, ok := new(big.Int).SetString(whole, 10)
	require.True(t, ok)
	return v.Mul(v, new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

func loadGenesis(t *testing.T) *genesis.Genesis {
	t.Helper()
	g, err := genesis.Load("testdata/genesis.yaml")
	require.NoError(t, err)
	return g
}

func newEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(loadGenesis(t), nil, nil)
	require.NoError(t, err)
	return e
}

func apply(t *testing.T, e *Engine, rec model.OpRecord) model.OpResult {
	t.Helper()
	res, err := e.Apply(rec)
	require.NoError(t, err)
	return res
}

func TestNewEngineFromGenesis(t *testing.T) {
	e := newEngine(t)

	require.Equal(t, uint64(1), e.Clock.Now())
	require.Equal(t, 2, e.Farm.PoolLength())
	require.Equal(t, uint64(125), e.Farm.TotalAllocWeight())
	p0, err := e.Farm.PoolInfo(0)
	require.NoError(t, err)
	require.Equal(t, uint64(25), p0.AllocWeight)

	lp, ok := e.Token(lpAddr)
	require.True(t, ok)
	require.Equal(t, 0, tokens(t, "1000").Cmp(lp.BalanceOf(bob)))
	require.Equal(t, 0, tokens(t, "160000000").Cmp(e.Reward.BalanceOf(treasury)))
	require.Equal(t, 0, tokens(t, "2000000000").Cmp(e.Reward.MaxSupply()))
	require.Nil(t, e.Receipt.MaxSupply())
	require.Len(t, e.Tokens(), 3)

	require.NotNil(t, e.Vault)
	require.Equal(t, uint64(50), e.Vault.Fees().Call)
	require.Equal(t, uint64(200), e.Vault.Fees().Performance)
}

func TestNewEngineRejectsOversizedBalance(t *testing.T) {
	g := loadGenesis(t)
	g.Balances = append(g.Balances, genesis.Balance{
		Token:  g.Reward.Address,
		Holder: bob.Hex(),
		Amount: tokens(t, "1900000000").String(),
	})
	_, err := NewEngine(g, nil, nil)
	require.Error(t, err)
}

func TestApplyFarmOps(t *testing.T) {
	e := newEngine(t)

	res := apply(t, e, model.OpRecord{Seq: 1, Timestamp: 100, Op: model.OpDeposit, Caller: bob.Hex(), Pool: 1, Amount: tokens(t, "10").String()})
	require.True(t, res.OK, res.Error)
	require.Equal(t, "0", res.Outputs["reward_paid"])

	// 100 seconds at multiplier 9, pool 1 holds 100 of 125 weight.
	res = apply(t, e, model.OpRecord{Seq: 2, Timestamp: 300, Op: model.OpWithdraw, Caller: bob.Hex(), Pool: 1, Amount: tokens(t, "10").String()})
	require.True(t, res.OK, res.Error)
	require.Equal(t, tokens(t, "720").String(), res.Outputs["reward_paid"])

	require.Equal(t, 0, tokens(t, "720").Cmp(e.Reward.BalanceOf(bob)))
	require.Equal(t, 0, tokens(t, "90").Cmp(e.Reward.BalanceOf(devAddr)))
	require.Equal(t, 0, tokens(t, "160000018").Cmp(e.Reward.BalanceOf(treasury)))
	lp, _ := e.Token(lpAddr)
	require.Equal(t, 0, tokens(t, "1000").Cmp(lp.BalanceOf(bob)))

	res = apply(t, e, model.OpRecord{Seq: 3, Timestamp: 300, Op: model.OpWithdraw, Caller: bob.Hex(), Pool: 1, Amount: "1"})
	require.False(t, res.OK)
	require.Contains(t, res.Error, "insufficient stake")

	res = apply(t, e, model.OpRecord{Seq: 4, Timestamp: 310, Op: "teleport", Caller: bob.Hex()})
	require.False(t, res.OK)
	require.Contains(t, res.Error, "unknown op")

	res = apply(t, e, model.OpRecord{Seq: 5, Timestamp: 310, Op: model.OpDeposit, Caller: "nope", Pool: 1})
	require.False(t, res.OK)

	require.Equal(t, uint64(5), e.LastSeq)
	require.Equal(t, uint64(310), e.Clock.Now())
}

func TestApplySelectsPoolByAsset(t *testing.T) {
	e := newEngine(t)

	res := apply(t, e, model.OpRecord{Seq: 1, Timestamp: 100, Op: model.OpDeposit, Caller: bob.Hex(), Asset: lpAddr.Hex(), Amount: tokens(t, "10").String()})
	require.True(t, res.OK, res.Error)
	require.Equal(t, 0, tokens(t, "10").Cmp(e.Farm.UserInfo(1, bob).Amount))

	res = apply(t, e, model.OpRecord{Seq: 2, Timestamp: 300, Op: model.OpSettle, Caller: bob.Hex(), Asset: lpAddr.Hex()})
	require.True(t, res.OK, res.Error)
	require.Equal(t, 0, tokens(t, "90").Cmp(e.Reward.BalanceOf(devAddr)))
	pending, err := e.Farm.PendingReward(1, bob)
	require.NoError(t, err)
	require.Equal(t, 0, tokens(t, "720").Cmp(pending))

	res = apply(t, e, model.OpRecord{Seq: 3, Timestamp: 300, Op: model.OpEmergencyWithdraw, Caller: bob.Hex(), Asset: "0x0000000000000000000000000000000000004000"})
	require.False(t, res.OK)
	require.Contains(t, res.Error, "pool not found")
}

func TestApplyRejectsClockReversal(t *testing.T) {
	e := newEngine(t)
	apply(t, e, model.OpRecord{Seq: 1, Timestamp: 500, Op: model.OpMassSettle, Caller: bob.Hex()})

	_, err := e.Apply(model.OpRecord{Seq: 2, Timestamp: 499, Op: model.OpMassSettle, Caller: bob.Hex()})
	require.True(t, errors.Is(err, ErrClockReversed))
	require.Equal(t, uint64(1), e.LastSeq)
}

func TestApplyAdminOps(t *testing.T) {
	e := newEngine(t)

	res := apply(t, e, model.OpRecord{Seq: 1, Timestamp: 10, Op: model.OpAddPool, Caller: bob.Hex(), Asset: e.Receipt.Address().Hex(), Weight: 10})
	require.False(t, res.OK)
	require.Contains(t, res.Error, "unauthorized")

	res = apply(t, e, model.OpRecord{Seq: 2, Timestamp: 10, Op: model.OpAddPool, Caller: owner.Hex(), Asset: lpAddr.Hex(), Weight: 10})
	require.False(t, res.OK)
	require.Contains(t, res.Error, "already exists")

	res = apply(t, e, model.OpRecord{Seq: 3, Timestamp: 10, Op: model.OpSetPoolWeight, Caller: owner.Hex(), Pool: 1, Weight: 200})
	require.True(t, res.OK, res.Error)
	require.Equal(t, uint64(250), e.Farm.TotalAllocWeight())

	res = apply(t, e, model.OpRecord{Seq: 4, Timestamp: 10, Op: model.OpSetDev, Caller: devAddr.Hex(), To: bob.Hex()})
	require.True(t, res.OK, res.Error)
	require.Equal(t, bob, e.Farm.Dev())

	res = apply(t, e, model.OpRecord{Seq: 5, Timestamp: 10, Op: model.OpTransfer, Caller: treasury.Hex(), To: bob.Hex(), Amount: tokens(t, "5").String()})
	require.True(t, res.OK, res.Error)
	res = apply(t, e, model.OpRecord{Seq: 6, Timestamp: 10, Op: model.OpBurn, Caller: bob.Hex(), Amount: tokens(t, "2").String()})
	require.True(t, res.OK, res.Error)
	require.Equal(t, 0, tokens(t, "3").Cmp(e.Reward.BalanceOf(bob)))
	require.Equal(t, 0, tokens(t, "2").Cmp(e.Reward.TotalBurned()))

	res = apply(t, e, model.OpRecord{Seq: 7, Timestamp: 10, Op: model.OpSetCallFee, Caller: owner.Hex(), Value: 10})
	require.False(t, res.OK)
	admin := e.Vault.Admin()
	res = apply(t, e, model.OpRecord{Seq: 8, Timestamp: 10, Op: model.OpSetCallFee, Caller: admin.Hex(), Value: 10})
	require.True(t, res.OK, res.Error)
	require.Equal(t, uint64(10), e.Vault.Fees().Call)
}

func TestApplyVaultOps(t *testing.T) {
	e := newEngine(t)
	require.NoError(t, e.Reward.Transfer(treasury, bob, tokens(t, "100")))

	res := apply(t, e, model.OpRecord{Seq: 1, Timestamp: 100, Op: model.OpVaultDeposit, Caller: bob.Hex(), Amount: tokens(t, "100").String()})
	require.True(t, res.OK, res.Error)
	require.Equal(t, tokens(t, "100").String(), res.Outputs["shares"])
	require.Equal(t, 0, tokens(t, "100").Cmp(e.Farm.UserInfo(0, e.Vault.Account()).Amount))

	res, err := e.Harvest(150, keeper)
	require.NoError(t, err)
	require.True(t, res.Keeper)
	require.True(t, res.OK, res.Error)
	require.Equal(t, "0", res.Outputs["harvested"])
	require.Equal(t, uint64(1), res.Seq)

	res = apply(t, e, model.OpRecord{Seq: 2, Timestamp: 150, Op: model.OpVaultWithdrawAll, Caller: bob.Hex()})
	require.True(t, res.OK, res.Error)
	// Inside the withdraw fee window: 0.5% is burned.
	require.Equal(t, "99500000000000000000", res.Outputs["amount"])
}

func TestApplyVaultOpsWithoutVault(t *testing.T) {
	g := loadGenesis(t)
	g.Vault = nil
	e, err := NewEngine(g, nil, nil)
	require.NoError(t, err)

	res := apply(t, e, model.OpRecord{Seq: 1, Timestamp: 10, Op: model.OpVaultHarvest, Caller: bob.Hex()})
	require.False(t, res.OK)
	require.Contains(t, res.Error, ErrNoVault.Error())
}

// shortReceipt mints only half of what it is asked for.
type shortReceipt struct {
	*token.Ledger
}

func (r shortReceipt) Mint(to common.Address, amount *big.Int) (*big.Int, error) {
	return r.Ledger.Mint(to, new(big.Int).Quo(amount, big.NewInt(2)))
}

func TestApplyRollsBackFailedOp(t *testing.T) {
	g := loadGenesis(t)
	g.Vault = nil
	e, err := NewEngine(g, nil, nil)
	require.NoError(t, err)

	p0, err := e.Farm.PoolInfo(0)
	require.NoError(t, err)
	e.Farm, err = farm.New(farm.Config{
		Schedule:      e.Farm.Schedule(),
		RewardToken:   e.Reward,
		ReceiptToken:  shortReceipt{e.Receipt},
		Account:       e.Farm.Account(),
		RewardBucket:  e.Farm.RewardBucket(),
		Owner:         e.Farm.Owner(),
		Dev:           e.Farm.Dev(),
		Treasury:      e.Farm.Treasury(),
		StakingWeight: p0.AllocWeight,
		Clock:         e.Clock,
	})
	require.NoError(t, err)

	before := e.Snapshot()
	res := apply(t, e, model.OpRecord{Seq: 1, Timestamp: 100, Op: model.OpEnterStaking, Caller: treasury.Hex(), Amount: tokens(t, "10").String()})
	require.False(t, res.OK)
	require.Contains(t, res.Error, "minted")

	after := e.Snapshot()
	wantTokens, err := json.Marshal(before.Tokens)
	require.NoError(t, err)
	gotTokens, err := json.Marshal(after.Tokens)
	require.NoError(t, err)
	require.JSONEq(t, string(wantTokens), string(gotTokens))
	wantFarm, err := json.Marshal(before.Farm)
	require.NoError(t, err)
	gotFarm, err := json.Marshal(after.Farm)
	require.NoError(t, err)
	require.JSONEq(t, string(wantFarm), string(gotFarm))

	require.Equal(t, 0, tokens(t, "160000000").Cmp(e.Reward.BalanceOf(treasury)))
	require.True(t, e.Farm.UserInfo(0, treasury).Amount.Sign() == 0)
	require.Equal(t, uint64(1), e.LastSeq)
	require.Equal(t, uint64(100), e.Clock.Now())
}

func TestSnapshotRestore(t *testing.T) {
	e := newEngine(t)
	apply(t, e, model.OpRecord{Seq: 1, Timestamp: 100, Op: model.OpDeposit, Caller: bob.Hex(), Pool: 1, Amount: tokens(t, "10").String()})
	apply(t, e, model.OpRecord{Seq: 2, Timestamp: 250, Op: model.OpMassSettle, Caller: bob.Hex()})

	data, err := json.Marshal(e.Snapshot())
	require.NoError(t, err)
	var state State
	require.NoError(t, json.Unmarshal(data, &state))

	restored := newEngine(t)
	require.NoError(t, restored.Restore(state))
	again, err := json.Marshal(restored.Snapshot())
	require.NoError(t, err)
	require.JSONEq(t, string(data), string(again))

	require.Equal(t, uint64(2), restored.LastSeq)
	require.Equal(t, uint64(250), restored.Clock.Now())

	want, err := e.Farm.PendingReward(1, bob)
	require.NoError(t, err)
	got, err := restored.Farm.PendingReward(1, bob)
	require.NoError(t, err)
	require.Equal(t, 0, want.Cmp(got))

	g := loadGenesis(t)
	g.Vault = nil
	bare, err := NewEngine(g, nil, nil)
	require.NoError(t, err)
	require.Error(t, bare.Restore(state))
}

func TestReportingRows(t *testing.T) {
	e := newEngine(t)
	apply(t, e, model.OpRecord{Seq: 7, Timestamp: 100, Op: model.OpDeposit, Caller: bob.Hex(), Pool: 1, Amount: tokens(t, "10").String()})
	apply(t, e, model.OpRecord{Seq: 8, Timestamp: 300, Op: model.OpMassSettle, Caller: bob.Hex()})

	pools := e.PoolRows()
	require.Len(t, pools, 2)
	require.Equal(t, lpAddr.Hex(), pools[1].Asset)
	require.Equal(t, tokens(t, "10").String(), pools[1].TotalStaked)
	require.Equal(t, uint64(8), pools[1].Seq)

	positions, err := e.PositionRows()
	require.NoError(t, err)
	require.Len(t, positions, 1)
	require.Equal(t, tokens(t, "720").String(), positions[0].Pending)

	require.Empty(t, e.VaultRows())

	supply := e.SupplyRow()
	require.Equal(t, "WIGO", supply.Symbol)
	require.Equal(t, tokens(t, "90").String(), supply.Balances["dev"])
	require.Equal(t, tokens(t, "720").String(), supply.Balances["bucket"])
	require.Equal(t, tokens(t, "160000828").String(), supply.TotalMinted)
}
