package replay

import "farmLedger/internal/model"

func buildResult(rec model.OpRecord, outputs map[string]string, err error) model.OpResult {
	res := model.OpResult{
		Seq:       rec.Seq,
		Timestamp: rec.Timestamp,
		Op:        rec.Op,
		Caller:    rec.Caller,
		OK:        err == nil,
		Outputs:   outputs,
	}
	if err != nil {
		res.Error = err.Error()
	}
	return res
}

// PoolRows returns one row per pool tagged with the engine's last sequence.
func (e *Engine) PoolRows() []model.PoolSnapshot {
	snap := e.Farm.Snapshot()
	rows := make([]model.PoolSnapshot, 0, len(snap.Pools))
	for _, p := range snap.Pools {
		rows = append(rows, model.PoolSnapshot{
			PoolID:            p.ID,
			Asset:             p.Asset.Hex(),
			AllocWeight:       p.AllocWeight,
			LastRewardTime:    p.LastRewardTime,
			AccRewardPerShare: model.AmountString(p.AccRewardPerShare),
			TotalStaked:       model.AmountString(p.TotalStaked),
			Seq:               e.LastSeq,
		})
	}
	return rows
}

// PositionRows returns one row per position with its pending reward at the
// current clock.
func (e *Engine) PositionRows() ([]model.PositionSnapshot, error) {
	snap := e.Farm.Snapshot()
	rows := make([]model.PositionSnapshot, 0, len(snap.Positions))
	for _, p := range snap.Positions {
		pending, err := e.Farm.PendingReward(p.PoolID, p.User)
		if err != nil {
			return nil, err
		}
		rows = append(rows, model.PositionSnapshot{
			PoolID:     p.PoolID,
			User:       p.User.Hex(),
			Amount:     model.AmountString(p.Amount),
			RewardDebt: model.AmountString(p.RewardDebt),
			Pending:    model.AmountString(pending),
			Seq:        e.LastSeq,
		})
	}
	return rows, nil
}

// VaultRows returns one row per vault share holder, or nil without a vault.
func (e *Engine) VaultRows() []model.VaultUserSnapshot {
	if e.Vault == nil {
		return nil
	}
	snap := e.Vault.Snapshot()
	rows := make([]model.VaultUserSnapshot, 0, len(snap.Users))
	for _, u := range snap.Users {
		rows = append(rows, model.VaultUserSnapshot{
			User:                  u.User.Hex(),
			Shares:                model.AmountString(u.Shares),
			LastDepositedTime:     u.LastDepositedTime,
			TokenAtLastUserAction: model.AmountString(u.TokenAtLastUserAction),
			LastUserActionTime:    u.LastUserActionTime,
			Seq:                   e.LastSeq,
		})
	}
	return rows
}

// SupplyRow reports the reward token's supply counters.
func (e *Engine) SupplyRow() model.TokenSupply {
	row := model.TokenSupply{
		TokenMeta: model.TokenMeta{
			Address:  e.Reward.Address().Hex(),
			Decimals: e.Reward.Decimals(),
			Symbol:   e.Reward.Symbol(),
		},
		TotalSupply: model.AmountString(e.Reward.TotalSupply()),
		TotalMinted: model.AmountString(e.Reward.TotalMinted()),
		TotalBurned: model.AmountString(e.Reward.TotalBurned()),
		Balances: map[string]string{
			"dev":      model.AmountString(e.Reward.BalanceOf(e.Farm.Dev())),
			"treasury": model.AmountString(e.Reward.BalanceOf(e.Farm.Treasury())),
			"bucket":   model.AmountString(e.Reward.BalanceOf(e.Farm.RewardBucket())),
		},
		Timestamp: e.Clock.Now(),
		Seq:       e.LastSeq,
	}
	if capped := e.Reward.MaxSupply(); capped != nil {
		row.MaxSupply = capped.String()
	}
	return row
}
