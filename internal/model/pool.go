package model

// PoolSnapshot is the persisted state of one farm pool.
type PoolSnapshot struct {
	PoolID            uint64 `json:"pool_id"`
	Asset             string `json:"asset"`
	AllocWeight       uint64 `json:"alloc_weight"`
	LastRewardTime    uint64 `json:"last_reward_time"`
	AccRewardPerShare string `json:"acc_reward_per_share"`
	TotalStaked       string `json:"total_staked"`
	Seq               uint64 `json:"seq"`
}

// PositionSnapshot is the persisted state of one user position.
type PositionSnapshot struct {
	PoolID     uint64 `json:"pool_id"`
	User       string `json:"user"`
	Amount     string `json:"amount"`
	RewardDebt string `json:"reward_debt"`
	Pending    string `json:"pending"`
	Seq        uint64 `json:"seq"`
}

// VaultUserSnapshot is the persisted state of one vault share holder.
type VaultUserSnapshot struct {
	User                  string `json:"user"`
	Shares                string `json:"shares"`
	LastDepositedTime     uint64 `json:"last_deposited_time"`
	TokenAtLastUserAction string `json:"token_at_last_user_action"`
	LastUserActionTime    uint64 `json:"last_user_action_time"`
	Seq                   uint64 `json:"seq"`
}
