package model

// Operation names accepted in a replay journal.
const (
	OpAddPool              = "add_pool"
	OpSetPoolWeight        = "set_pool_weight"
	OpDeposit              = "deposit"
	OpWithdraw             = "withdraw"
	OpEnterStaking         = "enter_staking"
	OpLeaveStaking         = "leave_staking"
	OpEmergencyWithdraw    = "emergency_withdraw"
	OpSettle               = "settle"
	OpMassSettle           = "mass_settle"
	OpSetDev               = "set_dev"
	OpSetTreasury          = "set_treasury"
	OpBurn                 = "burn"
	OpTransfer             = "transfer"
	OpVaultDeposit         = "vault_deposit"
	OpVaultWithdraw        = "vault_withdraw"
	OpVaultWithdrawAll     = "vault_withdraw_all"
	OpVaultHarvest         = "vault_harvest"
	OpVaultEmergency       = "vault_emergency_withdraw"
	OpVaultPause           = "vault_pause"
	OpVaultUnpause         = "vault_unpause"
	OpVaultSetAdmin        = "vault_set_admin"
	OpSetPerformanceFee    = "set_performance_fee"
	OpSetCallFee           = "set_call_fee"
	OpSetWithdrawFee       = "set_withdraw_fee"
	OpSetWithdrawFeePeriod = "set_withdraw_fee_period"
)

// OpRecord is one journaled operation, applied at Timestamp by Caller.
type OpRecord struct {
	Seq       uint64 `json:"seq"`
	Timestamp uint64 `json:"ts"`
	Op        string `json:"op"`
	Caller    string `json:"caller"`
	Pool      uint64 `json:"pool"`
	Amount    string `json:"amount,omitempty"`
	Weight    uint64 `json:"weight,omitempty"`
	// Asset selects the pool by staked token for pool ops; it names the
	// token for add_pool and transfer.
	Asset     string `json:"asset,omitempty"`
	To        string `json:"to,omitempty"`
	Value     uint64 `json:"value,omitempty"`
}

// OpResult records the outcome of applying an OpRecord.
type OpResult struct {
	Seq       uint64            `json:"seq"`
	Timestamp uint64            `json:"ts"`
	Op        string            `json:"op"`
	Caller    string            `json:"caller"`
	OK        bool              `json:"ok"`
	Error     string            `json:"error,omitempty"`
	Outputs   map[string]string `json:"outputs,omitempty"`
	Keeper    bool              `json:"keeper,omitempty"`
}
