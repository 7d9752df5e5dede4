package model

// TokenMeta captures ERC20 metadata.
type TokenMeta struct {
	Address  string `json:"address"`
	Decimals uint8  `json:"decimals"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
}

// TokenSupply captures the supply counters of a capped token.
type TokenSupply struct {
	TokenMeta
	TotalSupply string            `json:"total_supply"`
	MaxSupply   string            `json:"max_supply,omitempty"`
	TotalMinted string            `json:"total_minted,omitempty"`
	TotalBurned string            `json:"total_burned,omitempty"`
	Balances    map[string]string `json:"balances,omitempty"`
	Timestamp   uint64            `json:"ts"`
	Seq         uint64            `json:"seq"`
}
