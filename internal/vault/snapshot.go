package vault

import (
	"bytes"
	"fmt"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
)

// UserState is the serialisable form of a User.
type UserState struct {
	User                  common.Address `json:"user"`
	Shares                *big.Int       `json:"shares"`
	LastDepositedTime     uint64         `json:"last_deposited_time"`
	TokenAtLastUserAction *big.Int       `json:"token_at_last_user_action"`
	LastUserActionTime    uint64         `json:"last_user_action_time"`
}

// Snapshot is the serialisable state of a Vault.
type Snapshot struct {
	Owner             common.Address `json:"owner"`
	Admin             common.Address `json:"admin"`
	Fees              Fees           `json:"fees"`
	Paused            bool           `json:"paused"`
	TotalShares       *big.Int       `json:"total_shares"`
	LastHarvestedTime uint64         `json:"last_harvested_time"`
	Users             []UserState    `json:"users"`
}

func (v *Vault) Snapshot() Snapshot {
	users := make([]UserState, 0, len(v.users))
	for addr := range v.users {
		u := v.UserInfo(addr)
		users = append(users, UserState{
			User:                  addr,
			Shares:                u.Shares,
			LastDepositedTime:     u.LastDepositedTime,
			TokenAtLastUserAction: u.TokenAtLastUserAction,
			LastUserActionTime:    u.LastUserActionTime,
		})
	}
	sort.Slice(users, func(i, j int) bool {
		return bytes.Compare(users[i].User[:], users[j].User[:]) < 0
	})
	return Snapshot{
		Owner:             v.owner,
		Admin:             v.admin,
		Fees:              v.fees,
		Paused:            v.paused,
		TotalShares:       new(big.Int).Set(v.totalShares),
		LastHarvestedTime: v.lastHarvestedTime,
		Users:             users,
	}
}

// Restore replaces the vault's share table and parameters with s.
func (v *Vault) Restore(s Snapshot) error {
	if err := s.Fees.Validate(); err != nil {
		return err
	}
	if s.TotalShares == nil {
		return fmt.Errorf("vault snapshot missing total shares")
	}
	users := make(map[common.Address]*User, len(s.Users))
	sum := big.NewInt(0)
	for _, us := range s.Users {
		if us.Shares == nil || us.TokenAtLastUserAction == nil {
			return fmt.Errorf("vault snapshot user %s incomplete", us.User.Hex())
		}
		users[us.User] = &User{
			Shares:                new(big.Int).Set(us.Shares),
			LastDepositedTime:     us.LastDepositedTime,
			TokenAtLastUserAction: new(big.Int).Set(us.TokenAtLastUserAction),
			LastUserActionTime:    us.LastUserActionTime,
		}
		sum.Add(sum, us.Shares)
	}
	if sum.Cmp(s.TotalShares) != 0 {
		return fmt.Errorf("vault snapshot shares %s != total %s", sum, s.TotalShares)
	}
	v.owner = s.Owner
	v.admin = s.Admin
	v.fees = s.Fees
	v.paused = s.Paused
	v.totalShares = new(big.Int).Set(s.TotalShares)
	v.lastHarvestedTime = s.LastHarvestedTime
	v.users = users
	return nil
}
