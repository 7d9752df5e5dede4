package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"farmLedger/internal/model"
)

//go:embed schema.sql
var schema string

// Store persists farm reporting snapshots to Postgres.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the reporting tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// UpsertPools inserts or updates pool rows.
func (s *Store) UpsertPools(ctx context.Context, pools []model.PoolSnapshot) error {
	if len(pools) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, p := range pools {
		batch.Queue(`
			INSERT INTO farm_pools (
				pool_id, asset, alloc_weight, last_reward_time, acc_reward_per_share, total_staked, seq, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, now())
			ON CONFLICT (pool_id)
			DO UPDATE SET
				alloc_weight = EXCLUDED.alloc_weight,
				last_reward_time = EXCLUDED.last_reward_time,
				acc_reward_per_share = EXCLUDED.acc_reward_per_share,
				total_staked = EXCLUDED.total_staked,
				seq = EXCLUDED.seq,
				updated_at = now()
			WHERE farm_pools.seq <= EXCLUDED.seq
		`,
			int64(p.PoolID),
			p.Asset,
			int64(p.AllocWeight),
			int64(p.LastRewardTime),
			p.AccRewardPerShare,
			p.TotalStaked,
			int64(p.Seq),
		)
	}
	return s.sendBatch(ctx, batch, len(pools))
}

// UpsertPositions inserts or updates position rows.
func (s *Store) UpsertPositions(ctx context.Context, positions []model.PositionSnapshot) error {
	if len(positions) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, p := range positions {
		batch.Queue(`
			INSERT INTO farm_positions (
				pool_id, user_address, amount, reward_debt, pending, seq, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, now())
			ON CONFLICT (pool_id, user_address)
			DO UPDATE SET
				amount = EXCLUDED.amount,
				reward_debt = EXCLUDED.reward_debt,
				pending = EXCLUDED.pending,
				seq = EXCLUDED.seq,
				updated_at = now()
			WHERE farm_positions.seq <= EXCLUDED.seq
		`,
			int64(p.PoolID),
			p.User,
			p.Amount,
			p.RewardDebt,
			p.Pending,
			int64(p.Seq),
		)
	}
	return s.sendBatch(ctx, batch, len(positions))
}

// UpsertVaultUsers inserts or updates vault share holder rows.
func (s *Store) UpsertVaultUsers(ctx context.Context, users []model.VaultUserSnapshot) error {
	if len(users) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, u := range users {
		batch.Queue(`
			INSERT INTO vault_users (
				user_address, shares, last_deposited_time, token_at_last_user_action, last_user_action_time, seq, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, now())
			ON CONFLICT (user_address)
			DO UPDATE SET
				shares = EXCLUDED.shares,
				last_deposited_time = EXCLUDED.last_deposited_time,
				token_at_last_user_action = EXCLUDED.token_at_last_user_action,
				last_user_action_time = EXCLUDED.last_user_action_time,
				seq = EXCLUDED.seq,
				updated_at = now()
			WHERE vault_users.seq <= EXCLUDED.seq
		`,
			u.User,
			u.Shares,
			int64(u.LastDepositedTime),
			u.TokenAtLastUserAction,
			int64(u.LastUserActionTime),
			int64(u.Seq),
		)
	}
	return s.sendBatch(ctx, batch, len(users))
}

// UpsertSupply inserts or updates a token's supply row.
func (s *Store) UpsertSupply(ctx context.Context, supply model.TokenSupply) error {
	if supply.Address == "" {
		return fmt.Errorf("token address required")
	}
	balances := supply.Balances
	if balances == nil {
		balances = map[string]string{}
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO token_supply (
			token_address, symbol, decimals, total_supply, max_supply, total_minted, total_burned, balances, ts, seq, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
		ON CONFLICT (token_address)
		DO UPDATE SET
			symbol = EXCLUDED.symbol,
			decimals = EXCLUDED.decimals,
			total_supply = EXCLUDED.total_supply,
			max_supply = EXCLUDED.max_supply,
			total_minted = EXCLUDED.total_minted,
			total_burned = EXCLUDED.total_burned,
			balances = EXCLUDED.balances,
			ts = EXCLUDED.ts,
			seq = EXCLUDED.seq,
			updated_at = now()
	`,
		supply.Address,
		supply.Symbol,
		int16(supply.Decimals),
		supply.TotalSupply,
		nullable(supply.MaxSupply),
		nullable(supply.TotalMinted),
		nullable(supply.TotalBurned),
		balances,
		int64(supply.Timestamp),
		int64(supply.Seq),
	)
	return err
}

// LoadProgress returns the last replayed seq and timestamp for a name.
func (s *Store) LoadProgress(ctx context.Context, name string) (uint64, uint64, bool, error) {
	if name == "" {
		return 0, 0, false, fmt.Errorf("state name required")
	}
	var seq, ts int64
	row := s.pool.QueryRow(ctx, `SELECT last_seq, last_ts FROM replay_state WHERE name=$1`, name)
	if err := row.Scan(&seq, &ts); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, 0, false, nil
		}
		return 0, 0, false, err
	}
	return uint64(seq), uint64(ts), true, nil
}

// SaveProgress upserts the last replayed seq and timestamp for a name.
func (s *Store) SaveProgress(ctx context.Context, name string, seq, ts uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO replay_state (name, last_seq, last_ts, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (name) DO UPDATE
		SET last_seq = EXCLUDED.last_seq, last_ts = EXCLUDED.last_ts, updated_at = now()
	`, name, int64(seq), int64(ts))
	return err
}

func (s *Store) sendBatch(ctx context.Context, batch *pgx.Batch, n int) error {
	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < n; i++ {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func nullable(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
