package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "FARMER"

// newViper merges defaults, environment variables (FARMER_*), flags and an
// optional config file, in increasing order of precedence for flags.
func newViper(cfgFile string, flags *pflag.FlagSet, defaults map[string]interface{}) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("log-level", "info")
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

// ReplayConfig holds configuration for the replay command.
type ReplayConfig struct {
	Genesis           string
	Journal           string
	Out               string
	Checkpoint        string
	CheckpointEnabled bool
	BatchSize         int
	KeeperSchedule    string
	KeeperAddress     string
	PGDSN             string
	PGEnsureSchema    bool
	MetricsAddr       string
	MaxRetries        int
	RetryBackoff      time.Duration
	LogLevel          string
}

// LoadReplay merges config file, environment variables, and flags into ReplayConfig.
func LoadReplay(cfgFile string, flags *pflag.FlagSet) (ReplayConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"out":                "./data/results.jsonl",
		"checkpoint":         "./data/state.json",
		"checkpoint-enabled": true,
		"batch-size":         500,
		"pg-ensure-schema":   true,
		"max-retries":        5,
		"retry-backoff":      500 * time.Millisecond,
	})
	if err != nil {
		return ReplayConfig{}, err
	}

	return ReplayConfig{
		Genesis:           v.GetString("genesis"),
		Journal:           v.GetString("journal"),
		Out:               v.GetString("out"),
		Checkpoint:        v.GetString("checkpoint"),
		CheckpointEnabled: v.GetBool("checkpoint-enabled"),
		BatchSize:         v.GetInt("batch-size"),
		KeeperSchedule:    v.GetString("keeper-schedule"),
		KeeperAddress:     v.GetString("keeper-address"),
		PGDSN:             v.GetString("pg-dsn"),
		PGEnsureSchema:    v.GetBool("pg-ensure-schema"),
		MetricsAddr:       v.GetString("metrics-addr"),
		MaxRetries:        v.GetInt("max-retries"),
		RetryBackoff:      v.GetDuration("retry-backoff"),
		LogLevel:          v.GetString("log-level"),
	}, nil
}

// ScheduleConfig holds configuration for the schedule command.
type ScheduleConfig struct {
	Genesis           string
	StartTime         uint64
	SegmentLength     uint64
	EmissionPerSecond string
	From              string
	To                string
	Window            string
	Decimals          uint8
	LogLevel          string
}

// LoadSchedule merges config file, environment variables, and flags into ScheduleConfig.
func LoadSchedule(cfgFile string, flags *pflag.FlagSet) (ScheduleConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"window":   "24h",
		"decimals": 18,
	})
	if err != nil {
		return ScheduleConfig{}, err
	}

	return ScheduleConfig{
		Genesis:           v.GetString("genesis"),
		StartTime:         v.GetUint64("start-time"),
		SegmentLength:     v.GetUint64("segment-length"),
		EmissionPerSecond: v.GetString("emission-per-second"),
		From:              v.GetString("from"),
		To:                v.GetString("to"),
		Window:            v.GetString("window"),
		Decimals:          uint8(v.GetUint("decimals")),
		LogLevel:          v.GetString("log-level"),
	}, nil
}

// PendingConfig holds configuration for the pending command.
type PendingConfig struct {
	Genesis  string
	State    string
	Users    []string
	At       string
	RPCURL   string
	LogLevel string
}

// LoadPending merges config file, environment variables, and flags into PendingConfig.
func LoadPending(cfgFile string, flags *pflag.FlagSet) (PendingConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"state": "./data/state.json",
	})
	if err != nil {
		return PendingConfig{}, err
	}

	return PendingConfig{
		Genesis:  v.GetString("genesis"),
		State:    v.GetString("state"),
		Users:    getStringSlice(v, "user"),
		At:       v.GetString("at"),
		RPCURL:   v.GetString("rpc"),
		LogLevel: v.GetString("log-level"),
	}, nil
}

// SupplyConfig holds configuration for the supply command.
type SupplyConfig struct {
	RPCURL       string
	Token        string
	Holders      []string
	Block        uint64
	MaxRetries   int
	RetryBackoff time.Duration
	LogLevel     string
}

// LoadSupply merges config file, environment variables, and flags into SupplyConfig.
func LoadSupply(cfgFile string, flags *pflag.FlagSet) (SupplyConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"max-retries":   5,
		"retry-backoff": 500 * time.Millisecond,
	})
	if err != nil {
		return SupplyConfig{}, err
	}

	return SupplyConfig{
		RPCURL:       v.GetString("rpc"),
		Token:        v.GetString("token"),
		Holders:      getStringSlice(v, "holder"),
		Block:        v.GetUint64("block"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
		LogLevel:     v.GetString("log-level"),
	}, nil
}

// ParseTimestamp parses a timestamp value (unix seconds or RFC3339).
func ParseTimestamp(input string) (uint64, error) {
	if strings.TrimSpace(input) == "" {
		return 0, nil
	}

	if isNumeric(input) {
		val, err := strconv.ParseUint(input, 10, 64)
		if err != nil {
			return 0, err
		}
		return val, nil
	}

	tm, err := time.Parse(time.RFC3339, input)
	if err != nil {
		return 0, err
	}
	return uint64(tm.Unix()), nil
}

func isNumeric(input string) bool {
	for _, r := range input {
		if r < '0' || r > '9' {
			return false
		}
	}
	return input != ""
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
