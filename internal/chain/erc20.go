package chain

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"farmLedger/internal/model"
)

// rewardTokenABIJSON covers a capped, burnable ERC20 reward token. maxSupply,
// totalMinted and totalBurned are optional on plain ERC20s.
const rewardTokenABIJSON = `[
  {"inputs": [], "name": "decimals", "outputs": [{"type": "uint8"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "symbol", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "name", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "totalSupply", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "maxSupply", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "totalMinted", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "totalBurned", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "account", "type": "address"}], "name": "balanceOf", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"}
]`

const symbolBytes32ABIJSON = `[
  {"inputs": [], "name": "symbol", "outputs": [{"type": "bytes32"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "name", "outputs": [{"type": "bytes32"}], "stateMutability": "view", "type": "function"}
]`

var (
	rewardTokenABI      abi.ABI
	rewardTokenABIOnce  sync.Once
	rewardTokenABIErr   error
	symbolBytes32ABI    abi.ABI
	symbolBytes32Once   sync.Once
	symbolBytes32ABIErr error
)

// RewardTokenABI returns the parsed reward token ABI.
func RewardTokenABI() (abi.ABI, error) {
	rewardTokenABIOnce.Do(func() {
		rewardTokenABI, rewardTokenABIErr = abi.JSON(strings.NewReader(rewardTokenABIJSON))
	})
	return rewardTokenABI, rewardTokenABIErr
}

func symbolBytes32Instance() (abi.ABI, error) {
	symbolBytes32Once.Do(func() {
		symbolBytes32ABI, symbolBytes32ABIErr = abi.JSON(strings.NewReader(symbolBytes32ABIJSON))
	})
	return symbolBytes32ABI, symbolBytes32ABIErr
}

// ContractCaller is the eth_call surface FetchSupply needs.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// FetchSupply reads the supply counters of token at block (nil for latest)
// and the balances of holders, keyed by their hex address.
func FetchSupply(ctx context.Context, caller ContractCaller, token common.Address, holders []common.Address, block *big.Int, logger *zap.Logger) (model.TokenSupply, error) {
	supply := model.TokenSupply{TokenMeta: model.TokenMeta{Address: token.Hex()}}
	if caller == nil {
		return supply, fmt.Errorf("chain client is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	parsed, err := RewardTokenABI()
	if err != nil {
		return supply, fmt.Errorf("parse reward token abi: %w", err)
	}
	bytes32ABI, err := symbolBytes32Instance()
	if err != nil {
		return supply, fmt.Errorf("parse bytes32 abi: %w", err)
	}

	call := func(parsed abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
		data, err := parsed.Pack(method, args...)
		if err != nil {
			return nil, fmt.Errorf("pack %s: %w", method, err)
		}
		resp, err := caller.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, block)
		if err != nil {
			return nil, fmt.Errorf("call %s: %w", method, err)
		}
		values, err := parsed.Unpack(method, resp)
		if err != nil {
			return nil, fmt.Errorf("unpack %s: %w", method, err)
		}
		if len(values) == 0 {
			return nil, fmt.Errorf("unpack %s: empty result", method)
		}
		return values, nil
	}
	amount := func(method string, args ...interface{}) (string, error) {
		values, err := call(parsed, method, args...)
		if err != nil {
			return "", err
		}
		v, err := asBigInt(values[0])
		if err != nil {
			return "", fmt.Errorf("%s: %w", method, err)
		}
		return v.String(), nil
	}

	values, err := call(parsed, "decimals")
	if err != nil {
		return supply, err
	}
	if supply.Decimals, err = asUint8(values[0]); err != nil {
		return supply, err
	}

	if values, err := call(parsed, "symbol"); err == nil {
		if symbol, ok := values[0].(string); ok {
			supply.Symbol = symbol
		}
	} else if values, err := call(bytes32ABI, "symbol"); err == nil {
		if symbol, ok := bytes32ToString(values[0]); ok {
			supply.Symbol = symbol
		}
	} else {
		logger.Debug("symbol call failed", zap.String("token", token.Hex()), zap.Error(err))
	}
	if values, err := call(parsed, "name"); err == nil {
		if name, ok := values[0].(string); ok {
			supply.Name = name
		}
	}

	if supply.TotalSupply, err = amount("totalSupply"); err != nil {
		return supply, err
	}
	for method, field := range map[string]*string{
		"maxSupply":   &supply.MaxSupply,
		"totalMinted": &supply.TotalMinted,
		"totalBurned": &supply.TotalBurned,
	} {
		v, err := amount(method)
		if err != nil {
			logger.Debug("optional supply call failed", zap.String("token", token.Hex()), zap.String("method", method), zap.Error(err))
			continue
		}
		*field = v
	}

	if len(holders) > 0 {
		supply.Balances = make(map[string]string, len(holders))
		for _, holder := range holders {
			v, err := amount("balanceOf", holder)
			if err != nil {
				return supply, fmt.Errorf("balance of %s: %w", holder.Hex(), err)
			}
			supply.Balances[holder.Hex()] = v
		}
	}

	return supply, nil
}

func bytes32ToString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case [32]byte:
		return string(bytes.TrimRight(v[:], "\x00")), true
	case []byte:
		return string(bytes.TrimRight(v, "\x00")), true
	default:
		return "", false
	}
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}

func asUint8(value interface{}) (uint8, error) {
	switch v := value.(type) {
	case uint8:
		return v, nil
	case *big.Int:
		return uint8(v.Uint64()), nil
	default:
		return 0, fmt.Errorf("unsupported uint8 type %T", value)
	}
}
