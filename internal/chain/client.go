package chain

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// BlockTime pairs a block number with its timestamp.
type BlockTime struct {
	Number    uint64
	Timestamp uint64
}

// Client reads block times and token state over JSON-RPC.
type Client struct {
	rpcClient *rpc.Client
	ethClient *ethclient.Client

	mu      sync.RWMutex
	tsCache map[uint64]uint64
}

func NewClient(ctx context.Context, rpcURL string) (*Client, error) {
	if rpcURL == "" {
		return nil, fmt.Errorf("rpc url is required")
	}
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}

	return &Client{
		rpcClient: rpcClient,
		ethClient: ethclient.NewClient(rpcClient),
		tsCache:   make(map[uint64]uint64),
	}, nil
}

func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

// Head returns the latest block and its timestamp, the clock source for
// evaluating pending rewards "now".
func (c *Client) Head(ctx context.Context) (BlockTime, error) {
	return c.fetch(ctx, nil)
}

// BlockTime returns the timestamp of block number. Results are cached.
func (c *Client) BlockTime(ctx context.Context, number uint64) (BlockTime, error) {
	c.mu.RLock()
	ts, ok := c.tsCache[number]
	c.mu.RUnlock()
	if ok {
		return BlockTime{Number: number, Timestamp: ts}, nil
	}
	return c.fetch(ctx, new(big.Int).SetUint64(number))
}

func (c *Client) fetch(ctx context.Context, number *big.Int) (BlockTime, error) {
	header, err := c.ethClient.HeaderByNumber(ctx, number)
	if err != nil {
		return BlockTime{}, err
	}
	bt := BlockTime{Number: header.Number.Uint64(), Timestamp: header.Time}

	c.mu.Lock()
	c.tsCache[bt.Number] = bt.Timestamp
	c.mu.Unlock()
	return bt, nil
}

// CallContract performs an eth_call; it satisfies ContractCaller.
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return c.ethClient.CallContract(ctx, msg, blockNumber)
}
