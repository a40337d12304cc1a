package rpc

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
)

var (
	ErrNoClient      = errors.New("rpc: no client")
	ErrChainMismatch = errors.New("rpc: unexpected chain id")
)

// Client wraps an Ethereum RPC client
type Client struct {
	*ethclient.Client
	URL string
}

// ConnectResult holds the result of an RPC connection attempt
type ConnectResult struct {
	Client *Client
	Error  error
}

// Connect attempts to connect to an Ethereum RPC endpoint
func Connect(url string) ConnectResult {
	return ConnectWithTimeout(url, 8*time.Second)
}

// ConnectWithTimeout attempts to connect with a custom timeout
func ConnectWithTimeout(url string, timeout time.Duration) ConnectResult {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return ConnectResult{Client: nil, Error: err}
	}

	return ConnectResult{
		Client: &Client{
			Client: client,
			URL:    url,
		},
		Error: nil,
	}
}

// ChainInfo describes the chain behind an RPC endpoint
type ChainInfo struct {
	URL     string
	ChainID *big.Int
	Head    uint64
}

// ParseChainID accepts "0x43117" or decimal "274711"
func ParseChainID(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return hexutil.DecodeBig(strings.ToLower(s))
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("rpc: invalid chain id %q", s)
	}
	return v, nil
}

// VerifyChain checks that client serves the chain identified by want
func VerifyChain(ctx context.Context, client *Client, want string) (ChainInfo, error) {
	if client == nil || client.Client == nil {
		return ChainInfo{}, ErrNoClient
	}

	wantID, err := ParseChainID(want)
	if err != nil {
		return ChainInfo{}, err
	}

	id, err := client.ChainID(ctx)
	if err != nil {
		return ChainInfo{}, fmt.Errorf("rpc: chain id: %w", err)
	}
	info := ChainInfo{URL: client.URL, ChainID: id}
	if id.Cmp(wantID) != 0 {
		return info, fmt.Errorf("%w: got %s, want %s", ErrChainMismatch, hexutil.EncodeBig(id), hexutil.EncodeBig(wantID))
	}

	head, err := client.BlockNumber(ctx)
	if err != nil {
		return info, fmt.Errorf("rpc: block number: %w", err)
	}
	info.Head = head
	return info, nil
}

// CheckEndpoint dials url and verifies its chain id, closing the client
// afterwards
func CheckEndpoint(ctx context.Context, url, chainID string) (ChainInfo, error) {
	res := ConnectWithTimeout(url, 8*time.Second)
	if res.Error != nil {
		return ChainInfo{}, fmt.Errorf("rpc: dial %s: %w", url, res.Error)
	}
	defer res.Client.Close()
	return VerifyChain(ctx, res.Client, chainID)
}
