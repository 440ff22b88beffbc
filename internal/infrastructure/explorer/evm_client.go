package explorer

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/shopspring/decimal"

	"satotrack/internal/domain/entity"
)

// EVMClient reads an address's native balance and nonce straight from an
// EVM JSON-RPC node, bypassing the explorer API. Totals and token holdings
// are not available over plain RPC; snapshots built from this client are
// marked native-only so stored values for those fields are preserved.
type EVMClient struct {
	ethClient      *ethclient.Client
	netDef         entity.NetworkDefinition
	rpcCallTimeout time.Duration
}

// NewEVMClient connects to the network's primary RPC URL, falling back
// through the configured alternates.
func NewEVMClient(netDef entity.NetworkDefinition, connectionTimeout, rpcCallTimeout time.Duration) (*EVMClient, error) {
	if !netDef.IsEVM {
		return nil, fmt.Errorf("network %s is not EVM-compatible", netDef.Identifier)
	}
	rpcURLs := append([]string{netDef.PrimaryRPCURL}, netDef.FallbackRPCURLs...)
	var lastErr error

	for _, rpcURL := range rpcURLs {
		ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
		client, err := ethclient.DialContext(ctx, rpcURL)
		cancel()

		if err == nil {
			return &EVMClient{ethClient: client, netDef: netDef, rpcCallTimeout: rpcCallTimeout}, nil
		}
		lastErr = fmt.Errorf("failed to connect to RPC %s: %w", rpcURL, err)
	}

	return nil, fmt.Errorf("all RPC connection attempts failed for network %s: %w", netDef.Name, lastErr)
}

// Definition returns the network definition for this client.
func (c *EVMClient) Definition() entity.NetworkDefinition {
	return c.netDef
}

// FetchBalance retrieves the native balance and transaction count in a
// single JSON-RPC batch call.
func (c *EVMClient) FetchBalance(ctx context.Context, address string) (decimal.Decimal, int64, error) {
	var (
		rawBalance *hexutil.Big
		rawNonce   hexutil.Uint64
	)
	batch := []rpc.BatchElem{
		{
			Method: "eth_getBalance",
			Args:   []interface{}{common.HexToAddress(address), "latest"},
			Result: &rawBalance,
		},
		{
			Method: "eth_getTransactionCount",
			Args:   []interface{}{common.HexToAddress(address), "latest"},
			Result: &rawNonce,
		},
	}

	rpcCallCtx, cancel := context.WithTimeout(ctx, c.rpcCallTimeout)
	defer cancel()

	if err := c.ethClient.Client().BatchCallContext(rpcCallCtx, batch); err != nil {
		return decimal.Zero, 0, fmt.Errorf("RPC batch call failed: %w", err)
	}
	for _, elem := range batch {
		if elem.Error != nil {
			return decimal.Zero, 0, fmt.Errorf("%s failed for %s: %w", elem.Method, address, elem.Error)
		}
	}
	if rawBalance == nil {
		return decimal.Zero, 0, fmt.Errorf("eth_getBalance returned no result for %s", address)
	}

	balance := decimal.NewFromBigInt((*big.Int)(rawBalance), -c.netDef.Decimals)
	return balance, int64(rawNonce), nil
}

// Close releases the underlying RPC connection.
func (c *EVMClient) Close() {
	c.ethClient.Close()
}
