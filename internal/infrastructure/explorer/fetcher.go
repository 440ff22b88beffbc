package explorer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"satotrack/internal/app/port"
	"satotrack/internal/domain/entity"
)

// Compile-time check: *Fetcher must satisfy port.BalanceFetcher.
var _ port.BalanceFetcher = (*Fetcher)(nil)

// Fetcher routes balance requests: EVM networks optionally go straight to
// JSON-RPC, everything else goes through the explorer API. RPC clients are
// cached per network to avoid reconnecting on every refresh.
type Fetcher struct {
	explorer   *HTTPClient
	preferRPC  bool
	connectTO  time.Duration
	callTO     time.Duration
	logger     *zap.Logger
	mu         sync.Mutex
	rpcClients map[entity.Network]*EVMClient
}

// NewFetcher creates the routing fetcher.
func NewFetcher(explorerClient *HTTPClient, preferDirectEVM bool, connectionTimeout, callTimeout time.Duration, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		explorer:   explorerClient,
		preferRPC:  preferDirectEVM,
		connectTO:  connectionTimeout,
		callTO:     callTimeout,
		logger:     logger.Named("Fetcher"),
		rpcClients: make(map[entity.Network]*EVMClient),
	}
}

// FetchBalance implements port.BalanceFetcher.
func (f *Fetcher) FetchBalance(ctx context.Context, address string, network entity.Network) (*port.BalanceSnapshot, error) {
	def, ok := network.Definition()
	if !ok {
		return nil, fmt.Errorf("unknown network %q", network)
	}

	if f.preferRPC && def.IsEVM {
		return f.fetchViaRPC(ctx, address, def)
	}
	return f.explorer.FetchBalance(ctx, address, network)
}

func (f *Fetcher) fetchViaRPC(ctx context.Context, address string, def entity.NetworkDefinition) (*port.BalanceSnapshot, error) {
	client, err := f.clientFor(def)
	if err != nil {
		return nil, err
	}

	balance, txCount, err := client.FetchBalance(ctx, address)
	if err != nil {
		return nil, err
	}

	f.logger.Debug("Fetched balance via direct RPC",
		zap.String("network", string(def.Identifier)),
		zap.String("address", address),
		zap.String("balance", balance.String()))

	return &port.BalanceSnapshot{
		NativeBalance:    balance,
		NativeSymbol:     def.NativeSymbol,
		TransactionCount: txCount,
		NativeOnly:       true,
	}, nil
}

// clientFor returns a cached RPC client for the network, dialing on first use.
func (f *Fetcher) clientFor(def entity.NetworkDefinition) (*EVMClient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if client, exists := f.rpcClients[def.Identifier]; exists {
		return client, nil
	}

	f.logger.Info("Creating new EVM RPC client",
		zap.String("network", string(def.Identifier)),
		zap.String("rpc_primary", def.PrimaryRPCURL))
	client, err := NewEVMClient(def, f.connectTO, f.callTO)
	if err != nil {
		f.logger.Error("Failed to create EVM client", zap.String("network", string(def.Identifier)), zap.Error(err))
		return nil, fmt.Errorf("failed to create EVM client for %s: %w", def.Identifier, err)
	}
	f.rpcClients[def.Identifier] = client
	return client, nil
}

// Close releases all cached RPC clients.
func (f *Fetcher) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, client := range f.rpcClients {
		client.Close()
	}
	f.rpcClients = make(map[entity.Network]*EVMClient)
}
