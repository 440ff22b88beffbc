// Package explorer fetches balance and transaction data from external
// sources: an opaque explorer edge-function API for any network, and direct
// JSON-RPC for EVM chains.
package explorer

import (
	"context"
	"fmt"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"satotrack/internal/app/port"
	"satotrack/internal/domain/entity"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Compile-time checks: *HTTPClient must satisfy both fetcher ports.
var (
	_ port.BalanceFetcher     = (*HTTPClient)(nil)
	_ port.TransactionFetcher = (*HTTPClient)(nil)
)

// HTTPClient talks to the explorer edge-function API. The API aggregates
// per-network blockchain explorers behind one JSON surface; this layer does
// not know or care which explorer served a request.
type HTTPClient struct {
	client  *fasthttp.Client
	baseURL string
	timeout time.Duration
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewHTTPClient creates a new explorer client. ratePerSec/burst bound the
// request rate against the upstream API.
func NewHTTPClient(baseURL string, timeout time.Duration, ratePerSec, burst int, logger *zap.Logger) *HTTPClient {
	if ratePerSec <= 0 {
		ratePerSec = 5
	}
	if burst <= 0 {
		burst = ratePerSec
	}
	return &HTTPClient{
		client:  &fasthttp.Client{},
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), burst),
		logger:  logger.Named("ExplorerClient"),
	}
}

// walletDataResponse mirrors the edge function's wallet payload.
type walletDataResponse struct {
	NativeBalance    decimal.Decimal       `json:"nativeBalance"`
	NativeSymbol     string                `json:"nativeSymbol"`
	TotalReceived    decimal.Decimal       `json:"totalReceived"`
	TotalSent        decimal.Decimal       `json:"totalSent"`
	TransactionCount int64                 `json:"transactionCount"`
	Tokens           []entity.TokenBalance `json:"tokens"`
	TotalUSDValue    float64               `json:"totalUsdValue"`
}

// transactionResponse mirrors one entry of the edge function's transaction list.
type transactionResponse struct {
	Hash      string          `json:"hash"`
	Amount    decimal.Decimal `json:"amount"`
	Direction string          `json:"direction"`
	Timestamp time.Time       `json:"timestamp"`
}

// FetchBalance implements port.BalanceFetcher.
func (c *HTTPClient) FetchBalance(ctx context.Context, address string, network entity.Network) (*port.BalanceSnapshot, error) {
	requestURL := fmt.Sprintf("%s/api/v1/wallet/%s/%s", c.baseURL, network, address)

	body, err := c.get(ctx, requestURL)
	if err != nil {
		return nil, err
	}

	var data walletDataResponse
	if err := json.Unmarshal(body, &data); err != nil {
		c.logger.Error("Failed to unmarshal wallet data", zap.String("url", requestURL), zap.Error(err))
		return nil, fmt.Errorf("failed to unmarshal wallet data from %s: %w", requestURL, err)
	}

	c.logger.Debug("Fetched wallet data",
		zap.String("address", address),
		zap.String("network", string(network)),
		zap.String("balance", data.NativeBalance.String()))

	return &port.BalanceSnapshot{
		NativeBalance:    data.NativeBalance,
		NativeSymbol:     data.NativeSymbol,
		TotalReceived:    data.TotalReceived,
		TotalSent:        data.TotalSent,
		TransactionCount: data.TransactionCount,
		Tokens:           data.Tokens,
		TotalUSDValue:    data.TotalUSDValue,
	}, nil
}

// FetchTransactions implements port.TransactionFetcher. The upstream returns
// the list most-recent-first; the order is preserved as-is.
func (c *HTTPClient) FetchTransactions(ctx context.Context, wallet entity.TrackedWallet) ([]entity.Transaction, error) {
	requestURL := fmt.Sprintf("%s/api/v1/wallet/%s/%s/transactions", c.baseURL, wallet.Network, wallet.Address)

	body, err := c.get(ctx, requestURL)
	if err != nil {
		return nil, err
	}

	var raw []transactionResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		c.logger.Error("Failed to unmarshal transactions", zap.String("url", requestURL), zap.Error(err))
		return nil, fmt.Errorf("failed to unmarshal transactions from %s: %w", requestURL, err)
	}

	txs := make([]entity.Transaction, 0, len(raw))
	for _, t := range raw {
		direction := entity.TxIncoming
		if t.Direction == "outgoing" {
			direction = entity.TxOutgoing
		}
		txs = append(txs, entity.Transaction{
			Hash:      t.Hash,
			WalletID:  wallet.ID,
			Amount:    t.Amount,
			Direction: direction,
			Timestamp: t.Timestamp,
		})
	}
	return txs, nil
}

func (c *HTTPClient) get(ctx context.Context, requestURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.SetRequestURI(requestURL)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.SetContentTypeBytes([]byte("application/json"))

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	deadline, ok := ctx.Deadline()
	if ok {
		if err := c.client.DoDeadline(req, resp, deadline); err != nil {
			c.logger.Error("Failed to execute explorer request", zap.String("url", requestURL), zap.Error(err))
			return nil, fmt.Errorf("failed to execute request to %s: %w", requestURL, err)
		}
	} else {
		if err := c.client.DoTimeout(req, resp, c.timeout); err != nil {
			c.logger.Error("Failed to execute explorer request (with default timeout)", zap.String("url", requestURL), zap.Error(err))
			return nil, fmt.Errorf("failed to execute request to %s with default timeout: %w", requestURL, err)
		}
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		c.logger.Error("Explorer API request failed",
			zap.String("url", requestURL),
			zap.Int("statusCode", resp.StatusCode()),
			zap.ByteString("responseBody", resp.Body()))
		return nil, fmt.Errorf("explorer API request to %s failed with status %d", requestURL, resp.StatusCode())
	}

	// resp.Body() is pooled memory; copy before releasing.
	body := make([]byte, len(resp.Body()))
	copy(body, resp.Body())
	return body, nil
}
