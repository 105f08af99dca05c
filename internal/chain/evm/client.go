package evm

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/groundstone/terravest/internal/chain/domain"
	"github.com/groundstone/terravest/internal/config"
	"github.com/groundstone/terravest/internal/ratelimit"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Share amounts live on chain as 18-decimal fixed point, ERC-20 style.
const weiDecimals = -18

const shareRegistryABI = `[
	{"name":"balanceOf","type":"function","stateMutability":"view","inputs":[{"name":"projectId","type":"uint256"},{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"assetsOf","type":"function","stateMutability":"view","inputs":[{"name":"projectId","type":"uint256"},{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"claimedRewardsOf","type":"function","stateMutability":"view","inputs":[{"name":"projectId","type":"uint256"},{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"claimableOf","type":"function","stateMutability":"view","inputs":[{"name":"projectId","type":"uint256"},{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"fundraisingOf","type":"function","stateMutability":"view","inputs":[{"name":"projectId","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"givenRewardsOf","type":"function","stateMutability":"view","inputs":[{"name":"projectId","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]}
]`

const settlementABI = `[
	{"name":"invest","type":"function","stateMutability":"nonpayable","inputs":[{"name":"projectId","type":"uint256"},{"name":"investor","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[]}
]`

type Params struct {
	fx.In

	Cfg     config.Config
	Log     *zap.Logger
	Limiter *ratelimit.TokenBucket `optional:"true"`
}

// rpcBudget is the slice of the rate limiter the client consumes.
type rpcBudget interface {
	Allow(ctx context.Context, key string, rate float64, burst int) (*ratelimit.RateLimitResult, error)
}

// Client talks to the project-share and settlement contracts over an
// EVM JSON-RPC endpoint. It implements both the query and settlement
// collaborator contracts. One instance serves every request.
type Client struct {
	eth         *ethclient.Client
	log         *zap.Logger
	limiter     rpcBudget
	rate        float64
	burst       int
	callTimeout time.Duration

	registryAddr   common.Address
	settlementAddr common.Address
	registryABI    abi.ABI
	settlementABI  abi.ABI

	operatorKey  *ecdsa.PrivateKey
	operatorAddr common.Address

	chainIDMu sync.Mutex
	chainID   *big.Int

	// The operator account signs every settlement; nonce assignment and
	// submission must not interleave across goroutines.
	nonceMu sync.Mutex
}

func New(p Params) (*Client, error) {
	chainCfg := p.Cfg.Chain

	eth, err := ethclient.Dial(chainCfg.RPCEndpoint)
	if err != nil {
		return nil, fmt.Errorf("dial chain rpc: %w", err)
	}

	registryABI, err := abi.JSON(strings.NewReader(shareRegistryABI))
	if err != nil {
		return nil, fmt.Errorf("parse registry abi: %w", err)
	}
	settleABI, err := abi.JSON(strings.NewReader(settlementABI))
	if err != nil {
		return nil, fmt.Errorf("parse settlement abi: %w", err)
	}

	client := &Client{
		eth:            eth,
		log:            p.Log.Named("chain.evm"),
		rate:           chainCfg.RPCRatePerSecond,
		burst:          chainCfg.RPCBurst,
		callTimeout:    time.Duration(chainCfg.CallTimeoutSeconds) * time.Second,
		registryAddr:   common.HexToAddress(chainCfg.ShareTokenAddress),
		settlementAddr: common.HexToAddress(chainCfg.SettlementAddress),
		registryABI:    registryABI,
		settlementABI:  settleABI,
	}
	if client.callTimeout <= 0 {
		client.callTimeout = 15 * time.Second
	}
	// A nil *TokenBucket stored in the interface is not a nil interface.
	if p.Limiter != nil {
		client.limiter = p.Limiter
	}

	if chainCfg.OperatorPrivateKey != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(chainCfg.OperatorPrivateKey, "0x"))
		if err != nil {
			return nil, fmt.Errorf("parse operator key: %w", err)
		}
		client.operatorKey = key
		client.operatorAddr = crypto.PubkeyToAddress(key.PublicKey)
	}

	return client, nil
}

func (c *Client) Close() {
	c.eth.Close()
}

func (c *Client) GetBalance(ctx context.Context, projectID snowflake.ID, address string) (decimal.Decimal, error) {
	return c.readHolder(ctx, "balanceOf", projectID, address)
}

func (c *Client) GetAssets(ctx context.Context, projectID snowflake.ID, address string) (decimal.Decimal, error) {
	return c.readHolder(ctx, "assetsOf", projectID, address)
}

func (c *Client) GetClaimedRewards(ctx context.Context, projectID snowflake.ID, address string) (decimal.Decimal, error) {
	return c.readHolder(ctx, "claimedRewardsOf", projectID, address)
}

func (c *Client) GetClaimableAmount(ctx context.Context, projectID snowflake.ID, address string) (decimal.Decimal, error) {
	return c.readHolder(ctx, "claimableOf", projectID, address)
}

func (c *Client) GetFundraising(ctx context.Context, projectID snowflake.ID) (decimal.Decimal, error) {
	return c.readProject(ctx, "fundraisingOf", projectID)
}

func (c *Client) GetGivenRewards(ctx context.Context, projectID snowflake.ID) (decimal.Decimal, error) {
	return c.readProject(ctx, "givenRewardsOf", projectID)
}

// Invest submits the purchase through the settlement contract and waits
// for the transaction to be mined. The tx hash doubles as the idempotent
// settlement reference.
func (c *Client) Invest(ctx context.Context, projectID snowflake.ID, walletID, walletAddress string, amount decimal.Decimal) (domain.Receipt, error) {
	if c.operatorKey == nil {
		return domain.Receipt{}, fmt.Errorf("settlement operator key not configured")
	}
	if !common.IsHexAddress(walletAddress) {
		return domain.Receipt{}, domain.ErrInvalidAddress
	}
	if err := c.acquire(ctx); err != nil {
		return domain.Receipt{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	data, err := c.settlementABI.Pack("invest",
		projectAsUint256(projectID),
		common.HexToAddress(walletAddress),
		toWei(amount),
	)
	if err != nil {
		return domain.Receipt{}, fmt.Errorf("pack invest call: %w", err)
	}

	chainID, err := c.networkID(ctx)
	if err != nil {
		return domain.Receipt{}, err
	}
	gasPrice, err := c.eth.SuggestGasPrice(ctx)
	if err != nil {
		return domain.Receipt{}, fmt.Errorf("suggest gas price: %w", err)
	}
	gasLimit, err := c.eth.EstimateGas(ctx, ethereum.CallMsg{
		From: c.operatorAddr,
		To:   &c.settlementAddr,
		Data: data,
	})
	if err != nil {
		// Estimation failure almost always means the contract would
		// revert; report it as a settlement rejection.
		c.log.Warn("settlement gas estimation failed",
			zap.String("project_id", projectID.String()),
			zap.Error(err),
		)
		return domain.Receipt{}, fmt.Errorf("%w: %v", domain.ErrSettlementRejected, err)
	}

	signed, err := c.submit(ctx, chainID, gasPrice, gasLimit, data)
	if err != nil {
		return domain.Receipt{}, err
	}

	receipt, err := c.waitMined(ctx, signed.Hash())
	if err != nil {
		return domain.Receipt{}, err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return domain.Receipt{}, domain.ErrSettlementRejected
	}

	hash := signed.Hash().Hex()
	c.log.Info("settlement confirmed",
		zap.String("project_id", projectID.String()),
		zap.String("wallet_id", walletID),
		zap.String("tx_hash", hash),
	)
	return domain.Receipt{Reference: hash, TxHash: hash}, nil
}

// submit assigns the next operator nonce and sends the signed tx under
// one lock, so concurrent settlements never claim the same nonce.
// Waiting for the receipt happens outside the lock.
func (c *Client) submit(ctx context.Context, chainID, gasPrice *big.Int, gasLimit uint64, data []byte) (*types.Transaction, error) {
	c.nonceMu.Lock()
	defer c.nonceMu.Unlock()

	nonce, err := c.eth.PendingNonceAt(ctx, c.operatorAddr)
	if err != nil {
		return nil, fmt.Errorf("fetch nonce: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &c.settlementAddr,
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})
	signed, err := types.SignTx(tx, types.NewEIP155Signer(chainID), c.operatorKey)
	if err != nil {
		return nil, fmt.Errorf("sign settlement tx: %w", err)
	}
	if err := c.eth.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("send settlement tx: %w", err)
	}
	return signed, nil
}

func (c *Client) readHolder(ctx context.Context, method string, projectID snowflake.ID, address string) (decimal.Decimal, error) {
	// Mirrors the upstream convention: an unset or malformed address
	// reads as a zero position rather than an error.
	if address == "" || !common.IsHexAddress(address) {
		return decimal.Zero, nil
	}
	return c.call(ctx, method, projectAsUint256(projectID), common.HexToAddress(address))
}

func (c *Client) readProject(ctx context.Context, method string, projectID snowflake.ID) (decimal.Decimal, error) {
	return c.call(ctx, method, projectAsUint256(projectID))
}

func (c *Client) call(ctx context.Context, method string, args ...any) (decimal.Decimal, error) {
	if err := c.acquire(ctx); err != nil {
		return decimal.Zero, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	data, err := c.registryABI.Pack(method, args...)
	if err != nil {
		return decimal.Zero, fmt.Errorf("pack %s call: %w", method, err)
	}

	raw, err := c.eth.CallContract(ctx, ethereum.CallMsg{
		To:   &c.registryAddr,
		Data: data,
	}, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("call %s: %w", method, err)
	}

	values, err := c.registryABI.Unpack(method, raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("unpack %s result: %w", method, err)
	}
	if len(values) != 1 {
		return decimal.Zero, fmt.Errorf("unexpected %s result arity %d", method, len(values))
	}
	wei, ok := values[0].(*big.Int)
	if !ok {
		return decimal.Zero, fmt.Errorf("unexpected %s result type %T", method, values[0])
	}

	return fromWei(wei), nil
}

// acquire debits the shared RPC budget when one is configured. The
// endpoint throttles hard, so waiting briefly beats getting rejected.
func (c *Client) acquire(ctx context.Context) error {
	if c.limiter == nil || c.rate <= 0 {
		return nil
	}
	for {
		result, err := c.limiter.Allow(ctx, "chain:rpc", c.rate, c.burst)
		if err != nil {
			// A broken limiter should not take the chain path down.
			return nil
		}
		if result.Allowed {
			return nil
		}
		wait := result.RetryAfter
		if wait <= 0 {
			wait = 50 * time.Millisecond
		}
		select {
		case <-ctx.Done():
			// The request ran out of time waiting for budget, not on
			// the wire.
			return fmt.Errorf("%w: %v", domain.ErrRateLimited, ctx.Err())
		case <-time.After(wait):
		}
	}
}

// networkID caches the chain id after the first successful fetch. The
// cache is shared by every concurrent settlement, so access is locked.
func (c *Client) networkID(ctx context.Context) (*big.Int, error) {
	c.chainIDMu.Lock()
	defer c.chainIDMu.Unlock()

	if c.chainID != nil {
		return c.chainID, nil
	}
	chainID, err := c.eth.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch chain id: %w", err)
	}
	c.chainID = chainID
	return chainID, nil
}

func (c *Client) waitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		receipt, err := c.eth.TransactionReceipt(ctx, hash)
		if err == nil {
			return receipt, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("settlement tx %s not mined: %w", hash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}

func projectAsUint256(projectID snowflake.ID) *big.Int {
	return new(big.Int).SetInt64(projectID.Int64())
}

func fromWei(wei *big.Int) decimal.Decimal {
	if wei == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(wei, weiDecimals)
}

func toWei(amount decimal.Decimal) *big.Int {
	return amount.Shift(-weiDecimals).BigInt()
}
