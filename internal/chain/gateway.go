package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/estate-protocol/tokenization-node/internal/utils"
)

// Gateway is the single point of chain access: read calls against the
// tokenization contract and write calls signed by the server-held key.
//
// All writes share one signing account, so they are serialized behind
// txMutex: submit, wait for inclusion, release. Without this, concurrent
// requests would race on the account nonce.
type Gateway struct {
	client       *ethclient.Client
	contract     *bind.BoundContract
	contractABI  abi.ABI
	contractAddr common.Address

	chainID    *big.Int
	privateKey *ecdsa.PrivateKey
	signerAddr common.Address

	approveGasLimit uint64

	config *utils.ConfigManager
	logger *utils.LogsManager

	txMutex sync.Mutex
}

// NewGateway dials the chain RPC, parses the contract ABI and loads the
// signer key. Construct once at startup and inject into consumers.
func NewGateway(config *utils.ConfigManager, logger *utils.LogsManager) (*Gateway, error) {
	rpcURL := config.GetConfigWithDefault("chain_rpc_url", "https://evm-t3.cronos.org")

	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to chain RPC %s: %v", rpcURL, err)
	}

	parsedABI, err := abi.JSON(strings.NewReader(contractABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse contract ABI: %v", err)
	}

	contractAddrStr := config.GetConfigWithDefault("contract_address", "")
	if contractAddrStr == "" {
		return nil, fmt.Errorf("contract_address not configured")
	}
	contractAddr := common.HexToAddress(contractAddrStr)

	privateKey, err := LoadSignerKey(config)
	if err != nil {
		return nil, err
	}
	signerAddr := crypto.PubkeyToAddress(privateKey.PublicKey)

	chainID := big.NewInt(config.GetConfigInt64("chain_id", 338, 1, 1<<62))
	approveGasLimit := uint64(config.GetConfigInt64("approve_gas_limit", 300000, 21000, 10000000))

	g := &Gateway{
		client:          client,
		contract:        bind.NewBoundContract(contractAddr, parsedABI, client, client, client),
		contractABI:     parsedABI,
		contractAddr:    contractAddr,
		chainID:         chainID,
		privateKey:      privateKey,
		signerAddr:      signerAddr,
		approveGasLimit: approveGasLimit,
		config:          config,
		logger:          logger,
	}

	logger.Info(fmt.Sprintf("Chain gateway initialized: rpc=%s, contract=%s, signer=%s, chainId=%d",
		rpcURL, contractAddr.Hex(), signerAddr.Hex(), chainID), "chain")

	return g, nil
}

// Signer returns the address of the server-held signing account.
func (g *Gateway) Signer() common.Address {
	return g.signerAddr
}

// Owner reads the contract owner.
func (g *Gateway) Owner(ctx context.Context) (common.Address, error) {
	var out []interface{}
	if err := g.contract.Call(&bind.CallOpts{Context: ctx}, &out, "owner"); err != nil {
		return common.Address{}, &ChainError{Op: "owner", Reason: revertReason(err), Err: err}
	}
	return *abi.ConvertType(out[0], new(common.Address)).(*common.Address), nil
}

// IsKycVerified reads the KYC registry for one address.
func (g *Gateway) IsKycVerified(ctx context.Context, address string) (bool, error) {
	if !common.IsHexAddress(address) {
		return false, fmt.Errorf("%w: %s", ErrInvalidAddress, address)
	}

	var out []interface{}
	if err := g.contract.Call(&bind.CallOpts{Context: ctx}, &out, "isKycVerified", common.HexToAddress(address)); err != nil {
		return false, &ChainError{Op: "isKycVerified", Reason: revertReason(err), Err: err}
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

// BalanceOfBatch reads share balances for (account, tokenId) pairs.
// accounts and ids must have equal length.
func (g *Gateway) BalanceOfBatch(ctx context.Context, accounts []string, ids []int64) ([]*big.Int, error) {
	if len(accounts) != len(ids) {
		return nil, fmt.Errorf("accounts and ids length mismatch: %d != %d", len(accounts), len(ids))
	}

	addrs := make([]common.Address, len(accounts))
	for i, a := range accounts {
		if !common.IsHexAddress(a) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidAddress, a)
		}
		addrs[i] = common.HexToAddress(a)
	}

	tokenIDs := make([]*big.Int, len(ids))
	for i, id := range ids {
		tokenIDs[i] = big.NewInt(id)
	}

	var out []interface{}
	if err := g.contract.Call(&bind.CallOpts{Context: ctx}, &out, "balanceOfBatch", addrs, tokenIDs); err != nil {
		return nil, &ChainError{Op: "balanceOfBatch", Reason: revertReason(err), Err: err}
	}
	return *abi.ConvertType(out[0], new([]*big.Int)).(*[]*big.Int), nil
}

// ApproveUser marks an address as KYC-approved. Gas is pre-set generously
// to avoid estimation failures on the testnet target.
func (g *Gateway) ApproveUser(ctx context.Context, address string) (string, error) {
	if !common.IsHexAddress(address) {
		return "", fmt.Errorf("%w: %s", ErrInvalidAddress, address)
	}

	return g.transact(ctx, "approveUser", g.approveGasLimit, common.HexToAddress(address))
}

// MintShares mints property shares for a settled purchase. Gas relies on
// default estimation.
func (g *Gateway) MintShares(ctx context.Context, receiver string, propertyID int64, amount int64, pricePaid *big.Int) (string, error) {
	if !common.IsHexAddress(receiver) {
		return "", fmt.Errorf("%w: %s", ErrInvalidAddress, receiver)
	}

	return g.transact(ctx, "mintShares", 0,
		common.HexToAddress(receiver),
		big.NewInt(propertyID),
		big.NewInt(amount),
		pricePaid,
	)
}

// transact submits one signed transaction and blocks until it is mined.
// The mutex is held across submit+wait so the signing account issues
// transactions strictly one at a time.
func (g *Gateway) transact(ctx context.Context, method string, gasLimit uint64, args ...interface{}) (string, error) {
	g.txMutex.Lock()
	defer g.txMutex.Unlock()

	opts, err := bind.NewKeyedTransactorWithChainID(g.privateKey, g.chainID)
	if err != nil {
		return "", &ChainError{Op: method, Reason: "failed to create transactor", Err: err}
	}
	opts.Context = ctx
	opts.GasLimit = gasLimit // 0 lets the client estimate

	tx, err := g.contract.Transact(opts, method, args...)
	if err != nil {
		g.logger.Error(fmt.Sprintf("Transaction submission failed: method=%s, err=%v", method, err), "chain")
		return "", &ChainError{Op: method, Reason: revertReason(err), Err: err}
	}

	g.logger.Info(fmt.Sprintf("Transaction submitted: method=%s, hash=%s", method, tx.Hash().Hex()), "chain")

	receipt, err := bind.WaitMined(ctx, g.client, tx)
	if err != nil {
		return "", &ChainError{Op: method, Hash: tx.Hash().Hex(), Reason: "failed waiting for inclusion", Err: err}
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		g.logger.Error(fmt.Sprintf("Transaction reverted: method=%s, hash=%s, block=%d", method, tx.Hash().Hex(), receipt.BlockNumber), "chain")
		return "", &ChainError{Op: method, Hash: tx.Hash().Hex(), Reason: "transaction reverted"}
	}

	g.logger.Info(fmt.Sprintf("Transaction confirmed: method=%s, hash=%s, block=%d", method, tx.Hash().Hex(), receipt.BlockNumber), "chain")

	return tx.Hash().Hex(), nil
}

// Close releases the underlying RPC connection.
func (g *Gateway) Close() {
	g.client.Close()
}
