package client

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"

	"kiwiwallet/internal/chains"
)

// callTimeout bounds every single node call. A timeout surfaces as an
// error to the caller; nothing here retries.
const callTimeout = 30 * time.Second

// ERC-20 function selectors, per the ABI spec.
var (
	selectorTransfer  = []byte{0xa9, 0x05, 0x9c, 0xbb} // transfer(address,uint256)
	selectorBalanceOf = []byte{0x70, 0xa0, 0x82, 0x31} // balanceOf(address)
)

// ERC20TransferData packs calldata for transfer(to, amount).
func ERC20TransferData(to common.Address, amount *big.Int) []byte {
	data := make([]byte, 4+32+32)
	copy(data[0:4], selectorTransfer)
	copy(data[4+12:4+32], to.Bytes())
	amount.FillBytes(data[4+32 : 4+64])
	return data
}

// ERC20BalanceOfData packs calldata for balanceOf(owner).
func ERC20BalanceOfData(owner common.Address) []byte {
	data := make([]byte, 4+32)
	copy(data[0:4], selectorBalanceOf)
	copy(data[4+12:], owner.Bytes())
	return data
}

// FeeData is the chain's current fee market reading. Either the
// EIP-1559 pair or GasPrice is set, never both.
type FeeData struct {
	GasTipCap *big.Int
	GasFeeCap *big.Int
	GasPrice  *big.Int
}

// PerGas returns the price per gas unit used for fee math.
func (f FeeData) PerGas() *big.Int {
	if f.GasFeeCap != nil {
		return f.GasFeeCap
	}
	return f.GasPrice
}

// Node talks to one chain's RPC endpoint.
type Node struct {
	eth *ethclient.Client
	url string
}

// DialNode connects to an RPC endpoint. HTTP endpoints connect lazily,
// so this does not perform I/O.
func DialNode(rpcURL string) (*Node, error) {
	eth, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to dial %s", rpcURL)
	}
	return &Node{eth: eth, url: rpcURL}, nil
}

func (n *Node) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, callTimeout)
}

// NativeBalance returns the address's native balance in wei.
func (n *Node) NativeBalance(ctx context.Context, addr common.Address) (*big.Int, error) {
	ctx, cancel := n.withTimeout(ctx)
	defer cancel()
	bal, err := n.eth.BalanceAt(ctx, addr, nil)
	return bal, errors.Wrap(err, "failed to get native balance")
}

// TokenBalance returns the address's ERC-20 balance in the token's
// smallest unit via an eth_call to balanceOf.
func (n *Node) TokenBalance(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	ctx, cancel := n.withTimeout(ctx)
	defer cancel()
	out, err := n.eth.CallContract(ctx, ethereum.CallMsg{To: &token, Data: ERC20BalanceOfData(owner)}, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to call balanceOf")
	}
	return new(big.Int).SetBytes(out), nil
}

// EstimateGas simulates the call and returns the gas it needs.
func (n *Node) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	ctx, cancel := n.withTimeout(ctx)
	defer cancel()
	gas, err := n.eth.EstimateGas(ctx, msg)
	return gas, errors.Wrap(err, "failed to estimate gas")
}

// FeeData reads the current fee market. Chains with a base fee get an
// EIP-1559 tip plus twice the base fee as the cap; legacy chains get
// the suggested gas price.
func (n *Node) FeeData(ctx context.Context) (FeeData, error) {
	ctx, cancel := n.withTimeout(ctx)
	defer cancel()

	head, err := n.eth.HeaderByNumber(ctx, nil)
	if err != nil {
		return FeeData{}, errors.Wrap(err, "failed to get chain head")
	}

	if head.BaseFee != nil {
		tip, err := n.eth.SuggestGasTipCap(ctx)
		if err != nil {
			return FeeData{}, errors.Wrap(err, "failed to get gas tip cap")
		}
		feeCap := new(big.Int).Add(tip, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
		return FeeData{GasTipCap: tip, GasFeeCap: feeCap}, nil
	}

	price, err := n.eth.SuggestGasPrice(ctx)
	if err != nil {
		return FeeData{}, errors.Wrap(err, "failed to get gas price")
	}
	return FeeData{GasPrice: price}, nil
}

// PendingNonce returns the next nonce for the address, including
// pending transactions.
func (n *Node) PendingNonce(ctx context.Context, addr common.Address) (uint64, error) {
	ctx, cancel := n.withTimeout(ctx)
	defer cancel()
	nonce, err := n.eth.PendingNonceAt(ctx, addr)
	return nonce, errors.Wrap(err, "failed to get pending nonce")
}

// Broadcast submits a signed transaction. Never call twice for the
// same payload: a duplicate submission risks a double spend.
func (n *Node) Broadcast(ctx context.Context, tx *types.Transaction) error {
	ctx, cancel := n.withTimeout(ctx)
	defer cancel()
	return errors.Wrap(n.eth.SendTransaction(ctx, tx), "failed to broadcast transaction")
}

// Receipt returns the mined receipt, or ethereum.NotFound while the
// transaction is still pending.
func (n *Node) Receipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ctx, cancel := n.withTimeout(ctx)
	defer cancel()
	return n.eth.TransactionReceipt(ctx, hash)
}

// Close releases the underlying connection.
func (n *Node) Close() {
	n.eth.Close()
}

// Nodes lazily opens and caches one Node per registered chain.
type Nodes struct {
	registry *chains.Registry

	mu   sync.Mutex
	open map[int64]*Node
}

// NewNodes builds the per-chain node pool.
func NewNodes(registry *chains.Registry) *Nodes {
	return &Nodes{registry: registry, open: make(map[int64]*Node)}
}

// ForChain returns the node for a chain id, dialing it on first use.
// Fails with model.ErrUnsupportedChain for unknown chains.
func (ns *Nodes) ForChain(chainID int64) (*Node, error) {
	ns.mu.Lock()
	defer ns.mu.Unlock()

	if n, ok := ns.open[chainID]; ok {
		return n, nil
	}
	cfg, err := ns.registry.ConfigFor(chainID)
	if err != nil {
		return nil, err
	}
	n, err := DialNode(cfg.RPCURL)
	if err != nil {
		return nil, err
	}
	ns.open[chainID] = n
	return n, nil
}

// Close closes every open node.
func (ns *Nodes) Close() {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	for id, n := range ns.open {
		n.Close()
		delete(ns.open, id)
	}
}
