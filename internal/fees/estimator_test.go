package fees

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kiwiwallet/internal/chains"
	"kiwiwallet/internal/client"
	"kiwiwallet/internal/model"
)

const (
	fromAddr  = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	toAddr    = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
	tokenAddr = "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
)

func mockHeader(withBaseFee bool) map[string]interface{} {
	h := map[string]interface{}{
		"number":           "0x1000",
		"hash":             "0x0000000000000000000000000000000000000000000000000000000000000001",
		"parentHash":       "0x0000000000000000000000000000000000000000000000000000000000000002",
		"sha3Uncles":       "0x1dcc4de8dec75d7aab85b567b6ccd41ad312451b948a7413f0a142fd40d49347",
		"timestamp":        "0x5f5e1000",
		"miner":            "0x0000000000000000000000000000000000000000",
		"gasLimit":         "0x1c9c380",
		"gasUsed":          "0x0",
		"difficulty":       "0x0",
		"extraData":        "0x",
		"mixHash":          "0x0000000000000000000000000000000000000000000000000000000000000000",
		"nonce":            "0x0000000000000000",
		"stateRoot":        "0x0000000000000000000000000000000000000000000000000000000000000000",
		"receiptsRoot":     "0x0000000000000000000000000000000000000000000000000000000000000000",
		"transactionsRoot": "0x0000000000000000000000000000000000000000000000000000000000000001",
		"logsBloom":        "0x" + strings.Repeat("00", 256),
	}
	if withBaseFee {
		h["baseFeePerGas"] = "0x3b9aca00" // 1 gwei
	}
	return h
}

// rpcServer serves a minimal JSON-RPC node. The handler map overrides
// per-method results; lastCall records calldata of eth_estimateGas.
func rpcServer(t *testing.T, withBaseFee bool, overrides map[string]interface{}, estimated *map[string]interface{}) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     int           `json:"id"`
			Method string        `json:"method"`
			Params []interface{} `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		var result interface{}
		if override, ok := overrides[req.Method]; ok {
			if override == nil {
				json.NewEncoder(w).Encode(map[string]interface{}{
					"jsonrpc": "2.0", "id": req.ID,
					"error": map[string]interface{}{"code": -32000, "message": "node unavailable"},
				})
				return
			}
			result = override
		} else {
			switch req.Method {
			case "eth_estimateGas":
				if estimated != nil && len(req.Params) > 0 {
					*estimated, _ = req.Params[0].(map[string]interface{})
				}
				result = "0x5208" // 21000
			case "eth_getBlockByNumber":
				result = mockHeader(withBaseFee)
			case "eth_maxPriorityFeePerGas":
				result = "0x3b9aca00" // 1 gwei
			case "eth_gasPrice":
				result = "0x77359400" // 2 gwei
			default:
				result = "0x0"
			}
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"jsonrpc": "2.0", "id": req.ID, "result": result})
	}))
	t.Cleanup(server.Close)
	return server
}

func newEstimator(t *testing.T, server *httptest.Server) *Estimator {
	t.Helper()
	registry := chains.New(server.URL, server.URL)
	nodes := client.NewNodes(registry)
	t.Cleanup(nodes.Close)
	return New(nodes, registry)
}

func TestEstimateNativeDynamicFee(t *testing.T) {
	server := rpcServer(t, true, nil, nil)
	e := newEstimator(t, server)

	est, err := e.Estimate(context.Background(), Request{
		ChainID:   1,
		From:      ethcommon.HexToAddress(fromAddr),
		Recipient: toAddr,
		AmountWei: big.NewInt(1e15),
	})
	require.NoError(t, err)

	assert.Equal(t, uint64(21000), est.GasLimit)
	assert.True(t, est.Dynamic())
	// feeCap = tip (1 gwei) + 2 * baseFee (1 gwei) = 3 gwei
	assert.Zero(t, est.GasFeeCap.Cmp(big.NewInt(3e9)))
	assert.Zero(t, est.FeeWei.Cmp(big.NewInt(21000*3e9)))
	assert.Equal(t, "0.000063", est.FeeNative)
}

func TestEstimateLegacyGasPrice(t *testing.T) {
	server := rpcServer(t, false, nil, nil)
	e := newEstimator(t, server)

	est, err := e.Estimate(context.Background(), Request{
		ChainID:   56,
		From:      ethcommon.HexToAddress(fromAddr),
		Recipient: toAddr,
		AmountWei: big.NewInt(1e15),
	})
	require.NoError(t, err)

	assert.False(t, est.Dynamic())
	assert.Zero(t, est.GasPrice.Cmp(big.NewInt(2e9)))
	assert.Zero(t, est.FeeWei.Cmp(big.NewInt(21000*2e9)))
}

func TestEstimateTokenSimulatesContractCall(t *testing.T) {
	var captured map[string]interface{}
	server := rpcServer(t, true, nil, &captured)

	e := newEstimator(t, server)
	est, err := e.Estimate(context.Background(), Request{
		ChainID:         1,
		From:            ethcommon.HexToAddress(fromAddr),
		Recipient:       toAddr,
		AmountWei:       big.NewInt(2000000),
		ContractAddress: tokenAddr,
	})
	require.NoError(t, err)
	require.NotNil(t, captured)

	// The simulation must target the contract, not the recipient,
	// and carry transfer(recipient, amount) calldata.
	assert.Equal(t, strings.ToLower(tokenAddr), captured["to"])
	data, _ := captured["data"].(string)
	assert.True(t, strings.HasPrefix(data, "0xa9059cbb"), "calldata %s", data)
	assert.Contains(t, strings.ToLower(data), strings.ToLower(toAddr[2:]))
	assert.NotZero(t, est.GasLimit)
}

func TestEstimateInvalidRecipient(t *testing.T) {
	server := rpcServer(t, true, nil, nil)
	e := newEstimator(t, server)

	for _, bad := range []string{"", "0x123", "not-an-address", "0x" + strings.Repeat("zz", 20)} {
		_, err := e.Estimate(context.Background(), Request{
			ChainID: 1, From: ethcommon.HexToAddress(fromAddr),
			Recipient: bad, AmountWei: big.NewInt(1),
		})
		assert.ErrorIs(t, err, model.ErrInvalidAddress, "recipient %q", bad)
	}
}

func TestEstimateInvalidTokenContract(t *testing.T) {
	server := rpcServer(t, true, nil, nil)
	e := newEstimator(t, server)

	_, err := e.Estimate(context.Background(), Request{
		ChainID: 1, From: ethcommon.HexToAddress(fromAddr),
		Recipient: toAddr, AmountWei: big.NewInt(1),
		ContractAddress: "0x",
	})
	assert.ErrorIs(t, err, model.ErrInvalidAddress)
}

func TestEstimateUnsupportedChain(t *testing.T) {
	server := rpcServer(t, true, nil, nil)
	e := newEstimator(t, server)

	_, err := e.Estimate(context.Background(), Request{
		ChainID: 137, From: ethcommon.HexToAddress(fromAddr),
		Recipient: toAddr, AmountWei: big.NewInt(1),
	})
	assert.ErrorIs(t, err, model.ErrUnsupportedChain)
}

func TestEstimateNodeFailure(t *testing.T) {
	server := rpcServer(t, true, map[string]interface{}{"eth_estimateGas": nil}, nil)
	e := newEstimator(t, server)

	_, err := e.Estimate(context.Background(), Request{
		ChainID: 1, From: ethcommon.HexToAddress(fromAddr),
		Recipient: toAddr, AmountWei: big.NewInt(1),
	})
	assert.ErrorIs(t, err, model.ErrRPCUnavailable)
}
