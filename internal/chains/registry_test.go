package chains

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kiwiwallet/internal/model"
)

func TestConfigFor(t *testing.T) {
	r := New("https://eth.example", "https://bsc.example")

	eth, err := r.ConfigFor(1)
	require.NoError(t, err)
	assert.Equal(t, "ETH", eth.NativeSymbol)
	assert.Equal(t, "https://eth.example", eth.RPCURL)
	assert.Equal(t, 18, eth.NativeDecimals)

	bsc, err := r.ConfigFor(56)
	require.NoError(t, err)
	assert.Equal(t, "BNB", bsc.NativeSymbol)
	assert.Equal(t, "https://bsc.example", bsc.RPCURL)
}

func TestConfigForUnsupportedChain(t *testing.T) {
	r := New("a", "b")
	_, err := r.ConfigFor(137)
	assert.ErrorIs(t, err, model.ErrUnsupportedChain)
}

func TestAllIsStable(t *testing.T) {
	r := New("a", "b")
	all := r.All()
	require.Len(t, all, 2)
	assert.Equal(t, int64(1), all[0].ChainID)
	assert.Equal(t, int64(56), all[1].ChainID)
}

func TestExplorerTxURL(t *testing.T) {
	r := New("a", "b")
	assert.Equal(t, "https://etherscan.io/tx/0xdead", r.ExplorerTxURL(1, "0xdead"))
	assert.Equal(t, "https://bscscan.com/tx/0xdead", r.ExplorerTxURL(56, "0xdead"))
	assert.Empty(t, r.ExplorerTxURL(137, "0xdead"))
	assert.Empty(t, r.ExplorerTxURL(1, ""))
}
