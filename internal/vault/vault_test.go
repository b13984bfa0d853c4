package vault

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kiwiwallet/internal/model"
)

const testPhrase = "test test test test test test test test test test test junk"

func testVault(t *testing.T) *Vault {
	t.Helper()
	return newLight(filepath.Join(t.TempDir(), "wallet.vault"))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	v := testVault(t)
	password := []byte("hunter2")

	require.NoError(t, v.Save(testPhrase, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", password))

	got, ok, err := v.Load(password)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, testPhrase, got)

	addr, err := v.Address()
	require.NoError(t, err)
	assert.Equal(t, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", addr)
	assert.True(t, v.Exists())
}

func TestLoadEmptyVault(t *testing.T) {
	v := testVault(t)

	got, ok, err := v.Load([]byte("pw"))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, got)
	assert.False(t, v.Exists())

	_, err = v.Address()
	assert.ErrorIs(t, err, model.ErrNoWallet)
}

func TestClearThenLoad(t *testing.T) {
	v := testVault(t)
	password := []byte("pw")

	require.NoError(t, v.Save(testPhrase, "0xabc", password))
	require.NoError(t, v.Clear())

	_, ok, err := v.Load(password)
	require.NoError(t, err)
	assert.False(t, ok)

	// Clearing twice is fine
	require.NoError(t, v.Clear())
}

func TestWrongPassword(t *testing.T) {
	v := testVault(t)
	require.NoError(t, v.Save(testPhrase, "0xabc", []byte("right")))

	_, _, err := v.Load([]byte("wrong"))
	require.Error(t, err)
	var storageErr *model.StorageError
	assert.True(t, errors.As(err, &storageErr))
}

func TestConcurrentSavesDoNotTear(t *testing.T) {
	v := testVault(t)
	password := []byte("pw")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, v.Save(testPhrase, "0xabc", password))
		}()
	}
	wg.Wait()

	// Whatever save won, the file must decrypt cleanly.
	got, ok, err := v.Load(password)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, testPhrase, got)
}

func TestSaveOverwritesPreviousEntry(t *testing.T) {
	v := testVault(t)
	password := []byte("pw")

	require.NoError(t, v.Save(testPhrase, "0xabc", password))
	other := "legal winner thank year wave sausage worth useful legal winner thank yellow"
	require.NoError(t, v.Save(other, "0xdef", password))

	got, ok, err := v.Load(password)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, other, got)
}
