package address

import (
	"testing"

	"satotrack/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyBitcoin(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		subtype string
	}{
		{"legacy", "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa", SubtypeLegacy},
		{"segwit", "3J98t1WpEZ73CNmQviecrnyiWrnqRhWNLy", SubtypeSegwit},
		{"bech32", "bc1qar0srrr7xfkvy5l643lydnw9re59gtzzwf5mdq", SubtypeBech32},
		{"bech32 long", "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4", SubtypeBech32},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ok := Classify(tt.input)
			require.True(t, ok)
			assert.Equal(t, entity.NetworkBitcoin, c.Network)
			assert.Equal(t, tt.subtype, c.Subtype)
			assert.Equal(t, tt.input, c.Address)
			assert.Equal(t, "BTC", c.Network.Symbol())
		})
	}
}

// Bitcoin-shaped strings also satisfy the looser Solana regex; the ordered
// checks must still report them as Bitcoin.
func TestClassifyOrderingBitcoinBeforeSolana(t *testing.T) {
	c, ok := Classify("1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa")
	require.True(t, ok)
	assert.Equal(t, entity.NetworkBitcoin, c.Network)

	c, ok = Classify("3J98t1WpEZ73CNmQviecrnyiWrnqRhWNLy")
	require.True(t, ok)
	assert.Equal(t, entity.NetworkBitcoin, c.Network)
}

func TestClassifyEVM(t *testing.T) {
	tests := []string{
		"0xde0b295669a9fd93d5f28d9ec85e40f4cb697bae",
		"0xDE0B295669A9FD93D5F28D9EC85E40F4CB697BAE",
		"0x52908400098527886E0F7030069857D2E4169EE7", // checksum casing is irrelevant
	}
	for _, input := range tests {
		c, ok := Classify(input)
		require.True(t, ok, input)
		assert.Equal(t, entity.NetworkEthereum, c.Network)
		assert.Equal(t, SubtypeEVM, c.Subtype)
	}

	// 39 and 41 hex chars must not match.
	_, ok := Classify("0xde0b295669a9fd93d5f28d9ec85e40f4cb697ba")
	assert.False(t, ok)
	_, ok = Classify("0xde0b295669a9fd93d5f28d9ec85e40f4cb697bae1")
	assert.False(t, ok)
}

func TestClassifySolana(t *testing.T) {
	c, ok := Classify("DYw8jCTfwHNRJhhmFcbXvVDTqWMEVFBX6ZKUmG5CNSKK")
	require.True(t, ok)
	assert.Equal(t, entity.NetworkSolana, c.Network)
	assert.Equal(t, SubtypeBase58, c.Subtype)

	// A base58 string of Solana length but with a Bitcoin-style prefix is
	// rejected rather than misclassified.
	_, ok = Classify("1Yw8jCTfwHNRJhhmFcbXvVDTqWMEVFBX6ZKUmG5CNSK")
	assert.False(t, ok)
	_, ok = Classify("3Yw8jCTfwHNRJhhmFcbXvVDTqWMEVFBX6ZKUmG5CNSK")
	assert.False(t, ok)
}

func TestClassifyUnrecognized(t *testing.T) {
	for _, input := range []string{"", "   ", "not-an-address", "0x12345", "bc2qar0srrr7xfkvy5l643lydnw9re59gtzz"} {
		_, ok := Classify(input)
		assert.False(t, ok, "expected %q to be unrecognized", input)
	}
}

func TestClassifyTrimsWhitespace(t *testing.T) {
	trimmed, ok := Classify("1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa")
	require.True(t, ok)

	padded, ok := Classify(" 1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa ")
	require.True(t, ok)
	assert.Equal(t, trimmed, padded)
	assert.Equal(t, "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa", padded.Address)
}
