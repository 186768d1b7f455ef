package cryptox

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	tests := []struct {
		name   string
		size   int
		encLen int
	}{
		{"128-bit token", TokenSize128, 22},
		{"256-bit token", TokenSize256, 43},
		{"512-bit token", TokenSize512, 86},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := GenerateToken(tt.size)
			require.NoError(t, err)
			require.Len(t, token, tt.encLen)

			token2, err := GenerateToken(tt.size)
			require.NoError(t, err)
			require.NotEqual(t, token, token2, "tokens should be unique")
		})
	}
}

func TestGenerateToken_InvalidSize(t *testing.T) {
	for _, size := range []int{0, -1} {
		token, err := GenerateToken(size)
		require.Error(t, err)
		require.Empty(t, token)
	}
}

func TestFingerprintToken(t *testing.T) {
	a := FingerprintToken("3f1c2c9e-8c55-4b5b-a1de-6f5d1f6a7e01")
	b := FingerprintToken("3f1c2c9e-8c55-4b5b-a1de-6f5d1f6a7e01")
	c := FingerprintToken("3f1c2c9e-8c55-4b5b-a1de-6f5d1f6a7e02")

	require.Equal(t, a, b)
	require.NotEqual(t, a, c)
	require.Len(t, a, 43)
}

func TestKeyID(t *testing.T) {
	kid := KeyID([]byte("0123456789abcdef0123456789abcdef"))
	require.Len(t, kid, 16)
	require.Equal(t, kid, KeyID([]byte("0123456789abcdef0123456789abcdef")))
	require.NotEqual(t, kid, KeyID([]byte("fedcba9876543210fedcba9876543210")))
}
