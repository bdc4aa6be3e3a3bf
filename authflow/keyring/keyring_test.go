package keyring

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		secrets   []string
		wantErr   bool
		wantIsErr error
	}{
		{
			name:    "valid-single",
			secrets: []string{"current-secret"},
		},
		{
			name:    "valid-rotated",
			secrets: []string{"current-secret", "previous-secret"},
		},
		{
			name:      "no-secrets",
			secrets:   nil,
			wantErr:   true,
			wantIsErr: ErrNoSecrets,
		},
		{
			name:      "empty-secret",
			secrets:   []string{"current-secret", ""},
			wantErr:   true,
			wantIsErr: ErrInvalidSecret,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			got, err := New(tt.secrets...)
			if tt.wantErr {
				require.Error(err)
				assert.Truef(errors.Is(err, tt.wantIsErr), "wanted \"%s\" but got \"%s\"", tt.wantIsErr, err)
				return
			}
			require.NoError(err)
			require.NotNil(got)
		})
	}
}

func TestKeyring_VerificationKeys(t *testing.T) {
	t.Parallel()
	t.Run("deterministic", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		k, err := New("current-secret", "previous-secret")
		require.NoError(err)
		first, err := k.VerificationKeys("cookie signing", "state")
		require.NoError(err)
		second, err := k.VerificationKeys("cookie signing", "state")
		require.NoError(err)
		assert.Equal(first, second)

		// a fresh keyring with the same secrets derives the same keys
		other, err := New("current-secret", "previous-secret")
		require.NoError(err)
		got, err := other.VerificationKeys("cookie signing", "state")
		require.NoError(err)
		assert.Equal(first, got)
	})
	t.Run("ordered-per-secret", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		k, err := New("current-secret", "previous-secret")
		require.NoError(err)
		keys, err := k.VerificationKeys("cookie signing", "state")
		require.NoError(err)
		require.Len(keys, 2)
		assert.NotEqual(keys[0], keys[1])

		signing, err := k.SigningKey("cookie signing", "state")
		require.NoError(err)
		assert.Equal(keys[0], signing)
		assert.Len(signing, KeySize)
	})
	t.Run("bound-to-purpose-and-name", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		k, err := New("current-secret")
		require.NoError(err)
		state, err := k.SigningKey("cookie signing", "state")
		require.NoError(err)
		nonce, err := k.SigningKey("cookie signing", "nonce")
		require.NoError(err)
		session, err := k.SigningKey("session signing", "state")
		require.NoError(err)
		assert.NotEqual(state, nonce)
		assert.NotEqual(state, session)

		// length-prefixed info means shifting bytes between purpose and
		// name yields different keys
		a, err := k.SigningKey("ab", "c")
		require.NoError(err)
		b, err := k.SigningKey("a", "bc")
		require.NoError(err)
		assert.NotEqual(a, b)
	})
}
