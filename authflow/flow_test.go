package authflow

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewFlow(t *testing.T) {
	t.Parallel()
	validConfig := func(t *testing.T) *Config {
		c, err := NewConfig(
			"https://issuer.example.com/",
			"client-id",
			"http://www.acme.com",
			[]Secret{"a-secret"},
		)
		require.NoError(t, err)
		return c
	}
	t.Run("valid", func(t *testing.T) {
		require := require.New(t)
		f, err := NewFlow(validConfig(t), &testIdp{})
		require.NoError(err)
		require.NotNil(f)
	})
	t.Run("nil-config", func(t *testing.T) {
		require := require.New(t)
		_, err := NewFlow(nil, &testIdp{})
		require.ErrorIs(err, ErrNilParameter)
	})
	t.Run("nil-provider", func(t *testing.T) {
		require := require.New(t)
		_, err := NewFlow(validConfig(t), nil)
		require.ErrorIs(err, ErrNilParameter)
	})
	t.Run("invalid-config", func(t *testing.T) {
		require := require.New(t)
		_, err := NewFlow(&Config{}, &testIdp{})
		require.ErrorIs(err, ErrInvalidParameter)
	})
}

func TestApplyOpts(t *testing.T) {
	// ApplyOpts testing is covered by other tests but we do have just one
	// more test to add here.
	// Let's make sure we don't panic on nil options
	anonymousOpts := struct {
		Names []string
	}{
		nil,
	}
	ApplyOpts(anonymousOpts, nil)
}
