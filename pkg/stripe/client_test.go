package stripe

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendibook/vendibook-backend/pkg/config"
	"github.com/vendibook/vendibook-backend/pkg/logger"
)

func TestNewClientValidatesKeyAgainstEnvironment(t *testing.T) {
	ctx := context.Background()

	_, err := NewClient(ctx, config.StripeConfig{Env: "test"}, nil)
	require.ErrorIs(t, err, errAPIKeyRequired)

	_, err = NewClient(ctx, config.StripeConfig{Env: "live", APIKey: "sk_test_123"}, nil)
	require.Error(t, err)

	_, err = NewClient(ctx, config.StripeConfig{Env: "staging", APIKey: "sk_test_123"}, nil)
	require.ErrorIs(t, err, errInvalidStripeEnv)

	client, err := NewClient(ctx, config.StripeConfig{APIKey: "rk_test_abc", Currency: " USD "}, nil)
	require.NoError(t, err)
	assert.Equal(t, "test", client.Environment())
	assert.Equal(t, "usd", client.Currency())
}

func TestNilClientAccessors(t *testing.T) {
	var client *Client
	assert.Empty(t, client.Environment())
	assert.Empty(t, client.Currency())
}

func TestBackendConfigAppliesRetriesAndTimeout(t *testing.T) {
	bc := backendConfig(config.StripeConfig{MaxRetries: -3, Timeout: 5 * time.Second}, nil)
	require.NotNil(t, bc.MaxNetworkRetries)
	assert.Equal(t, int64(0), *bc.MaxNetworkRetries)
	assert.Equal(t, 5*time.Second, bc.HTTPClient.Timeout)
	assert.Nil(t, bc.LeveledLogger)

	buf := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "test", Output: buf})
	bc = backendConfig(config.StripeConfig{MaxRetries: 2}, logg)
	assert.Equal(t, int64(2), *bc.MaxNetworkRetries)
	bc.LeveledLogger.Warnf("request to %s failed", "/v1/transfers")
	assert.Contains(t, buf.String(), `"component":"stripe"`)
	assert.Contains(t, buf.String(), "/v1/transfers")
}
