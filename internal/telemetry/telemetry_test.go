package telemetry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ffarras/multi-ad-login/internal/config"
	"github.com/ffarras/multi-ad-login/internal/telemetry"
)

func TestProviderDisabledWithoutEndpoint(t *testing.T) {
	cfg := config.Config{ServiceName: "madl-test"}

	provider, err := telemetry.New(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, provider.Tracer())
	require.NoError(t, provider.Shutdown(context.Background()))
}
