package llmclient

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/droidpilot/api/schemas"
)

// setupRouter creates a router over two mocks plus a log observer.
func setupRouter(t *testing.T) (*LLMRouter, *MockLLMClient, *MockLLMClient, *observer.ObservedLogs) {
	t.Helper()
	loggerCore, observedLogs := observer.New(zap.DebugLevel)

	fastClient := &MockLLMClient{Name: "FastClient"}
	powerfulClient := &MockLLMClient{Name: "PowerfulClient"}

	router, err := NewLLMRouter(zap.New(loggerCore), fastClient, powerfulClient)
	require.NoError(t, err, "NewLLMRouter should initialize successfully")
	return router, fastClient, powerfulClient, observedLogs
}

func TestNewLLMRouter_Success(t *testing.T) {
	router, fastClient, powerfulClient, _ := setupRouter(t)
	require.NotNil(t, router)
	assert.Equal(t, fastClient, router.clients[schemas.TierFast])
	assert.Equal(t, powerfulClient, router.clients[schemas.TierPowerful])
}

func TestNewLLMRouter_Failure_MissingClients(t *testing.T) {
	logger := setupTestLogger(t)
	validClient := new(MockLLMClient)

	tests := []struct {
		name     string
		fast     schemas.LLMClient
		powerful schemas.LLMClient
	}{
		{"missing fast", nil, validClient},
		{"missing powerful", validClient, nil},
		{"missing both", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, err := NewLLMRouter(logger, tt.fast, tt.powerful)
			require.Error(t, err)
			assert.Nil(t, router)
			assert.Contains(t, err.Error(), "both fast and powerful tier clients must be provided")
		})
	}
}

func TestLLMRouter_Generate_Routing(t *testing.T) {
	ctx := context.Background()

	t.Run("fast tier", func(t *testing.T) {
		router, fast, powerful, logs := setupRouter(t)
		req := schemas.GenerationRequest{UserPrompt: "quick", Tier: schemas.TierFast}
		fast.On("Generate", ctx, req).Return("fast answer", nil).Once()

		out, err := router.Generate(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, "fast answer", out)
		fast.AssertExpectations(t)
		powerful.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)

		entries := logs.FilterMessage("Routing LLM request").All()
		require.Len(t, entries, 1)
		assert.Equal(t, "fast", entries[0].ContextMap()["tier"])
	})

	t.Run("empty tier defaults to powerful", func(t *testing.T) {
		router, fast, powerful, _ := setupRouter(t)
		req := schemas.GenerationRequest{UserPrompt: "think"}
		powerful.On("Generate", ctx, req).Return("deep answer", nil).Once()

		out, err := router.Generate(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, "deep answer", out)
		fast.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
	})

	t.Run("unknown tier", func(t *testing.T) {
		router, _, _, _ := setupRouter(t)
		_, err := router.Generate(ctx, schemas.GenerationRequest{Tier: "medium"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no LLM client configured for tier: medium")
	})

	t.Run("client error propagates", func(t *testing.T) {
		router, _, powerful, _ := setupRouter(t)
		boom := errors.New("quota exceeded")
		powerful.On("Generate", ctx, mock.Anything).Return("", boom).Once()

		_, err := router.Generate(ctx, schemas.GenerationRequest{Tier: schemas.TierPowerful})
		assert.ErrorIs(t, err, boom)
	})
}

func TestLLMRouter_Close(t *testing.T) {
	t.Run("closes both clients and aggregates errors", func(t *testing.T) {
		router, fast, powerful, _ := setupRouter(t)
		errFast := errors.New("fast close")
		errPowerful := errors.New("powerful close")
		fast.On("Close").Return(errFast).Once()
		powerful.On("Close").Return(errPowerful).Once()

		err := router.Close()
		assert.ErrorIs(t, err, errFast)
		assert.ErrorIs(t, err, errPowerful)
	})

	t.Run("shared client closed once", func(t *testing.T) {
		shared := new(MockLLMClient)
		shared.On("Close").Return(nil).Once()
		router, err := NewLLMRouter(zap.NewNop(), shared, shared)
		require.NoError(t, err)

		require.NoError(t, router.Close())
		shared.AssertNumberOfCalls(t, "Close", 1)
	})
}
