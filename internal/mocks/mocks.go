// File: internal/mocks/mocks.go
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/xkilldash9x/droidpilot/api/schemas"
	"github.com/xkilldash9x/droidpilot/internal/config"
)

// -- Config Mock --

// MockConfig mocks the config.Interface.
type MockConfig struct {
	mock.Mock
}

func (m *MockConfig) Logger() config.LoggerConfig {
	return m.Called().Get(0).(config.LoggerConfig)
}

func (m *MockConfig) Device() config.DeviceConfig {
	return m.Called().Get(0).(config.DeviceConfig)
}

func (m *MockConfig) Agent() config.AgentConfig {
	return m.Called().Get(0).(config.AgentConfig)
}

func (m *MockConfig) Report() config.ReportConfig {
	return m.Called().Get(0).(config.ReportConfig)
}

func (m *MockConfig) Run() config.RunConfig {
	return m.Called().Get(0).(config.RunConfig)
}

func (m *MockConfig) SetRunConfig(rc config.RunConfig) { m.Called(rc) }
func (m *MockConfig) SetAgentMaxSteps(n int)           { m.Called(n) }
func (m *MockConfig) SetDeviceSerial(s string)         { m.Called(s) }
func (m *MockConfig) SetReportFormats(f []string)      { m.Called(f) }
func (m *MockConfig) SetReportOutputDir(d string)      { m.Called(d) }

var _ config.Interface = (*MockConfig)(nil)

// -- LLM Client Mock --

// MockLLMClient mocks the schemas.LLMClient interface.
type MockLLMClient struct {
	mock.Mock
}

// Generate honours an already-cancelled context before consulting expectations.
func (m *MockLLMClient) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *MockLLMClient) Close() error {
	return m.Called().Error(0)
}

var _ schemas.LLMClient = (*MockLLMClient)(nil)
