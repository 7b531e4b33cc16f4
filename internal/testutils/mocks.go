package testutils

import (
	"context"

	"github.com/srg/moonlink/internal/device"
	"github.com/stretchr/testify/mock"
)

// MockDialer is a testify mock of device.Dialer
type MockDialer struct {
	mock.Mock
}

var _ device.Dialer = (*MockDialer)(nil)

func (m *MockDialer) Dial(ctx context.Context, adv device.Advertisement) (device.Client, error) {
	args := m.Called(ctx, adv)
	client, _ := args.Get(0).(device.Client)
	return client, args.Error(1)
}

// MockClient is a testify mock of device.Client
type MockClient struct {
	mock.Mock
}

var _ device.Client = (*MockClient)(nil)

func (m *MockClient) Address() string {
	return m.Called().String(0)
}

func (m *MockClient) DiscoverServices(ctx context.Context, filter []string) ([]device.Service, error) {
	args := m.Called(ctx, filter)
	services, _ := args.Get(0).([]device.Service)
	return services, args.Error(1)
}

func (m *MockClient) Disconnected() <-chan struct{} {
	args := m.Called()
	ch, _ := args.Get(0).(chan struct{})
	return ch
}

func (m *MockClient) Disconnect() error {
	return m.Called().Error(0)
}

// MockCharacteristic is a testify mock of device.Characteristic
type MockCharacteristic struct {
	mock.Mock
}

var _ device.Characteristic = (*MockCharacteristic)(nil)

func (m *MockCharacteristic) UUID() string {
	return m.Called().String(0)
}

func (m *MockCharacteristic) CanWriteWithoutResponse() bool {
	return m.Called().Bool(0)
}

func (m *MockCharacteristic) WriteFrame(frame string) error {
	return m.Called(frame).Error(0)
}

// Service is a plain device.Service for mocked discovery results
type Service struct {
	ServiceUUID string
	Chars       []device.Characteristic
}

func (s *Service) UUID() string                             { return s.ServiceUUID }
func (s *Service) Characteristics() []device.Characteristic { return s.Chars }

// NewWritableCharacteristic returns a mock characteristic accepting every write
func NewWritableCharacteristic(uuid string) *MockCharacteristic {
	c := &MockCharacteristic{}
	c.On("UUID").Return(uuid).Maybe()
	c.On("CanWriteWithoutResponse").Return(true).Maybe()
	c.On("WriteFrame", mock.Anything).Return(nil).Maybe()
	return c
}
