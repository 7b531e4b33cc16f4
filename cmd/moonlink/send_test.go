package main

import (
	"errors"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/srg/moonlink/internal/device"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type SendTestSuite struct {
	CommandTestSuite
}

func (s *SendTestSuite) newSendCmd() *cobra.Command {
	return &cobra.Command{Use: "send <payload>", Args: cobra.ExactArgs(1), RunE: runSend}
}

func (s *SendTestSuite) TestSendWritesChunkedPayload() {
	root := s.NewRoot(s.newSendCmd())

	out, err := s.ExecuteCommand(root, "send", "--chunk-size", "6", "l#S12,P40,E197#")

	s.Require().NoError(err)
	s.Contains(out, "Sent 15 bytes to "+TestDeviceAddress)
	s.Equal([]string{"l#S12,", "P40,E1", "97#"}, s.written.Frames())
	s.client.AssertCalled(s.T(), "Disconnect")
	s.Equal(1, s.radio.Starts())
}

func (s *SendTestSuite) TestSendRejectsEmptyPayload() {
	root := s.NewRoot(s.newSendCmd())

	_, err := s.ExecuteCommand(root, "send", "  ")

	s.Require().Error(err)
	s.Contains(err.Error(), "payload must not be empty")
	s.Equal(0, s.radio.Starts())
}

func (s *SendTestSuite) TestSendRejectsInvalidChunkSize() {
	root := s.NewRoot(s.newSendCmd())

	_, err := s.ExecuteCommand(root, "send", "--chunk-size", "64", "l#S1#")

	s.Require().Error(err)
	s.Contains(err.Error(), "chunk size must be between 1 and 20")
}

func (s *SendTestSuite) TestSendReportsMissingService() {
	s.client.ExpectedCalls = nil
	s.client.On("Address").Return(TestDeviceAddress).Maybe()
	s.client.On("DiscoverServices", mock.Anything, mock.Anything).Return([]device.Service{}, nil)
	s.client.On("Disconnect").Return(nil)
	root := s.NewRoot(s.newSendCmd())

	_, err := s.ExecuteCommand(root, "send", "l#S1#")

	s.Require().Error(err)
	s.ErrorIs(err, device.ErrServiceNotFound)
	s.True(strings.HasPrefix(FormatUserError(err), "the device found does not look like a MoonBoard"))
	s.Empty(s.written.Frames())
}

func (s *SendTestSuite) TestSendReportsWriteFailure() {
	s.rx.ExpectedCalls = nil
	s.rx.On("UUID").Return("6E400002-B5A3-F393-E0A9-E50E24DCCA9E").Maybe()
	s.rx.On("CanWriteWithoutResponse").Return(true).Maybe()
	s.rx.On("WriteFrame", mock.Anything).Return(errors.New("link dropped"))
	root := s.NewRoot(s.newSendCmd())

	_, err := s.ExecuteCommand(root, "send", "l#S1#")

	s.Require().Error(err)
	s.ErrorIs(err, device.ErrTransmit)
	s.Contains(FormatUserError(err), "the board stopped accepting data")
}

func TestSendTestSuite(t *testing.T) {
	suite.Run(t, new(SendTestSuite))
}
