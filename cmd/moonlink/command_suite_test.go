package main

import (
	"bytes"
	"encoding/base64"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/srg/moonlink/internal/device"
	"github.com/srg/moonlink/internal/session"
	"github.com/srg/moonlink/internal/testutils"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

// Test device address for consistent mock device identification
const TestDeviceAddress = "00:00:00:00:00:01"

// fakeRadio scans from a script and dials through a testify mock
type fakeRadio struct {
	*testutils.FakeScanner
	*testutils.MockDialer
}

// frameRecorder collects the decoded payload bytes written to the RX characteristic
type frameRecorder struct {
	mu     sync.Mutex
	frames []string
}

func (r *frameRecorder) record(args mock.Arguments) {
	raw, err := base64.StdEncoding.DecodeString(args.String(0))
	if err != nil {
		panic(err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, string(raw))
}

func (r *frameRecorder) Frames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.frames...)
}

// CommandTestSuite wires commands to a scripted radio instead of real hardware
type CommandTestSuite struct {
	suite.Suite
	helper   *testutils.TestHelper
	radio    *fakeRadio
	client   *testutils.MockClient
	rx       *testutils.MockCharacteristic
	written  *frameRecorder
	oldRadio func(string, *logrus.Logger) (device.Backend, error)
}

func (s *CommandTestSuite) SetupTest() {
	s.helper = testutils.NewTestHelper(s.T())
	s.written = &frameRecorder{}

	s.rx = &testutils.MockCharacteristic{}
	s.rx.On("UUID").Return(session.SerialRxCharUUID).Maybe()
	s.rx.On("CanWriteWithoutResponse").Return(true).Maybe()
	s.rx.On("WriteFrame", mock.Anything).Run(s.written.record).Return(nil).Maybe()

	s.client = &testutils.MockClient{}
	s.client.On("Address").Return(TestDeviceAddress).Maybe()
	s.client.On("DiscoverServices", mock.Anything, mock.Anything).Return([]device.Service{
		&testutils.Service{ServiceUUID: session.SerialServiceUUID, Chars: []device.Characteristic{s.rx}},
	}, nil).Maybe()
	s.client.On("Disconnected").Return(make(chan struct{})).Maybe()
	s.client.On("Disconnect").Return(nil).Maybe()

	dialer := &testutils.MockDialer{}
	dialer.On("Dial", mock.Anything, mock.Anything).Return(s.client, nil).Maybe()

	board := testutils.CreateMockAdvertisement("MoonBoard A", TestDeviceAddress, -50).Build()
	s.radio = &fakeRadio{
		FakeScanner: testutils.NewFakeScanner(testutils.ScanStep{Advertisement: board}),
		MockDialer:  dialer,
	}

	s.oldRadio = newRadio
	newRadio = func(string, *logrus.Logger) (device.Backend, error) { return s.radio, nil }
}

func (s *CommandTestSuite) TearDownTest() {
	newRadio = s.oldRadio
}

// NewRoot builds a fresh command tree so flag state never leaks between tests
func (s *CommandTestSuite) NewRoot(cmds ...*cobra.Command) *cobra.Command {
	root := &cobra.Command{Use: "moonlink", SilenceErrors: true}
	registerGlobalFlags(root)
	root.AddCommand(cmds...)
	return root
}

// ExecuteCommand runs a cobra command with args, returns output and error.
func (s *CommandTestSuite) ExecuteCommand(cmd *cobra.Command, args ...string) (string, error) {
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}
