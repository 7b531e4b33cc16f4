package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeUUID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		// 16-bit UUID formats
		{name: "16-bit UUID lowercase", input: "2902", expected: "2902"},
		{name: "16-bit UUID with 0x prefix", input: "0x2902", expected: "2902"},
		{name: "16-bit UUID with 0X prefix uppercase", input: "0X180D", expected: "180d"},

		// Bluetooth SIG base UUID format (should extract 16-bit form)
		{name: "Full Bluetooth SIG UUID with dashes", input: "00002902-0000-1000-8000-00805f9b34fb", expected: "2902"},
		{name: "Full Bluetooth SIG UUID uppercase", input: "0000180D-0000-1000-8000-00805F9B34FB", expected: "180d"},

		// Custom 128-bit UUIDs (should NOT be shortened)
		{name: "Nordic UART service", input: "6E400001-B5A3-F393-E0A9-E50E24DCCA9E", expected: "6e400001b5a3f393e0a9e50e24dcca9e"},
		{name: "Nordic UART RX without dashes", input: "6e400002b5a3f393e0a9e50e24dcca9e", expected: "6e400002b5a3f393e0a9e50e24dcca9e"},

		// Malformed
		{name: "empty", input: "", expected: ""},
		{name: "non-hex characters", input: "zz02", expected: ""},
		{name: "odd length", input: "12345", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeUUID(tt.input))
		})
	}
}

func TestEqualUUID(t *testing.T) {
	assert.True(t, EqualUUID("6E400002-B5A3-F393-E0A9-E50E24DCCA9E", "6e400002b5a3f393e0a9e50e24dcca9e"))
	assert.True(t, EqualUUID("180d", "0000180d-0000-1000-8000-00805f9b34fb"))
	assert.False(t, EqualUUID("6E400002-B5A3-F393-E0A9-E50E24DCCA9E", "6E400003-B5A3-F393-E0A9-E50E24DCCA9E"))
	assert.False(t, EqualUUID("", ""), "malformed UUIDs never match")
}

func TestNormalizeUUIDs(t *testing.T) {
	assert.Equal(t, []string{"2902", "180d"}, NormalizeUUIDs([]string{"0x2902", "180D"}))
	assert.Empty(t, NormalizeUUIDs(nil))
}
