package testutils

import (
	"encoding/json"
	"fmt"

	"github.com/srg/moonlink/internal/device"
)

// Advertisement is a plain device.Advertisement used by tests
type Advertisement struct {
	Name          string   `json:"name"`
	Address       string   `json:"address"`
	Signal        int      `json:"rssi"`
	IsConnectable bool     `json:"connectable"`
	ServiceUUIDs  []string `json:"services,omitempty"`
}

var _ device.Advertisement = (*Advertisement)(nil)

func (a *Advertisement) LocalName() string  { return a.Name }
func (a *Advertisement) Addr() string       { return a.Address }
func (a *Advertisement) RSSI() int          { return a.Signal }
func (a *Advertisement) Connectable() bool  { return a.IsConnectable }
func (a *Advertisement) Services() []string { return a.ServiceUUIDs }

// AdvertisementBuilder builds mocked BLE advertisements for testing.
// The builder starts with connectable=true.
type AdvertisementBuilder struct {
	adv Advertisement
}

// NewAdvertisementBuilder creates a new AdvertisementBuilder with default values.
func NewAdvertisementBuilder() *AdvertisementBuilder {
	return &AdvertisementBuilder{adv: Advertisement{IsConnectable: true}}
}

// WithName sets the local name for the advertisement.
func (b *AdvertisementBuilder) WithName(name string) *AdvertisementBuilder {
	b.adv.Name = name
	return b
}

// WithAddress sets the device address for the advertisement.
func (b *AdvertisementBuilder) WithAddress(addr string) *AdvertisementBuilder {
	b.adv.Address = addr
	return b
}

// WithRSSI sets the signal strength for the advertisement.
func (b *AdvertisementBuilder) WithRSSI(rssi int) *AdvertisementBuilder {
	b.adv.Signal = rssi
	return b
}

// WithServices adds service UUIDs to the advertisement.
func (b *AdvertisementBuilder) WithServices(uuids ...string) *AdvertisementBuilder {
	b.adv.ServiceUUIDs = append(b.adv.ServiceUUIDs, uuids...)
	return b
}

// WithConnectable sets whether the device accepts connections.
func (b *AdvertisementBuilder) WithConnectable(c bool) *AdvertisementBuilder {
	b.adv.IsConnectable = c
	return b
}

// FromJSON fills builder fields from a JSON string with format support.
// Panics on invalid JSON as this is intended for test data setup.
func (b *AdvertisementBuilder) FromJSON(jsonStrFmt string, args ...interface{}) *AdvertisementBuilder {
	jsonStr := fmt.Sprintf(jsonStrFmt, args...)
	if err := json.Unmarshal([]byte(jsonStr), &b.adv); err != nil {
		panic(fmt.Sprintf("FromJSON: failed to unmarshal: %v", err))
	}
	return b
}

// Build returns a copy of the configured advertisement
func (b *AdvertisementBuilder) Build() *Advertisement {
	adv := b.adv
	adv.ServiceUUIDs = append([]string(nil), b.adv.ServiceUUIDs...)
	return &adv
}
