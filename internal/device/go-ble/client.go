package goble

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"
	"github.com/srg/moonlink/internal/device"
)

// bleClient adapts ble.Client to device.Client
type bleClient struct {
	client ble.Client
	logger *logrus.Logger
}

func newClient(client ble.Client, logger *logrus.Logger) *bleClient {
	return &bleClient{client: client, logger: logger}
}

func (c *bleClient) Address() string {
	return c.client.Addr().String()
}

// DiscoverServices discovers the filtered services and their characteristics.
// go-ble discovery is not context aware, so ctx is only checked between round trips.
func (c *bleClient) DiscoverServices(ctx context.Context, filter []string) ([]device.Service, error) {
	uuids := make([]ble.UUID, 0, len(filter))
	for _, s := range filter {
		u, err := ble.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("invalid service UUID %q: %w", s, err)
		}
		uuids = append(uuids, u)
	}

	bleServices, err := c.client.DiscoverServices(uuids)
	if err != nil {
		return nil, NormalizeError(err)
	}

	services := make([]device.Service, 0, len(bleServices))
	for _, svc := range bleServices {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		chars, err := c.client.DiscoverCharacteristics(nil, svc)
		if err != nil {
			return nil, NormalizeError(err)
		}

		s := &bleService{uuid: svc.UUID.String()}
		for _, ch := range chars {
			s.chars = append(s.chars, &bleCharacteristic{client: c.client, char: ch})
		}
		c.logger.WithFields(logrus.Fields{
			"service_uuid":    s.uuid,
			"characteristics": len(s.chars),
		}).Debug("Found service")
		services = append(services, s)
	}
	return services, nil
}

// Disconnected exposes the go-ble client disconnect channel when the platform provides one
func (c *bleClient) Disconnected() <-chan struct{} {
	if dc, ok := c.client.(interface{ Disconnected() <-chan struct{} }); ok {
		return dc.Disconnected()
	}
	return nil
}

func (c *bleClient) Disconnect() error {
	return NormalizeError(c.client.CancelConnection())
}

type bleService struct {
	uuid  string
	chars []device.Characteristic
}

func (s *bleService) UUID() string                             { return s.uuid }
func (s *bleService) Characteristics() []device.Characteristic { return s.chars }

type bleCharacteristic struct {
	client ble.Client
	char   *ble.Characteristic
}

func (c *bleCharacteristic) UUID() string {
	return c.char.UUID.String()
}

func (c *bleCharacteristic) CanWriteWithoutResponse() bool {
	return c.char.Property&ble.CharWriteNR != 0
}

// WriteFrame decodes the text frame and issues a write command
func (c *bleCharacteristic) WriteFrame(frame string) error {
	data, err := base64.StdEncoding.DecodeString(frame)
	if err != nil {
		return fmt.Errorf("invalid frame: %w", err)
	}
	return NormalizeError(c.client.WriteCharacteristic(c.char, data, true))
}
