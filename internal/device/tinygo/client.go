package tinyble

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/srg/moonlink/internal/device"
	"tinygo.org/x/bluetooth"
)

type client struct {
	dev     bluetooth.Device
	address string
	logger  *logrus.Logger
}

func (c *client) Address() string { return c.address }

func (c *client) DiscoverServices(ctx context.Context, filter []string) ([]device.Service, error) {
	uuids := make([]bluetooth.UUID, 0, len(filter))
	for _, s := range filter {
		u, err := bluetooth.ParseUUID(s)
		if err != nil {
			return nil, fmt.Errorf("invalid service UUID %q: %w", s, err)
		}
		uuids = append(uuids, u)
	}

	discovered, err := c.dev.DiscoverServices(uuids)
	if err != nil {
		return nil, device.NormalizeError(err)
	}

	services := make([]device.Service, 0, len(discovered))
	for _, svc := range discovered {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		chars, err := svc.DiscoverCharacteristics(nil)
		if err != nil {
			return nil, device.NormalizeError(err)
		}

		s := &service{uuid: svc.UUID().String()}
		for _, ch := range chars {
			s.chars = append(s.chars, &characteristic{char: ch})
		}
		c.logger.WithFields(logrus.Fields{
			"service_uuid":    s.uuid,
			"characteristics": len(s.chars),
		}).Debug("Found service")
		services = append(services, s)
	}
	return services, nil
}

// Disconnected returns nil: tinygo reports link loss through a process-wide connect
// handler, so a dropped link surfaces as a failed write instead.
func (c *client) Disconnected() <-chan struct{} { return nil }

func (c *client) Disconnect() error {
	return device.NormalizeError(c.dev.Disconnect())
}

type service struct {
	uuid  string
	chars []device.Characteristic
}

func (s *service) UUID() string                             { return s.uuid }
func (s *service) Characteristics() []device.Characteristic { return s.chars }

type characteristic struct {
	char bluetooth.DeviceCharacteristic
}

func (c *characteristic) UUID() string { return c.char.UUID().String() }

// CanWriteWithoutResponse is optimistic: tinygo does not expose characteristic properties
// on every host, an unsupported write fails at WriteFrame.
func (c *characteristic) CanWriteWithoutResponse() bool { return true }

func (c *characteristic) WriteFrame(frame string) error {
	data, err := base64.StdEncoding.DecodeString(frame)
	if err != nil {
		return fmt.Errorf("invalid frame: %w", err)
	}
	if _, err := c.char.WriteWithoutResponse(data); err != nil {
		return device.NormalizeError(err)
	}
	return nil
}
