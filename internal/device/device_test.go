package device

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubBackend struct{}

func (stubBackend) Scan(context.Context, bool, func(Advertisement)) error { return nil }

func (stubBackend) Dial(context.Context, Advertisement) (Client, error) {
	return nil, Newf(Radio, "no adapter")
}

var _ Backend = stubBackend{}

func TestBackendDialFailureIsRadioKind(t *testing.T) {
	var b Backend = stubBackend{}

	_, err := b.Dial(context.Background(), nil)

	assert.ErrorIs(t, err, ErrRadio)
	assert.Equal(t, Radio, KindOf(err))
}
