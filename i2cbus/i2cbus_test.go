package i2cbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenDevfsDefaults(t *testing.T) {
	c, err := Open("", "")
	require.NoError(t, err)
	d, ok := c.(*Devfs)
	require.True(t, ok)
	assert.Equal(t, "/dev/i2c-1", d.path)

	// Nothing is opened until an address is selected.
	_, err = d.ReadReg(0xB2)
	assert.ErrorIs(t, err, ErrNoAddress)
	assert.NoError(t, d.Close())
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open("spi", "")
	assert.Error(t, err)
}
