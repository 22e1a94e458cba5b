package i2cbus

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDevfsDevice struct {
	addr     int
	regs     map[byte][]byte
	writes   [][]byte
	closeErr error
	closed   bool
}

func (f *fakeDevfsDevice) ReadReg(reg byte, buf []byte) error {
	copy(buf, f.regs[reg])
	return nil
}

func (f *fakeDevfsDevice) WriteReg(reg byte, buf []byte) error {
	f.writes = append(f.writes, append([]byte{reg}, buf...))
	return nil
}

func (f *fakeDevfsDevice) Close() error {
	f.closed = true
	return f.closeErr
}

func newFakeDevfs(devices *[]*fakeDevfsDevice) *Devfs {
	d := NewDevfs("/dev/i2c-test")
	d.open = func(path string, addr int) (devfsDevice, error) {
		dev := &fakeDevfsDevice{addr: addr, regs: map[byte][]byte{0xB4: {0x34, 0x12}, 0xB2: {0x50}}}
		*devices = append(*devices, dev)
		return dev, nil
	}
	return d
}

func TestDevfsRegisterAccess(t *testing.T) {
	var devices []*fakeDevfsDevice
	d := newFakeDevfs(&devices)

	require.NoError(t, d.SetAddress(0x29))
	require.Len(t, devices, 1)
	assert.Equal(t, 0x29, devices[0].addr)

	id, err := d.ReadReg(0xB2)
	require.NoError(t, err)
	assert.Equal(t, byte(0x50), id)

	word, err := d.ReadWordLE(0xB4)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1234), word)

	require.NoError(t, d.WriteReg(0xA0, 0x93))
	assert.Equal(t, [][]byte{{0xA0, 0x93}}, devices[0].writes)

	require.NoError(t, d.Close())
	assert.True(t, devices[0].closed)
	_, err = d.ReadReg(0xB2)
	assert.ErrorIs(t, err, ErrNoAddress)
}

func TestDevfsReselectLogsCloseFailure(t *testing.T) {
	hook := logtest.NewGlobal()
	defer hook.Reset()

	var devices []*fakeDevfsDevice
	d := newFakeDevfs(&devices)
	require.NoError(t, d.SetAddress(0x29))
	devices[0].closeErr = errors.New("bad file descriptor")

	require.NoError(t, d.SetAddress(0x28))
	require.Len(t, devices, 2)
	assert.True(t, devices[0].closed)
	assert.Equal(t, 0x28, devices[1].addr)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Contains(t, entry.Message, "bad file descriptor")
	assert.Contains(t, entry.Message, "0x28")
}

func TestDevfsOpenFailure(t *testing.T) {
	d := NewDevfs("/dev/i2c-test")
	d.open = func(string, int) (devfsDevice, error) {
		return nil, errors.New("no such file or directory")
	}
	err := d.SetAddress(0x29)
	assert.ErrorContains(t, err, "Failed to open /dev/i2c-test")
	_, err = d.ReadReg(0xB2)
	assert.ErrorIs(t, err, ErrNoAddress)
}
