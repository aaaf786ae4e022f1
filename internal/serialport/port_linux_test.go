//go:build linux

package serialport

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// openPty allocates a pseudo terminal and returns its master descriptor,
// the slave device path and a func that closes the master once
func openPty(t *testing.T) (int, string, func()) {
	t.Helper()

	master, err := unix.Open("/dev/ptmx", unix.O_RDWR|unix.O_NOCTTY|unix.O_CLOEXEC, 0)
	if err != nil {
		t.Skipf("pseudo terminals unavailable: %v", err)
	}

	var once sync.Once
	closeMaster := func() { once.Do(func() { _ = unix.Close(master) }) }
	t.Cleanup(closeMaster)

	require.NoError(t, unix.IoctlSetPointerInt(master, unix.TIOCSPTLCK, 0))
	n, err := unix.IoctlGetUint32(master, unix.TIOCGPTN)
	require.NoError(t, err)

	return master, fmt.Sprintf("/dev/pts/%d", n), closeMaster
}

func openSlave(t *testing.T, path string, timeout time.Duration) Port {
	t.Helper()

	p, err := Open(path, WithReadTimeout(timeout))
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestPortReadTimeout(t *testing.T) {
	t.Parallel()

	_, slave, _ := openPty(t)
	p := openSlave(t, slave, 100*time.Millisecond)

	buf := make([]byte, 64)
	start := time.Now()
	n, err := p.Read(buf)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Zero(t, n)
	assert.GreaterOrEqual(t, elapsed, 80*time.Millisecond)
	assert.Less(t, elapsed, 2*time.Second)
}

func TestPortReadWrite(t *testing.T) {
	t.Parallel()

	master, slave, _ := openPty(t)
	p := openSlave(t, slave, time.Second)

	_, err := unix.Write(master, []byte("PDM ready\r\n"))
	require.NoError(t, err)

	buf := make([]byte, 64)
	n, err := p.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "PDM ready\r\n", string(buf[:n]))

	_, err = p.Write([]byte("STATUS\r\n"))
	require.NoError(t, err)
	require.NoError(t, p.Drain())

	n, err = unix.Read(master, buf)
	require.NoError(t, err)
	assert.Equal(t, "STATUS\r\n", string(buf[:n]))
}

func TestPortHangupEndsReads(t *testing.T) {
	t.Parallel()

	_, slave, closeMaster := openPty(t)
	p := openSlave(t, slave, 5*time.Second)

	closeMaster()

	buf := make([]byte, 64)
	for range 3 {
		start := time.Now()
		n, err := p.Read(buf)
		require.ErrorIs(t, err, ErrPortClosed)
		assert.Zero(t, n)
		assert.Less(t, time.Since(start), time.Second)
	}
}

func TestPortCloseInterruptsRead(t *testing.T) {
	t.Parallel()

	_, slave, _ := openPty(t)
	p, err := Open(slave, WithReadTimeout(10*time.Second))
	require.NoError(t, err)

	result := make(chan error, 1)
	go func() {
		_, err := p.Read(make([]byte, 64))
		result <- err
	}()

	// let the reader reach poll
	time.Sleep(50 * time.Millisecond)

	start := time.Now()
	require.NoError(t, p.Close())

	select {
	case err := <-result:
		require.ErrorIs(t, err, ErrPortClosed)
	case <-time.After(time.Second):
		t.Fatal("Read still blocked after Close")
	}
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestPortUseAfterClose(t *testing.T) {
	t.Parallel()

	_, slave, _ := openPty(t)
	p, err := Open(slave, WithReadTimeout(100*time.Millisecond))
	require.NoError(t, err)
	require.NoError(t, p.Close())

	require.ErrorIs(t, p.Close(), ErrPortClosed)

	_, err = p.Read(make([]byte, 8))
	require.ErrorIs(t, err, ErrPortClosed)
	_, err = p.Write([]byte("x"))
	require.ErrorIs(t, err, ErrPortClosed)
	require.ErrorIs(t, p.FlushInput(), ErrPortClosed)
	require.ErrorIs(t, p.FlushOutput(), ErrPortClosed)
	require.ErrorIs(t, p.Drain(), ErrPortClosed)
}
