package pdm

import (
	"runtime"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAvailablePortsSorted(t *testing.T) {
	t.Parallel()

	ports, err := AvailablePorts()
	require.NoError(t, err)
	assert.True(t, sort.StringsAreSorted(ports))
}

func TestPortDetailsMissing(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("COM names are not checked for existence")
	}

	_, err := PortDetails("/dev/ttyPDM-does-not-exist")
	require.ErrorIs(t, err, ErrDeviceNotFound)
}
