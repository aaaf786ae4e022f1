//go:build !linux

package serialport

import (
	"fmt"
	"os"
	"runtime"

	"go.bug.st/serial"
)

func listPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}
	return ports, nil
}

func portExists(path string) bool {
	// COM names are not filesystem paths
	if runtime.GOOS == "windows" {
		return path != ""
	}
	_, err := os.Stat(path)
	return err == nil
}
