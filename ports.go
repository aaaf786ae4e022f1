package pdm

import "github.com/allbin/go-pdm/internal/serialport"

// PortInfo describes a serial port and, for USB adapters, the device behind it
type PortInfo = serialport.PortInfo

// AvailablePorts returns the sorted device paths of serial ports on this host
func AvailablePorts() ([]string, error) {
	return serialport.ListPorts()
}

// PortDetails returns the description and USB metadata of the port at path
func PortDetails(path string) (*PortInfo, error) {
	return serialport.GetPortInfo(path)
}
