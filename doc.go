// Package pdm is a host-side driver for a power distribution module (PDM)
// reachable over a CRLF line-oriented serial link.
//
// The device continuously prints status text and answers single-line
// commands. A Client owns the serial port and one background reader per
// session; every line the reader frames is handed both to the command
// path, which waits for the next line that is not a "Received:" echo, and
// to the status parser, which turns telemetry into Events.
//
// # Basic Usage
//
//	client, err := pdm.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := client.Connect(ctx, "/dev/ttyUSB0"); err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Disconnect()
//
//	resp, err := client.SendCommand(ctx, "STATUS")
//
// Connect waits for the device's reset-on-open to complete (2 seconds by
// default) before flushing buffers and priming the link with STATUS.
//
// # Configuration Commands
//
// SendConfigCommand reports whether the firmware acknowledged a command
// with an "OK:" line. The builders in commands.go render the wire forms:
//
//	ok, err := client.SendConfigCommand(ctx, pdm.OvercurrentCommand(1, 15))
//
// # Telemetry
//
// Register a handler to receive parsed status lines as they arrive:
//
//	client.SetStatusHandler(func(ev pdm.Event) {
//	    switch ev := ev.(type) {
//	    case pdm.TemperatureEvent:
//	        fmt.Printf("board %.1f °C\n", ev.Celsius)
//	    case pdm.ChannelStatusEvent:
//	        fmt.Printf("CH%d active=%v %.2f A\n", ev.Channel+1, ev.Active, ev.Current)
//	    }
//	})
//
// The handler runs on the reader goroutine and must not block.
// SetLineHandler receives every raw line, echoes included, before parsing.
//
// GetDeviceStatus issues STATUS and assembles a DeviceStatus snapshot from
// the block the firmware prints.
//
// # Link Loss
//
// When a read fails mid-session, an unplugged USB adapter included, the
// reader stops and IsConnected turns false. No event is pushed; pending and later commands fail with
// ErrLinkLost until the caller reconnects.
//
// # Port Discovery
//
//	ports, err := pdm.AvailablePorts()
//	for _, path := range ports {
//	    info, _ := pdm.PortDetails(path)
//	    fmt.Printf("%s: %s\n", info.Path, info.Description)
//	}
package pdm
