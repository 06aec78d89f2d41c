package main

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/muurk/apportal/internal/console"
	"github.com/muurk/apportal/internal/discovery"
	"github.com/muurk/apportal/internal/portal"
)

// Network command flags
var (
	scanTimeout int
	deviceAddr  string
	deviceName  string
)

func init() {
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(watchCmd)
}

// scanCmd discovers devices on the network
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for apportal devices on the network",
	Long: `Scan for apportal devices using mDNS/DNS-SD discovery.

Devices announce themselves once they have a thing name, both while hosting
their access point and when online.`,
	Example: `  # Scan for 10 seconds (default)
  apportal-cfg scan

  # Quick 3-second scan
  apportal-cfg scan --timeout 3`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().IntVar(&scanTimeout, "timeout", 10, "Scan timeout in seconds")
}

func runScan(cmd *cobra.Command, args []string) error {
	fmt.Printf("Scanning for apportal devices (timeout: %ds)...\n\n", scanTimeout)

	devices, err := discovery.ScanForDevices(time.Duration(scanTimeout) * time.Second)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if len(devices) == 0 {
		fmt.Println("No devices found.")
		fmt.Println("\nTroubleshooting:")
		fmt.Println("  - Check that mDNS is enabled in the device profile")
		fmt.Println("  - Verify your computer is on the same network as the device")
		fmt.Println("  - Try increasing --timeout for slower networks")
		return nil
	}

	fmt.Printf("Found %d device(s):\n\n", len(devices))

	for i, device := range devices {
		fmt.Printf("%d. %s\n", i+1, device.Name)
		fmt.Printf("   Host:    %s\n", device.Hostname)
		fmt.Printf("   Portal:  %s\n", device.BaseURL())
		if v := device.GetMetadata("version"); v != "" {
			fmt.Printf("   Version: %s\n", v)
		}
		fmt.Println()
	}

	fmt.Println("Use 'apportal-cfg watch --name <thing>' to follow a device")

	return nil
}

// watchCmd follows the provisioning state of a running device
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow a device's state transitions",
	Long: `Connect to the status websocket of a running device and print every
state transition until interrupted.

The device is found by thing name over mDNS, or addressed directly with
--device.`,
	Example: `  # Find the device by name
  apportal-cfg watch --name porch-light

  # Address a local simulator directly
  apportal-cfg watch --device 127.0.0.1:8080`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&deviceAddr, "device", "", "Device address host[:port] (skips discovery)")
	watchCmd.Flags().StringVar(&deviceName, "name", "", "Thing name to discover")
}

func runWatch(cmd *cobra.Command, args []string) error {
	host, err := getDeviceHost()
	if err != nil {
		return err
	}

	u := url.URL{Scheme: "ws", Host: host, Path: portal.StatusPath}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", u.String(), err)
	}
	defer conn.Close()

	fmt.Println(console.NewHeader("Status", "apportal-cfg watch",
		[2]string{"Device", host},
	).Render())
	fmt.Println()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	}()

	for {
		var ev portal.StatusEvent
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("status stream: %w", err)
		}
		fmt.Printf("%s  %s -> %s\n", ev.Time.Local().Format("15:04:05"), ev.From, console.StateStyle(ev.To).Render(ev.To))
	}
}

// getDeviceHost resolves the device address from flags or discovery
func getDeviceHost() (string, error) {
	if deviceAddr != "" {
		if _, _, err := net.SplitHostPort(deviceAddr); err != nil {
			return net.JoinHostPort(deviceAddr, strconv.Itoa(discovery.DefaultPort)), nil
		}
		return deviceAddr, nil
	}
	if deviceName == "" {
		return "", fmt.Errorf("either --device or --name is required")
	}

	fmt.Printf("Looking for %s...\n", deviceName)
	device, err := discovery.FindDevice(deviceName)
	if err != nil {
		return "", fmt.Errorf("discovery failed: %w", err)
	}
	return net.JoinHostPort(device.IP, strconv.Itoa(device.Port)), nil
}
