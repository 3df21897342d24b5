package preflight

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"glow/internal/config"
)

// probeTimeout bounds the network probes so a dead controller cannot
// stall daemon startup or a status command.
const probeTimeout = 2 * time.Second

// minFreeBytes is the free-space floor below which the disk check fails.
// The scene database and rotated logs together stay far under this.
const minFreeBytes = 64 << 20

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckDiskSpace verifies that the filesystem holding path has room for
// the scene database and log growth.
func CheckDiskSpace(name, path string) Result {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	free := stat.Bavail * uint64(stat.Bsize)
	if free < minFreeBytes {
		return Result{Name: name, Detail: fmt.Sprintf("%s (only %s free, need %s)", path, humanBytes(free), humanBytes(minFreeBytes))}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s free)", path, humanBytes(free))}
}

// CheckTransportTarget verifies that the configured transport's endpoint
// is plausibly reachable. UDP is connectionless, so resolution is the
// strongest claim the check can make; OPC gets a real TCP dial.
func CheckTransportTarget(ctx context.Context, cfg *config.Config) Result {
	const name = "Transport"

	switch cfg.Transport.Name {
	case "loop":
		return Result{Name: name, Passed: true, Detail: "loop (in-process)"}
	case "udp":
		return checkUDPTarget(ctx, cfg.Transport.UDP.Host, cfg.Transport.UDP.Port)
	case "opc":
		return checkOPCTarget(ctx, cfg.Transport.OPC.Server)
	case "spi":
		return checkSPIDevice(cfg.Transport.SPI.Device)
	default:
		return Result{Name: name, Detail: fmt.Sprintf("unknown transport %q", cfg.Transport.Name)}
	}
}

func checkUDPTarget(ctx context.Context, host string, port int) Result {
	const name = "Transport"

	addr := net.JoinHostPort(host, strconv.Itoa(port))
	checkCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	if _, err := net.DefaultResolver.LookupHost(checkCtx, host); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("udp://%s (error: %v)", addr, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("udp://%s (host resolves)", addr)}
}

func checkOPCTarget(ctx context.Context, server string) Result {
	const name = "Transport"

	checkCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	var dialer net.Dialer
	conn, err := dialer.DialContext(checkCtx, "tcp", server)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("opc://%s (error: %v)", server, err)}
	}
	conn.Close()
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("opc://%s (reachable)", server)}
}

func checkSPIDevice(device string) Result {
	const name = "Transport"

	path := spiDevicePath(device)
	if path == "" {
		// Registry names the host driver resolves itself cannot be
		// verified here; the bind will report the real error.
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("spi %s (checked at bind)", device)}
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("spi %s (error: %s does not exist; is the spidev overlay enabled?)", device, path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("spi %s (error: stat %s: %v)", device, path, err)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("spi %s (error: insufficient permissions on %s: %v)", device, path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("spi %s (%s accessible)", device, path)}
}

// spiDevicePath maps a periph port name like "SPI0.0" onto its spidev
// node. Absolute paths pass through; anything else returns "".
func spiDevicePath(device string) string {
	if strings.HasPrefix(device, "/") {
		return device
	}
	if rest, ok := strings.CutPrefix(device, "SPI"); ok && rest != "" {
		return "/dev/spidev" + rest
	}
	return ""
}

func humanBytes(n uint64) string {
	switch {
	case n >= 1<<30:
		return fmt.Sprintf("%.1f GiB", float64(n)/(1<<30))
	case n >= 1<<20:
		return fmt.Sprintf("%.0f MiB", float64(n)/(1<<20))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
