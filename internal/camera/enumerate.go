package camera

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gocv.io/x/gocv"
)

// Device is one video-input device. Label may be empty when the platform
// exposes no human-readable name.
type Device struct {
	ID    string // capture identifier: /dev/videoN or a bare index
	Label string
}

// maxProbeIndex bounds the fallback index probe on platforms without sysfs.
const maxProbeIndex = 10

// Enumerate lists the available video-input devices. On Linux it reads the
// video4linux sysfs tree, which yields device labels without opening
// anything; elsewhere it falls back to probing capture indexes.
func Enumerate() []Device {
	if devices := enumerateSysfs(); len(devices) > 0 {
		return devices
	}
	return enumerateProbe()
}

// Rescan lists devices without probing: it only consults sysfs, so it is
// safe to call while a capture is open. Returns nil where sysfs is absent.
func Rescan() []Device {
	return enumerateSysfs()
}

// enumerateSysfs scans /sys/class/video4linux for capture nodes.
func enumerateSysfs() []Device {
	entries, err := filepath.Glob("/sys/class/video4linux/video*")
	if err != nil || len(entries) == 0 {
		return nil
	}

	var devices []Device
	for _, entry := range entries {
		node := filepath.Base(entry) // videoN
		devPath := "/dev/" + node
		if _, err := os.Stat(devPath); err != nil {
			continue
		}

		label := ""
		if name, err := os.ReadFile(filepath.Join(entry, "name")); err == nil {
			label = strings.TrimSpace(string(name))
		}
		devices = append(devices, Device{ID: devPath, Label: label})
	}

	sort.Slice(devices, func(i, j int) bool { return devices[i].ID < devices[j].ID })
	return devices
}

// enumerateProbe opens capture indexes until one fails, collecting those
// that respond. Labels are not available this way.
func enumerateProbe() []Device {
	var devices []Device
	for i := 0; i < maxProbeIndex; i++ {
		vc, err := gocv.OpenVideoCapture(i)
		if err != nil {
			continue
		}
		opened := vc.IsOpened()
		vc.Close()
		if opened {
			devices = append(devices, Device{ID: strconv.Itoa(i)})
		}
	}
	return devices
}
