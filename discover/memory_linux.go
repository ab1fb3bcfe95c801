// memory_linux.go - Speicherabfrage ueber /proc/meminfo und sysinfo(2)
package discover

import (
	"bufio"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// GetMemoryInfo liest MemTotal/MemAvailable aus /proc/meminfo. Fehlt die
// Datei, wird auf sysinfo(2) zurueckgegriffen (frei + Puffer).
func GetMemoryInfo() (MemoryInfo, error) {
	f, err := os.Open("/proc/meminfo")
	if err == nil {
		defer f.Close()
		info, err := parseMeminfo(f)
		if err == nil {
			return info, nil
		}
		slog.Debug("failed to parse /proc/meminfo", "error", err)
	}

	var si unix.Sysinfo_t
	if err := unix.Sysinfo(&si); err != nil {
		return MemoryInfo{}, err
	}

	unit := uint64(si.Unit)
	return MemoryInfo{
		TotalMemory: uint64(si.Totalram) * unit,
		FreeMemory:  (uint64(si.Freeram) + uint64(si.Bufferram)) * unit,
	}, nil
}

func parseMeminfo(r io.Reader) (MemoryInfo, error) {
	var info MemoryInfo
	var haveTotal, haveAvailable bool

	s := bufio.NewScanner(r)
	for s.Scan() {
		key, value, ok := strings.Cut(s.Text(), ":")
		if !ok {
			continue
		}

		fields := strings.Fields(value)
		if len(fields) == 0 {
			continue
		}

		n, err := strconv.ParseUint(fields[0], 10, 64)
		if err != nil {
			continue
		}

		// Werte sind in kB angegeben
		switch key {
		case "MemTotal":
			info.TotalMemory = n * 1024
			haveTotal = true
		case "MemAvailable":
			info.FreeMemory = n * 1024
			haveAvailable = true
		}
	}

	if err := s.Err(); err != nil {
		return MemoryInfo{}, err
	}

	if !haveTotal || !haveAvailable {
		return MemoryInfo{}, io.ErrUnexpectedEOF
	}

	return info, nil
}
