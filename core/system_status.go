package core

import (
	"bufio"
	"context"
	"os"
	"strconv"
	"strings"
	"time"
)

// Probe checks one backing dependency such as the database or redis.
type Probe struct {
	Name  string
	Check func(ctx context.Context) error
}

// DependencyStatus is the outcome of a single probe.
type DependencyStatus struct {
	Name  string `json:"name"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// SystemStatus is the aggregated payload served by GET /status.
type SystemStatus struct {
	Status       string             `json:"status"`
	Dependencies []DependencyStatus `json:"dependencies"`
	Memory       struct {
		UsedBytes  uint64 `json:"used_bytes"`
		TotalBytes uint64 `json:"total_bytes"`
	} `json:"memory"`
	UptimeSeconds int64 `json:"uptime_seconds"`
}

// Healthy reports whether every probe passed.
func (s SystemStatus) Healthy() bool { return s.Status == "ok" }

// StatusReporter runs probes and collects process information.
type StatusReporter struct {
	probes    []Probe
	startedAt time.Time
	timeout   time.Duration
	now       func() time.Time
}

func NewStatusReporter(startedAt time.Time, probes ...Probe) *StatusReporter {
	return &StatusReporter{
		probes:    probes,
		startedAt: startedAt,
		timeout:   2 * time.Second,
		now:       time.Now,
	}
}

// Collect runs every probe sequentially; a failing probe marks the status degraded.
func (r *StatusReporter) Collect(ctx context.Context) SystemStatus {
	st := SystemStatus{Status: "ok", Dependencies: make([]DependencyStatus, 0, len(r.probes))}

	for _, p := range r.probes {
		pctx, cancel := context.WithTimeout(ctx, r.timeout)
		err := p.Check(pctx)
		cancel()

		ds := DependencyStatus{Name: p.Name, OK: err == nil}
		if err != nil {
			ds.Error = err.Error()
			st.Status = "degraded"
		}
		st.Dependencies = append(st.Dependencies, ds)
	}

	// best-effort from /proc/meminfo
	used, total := readMemInfo()
	st.Memory.UsedBytes = used
	st.Memory.TotalBytes = total

	if !r.startedAt.IsZero() {
		st.UptimeSeconds = int64(r.now().Sub(r.startedAt).Seconds())
	}
	return st
}

// readMemInfo returns used and total bytes using /proc/meminfo.
// If unavailable, returns zeros.
func readMemInfo() (used, total uint64) {
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return 0, 0
	}
	defer f.Close()
	var memTotal, memAvailable uint64
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "MemTotal:"):
			memTotal = parseKiBLine(line)
		case strings.HasPrefix(line, "MemAvailable:"):
			memAvailable = parseKiBLine(line)
		}
	}
	if memTotal > 0 {
		total = memTotal * 1024
		if memAvailable <= memTotal {
			used = (memTotal - memAvailable) * 1024
		}
	}
	return used, total
}

func parseKiBLine(line string) uint64 {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return 0
	}
	v, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return 0
	}
	return v
}
