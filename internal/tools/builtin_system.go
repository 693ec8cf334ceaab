// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tools

import (
	"context"
	"fmt"
	"math"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

const bytesPerGB = 1 << 30

// SystemInfo is the value of system_info.
type SystemInfo struct {
	OS           string  `json:"os"`
	Platform     string  `json:"platform,omitempty"`
	Hostname     string  `json:"hostname,omitempty"`
	CPUCount     int     `json:"cpu_count"`
	CPUPercent   float64 `json:"cpu_percent"`
	MemUsedGB    float64 `json:"mem_used_gb"`
	MemTotalGB   float64 `json:"mem_total_gb"`
	MemPercent   float64 `json:"mem_percent"`
	UptimeHours  float64 `json:"uptime_hours"`
	ProcessRSSMB float64 `json:"process_rss_mb"`
}

func (s SystemInfo) String() string {
	return fmt.Sprintf("OS: %s, CPUs: %d, CPU usage: %.1f%%, RAM: %.2f/%.2f GB (%.1f%%)",
		s.OS, s.CPUCount, s.CPUPercent, s.MemUsedGB, s.MemTotalGB, s.MemPercent)
}

// SystemSampler samples host metrics.
type SystemSampler interface {
	Sample(ctx context.Context) (SystemInfo, error)
}

// HostSampler samples the local machine with gopsutil.
type HostSampler struct {
	// CPUInterval is the CPU usage sampling window (default 200ms)
	CPUInterval time.Duration
}

// Sample implements SystemSampler. Host details and process memory are best
// effort; CPU and memory totals are required.
func (p HostSampler) Sample(ctx context.Context) (SystemInfo, error) {
	info := SystemInfo{OS: runtime.GOOS}

	if h, err := host.InfoWithContext(ctx); err == nil {
		info.Platform = h.Platform
		info.Hostname = h.Hostname
		info.UptimeHours = round2(float64(h.Uptime) / 3600)
	}

	n, err := cpu.CountsWithContext(ctx, true)
	if err != nil {
		return SystemInfo{}, fmt.Errorf("cpu count: %w", err)
	}
	info.CPUCount = n

	interval := p.CPUInterval
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	pct, err := cpu.PercentWithContext(ctx, interval, false)
	if err != nil {
		return SystemInfo{}, fmt.Errorf("cpu percent: %w", err)
	}
	if len(pct) > 0 {
		info.CPUPercent = round2(pct[0])
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return SystemInfo{}, fmt.Errorf("virtual memory: %w", err)
	}
	info.MemUsedGB = round2(float64(vm.Used) / bytesPerGB)
	info.MemTotalGB = round2(float64(vm.Total) / bytesPerGB)
	info.MemPercent = round2(vm.UsedPercent)

	if proc, err := process.NewProcessWithContext(ctx, int32(os.Getpid())); err == nil {
		if mi, err := proc.MemoryInfoWithContext(ctx); err == nil {
			info.ProcessRSSMB = round2(float64(mi.RSS) / (1 << 20))
		}
	}
	return info, nil
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

func systemTool(deps Deps) Entry {
	sampler := deps.System
	return Cacheable(Descriptor{
		Name:        "system_info",
		Description: "Operating system, CPU and memory usage of the host.",
		TTL:         defaultSystemInfoTTL,
		Timeout:     defaultSystemInfoBudget,
	}, func(ctx context.Context, _ Args) (any, error) {
		info, err := sampler.Sample(ctx)
		if err != nil {
			return nil, upstream(err, "system metrics unavailable")
		}
		return info, nil
	})
}
