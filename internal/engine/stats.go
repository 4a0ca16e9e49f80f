package engine

import (
	"strings"

	"github.com/docker/docker/api/types/container"
)

// deriveSample reduces a raw engine stats document to the fields the
// protocol reports. The CPU figure is computed from the usage deltas
// between this reading and the previous one, scaled by the number of
// online CPUs, matching the engine CLI's formula.
func deriveSample(raw *container.StatsResponse) StatsSample {
	sample := StatsSample{
		Name:        strings.TrimPrefix(raw.Name, "/"),
		CPUPercent:  deriveCPUPercent(raw),
		MemoryUsage: raw.MemoryStats.Usage,
		MemoryLimit: raw.MemoryStats.Limit,
		PIDs:        raw.PidsStats.Current,
	}
	if sample.MemoryLimit > 0 {
		sample.MemoryPercent = float64(sample.MemoryUsage) / float64(sample.MemoryLimit) * 100.0
	}
	for _, net := range raw.Networks {
		sample.NetworkRx += net.RxBytes
		sample.NetworkTx += net.TxBytes
	}
	for _, entry := range raw.BlkioStats.IoServiceBytesRecursive {
		switch entry.Op {
		case "Read", "read":
			sample.BlockRead += entry.Value
		case "Write", "write":
			sample.BlockWrite += entry.Value
		}
	}
	return sample
}

func deriveCPUPercent(raw *container.StatsResponse) float64 {
	cpuDelta := float64(raw.CPUStats.CPUUsage.TotalUsage) - float64(raw.PreCPUStats.CPUUsage.TotalUsage)
	systemDelta := float64(raw.CPUStats.SystemUsage) - float64(raw.PreCPUStats.SystemUsage)
	if systemDelta <= 0 || cpuDelta < 0 {
		return 0.0
	}
	cpus := float64(raw.CPUStats.OnlineCPUs)
	if cpus == 0 {
		cpus = float64(len(raw.CPUStats.CPUUsage.PercpuUsage))
	}
	if cpus == 0 {
		cpus = 1
	}
	return (cpuDelta / systemDelta) * cpus * 100.0
}
