package core

import (
	"fmt"

	"github.com/shirou/gopsutil/v4/disk"
)

// DiskUsage is a snapshot of capacity for the filesystem holding a path.
type DiskUsage struct {
	Path        string
	Total       uint64
	Free        uint64
	Used        uint64
	UsedPercent float64
}

// FreeSpace reports capacity of the filesystem containing path.
func FreeSpace(path string) (DiskUsage, error) {
	u, err := disk.Usage(path)
	if err != nil {
		return DiskUsage{}, fmt.Errorf("core: disk usage %s: %w", path, err)
	}
	return DiskUsage{
		Path:        path,
		Total:       u.Total,
		Free:        u.Free,
		Used:        u.Used,
		UsedPercent: u.UsedPercent,
	}, nil
}
