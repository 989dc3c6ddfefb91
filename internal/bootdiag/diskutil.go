// Package bootdiag gathers read-only diagnostics for a Mac that has trouble
// booting: disk layout, SIP, boot volume, boot-args and free space.
package bootdiag

import (
	"bufio"
	"regexp"
	"strconv"
	"strings"
)

// Disk is one /dev/diskN block from `diskutil list`.
type Disk struct {
	Device     string
	Info       string
	Partitions []Partition
}

// Partition is one numbered row of a disk block.
type Partition struct {
	Index      int
	Type       string
	Name       string
	Size       string
	Identifier string
}

var (
	diskHeaderPattern = regexp.MustCompile(`^(/dev/disk\d+)\s*\((.*)\):\s*$`)
	partitionPattern  = regexp.MustCompile(`^\s*(\d+):\s+(.*?)\s+([*+]?[\d.]+\s+[KMGTP]?B)\s+(disk\d+(?:s\d+)*)\s*$`)
)

// usableTypes are partition types a Mac can boot from or recover data on.
var usableTypes = map[string]bool{
	"APFS Volume":    true,
	"APFS Container": true,
	"Apple_APFS":     true,
	"Apple_HFS":      true,
}

// helperVolumes are APFS role volumes that never hold a user system.
var helperVolumes = map[string]bool{
	"Preboot":    true,
	"Recovery":   true,
	"VM":         true,
	"Update":     true,
	"xART":       true,
	"Hardware":   true,
	"iSCPreboot": true,
}

// Usable reports whether the partition could hold a bootable system or
// user data.
func (p Partition) Usable() bool {
	return usableTypes[p.Type] && !helperVolumes[p.Name]
}

// ParseDiskutilList parses `diskutil list` output. The column header of
// each block locates the NAME column, which splits TYPE from NAME since
// both may contain spaces.
func ParseDiskutilList(out string) []Disk {
	var disks []Disk
	var cur *Disk
	nameCol := -1

	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		line := sc.Text()

		if m := diskHeaderPattern.FindStringSubmatch(line); m != nil {
			disks = append(disks, Disk{Device: m[1], Info: m[2]})
			cur = &disks[len(disks)-1]
			nameCol = -1
			continue
		}
		if cur == nil {
			continue
		}
		if strings.Contains(line, "TYPE") && strings.Contains(line, "IDENTIFIER") {
			nameCol = strings.Index(line, "NAME")
			continue
		}

		m := partitionPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		idx, _ := strconv.Atoi(m[1])
		p := Partition{Index: idx, Size: strings.TrimLeft(m[3], "*+"), Identifier: m[4]}

		// Offset of the TYPE/NAME group within the line.
		start := strings.Index(line, m[2])
		typ, name := m[2], ""
		if nameCol > start && nameCol < start+len(m[2]) {
			typ = m[2][:nameCol-start]
			name = m[2][nameCol-start:]
		}
		p.Type = strings.TrimSpace(typ)
		p.Name = cleanName(name)
		if p.Name == "-" {
			p.Name = ""
		}
		cur.Partitions = append(cur.Partitions, p)
	}
	return disks
}

// cleanName drops padding and the Unicode isolate marks (U+2068, U+2069)
// that diskutil wraps volume names in since Monterey.
func cleanName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.Trim(name, "\u2068\u2069")
	return strings.TrimSpace(name)
}

// UsablePartitions returns every usable partition across disks.
func UsablePartitions(disks []Disk) []Partition {
	var out []Partition
	for _, d := range disks {
		for _, p := range d.Partitions {
			if p.Usable() {
				out = append(out, p)
			}
		}
	}
	return out
}
