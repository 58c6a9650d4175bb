package step

import (
	"fmt"
	"path/filepath"

	"github.com/cockroachdb/errors"
)

// byIDRoot is the directory of persistent device identifiers.
const byIDRoot = "/dev/disk/by-id"

type deviceKind int

const (
	wholeDisk deviceKind = iota
	devicePath
	partitionIndex
)

// DeviceSpec identifies the block device a step operates on. It is one of
// three things, fixed at construction: an explicit device path, a
// partition index on the owning configuration's disk, or the whole disk
// itself.
type DeviceSpec struct {
	kind deviceKind
	path string
	part int
}

// WholeDisk returns a spec resolving to the configuration's disk device.
func WholeDisk() DeviceSpec { return DeviceSpec{kind: wholeDisk} }

// DevicePath returns a spec for an explicit device path, used verbatim.
func DevicePath(path string) DeviceSpec {
	return DeviceSpec{kind: devicePath, path: path}
}

// Partition returns a spec for partition n of the configuration's disk.
func Partition(n int) DeviceSpec {
	return DeviceSpec{kind: partitionIndex, part: n}
}

// Resolve returns the absolute device path for the spec. diskID is the
// owning configuration's disk identifier; partition and whole-disk specs
// require it.
func (d DeviceSpec) Resolve(diskID string) (string, error) {
	switch d.kind {
	case devicePath:
		return d.path, nil
	case partitionIndex:
		if diskID == "" {
			return "", errors.Newf("partition %d requires a disk identifier", d.part)
		}
		return fmt.Sprintf("%s/%s-part%d", byIDRoot, diskID, d.part), nil
	default:
		if diskID == "" {
			return "", errors.New("no disk identifier configured")
		}
		return filepath.Join(byIDRoot, diskID), nil
	}
}

// String renders the spec for dumps and error messages.
func (d DeviceSpec) String() string {
	switch d.kind {
	case devicePath:
		return d.path
	case partitionIndex:
		return fmt.Sprintf("partition %d", d.part)
	default:
		return "whole disk"
	}
}
