//go:build !(linux || darwin || freebsd)

package scan

import "github.com/pkg/errors"

// GetDiskSpace is not supported on this platform.
func GetDiskSpace(path string) (DiskSpace, error) {
	return DiskSpace{}, errors.Errorf("disk space of %s is not supported on this platform", path)
}
