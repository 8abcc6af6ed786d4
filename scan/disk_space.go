//go:build linux || darwin || freebsd

package scan

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// GetDiskSpace returns the capacity of the file system that holds path.
func GetDiskSpace(path string) (DiskSpace, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return DiskSpace{}, errors.WithMessagef(err, "failed to stat file system of %s", path)
	}

	bsize := uint64(stat.Bsize)
	total := uint64(stat.Blocks) * bsize
	free := uint64(stat.Bfree) * bsize

	return DiskSpace{
		Total:     total,
		Free:      free,
		Available: uint64(stat.Bavail) * bsize,
		Used:      total - min(total, free),
	}, nil
}
