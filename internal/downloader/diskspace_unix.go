//go:build unix

package downloader

import "golang.org/x/sys/unix"

// availableSpace reports the bytes available to unprivileged processes on
// the filesystem holding path.
func availableSpace(path string) (int64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return -1, err
	}
	return int64(stat.Bavail) * int64(stat.Bsize), nil
}
