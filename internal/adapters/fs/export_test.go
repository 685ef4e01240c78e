package fs

import "io/fs"

// NewWalkerOver builds a walker that reads trees through open instead of the host file system.
func NewWalkerOver(open func(root string) fs.FS) *Walker {
	return &Walker{open: open}
}
