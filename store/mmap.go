package store

import (
	"os"

	mmap "github.com/edsrzf/mmap-go"
)

// mmapFile maps file read-only into the process address space, exactly
// as the teacher's loadInternal does with mmap.Map(file, mmap.RDONLY, 0):
// the OS pages the content in on demand instead of the file being copied
// into the Go heap up front.
func mmapFile(file *os.File) (mmap.MMap, error) {
	return mmap.Map(file, mmap.RDONLY, 0)
}

func unmap(m mmap.MMap) error {
	if m == nil {
		return nil
	}
	return m.Unmap()
}
