//go:build linux

package filecache

import (
	"os"

	"golang.org/x/sys/unix"
)

// adviseRandom tells the kernel page reads will not be sequential, so it
// does not waste memory on read-ahead the cache already performs itself.
func adviseRandom(f *os.File) {
	_ = unix.Fadvise(int(f.Fd()), 0, 0, unix.FADV_RANDOM)
}

// adviseDontNeed lets the kernel drop its copy of an evicted page.
func adviseDontNeed(f *os.File, offset, length int64) {
	_ = unix.Fadvise(int(f.Fd()), offset, length, unix.FADV_DONTNEED)
}
