//go:build !linux

package filecache

import "os"

func adviseRandom(*os.File) {}

func adviseDontNeed(*os.File, int64, int64) {}
