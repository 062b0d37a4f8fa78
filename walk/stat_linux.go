// stat_linux.go -- syscall.Stat_t helpers for linux
//
// (c) 2022- Sudhi Herle <sudhi@herle.net>
//
// Licensing Terms: GPLv2
//
// If you need a commercial license for this work, please contact
// the author.
//
// This software does not come with any express or implied
// warranty; it is provided "as is". No claim  is made to its
// suitability for any purpose.

//go:build linux

package walk

import (
	"syscall"
	"time"

	"github.com/opencoff/fstree"
)

func modeFromStat(m uint32) uint32 {
	switch m & syscall.S_IFMT {
	case syscall.S_IFDIR:
		return fstree.ModeDir
	case syscall.S_IFLNK:
		return fstree.ModeSymlink
	default:
		return 0
	}
}

func statMtime(st *syscall.Stat_t) time.Time {
	return time.Unix(st.Mtim.Sec, st.Mtim.Nsec)
}
