// copy_linux.go -- fast file copy via copy_file_range(2)
//
// (c) 2024- Sudhi Herle <sudhi@herle.net>
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

package patch

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

const _ioChunkSize int = 256 * 1024

// copyFile copies src to dst using copy_file_range(2) in chunks of
// _ioChunkSize.
func copyFile(src, dst string) error {
	if err := ensureParent(dst); err != nil {
		return err
	}

	s, err := os.Open(src)
	if err != nil {
		return err
	}
	defer s.Close()

	st, err := s.Stat()
	if err != nil {
		return err
	}

	d, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, st.Mode().Perm())
	if err != nil {
		return err
	}
	defer d.Close()

	sfd, dfd := int(s.Fd()), int(d.Fd())

	var roff, woff int64
	sz := st.Size()
	for sz > 0 {
		n := _ioChunkSize
		if int64(n) > sz {
			n = int(sz)
		}

		m, err := unix.CopyFileRange(sfd, &roff, dfd, &woff, n, 0)
		if err != nil {
			return err
		}
		if m == 0 {
			return fmt.Errorf("copy_file_range: zero sized transfer at off %d", roff)
		}
		sz -= int64(m)
		roff += int64(m)
		woff += int64(m)
	}

	return nil
}
