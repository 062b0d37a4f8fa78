// copy_mmap.go -- portable mmap-backed file copy
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

//go:build !linux

package patch

import (
	"os"

	"github.com/opencoff/go-mmap"
)

// copyFile copies src to dst via mmap(2) - used on every platform other
// than linux, which gets a copy_file_range(2) fast path instead.
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

	if _, err := mmap.Reader(s, func(b []byte) error {
		_, err := d.Write(b)
		return err
	}); err != nil {
		return err
	}

	return d.Sync()
}
