//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package bytereader

import (
	"errors"
	"os"
)

var errMmapUnsupported = errors.New("mmap not supported on this platform")

func allocNative(size int) (buffer, error) {
	return &heapBuffer{b: make([]byte, size)}, nil
}

func mapFile(_ *os.File, _ int64) (buffer, error) {
	return nil, errMmapUnsupported
}
