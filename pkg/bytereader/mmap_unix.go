//go:build linux || darwin || freebsd || netbsd || openbsd

package bytereader

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

type mmapBuffer struct {
	b []byte
}

func (m *mmapBuffer) Bytes() []byte { return m.b }

func (m *mmapBuffer) Release() error {
	if m.b == nil {
		return nil
	}
	err := unix.Munmap(m.b)
	m.b = nil
	return err
}

func allocNative(size int) (buffer, error) {
	b, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("allocate native buffer: %w", err)
	}
	return &mmapBuffer{b: b}, nil
}

func mapFile(f *os.File, size int64) (buffer, error) {
	b, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap %s: %w", f.Name(), err)
	}
	return &mmapBuffer{b: b}, nil
}
