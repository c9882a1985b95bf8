// Package buffer implements the stream-data transport between block pairs:
// the double-mapped region, the circular ring buffer built on it, and the
// slab buffer alternative.
package buffer

import (
	"context"
	"fmt"
	"os"
	"time"
	"unsafe"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/sys/unix"
)

// Region is a physically-contiguous virtual memory span that wraps: the
// same page frames are mapped twice back-to-back, so a ring reader/writer
// always sees any in-flight segment as a single contiguous slice, with no
// wrap-around branching in the hot path.
//
// Construction reserves 2N bytes of address space, then maps a shared
// backing object at offset 0 twice inside that reservation. The backing
// object is a temporary file created under a configurable tmp directory
// and unlinked before NewRegion returns, so its storage is reclaimed when
// the process exits even if Close is never called.
type Region struct {
	size int
	base uintptr
	slc  []byte // len 2*size, aliasing the double mapping
}

const maxMapRetries = 8

// NewRegion reserves a double-mapped region of size bytes (size must be a
// multiple of the system page size). tmpDir selects where the backing file
// is created; "" uses os.TempDir.
func NewRegion(size int, tmpDir string) (*Region, error) {
	pageSize := unix.Getpagesize()
	if size <= 0 || size%pageSize != 0 {
		return nil, fmt.Errorf("buffer: %w: size %d is not a multiple of page size %d", ErrInvalidSize, size, pageSize)
	}

	f, err := os.CreateTemp(tmpDir, "flowgraph-region-*")
	if err != nil {
		return nil, fmt.Errorf("buffer: create backing file: %w", err)
	}
	// Unlink and close on return: once both halves are mapped, the mappings
	// alone keep the storage alive, and the directory entry is reclaimed
	// as soon as NewRegion returns.
	defer os.Remove(f.Name())
	defer f.Close()

	if err := f.Truncate(int64(size)); err != nil {
		return nil, fmt.Errorf("buffer: truncate backing file: %w", err)
	}

	base, err := mapDouble(int(f.Fd()), size)
	if err != nil {
		return nil, err
	}

	slc := unsafe.Slice((*byte)(unsafe.Pointer(base)), 2*size)
	return &Region{size: size, base: base, slc: slc}, nil
}

// mapDouble reserves 2*size bytes and maps the backing file twice into it.
// The reservation and the two fixed maps happen as separate syscalls, so a
// racing mmap elsewhere in the process can occasionally claim the second
// half first; retry with backoff rather than fail outright.
func mapDouble(fd, size int) (uintptr, error) {
	op := func() (uintptr, error) {
		base, err := rawMmap(0, uintptr(2*size), unix.PROT_NONE,
			unix.MAP_ANON|unix.MAP_PRIVATE, -1, 0)
		if err != nil {
			return 0, fmt.Errorf("%w: reserve: %v", ErrMapFailed, err)
		}

		if _, err := rawMmap(base, uintptr(size), unix.PROT_READ|unix.PROT_WRITE,
			unix.MAP_SHARED|unix.MAP_FIXED, fd, 0); err != nil {
			unix.Munmap(unsafe.Slice((*byte)(unsafe.Pointer(base)), 2*size))
			return 0, fmt.Errorf("%w: first half: %v", ErrMapFailed, err)
		}

		if _, err := rawMmap(base+uintptr(size), uintptr(size), unix.PROT_READ|unix.PROT_WRITE,
			unix.MAP_SHARED|unix.MAP_FIXED, fd, 0); err != nil {
			unix.Munmap(unsafe.Slice((*byte)(unsafe.Pointer(base)), 2*size))
			return 0, fmt.Errorf("%w: second half: %v", ErrMapFailed, err)
		}

		return base, nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Millisecond
	return backoff.Retry(context.Background(), op, backoff.WithBackOff(b), backoff.WithMaxTries(maxMapRetries))
}

// rawMmap wraps the raw mmap(2) syscall so that MAP_FIXED maps can target a
// caller-chosen address, which golang.org/x/sys/unix.Mmap does not expose.
func rawMmap(addr, length uintptr, prot, flags, fd int, offset int64) (uintptr, error) {
	r, _, errno := unix.Syscall6(unix.SYS_MMAP, addr, length,
		uintptr(prot), uintptr(flags), uintptr(fd), uintptr(offset))
	if errno != 0 {
		return 0, errno
	}
	return r, nil
}

// Size returns N, the logical (non-doubled) capacity in bytes.
func (r *Region) Size() int { return r.size }

// Slice returns the full 2N-byte double-mapped span. Index i and i+N alias
// the same physical bytes.
func (r *Region) Slice() []byte { return r.slc }

// At returns a contiguous view of length n starting at offset i mod N; i+n
// may exceed N, in which case the view spans into the mirrored half.
func (r *Region) At(offset, n int) []byte {
	start := offset % r.size
	return r.slc[start : start+n]
}

// Close unmaps both halves of the region.
func (r *Region) Close() error {
	if r.slc == nil {
		return nil
	}
	err := unix.Munmap(r.slc)
	r.slc = nil
	return err
}
