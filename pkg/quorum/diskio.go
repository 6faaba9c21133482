package quorum

import (
	"errors"
	"fmt"
	"os"
)

// ErrBadHeader is returned when an opened disk's header does not carry
// the expected version magic, or its recorded block size does not match
// the block size the disk was opened with. The device's own sector size
// is not queried.
var ErrBadHeader = errors.New("quorum: bad disk header")

// DiskIO is the block-level codec boundary: read/write fixed-size status
// blocks at node-indexed offsets, with byte-order normalization. The
// quorum protocol itself never assumes anything about the underlying
// medium beyond what this interface exposes, so a real shared block
// device and a plain local file are equally valid backends.
type DiskIO interface {
	// BlockSize is the device/file's actual block size, learned at Open.
	BlockSize() int
	// ReadBlock reads and decodes the status block at node id's offset.
	ReadBlock(id int) (StatusBlock, error)
	// WriteBlock encodes and writes sb at its own node id's offset. The
	// write is atomic at the block level: a reader never observes a
	// partially-written block.
	WriteBlock(sb StatusBlock) error
	// Close releases the underlying resource.
	Close() error
}

// FileDiskIO implements DiskIO over a plain local file, standing in for
// a real shared block device in development and in tests. Block size
// defaults to the configured fallback since a regular file reports no
// sector size of its own.
type FileDiskIO struct {
	f         *os.File
	blockSize int
}

// OpenFileDisk opens (creating and formatting if necessary) a file-backed
// quorum disk able to hold up to maxNodes status blocks.
func OpenFileDisk(path string, blockSize, maxNodes int) (*FileDiskIO, error) {
	if blockSize <= 0 {
		return nil, fmt.Errorf("quorum: invalid block size %d", blockSize)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open quorum disk: %w", err)
	}
	d := &FileDiskIO{f: f, blockSize: blockSize}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat quorum disk: %w", err)
	}
	if fi.Size() == 0 {
		if err := d.format(maxNodes); err != nil {
			f.Close()
			return nil, err
		}
		return d, nil
	}
	if err := d.validateHeader(); err != nil {
		f.Close()
		return nil, err
	}
	return d, nil
}

func (d *FileDiskIO) format(maxNodes int) error {
	hdr := EncodeHeader(Header{Version: VersionMagicV2, BlockSize: uint32(d.blockSize)})
	if err := d.writeAt(0, hdr); err != nil {
		return fmt.Errorf("format header: %w", err)
	}
	zero := make([]byte, BlockWireSize)
	for id := 1; id <= maxNodes; id++ {
		if err := d.writeAt(NodeOffset(id, d.blockSize), zero); err != nil {
			return fmt.Errorf("format node %d: %w", id, err)
		}
	}
	return nil
}

func (d *FileDiskIO) validateHeader() error {
	buf := make([]byte, BlockWireSize)
	if _, err := d.f.ReadAt(buf, 0); err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	hdr, err := DecodeHeader(buf)
	if err != nil {
		return err
	}
	if hdr.Version != VersionMagicV2 {
		return fmt.Errorf("%w: version %#x", ErrBadHeader, hdr.Version)
	}
	if int(hdr.BlockSize) != d.blockSize {
		// DESIGN NOTE: the original source compared the header's block
		// size against an unassigned variable, a latent bug. Here we
		// compare against the block size this process actually opened
		// the disk with.
		return fmt.Errorf("%w: header block size %d != opened %d", ErrBadHeader, hdr.BlockSize, d.blockSize)
	}
	return nil
}

func (d *FileDiskIO) writeAt(off int64, data []byte) error {
	_, err := d.f.WriteAt(data, off)
	return err
}

func (d *FileDiskIO) BlockSize() int { return d.blockSize }

func (d *FileDiskIO) ReadBlock(id int) (StatusBlock, error) {
	buf := make([]byte, BlockWireSize)
	if _, err := d.f.ReadAt(buf, NodeOffset(id, d.blockSize)); err != nil {
		return StatusBlock{}, fmt.Errorf("read block %d: %w", id, err)
	}
	return DecodeBlock(buf)
}

func (d *FileDiskIO) WriteBlock(sb StatusBlock) error {
	data := EncodeBlock(sb)
	if err := d.writeAt(NodeOffset(sb.NodeID, d.blockSize), data); err != nil {
		return fmt.Errorf("write block %d: %w", sb.NodeID, err)
	}
	return nil
}

func (d *FileDiskIO) Close() error { return d.f.Close() }
