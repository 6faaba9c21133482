package quorum

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// VersionMagicV2 identifies the on-disk header layout this package reads
// and writes. A disk formatted by an incompatible version is rejected at
// open time.
const VersionMagicV2 uint32 = 0x6970c001

// Header occupies a fixed block at the start of the quorum disk. It is
// written once, at format time, and only ever read afterward.
type Header struct {
	Version   uint32
	BlockSize uint32
}

// wireHeader is the little-endian, fixed-width representation of Header
// as it appears on disk.
type wireHeader struct {
	Version   uint32
	BlockSize uint32
	_         [24]byte // reserved, keeps the header one block-aligned unit
}

// EncodeHeader renders h in canonical little-endian form.
func EncodeHeader(h Header) []byte {
	buf := new(bytes.Buffer)
	w := wireHeader{Version: h.Version, BlockSize: h.BlockSize}
	// binary.Write never fails against a bytes.Buffer with fixed-size data.
	_ = binary.Write(buf, binary.LittleEndian, w)
	return buf.Bytes()
}

// DecodeHeader parses a header block previously produced by EncodeHeader.
func DecodeHeader(data []byte) (Header, error) {
	var w wireHeader
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &w); err != nil {
		return Header{}, fmt.Errorf("decode header: %w", err)
	}
	return Header{Version: w.Version, BlockSize: w.BlockSize}, nil
}

// StatusBlock is the fixed-size record each node persists at its own
// node-indexed offset on the quorum disk, and reads at every peer's
// offset once per tick.
type StatusBlock struct {
	NodeID      int
	State       State
	Flags       Flags
	Incarnation uint64
	Seq         uint64
	Timestamp   int64
	UpdateNode  int
	Score       int
	ScoreReq    int
	ScoreMax    int
	Msg         Msg
	Arg         int
	MasterMask  Mask
}

// wireStatusBlock is the byte-exact little-endian layout of StatusBlock.
// Every field is a fixed-width integer so the struct has no padding
// ambiguity across platforms.
type wireStatusBlock struct {
	NodeID      uint32
	State       uint32
	Flags       uint32
	Incarnation uint64
	Seq         uint64
	Timestamp   int64
	UpdateNode  uint32
	Score       int32
	ScoreReq    int32
	ScoreMax    int32
	Msg         uint32
	Arg         uint32
	MasterMask  Mask
}

// EncodeBlock renders sb in canonical little-endian form, byte-swapping
// every multi-byte field irrespective of host endianness.
func EncodeBlock(sb StatusBlock) []byte {
	w := wireStatusBlock{
		NodeID:      uint32(sb.NodeID),
		State:       uint32(sb.State),
		Flags:       uint32(sb.Flags),
		Incarnation: sb.Incarnation,
		Seq:         sb.Seq,
		Timestamp:   sb.Timestamp,
		UpdateNode:  uint32(sb.UpdateNode),
		Score:       int32(sb.Score),
		ScoreReq:    int32(sb.ScoreReq),
		ScoreMax:    int32(sb.ScoreMax),
		Msg:         uint32(sb.Msg),
		Arg:         uint32(sb.Arg),
		MasterMask:  sb.MasterMask,
	}
	buf := new(bytes.Buffer)
	_ = binary.Write(buf, binary.LittleEndian, w)
	return buf.Bytes()
}

// DecodeBlock parses a status block previously produced by EncodeBlock.
func DecodeBlock(data []byte) (StatusBlock, error) {
	var w wireStatusBlock
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &w); err != nil {
		return StatusBlock{}, fmt.Errorf("decode status block: %w", err)
	}
	return StatusBlock{
		NodeID:      int(w.NodeID),
		State:       State(w.State),
		Flags:       Flags(w.Flags),
		Incarnation: w.Incarnation,
		Seq:         w.Seq,
		Timestamp:   w.Timestamp,
		UpdateNode:  int(w.UpdateNode),
		Score:       int(w.Score),
		ScoreReq:    int(w.ScoreReq),
		ScoreMax:    int(w.ScoreMax),
		Msg:         Msg(w.Msg),
		Arg:         int(w.Arg),
		MasterMask:  w.MasterMask,
	}, nil
}

// BlockWireSize is the number of bytes EncodeBlock always produces.
var BlockWireSize = len(EncodeBlock(StatusBlock{}))

// NodeOffset returns the byte offset of node id's status block, one
// header block in, one status block per node thereafter.
func NodeOffset(id int, blockSize int) int64 {
	return int64(blockSize) + int64(id-1)*int64(blockSize)
}
