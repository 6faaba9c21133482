package quorum

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderRoundTrip(t *testing.T) {
	h := Header{Version: VersionMagicV2, BlockSize: 512}
	data := EncodeHeader(h)

	got, err := DecodeHeader(data)
	require.NoError(t, err)
	assert.Equal(t, h, got)
}

func TestStatusBlockRoundTrip(t *testing.T) {
	var mask Mask
	mask.Set(1)
	mask.Set(3)

	sb := StatusBlock{
		NodeID:      3,
		State:       StateMaster,
		Flags:       FlagReboot | FlagDebug,
		Incarnation: 0xdeadbeefcafef00d,
		Seq:         42,
		Timestamp:   1_700_000_000,
		UpdateNode:  3,
		Score:       1,
		ScoreReq:    1,
		ScoreMax:    1,
		Msg:         MsgBid,
		Arg:         2,
		MasterMask:  mask,
	}

	data := EncodeBlock(sb)
	assert.Len(t, data, BlockWireSize)

	got, err := DecodeBlock(data)
	require.NoError(t, err)
	assert.Equal(t, sb, got)
}

func TestNodeOffsetLaysOutOneHeaderBlockThenNodesInOrder(t *testing.T) {
	const blockSize = 512
	assert.Equal(t, int64(blockSize), NodeOffset(1, blockSize))
	assert.Equal(t, int64(2*blockSize), NodeOffset(2, blockSize))
	assert.Equal(t, int64(16*blockSize), NodeOffset(16, blockSize))
}

func TestDecodeBlockRejectsShortBuffer(t *testing.T) {
	_, err := DecodeBlock([]byte{1, 2, 3})
	assert.Error(t, err)
}
