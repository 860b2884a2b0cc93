//go:build cortexm

package arch

import (
	"encoding/binary"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/distortec/gokernel/kerr"
)

func TestCortexMPortInitializeStackRejectsSmallBuffer(t *testing.T) {
	p := NewCortexMPort()
	_, err := p.InitializeStack(make([]byte, cortexMFrameBytes-1), func() {})
	assert.ErrorIs(t, err, kerr.ErrNoSpace)
}

func TestCortexMPortInitializeStackLaysOutFrame(t *testing.T) {
	p := NewCortexMPort()
	buf := make([]byte, 256)
	runner := func() {}
	sp, err := p.InitializeStack(buf, runner)
	require.NoError(t, err)

	frame := buf[len(buf)-cortexMFrameBytes:]
	assert.Equal(t, addrOf(frame), sp)

	order := binary.LittleEndian
	word := func(i int) uint32 { return order.Uint32(frame[i*4:]) }

	assert.Equal(t, poisonR4, word(0))
	assert.Equal(t, poisonR5, word(1))
	assert.Equal(t, poisonR6, word(2))
	assert.Equal(t, poisonR7, word(3))
	assert.Equal(t, poisonR8, word(4))
	assert.Equal(t, poisonR9, word(5))
	assert.Equal(t, poisonR10, word(6))
	assert.Equal(t, poisonR11, word(7))

	assert.Equal(t, poisonR1, word(9))
	assert.Equal(t, poisonR2, word(10))
	assert.Equal(t, poisonR3, word(11))
	assert.Equal(t, poisonR12, word(12))
	assert.Equal(t, uint32(0), word(13))
	assert.Equal(t, uint32(reflect.ValueOf(runner).Pointer()), word(14))
	assert.Equal(t, defaultXpsr, word(15))
}
