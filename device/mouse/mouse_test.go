package mouse_test

import (
	"testing"

	"github.com/Alia5/padbridge/device/mouse"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMouseInputState(t *testing.T) {
	st := mouse.InputState{Buttons: mouse.Btn_Right, DX: -5, DY: 300}
	b, err := st.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x02, 0xFB, 0xFF, 0x2C, 0x01, 0, 0, 0, 0}, b)

	var back mouse.InputState
	require.NoError(t, back.UnmarshalBinary(b))
	assert.Equal(t, st, back)
	assert.Error(t, back.UnmarshalBinary(b[:8]))

	assert.Equal(t, int16(32767), mouse.Clamp16(32768))
	assert.Equal(t, int16(-32768), mouse.Clamp16(-40000))
	assert.Equal(t, int16(-7), mouse.Clamp16(-7))
}
