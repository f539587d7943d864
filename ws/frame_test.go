package ws

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeEnvelope(t *testing.T, raw string) inboundEnvelope {
	t.Helper()
	var env inboundEnvelope
	require.NoError(t, json.Unmarshal([]byte(raw), &env))
	return env
}

func TestInboundEnvelope_V1IsNotLegacy(t *testing.T) {
	env := decodeEnvelope(t, `{"v":1,"type":"subscribe","channel":"search","requestId":"r1"}`)
	assert.False(t, env.isLegacy())
	assert.Equal(t, FrameSubscribe, env.Type)
}

func TestInboundEnvelope_MissingVIsLegacy(t *testing.T) {
	env := decodeEnvelope(t, `{"type":"subscribe","channel":"search","requestId":"r1"}`)
	assert.True(t, env.isLegacy())
}

func TestInboundEnvelope_WrongVersionIsLegacy(t *testing.T) {
	env := decodeEnvelope(t, `{"v":2,"type":"subscribe"}`)
	assert.True(t, env.isLegacy())
}

func TestInboundEnvelope_ExplicitZeroVersionIsLegacy(t *testing.T) {
	env := decodeEnvelope(t, `{"v":0,"type":"subscribe"}`)
	assert.True(t, env.isLegacy())
}
