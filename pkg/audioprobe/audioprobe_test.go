package audioprobe

import (
	"bytes"
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pcmWAV builds a playable mono 16-bit PCM WAV of the given duration.
func pcmWAV(t *testing.T, sampleRate int, d time.Duration) []byte {
	t.Helper()

	samples := int(d.Seconds() * float64(sampleRate))
	dataLen := samples * 2

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataLen))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // mono
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*2))
	binary.Write(&buf, binary.LittleEndian, uint16(2))
	binary.Write(&buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataLen))
	buf.Write(make([]byte, dataLen))

	return buf.Bytes()
}

func TestWAVDuration(t *testing.T) {
	audio := pcmWAV(t, 8000, 2*time.Second)

	d, err := WAVDuration(audio)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, d.Seconds(), 0.01)
}

func TestCheckWAVLengthBoundary(t *testing.T) {
	audio := pcmWAV(t, 8000, 2*time.Second)

	assert.True(t, CheckWAVLength(audio, 3))
	assert.False(t, CheckWAVLength(audio, 2), "whole seconds at the limit are rejected")
	assert.False(t, CheckWAVLength(audio, 1))
}

func TestUnparsableStreamsPass(t *testing.T) {
	garbage := []byte("definitely not audio")

	assert.True(t, CheckWAVLength(garbage, 1), "an unmeasurable stream is never rejected")
	assert.True(t, CheckMP3Length(garbage, 1))
	assert.True(t, CheckWAVLength(nil, 1))
	assert.True(t, CheckMP3Length(nil, 1))
}

func TestWAVDurationRejectsGarbage(t *testing.T) {
	_, err := WAVDuration([]byte("nope"))
	assert.Error(t, err)
}

func TestMP3DurationRejectsGarbage(t *testing.T) {
	_, err := MP3Duration([]byte("nope"))
	assert.Error(t, err)
}
