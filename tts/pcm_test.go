package tts

import (
	"bytes"
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eloquence-ai/studio/types"
)

func buildWAV(t *testing.T, sampleRate, channels int, samples []int16) []byte {
	t.Helper()

	var data bytes.Buffer
	for _, s := range samples {
		require.NoError(t, binary.Write(&data, binary.LittleEndian, s))
	}

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(36+data.Len()))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	_ = binary.Write(&buf, binary.LittleEndian, uint16(channels))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*channels*2))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(channels*2))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(data.Len()))
	buf.Write(data.Bytes())
	return buf.Bytes()
}

func TestNormalizePCM_RawPassthrough(t *testing.T) {
	raw := []byte{1, 2, 3, 4}
	out, err := NormalizePCM(raw)
	require.NoError(t, err)
	assert.Equal(t, raw, out)
}

func TestNormalizePCM_TrimsOddByte(t *testing.T) {
	out, err := NormalizePCM([]byte{1, 2, 3})
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestNormalizePCM_WAVAt16k(t *testing.T) {
	samples := []int16{100, -100, 200, -200}
	wav := buildWAV(t, SampleRate, 1, samples)

	out, err := NormalizePCM(wav)
	require.NoError(t, err)
	require.Len(t, out, len(samples)*2)
	assert.EqualValues(t, 100, int16(binary.LittleEndian.Uint16(out[0:2])))
}

func TestNormalizePCM_WAVResamples(t *testing.T) {
	// one second of 32 kHz audio must come out as one second of 16 kHz
	samples := make([]int16, 32000)
	wav := buildWAV(t, 32000, 1, samples)

	out, err := NormalizePCM(wav)
	require.NoError(t, err)
	assert.Len(t, out, 16000*2)
}

func TestNormalizePCM_WAVDownmixesStereo(t *testing.T) {
	// L=1000, R=3000 averages to 2000
	samples := []int16{1000, 3000, 1000, 3000}
	wav := buildWAV(t, SampleRate, 2, samples)

	out, err := NormalizePCM(wav)
	require.NoError(t, err)
	require.Len(t, out, 4)
	assert.EqualValues(t, 2000, int16(binary.LittleEndian.Uint16(out[0:2])))
}

func TestNormalizePCM_RejectsCompressed(t *testing.T) {
	for _, payload := range [][]byte{
		[]byte("ID3\x04rest-of-mp3"),
		{0xFF, 0xFB, 0x90, 0x00},
		[]byte("OggSrest-of-ogg"),
	} {
		_, err := NormalizePCM(payload)
		require.Error(t, err)
		assert.Equal(t, types.ErrTTSDecode, types.GetErrorCode(err))
	}
}

func TestNormalizePCM_Empty(t *testing.T) {
	_, err := NormalizePCM(nil)
	require.Error(t, err)
	assert.Equal(t, types.ErrTTSDecode, types.GetErrorCode(err))
}

func TestSilenceFrame(t *testing.T) {
	frame := SilenceFrame(250 * time.Millisecond)
	assert.Len(t, frame, SampleRate/4*2)
	for _, b := range frame[:16] {
		assert.Zero(t, b)
	}
}
