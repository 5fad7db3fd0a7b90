package tts

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/eloquence-ai/studio/types"
)

// SampleRate is the only rate the media plane accepts: 16 kHz mono s16le.
const SampleRate = 16000

// SilenceFrame returns d worth of silent PCM at the target format. It is
// published when every synthesis path has failed so the turn can still
// advance.
func SilenceFrame(d time.Duration) []byte {
	samples := int(d.Seconds() * SampleRate)
	return make([]byte, samples*2)
}

// NormalizePCM converts provider audio into raw PCM 16 kHz mono s16le.
// WAV payloads are parsed, downmixed and resampled; payloads already in
// raw PCM pass through. Compressed formats are rejected with TTS_DECODE.
func NormalizePCM(audio []byte) ([]byte, error) {
	if len(audio) == 0 {
		return nil, types.NewError(types.ErrTTSDecode, "empty audio payload")
	}

	if isWAV(audio) {
		return decodeWAV(audio)
	}
	if isCompressed(audio) {
		return nil, types.NewError(types.ErrTTSDecode, "compressed audio payload not supported, request pcm output")
	}

	// raw PCM: drop a trailing odd byte so frames stay sample-aligned
	if len(audio)%2 == 1 {
		audio = audio[:len(audio)-1]
	}
	return audio, nil
}

func isWAV(b []byte) bool {
	return len(b) >= 12 && bytes.Equal(b[0:4], []byte("RIFF")) && bytes.Equal(b[8:12], []byte("WAVE"))
}

func isCompressed(b []byte) bool {
	if len(b) >= 3 && bytes.Equal(b[0:3], []byte("ID3")) {
		return true
	}
	// MP3 frame sync or OGG container
	if len(b) >= 2 && b[0] == 0xFF && b[1]&0xE0 == 0xE0 {
		return true
	}
	return len(b) >= 4 && bytes.Equal(b[0:4], []byte("OggS"))
}

// decodeWAV extracts 16-bit PCM samples from a RIFF container, downmixes
// to mono and resamples to 16 kHz by linear interpolation.
func decodeWAV(b []byte) ([]byte, error) {
	var (
		channels   int
		sampleRate int
		bits       int
		data       []byte
	)

	off := 12
	for off+8 <= len(b) {
		chunkID := string(b[off : off+4])
		size := int(binary.LittleEndian.Uint32(b[off+4 : off+8]))
		body := off + 8
		if body+size > len(b) {
			size = len(b) - body
		}
		switch chunkID {
		case "fmt ":
			if size < 16 {
				return nil, types.NewError(types.ErrTTSDecode, "wav fmt chunk truncated")
			}
			format := int(binary.LittleEndian.Uint16(b[body : body+2]))
			if format != 1 {
				return nil, types.NewError(types.ErrTTSDecode, fmt.Sprintf("unsupported wav format %d", format))
			}
			channels = int(binary.LittleEndian.Uint16(b[body+2 : body+4]))
			sampleRate = int(binary.LittleEndian.Uint32(b[body+4 : body+8]))
			bits = int(binary.LittleEndian.Uint16(b[body+14 : body+16]))
		case "data":
			data = b[body : body+size]
		}
		// chunks are word-aligned
		off = body + size + size%2
	}

	if data == nil || channels == 0 || sampleRate == 0 {
		return nil, types.NewError(types.ErrTTSDecode, "wav missing fmt or data chunk")
	}
	if bits != 16 {
		return nil, types.NewError(types.ErrTTSDecode, fmt.Sprintf("unsupported wav bit depth %d", bits))
	}

	frameCount := len(data) / (2 * channels)
	mono := make([]int16, frameCount)
	for i := 0; i < frameCount; i++ {
		var sum int
		for c := 0; c < channels; c++ {
			s := int16(binary.LittleEndian.Uint16(data[(i*channels+c)*2:]))
			sum += int(s)
		}
		mono[i] = int16(sum / channels)
	}

	resampled := resampleLinear(mono, sampleRate, SampleRate)

	out := make([]byte, len(resampled)*2)
	for i, s := range resampled {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out, nil
}

func resampleLinear(in []int16, from, to int) []int16 {
	if from == to || len(in) == 0 {
		return in
	}
	outLen := int(float64(len(in)) * float64(to) / float64(from))
	if outLen == 0 {
		return nil
	}
	out := make([]int16, outLen)
	ratio := float64(from) / float64(to)
	for i := range out {
		pos := float64(i) * ratio
		idx := int(pos)
		if idx >= len(in)-1 {
			out[i] = in[len(in)-1]
			continue
		}
		frac := pos - float64(idx)
		a, b := float64(in[idx]), float64(in[idx+1])
		out[i] = int16(a + (b-a)*frac)
	}
	return out
}
