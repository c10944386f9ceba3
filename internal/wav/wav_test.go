package wav

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeHeaderLayout(t *testing.T) {
	samples := []float32{0, 0.5, -0.5, 1, -1}
	buf := Encode(samples, 44100)

	require.Len(t, buf, HeaderSize+len(samples)*2)
	assert.Equal(t, "RIFF", string(buf[0:4]))
	assert.Equal(t, uint32(36+len(samples)*2), binary.LittleEndian.Uint32(buf[4:8]))
	assert.Equal(t, "WAVE", string(buf[8:12]))
	assert.Equal(t, "fmt ", string(buf[12:16]))
	assert.Equal(t, uint32(16), binary.LittleEndian.Uint32(buf[16:20]))
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(buf[20:22]))
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(buf[22:24]))
	assert.Equal(t, uint32(44100), binary.LittleEndian.Uint32(buf[24:28]))
	assert.Equal(t, uint32(88200), binary.LittleEndian.Uint32(buf[28:32]))
	assert.Equal(t, uint16(2), binary.LittleEndian.Uint16(buf[32:34]))
	assert.Equal(t, uint16(16), binary.LittleEndian.Uint16(buf[34:36]))
	assert.Equal(t, "data", string(buf[36:40]))
	assert.Equal(t, uint32(len(samples)*2), binary.LittleEndian.Uint32(buf[40:44]))
}

func TestEncodeScalesAsymmetrically(t *testing.T) {
	buf := Encode([]float32{1, -1, 0, 2, -3}, 8000)

	read := func(i int) int16 {
		return int16(binary.LittleEndian.Uint16(buf[HeaderSize+i*2:]))
	}
	assert.Equal(t, int16(0x7FFF), read(0))
	assert.Equal(t, int16(-0x8000), read(1))
	assert.Equal(t, int16(0), read(2))
	// out of range input is clamped before scaling
	assert.Equal(t, int16(0x7FFF), read(3))
	assert.Equal(t, int16(-0x8000), read(4))
}

func TestRoundTrip(t *testing.T) {
	const n = 1000
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = float32(math.Sin(float64(i) * 0.05))
	}

	buf := Encode(samples, 16000)

	h, err := ParseHeader(buf)
	require.NoError(t, err)
	assert.Equal(t, uint32(36+n*2), h.RIFFSize)
	assert.Equal(t, uint32(n*2), h.DataSize)
	assert.Equal(t, uint32(16000), h.SampleRate)
	assert.Equal(t, n, h.SampleCount())

	decoded, err := DecodeSamples(buf)
	require.NoError(t, err)
	require.Len(t, decoded, n)
	for i := range samples {
		assert.InDelta(t, samples[i], decoded[i], 1.0/32768, "sample %d", i)
	}
}

func TestEncodeEmpty(t *testing.T) {
	buf := Encode(nil, 22050)
	require.Len(t, buf, HeaderSize)

	h, err := ParseHeader(buf)
	require.NoError(t, err)
	assert.Equal(t, uint32(36), h.RIFFSize)
	assert.Zero(t, h.DataSize)
}

func TestParseHeaderRejectsGarbage(t *testing.T) {
	_, err := ParseHeader([]byte("short"))
	assert.ErrorIs(t, err, ErrShortBuffer)

	junk := make([]byte, HeaderSize)
	copy(junk, "JUNK")
	_, err = ParseHeader(junk)
	assert.ErrorIs(t, err, ErrNotRIFF)
}

func TestDecodeSamplesTruncated(t *testing.T) {
	buf := Encode([]float32{0.1, 0.2, 0.3}, 8000)
	_, err := DecodeSamples(buf[:len(buf)-2])
	assert.ErrorIs(t, err, ErrDataTruncate)
}
