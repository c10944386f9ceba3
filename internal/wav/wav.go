// Package wav writes and reads the minimal mono 16-bit PCM RIFF container
// handed to transcription services.
package wav

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// HeaderSize is the fixed size of the canonical PCM header
const HeaderSize = 44

const (
	formatPCM     = 1
	channelsMono  = 1
	bitsPerSample = 16
	blockAlign    = channelsMono * bitsPerSample / 8
	fmtChunkSize  = 16
)

var (
	ErrShortBuffer  = errors.New("wav: buffer shorter than header")
	ErrNotRIFF      = errors.New("wav: missing RIFF/WAVE signature")
	ErrUnsupported  = errors.New("wav: only mono 16-bit PCM is supported")
	ErrDataTruncate = errors.New("wav: data chunk truncated")
)

// Header is the decoded form of the 44-byte header
type Header struct {
	RIFFSize      uint32
	FmtChunkSize  uint32
	AudioFormat   uint16
	Channels      uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	DataSize      uint32
}

// SampleCount is the number of int16 samples in the data chunk
func (h Header) SampleCount() int {
	return int(h.DataSize) / int(blockAlign)
}

// Encode serializes samples as a single-channel 16-bit PCM WAV file. Each
// sample is clamped to [-1, 1]; negatives scale by 0x8000, the rest by 0x7FFF.
func Encode(samples []float32, sampleRate int) []byte {
	dataSize := uint32(len(samples) * blockAlign)
	buf := make([]byte, HeaderSize+int(dataSize))

	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], 36+dataSize)
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], fmtChunkSize)
	binary.LittleEndian.PutUint16(buf[20:22], formatPCM)
	binary.LittleEndian.PutUint16(buf[22:24], channelsMono)
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(sampleRate*blockAlign))
	binary.LittleEndian.PutUint16(buf[32:34], blockAlign)
	binary.LittleEndian.PutUint16(buf[34:36], bitsPerSample)
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], dataSize)

	offset := HeaderSize
	for _, s := range samples {
		binary.LittleEndian.PutUint16(buf[offset:], uint16(quantize(s)))
		offset += blockAlign
	}

	return buf
}

// quantize maps a float sample to int16 with asymmetric scaling
func quantize(s float32) int16 {
	v := math.Max(-1, math.Min(1, float64(s)))
	if math.IsNaN(v) {
		return 0
	}
	if v < 0 {
		return int16(math.Round(v * 0x8000))
	}
	return int16(math.Round(v * 0x7FFF))
}

// ParseHeader decodes and validates the canonical 44-byte header
func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, ErrShortBuffer
	}
	if string(b[0:4]) != "RIFF" || string(b[8:12]) != "WAVE" ||
		string(b[12:16]) != "fmt " || string(b[36:40]) != "data" {
		return Header{}, ErrNotRIFF
	}

	h := Header{
		RIFFSize:      binary.LittleEndian.Uint32(b[4:8]),
		FmtChunkSize:  binary.LittleEndian.Uint32(b[16:20]),
		AudioFormat:   binary.LittleEndian.Uint16(b[20:22]),
		Channels:      binary.LittleEndian.Uint16(b[22:24]),
		SampleRate:    binary.LittleEndian.Uint32(b[24:28]),
		ByteRate:      binary.LittleEndian.Uint32(b[28:32]),
		BlockAlign:    binary.LittleEndian.Uint16(b[32:34]),
		BitsPerSample: binary.LittleEndian.Uint16(b[34:36]),
		DataSize:      binary.LittleEndian.Uint32(b[40:44]),
	}

	if h.AudioFormat != formatPCM || h.Channels != channelsMono || h.BitsPerSample != bitsPerSample {
		return Header{}, fmt.Errorf("%w: format=%d channels=%d bits=%d",
			ErrUnsupported, h.AudioFormat, h.Channels, h.BitsPerSample)
	}

	return h, nil
}

// DecodeSamples reads the data chunk back into floats in [-1, 1]
func DecodeSamples(b []byte) ([]float32, error) {
	h, err := ParseHeader(b)
	if err != nil {
		return nil, err
	}
	if len(b)-HeaderSize < int(h.DataSize) {
		return nil, ErrDataTruncate
	}

	samples := make([]float32, h.SampleCount())
	for i := range samples {
		v := int16(binary.LittleEndian.Uint16(b[HeaderSize+i*blockAlign:]))
		if v < 0 {
			samples[i] = float32(v) / 0x8000
		} else {
			samples[i] = float32(v) / 0x7FFF
		}
	}
	return samples, nil
}
