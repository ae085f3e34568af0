package audio

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
)

// Frame is one window of captured mono samples in [-1, 1].
type Frame struct {
	Samples    []float32
	SampleRate int
	Channels   int
}

type Direction int

const (
	Outbound Direction = iota
	Inbound
)

type Transport int

const (
	// Binary chunks travel as raw bytes inside a structured message.
	Binary Transport = iota
	// Base64 chunks travel as text inside a JSON message.
	Base64
)

// WireChunk is encoded PCM16 audio crossing the provider boundary.
type WireChunk struct {
	Data      []byte
	Direction Direction
	Transport Transport
}

// Text returns the chunk payload in its transport encoding.
func (c WireChunk) Text() string {
	if c.Transport == Base64 {
		return base64.StdEncoding.EncodeToString(c.Data)
	}
	return string(c.Data)
}

// EncodePCM16 converts float samples to signed 16-bit little-endian PCM.
//
// NaN becomes silence and values outside [-1, 1] are clamped. Negative values
// scale by 0x8000 and non-negative values by 0x7FFF, so -1 maps to -32768 and
// 1 maps to 32767.
func EncodePCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(ToInt16(s)))
	}
	return out
}

// ToInt16 converts one sample with the same rules as EncodePCM16.
func ToInt16(s float32) int16 {
	if math.IsNaN(float64(s)) {
		return 0
	}
	if s > 1 {
		s = 1
	} else if s < -1 {
		s = -1
	}
	if s < 0 {
		return int16(s * 0x8000)
	}
	return int16(s * 0x7FFF)
}

// DecodePCM16 converts signed 16-bit little-endian PCM to floats by dividing
// by 32768. A trailing odd byte is ignored.
func DecodePCM16(pcm []byte) []float32 {
	out := make([]float32, len(pcm)/2)
	for i := range out {
		out[i] = float32(int16(binary.LittleEndian.Uint16(pcm[i*2:]))) / 32768
	}
	return out
}

// ReadWireChunk reads an inbound provider payload in its transport encoding.
func ReadWireChunk(payload []byte, transport Transport) (WireChunk, error) {
	chunk := WireChunk{Direction: Inbound, Transport: transport}
	if transport != Base64 {
		chunk.Data = payload
		return chunk, nil
	}

	data, err := base64.StdEncoding.DecodeString(string(payload))
	if err != nil {
		return WireChunk{}, fmt.Errorf("failed to decode base64 audio: %w", err)
	}
	chunk.Data = data
	return chunk, nil
}

// Float32FromBytes reads little-endian float32 samples, as delivered by
// devices opened in f32 format.
func Float32FromBytes(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}

// PutFloat32 writes samples as little-endian float32 into dst, which must
// hold at least 4*len(samples) bytes.
func PutFloat32(dst []byte, samples []float32) {
	for i, s := range samples {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(s))
	}
}
