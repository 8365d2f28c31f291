package audio

import (
	"bytes"
	"encoding/binary"
)

// Canonical PCM format sent to the recognition service.
const (
	SampleRate    = 16000
	Channels      = 1
	BitsPerSample = 16

	wavHeaderSize = 44
)

// PCMFormat describes raw little-endian integer PCM.
type PCMFormat struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
}

// DefaultFormat is 16 kHz, mono, 16-bit.
func DefaultFormat() PCMFormat {
	return PCMFormat{SampleRate: SampleRate, Channels: Channels, BitsPerSample: BitsPerSample}
}

func (f PCMFormat) withDefaults() PCMFormat {
	if f.SampleRate <= 0 {
		f.SampleRate = SampleRate
	}
	if f.Channels <= 0 {
		f.Channels = Channels
	}
	if f.BitsPerSample <= 0 {
		f.BitsPerSample = BitsPerSample
	}
	return f
}

// ByteRate is the number of PCM bytes per second of audio.
func (f PCMFormat) ByteRate() int {
	f = f.withDefaults()
	return f.SampleRate * f.Channels * f.BitsPerSample / 8
}

// EncodeWAV wraps pcm in a minimal 44-byte RIFF/WAVE header.
func EncodeWAV(pcm []byte, format PCMFormat) []byte {
	format = format.withDefaults()
	dataSize := uint32(len(pcm))
	blockAlign := uint16(format.Channels * format.BitsPerSample / 8)

	buf := bytes.NewBuffer(make([]byte, 0, wavHeaderSize+len(pcm)))
	le := binary.LittleEndian

	buf.WriteString("RIFF")
	_ = binary.Write(buf, le, dataSize+36)
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	_ = binary.Write(buf, le, uint32(16))
	_ = binary.Write(buf, le, uint16(1))
	_ = binary.Write(buf, le, uint16(format.Channels))
	_ = binary.Write(buf, le, uint32(format.SampleRate))
	_ = binary.Write(buf, le, uint32(format.ByteRate()))
	_ = binary.Write(buf, le, blockAlign)
	_ = binary.Write(buf, le, uint16(format.BitsPerSample))

	buf.WriteString("data")
	_ = binary.Write(buf, le, dataSize)
	buf.Write(pcm)

	return buf.Bytes()
}
