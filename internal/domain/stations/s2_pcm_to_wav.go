package stations

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

const (
	SampleRate     = 16000
	Channels       = 1
	BitsPerSample  = 16
	BytesPerSample = BitsPerSample / 8
	BytesPerSecond = SampleRate * Channels * BytesPerSample

	wavHeaderSize = 44
)

var ErrInvalidWAV = errors.New("invalid wav")

type S2PCMtoWAV struct{}

func NewS2PCMtoWAV() *S2PCMtoWAV { return &S2PCMtoWAV{} }

// Run wraps pcm into an in-memory mono 16-bit 16 kHz WAV.
func (s *S2PCMtoWAV) Run(pcm []byte) []byte {
	buf := bytes.NewBuffer(make([]byte, 0, wavHeaderSize+len(pcm)))
	_ = writeHeader(buf, len(pcm))
	_, _ = buf.Write(pcm)
	return buf.Bytes()
}

// Encode streams the WAV form of pcm into w.
func (s *S2PCMtoWAV) Encode(w io.Writer, pcm []byte) error {
	if err := writeHeader(w, len(pcm)); err != nil {
		return fmt.Errorf("write wav header: %w", err)
	}
	if _, err := w.Write(pcm); err != nil {
		return fmt.Errorf("write wav data: %w", err)
	}
	return nil
}

// WriteFile stores pcm as a WAV at path. The file appears only once fully
// written.
func (s *S2PCMtoWAV) WriteFile(path string, pcm []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create wav: %w", err)
	}
	tmpPath := tmp.Name()

	if err := s.Encode(tmp, pcm); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close wav: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("chmod wav: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename wav: %w", err)
	}
	return nil
}

// DecodeWAV validates a WAV produced by this station and returns its PCM.
func DecodeWAV(data []byte) ([]byte, error) {
	if len(data) < wavHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the header", ErrInvalidWAV, len(data))
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, fmt.Errorf("%w: missing RIFF/WAVE", ErrInvalidWAV)
	}
	if string(data[12:16]) != "fmt " || string(data[36:40]) != "data" {
		return nil, fmt.Errorf("%w: unexpected chunk layout", ErrInvalidWAV)
	}

	le := binary.LittleEndian
	if le.Uint16(data[20:22]) != 1 {
		return nil, fmt.Errorf("%w: not PCM", ErrInvalidWAV)
	}
	if ch := le.Uint16(data[22:24]); ch != Channels {
		return nil, fmt.Errorf("%w: %d channels", ErrInvalidWAV, ch)
	}
	if rate := le.Uint32(data[24:28]); rate != SampleRate {
		return nil, fmt.Errorf("%w: sample rate %d", ErrInvalidWAV, rate)
	}
	if bits := le.Uint16(data[34:36]); bits != BitsPerSample {
		return nil, fmt.Errorf("%w: %d bits per sample", ErrInvalidWAV, bits)
	}

	size := int(le.Uint32(data[40:44]))
	if size > len(data)-wavHeaderSize {
		return nil, fmt.Errorf("%w: data chunk truncated", ErrInvalidWAV)
	}
	return data[wavHeaderSize : wavHeaderSize+size], nil
}

func writeHeader(w io.Writer, dataSize int) error {
	const (
		byteRate   = SampleRate * Channels * BytesPerSample
		blockAlign = Channels * BytesPerSample
	)

	hdr := make([]byte, 0, wavHeaderSize)
	hdr = append(hdr, "RIFF"...)
	hdr = binary.LittleEndian.AppendUint32(hdr, uint32(36+dataSize))
	hdr = append(hdr, "WAVE"...)

	hdr = append(hdr, "fmt "...)
	hdr = binary.LittleEndian.AppendUint32(hdr, 16)
	hdr = binary.LittleEndian.AppendUint16(hdr, 1)
	hdr = binary.LittleEndian.AppendUint16(hdr, Channels)
	hdr = binary.LittleEndian.AppendUint32(hdr, SampleRate)
	hdr = binary.LittleEndian.AppendUint32(hdr, byteRate)
	hdr = binary.LittleEndian.AppendUint16(hdr, blockAlign)
	hdr = binary.LittleEndian.AppendUint16(hdr, BitsPerSample)

	hdr = append(hdr, "data"...)
	hdr = binary.LittleEndian.AppendUint32(hdr, uint32(dataSize))

	_, err := w.Write(hdr)
	return err
}
