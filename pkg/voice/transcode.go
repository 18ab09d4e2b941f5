package voice

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os/exec"

	"github.com/go-audio/wav"
	mp3 "github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
)

// SampleRate is the PCM rate the recognizer expects.
const SampleRate = 16000

// Transcode decodes an audio container to mono 16 kHz linear PCM16
// (little-endian bytes). WAV, MP3 and Ogg Vorbis decode in pure Go; MP4/M4A,
// the container the messaging platform actually delivers, goes through an
// ffmpeg subprocess since no pure-Go AAC decoder exists.
func Transcode(ctx context.Context, data []byte) ([]byte, error) {
	switch sniff(data) {
	case "wav":
		x, err := decodeWAV(data)
		if err != nil {
			return nil, err
		}
		return pcm16Bytes(x), nil
	case "ogg":
		x, err := decodeOggVorbis(data)
		if err != nil {
			return nil, err
		}
		return pcm16Bytes(x), nil
	case "mp3":
		x, err := decodeMP3(data)
		if err != nil {
			return nil, err
		}
		return pcm16Bytes(x), nil
	case "mp4":
		return ffmpegPCM16(ctx, data)
	default:
		return nil, errors.New("unsupported audio container")
	}
}

// sniff classifies a container by its magic bytes.
func sniff(data []byte) string {
	switch {
	case len(data) >= 4 && string(data[:4]) == "RIFF":
		return "wav"
	case len(data) >= 4 && string(data[:4]) == "OggS":
		return "ogg"
	case len(data) >= 8 && string(data[4:8]) == "ftyp":
		return "mp4"
	case len(data) >= 3 && string(data[:3]) == "ID3":
		return "mp3"
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return "mp3"
	default:
		return ""
	}
}

func decodeWAV(data []byte) ([]float32, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, errors.New("invalid wav")
	}
	pb, err := dec.FullPCMBuffer()
	if err != nil || pb == nil || pb.Data == nil {
		if err == nil {
			err = errors.New("empty wav")
		}
		return nil, err
	}

	bd := int(dec.BitDepth)
	if bd == 0 {
		bd = 16
	}
	x := intsToFloat32(pb.Data, bd)

	ch, sr := 1, 44100
	if pb.Format != nil {
		if pb.Format.NumChannels > 0 {
			ch = pb.Format.NumChannels
		}
		if pb.Format.SampleRate > 0 {
			sr = pb.Format.SampleRate
		}
	}
	if ch > 1 {
		x = downmix(x, ch)
	}
	if sr != SampleRate {
		x = resample(x, sr, SampleRate)
	}
	return x, nil
}

func decodeMP3(data []byte) ([]float32, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	var raw bytes.Buffer
	if _, err := io.Copy(&raw, dec); err != nil {
		return nil, err
	}
	ints := make([]int16, raw.Len()/2)
	if err := binary.Read(bytes.NewReader(raw.Bytes()), binary.LittleEndian, &ints); err != nil {
		return nil, err
	}

	x := int16sToFloat32(ints)
	x = downmix(x, 2) // the decoder always outputs stereo

	sr := dec.SampleRate()
	if sr <= 0 {
		sr = 44100
	}
	if sr != SampleRate {
		x = resample(x, sr, SampleRate)
	}
	return x, nil
}

func decodeOggVorbis(data []byte) ([]float32, error) {
	pcm, format, err := oggvorbis.ReadAll(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if format == nil || format.Channels <= 0 || format.SampleRate <= 0 {
		return nil, errors.New("invalid ogg/vorbis stream")
	}

	x := pcm
	if format.Channels > 1 {
		x = downmix(x, format.Channels)
	}
	if format.SampleRate != SampleRate {
		x = resample(x, format.SampleRate, SampleRate)
	}
	return x, nil
}

// ffmpegPCM16 shells out to ffmpeg for AAC-family containers, reading the
// clip on stdin and raw s16le mono 16 kHz PCM on stdout.
func ffmpegPCM16(ctx context.Context, data []byte) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-hide_banner", "-loglevel", "error",
		"-i", "pipe:0",
		"-ac", "1",
		"-ar", "16000",
		"-f", "s16le",
		"pipe:1",
	)
	cmd.Stdin = bytes.NewReader(data)

	var out, errBuf bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errBuf

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg: %v: %s", err, bytes.TrimSpace(errBuf.Bytes()))
	}
	if out.Len() == 0 {
		return nil, errors.New("ffmpeg produced no audio")
	}
	return out.Bytes(), nil
}

func intsToFloat32(data []int, bitDepth int) []float32 {
	out := make([]float32, len(data))
	scale := 1.0 / float64(int64(1)<<(bitDepth-1))
	for i, v := range data {
		out[i] = float32(clamp(float64(v)*scale, -1.0, 1.0))
	}
	return out
}

func int16sToFloat32(data []int16) []float32 {
	out := make([]float32, len(data))
	const scale = 1.0 / 32768.0
	for i, v := range data {
		out[i] = float32(float64(v) * scale)
	}
	return out
}

func downmix(in []float32, channels int) []float32 {
	if channels <= 1 {
		return in
	}
	frames := len(in) / channels
	out := make([]float32, frames)
	for f := 0; f < frames; f++ {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += in[f*channels+c]
		}
		out[f] = sum / float32(channels)
	}
	return out
}

func resample(in []float32, from, to int) []float32 {
	if from == to || len(in) == 0 {
		return in
	}
	n := int(float64(len(in)) * float64(to) / float64(from))
	if n <= 0 {
		return nil
	}
	out := make([]float32, n)
	step := float64(from) / float64(to)
	for i := range out {
		pos := float64(i) * step
		j := int(pos)
		if j >= len(in)-1 {
			out[i] = in[len(in)-1]
			continue
		}
		frac := float32(pos - float64(j))
		out[i] = in[j]*(1-frac) + in[j+1]*frac
	}
	return out
}

func pcm16Bytes(x []float32) []byte {
	out := make([]byte, len(x)*2)
	for i, v := range x {
		s := int16(math.Round(clamp(float64(v), -1.0, 1.0) * 32767))
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
