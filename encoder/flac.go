// Package encoder compresses finalized PCM recordings into FLAC for upload.
// The durable session file stays WAV; FLAC only shrinks the network payload
// sent to the transcription service, losslessly.
package encoder

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
	"github.com/mewkiz/flac/meta"
)

const (
	BlockSize     = 4096
	BitsPerSample = 16
)

// EncodeFLAC encodes interleaved little-endian 16-bit PCM into a FLAC stream.
// Mono and stereo are supported; that covers every capture config the session
// recorder produces.
func EncodeFLAC(pcm []byte, sampleRate, channels int) ([]byte, error) {
	if channels != 1 && channels != 2 {
		return nil, fmt.Errorf("flac: %d channels unsupported", channels)
	}

	var buf bytes.Buffer
	info := &meta.StreamInfo{
		BlockSizeMin:  BlockSize,
		BlockSizeMax:  BlockSize,
		SampleRate:    uint32(sampleRate),
		NChannels:     uint8(channels),
		BitsPerSample: BitsPerSample,
	}
	enc, err := flac.NewEncoder(&buf, info)
	if err != nil {
		return nil, fmt.Errorf("creating flac encoder: %w", err)
	}
	enc.EnablePredictionAnalysis(true)

	samples := make([]int32, len(pcm)/2)
	for i := range samples {
		samples[i] = int32(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
	}

	frameSamples := BlockSize * channels
	for off := 0; off < len(samples); off += frameSamples {
		end := min(off+frameSamples, len(samples))
		if err := writeFrame(enc, samples[off:end], sampleRate, channels); err != nil {
			return nil, err
		}
	}

	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("closing flac encoder: %w", err)
	}
	return buf.Bytes(), nil
}

func writeFrame(enc *flac.Encoder, interleaved []int32, sampleRate, channels int) error {
	nFrames := len(interleaved) / channels

	subframes := make([]*frame.Subframe, channels)
	for ch := range subframes {
		chSamples := make([]int32, nFrames)
		for i := range chSamples {
			chSamples[i] = interleaved[i*channels+ch]
		}
		subframes[ch] = &frame.Subframe{
			SubHeader: frame.SubHeader{
				Pred: frame.PredVerbatim,
			},
			Samples:  chSamples,
			NSamples: nFrames,
		}
	}

	chMode := frame.ChannelsMono
	if channels == 2 {
		chMode = frame.ChannelsLR
	}

	f := &frame.Frame{
		Header: frame.Header{
			BlockSize:     uint16(nFrames),
			SampleRate:    uint32(sampleRate),
			Channels:      chMode,
			BitsPerSample: BitsPerSample,
		},
		Subframes: subframes,
	}

	if err := enc.WriteFrame(f); err != nil {
		return fmt.Errorf("writing flac frame: %w", err)
	}
	return nil
}
