package encoder

import (
	"encoding/binary"
	"math"
	"testing"
)

func sinePCM(seconds, sampleRate, channels int) []byte {
	n := seconds * sampleRate * channels
	pcm := make([]byte, n*2)
	for i := 0; i < n; i++ {
		s := int16(8000 * math.Sin(2*math.Pi*440*float64(i/channels)/float64(sampleRate)))
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(s))
	}
	return pcm
}

func TestEncodeFLACMono(t *testing.T) {
	pcm := sinePCM(2, 16000, 1)
	out, err := EncodeFLAC(pcm, 16000, 1)
	if err != nil {
		t.Fatalf("EncodeFLAC: %v", err)
	}
	if len(out) < 4 || string(out[:4]) != "fLaC" {
		t.Fatal("output does not start with FLAC magic")
	}
	if len(out) >= len(pcm) {
		t.Errorf("no compression: %d -> %d bytes", len(pcm), len(out))
	}
}

func TestEncodeFLACStereo(t *testing.T) {
	pcm := sinePCM(1, 48000, 2)
	out, err := EncodeFLAC(pcm, 48000, 2)
	if err != nil {
		t.Fatalf("EncodeFLAC: %v", err)
	}
	if string(out[:4]) != "fLaC" {
		t.Fatal("output does not start with FLAC magic")
	}
}

func TestEncodeFLACPartialBlock(t *testing.T) {
	// 1000 frames, less than one 4096-frame block.
	pcm := sinePCM(1, 1000, 1)
	if _, err := EncodeFLAC(pcm, 16000, 1); err != nil {
		t.Fatalf("EncodeFLAC partial: %v", err)
	}
}

func TestEncodeFLACEmpty(t *testing.T) {
	out, err := EncodeFLAC(nil, 16000, 1)
	if err != nil {
		t.Fatalf("EncodeFLAC empty: %v", err)
	}
	if len(out) == 0 {
		t.Error("expected at least a FLAC header")
	}
}

func TestEncodeFLACRejectsChannels(t *testing.T) {
	if _, err := EncodeFLAC(nil, 16000, 3); err == nil {
		t.Fatal("expected error for 3 channels")
	}
}
