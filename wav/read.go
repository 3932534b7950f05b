package wav

import (
	"encoding/binary"
	"fmt"
	"os"
)

// Info describes a decoded WAV file.
type Info struct {
	SampleRate int
	Channels   int
	Frames     uint64
}

// ReadPCM loads the raw sample data and format of a 16-bit PCM WAV file.
// It validates that the declared data length matches the bytes present, which
// is exactly the consistency Finalize guarantees.
func ReadPCM(path string) ([]byte, Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, Info{}, &StorageError{Path: path, Err: err}
	}
	if len(data) < HeaderSize || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, Info{}, fmt.Errorf("wav: %s: not a RIFF/WAVE file", path)
	}
	if binary.LittleEndian.Uint16(hdrAt(data, 20)) != 1 || binary.LittleEndian.Uint16(hdrAt(data, 34)) != BitsPerSample {
		return nil, Info{}, fmt.Errorf("wav: %s: only 16-bit PCM supported", path)
	}
	channels := int(binary.LittleEndian.Uint16(hdrAt(data, 22)))
	sampleRate := int(binary.LittleEndian.Uint32(hdrAt(data, 24)))
	declared := binary.LittleEndian.Uint32(hdrAt(data, 40))

	pcm := data[HeaderSize:]
	if uint32(len(pcm)) != declared {
		return nil, Info{}, fmt.Errorf("wav: %s: header declares %d data bytes, file has %d",
			path, declared, len(pcm))
	}
	info := Info{
		SampleRate: sampleRate,
		Channels:   channels,
		Frames:     uint64(len(pcm)) / uint64(channels*bytesPerSample),
	}
	return pcm, info, nil
}

func hdrAt(data []byte, off int) []byte { return data[off : off+4] }
