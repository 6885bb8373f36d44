package decode

import (
	"fmt"
	"io"
	"os"

	"github.com/mewkiz/flac"
)

// readFLACMono decodes a FLAC file to mono samples at its native rate.
func readFLACMono(path string) ([]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	stream, err := flac.New(f)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %q: %v", ErrDecode, path, err)
	}

	info := stream.Info
	channels := int(info.NChannels)
	if channels < 1 {
		return nil, 0, fmt.Errorf("%w: %q: no channels", ErrDecode, path)
	}
	scale := float64(int64(1) << (info.BitsPerSample - 1))

	var out []float64
	for {
		frame, err := stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %q: %v", ErrDecode, path, err)
		}
		for i := 0; i < int(frame.BlockSize); i++ {
			var sum float64
			for ch := 0; ch < channels; ch++ {
				sum += float64(frame.Subframes[ch].Samples[i])
			}
			out = append(out, sum/float64(channels)/scale)
		}
	}
	return out, int(info.SampleRate), nil
}
