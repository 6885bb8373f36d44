package decode

import (
	"fmt"
	"os"

	"github.com/jfreymuth/oggvorbis"
)

func readOGGMono(path string) ([]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	data, format, err := oggvorbis.ReadAll(f)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %q: %v", ErrDecode, path, err)
	}
	if format == nil || format.Channels < 1 {
		return nil, 0, fmt.Errorf("%w: invalid ogg stream %q", ErrDecode, path)
	}

	ch := format.Channels
	frames := len(data) / ch
	out := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < ch; c++ {
			sum += float64(data[i*ch+c])
		}
		out[i] = sum / float64(ch)
	}
	return out, format.SampleRate, nil
}
