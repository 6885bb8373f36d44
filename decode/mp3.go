package decode

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	mp3 "github.com/hajimehoshi/go-mp3"
)

// readMP3Mono decodes an MP3 file to mono samples at its native rate.
// go-mp3 always emits 16-bit little-endian stereo frames.
func readMP3Mono(path string) ([]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	dec, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %q: %v", ErrDecode, path, err)
	}

	var out []float64
	buf := make([]byte, 16384)
	var carry []byte
	for {
		n, err := dec.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			if len(carry) > 0 {
				chunk = append(carry, chunk...)
				carry = nil
			}
			// One stereo frame is 4 bytes; keep any partial frame for the
			// next read.
			whole := len(chunk) / 4 * 4
			for i := 0; i < whole; i += 4 {
				l := int16(binary.LittleEndian.Uint16(chunk[i:]))
				r := int16(binary.LittleEndian.Uint16(chunk[i+2:]))
				out = append(out, (float64(l)+float64(r))/2.0/32768.0)
			}
			if whole < len(chunk) {
				carry = append(carry, chunk[whole:]...)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %q: %v", ErrDecode, path, err)
		}
	}
	return out, dec.SampleRate(), nil
}
