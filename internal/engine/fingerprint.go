package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/disintegration/imaging"
)

// Fingerprint is a 64-bit perceptual hash of an image: an 8x8 grayscale
// downsample thresholded at its mean intensity. Visually identical images
// collide on purpose; that collision is what exact grouping keys on.
type Fingerprint uint64

const hashSize = 8

// String renders the fingerprint as 16 hex digits, the format the reports
// and the cache use.
func (f Fingerprint) String() string {
	return fmt.Sprintf("%016x", uint64(f))
}

// MarshalJSON emits the hex form; raw 64-bit values overflow the integer
// range of most JSON consumers.
func (f Fingerprint) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.String())
}

// UnmarshalJSON parses the hex form.
func (f *Fingerprint) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	raw, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return fmt.Errorf("parse fingerprint: %w", err)
	}
	*f = Fingerprint(raw)
	return nil
}

// ComputeFingerprint derives the perceptual hash of raw image bytes.
//
// The algorithm must stay bit-for-bit stable across versions because exact
// grouping depends on fingerprint equality: decode, convert to grayscale,
// resize to 8x8 with a box (area-averaging) filter ignoring aspect ratio,
// then set bit i (row-major, i = row*8+col) when pixel i's intensity is at
// least the mean of all 64 intensities.
func ComputeFingerprint(data []byte) (Fingerprint, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return 0, &DecodeError{Err: err}
	}

	small := imaging.Resize(imaging.Grayscale(img), hashSize, hashSize, imaging.Box)

	var intensities [hashSize * hashSize]uint8
	var sum int
	for y := 0; y < hashSize; y++ {
		for x := 0; x < hashSize; x++ {
			// Grayscale output has equal channels; red carries the intensity.
			v := small.NRGBAAt(x, y).R
			intensities[y*hashSize+x] = v
			sum += int(v)
		}
	}
	mean := float64(sum) / float64(len(intensities))

	var fp Fingerprint
	for i, v := range intensities {
		if float64(v) >= mean {
			fp |= 1 << uint(i)
		}
	}
	return fp, nil
}
