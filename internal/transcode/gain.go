package transcode

import (
	"encoding/binary"
	"errors"
	"math"
)

// DefaultGain is the volume multiplier applied to assistant speech
const DefaultGain = 1.75

// ErrDanglingSample is returned when the flow ends in the middle of a sample
var ErrDanglingSample = errors.New("input ended with half a sample")

// Gain scales signed 16-bit little-endian samples by a constant factor,
// clamping to the int16 range. A sample split across two chunks is carried
// over to the next call.
type Gain struct {
	factor   float64
	carry    byte
	hasCarry bool
}

// NewGain creates a gain stage
func NewGain(factor float64) *Gain {
	return &Gain{factor: factor}
}

func (g *Gain) Name() string { return "gain" }

func (g *Gain) Process(chunk []byte, emit Emit) error {
	data := chunk
	if g.hasCarry {
		data = make([]byte, 0, len(chunk)+1)
		data = append(data, g.carry)
		data = append(data, chunk...)
		g.hasCarry = false
	}

	n := len(data) &^ 1
	if n < len(data) {
		g.carry = data[n]
		g.hasCarry = true
	}
	if n == 0 {
		return nil
	}

	out := make([]byte, n)
	for i := 0; i < n; i += 2 {
		sample := int16(binary.LittleEndian.Uint16(data[i:]))
		binary.LittleEndian.PutUint16(out[i:], uint16(g.scale(sample)))
	}
	return emit(out)
}

func (g *Gain) Finish(Emit) error {
	if g.hasCarry {
		return ErrDanglingSample
	}
	return nil
}

// Abort drops a carried half sample
func (g *Gain) Abort(error) {
	g.hasCarry = false
}

func (g *Gain) scale(sample int16) int16 {
	v := math.Round(float64(sample) * g.factor)
	switch {
	case v > math.MaxInt16:
		return math.MaxInt16
	case v < math.MinInt16:
		return math.MinInt16
	}
	return int16(v)
}
