package transcode

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"
)

func samples(values ...int16) []byte {
	b := make([]byte, 2*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint16(b[2*i:], uint16(v))
	}
	return b
}

func decode(b []byte) []int16 {
	out := make([]int16, len(b)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(b[2*i:]))
	}
	return out
}

type collector struct {
	chunks [][]byte
}

func (c *collector) emit(chunk []byte) error {
	c.chunks = append(c.chunks, chunk)
	return nil
}

func (c *collector) bytes() []byte {
	var all []byte
	for _, chunk := range c.chunks {
		all = append(all, chunk...)
	}
	return all
}

func TestGainScalesAndClamps(t *testing.T) {
	tests := []struct {
		name string
		in   int16
		want int16
	}{
		{"zero", 0, 0},
		{"positive", 1000, 1750},
		{"negative", -1000, -1750},
		{"rounds", 3, 5},
		{"clamps high", 20000, math.MaxInt16},
		{"clamps low", -20000, math.MinInt16},
		{"max", math.MaxInt16, math.MaxInt16},
		{"min", math.MinInt16, math.MinInt16},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGain(DefaultGain)
			c := &collector{}
			if err := g.Process(samples(tt.in), c.emit); err != nil {
				t.Fatalf("Process() error = %v", err)
			}
			got := decode(c.bytes())
			if len(got) != 1 || got[0] != tt.want {
				t.Errorf("gain(%d) = %v, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestGainCarriesSplitSample(t *testing.T) {
	input := samples(100, -200, 300)

	g := NewGain(2)
	c := &collector{}
	// split in the middle of the second sample
	if err := g.Process(input[:3], c.emit); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if err := g.Process(input[3:], c.emit); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if err := g.Finish(c.emit); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}

	got := decode(c.bytes())
	want := []int16{200, -400, 600}
	if len(got) != len(want) {
		t.Fatalf("got %d samples, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestGainSingleByteChunks(t *testing.T) {
	input := samples(10, 20)

	g := NewGain(1)
	c := &collector{}
	for i := range input {
		if err := g.Process(input[i:i+1], c.emit); err != nil {
			t.Fatalf("Process() error = %v", err)
		}
	}
	if err := g.Finish(c.emit); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}

	got := decode(c.bytes())
	if len(got) != 2 || got[0] != 10 || got[1] != 20 {
		t.Errorf("got %v, want [10 20]", got)
	}
}

func TestGainDanglingHalfSample(t *testing.T) {
	g := NewGain(DefaultGain)
	c := &collector{}
	if err := g.Process([]byte{1, 2, 3}, c.emit); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if err := g.Finish(c.emit); !errors.Is(err, ErrDanglingSample) {
		t.Errorf("Finish() error = %v, want ErrDanglingSample", err)
	}
}
