package flate

import (
	"bytes"
	"testing"
)

func FuzzRoundTrip(f *testing.F) {
	f.Add([]byte("HelloHelloHelloHelloHelloHelloHelloHelloHelloHello, world"), uint8(6), uint16(100))
	f.Add([]byte{}, uint8(0), uint16(1))
	f.Add(bytes.Repeat([]byte{0}, 1000), uint8(9), uint16(7))
	f.Fuzz(func(t *testing.T, data []byte, level uint8, chunk uint16) {
		lvl := int(level % 10)
		strategy := Strategy(level / 10 % 3)
		step := int(chunk%4096) + 1
		d, err := NewDeflater(lvl, strategy)
		if err != nil {
			t.Fatal(err)
		}
		comp, err := deflateChunks(d, data, step, step)
		if err != nil {
			t.Fatal(err)
		}
		inf, _ := NewInflater(15)
		got, status, err := inflateChunks(inf, comp, step, step)
		if err != nil || status != StatusStreamEnd {
			t.Fatalf("level %d: %v, %v", lvl, status, err)
		}
		if !bytes.Equal(got, data) {
			t.Fatalf("level %d: round trip mismatch", lvl)
		}
	})
}

// Arbitrary input must never make the Inflater panic or loop, and it must
// agree with the reference decoder on valid streams.
func FuzzInflate(f *testing.F) {
	f.Add([]byte{0x4b, 0x04, 0x00})
	f.Add([]byte{0x01, 0x05, 0x00, 0xfa, 0xff, 'h', 'e', 'l', 'l', 'o'})
	f.Add(missingEOB())
	f.Fuzz(func(t *testing.T, comp []byte) {
		inf, _ := NewInflater(15)
		got, status, err := inflateChunks(inf, comp, 13, 29)
		if status != StatusStreamEnd {
			return
		}
		if err != nil {
			t.Fatal(err)
		}
		ref, rerr := referenceInflate(comp, nil)
		if rerr != nil {
			return
		}
		if !bytes.Equal(got, ref) {
			t.Fatalf("decoded %d bytes, reference decoded %d", len(got), len(ref))
		}
	})
}
