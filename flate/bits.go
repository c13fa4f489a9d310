package flate

import "math/bits"

// A bitReader pulls bits least-significant first from the input slice of
// the current Step call. Bits above nbits in hold are always zero.
type bitReader struct {
	src   []byte
	pos   int
	hold  uint32
	nbits uint
}

func mask32(n uint) uint32 {
	return uint32(1)<<n - 1
}

// more moves one input byte into the bit buffer.
func (br *bitReader) more() bool {
	if br.pos >= len(br.src) {
		return false
	}
	br.hold |= uint32(br.src[br.pos]) << br.nbits
	br.pos++
	br.nbits += 8
	return true
}

// need makes sure at least n (<= 32) bits are buffered, reporting false if
// the input ran out first. Bytes already pulled stay buffered.
func (br *bitReader) need(n uint) bool {
	for br.nbits < n {
		if !br.more() {
			return false
		}
	}
	return true
}

// fill is need for callers that have already checked the input length.
func (br *bitReader) fill(n uint) {
	for br.nbits < n {
		br.hold |= uint32(br.src[br.pos]) << br.nbits
		br.pos++
		br.nbits += 8
	}
}

func (br *bitReader) bits(n uint) uint32 {
	return br.hold & mask32(n)
}

func (br *bitReader) drop(n uint) {
	br.hold >>= n
	br.nbits -= n
}

func (br *bitReader) take(n uint) uint32 {
	v := br.hold & mask32(n)
	br.drop(n)
	return v
}

func (br *bitReader) alignToByte() {
	br.drop(br.nbits & 7)
}

// unread returns up to n whole buffered bytes to the input.
func (br *bitReader) unread(n int) {
	if avail := int(br.nbits >> 3); n > avail {
		n = avail
	}
	br.pos -= n
	br.nbits -= uint(n) << 3
	br.hold &= mask32(br.nbits)
}

func (br *bitReader) reset() {
	br.src = nil
	br.pos = 0
	br.hold = 0
	br.nbits = 0
}

// A bitWriter packs bit fields least-significant first and appends whole
// 16-bit words to out. Fewer than 16 bits are held back between calls.
type bitWriter struct {
	out   []byte
	hold  uint32
	nbits uint
}

// writeBits appends the low n bits of value, with n <= 16.
func (w *bitWriter) writeBits(value uint32, n uint) {
	w.hold |= (value & mask32(n)) << w.nbits
	w.nbits += n
	if w.nbits >= 16 {
		w.out = append(w.out, byte(w.hold), byte(w.hold>>8))
		w.hold >>= 16
		w.nbits -= 16
	}
}

// flushBits moves whole buffered bytes to out, leaving at most 7 bits.
func (w *bitWriter) flushBits() {
	if w.nbits >= 8 {
		w.out = append(w.out, byte(w.hold))
		w.hold >>= 8
		w.nbits -= 8
	}
}

// windup pads the buffered bits to a byte boundary and writes them out.
func (w *bitWriter) windup() {
	if w.nbits > 8 {
		w.out = append(w.out, byte(w.hold), byte(w.hold>>8))
	} else if w.nbits > 0 {
		w.out = append(w.out, byte(w.hold))
	}
	w.hold = 0
	w.nbits = 0
}

func (w *bitWriter) writeUint16(v uint16) {
	w.out = append(w.out, byte(v), byte(v>>8))
}

func (w *bitWriter) reset() {
	w.out = w.out[:0]
	w.hold = 0
	w.nbits = 0
}

// reverseBits returns the low n (1..16) bits of code in reverse order.
func reverseBits(code uint16, n uint) uint16 {
	return bits.Reverse16(code) >> (16 - n)
}
