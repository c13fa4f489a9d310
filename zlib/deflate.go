package zlib

import (
	"encoding/binary"
	"hash"
	"hash/adler32"

	"github.com/pkg/errors"

	"github.com/deflatekit/pack/flate"
)

type deflateState uint8

const (
	sendHeader deflateState = iota
	sendBody
	sendTrailer
	sendDone
)

// A Deflater writes a zlib stream one Step at a time.
type Deflater struct {
	f        *flate.Deflater
	level    int
	strategy flate.Strategy

	state   deflateState
	out     [6]byte
	nout    int
	sent    int
	dictID  uint32
	hasDict bool
	digest  hash.Hash32
	err     error

	totalIn, totalOut int64
}

// NewDeflater returns a Deflater for the given level and strategy, as for
// flate.NewDeflater.
func NewDeflater(level int, strategy flate.Strategy) (*Deflater, error) {
	f, err := flate.NewDeflater(level, strategy)
	if err != nil {
		return nil, err
	}
	if level == flate.DefaultCompression {
		level = 6
	}
	z := &Deflater{f: f, level: level, strategy: strategy, digest: adler32.New()}
	z.Reset()
	return z, nil
}

// Reset discards all state, including any dictionary, so that z can write a
// new stream.
func (z *Deflater) Reset() {
	z.f.Reset()
	z.state = sendHeader
	z.nout, z.sent = 0, 0
	z.dictID = 0
	z.hasDict = false
	z.digest.Reset()
	z.err = nil
	z.totalIn, z.totalOut = 0, 0
}

// SetDictionary primes the compressor with dict and records its Adler-32 in
// the header. It must be called before the first Step.
func (z *Deflater) SetDictionary(dict []byte) error {
	if z.err != nil {
		return z.err
	}
	if z.state != sendHeader || z.nout != 0 {
		return flate.ErrDictionary
	}
	if err := z.f.SetDictionary(dict); err != nil {
		return err
	}
	z.dictID = adler32.Checksum(dict)
	z.hasDict = true
	return nil
}

// TotalIn is the number of uncompressed bytes consumed so far.
func (z *Deflater) TotalIn() int64 { return z.totalIn }

// TotalOut is the number of zlib bytes produced so far.
func (z *Deflater) TotalOut() int64 { return z.totalOut }

// Step compresses src into dst, with the same contract as
// (*flate.Deflater).Step.
func (z *Deflater) Step(dst, src []byte, flush flate.Flush) (nDst, nSrc int, status flate.Status, err error) {
	if z.err != nil {
		return 0, 0, flate.StatusStreamError, z.err
	}
	defer func() {
		z.totalIn += int64(nSrc)
		z.totalOut += int64(nDst)
	}()

	for {
		switch z.state {
		case sendHeader:
			if z.nout == 0 {
				z.nout = z.appendHeader()
			}
			if !z.drain(dst, &nDst) {
				return nDst, nSrc, progress(nDst, nSrc, flate.StatusNeedOutput), nil
			}
			z.state = sendBody

		case sendBody:
			n, m, st, err := z.f.Step(dst[nDst:], src, flush)
			z.digest.Write(src[:m])
			nDst += n
			nSrc += m
			if err != nil {
				z.err = err
				return nDst, nSrc, st, err
			}
			if st != flate.StatusStreamEnd {
				return nDst, nSrc, progress(nDst, nSrc, st), nil
			}
			binary.BigEndian.PutUint32(z.out[:4], z.digest.Sum32())
			z.nout, z.sent = 4, 0
			z.state = sendTrailer

		case sendTrailer:
			if !z.drain(dst, &nDst) {
				return nDst, nSrc, progress(nDst, nSrc, flate.StatusNeedOutput), nil
			}
			z.state = sendDone

		case sendDone:
			if flush != flate.Finish || len(src) != 0 {
				z.err = errors.Wrap(flate.ErrStream, "zlib: stream already finished")
				return nDst, nSrc, flate.StatusStreamError, z.err
			}
			return nDst, nSrc, flate.StatusStreamEnd, nil
		}
	}
}

// drain copies the rest of z.out to dst and reports whether it is all out.
func (z *Deflater) drain(dst []byte, nDst *int) bool {
	n := copy(dst[*nDst:], z.out[z.sent:z.nout])
	z.sent += n
	*nDst += n
	return z.sent == z.nout
}

func (z *Deflater) appendHeader() int {
	hdr := header(z.level, z.strategy, z.hasDict)
	copy(z.out[:], hdr)
	if z.hasDict {
		binary.BigEndian.PutUint32(z.out[2:], z.dictID)
		return 6
	}
	return 2
}

// header returns CMF and FLG for a 32 KiB window. FLEVEL follows the level
// the way zlib's own writer sets it.
func header(level int, strategy flate.Strategy, dict bool) []byte {
	var flevel uint
	switch {
	case strategy == flate.HuffmanOnly || level < 2:
		flevel = 0
	case level < 6:
		flevel = 1
	case level == 6:
		flevel = 2
	default:
		flevel = 3
	}
	h := uint(methodDeflate|(maxWindowBits-8)<<4)<<8 | flevel<<6
	if dict {
		h |= flagDict
	}
	h += 31 - h%31
	return []byte{byte(h >> 8), byte(h)}
}
