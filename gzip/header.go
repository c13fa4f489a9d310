// Package gzip implements the gzip file format (RFC 1952) around the raw
// DEFLATE engines of package flate.
package gzip

import (
	"encoding/binary"
	"hash/crc32"
	"time"

	"github.com/pkg/errors"

	"github.com/deflatekit/pack/flate"
)

const (
	id1           = 0x1f
	id2           = 0x8b
	methodDeflate = 8

	flagText    = 1 << 0
	flagHdrCrc  = 1 << 1
	flagExtra   = 1 << 2
	flagName    = 1 << 3
	flagComment = 1 << 4
	flagsKnown  = flagText | flagHdrCrc | flagExtra | flagName | flagComment

	// OSUnknown is the OS byte written when Header.OS is zero.
	OSUnknown = 255
)

// A Header carries the metadata of a gzip member. Name and Comment are
// stored as ISO 8859-1.
type Header struct {
	Name    string
	Comment string
	Extra   []byte
	ModTime time.Time
	OS      byte
	Text    bool // FTEXT: the data is probably text
	HdrCrc  bool // write a CRC-16 of the header (FHCRC)
}

// appendHeader appends the serialized header to dst. level only sets the
// XFL byte.
func (h *Header) appendHeader(dst []byte, level int) ([]byte, error) {
	start := len(dst)
	var flg byte
	if h.Text {
		flg |= flagText
	}
	if h.HdrCrc {
		flg |= flagHdrCrc
	}
	if h.Extra != nil {
		flg |= flagExtra
	}
	if h.Name != "" {
		flg |= flagName
	}
	if h.Comment != "" {
		flg |= flagComment
	}
	dst = append(dst, id1, id2, methodDeflate, flg)

	var mtime uint32
	if !h.ModTime.IsZero() && h.ModTime.Unix() > 0 {
		mtime = uint32(h.ModTime.Unix())
	}
	dst = binary.LittleEndian.AppendUint32(dst, mtime)

	var xfl byte
	switch level {
	case flate.BestCompression:
		xfl = 2
	case flate.BestSpeed:
		xfl = 4
	}
	os := h.OS
	if os == 0 {
		os = OSUnknown
	}
	dst = append(dst, xfl, os)

	if h.Extra != nil {
		if len(h.Extra) > 0xffff {
			return dst, errors.Errorf("gzip: extra field of %d bytes is too long", len(h.Extra))
		}
		dst = binary.LittleEndian.AppendUint16(dst, uint16(len(h.Extra)))
		dst = append(dst, h.Extra...)
	}
	var err error
	if h.Name != "" {
		if dst, err = appendLatin1(dst, h.Name); err != nil {
			return dst, errors.Wrap(err, "gzip: file name")
		}
	}
	if h.Comment != "" {
		if dst, err = appendLatin1(dst, h.Comment); err != nil {
			return dst, errors.Wrap(err, "gzip: comment")
		}
	}
	if h.HdrCrc {
		crc := crc32.ChecksumIEEE(dst[start:])
		dst = binary.LittleEndian.AppendUint16(dst, uint16(crc))
	}
	return dst, nil
}

// appendLatin1 appends s as a zero-terminated ISO 8859-1 string.
func appendLatin1(dst []byte, s string) ([]byte, error) {
	for _, r := range s {
		if r == 0 || r > 0xff {
			return dst, errors.Errorf("%q cannot be stored as a zero-terminated Latin-1 string", s)
		}
		dst = append(dst, byte(r))
	}
	return append(dst, 0), nil
}

// latin1 decodes ISO 8859-1 bytes.
func latin1(b []byte) string {
	r := make([]rune, len(b))
	for i, c := range b {
		r[i] = rune(c)
	}
	return string(r)
}
