// Copyright 2009 The Go Authors. All rights reserved.
// Copyright (c) 2015 Klaus Post
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package flate

import (
	"encoding/binary"
	"math/bits"
)

const (
	logWindowSize = 15
	windowSize    = 1 << logWindowSize
	windowMask    = windowSize - 1

	hashBits  = 15
	hashSize  = 1 << hashBits
	hashMask  = hashSize - 1
	hashShift = (hashBits + minMatchLength - 1) / minMatchLength

	// minLookahead is the lookahead needed to find a full-length match and
	// hash the bytes after it.
	minLookahead = maxMatchLength + minMatchLength + 1
	// maxDist is the farthest back a match may start, keeping minLookahead
	// bytes of slack for the window slide.
	maxDist = windowSize - minLookahead

	// tooFar is the distance past which a 3 byte match costs more than the
	// literals.
	tooFar = 4096
)

type compressionLevel struct {
	good, lazy, nice, chain int
	strategy                blockStrategy
}

type blockStrategy uint8

const (
	storedStrategy blockStrategy = iota
	fastStrategy
	slowStrategy
)

var levels = []compressionLevel{
	{0, 0, 0, 0, storedStrategy}, // 0
	{4, 4, 8, 4, fastStrategy},
	{4, 5, 16, 8, fastStrategy},
	{4, 6, 32, 32, fastStrategy},
	{4, 4, 16, 16, slowStrategy},
	{8, 16, 32, 32, slowStrategy},
	{8, 16, 128, 128, slowStrategy}, // 6
	{8, 32, 128, 256, slowStrategy},
	{32, 128, 258, 1024, slowStrategy},
	{32, 258, 258, 4096, slowStrategy}, // 9
}

// hashState is the LZ77 side of the Deflater: a window of two halves, where
// input is appended after the lookahead and the upper half slides down once
// the scan position nears the end, plus hash chains over every position.
//
// head[h] is the latest position whose next 3 bytes hash to h, and
// prev[pos&windowMask] the previous position with the same hash. Position 0
// doubles as the end of a chain, so it is never matched.
type hashState struct {
	window     []byte
	head       []uint16
	prev       []uint16
	insH       uint32
	strstart   int // scan position
	lookahead  int // valid bytes from strstart
	blockStart int // window position of the current block, negative once slid out
	matchStart int

	good, lazy, nice, chain int
}

func (s *hashState) initHash(lvl compressionLevel) {
	if s.window == nil {
		s.window = make([]byte, 2*windowSize)
		s.head = make([]uint16, hashSize)
		s.prev = make([]uint16, windowSize)
	}
	s.clearHash()
	s.good, s.lazy, s.nice, s.chain = lvl.good, lvl.lazy, lvl.nice, lvl.chain
	s.strstart, s.lookahead, s.blockStart, s.matchStart = 0, 0, 0, 0
	s.insH = 0
}

func (s *hashState) clearHash() {
	for i := range s.head {
		s.head[i] = 0
	}
}

func (s *hashState) updateHash(c byte) {
	s.insH = (s.insH<<hashShift ^ uint32(c)) & hashMask
}

// insert adds the string at pos to its hash chain and returns the previous
// head of that chain.
func (s *hashState) insert(pos int) int {
	s.updateHash(s.window[pos+minMatchLength-1])
	h := s.head[s.insH]
	s.prev[pos&windowMask] = h
	s.head[s.insH] = uint16(pos)
	return int(h)
}

// rehash restarts the rolling hash at strstart.
func (s *hashState) rehash() {
	s.insH = uint32(s.window[s.strstart])
	s.updateHash(s.window[s.strstart+1])
}

// slide moves the upper half of the window down and rebases the chains.
func (s *hashState) slide() {
	copy(s.window, s.window[windowSize:])
	s.matchStart -= windowSize
	s.strstart -= windowSize
	s.blockStart -= windowSize
	for i, v := range s.head {
		if v >= windowSize {
			s.head[i] = v - windowSize
		} else {
			s.head[i] = 0
		}
	}
	for i, v := range s.prev {
		if v >= windowSize {
			s.prev[i] = v - windowSize
		} else {
			s.prev[i] = 0
		}
	}
}

// fillWindow reads from src into the window until the lookahead is at
// least minLookahead or src is exhausted. It returns the bytes consumed.
func (s *hashState) fillWindow(src []byte) int {
	read := 0
	for {
		more := len(s.window) - s.lookahead - s.strstart
		if s.strstart >= windowSize+maxDist {
			s.slide()
			more += windowSize
		}
		if read == len(src) {
			return read
		}
		n := copy(s.window[s.strstart+s.lookahead:s.strstart+s.lookahead+more], src[read:])
		read += n
		s.lookahead += n
		if s.lookahead >= minMatchLength {
			s.rehash()
		}
		if s.lookahead >= minLookahead || read == len(src) {
			return read
		}
	}
}

// longestMatch walks the hash chain from curMatch and returns the length of
// the longest match for the string at strstart, setting matchStart. Matches
// no longer than prevLength are ignored, and the result never exceeds the
// lookahead.
func (s *hashState) longestMatch(curMatch, prevLength int) int {
	chain := s.chain
	best := prevLength
	nice := s.nice
	limit := 0
	if s.strstart > maxDist {
		limit = s.strstart - maxDist
	}
	if prevLength >= s.good {
		chain >>= 2
	}
	if nice > s.lookahead {
		nice = s.lookahead
	}

	end := s.strstart + maxMatchLength
	if end > len(s.window) {
		end = len(s.window)
	}
	scan := s.window[s.strstart:end]
	if best >= len(scan) {
		return min(best, s.lookahead)
	}

	for {
		match := s.window[curMatch : curMatch+len(scan)]
		if match[best] == scan[best] && match[best-1] == scan[best-1] &&
			match[0] == scan[0] && match[1] == scan[1] {
			if n := matchLen(match, scan); n > best {
				s.matchStart = curMatch
				best = n
				if n >= nice || n >= len(scan) {
					break
				}
			}
		}
		curMatch = int(s.prev[curMatch&windowMask])
		if curMatch <= limit {
			break
		}
		chain--
		if chain == 0 {
			break
		}
	}
	return min(best, s.lookahead)
}

// matchLen returns the maximum length.
// 'a' must be the shortest of the two.
func matchLen(a, b []byte) int {
	var checked int

	for len(a) >= 8 {
		if diff := binary.LittleEndian.Uint64(a) ^ binary.LittleEndian.Uint64(b); diff != 0 {
			return checked + (bits.TrailingZeros64(diff) >> 3)
		}
		checked += 8
		a = a[8:]
		b = b[8:]
	}
	b = b[:len(a)]
	for i := range a {
		if a[i] != b[i] {
			return i + checked
		}
	}
	return len(a) + checked
}
