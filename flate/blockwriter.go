package flate

const litBufSize = 1 << 14

// A blockWriter collects literal and match tokens for one block and
// serializes the block as stored, static or dynamic, whichever is smallest.
type blockWriter struct {
	bitWriter
	treeBuilder

	ltree  [heapSize]hnode
	dtree  [2*dCodes + 1]hnode
	bltree [2*blCodes + 1]hnode
	lDesc  treeDesc
	dDesc  treeDesc
	blDesc treeDesc

	// Token buffer: dists[i] == 0 means lits[i] is a literal byte,
	// otherwise lits[i] is the match length - 3.
	lits    []uint8
	dists   []uint16
	lastLit int
	matches int

	lastEOBLen int // bits in the code of the last end of block
}

func (bw *blockWriter) init() {
	bw.lDesc = treeDesc{tree: bw.ltree[:], stat: &staticLDesc}
	bw.dDesc = treeDesc{tree: bw.dtree[:], stat: &staticDDesc}
	bw.blDesc = treeDesc{tree: bw.bltree[:], stat: &staticBLDesc}
	if bw.lits == nil {
		bw.lits = make([]uint8, litBufSize)
		bw.dists = make([]uint16, litBufSize)
	}
	bw.bitWriter.reset()
	bw.lastEOBLen = 8
	bw.initBlock()
}

func (bw *blockWriter) initBlock() {
	for n := 0; n < lCodes; n++ {
		bw.ltree[n].freq = 0
	}
	for n := 0; n < dCodes; n++ {
		bw.dtree[n].freq = 0
	}
	for n := 0; n < blCodes; n++ {
		bw.bltree[n].freq = 0
	}
	bw.ltree[endOfBlock].freq = 1
	bw.optLen, bw.staticLen = 0, 0
	bw.lastLit, bw.matches = 0, 0
}

func (bw *blockWriter) sendCode(c int, tree []hnode) {
	bw.writeBits(uint32(tree[c].code), uint(tree[c].len))
}

// tallyLit records a literal and reports whether the token buffer is full.
func (bw *blockWriter) tallyLit(c byte) bool {
	bw.dists[bw.lastLit] = 0
	bw.lits[bw.lastLit] = c
	bw.lastLit++
	bw.ltree[c].freq++
	return bw.lastLit == litBufSize-1
}

// tallyMatch records a match of length-3 lc at distance dist and reports
// whether the token buffer is full.
func (bw *blockWriter) tallyMatch(dist, lc int) bool {
	bw.dists[bw.lastLit] = uint16(dist)
	bw.lits[bw.lastLit] = uint8(lc)
	bw.lastLit++
	bw.matches++
	bw.ltree[int(lengthCode[lc])+literals+1].freq++
	bw.dtree[dCode(dist-1)].freq++
	return bw.lastLit == litBufSize-1
}

// worthClosing estimates whether the block so far compresses well enough
// that closing it early pays off, given the input bytes it covers.
func (bw *blockWriter) worthClosing(inLength int) bool {
	if bw.lastLit&0x1fff != 0 {
		return false
	}
	outLength := bw.lastLit * 8
	for code := 0; code < dCodes; code++ {
		outLength += int(bw.dtree[code].freq) * (5 + int(distExtra[code]))
	}
	outLength >>= 3
	return bw.matches < bw.lastLit/2 && outLength < inLength/2
}

func (bw *blockWriter) compressBlock(ltree, dtree []hnode) {
	for i := 0; i < bw.lastLit; i++ {
		dist := int(bw.dists[i])
		lc := int(bw.lits[i])
		if dist == 0 {
			bw.sendCode(lc, ltree)
			continue
		}
		code := int(lengthCode[lc])
		bw.sendCode(code+literals+1, ltree)
		if extra := uint(lengthExtra[code]); extra != 0 {
			bw.writeBits(uint32(lc-baseLength[code]), extra)
		}
		dist--
		code = dCode(dist)
		bw.sendCode(code, dtree)
		if extra := uint(distExtra[code]); extra != 0 {
			bw.writeBits(uint32(dist-baseDist[code]), extra)
		}
	}
	bw.sendCode(endOfBlock, ltree)
	bw.lastEOBLen = int(ltree[endOfBlock].len)
}

// flushBlock writes the buffered tokens as one block. buf holds the input
// bytes the tokens cover, or is nil if they are no longer in the window;
// a stored block is only possible with buf. With level 0 the block is always
// stored.
func (bw *blockWriter) flushBlock(buf []byte, level int, last bool) {
	storedLen := len(buf)
	maxBLIndex := 0
	var optLenb, staticLenb int
	if level > 0 {
		bw.buildTree(&bw.lDesc)
		bw.buildTree(&bw.dDesc)
		maxBLIndex = bw.buildBLTree()

		optLenb = (bw.optLen + 3 + 7) >> 3
		staticLenb = (bw.staticLen + 3 + 7) >> 3
		if staticLenb <= optLenb {
			optLenb = staticLenb
		}
	} else {
		optLenb = storedLen + 5
		staticLenb = optLenb
	}

	var eof uint32
	if last {
		eof = 1
	}
	switch {
	case buf != nil && storedLen+4 <= optLenb:
		bw.writeStored(buf, last)
	case staticLenb == optLenb:
		bw.writeBits(staticTrees<<1+eof, 3)
		bw.compressBlock(staticLTree[:], staticDTree[:])
	default:
		bw.writeBits(dynTrees<<1+eof, 3)
		bw.sendAllTrees(bw.lDesc.maxCode+1, bw.dDesc.maxCode+1, maxBLIndex+1)
		bw.compressBlock(bw.ltree[:], bw.dtree[:])
	}
	bw.initBlock()
	if last {
		bw.windup()
	}
}

// writeStored writes buf as a stored block. len(buf) must fit in 16 bits.
func (bw *blockWriter) writeStored(buf []byte, last bool) {
	var eof uint32
	if last {
		eof = 1
	}
	bw.writeBits(storedBlock<<1+eof, 3)
	bw.windup()
	bw.lastEOBLen = 8
	bw.writeUint16(uint16(len(buf)))
	bw.writeUint16(^uint16(len(buf)))
	bw.out = append(bw.out, buf...)
}

// align writes an empty static block so that the decoder sees everything
// written so far. The decoder needs 9 bits of lookahead after the end of
// block code; if the last real end of block was too short, a second empty
// block supplies them.
func (bw *blockWriter) align() {
	bw.writeBits(staticTrees<<1, 3)
	bw.sendCode(endOfBlock, staticLTree[:])
	bw.flushBits()
	if 1+bw.lastEOBLen+10-int(bw.nbits) < 9 {
		bw.writeBits(staticTrees<<1, 3)
		bw.sendCode(endOfBlock, staticLTree[:])
		bw.flushBits()
	}
	bw.lastEOBLen = 7
}
