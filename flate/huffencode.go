package flate

const heapSize = 2*lCodes + 1

// An hnode is a symbol or internal node of a Huffman tree under
// construction. For symbols, code holds the bit-reversed code once assigned.
type hnode struct {
	freq uint32
	code uint16
	len  uint16
	dad  uint16
}

type staticDesc struct {
	tree      []hnode // static tree, or nil
	extra     []uint8 // extra bits of each code
	extraBase int     // first symbol with extra bits
	elems     int     // number of symbols
	maxLength int     // longest allowed code
}

type treeDesc struct {
	tree    []hnode
	maxCode int // largest symbol with nonzero frequency
	stat    *staticDesc
}

// treeBuilder holds the scratch space for building encode trees and the
// running bit counts of the block being planned.
type treeBuilder struct {
	heap    [heapSize]int
	heapLen int
	heapMax int
	depth   [heapSize]uint8
	blCount [maxCodeBits + 1]uint16

	optLen    int // bits of the block with dynamic trees
	staticLen int // bits of the block with static trees
}

// smaller orders nodes by frequency, then by depth so that trees stay flat.
func (tb *treeBuilder) smaller(tree []hnode, n, m int) bool {
	return tree[n].freq < tree[m].freq ||
		(tree[n].freq == tree[m].freq && tb.depth[n] <= tb.depth[m])
}

// downHeap restores the heap property from node k down.
func (tb *treeBuilder) downHeap(tree []hnode, k int) {
	v := tb.heap[k]
	j := k << 1
	for j <= tb.heapLen {
		if j < tb.heapLen && tb.smaller(tree, tb.heap[j+1], tb.heap[j]) {
			j++
		}
		if tb.smaller(tree, v, tb.heap[j]) {
			break
		}
		tb.heap[k] = tb.heap[j]
		k = j
		j <<= 1
	}
	tb.heap[k] = v
}

// genBitlen assigns code lengths from the finished tree, capping them at the
// alphabet's maximum and repairing the counts when the cap was hit. It also
// accumulates optLen and staticLen.
func (tb *treeBuilder) genBitlen(desc *treeDesc) {
	tree := desc.tree
	maxCode := desc.maxCode
	stat := desc.stat
	maxLength := stat.maxLength

	for i := range tb.blCount {
		tb.blCount[i] = 0
	}

	tree[tb.heap[tb.heapMax]].len = 0 // root
	overflow := 0
	h := tb.heapMax + 1
	for ; h < heapSize; h++ {
		n := tb.heap[h]
		bits := int(tree[tree[n].dad].len) + 1
		if bits > maxLength {
			bits = maxLength
			overflow++
		}
		tree[n].len = uint16(bits)
		if n > maxCode {
			continue // internal node
		}
		tb.blCount[bits]++
		xbits := 0
		if n >= stat.extraBase {
			xbits = int(stat.extra[n-stat.extraBase])
		}
		f := int(tree[n].freq)
		tb.optLen += f * (bits + xbits)
		if stat.tree != nil {
			tb.staticLen += f * (int(stat.tree[n].len) + xbits)
		}
	}
	if overflow == 0 {
		return
	}

	// Move overflowed leaves up under the deepest non-full level.
	for overflow > 0 {
		bits := maxLength - 1
		for tb.blCount[bits] == 0 {
			bits--
		}
		tb.blCount[bits]--
		tb.blCount[bits+1] += 2
		tb.blCount[maxLength]--
		overflow -= 2
	}

	// Hand the lengths back out, longest first, to the leaves in frequency
	// order.
	for bits := maxLength; bits != 0; bits-- {
		n := int(tb.blCount[bits])
		for n != 0 {
			h--
			m := tb.heap[h]
			if m > maxCode {
				continue
			}
			if int(tree[m].len) != bits {
				tb.optLen += (bits - int(tree[m].len)) * int(tree[m].freq)
				tree[m].len = uint16(bits)
			}
			n--
		}
	}
}

// genCodes assigns canonical codes, bit-reversed for sending, to the symbols
// 0..maxCode from their lengths and the count of codes per length.
func genCodes(tree []hnode, maxCode int, count *[maxCodeBits + 1]uint16) {
	var next [maxCodeBits + 1]uint16
	code := uint16(0)
	for bits := 1; bits <= maxCodeBits; bits++ {
		code = (code + count[bits-1]) << 1
		next[bits] = code
	}
	for n := 0; n <= maxCode; n++ {
		l := tree[n].len
		if l == 0 {
			continue
		}
		tree[n].code = reverseBits(next[l], uint(l))
		next[l]++
	}
}

// buildTree builds the Huffman tree for desc from the symbol frequencies and
// assigns lengths and codes. At least two codes are always produced.
func (tb *treeBuilder) buildTree(desc *treeDesc) {
	tree := desc.tree
	stree := desc.stat.tree
	elems := desc.stat.elems

	maxCode := -1
	tb.heapLen = 0
	tb.heapMax = heapSize
	for n := 0; n < elems; n++ {
		if tree[n].freq != 0 {
			tb.heapLen++
			tb.heap[tb.heapLen] = n
			maxCode = n
			tb.depth[n] = 0
		} else {
			tree[n].len = 0
		}
	}

	// The format needs at least one distance code, and a single code would
	// get length zero, so force two.
	for tb.heapLen < 2 {
		node := 0
		if maxCode < 2 {
			maxCode++
			node = maxCode
		}
		tb.heapLen++
		tb.heap[tb.heapLen] = node
		tree[node].freq = 1
		tb.depth[node] = 0
		tb.optLen--
		if stree != nil {
			tb.staticLen -= int(stree[node].len)
		}
	}
	desc.maxCode = maxCode

	for n := tb.heapLen / 2; n >= 1; n-- {
		tb.downHeap(tree, n)
	}

	node := elems
	for {
		n := tb.heap[1]
		tb.heap[1] = tb.heap[tb.heapLen]
		tb.heapLen--
		tb.downHeap(tree, 1)
		m := tb.heap[1]

		tb.heapMax--
		tb.heap[tb.heapMax] = n
		tb.heapMax--
		tb.heap[tb.heapMax] = m

		tree[node].freq = tree[n].freq + tree[m].freq
		d := tb.depth[n]
		if tb.depth[m] > d {
			d = tb.depth[m]
		}
		tb.depth[node] = d + 1
		tree[n].dad = uint16(node)
		tree[m].dad = uint16(node)

		tb.heap[1] = node
		node++
		tb.downHeap(tree, 1)
		if tb.heapLen < 2 {
			break
		}
	}
	tb.heapMax--
	tb.heap[tb.heapMax] = tb.heap[1]

	tb.genBitlen(desc)
	genCodes(tree, maxCode, &tb.blCount)
}

// scanTree counts the code length codes needed to send tree's lengths.
func scanTree(tree []hnode, maxCode int, bl []hnode) {
	prevLen := -1
	nextLen := int(tree[0].len)
	count := 0
	maxCount, minCount := 7, 4
	if nextLen == 0 {
		maxCount, minCount = 138, 3
	}
	tree[maxCode+1].len = 0xffff // guard

	for n := 0; n <= maxCode; n++ {
		curLen := nextLen
		nextLen = int(tree[n+1].len)
		count++
		if count < maxCount && curLen == nextLen {
			continue
		}
		switch {
		case count < minCount:
			bl[curLen].freq += uint32(count)
		case curLen != 0:
			if curLen != prevLen {
				bl[curLen].freq++
			}
			bl[rep3to6].freq++
		case count <= 10:
			bl[repz3to10].freq++
		default:
			bl[repz11to138].freq++
		}
		count = 0
		prevLen = curLen
		maxCount, minCount = runLimits(curLen, nextLen)
	}
}

func runLimits(curLen, nextLen int) (maxCount, minCount int) {
	switch {
	case nextLen == 0:
		return 138, 3
	case curLen == nextLen:
		return 6, 3
	}
	return 7, 4
}

// buildBLTree builds the code length tree for the current literal and
// distance trees and returns the index in codeOrder of the last code length
// code to send.
func (bw *blockWriter) buildBLTree() int {
	scanTree(bw.ltree[:], bw.lDesc.maxCode, bw.bltree[:])
	scanTree(bw.dtree[:], bw.dDesc.maxCode, bw.bltree[:])
	bw.buildTree(&bw.blDesc)

	// At least 4 code length codes are always sent.
	maxIndex := blCodes - 1
	for ; maxIndex >= 3; maxIndex-- {
		if bw.bltree[codeOrder[maxIndex]].len != 0 {
			break
		}
	}
	bw.optLen += 3*(maxIndex+1) + 5 + 5 + 4
	return maxIndex
}

// sendTree writes tree's code lengths using the code length tree.
func (bw *blockWriter) sendTree(tree []hnode, maxCode int) {
	prevLen := -1
	nextLen := int(tree[0].len)
	count := 0
	maxCount, minCount := 7, 4
	if nextLen == 0 {
		maxCount, minCount = 138, 3
	}

	for n := 0; n <= maxCode; n++ {
		curLen := nextLen
		nextLen = int(tree[n+1].len)
		count++
		if count < maxCount && curLen == nextLen {
			continue
		}
		switch {
		case count < minCount:
			for ; count > 0; count-- {
				bw.sendCode(curLen, bw.bltree[:])
			}
		case curLen != 0:
			if curLen != prevLen {
				bw.sendCode(curLen, bw.bltree[:])
				count--
			}
			bw.sendCode(rep3to6, bw.bltree[:])
			bw.writeBits(uint32(count-3), 2)
		case count <= 10:
			bw.sendCode(repz3to10, bw.bltree[:])
			bw.writeBits(uint32(count-3), 3)
		default:
			bw.sendCode(repz11to138, bw.bltree[:])
			bw.writeBits(uint32(count-11), 7)
		}
		count = 0
		prevLen = curLen
		maxCount, minCount = runLimits(curLen, nextLen)
	}
}

// sendAllTrees writes the header of a dynamic block after its type bits.
func (bw *blockWriter) sendAllTrees(lcodes, dcodes, blcodes int) {
	bw.writeBits(uint32(lcodes-257), 5)
	bw.writeBits(uint32(dcodes-1), 5)
	bw.writeBits(uint32(blcodes-4), 4)
	for rank := 0; rank < blcodes; rank++ {
		bw.writeBits(uint32(bw.bltree[codeOrder[rank]].len), 3)
	}
	bw.sendTree(bw.ltree[:], lcodes-1)
	bw.sendTree(bw.dtree[:], dcodes-1)
}
