package flate

const (
	maxCodeBits    = 15 // longest literal/length or distance code
	maxBLBits      = 7  // longest code length code
	numLitLen      = 288
	numDist        = 32
	numCodeLens    = 19
	maxMatchLength = 258
	minMatchLength = 3
	endOfBlock     = 256

	lengthCodes = 29
	literals    = 256
	lCodes      = literals + 1 + lengthCodes // 286
	dCodes      = 30
	blCodes     = 19

	// Repeat codes of the code length alphabet.
	rep3to6     = 16
	repz3to10   = 17
	repz11to138 = 18
)

const (
	storedBlock = 0
	staticTrees = 1
	dynTrees    = 2
)

// Transmission order of the code length code lengths.
var codeOrder = [numCodeLens]int{16, 17, 18, 0, 8, 7, 9, 6, 10, 5, 11, 4, 12, 3, 13, 2, 14, 1, 15}

// Base values and extra bits of length symbols 257..285.
var lengthBase = []uint16{
	3, 4, 5, 6, 7, 8, 9, 10, 11, 13, 15, 17, 19, 23, 27, 31,
	35, 43, 51, 59, 67, 83, 99, 115, 131, 163, 195, 227, 258,
}

var lengthExtra = []uint8{
	0, 0, 0, 0, 0, 0, 0, 0, 1, 1, 1, 1, 2, 2, 2, 2,
	3, 3, 3, 3, 4, 4, 4, 4, 5, 5, 5, 5, 0,
}

// Base values and extra bits of distance symbols 0..29.
var distBase = []uint16{
	1, 2, 3, 4, 5, 7, 9, 13, 17, 25, 33, 49, 65, 97, 129, 193,
	257, 385, 513, 769, 1025, 1537, 2049, 3073, 4097, 6145,
	8193, 12289, 16385, 24577,
}

var distExtra = []uint8{
	0, 0, 0, 0, 1, 1, 2, 2, 3, 3, 4, 4, 5, 5, 6, 6,
	7, 7, 8, 8, 9, 9, 10, 10, 11, 11, 12, 12, 13, 13,
}

var blExtra = [blCodes]uint8{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 2, 3, 7}

// Encoder side lookup tables, filled by init.
var (
	// lengthCode maps match length - 3 to its length code (0..28).
	lengthCode [256]uint8
	// distCode maps distance - 1 to its distance code; the first 256
	// entries cover distances 1..256, the rest distance-1 >> 7.
	distCode [512]uint8
	// Match length - 3 and distance - 1 at the start of each code.
	baseLength [lengthCodes]int
	baseDist   [dCodes]int

	staticLTree [lCodes + 2]hnode
	staticDTree [dCodes]hnode

	staticLDesc  = staticDesc{tree: staticLTree[:], extra: lengthExtra, extraBase: literals + 1, elems: lCodes, maxLength: maxCodeBits}
	staticDDesc  = staticDesc{tree: staticDTree[:], extra: distExtra, elems: dCodes, maxLength: maxCodeBits}
	staticBLDesc = staticDesc{extra: blExtra[:], elems: blCodes, maxLength: maxBLBits}
)

// Decoder tables for static blocks, shared read-only by every Inflater.
var (
	fixedArena    []entry
	fixedLitRoot  int
	fixedLitBits  uint
	fixedDistRoot int
	fixedDistBits uint
)

func init() {
	initStaticTrees()
	initFixedTables()
}

func initStaticTrees() {
	length := 0
	code := 0
	for ; code < lengthCodes-1; code++ {
		baseLength[code] = length
		for n := 0; n < 1<<lengthExtra[code]; n++ {
			lengthCode[length] = uint8(code)
			length++
		}
	}
	// Length 258 gets its own code, overwriting the last entry of code 27.
	lengthCode[length-1] = uint8(code)
	baseLength[code] = length - 1

	dist := 0
	for code = 0; code < 16; code++ {
		baseDist[code] = dist
		for n := 0; n < 1<<distExtra[code]; n++ {
			distCode[dist] = uint8(code)
			dist++
		}
	}
	dist >>= 7
	for ; code < dCodes; code++ {
		baseDist[code] = dist << 7
		for n := 0; n < 1<<(distExtra[code]-7); n++ {
			distCode[256+dist] = uint8(code)
			dist++
		}
	}

	var count [maxCodeBits + 1]uint16
	for n := range staticLTree {
		var l uint16
		switch {
		case n < 144:
			l = 8
		case n < 256:
			l = 9
		case n < 280:
			l = 7
		default:
			l = 8
		}
		staticLTree[n].len = l
		count[l]++
	}
	genCodes(staticLTree[:], lCodes+1, &count)

	for n := range staticDTree {
		staticDTree[n].len = 5
		staticDTree[n].code = reverseBits(uint16(n), 5)
	}
}

func initFixedTables() {
	var lens [numLitLen]uint8
	for n := range lens {
		switch {
		case n < 144:
			lens[n] = 8
		case n < 256:
			lens[n] = 9
		case n < 280:
			lens[n] = 7
		default:
			lens[n] = 8
		}
	}
	var tb tableBuilder
	var err error
	fixedLitRoot, fixedLitBits, err = tb.build(&fixedArena, lens[:], 257, lengthBase, lengthExtra, 9)
	if err != nil {
		panic("flate: building fixed literal table: " + err.Error())
	}
	for n := 0; n < numDist; n++ {
		lens[n] = 5
	}
	fixedDistRoot, fixedDistBits, err = tb.build(&fixedArena, lens[:numDist], 0, distBase, distExtra, 5)
	if err != nil {
		panic("flate: building fixed distance table: " + err.Error())
	}
}

// dCode returns the distance code for dist - 1.
func dCode(dist int) int {
	if dist < 256 {
		return int(distCode[dist])
	}
	return int(distCode[256+dist>>7])
}
