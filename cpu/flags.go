package cpu

// Flag bits of F. On the 8080 FlagN is the always-one bit 1 and FlagY/FlagX
// are always zero.
const (
	FlagS = 0x80
	FlagZ = 0x40
	FlagY = 0x20
	FlagH = 0x10
	FlagX = 0x08
	FlagP = 0x04
	FlagN = 0x02
	FlagC = 0x01
)

const flagYX = FlagY | FlagX

var (
	// parity[b] is FlagP when b has an even number of set bits.
	parity [256]byte
	// szTable holds S, Z, Y and X for a result byte.
	szTable [256]byte
	// szpTable is szTable with the parity flag added.
	szpTable [256]byte
	// szp8080 holds S, Z and P only, for the 8080 decoder.
	szp8080 [256]byte
)

func init() {
	for i := range 256 {
		v := byte(i)
		ones := 0
		for b := v; b != 0; b >>= 1 {
			ones += int(b & 1)
		}
		if ones%2 == 0 {
			parity[i] = FlagP
		}
		sz := v & (FlagS | flagYX)
		if v == 0 {
			sz |= FlagZ
		}
		szTable[i] = sz
		szpTable[i] = sz | parity[i]
		szp8080[i] = sz&^flagYX | parity[i]
	}
}

// Parity reports whether b has even parity.
func Parity(b byte) bool {
	return parity[b] != 0
}

// normalize8080 applies the 8080 flag invariant to f.
func normalize8080(f byte) byte {
	return f&^flagYX | FlagN
}
