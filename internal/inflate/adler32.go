package inflate

const (
	adlerMod = 65521
	// largest n such that 255*n*(n+1)/2 + (n+1)*(adlerMod-1) fits in a uint32
	adlerNMax = 5552
)

// Adler32 updates the running checksum a with b. The initial value is 1.
func Adler32(a uint32, b []byte) uint32 {
	s1, s2 := a&0xFFFF, a>>16
	for len(b) > 0 {
		n := min(len(b), adlerNMax)
		for _, c := range b[:n] {
			s1 += uint32(c)
			s2 += s1
		}
		s1 %= adlerMod
		s2 %= adlerMod
		b = b[n:]
	}
	return s2<<16 | s1
}
