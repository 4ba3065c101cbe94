package inflate

const maxCodeLen = 15

// huffman is a canonical Huffman decoding table.
//
// fast is indexed by the next 8 input bits (in stream order) and holds
// sym<<8|len for codes of at most 8 bits, or 0 if the code is longer. Longer
// codes are decoded one bit at a time against limit and base, where limit[l]
// is one past the last code of length l and base[l] maps a code of length l to
// its position in syms. Lengths with no codes have limit equal to their first
// code, so they never match.
type huffman struct {
	fast  [256]uint32
	limit [maxCodeLen + 1]int32
	base  [maxCodeLen + 1]int32
	syms  [288]uint16
	n     int
}

// build initializes h from per-symbol code lengths (0 means unused).
func (h *huffman) build(lens []uint8) error {
	var count [maxCodeLen + 1]int32
	for _, l := range lens {
		if l > maxCodeLen {
			return ErrCorrupt
		}
		count[l]++
	}
	count[0] = 0

	left := int32(1)
	for l := 1; l <= maxCodeLen; l++ {
		left <<= 1
		left -= count[l]
		if left < 0 {
			return ErrCorrupt // over-subscribed
		}
	}

	var offs [maxCodeLen + 2]int32
	for l := 1; l <= maxCodeLen; l++ {
		offs[l+1] = offs[l] + count[l]
	}
	h.n = int(offs[maxCodeLen+1])
	for sym, l := range lens {
		if l != 0 {
			h.syms[offs[l]] = uint16(sym)
			offs[l]++
		}
	}

	clear(h.fast[:])
	var code, idx int32
	for l := 1; l <= maxCodeLen; l++ {
		h.limit[l] = code + count[l]
		h.base[l] = idx - code
		if l <= 8 {
			for i := range count[l] {
				sym := h.syms[idx+i]
				rev := reverse(uint32(code+i), uint(l))
				for j := rev; j < 256; j += 1 << l {
					h.fast[j] = uint32(sym)<<8 | uint32(l)
				}
			}
		}
		idx += count[l]
		code = h.limit[l] << 1
	}
	return nil
}

// reverse reverses the low n bits of v.
func reverse(v uint32, n uint) uint32 {
	var r uint32
	for range n {
		r = r<<1 | v&1
		v >>= 1
	}
	return r
}

// decode reads one symbol.
func (h *huffman) decode(br *bitReader) (int, error) {
	v, n := br.peek8()
	if e := h.fast[v]; e != 0 && uint(e&0xFF) <= n {
		br.drop(uint(e & 0xFF))
		return int(e >> 8), nil
	}
	var code int32
	for l := 1; l <= maxCodeLen; l++ {
		b, err := br.bits(1)
		if err != nil {
			return 0, err
		}
		code = code<<1 | int32(b)
		if code < h.limit[l] {
			return int(h.syms[h.base[l]+code]), nil
		}
	}
	return 0, ErrCorrupt
}
