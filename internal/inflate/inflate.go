// Package inflate implements a DEFLATE (RFC 1951) and zlib (RFC 1950)
// decompressor which decodes a whole stream into a caller-supplied buffer.
package inflate

import "fmt"

var (
	lengthBase = [29]uint16{
		3, 4, 5, 6, 7, 8, 9, 10, 11, 13, 15, 17, 19, 23, 27, 31,
		35, 43, 51, 59, 67, 83, 99, 115, 131, 163, 195, 227, 258,
	}
	lengthExtra = [29]uint8{
		0, 0, 0, 0, 0, 0, 0, 0, 1, 1, 1, 1, 2, 2, 2, 2,
		3, 3, 3, 3, 4, 4, 4, 4, 5, 5, 5, 5, 0,
	}
	distBase = [30]uint16{
		1, 2, 3, 4, 5, 7, 9, 13, 17, 25, 33, 49, 65, 97, 129, 193,
		257, 385, 513, 769, 1025, 1537, 2049, 3073, 4097, 6145,
		8193, 12289, 16385, 24577,
	}
	distExtra = [30]uint8{
		0, 0, 0, 0, 1, 1, 2, 2, 3, 3, 4, 4, 5, 5, 6, 6,
		7, 7, 8, 8, 9, 9, 10, 10, 11, 11, 12, 12, 13, 13,
	}
	// order in which code length code lengths are stored
	clenOrder = [19]uint8{16, 17, 18, 0, 8, 7, 9, 6, 10, 5, 11, 4, 12, 3, 13, 2, 14, 1, 15}
)

var fixedLit, fixedDist huffman

func init() {
	var lens [288]uint8
	for i := range lens {
		switch {
		case i < 144:
			lens[i] = 8
		case i < 256:
			lens[i] = 9
		case i < 280:
			lens[i] = 7
		default:
			lens[i] = 8
		}
	}
	if err := fixedLit.build(lens[:]); err != nil {
		panic(err)
	}
	for i := range 32 {
		lens[i] = 5
	}
	if err := fixedDist.build(lens[:32]); err != nil {
		panic(err)
	}
}

// ValidZlibHeader checks whether hdr (the first two stream bytes, big-endian)
// is a zlib header for a DEFLATE stream with no preset dictionary.
func ValidZlibHeader(hdr uint16) bool {
	return hdr&0x8F20 == 0x0800 && hdr%31 == 0
}

// Zlib decompresses a zlib stream from in into out, returning the number of
// bytes written. The Adler-32 trailer is verified.
func Zlib(out, in []byte) (int, error) {
	if len(in) < 2 {
		return 0, ErrTruncated
	}
	if !ValidZlibHeader(uint16(in[0])<<8 | uint16(in[1])) {
		return 0, fmt.Errorf("%w: invalid zlib header %02X%02X", ErrCorrupt, in[0], in[1])
	}
	d := decoder{br: newBitReader(in[2:]), out: out}
	if err := d.run(); err != nil {
		return d.pos, err
	}
	d.br.align()
	var sum uint32
	for range 4 {
		b, err := d.br.bits(8)
		if err != nil {
			return d.pos, err
		}
		sum = sum<<8 | b
	}
	if act := Adler32(1, out[:d.pos]); act != sum {
		return d.pos, fmt.Errorf("%w: adler32 %08X != %08X", ErrChecksum, act, sum)
	}
	return d.pos, nil
}

// Raw decompresses a raw DEFLATE stream from in into out, returning the number
// of bytes written.
func Raw(out, in []byte) (int, error) {
	d := decoder{br: newBitReader(in), out: out}
	err := d.run()
	return d.pos, err
}

type decoder struct {
	br   bitReader
	out  []byte
	pos  int
	lit  huffman
	dist huffman
}

func (d *decoder) run() error {
	for {
		hdr, err := d.br.bits(3)
		if err != nil {
			return err
		}
		switch hdr >> 1 {
		case 0:
			err = d.stored()
		case 1:
			err = d.codes(&fixedLit, &fixedDist)
		case 2:
			if err = d.dynamic(); err == nil {
				err = d.codes(&d.lit, &d.dist)
			}
		default:
			err = fmt.Errorf("%w: reserved block type", ErrCorrupt)
		}
		if err != nil {
			return err
		}
		if hdr&1 != 0 {
			return nil
		}
	}
}

func (d *decoder) stored() error {
	d.br.align()
	n, err := d.br.bits(16)
	if err != nil {
		return err
	}
	nc, err := d.br.bits(16)
	if err != nil {
		return err
	}
	if n^nc != 0xFFFF {
		return fmt.Errorf("%w: stored block length %04X does not match complement %04X", ErrCorrupt, n, nc)
	}
	if int(n) > len(d.out)-d.pos {
		return ErrOverflow
	}
	if err := d.br.copyBytes(d.out[d.pos : d.pos+int(n)]); err != nil {
		return err
	}
	d.pos += int(n)
	return nil
}

func (d *decoder) dynamic() error {
	v, err := d.br.bits(14)
	if err != nil {
		return err
	}
	nlit := int(v&0x1F) + 257
	ndist := int(v>>5&0x1F) + 1
	nclen := int(v>>10) + 4
	if nlit > 286 || ndist > 30 {
		return fmt.Errorf("%w: too many length or distance codes", ErrCorrupt)
	}

	var lens [286 + 30]uint8
	for i := range nclen {
		l, err := d.br.bits(3)
		if err != nil {
			return err
		}
		lens[clenOrder[i]] = uint8(l)
	}
	var clen huffman
	if err := clen.build(lens[:19]); err != nil {
		return err
	}
	clear(lens[:19])

	for i := 0; i < nlit+ndist; {
		sym, err := clen.decode(&d.br)
		if err != nil {
			return err
		}
		if sym < 16 {
			lens[i] = uint8(sym)
			i++
			continue
		}
		var (
			rep uint32
			val uint8
		)
		switch sym {
		case 16:
			if i == 0 {
				return fmt.Errorf("%w: repeat with no previous length", ErrCorrupt)
			}
			val = lens[i-1]
			rep, err = d.br.bits(2)
			rep += 3
		case 17:
			rep, err = d.br.bits(3)
			rep += 3
		default:
			rep, err = d.br.bits(7)
			rep += 11
		}
		if err != nil {
			return err
		}
		if i+int(rep) > nlit+ndist {
			return fmt.Errorf("%w: code length repeat overruns table", ErrCorrupt)
		}
		for range rep {
			lens[i] = val
			i++
		}
	}
	if lens[256] == 0 {
		return fmt.Errorf("%w: missing end-of-block code", ErrCorrupt)
	}
	if err := d.lit.build(lens[:nlit]); err != nil {
		return err
	}
	return d.dist.build(lens[nlit : nlit+ndist])
}

func (d *decoder) codes(lit, dist *huffman) error {
	for {
		sym, err := lit.decode(&d.br)
		if err != nil {
			return err
		}
		switch {
		case sym < 256:
			if d.pos >= len(d.out) {
				return ErrOverflow
			}
			d.out[d.pos] = byte(sym)
			d.pos++
			continue
		case sym == 256:
			return nil
		case sym > 285:
			return fmt.Errorf("%w: invalid length symbol %d", ErrCorrupt, sym)
		}

		sym -= 257
		extra, err := d.br.bits(uint(lengthExtra[sym]))
		if err != nil {
			return err
		}
		length := int(lengthBase[sym]) + int(extra)

		dsym, err := dist.decode(&d.br)
		if err != nil {
			return err
		}
		if dsym > 29 {
			return fmt.Errorf("%w: invalid distance symbol %d", ErrCorrupt, dsym)
		}
		extra, err = d.br.bits(uint(distExtra[dsym]))
		if err != nil {
			return err
		}
		distance := int(distBase[dsym]) + int(extra)

		if distance > d.pos {
			return fmt.Errorf("%w: distance %d exceeds output position %d", ErrCorrupt, distance, d.pos)
		}
		if length > len(d.out)-d.pos {
			return ErrOverflow
		}
		// regions may overlap, so copy forward one byte at a time
		src := d.pos - distance
		for i := range length {
			d.out[d.pos+i] = d.out[src+i]
		}
		d.pos += length
	}
}
