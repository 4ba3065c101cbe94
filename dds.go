package ba2vfs

import (
	"encoding/binary"
	"fmt"
)

// dxgiFormatSize is the bytes per pixel (or per 4x4 block, if 0x80 is set)
// for each DXGI_FORMAT, or 0 if the format isn't supported.
var dxgiFormatSize = [128]uint8{
	0x00, 0x10, 0x10, 0x10, 0x10, 0x0C, 0x0C, 0x0C, 0x0C, 0x08, 0x08, 0x08, 0x08, 0x08, 0x08, 0x08,
	0x08, 0x08, 0x08, 0x08, 0x08, 0x08, 0x08, 0x04, 0x04, 0x04, 0x04, 0x04, 0x04, 0x04, 0x04, 0x04,
	0x04, 0x04, 0x04, 0x04, 0x04, 0x04, 0x04, 0x04, 0x04, 0x04, 0x04, 0x04, 0x04, 0x04, 0x04, 0x04,
	0x02, 0x02, 0x02, 0x02, 0x02, 0x02, 0x02, 0x02, 0x02, 0x02, 0x02, 0x02, 0x01, 0x01, 0x01, 0x01,
	0x01, 0x01, 0x00, 0x04, 0x00, 0x00, 0x88, 0x88, 0x88, 0x90, 0x90, 0x90, 0x90, 0x90, 0x90, 0x88,
	0x88, 0x88, 0x90, 0x90, 0x90, 0x02, 0x02, 0x04, 0x04, 0x04, 0x04, 0x04, 0x04, 0x04, 0x90, 0x90,
	0x90, 0x90, 0x90, 0x90, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x02, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
}

// DDSHeaderSize is the size of a DDS header with the DX10 extension.
const DDSHeaderSize = ddsHeaderSize

// WriteDDSHeader writes a DDS header with the DX10 extension for a 2D texture
// (or cube map) into the first DDSHeaderSize bytes of b.
func WriteDDSHeader(b []byte, dxgiFormat uint8, width, height, mips int, cube bool) error {
	if dxgiFormat >= 0x80 || dxgiFormatSize[dxgiFormat] == 0 {
		return fmt.Errorf("%w 0x%02X", ErrUnsupportedFormat, dxgiFormat)
	}
	b = b[:ddsHeaderSize]
	clear(b)

	pitch := uint32(dxgiFormatSize[dxgiFormat] & 0x7F)
	compressed := dxgiFormatSize[dxgiFormat]&0x80 != 0
	if compressed {
		pitch *= uint32((width+3)>>2) * uint32((height+3)>>2)
	} else {
		pitch *= uint32(width)
	}

	le := binary.LittleEndian
	le.PutUint32(b[0:], 0x20534444) // "DDS "
	le.PutUint32(b[4:], 124)        // sizeof(DDS_HEADER)
	if compressed {
		le.PutUint32(b[8:], 0x000A1007) // CAPS|HEIGHT|WIDTH|PIXELFORMAT|MIPMAPCOUNT|LINEARSIZE
	} else {
		le.PutUint32(b[8:], 0x0002100F) // CAPS|HEIGHT|WIDTH|PIXELFORMAT|MIPMAPCOUNT|PITCH
	}
	le.PutUint32(b[12:], uint32(height))
	le.PutUint32(b[16:], uint32(width))
	le.PutUint32(b[20:], pitch)
	le.PutUint32(b[28:], uint32(max(mips, 1)))
	le.PutUint32(b[76:], 32)          // sizeof(DDS_PIXELFORMAT)
	le.PutUint32(b[80:], 0x04)        // DDPF_FOURCC
	le.PutUint32(b[84:], 0x30315844)  // "DX10"
	le.PutUint32(b[108:], 0x00401008) // DDSCAPS_COMPLEX|TEXTURE|MIPMAP
	if cube {
		le.PutUint32(b[112:], 0xFE00) // DDSCAPS2_CUBEMAP_*
		le.PutUint32(b[136:], 0x04)   // DDS_RESOURCE_MISC_TEXTURECUBE
	}
	le.PutUint32(b[128:], uint32(dxgiFormat))
	le.PutUint32(b[132:], 3) // D3D10_RESOURCE_DIMENSION_TEXTURE2D
	le.PutUint32(b[140:], 1) // array size
	return nil
}
