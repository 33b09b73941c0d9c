package encoder

import (
	"bytes"
	"context"
	"encoding/binary"

	"golang.org/x/image/bmp"

	"github.com/Skryldev/image-util/core"
	apperrors "github.com/Skryldev/image-util/errors"
)

// BMP encodes RGBA8888 pixels as a Windows bitmap.  Opaque images are
// written as 24 bit.  Anything with transparency is written as 32 bit BGRA
// behind a BITMAPV4HEADER whose alpha mask makes readers keep the alpha.
type BMP struct{}

func NewBMP() *BMP { return &BMP{} }

func (b *BMP) CanEncode(format core.Format) bool { return format == core.FormatBMP }

func (b *BMP) Encode(ctx context.Context, img *core.RawImage, _ core.EncodeOptions) ([]byte, error) {
	const op = "bmp.encode"
	if err := prepare(ctx, op, img, core.FormatBMP); err != nil {
		return nil, err
	}
	src, err := toNRGBA(img)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if src.Opaque() {
		err = bmp.Encode(&buf, src)
	} else {
		err = writeBMPv4(&buf, src.Pix, src.Rect.Dx(), src.Rect.Dy())
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidOperation, op, err)
	}
	return buf.Bytes(), nil
}

// ── BITMAPV4 ──────────────────────────────────────────────────────────────────

const (
	bmpFileHeaderLen = 14
	bmpV4HeaderLen   = 108
	biBitfields      = 3
	lcsSRGB          = 0x73524742
)

type bmpV4Header struct {
	Sig         [2]byte
	FileSize    uint32
	Reserved    uint32
	PixOffset   uint32
	HeaderSize  uint32
	Width       int32
	Height      int32
	Planes      uint16
	BitCount    uint16
	Compression uint32
	ImageSize   uint32
	XPelsPerM   int32
	YPelsPerM   int32
	ColorsUsed  uint32
	ColorsImp   uint32
	RedMask     uint32
	GreenMask   uint32
	BlueMask    uint32
	AlphaMask   uint32
	CSType      uint32
	Endpoints   [36]byte
	Gamma       [3]uint32
}

// writeBMPv4 writes straight-alpha RGBA rows bottom-up as BGRA.
func writeBMPv4(buf *bytes.Buffer, pix []byte, width, height int) error {
	size := uint32(4 * width * height)
	h := bmpV4Header{
		Sig:         [2]byte{'B', 'M'},
		FileSize:    bmpFileHeaderLen + bmpV4HeaderLen + size,
		PixOffset:   bmpFileHeaderLen + bmpV4HeaderLen,
		HeaderSize:  bmpV4HeaderLen,
		Width:       int32(width),
		Height:      int32(height),
		Planes:      1,
		BitCount:    32,
		Compression: biBitfields,
		ImageSize:   size,
		RedMask:     0x00ff0000,
		GreenMask:   0x0000ff00,
		BlueMask:    0x000000ff,
		AlphaMask:   0xff000000,
		CSType:      lcsSRGB,
	}
	buf.Grow(int(h.FileSize))
	if err := binary.Write(buf, binary.LittleEndian, &h); err != nil {
		return err
	}
	row := make([]byte, 4*width)
	for y := height - 1; y >= 0; y-- {
		in := pix[y*4*width : (y+1)*4*width]
		for i := 0; i < len(in); i += 4 {
			row[i], row[i+1], row[i+2], row[i+3] = in[i+2], in[i+1], in[i], in[i+3]
		}
		buf.Write(row)
	}
	return nil
}
