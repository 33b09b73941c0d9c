package encoder

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"hash/crc32"
	"io"

	"github.com/klauspost/compress/zlib"

	"github.com/Skryldev/image-util/core"
	apperrors "github.com/Skryldev/image-util/errors"
)

// PNG encodes RGBA8888 pixels as 8-bit truecolour-with-alpha PNG.  Unlike
// image/png it honours every zlib level from 0 (stored) to 9.
type PNG struct{}

func NewPNG() *PNG { return &PNG{} }

func (p *PNG) CanEncode(format core.Format) bool { return format == core.FormatPNG }

func (p *PNG) Encode(ctx context.Context, img *core.RawImage, opts core.EncodeOptions) ([]byte, error) {
	const op = "png.encode"
	if err := prepare(ctx, op, img, core.FormatPNG); err != nil {
		return nil, err
	}
	if opts.Compression < 0 || opts.Compression > 9 {
		return nil, apperrors.Newf(apperrors.KindInvalidParameter, op, "compression %d not in 0..9", opts.Compression)
	}

	var buf bytes.Buffer
	if err := writePNG(&buf, img.Data, img.Width, img.Height, opts.Compression); err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidOperation, op, err)
	}
	return buf.Bytes(), nil
}

// ── Bitstream ─────────────────────────────────────────────────────────────────

var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n'}

const (
	ftNone = iota
	ftSub
	ftUp
	ftAverage
	ftPaeth
	nFilter
)

func writePNG(w io.Writer, pix []byte, width, height, level int) error {
	if _, err := w.Write(pngSignature); err != nil {
		return err
	}

	var ihdr [13]byte
	binary.BigEndian.PutUint32(ihdr[0:4], uint32(width))
	binary.BigEndian.PutUint32(ihdr[4:8], uint32(height))
	ihdr[8] = 8  // bit depth
	ihdr[9] = 6  // truecolour with alpha
	ihdr[10] = 0 // deflate
	ihdr[11] = 0 // adaptive filtering
	ihdr[12] = 0 // no interlace
	if err := writeChunk(w, "IHDR", ihdr[:]); err != nil {
		return err
	}

	// Each flush of bw becomes one IDAT chunk.
	bw := bufio.NewWriterSize(&idatWriter{w: w}, 1<<15)
	zw, err := zlib.NewWriterLevel(bw, level)
	if err != nil {
		return err
	}
	if err := writeRows(zw, pix, width, height, level); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	return writeChunk(w, "IEND", nil)
}

func writeRows(w io.Writer, pix []byte, width, height, level int) error {
	const bpp = 4
	stride := width * bpp
	prev := make([]byte, stride)
	var cr [nFilter][]byte
	for i := range cr {
		cr[i] = make([]byte, stride+1)
		cr[i][0] = byte(i)
	}

	for y := 0; y < height; y++ {
		row := pix[y*stride : (y+1)*stride]
		best := ftNone
		copy(cr[ftNone][1:], row)
		if level != 0 {
			best = filterRow(&cr, row, prev, bpp)
		}
		if _, err := w.Write(cr[best]); err != nil {
			return err
		}
		prev = row
	}
	return nil
}

// filterRow fills every candidate and returns the one with the smallest sum
// of absolute signed residuals.
func filterRow(cr *[nFilter][]byte, row, prev []byte, bpp int) int {
	n := len(row)
	sub, up, avg, paeth := cr[ftSub][1:], cr[ftUp][1:], cr[ftAverage][1:], cr[ftPaeth][1:]

	for i := 0; i < n; i++ {
		var left, upLeft byte
		if i >= bpp {
			left, upLeft = row[i-bpp], prev[i-bpp]
		}
		sub[i] = row[i] - left
		up[i] = row[i] - prev[i]
		avg[i] = row[i] - byte((int(left)+int(prev[i]))/2)
		paeth[i] = row[i] - paethPredictor(left, prev[i], upLeft)
	}

	best, bestSum := ftNone, residual(cr[ftNone][1:])
	for f := ftSub; f < nFilter; f++ {
		if s := residual(cr[f][1:]); s < bestSum {
			best, bestSum = f, s
		}
	}
	return best
}

func residual(b []byte) int {
	sum := 0
	for _, v := range b {
		if v < 128 {
			sum += int(v)
		} else {
			sum += 256 - int(v)
		}
	}
	return sum
}

func paethPredictor(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa, pb, pc := abs(p-int(a)), abs(p-int(b)), abs(p-int(c))
	if pa <= pb && pa <= pc {
		return a
	}
	if pb <= pc {
		return b
	}
	return c
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func writeChunk(w io.Writer, name string, data []byte) error {
	var header [8]byte
	binary.BigEndian.PutUint32(header[:4], uint32(len(data)))
	copy(header[4:], name)

	crc := crc32.NewIEEE()
	crc.Write(header[4:])
	crc.Write(data)

	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	var sum [4]byte
	binary.BigEndian.PutUint32(sum[:], crc.Sum32())
	_, err := w.Write(sum[:])
	return err
}

type idatWriter struct{ w io.Writer }

func (iw *idatWriter) Write(b []byte) (int, error) {
	if err := writeChunk(iw.w, "IDAT", b); err != nil {
		return 0, err
	}
	return len(b), nil
}
