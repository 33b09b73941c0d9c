package encoder

import (
	"bufio"
	"bytes"
	"compress/lzw"
	"context"
	"encoding/binary"
	"io"

	"github.com/Skryldev/image-util/core"
	apperrors "github.com/Skryldev/image-util/errors"
)

// GIF disposal methods, as stored in the graphic control extension.
const (
	DisposalUnspecified byte = 0
	DisposalNone        byte = 1
	DisposalBackground  byte = 2
	DisposalPrevious    byte = 3
)

// MaxGIFDimension is the largest width or height a GIF header can carry.
const MaxGIFDimension = 0xFFFF

// GIFWriter streams an animated GIF89a one frame at a time, so a long
// animation never holds more than one frame in memory.  The first frame's
// palette becomes the global colour table; later frames carry a local table
// only when their palette differs.
type GIFWriter struct {
	w             *bufio.Writer
	counter       *countingWriter
	width, height int
	loopCount     int

	globalHash uint64
	frames     int
	err        error
	closed     bool
}

// NewGIFWriter prepares a writer for a width x height canvas.  loopCount
// follows image/gif: 0 loops forever, n > 0 repeats n times, -1 omits the
// loop extension.  Nothing is written until the first frame.
func NewGIFWriter(w io.Writer, width, height, loopCount int) (*GIFWriter, error) {
	const op = "gif.writer"
	if width < 1 || height < 1 || width > MaxGIFDimension || height > MaxGIFDimension {
		return nil, apperrors.Newf(apperrors.KindInvalidParameter, op, "canvas %dx%d not in 1..%d", width, height, MaxGIFDimension)
	}
	if loopCount < -1 || loopCount > 0xFFFF {
		return nil, apperrors.Newf(apperrors.KindInvalidParameter, op, "loop count %d", loopCount)
	}
	cw := &countingWriter{w: w}
	return &GIFWriter{w: bufio.NewWriter(cw), counter: cw, width: width, height: height, loopCount: loopCount}, nil
}

// Frames returns the number of frames written so far.
func (g *GIFWriter) Frames() int { return g.frames }

// Size returns the bytes flushed to the underlying writer.  It is the
// full file size once Close has succeeded.
func (g *GIFWriter) Size() int64 { return g.counter.n }

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// GIFFrame describes one frame handed to WriteFrame.  Image must be
// RGBA8888 and lie inside the canvas at (X, Y).
type GIFFrame struct {
	Image    *core.RawImage
	X, Y     int
	Delay    int // hundredths of a second, 0..65535
	Disposal byte
}

// WriteFrame quantizes and appends one frame.  After a write error the
// writer is poisoned and every later call returns the same error.
func (g *GIFWriter) WriteFrame(ctx context.Context, f GIFFrame) error {
	const op = "gif.write_frame"
	if g.err != nil {
		return g.err
	}
	if g.closed {
		return apperrors.Newf(apperrors.KindInvalidOperation, op, "writer closed")
	}
	if err := ctx.Err(); err != nil {
		return apperrors.Wrap(apperrors.KindInvalidOperation, op, err)
	}
	if err := prepare(ctx, op, f.Image, core.FormatGIF); err != nil {
		return err
	}
	img := f.Image
	if f.X < 0 || f.Y < 0 || f.X+img.Width > g.width || f.Y+img.Height > g.height {
		return apperrors.Newf(apperrors.KindInvalidParameter, op,
			"frame %dx%d at (%d,%d) outside %dx%d canvas", img.Width, img.Height, f.X, f.Y, g.width, g.height)
	}
	if f.Delay < 0 || f.Delay > 0xFFFF {
		return apperrors.Newf(apperrors.KindInvalidParameter, op, "delay %d not in 0..65535", f.Delay)
	}
	if f.Disposal > DisposalPrevious {
		return apperrors.Newf(apperrors.KindInvalidParameter, op, "disposal %d", f.Disposal)
	}

	q := quantize(img.Data, img.Width, img.Height)
	table := colorTable(q.palette)
	bits := tableBits(len(q.palette))

	if g.frames == 0 {
		g.globalHash = paletteHash(table)
		g.writeHeader(table, bits)
	}
	g.writeControl(f.Delay, f.Disposal, q.transparent)

	local := g.frames > 0 && paletteHash(table) != g.globalHash
	g.writeDescriptor(f.X, f.Y, img.Width, img.Height, local, bits)
	if local {
		g.write(table)
	}
	g.writeImageData(q.pix, bits)

	if g.err != nil {
		g.err = apperrors.Wrap(apperrors.KindInvalidOperation, op, g.err)
		return g.err
	}
	g.frames++
	return nil
}

// Close writes the trailer and flushes.  It does not close the underlying
// writer.  Closing a writer with no frames is an error.
func (g *GIFWriter) Close() error {
	const op = "gif.close"
	if g.closed {
		return g.err
	}
	g.closed = true
	if g.err != nil {
		return g.err
	}
	if g.frames == 0 {
		g.err = apperrors.Newf(apperrors.KindInvalidOperation, op, "no frames written")
		return g.err
	}
	g.write([]byte{0x3B})
	if g.err == nil {
		g.err = g.w.Flush()
	}
	if g.err != nil {
		g.err = apperrors.Wrap(apperrors.KindInvalidOperation, op, g.err)
	}
	return g.err
}

// ── Blocks ────────────────────────────────────────────────────────────────────

func (g *GIFWriter) write(b []byte) {
	if g.err != nil {
		return
	}
	_, g.err = g.w.Write(b)
}

func (g *GIFWriter) writeHeader(table []byte, bits int) {
	g.write([]byte("GIF89a"))
	var lsd [7]byte
	binary.LittleEndian.PutUint16(lsd[0:2], uint16(g.width))
	binary.LittleEndian.PutUint16(lsd[2:4], uint16(g.height))
	lsd[4] = 0x80 | 0x70 | byte(bits) // global table, 8-bit colour resolution
	g.write(lsd[:])
	g.write(table)

	if g.loopCount >= 0 {
		ext := []byte{0x21, 0xFF, 0x0B, 'N', 'E', 'T', 'S', 'C', 'A', 'P', 'E', '2', '.', '0', 0x03, 0x01, 0, 0, 0x00}
		binary.LittleEndian.PutUint16(ext[16:18], uint16(g.loopCount))
		g.write(ext)
	}
}

func (g *GIFWriter) writeControl(delay int, disposal byte, transparent int) {
	gce := []byte{0x21, 0xF9, 0x04, disposal << 2, 0, 0, 0, 0x00}
	binary.LittleEndian.PutUint16(gce[4:6], uint16(delay))
	if transparent >= 0 {
		gce[3] |= 0x01
		gce[6] = byte(transparent)
	}
	g.write(gce)
}

func (g *GIFWriter) writeDescriptor(x, y, w, h int, local bool, bits int) {
	var d [10]byte
	d[0] = 0x2C
	binary.LittleEndian.PutUint16(d[1:3], uint16(x))
	binary.LittleEndian.PutUint16(d[3:5], uint16(y))
	binary.LittleEndian.PutUint16(d[5:7], uint16(w))
	binary.LittleEndian.PutUint16(d[7:9], uint16(h))
	if local {
		d[9] = 0x80 | byte(bits)
	}
	g.write(d[:])
}

func (g *GIFWriter) writeImageData(pix []byte, bits int) {
	litWidth := max(bits+1, 2)
	g.write([]byte{byte(litWidth)})
	if g.err != nil {
		return
	}
	bw := &blockWriter{w: g.w}
	lw := lzw.NewWriter(bw, lzw.LSB, litWidth)
	if _, err := lw.Write(pix); err != nil {
		g.err = err
		return
	}
	if err := lw.Close(); err != nil {
		g.err = err
		return
	}
	g.err = bw.close()
}

// blockWriter splits the LZW stream into length-prefixed sub-blocks of at
// most 255 bytes, terminated by an empty block.
type blockWriter struct {
	w   io.Writer
	buf [256]byte
	n   int
	err error
}

func (b *blockWriter) Write(p []byte) (int, error) {
	written := 0
	for len(p) > 0 && b.err == nil {
		c := copy(b.buf[1+b.n:], p)
		b.n += c
		written += c
		p = p[c:]
		if b.n == 255 {
			b.flush()
		}
	}
	return written, b.err
}

func (b *blockWriter) flush() {
	if b.n == 0 || b.err != nil {
		return
	}
	b.buf[0] = byte(b.n)
	_, b.err = b.w.Write(b.buf[:1+b.n])
	b.n = 0
}

func (b *blockWriter) close() error {
	b.flush()
	if b.err == nil {
		_, b.err = b.w.Write([]byte{0x00})
	}
	return b.err
}

// ── Single-frame encoder ──────────────────────────────────────────────────────

// GIF encodes a single RGBA8888 image as a still GIF.
type GIF struct{}

func NewGIF() *GIF { return &GIF{} }

func (e *GIF) CanEncode(format core.Format) bool { return format == core.FormatGIF }

func (e *GIF) Encode(ctx context.Context, img *core.RawImage, _ core.EncodeOptions) ([]byte, error) {
	if err := prepare(ctx, "gif.encode", img, core.FormatGIF); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	w, err := NewGIFWriter(&buf, img.Width, img.Height, -1)
	if err != nil {
		return nil, err
	}
	if err := w.WriteFrame(ctx, GIFFrame{Image: img}); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
