package encoder_test

import (
	"bytes"
	"context"
	"image/gif"
	"image/png"
	"math"
	"math/rand"
	"testing"

	"github.com/Skryldev/image-util/adapters/decoder"
	"github.com/Skryldev/image-util/adapters/encoder"
	"github.com/Skryldev/image-util/core"
	apperrors "github.com/Skryldev/image-util/errors"
	"github.com/Skryldev/image-util/transform"
)

// ── Test helpers ──────────────────────────────────────────────────────────────

func rgba(t *testing.T, w, h int, fill func(x, y int) [4]byte) *core.RawImage {
	t.Helper()
	img, err := core.AllocRawImage(w, h, core.ColorspaceRGBA8888)
	if err != nil {
		t.Fatalf("alloc: %v", err)
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p := fill(x, y)
			copy(img.Data[4*(y*w+x):], p[:])
		}
	}
	return img
}

func noise(t *testing.T, w, h int, opaque bool) *core.RawImage {
	r := rand.New(rand.NewSource(int64(w*h + 1)))
	return rgba(t, w, h, func(int, int) [4]byte {
		a := byte(r.Intn(256))
		if opaque {
			a = 255
		}
		return [4]byte{byte(r.Intn(256)), byte(r.Intn(256)), byte(r.Intn(256)), a}
	})
}

func smooth(t *testing.T, w, h int) *core.RawImage {
	return rgba(t, w, h, func(x, y int) [4]byte {
		return [4]byte{byte(x * 255 / w), byte(y * 255 / h), byte((x + y) * 127 / (w + h)), 255}
	})
}

func psnr(a, b []byte) float64 {
	var mse float64
	n := 0
	for i := range a {
		if i%4 == 3 {
			continue
		}
		d := float64(a[i]) - float64(b[i])
		mse += d * d
		n++
	}
	mse /= float64(n)
	if mse == 0 {
		return math.Inf(1)
	}
	return 10 * math.Log10(255*255/mse)
}

func decodeRGBA(t *testing.T, dec core.Decoder, data []byte) *core.RawImage {
	t.Helper()
	img, err := dec.Decode(context.Background(), data, decoder.DefaultOptions())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return img
}

// ── PNG ───────────────────────────────────────────────────────────────────────

func TestPNG_RoundTripEveryLevel(t *testing.T) {
	src := noise(t, 37, 23, false)
	for level := 0; level <= 9; level++ {
		data, err := encoder.NewPNG().Encode(context.Background(), src, core.EncodeOptions{Compression: level})
		if err != nil {
			t.Fatalf("level %d: %v", level, err)
		}
		got := decodeRGBA(t, decoder.NewPNG(), data)
		if !bytes.Equal(got.Data, src.Data) {
			t.Errorf("level %d: pixels differ", level)
		}
	}
}

func TestPNG_TransparentPixelsKeepColour(t *testing.T) {
	src := rgba(t, 4, 4, func(x, y int) [4]byte {
		return [4]byte{byte(60 * x), 200, byte(60 * y), byte(16 * (y*4 + x))}
	})
	data, err := encoder.NewPNG().Encode(context.Background(), src, core.EncodeOptions{Compression: 6})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got := decodeRGBA(t, decoder.NewPNG(), data)
	if !bytes.Equal(got.Data, src.Data) {
		t.Errorf("got %v, want %v", got.Data[:8], src.Data[:8])
	}
}

func TestPNG_HigherLevelIsNotLarger(t *testing.T) {
	src := smooth(t, 128, 128)
	stored, err := encoder.NewPNG().Encode(context.Background(), src, core.EncodeOptions{Compression: 0})
	if err != nil {
		t.Fatal(err)
	}
	best, err := encoder.NewPNG().Encode(context.Background(), src, core.EncodeOptions{Compression: 9})
	if err != nil {
		t.Fatal(err)
	}
	if len(best) >= len(stored) {
		t.Errorf("level 9 is %d bytes, level 0 is %d", len(best), len(stored))
	}
}

func TestPNG_SmallRedImage(t *testing.T) {
	src := rgba(t, 4, 4, func(int, int) [4]byte { return [4]byte{255, 0, 0, 255} })
	data, err := encoder.NewPNG().Encode(context.Background(), src, core.EncodeOptions{Compression: 6})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("image/png rejects output: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 4 || b.Dy() != 4 {
		t.Errorf("bounds %v", b)
	}
	if r, g, b, a := img.At(3, 3).RGBA(); r != 0xFFFF || g != 0 || b != 0 || a != 0xFFFF {
		t.Errorf("pixel %d %d %d %d", r, g, b, a)
	}
}

func TestPNG_InvalidInput(t *testing.T) {
	enc := encoder.NewPNG()
	src := noise(t, 4, 4, true)
	if _, err := enc.Encode(context.Background(), src, core.EncodeOptions{Compression: 10}); !apperrors.IsKind(err, apperrors.KindInvalidParameter) {
		t.Errorf("level 10: got %v", err)
	}
	yuv, _ := core.AllocRawImage(4, 4, core.ColorspaceI420)
	if _, err := enc.Encode(context.Background(), yuv, core.EncodeOptions{}); !apperrors.IsKind(err, apperrors.KindNotSupportedFormat) {
		t.Errorf("I420: got %v", err)
	}
	short := &core.RawImage{Data: make([]byte, 10), Width: 4, Height: 4, Colorspace: core.ColorspaceRGBA8888}
	if _, err := enc.Encode(context.Background(), short, core.EncodeOptions{}); !apperrors.IsKind(err, apperrors.KindInvalidParameter) {
		t.Errorf("short buffer: got %v", err)
	}
}

// ── BMP ───────────────────────────────────────────────────────────────────────

func TestBMP_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		src  *core.RawImage
		bpp  byte
	}{
		{"opaque", noise(t, 19, 7, true), 24},
		{"translucent", noise(t, 19, 7, false), 32},
		{"alpha ramp", rgba(t, 4, 4, func(x, y int) [4]byte {
			return [4]byte{byte(10 * x), 200, 30, byte(16 * (y*4 + x))}
		}), 32},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := encoder.NewBMP().Encode(context.Background(), tt.src, core.EncodeOptions{})
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			if string(data[:2]) != "BM" {
				t.Errorf("magic %q", data[:2])
			}
			if data[28] != tt.bpp {
				t.Errorf("bit count %d, want %d", data[28], tt.bpp)
			}
			got := decodeRGBA(t, decoder.NewBMP(), data)
			if !bytes.Equal(got.Data, tt.src.Data) {
				t.Errorf("pixels differ: got %v, want %v", got.Data[:8], tt.src.Data[:8])
			}
		})
	}
}

// ── JPEG ──────────────────────────────────────────────────────────────────────

func TestJPEG_QualityAndPSNR(t *testing.T) {
	src := smooth(t, 64, 48)
	data, err := encoder.NewJPEG(0).Encode(context.Background(), src, core.EncodeOptions{Quality: 100})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got := decodeRGBA(t, decoder.NewJPEG(), data)
	if p := psnr(src.Data, got.Data); p < 30 {
		t.Errorf("PSNR %.1f dB", p)
	}
}

func TestJPEG_FromYUV420(t *testing.T) {
	src := smooth(t, 31, 17)
	for _, cs := range []core.Colorspace{core.ColorspaceI420, core.ColorspaceYV12, core.ColorspaceNV12} {
		yuv, err := transform.Convert(src, cs)
		if err != nil {
			t.Fatal(err)
		}
		data, err := encoder.NewJPEG(90).Encode(context.Background(), yuv, core.EncodeOptions{})
		if err != nil {
			t.Fatalf("%s: %v", cs, err)
		}
		got := decodeRGBA(t, decoder.NewJPEG(), data)
		if p := psnr(src.Data, got.Data); p < 25 {
			t.Errorf("%s: PSNR %.1f dB", cs, p)
		}
	}
}

func TestJPEG_InvalidQuality(t *testing.T) {
	_, err := encoder.NewJPEG(0).Encode(context.Background(), noise(t, 4, 4, true), core.EncodeOptions{Quality: 101})
	if !apperrors.IsKind(err, apperrors.KindInvalidParameter) {
		t.Errorf("got %v", err)
	}
}

// ── GIF ───────────────────────────────────────────────────────────────────────

func TestGIFWriter_Animation(t *testing.T) {
	var buf bytes.Buffer
	w, err := encoder.NewGIFWriter(&buf, 16, 16, 0)
	if err != nil {
		t.Fatal(err)
	}
	colors := [][4]byte{{255, 0, 0, 255}, {0, 255, 0, 255}, {0, 0, 255, 255}}
	for i, c := range colors {
		c := c
		frame := rgba(t, 8, 8, func(int, int) [4]byte { return c })
		err := w.WriteFrame(context.Background(), encoder.GIFFrame{
			Image: frame, X: 4 * i, Y: 4 * i, Delay: 5 * (i + 1), Disposal: encoder.DisposalNone,
		})
		if err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	g, err := gif.DecodeAll(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("image/gif rejects output: %v", err)
	}
	if len(g.Image) != 3 || g.LoopCount != 0 {
		t.Fatalf("frames %d loop %d", len(g.Image), g.LoopCount)
	}
	for i, p := range g.Image {
		if g.Delay[i] != 5*(i+1) {
			t.Errorf("frame %d delay %d", i, g.Delay[i])
		}
		if p.Bounds().Min.X != 4*i {
			t.Errorf("frame %d at %v", i, p.Bounds())
		}
		r, gr, b, _ := p.At(p.Bounds().Min.X, p.Bounds().Min.Y).RGBA()
		want := colors[i]
		if byte(r>>8) != want[0] || byte(gr>>8) != want[1] || byte(b>>8) != want[2] {
			t.Errorf("frame %d colour %d %d %d", i, r>>8, gr>>8, b>>8)
		}
	}
}

func TestGIFWriter_Rejects(t *testing.T) {
	var buf bytes.Buffer
	w, err := encoder.NewGIFWriter(&buf, 4, 4, -1)
	if err != nil {
		t.Fatal(err)
	}
	big := noise(t, 5, 4, true)
	if err := w.WriteFrame(context.Background(), encoder.GIFFrame{Image: big}); !apperrors.IsKind(err, apperrors.KindInvalidParameter) {
		t.Errorf("oversized frame: got %v", err)
	}
	ok := noise(t, 4, 4, true)
	if err := w.WriteFrame(context.Background(), encoder.GIFFrame{Image: ok, Delay: 70000}); !apperrors.IsKind(err, apperrors.KindInvalidParameter) {
		t.Errorf("delay: got %v", err)
	}
	if err := w.Close(); !apperrors.IsKind(err, apperrors.KindInvalidOperation) {
		t.Errorf("close without frames: got %v", err)
	}
	if _, err := encoder.NewGIFWriter(&buf, 0, 4, 0); !apperrors.IsKind(err, apperrors.KindInvalidParameter) {
		t.Errorf("zero canvas: got %v", err)
	}
}

func TestGIF_ManyColoursAreQuantized(t *testing.T) {
	src := smooth(t, 64, 64)
	data, err := encoder.NewGIF().Encode(context.Background(), src, core.EncodeOptions{})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got := decodeRGBA(t, decoder.NewGIF(), data)
	if p := psnr(src.Data, got.Data); p < 25 {
		t.Errorf("PSNR %.1f dB", p)
	}
}

func TestGIF_ExactPaletteAndTransparency(t *testing.T) {
	src := rgba(t, 6, 6, func(x, y int) [4]byte {
		if x == y {
			return [4]byte{0, 0, 0, 0}
		}
		return [4]byte{byte(40 * x), byte(40 * y), 7, 255}
	})
	data, err := encoder.NewGIF().Encode(context.Background(), src, core.EncodeOptions{})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got := decodeRGBA(t, decoder.NewGIF(), data)
	for i := 0; i < 36; i++ {
		s, g := src.Data[4*i:4*i+4], got.Data[4*i:4*i+4]
		if s[3] == 0 {
			if g[3] != 0 {
				t.Errorf("pixel %d should be transparent", i)
			}
			continue
		}
		if !bytes.Equal(s, g) {
			t.Errorf("pixel %d: got %v want %v", i, g, s)
		}
	}
}
