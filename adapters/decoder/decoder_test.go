package decoder_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/Skryldev/image-util/adapters/decoder"
	"github.com/Skryldev/image-util/core"
	apperrors "github.com/Skryldev/image-util/errors"
)

// ── Test helpers ──────────────────────────────────────────────────────────────

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < w*h; i++ {
		img.Pix[4*i], img.Pix[4*i+1], img.Pix[4*i+2], img.Pix[4*i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func encodeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, solid(w, h, color.NRGBA{200, 50, 50, 255}), &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode test jpeg: %v", err)
	}
	return buf.Bytes()
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode test png: %v", err)
	}
	return buf.Bytes()
}

func opts(cs core.Colorspace) core.DecodeOptions {
	o := decoder.DefaultOptions()
	o.Colorspace = cs
	return o
}

// ── JPEG ──────────────────────────────────────────────────────────────────────

func TestJPEG_DecodeColorspaces(t *testing.T) {
	data := encodeJPEG(t, 33, 17)
	dec := decoder.NewJPEG()
	for cs := range core.SupportedColorspaces(core.FormatJPEG) {
		t.Run(cs.String(), func(t *testing.T) {
			img, err := dec.Decode(context.Background(), data, opts(cs))
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			want, _ := core.ComputeSize(33, 17, cs)
			if img.Width != 33 || img.Height != 17 || img.Colorspace != cs || len(img.Data) != want {
				t.Errorf("got %dx%d %s len %d, want len %d", img.Width, img.Height, img.Colorspace, len(img.Data), want)
			}
		})
	}
}

func TestJPEG_Downscale(t *testing.T) {
	data := encodeJPEG(t, 100, 60)
	dec := decoder.NewJPEG()
	tests := []struct {
		scale core.Downscale
		w, h  int
	}{
		{core.Downscale1, 100, 60},
		{core.Downscale2, 50, 30},
		{core.Downscale4, 25, 15},
		{core.Downscale8, 13, 8},
	}
	for _, tc := range tests {
		o := opts(core.ColorspaceRGBA8888)
		o.Downscale = tc.scale
		img, err := dec.Decode(context.Background(), data, o)
		if err != nil {
			t.Fatalf("1/%d: %v", tc.scale, err)
		}
		if img.Width != tc.w || img.Height != tc.h {
			t.Errorf("1/%d: got %dx%d, want %dx%d", tc.scale, img.Width, img.Height, tc.w, tc.h)
		}
	}

	o := opts(core.ColorspaceRGBA8888)
	o.Downscale = 3
	if _, err := dec.Decode(context.Background(), data, o); !apperrors.IsKind(err, apperrors.KindInvalidParameter) {
		t.Errorf("1/3: got %v", err)
	}
}

func TestJPEG_RejectsOtherFormats(t *testing.T) {
	pngData := encodePNG(t, solid(4, 4, color.NRGBA{255, 0, 0, 255}))
	_, err := decoder.NewJPEG().Decode(context.Background(), pngData, opts(core.ColorspaceRGBA8888))
	if !apperrors.IsKind(err, apperrors.KindNotSupportedFormat) {
		t.Errorf("got %v", err)
	}
}

func TestJPEG_UnsupportedColorspace(t *testing.T) {
	data := encodeJPEG(t, 8, 8)
	_, err := decoder.NewJPEG().Decode(context.Background(), data, opts(core.ColorspaceYUYV))
	if !apperrors.IsKind(err, apperrors.KindNotSupportedFormat) {
		t.Errorf("got %v", err)
	}
}

func TestJPEG_PixelCap(t *testing.T) {
	data := encodeJPEG(t, 64, 64)
	o := opts(core.ColorspaceRGBA8888)
	o.MaxPixels = 64*64 - 1
	if _, err := decoder.NewJPEG().Decode(context.Background(), data, o); !apperrors.IsKind(err, apperrors.KindOutOfMemory) {
		t.Errorf("got %v", err)
	}
}

func TestJPEG_Truncated(t *testing.T) {
	data := encodeJPEG(t, 32, 32)
	_, err := decoder.NewJPEG().Decode(context.Background(), data[:len(data)/2], opts(core.ColorspaceRGBA8888))
	if !apperrors.IsKind(err, apperrors.KindInvalidOperation) {
		t.Errorf("got %v", err)
	}
}

// ── PNG / BMP ─────────────────────────────────────────────────────────────────

func TestPNG_DecodeExactPixels(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 5, 3))
	for i := range src.Pix {
		src.Pix[i] = byte(i * 7)
	}
	img, err := decoder.NewPNG().Decode(context.Background(), encodePNG(t, src), opts(core.ColorspaceRGBA8888))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(img.Data, src.Pix) {
		t.Errorf("pixels differ")
	}
}

func TestPNG_RejectsDownscaleAndColorspace(t *testing.T) {
	data := encodePNG(t, solid(4, 4, color.NRGBA{1, 2, 3, 255}))
	o := opts(core.ColorspaceRGBA8888)
	o.Downscale = core.Downscale2
	if _, err := decoder.NewPNG().Decode(context.Background(), data, o); !apperrors.IsKind(err, apperrors.KindNotSupportedFormat) {
		t.Errorf("downscale: got %v", err)
	}
	if _, err := decoder.NewPNG().Decode(context.Background(), data, opts(core.ColorspaceI420)); !apperrors.IsKind(err, apperrors.KindNotSupportedFormat) {
		t.Errorf("I420: got %v", err)
	}
}

func TestDecode_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	data := encodePNG(t, solid(4, 4, color.NRGBA{1, 2, 3, 255}))
	if _, err := decoder.NewPNG().Decode(ctx, data, opts(core.ColorspaceRGBA8888)); !apperrors.IsKind(err, apperrors.KindInvalidOperation) {
		t.Errorf("got %v", err)
	}
}

// ── GIF ───────────────────────────────────────────────────────────────────────

func threeFrameGIF(t *testing.T) []byte {
	t.Helper()
	pal := color.Palette{color.RGBA{0, 0, 0, 0}, color.RGBA{255, 0, 0, 255}, color.RGBA{0, 255, 0, 255}, color.RGBA{0, 0, 255, 255}}
	g := &gif.GIF{LoopCount: 0}
	for i := 0; i < 3; i++ {
		p := image.NewPaletted(image.Rect(i, i, i+4, i+4), pal)
		for j := range p.Pix {
			p.Pix[j] = byte(i + 1)
		}
		g.Image = append(g.Image, p)
		g.Delay = append(g.Delay, 10*(i+1))
		g.Disposal = append(g.Disposal, gif.DisposalBackground)
	}
	g.Config = image.Config{Width: 8, Height: 8}
	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, g); err != nil {
		t.Fatalf("encode test gif: %v", err)
	}
	return buf.Bytes()
}

func TestGIF_DecodeFirstFrameOnCanvas(t *testing.T) {
	img, err := decoder.NewGIF().Decode(context.Background(), threeFrameGIF(t), opts(core.ColorspaceRGBA8888))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if img.Width != 8 || img.Height != 8 {
		t.Fatalf("got %dx%d", img.Width, img.Height)
	}
	at := func(x, y int) []byte { return img.Data[4*(y*8+x) : 4*(y*8+x)+4] }
	if p := at(0, 0); !bytes.Equal(p, []byte{255, 0, 0, 255}) {
		t.Errorf("inside frame: %v", p)
	}
	if p := at(7, 7); p[3] != 0 {
		t.Errorf("outside frame should be transparent: %v", p)
	}
}

func TestGIF_DecodeAll(t *testing.T) {
	anim, err := decoder.NewGIF().DecodeAll(context.Background(), threeFrameGIF(t), 0)
	if err != nil {
		t.Fatalf("DecodeAll: %v", err)
	}
	if anim.Width != 8 || anim.Height != 8 || anim.LoopCount != 0 {
		t.Errorf("canvas %dx%d loop %d", anim.Width, anim.Height, anim.LoopCount)
	}
	if len(anim.Frames) != 3 {
		t.Fatalf("got %d frames", len(anim.Frames))
	}
	for i, f := range anim.Frames {
		if f.Delay != 10*(i+1) {
			t.Errorf("frame %d delay %d", i, f.Delay)
		}
		if f.X != i || f.Y != i || f.Image.Width != 4 || f.Image.Height != 4 {
			t.Errorf("frame %d at (%d,%d) %dx%d", i, f.X, f.Y, f.Image.Width, f.Image.Height)
		}
		if f.Disposal != gif.DisposalBackground {
			t.Errorf("frame %d disposal %d", i, f.Disposal)
		}
	}
}
