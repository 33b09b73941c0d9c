// Package transform implements the pixel transform engine: colorspace
// conversion, resize, rotate and crop over raw buffers.  Every operation
// returns a new buffer and leaves its input untouched.
package transform

import (
	"image/color"

	"github.com/Skryldev/image-util/core"
	apperrors "github.com/Skryldev/image-util/errors"
)

// checkSource validates that src is a well-formed RawImage.
func checkSource(op string, src *core.RawImage) (core.Layout, error) {
	if src == nil {
		return core.Layout{}, apperrors.Newf(apperrors.KindInvalidParameter, op, "nil source image")
	}
	if _, err := core.NewRawImage(src.Width, src.Height, src.Colorspace, src.Data); err != nil {
		return core.Layout{}, apperrors.Wrap(apperrors.KindInvalidParameter, op, err)
	}
	return core.NativeCode(src.Colorspace)
}

// toRGBA expands src into a straight-alpha RGBA buffer of Width*Height*4
// bytes.  Layouts without alpha come out opaque.
func toRGBA(src *core.RawImage) ([]byte, error) {
	l, err := core.NativeCode(src.Colorspace)
	if err != nil {
		return nil, err
	}
	out := make([]byte, src.Width*src.Height*4)
	if l.Family == core.FamilyPacked {
		unpackRGB(src.Data, out, l)
		return out, nil
	}
	p, err := splitYUV(src)
	if err != nil {
		return nil, err
	}
	p.toRGBA(out)
	return out, nil
}

// fromRGBA packs a straight-alpha RGBA buffer into cs.
func fromRGBA(pix []byte, width, height int, cs core.Colorspace) (*core.RawImage, error) {
	l, err := core.NativeCode(cs)
	if err != nil {
		return nil, err
	}
	if l.Family == core.FamilyPacked {
		dst, err := core.AllocRawImage(width, height, cs)
		if err != nil {
			return nil, err
		}
		packRGB(pix, dst.Data, l)
		return dst, nil
	}
	sx, sy := l.ChromaShift()
	p := newYUVPlanes(width, height, sx, sy)
	p.fromRGBA(pix)
	return joinYUV(p, cs)
}

func unpackRGB(src, dst []byte, l core.Layout) {
	bpp := l.BytesPerPixel
	for i, j := 0, 0; i+bpp <= len(src); i, j = i+bpp, j+4 {
		s, d := src[i:i+bpp], dst[j:j+4]
		switch l.Order {
		case core.OrderRGB:
			if l.RGB565 {
				v := uint16(s[0]) | uint16(s[1])<<8
				r, g, b := v>>11, (v>>5)&0x3f, v&0x1f
				d[0], d[1], d[2] = uint8(r<<3|r>>2), uint8(g<<2|g>>4), uint8(b<<3|b>>2)
			} else {
				d[0], d[1], d[2] = s[0], s[1], s[2]
			}
			d[3] = 0xff
		case core.OrderARGB:
			d[0], d[1], d[2], d[3] = s[1], s[2], s[3], s[0]
		case core.OrderBGRA:
			d[0], d[1], d[2], d[3] = s[2], s[1], s[0], s[3]
		case core.OrderRGBA:
			copy(d, s)
		case core.OrderBGRX:
			d[0], d[1], d[2], d[3] = s[2], s[1], s[0], 0xff
		}
	}
}

func packRGB(src, dst []byte, l core.Layout) {
	bpp := l.BytesPerPixel
	for i, j := 0, 0; j+bpp <= len(dst); i, j = i+4, j+bpp {
		s, d := src[i:i+4], dst[j:j+bpp]
		switch l.Order {
		case core.OrderRGB:
			if l.RGB565 {
				v := uint16(s[0]>>3)<<11 | uint16(s[1]>>2)<<5 | uint16(s[2]>>3)
				d[0], d[1] = uint8(v), uint8(v>>8)
			} else {
				d[0], d[1], d[2] = s[0], s[1], s[2]
			}
		case core.OrderARGB:
			d[0], d[1], d[2], d[3] = s[3], s[0], s[1], s[2]
		case core.OrderBGRA:
			d[0], d[1], d[2], d[3] = s[2], s[1], s[0], s[3]
		case core.OrderRGBA:
			copy(d, s)
		case core.OrderBGRX:
			d[0], d[1], d[2], d[3] = s[2], s[1], s[0], 0xff
		}
	}
}

// ── YUV planes ────────────────────────────────────────────────────────────────

// yuvPlanes is a planar working view: full-resolution Y and chroma
// subsampled by (1<<sx, 1<<sy).
type yuvPlanes struct {
	w, h, cw, ch, sx, sy int
	y, cb, cr            []byte
}

func newYUVPlanes(w, h, sx, sy int) *yuvPlanes {
	cw, ch := (w+(1<<sx)-1)>>sx, (h+(1<<sy)-1)>>sy
	return &yuvPlanes{
		w: w, h: h, cw: cw, ch: ch, sx: sx, sy: sy,
		y:  make([]byte, w*h),
		cb: make([]byte, cw*ch),
		cr: make([]byte, cw*ch),
	}
}

func (p *yuvPlanes) toRGBA(dst []byte) {
	for y := 0; y < p.h; y++ {
		crow := (y >> p.sy) * p.cw
		for x := 0; x < p.w; x++ {
			c := crow + x>>p.sx
			r, g, b := color.YCbCrToRGB(p.y[y*p.w+x], p.cb[c], p.cr[c])
			d := dst[(y*p.w+x)*4:]
			d[0], d[1], d[2], d[3] = r, g, b, 0xff
		}
	}
}

// fromRGBA fills the planes from src; chroma is the mean over each
// subsampling block.
func (p *yuvPlanes) fromRGBA(src []byte) {
	sumCb := make([]int, p.cw*p.ch)
	sumCr := make([]int, p.cw*p.ch)
	count := make([]int, p.cw*p.ch)
	for y := 0; y < p.h; y++ {
		crow := (y >> p.sy) * p.cw
		for x := 0; x < p.w; x++ {
			s := src[(y*p.w+x)*4:]
			yy, cb, cr := color.RGBToYCbCr(s[0], s[1], s[2])
			p.y[y*p.w+x] = yy
			c := crow + x>>p.sx
			sumCb[c] += int(cb)
			sumCr[c] += int(cr)
			count[c]++
		}
	}
	for i, n := range count {
		p.cb[i] = uint8((sumCb[i] + n/2) / n)
		p.cr[i] = uint8((sumCr[i] + n/2) / n)
	}
}

// splitYUV copies a subsampled layout into planar form.
func splitYUV(img *core.RawImage) (*yuvPlanes, error) {
	l, err := core.NativeCode(img.Colorspace)
	if err != nil {
		return nil, err
	}
	planes, err := core.Planes(img.Width, img.Height, img.Colorspace)
	if err != nil {
		return nil, err
	}
	sx, sy := l.ChromaShift()
	p := newYUVPlanes(img.Width, img.Height, sx, sy)
	u, v := p.cb, p.cr
	if l.VFirst {
		u, v = v, u
	}

	switch l.Family {
	case core.FamilyPlanar420, core.FamilyPlanar422:
		copy(p.y, planes[0].Bytes(img.Data))
		copy(u, planes[1].Bytes(img.Data))
		copy(v, planes[2].Bytes(img.Data))
	case core.FamilySemiPlanar420, core.FamilySemiPlanar422:
		copy(p.y, planes[0].Bytes(img.Data))
		uv := planes[1].Bytes(img.Data)
		for i := range u {
			u[i], v[i] = uv[2*i], uv[2*i+1]
		}
	case core.FamilyPacked422:
		for i := 0; i < p.cw*p.h; i++ {
			m := img.Data[4*i : 4*i+4]
			if l.YFirst {
				p.y[2*i], p.cb[i], p.y[2*i+1], p.cr[i] = m[0], m[1], m[2], m[3]
			} else {
				p.cb[i], p.y[2*i], p.cr[i], p.y[2*i+1] = m[0], m[1], m[2], m[3]
			}
		}
	default:
		return nil, apperrors.Newf(apperrors.KindInvalidParameter, "yuv.split", "%s is not a YUV layout", img.Colorspace)
	}
	return p, nil
}

// joinYUV packs planar data into cs, whose subsampling must match p.
func joinYUV(p *yuvPlanes, cs core.Colorspace) (*core.RawImage, error) {
	l, err := core.NativeCode(cs)
	if err != nil {
		return nil, err
	}
	if sx, sy := l.ChromaShift(); sx != p.sx || sy != p.sy {
		return nil, apperrors.Newf(apperrors.KindInvalidParameter, "yuv.join", "subsampling mismatch for %s", cs)
	}
	planes, err := core.Planes(p.w, p.h, cs)
	if err != nil {
		return nil, err
	}
	dst, err := core.AllocRawImage(p.w, p.h, cs)
	if err != nil {
		return nil, err
	}
	u, v := p.cb, p.cr
	if l.VFirst {
		u, v = v, u
	}

	switch l.Family {
	case core.FamilyPlanar420, core.FamilyPlanar422:
		copy(planes[0].Bytes(dst.Data), p.y)
		copy(planes[1].Bytes(dst.Data), u)
		copy(planes[2].Bytes(dst.Data), v)
	case core.FamilySemiPlanar420, core.FamilySemiPlanar422:
		copy(planes[0].Bytes(dst.Data), p.y)
		uv := planes[1].Bytes(dst.Data)
		for i := range u {
			uv[2*i], uv[2*i+1] = u[i], v[i]
		}
	case core.FamilyPacked422:
		for i := 0; i < p.cw*p.h; i++ {
			m := dst.Data[4*i : 4*i+4]
			if l.YFirst {
				m[0], m[1], m[2], m[3] = p.y[2*i], p.cb[i], p.y[2*i+1], p.cr[i]
			} else {
				m[0], m[1], m[2], m[3] = p.cb[i], p.y[2*i], p.cr[i], p.y[2*i+1]
			}
		}
	default:
		return nil, apperrors.Newf(apperrors.KindInvalidParameter, "yuv.join", "%s is not a YUV layout", cs)
	}
	return dst, nil
}
