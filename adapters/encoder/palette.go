package encoder

import (
	"encoding/binary"
	"image"
	"image/color"
	"sort"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/image/draw"
)

// alphaCutoff is the alpha below which a pixel is written as the
// transparent index.  GIF has no partial transparency.
const alphaCutoff = 128

// indexed is a frame reduced to at most 256 colours.
type indexed struct {
	palette     color.Palette
	pix         []byte
	transparent int // -1 when the frame is fully opaque
}

// quantize maps RGBA pixels onto a palette.  When the frame has at most 256
// distinct colours (counting transparency as one) the mapping is exact;
// otherwise the palette comes from median cut and pixels are dithered with
// Floyd-Steinberg.
func quantize(pix []byte, width, height int) *indexed {
	n := width * height
	counts := make(map[uint32]int)
	hasTransparent := false
	for i := 0; i < n; i++ {
		p := pix[4*i : 4*i+4]
		if p[3] < alphaCutoff {
			hasTransparent = true
			continue
		}
		counts[uint32(p[0])<<16|uint32(p[1])<<8|uint32(p[2])]++
	}

	out := &indexed{pix: make([]byte, n), transparent: -1}
	budget := 256
	if hasTransparent {
		budget--
	}

	if len(counts) <= budget {
		index := make(map[uint32]byte, len(counts))
		for i := 0; i < n; i++ {
			p := pix[4*i : 4*i+4]
			if p[3] < alphaCutoff {
				continue
			}
			key := uint32(p[0])<<16 | uint32(p[1])<<8 | uint32(p[2])
			idx, ok := index[key]
			if !ok {
				idx = byte(len(out.palette))
				index[key] = idx
				out.palette = append(out.palette, color.RGBA{p[0], p[1], p[2], 0xFF})
			}
			out.pix[i] = idx
		}
	} else {
		out.palette = medianCut(counts, budget)
		opaque := image.NewRGBA(image.Rect(0, 0, width, height))
		for i := 0; i < n; i++ {
			copy(opaque.Pix[4*i:4*i+3], pix[4*i:4*i+3])
			opaque.Pix[4*i+3] = 0xFF
		}
		dst := image.NewPaletted(opaque.Rect, out.palette)
		draw.FloydSteinberg.Draw(dst, dst.Rect, opaque, image.Point{})
		copy(out.pix, dst.Pix)
	}

	if hasTransparent {
		out.transparent = len(out.palette)
		out.palette = append(out.palette, color.RGBA{})
		for i := 0; i < n; i++ {
			if pix[4*i+3] < alphaCutoff {
				out.pix[i] = byte(out.transparent)
			}
		}
	}
	if len(out.palette) < 2 {
		out.palette = append(out.palette, color.RGBA{A: 0xFF})
	}
	return out
}

// tableBits returns the GIF size field: the table holds 1<<(bits+1) entries.
func tableBits(n int) int {
	bits := 0
	for 1<<(bits+1) < n {
		bits++
	}
	return bits
}

// colorTable serialises p padded to 1<<(tableBits+1) RGB entries.
func colorTable(p color.Palette) []byte {
	size := 1 << (tableBits(len(p)) + 1)
	out := make([]byte, 3*size)
	for i, c := range p {
		r, g, b, _ := c.RGBA()
		out[3*i], out[3*i+1], out[3*i+2] = byte(r>>8), byte(g>>8), byte(b>>8)
	}
	return out
}

// paletteHash identifies a serialised colour table so frames sharing the
// global table can skip writing a local one.
func paletteHash(table []byte) uint64 {
	var n [8]byte
	binary.LittleEndian.PutUint64(n[:], uint64(len(table)))
	d := xxhash.New()
	d.Write(n[:])
	d.Write(table)
	return d.Sum64()
}

// ── Median cut ────────────────────────────────────────────────────────────────

type weighted struct {
	c [3]uint8
	n int
}

type colorBox []weighted

// widest returns the channel with the largest spread and its extent.
func (b colorBox) widest() (int, int) {
	var lo, hi [3]int
	for ch := 0; ch < 3; ch++ {
		lo[ch], hi[ch] = 255, 0
	}
	for _, w := range b {
		for ch := 0; ch < 3; ch++ {
			v := int(w.c[ch])
			lo[ch] = min(lo[ch], v)
			hi[ch] = max(hi[ch], v)
		}
	}
	best, extent := 0, -1
	for ch := 0; ch < 3; ch++ {
		if d := hi[ch] - lo[ch]; d > extent {
			best, extent = ch, d
		}
	}
	return best, extent
}

func (b colorBox) mean() color.RGBA {
	var sum [3]int
	total := 0
	for _, w := range b {
		for ch := 0; ch < 3; ch++ {
			sum[ch] += int(w.c[ch]) * w.n
		}
		total += w.n
	}
	return color.RGBA{
		R: uint8((sum[0] + total/2) / total),
		G: uint8((sum[1] + total/2) / total),
		B: uint8((sum[2] + total/2) / total),
		A: 0xFF,
	}
}

func medianCut(counts map[uint32]int, n int) color.Palette {
	all := make(colorBox, 0, len(counts))
	for k, c := range counts {
		all = append(all, weighted{c: [3]uint8{uint8(k >> 16), uint8(k >> 8), uint8(k)}, n: c})
	}
	// Map iteration order is random; sort for reproducible palettes.
	sort.Slice(all, func(i, j int) bool {
		a, b := all[i].c, all[j].c
		return uint32(a[0])<<16|uint32(a[1])<<8|uint32(a[2]) < uint32(b[0])<<16|uint32(b[1])<<8|uint32(b[2])
	})

	boxes := []colorBox{all}
	for len(boxes) < n {
		pick, pickExtent, pickCh := -1, 0, 0
		for i, b := range boxes {
			if len(b) < 2 {
				continue
			}
			if ch, e := b.widest(); e > pickExtent {
				pick, pickExtent, pickCh = i, e, ch
			}
		}
		if pick < 0 {
			break
		}
		box := boxes[pick]
		sort.SliceStable(box, func(i, j int) bool { return box[i].c[pickCh] < box[j].c[pickCh] })

		total := 0
		for _, w := range box {
			total += w.n
		}
		cut, acc := len(box)-1, 0
		for i, w := range box[:len(box)-1] {
			acc += w.n
			if acc*2 >= total {
				cut = i + 1
				break
			}
		}
		boxes[pick] = box[:cut]
		boxes = append(boxes, box[cut:])
	}

	p := make(color.Palette, len(boxes))
	for i, b := range boxes {
		p[i] = b.mean()
	}
	return p
}
