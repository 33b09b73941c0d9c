package session

import (
	"image"

	"github.com/Skryldev/image-util/adapters/encoder"
	"github.com/Skryldev/image-util/core"
	apperrors "github.com/Skryldev/image-util/errors"
)

// Frame is a standalone animation frame built for Animation.AddFrame.
// Resolution and buffer are required; offset defaults to (0, 0), delay to
// 0 and disposal to "none".
type Frame struct {
	width, height int
	x, y          int
	delay         int
	disposal      byte
	buf           []byte
}

func (f *Frame) SetResolution(width, height int) error {
	if width <= 0 || height <= 0 || width > encoder.MaxGIFDimension || height > encoder.MaxGIFDimension {
		return apperrors.Newf(apperrors.KindInvalidParameter, "frame.resolution", "%dx%d", width, height)
	}
	f.width, f.height = width, height
	return nil
}

func (f *Frame) SetOffset(x, y int) error {
	if x < 0 || y < 0 {
		return apperrors.Newf(apperrors.KindInvalidParameter, "frame.offset", "(%d,%d)", x, y)
	}
	f.x, f.y = x, y
	return nil
}

// SetDelay sets the display time in hundredths of a second.
func (f *Frame) SetDelay(delay int) error {
	if err := checkDelay("frame.delay", delay); err != nil {
		return err
	}
	f.delay = delay
	return nil
}

func (f *Frame) SetDisposal(d byte) error {
	if err := checkDisposal("frame.disposal", d); err != nil {
		return err
	}
	f.disposal = d
	return nil
}

// SetBuffer sets RGBA8888 pixels; the length is checked when the frame is
// added.  buf is borrowed until AddFrame returns.
func (f *Frame) SetBuffer(buf []byte) error {
	if len(buf) == 0 {
		return apperrors.Newf(apperrors.KindInvalidParameter, "frame.buffer", "empty buffer")
	}
	f.buf = buf
	return nil
}

func (f *Frame) rect() image.Rectangle {
	return image.Rect(f.x, f.y, f.x+f.width, f.y+f.height)
}

func checkDelay(op string, delay int) error {
	if delay < 0 || delay > 0xFFFF {
		return apperrors.Newf(apperrors.KindInvalidParameter, op, "delay %d not in 0..65535", delay)
	}
	return nil
}

func checkDisposal(op string, d byte) error {
	if d > encoder.DisposalPrevious {
		return apperrors.Newf(apperrors.KindInvalidParameter, op, "disposal %d", d)
	}
	return nil
}

// frameBuffer validates buf against a w x h RGBA8888 frame.
func frameBuffer(op string, buf []byte, w, h int) (*core.RawImage, error) {
	img, err := core.NewRawImage(w, h, core.ColorspaceRGBA8888, buf)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidParameter, op, err)
	}
	return img, nil
}
