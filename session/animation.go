package session

import (
	"bytes"
	"context"
	"image"
	"io"
	"time"

	"github.com/Skryldev/image-util/adapters/encoder"
	"github.com/Skryldev/image-util/core"
	apperrors "github.com/Skryldev/image-util/errors"
)

// State is the lifecycle of an Animation.
type State int

const (
	StateEmpty State = iota
	StateAccumulating
	StateFinalized
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateAccumulating:
		return "accumulating"
	case StateFinalized:
		return "finalized"
	}
	return "unknown"
}

// maxFrames bounds frame indices so a stray index cannot allocate a huge
// slot table.
const maxFrames = 1 << 16

type mode int

const (
	modeUnset mode = iota
	modeAttributes
	modeIncremental
)

// frameSlot holds the attributes set for one frame index.  A slot is
// complete once it has a buffer, a delay, and either a position or a
// session canvas to default to.
type frameSlot struct {
	hasPosition bool
	rect        image.Rectangle
	buf         []byte
	hasDelay    bool
	delay       int
	disposal    byte
}

// Animation assembles an animated GIF.
//
// Frames are supplied either by index (SetFrame* and the AddFrame*
// helpers, encoded together by Save) or incrementally (AddFrame, each frame
// streamed to the output at once).  A session uses one mode or the other.
type Animation struct {
	base

	state State
	mode  mode

	hasCanvas     bool
	width, height int
	loopCount     int

	frames                            []*frameSlot
	resCursor, bufCursor, delayCursor int

	outPath  string
	toBuffer bool

	// Incremental output.
	sink   io.WriteCloser
	buf    *bytes.Buffer
	writer *encoder.GIFWriter

	written int
}

// NewAnimation returns an empty animation session looping
// Config.GIFLoopCount times.
func NewAnimation(deps Deps) *Animation {
	a := &Animation{base: newBase(deps)}
	a.loopCount = a.deps.Config.GIFLoopCount
	return a
}

// State reports the lifecycle state.
func (a *Animation) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// FrameCount returns the number of frames that would be encoded: complete
// slots in attribute mode, written frames in incremental mode.
func (a *Animation) FrameCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.writer != nil {
		return a.writer.Frames()
	}
	if a.state == StateFinalized {
		return a.written
	}
	n := 0
	for _, s := range a.frames {
		if s != nil && s.buf != nil && s.hasDelay && (s.hasPosition || a.hasCanvas) {
			n++
		}
	}
	return n
}

// mutableLocked rejects changes to a closed, busy or finalized session.
func (a *Animation) mutableLocked(op string) error {
	if err := a.usableLocked(op); err != nil {
		return err
	}
	if a.state == StateFinalized {
		return apperrors.Newf(apperrors.KindInvalidOperation, op, "animation already saved")
	}
	return nil
}

// ── Session-level settings ────────────────────────────────────────────────────

// SetResolution sets the canvas.  When never set, the first frame's
// extent is used.
func (a *Animation) SetResolution(width, height int) error {
	const op = "animation.resolution"
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.mutableLocked(op); err != nil {
		return err
	}
	if err := checkCanvas(op, width, height); err != nil {
		return err
	}
	if a.writer != nil {
		return apperrors.Newf(apperrors.KindInvalidOperation, op, "canvas fixed once frames are written")
	}
	a.hasCanvas, a.width, a.height = true, width, height
	return nil
}

// Resolution returns the canvas size.
func (a *Animation) Resolution() (width, height int, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.hasCanvas {
		return 0, 0, apperrors.Newf(apperrors.KindInvalidOperation, "animation.resolution", "not set")
	}
	return a.width, a.height, nil
}

// SetLoopCount sets the NETSCAPE2.0 loop count: 0 loops forever, -1 omits
// the extension so the animation plays once.
func (a *Animation) SetLoopCount(n int) error {
	const op = "animation.loop_count"
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.mutableLocked(op); err != nil {
		return err
	}
	if n < -1 || n > 0xFFFF {
		return apperrors.Newf(apperrors.KindInvalidParameter, op, "loop count %d", n)
	}
	if a.writer != nil {
		return apperrors.Newf(apperrors.KindInvalidOperation, op, "header already written")
	}
	a.loopCount = n
	return nil
}

// SetOutputPath writes the GIF to path, replacing a buffer output.
func (a *Animation) SetOutputPath(path string) error {
	const op = "animation.output_path"
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.mutableLocked(op); err != nil {
		return err
	}
	if path == "" {
		return apperrors.Newf(apperrors.KindInvalidParameter, op, "empty path")
	}
	if a.writer != nil {
		return apperrors.Newf(apperrors.KindInvalidOperation, op, "output fixed once frames are written")
	}
	a.outPath, a.toBuffer = path, false
	return nil
}

// SetOutputBuffer returns the GIF in CompressedImage.Data, replacing a path
// output.
func (a *Animation) SetOutputBuffer() error {
	const op = "animation.output_buffer"
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.mutableLocked(op); err != nil {
		return err
	}
	if a.writer != nil {
		return apperrors.Newf(apperrors.KindInvalidOperation, op, "output fixed once frames are written")
	}
	a.outPath, a.toBuffer = "", true
	return nil
}

// ── Attribute mode ────────────────────────────────────────────────────────────

// slotLocked returns the slot for index i, switching the session into
// attribute mode.
func (a *Animation) slotLocked(op string, i int) (*frameSlot, error) {
	if err := a.mutableLocked(op); err != nil {
		return nil, err
	}
	if a.mode == modeIncremental {
		return nil, apperrors.Newf(apperrors.KindInvalidOperation, op, "session is in incremental mode")
	}
	if i < 0 || i >= maxFrames {
		return nil, apperrors.Newf(apperrors.KindInvalidParameter, op, "frame index %d", i)
	}
	for len(a.frames) <= i {
		a.frames = append(a.frames, nil)
	}
	if a.frames[i] == nil {
		a.frames[i] = &frameSlot{disposal: encoder.DisposalNone}
	}
	return a.frames[i], nil
}

func (a *Animation) touchLocked() {
	a.mode = modeAttributes
	a.state = StateAccumulating
}

// SetFramePosition places frame i at (x, y) with size width x height.
func (a *Animation) SetFramePosition(i, x, y, width, height int) error {
	const op = "animation.frame_position"
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.setPositionLocked(op, i, x, y, width, height)
}

func (a *Animation) setPositionLocked(op string, i, x, y, width, height int) error {
	s, err := a.slotLocked(op, i)
	if err != nil {
		return err
	}
	if x < 0 || y < 0 {
		return apperrors.Newf(apperrors.KindInvalidParameter, op, "offset (%d,%d)", x, y)
	}
	if err := checkCanvas(op, width, height); err != nil {
		return err
	}
	if s.buf != nil {
		if _, err := frameBuffer(op, s.buf, width, height); err != nil {
			return err
		}
	}
	s.hasPosition, s.rect = true, image.Rect(x, y, x+width, y+height)
	a.touchLocked()
	return nil
}

// SetFrameBuffer sets the RGBA8888 pixels of frame i.  buf is borrowed
// until Save returns.
func (a *Animation) SetFrameBuffer(i int, buf []byte) error {
	const op = "animation.frame_buffer"
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.setBufferLocked(op, i, buf)
}

func (a *Animation) setBufferLocked(op string, i int, buf []byte) error {
	s, err := a.slotLocked(op, i)
	if err != nil {
		return err
	}
	if len(buf) == 0 {
		return apperrors.Newf(apperrors.KindInvalidParameter, op, "empty buffer")
	}
	if s.hasPosition {
		if _, err := frameBuffer(op, buf, s.rect.Dx(), s.rect.Dy()); err != nil {
			return err
		}
	}
	s.buf = buf
	a.touchLocked()
	return nil
}

// SetFrameDelay sets how long frame i is shown, in hundredths of a second.
func (a *Animation) SetFrameDelay(i, delay int) error {
	const op = "animation.frame_delay"
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.setDelayLocked(op, i, delay)
}

func (a *Animation) setDelayLocked(op string, i, delay int) error {
	s, err := a.slotLocked(op, i)
	if err != nil {
		return err
	}
	if err := checkDelay(op, delay); err != nil {
		return err
	}
	s.hasDelay, s.delay = true, delay
	a.touchLocked()
	return nil
}

// SetFrameDisposal sets what happens to frame i's area before the next
// frame is drawn.  The default is encoder.DisposalNone.
func (a *Animation) SetFrameDisposal(i int, d byte) error {
	const op = "animation.frame_disposal"
	a.mu.Lock()
	defer a.mu.Unlock()
	s, err := a.slotLocked(op, i)
	if err != nil {
		return err
	}
	if err := checkDisposal(op, d); err != nil {
		return err
	}
	s.disposal = d
	a.touchLocked()
	return nil
}

// AddFrameResolution sizes the next frame at (0, 0).  The first call also
// sets the canvas when it is still unset.
func (a *Animation) AddFrameResolution(width, height int) error {
	const op = "animation.add_frame_resolution"
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.setPositionLocked(op, a.resCursor, 0, 0, width, height); err != nil {
		return err
	}
	if !a.hasCanvas {
		a.hasCanvas, a.width, a.height = true, width, height
	}
	a.resCursor++
	return nil
}

// AddFrameBuffer sets the buffer of the next frame.
func (a *Animation) AddFrameBuffer(buf []byte) error {
	const op = "animation.add_frame_buffer"
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.setBufferLocked(op, a.bufCursor, buf); err != nil {
		return err
	}
	a.bufCursor++
	return nil
}

// AddFrameDelay sets the delay of the next frame.
func (a *Animation) AddFrameDelay(delay int) error {
	const op = "animation.add_frame_delay"
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.setDelayLocked(op, a.delayCursor, delay); err != nil {
		return err
	}
	a.delayCursor++
	return nil
}

// ── Incremental mode ──────────────────────────────────────────────────────────

// NewFrame returns an empty frame for AddFrame.
func (a *Animation) NewFrame() *Frame {
	return &Frame{disposal: encoder.DisposalNone}
}

// AddFrame validates f and writes it to the output immediately.  The
// output must be chosen before the first frame.
func (a *Animation) AddFrame(ctx context.Context, f *Frame) error {
	const op = "animation.add_frame"
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.mutableLocked(op); err != nil {
		return err
	}
	if a.mode == modeAttributes {
		return apperrors.Newf(apperrors.KindInvalidOperation, op, "session is in attribute mode")
	}
	if f == nil || f.width == 0 || f.buf == nil {
		return apperrors.Newf(apperrors.KindInvalidOperation, op, "frame needs a resolution and a buffer")
	}
	if a.outPath == "" && !a.toBuffer {
		return apperrors.Newf(apperrors.KindInvalidOperation, op, "output not set")
	}
	img, err := frameBuffer(op, f.buf, f.width, f.height)
	if err != nil {
		return err
	}

	if a.writer == nil {
		if !a.hasCanvas {
			r := f.rect()
			if err := checkCanvas(op, r.Max.X, r.Max.Y); err != nil {
				return err
			}
			a.hasCanvas, a.width, a.height = true, r.Max.X, r.Max.Y
		}
		if !f.rect().In(image.Rect(0, 0, a.width, a.height)) {
			return apperrors.Newf(apperrors.KindInvalidParameter, op, "frame %v outside %dx%d canvas", f.rect(), a.width, a.height)
		}
		if err := a.openLocked(ctx); err != nil {
			return err
		}
		a.mode = modeIncremental
		a.state = StateAccumulating
	}

	if err := a.writer.WriteFrame(ctx, encoder.GIFFrame{
		Image: img, X: f.x, Y: f.y, Delay: f.delay, Disposal: f.disposal,
	}); err != nil {
		return err
	}
	a.deps.Logger.Debug("animation.frame",
		"session", a.id,
		"index", a.writer.Frames()-1,
		"width", f.width,
		"height", f.height,
		"delay", f.delay,
	)
	return nil
}

// openLocked creates the output sink and the GIF writer.
func (a *Animation) openLocked(ctx context.Context) error {
	var w io.Writer
	if a.toBuffer {
		a.buf = new(bytes.Buffer)
		w = a.buf
	} else {
		sink, err := a.deps.Store.Create(ctx, a.outPath)
		if err != nil {
			return err
		}
		a.sink = sink
		w = sink
	}
	gw, err := encoder.NewGIFWriter(w, a.width, a.height, a.loopCount)
	if err != nil {
		a.discardLocked(ctx)
		return err
	}
	a.writer = gw
	return nil
}

// discardLocked drops a partially written output.
func (a *Animation) discardLocked(ctx context.Context) {
	if a.sink != nil {
		_ = a.sink.Close()
		_ = a.deps.Store.Remove(context.WithoutCancel(ctx), a.outPath)
		a.sink = nil
	}
	a.buf = nil
	a.writer = nil
}

// ── Save ──────────────────────────────────────────────────────────────────────

// Save finishes the animation and returns the encoded result.  In attribute
// mode it fails with InvalidOperation, leaving the session unchanged, when
// there are no frames or any frame index lacks an attribute.
func (a *Animation) Save(ctx context.Context) (*core.CompressedImage, error) {
	const op = "animation.save"
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.mutableLocked(op); err != nil {
		return nil, err
	}
	if a.outPath == "" && !a.toBuffer {
		return nil, apperrors.Newf(apperrors.KindInvalidOperation, op, "output not set")
	}

	start := time.Now()
	var (
		out *core.CompressedImage
		err error
	)
	switch a.mode {
	case modeIncremental:
		out, err = a.finishLocked(ctx)
	case modeAttributes:
		out, err = a.encodeSlotsLocked(ctx)
	default:
		err = apperrors.Newf(apperrors.KindInvalidOperation, op, "no frames")
	}
	if err != nil {
		a.logFailure(op, err)
		return nil, err
	}
	a.state = StateFinalized
	a.frames = nil
	a.deps.Logger.Debug("animation.saved",
		"session", a.id,
		"frames", out.Frames,
		"bytes", out.Size,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// encodeSlotsLocked checks every slot, then streams them in index order.
func (a *Animation) encodeSlotsLocked(ctx context.Context) (*core.CompressedImage, error) {
	const op = "animation.save"
	if len(a.frames) == 0 {
		return nil, apperrors.Newf(apperrors.KindInvalidOperation, op, "no frames")
	}

	width, height := a.width, a.height
	if !a.hasCanvas {
		if s := a.frames[0]; s != nil && s.hasPosition {
			width, height = s.rect.Max.X, s.rect.Max.Y
		}
	}
	canvas := image.Rect(0, 0, width, height)

	frames := make([]encoder.GIFFrame, len(a.frames))
	for i, s := range a.frames {
		switch {
		case s == nil:
			return nil, apperrors.Newf(apperrors.KindInvalidOperation, op, "frame %d has no attributes", i)
		case s.buf == nil:
			return nil, apperrors.Newf(apperrors.KindInvalidOperation, op, "frame %d has no buffer", i)
		case !s.hasDelay:
			return nil, apperrors.Newf(apperrors.KindInvalidOperation, op, "frame %d has no delay", i)
		case !s.hasPosition && canvas.Empty():
			return nil, apperrors.Newf(apperrors.KindInvalidOperation, op, "frame %d has no position and no canvas", i)
		}
		rect := canvas
		if s.hasPosition {
			rect = s.rect
		}
		if !rect.In(canvas) {
			return nil, apperrors.Newf(apperrors.KindInvalidParameter, op, "frame %d %v outside %dx%d canvas", i, rect, width, height)
		}
		img, err := frameBuffer(op, s.buf, rect.Dx(), rect.Dy())
		if err != nil {
			return nil, err
		}
		frames[i] = encoder.GIFFrame{Image: img, X: rect.Min.X, Y: rect.Min.Y, Delay: s.delay, Disposal: s.disposal}
	}

	prev := [3]int{a.width, a.height, 0}
	if a.hasCanvas {
		prev[2] = 1
	}
	a.hasCanvas, a.width, a.height = true, width, height
	out, err := a.streamLocked(ctx, frames)
	if err != nil {
		a.hasCanvas, a.width, a.height = prev[2] == 1, prev[0], prev[1]
		return nil, err
	}
	return out, nil
}

func (a *Animation) streamLocked(ctx context.Context, frames []encoder.GIFFrame) (*core.CompressedImage, error) {
	if err := a.openLocked(ctx); err != nil {
		return nil, err
	}
	for _, f := range frames {
		if err := a.writer.WriteFrame(ctx, f); err != nil {
			a.discardLocked(ctx)
			return nil, err
		}
	}
	return a.finishLocked(ctx)
}

// finishLocked writes the trailer and closes the sink.
func (a *Animation) finishLocked(ctx context.Context) (*core.CompressedImage, error) {
	const op = "animation.save"
	if a.writer == nil || a.writer.Frames() == 0 {
		return nil, apperrors.Newf(apperrors.KindInvalidOperation, op, "no frames")
	}
	n := a.writer.Frames()
	if err := a.writer.Close(); err != nil {
		a.discardLocked(ctx)
		return nil, err
	}

	out := &core.CompressedImage{Format: core.FormatGIF, Width: a.width, Height: a.height, Frames: n}
	if a.toBuffer {
		out.Data = a.buf.Bytes()
		out.Size = int64(len(out.Data))
		a.buf = nil
	} else {
		out.Size = a.writer.Size()
		if err := a.sink.Close(); err != nil {
			a.sink = nil
			_ = a.deps.Store.Remove(context.WithoutCancel(ctx), a.outPath)
			return nil, apperrors.Wrap(apperrors.KindInvalidOperation, op, err)
		}
		a.sink = nil
		out.Path = a.outPath
	}
	a.written = n
	a.writer = nil
	return out, nil
}

// Close releases the session.  An incremental animation that was never
// saved has its partial output removed.
func (a *Animation) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.closeLocked("animation.close"); err != nil {
		return err
	}
	if a.state != StateFinalized {
		a.discardLocked(context.Background())
	}
	a.frames = nil
	return nil
}

func checkCanvas(op string, width, height int) error {
	if width <= 0 || height <= 0 || width > encoder.MaxGIFDimension || height > encoder.MaxGIFDimension {
		return apperrors.Newf(apperrors.KindInvalidParameter, op, "%dx%d not in 1..%d", width, height, encoder.MaxGIFDimension)
	}
	return nil
}
