package core_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Skryldev/image-util/config"
	"github.com/Skryldev/image-util/core"
	apperrors "github.com/Skryldev/image-util/errors"
)

// ── Colorspace table ──────────────────────────────────────────────────────────

func TestSupported(t *testing.T) {
	tests := []struct {
		cs     core.Colorspace
		format core.Format
		want   bool
	}{
		{core.ColorspaceRGBA8888, core.FormatPNG, true},
		{core.ColorspaceRGBA8888, core.FormatGIF, true},
		{core.ColorspaceRGBA8888, core.FormatBMP, true},
		{core.ColorspaceRGB888, core.FormatPNG, false},
		{core.ColorspaceYV12, core.FormatJPEG, true},
		{core.ColorspaceI420, core.FormatJPEG, true},
		{core.ColorspaceNV12, core.FormatJPEG, true},
		{core.ColorspaceNV21, core.FormatJPEG, false},
		{core.ColorspaceBGRX8888, core.FormatJPEG, false},
		{core.ColorspaceRGBA8888, core.FormatUnknown, false},
		{core.Colorspace(-1), core.FormatJPEG, false},
	}
	for _, tc := range tests {
		if got := core.Supported(tc.cs, tc.format); got != tc.want {
			t.Errorf("Supported(%s, %s): got %v, want %v", tc.cs, tc.format, got, tc.want)
		}
	}
}

func TestSupportedColorspaces_OrderAndRestart(t *testing.T) {
	seq := core.SupportedColorspaces(core.FormatJPEG)
	want := []core.Colorspace{
		core.ColorspaceRGBA8888, core.ColorspaceBGRA8888, core.ColorspaceARGB8888,
		core.ColorspaceRGB888, core.ColorspaceNV12, core.ColorspaceI420, core.ColorspaceYV12,
	}
	for pass := 0; pass < 2; pass++ {
		var got []core.Colorspace
		for cs := range seq {
			got = append(got, cs)
		}
		if len(got) != len(want) {
			t.Fatalf("pass %d: got %v, want %v", pass, got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("pass %d [%d]: got %s, want %s", pass, i, got[i], want[i])
			}
		}
	}
}

func TestForEachSupportedColorspace_StopsEarly(t *testing.T) {
	var n int
	err := core.ForEachSupportedColorspace(core.FormatJPEG, func(core.Colorspace) bool {
		n++
		return n < 2
	})
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("callback ran %d times, want 2", n)
	}
	if err := core.ForEachSupportedColorspace(core.FormatUnknown, func(core.Colorspace) bool { return true }); !apperrors.IsKind(err, apperrors.KindInvalidParameter) {
		t.Errorf("unknown format: got %v", err)
	}
}

func TestNativeCode(t *testing.T) {
	if _, err := core.NativeCode(core.Colorspace(15)); !errors.Is(err, apperrors.ErrInvalidParameter) {
		t.Errorf("out of range: got %v", err)
	}
	l, err := core.NativeCode(core.ColorspaceNV21)
	if err != nil {
		t.Fatal(err)
	}
	if l.Family != core.FamilySemiPlanar420 || !l.VFirst {
		t.Errorf("NV21 layout: %+v", l)
	}
}

func TestParseColorspace(t *testing.T) {
	for _, cs := range core.Colorspaces() {
		got, err := core.ParseColorspace(cs.String())
		if err != nil || got != cs {
			t.Errorf("%s: got %v, %v", cs, got, err)
		}
	}
	if _, err := core.ParseColorspace("CMYK"); !apperrors.IsKind(err, apperrors.KindInvalidParameter) {
		t.Errorf("CMYK: got %v", err)
	}
}

// ── Buffer sizing ─────────────────────────────────────────────────────────────

func TestComputeSize(t *testing.T) {
	tests := []struct {
		w, h int
		cs   core.Colorspace
		want int
	}{
		{4, 4, core.ColorspaceRGBA8888, 64},
		{3, 5, core.ColorspaceRGB888, 45},
		{3, 5, core.ColorspaceRGB565, 30},
		{2, 2, core.ColorspaceBGRX8888, 16},
		{4, 4, core.ColorspaceI420, 16 + 2*2*2},
		{5, 3, core.ColorspaceYV12, 15 + 2*3*2},
		{5, 3, core.ColorspaceNV12, 15 + 3*2*2},
		{5, 3, core.ColorspaceNV21, 15 + 3*2*2},
		{6, 3, core.ColorspaceYUYV, 36},
		{6, 3, core.ColorspaceUYVY, 36},
		{6, 3, core.ColorspaceYUV422, 36},
		{6, 3, core.ColorspaceNV16, 36},
		{6, 3, core.ColorspaceNV61, 36},
		{1, 1, core.ColorspaceI420, 3},
	}
	for _, tc := range tests {
		got, err := core.ComputeSize(tc.w, tc.h, tc.cs)
		if err != nil {
			t.Fatalf("%dx%d %s: %v", tc.w, tc.h, tc.cs, err)
		}
		if got != tc.want {
			t.Errorf("%dx%d %s: got %d, want %d", tc.w, tc.h, tc.cs, got, tc.want)
		}
	}
}

func TestComputeSize_Invalid(t *testing.T) {
	tests := []struct {
		name string
		w, h int
		cs   core.Colorspace
		kind apperrors.Kind
	}{
		{"zero width", 0, 4, core.ColorspaceRGBA8888, apperrors.KindInvalidParameter},
		{"negative height", 4, -1, core.ColorspaceRGBA8888, apperrors.KindInvalidParameter},
		{"bad colorspace", 4, 4, core.Colorspace(42), apperrors.KindInvalidParameter},
		{"overflow", 1 << 40, 1 << 40, core.ColorspaceRGBA8888, apperrors.KindOutOfMemory},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := core.ComputeSize(tc.w, tc.h, tc.cs); !apperrors.IsKind(err, tc.kind) {
				t.Errorf("got %v, want %s", err, tc.kind)
			}
		})
	}
}

func TestPlanes_TileComputeSize(t *testing.T) {
	for _, cs := range core.Colorspaces() {
		for _, d := range [][2]int{{6, 4}, {7, 5}} {
			planes, err := core.Planes(d[0], d[1], cs)
			l, _ := core.NativeCode(cs)
			if sx, sy := l.ChromaShift(); sx == 1 && sy == 0 && d[0]%2 != 0 {
				if !apperrors.IsKind(err, apperrors.KindInvalidParameter) {
					t.Errorf("%s odd width: got %v", cs, err)
				}
				continue
			}
			if err != nil {
				t.Fatalf("%s: %v", cs, err)
			}
			size, _ := core.ComputeSize(d[0], d[1], cs)
			end := 0
			for _, p := range planes {
				if p.Offset != end {
					t.Errorf("%s: plane at %d, want %d", cs, p.Offset, end)
				}
				end = p.Offset + p.Len()
			}
			if end != size {
				t.Errorf("%s %dx%d: planes cover %d bytes, want %d", cs, d[0], d[1], end, size)
			}
		}
	}
}

func TestNewRawImage_RejectsWrongLength(t *testing.T) {
	if _, err := core.NewRawImage(2, 2, core.ColorspaceRGBA8888, make([]byte, 15)); !apperrors.IsKind(err, apperrors.KindInvalidParameter) {
		t.Errorf("got %v", err)
	}
	if _, err := core.NewRawImage(2, 2, core.ColorspaceRGBA8888, make([]byte, 16)); err != nil {
		t.Errorf("exact length: %v", err)
	}
}

func TestDownscaleApply(t *testing.T) {
	if got := core.Downscale8.Apply(17); got != 3 {
		t.Errorf("17/8: got %d, want 3", got)
	}
	if got := core.Downscale1.Apply(17); got != 17 {
		t.Errorf("17/1: got %d", got)
	}
	if core.Downscale(3).Valid() {
		t.Error("1/3 must be invalid")
	}
}

// ── Worker pool ───────────────────────────────────────────────────────────────

func TestProcessor_SubmitDeliversResult(t *testing.T) {
	cfg := config.Default()
	cfg.WorkerCount = 2
	p := core.New(cfg, core.NewRegistry())
	p.Start()
	defer p.Stop()

	ch := make(chan core.JobResult, 1)
	id, err := p.Submit(core.Job{
		Run: func(ctx context.Context) (core.JobOutput, error) {
			img, err := core.AllocRawImage(2, 2, core.ColorspaceRGBA8888)
			return core.JobOutput{Raw: img}, err
		},
		ResultCh: ch,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if id == "" {
		t.Error("expected a generated job id")
	}

	select {
	case res := <-ch:
		if res.Err != nil || res.Output.Raw == nil || res.JobID != id {
			t.Errorf("unexpected result %+v", res)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for job")
	}
	if p.ProcessedCount() != 1 {
		t.Errorf("processed: got %d, want 1", p.ProcessedCount())
	}
}

func TestProcessor_FailedJobHasNoOutput(t *testing.T) {
	p := core.New(config.Default(), core.NewRegistry())
	p.Start()
	defer p.Stop()

	ch := make(chan core.JobResult, 1)
	_, err := p.Submit(core.Job{
		Run: func(context.Context) (core.JobOutput, error) {
			img, _ := core.AllocRawImage(1, 1, core.ColorspaceRGB888)
			return core.JobOutput{Raw: img}, apperrors.Newf(apperrors.KindInvalidOperation, "test", "boom")
		},
		ResultCh: ch,
	})
	if err != nil {
		t.Fatal(err)
	}
	res := <-ch
	if res.Err == nil || res.Output.Raw != nil {
		t.Errorf("failed job leaked output: %+v", res)
	}
	if p.ErrorCount() != 1 {
		t.Errorf("errors: got %d, want 1", p.ErrorCount())
	}
}

func TestProcessor_SubmitAfterStop(t *testing.T) {
	p := core.New(config.Default(), core.NewRegistry())
	p.Start()
	p.Stop()
	_, err := p.Submit(core.Job{Run: func(context.Context) (core.JobOutput, error) { return core.JobOutput{}, nil }})
	if !apperrors.IsKind(err, apperrors.KindInvalidOperation) {
		t.Errorf("got %v, want invalid operation", err)
	}
}

func TestProcessor_ExpiredInQueue(t *testing.T) {
	cfg := config.Default()
	cfg.WorkerCount = 1
	cfg.JobTimeout = 10 * time.Millisecond
	p := core.New(cfg, core.NewRegistry())
	defer p.Stop()

	ran := false
	ch := make(chan core.JobResult, 1)
	if _, err := p.Submit(core.Job{
		Run:      func(context.Context) (core.JobOutput, error) { ran = true; return core.JobOutput{}, nil },
		ResultCh: ch,
	}); err != nil {
		t.Fatal(err)
	}
	time.Sleep(30 * time.Millisecond)
	p.Start()

	res := <-ch
	if !apperrors.IsKind(res.Err, apperrors.KindInvalidOperation) || ran {
		t.Errorf("expired job: err %v, ran %v", res.Err, ran)
	}
}

func TestPlanes_OddWidth422(t *testing.T) {
	for _, cs := range []core.Colorspace{core.ColorspaceYUYV, core.ColorspaceUYVY, core.ColorspaceYUV422, core.ColorspaceNV16} {
		if _, err := core.ComputeSize(3, 2, cs); err != nil {
			t.Errorf("%s: ComputeSize(3, 2): %v", cs, err)
		}
		if _, err := core.Planes(3, 2, cs); !apperrors.IsKind(err, apperrors.KindInvalidParameter) {
			t.Errorf("%s: Planes(3, 2) = %v, want invalid parameter", cs, err)
		}
	}
}

type countingLogger struct {
	mu sync.Mutex
	n  int
}

func (l *countingLogger) log()                         { l.mu.Lock(); l.n++; l.mu.Unlock() }
func (l *countingLogger) Debug(string, ...interface{}) { l.log() }
func (l *countingLogger) Info(string, ...interface{})  { l.log() }
func (l *countingLogger) Warn(string, ...interface{})  { l.log() }
func (l *countingLogger) Error(string, ...interface{}) { l.log() }

func TestProcessor_SetLoggerWhileRunning(t *testing.T) {
	cfg := config.Default()
	cfg.WorkerCount = 4
	p := core.New(cfg, core.NewRegistry())
	p.Start()
	defer p.Stop()

	const jobs = 64
	ch := make(chan core.JobResult, jobs)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < jobs; i++ {
			p.SetLogger(&countingLogger{})
		}
	}()
	for i := 0; i < jobs; i++ {
		if _, err := p.Submit(core.Job{
			Run:      func(context.Context) (core.JobOutput, error) { return core.JobOutput{}, nil },
			ResultCh: ch,
		}); err != nil {
			t.Fatal(err)
		}
	}
	wg.Wait()
	for i := 0; i < jobs; i++ {
		if res := <-ch; res.Err != nil {
			t.Errorf("job %s: %v", res.JobID, res.Err)
		}
	}

	final := &countingLogger{}
	p.SetLogger(final)
	if p.Logger() != core.Logger(final) {
		t.Error("Logger did not return the last logger set")
	}
}

// Every accepted job gets exactly one result, even when Stop runs
// concurrently with Submit.
func TestProcessor_SubmitRacingStop(t *testing.T) {
	for round := 0; round < 20; round++ {
		cfg := config.Default()
		cfg.WorkerCount = 2
		cfg.QueueSize = 1024
		p := core.New(cfg, core.NewRegistry())
		p.Start()

		const submitters, perSubmitter = 8, 32
		ch := make(chan core.JobResult, submitters*perSubmitter)
		var stopped sync.WaitGroup
		var count int64
		var mu sync.Mutex
		var wg sync.WaitGroup
		for s := 0; s < submitters; s++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < perSubmitter; i++ {
					_, err := p.Submit(core.Job{
						Run:      func(context.Context) (core.JobOutput, error) { return core.JobOutput{}, nil },
						ResultCh: ch,
					})
					if err == nil {
						mu.Lock()
						count++
						mu.Unlock()
					} else if !apperrors.IsKind(err, apperrors.KindInvalidOperation) {
						t.Errorf("Submit: %v", err)
					}
				}
			}()
		}
		stopped.Add(1)
		go func() {
			defer stopped.Done()
			p.Stop()
		}()
		wg.Wait()
		stopped.Wait()

		for i := int64(0); i < count; i++ {
			select {
			case <-ch:
			case <-time.After(5 * time.Second):
				t.Fatalf("round %d: %d of %d accepted jobs got no result", round, count-i, count)
			}
		}
		select {
		case res := <-ch:
			t.Fatalf("round %d: unexpected extra result %+v", round, res)
		default:
		}
	}
}
