package hooks_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Skryldev/image-util/core"
	apperrors "github.com/Skryldev/image-util/errors"
	"github.com/Skryldev/image-util/hooks"
)

func TestMetricsHook_RecordsStep(t *testing.T) {
	m := hooks.NewInMemoryMetrics()
	h := hooks.NewMetricsHook(m)
	img, _ := core.AllocRawImage(4, 4, core.ColorspaceRGBA8888)

	h.BeforeStep(context.Background(), "resize", img)
	h.AfterStep(context.Background(), "resize", img, 3*time.Millisecond, nil)
	h.AfterStep(context.Background(), "rotate", nil, time.Millisecond,
		apperrors.Newf(apperrors.KindNotSupportedFormat, "transform.rotate", "nope"))

	snap := m.Snapshot()
	if snap.StepCalls["resize"] != 1 || snap.StepCalls["rotate"] != 1 {
		t.Errorf("calls: %v", snap.StepCalls)
	}
	if snap.TotalThroughputB != 64 {
		t.Errorf("throughput: %d", snap.TotalThroughputB)
	}
	if snap.StepErrors["rotate"] != 1 || snap.StepErrorKinds[string(apperrors.KindNotSupportedFormat)] != 1 {
		t.Errorf("errors: %v %v", snap.StepErrors, snap.StepErrorKinds)
	}
}

func TestTextLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	l := hooks.NewTextLogger(&buf, "warn")
	l.Info("hidden")
	l.Warn("shown", "width", 4)
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") || !strings.Contains(out, "width=4") {
		t.Errorf("output: %q", out)
	}
}

func TestLoggingHook_DebugRecords(t *testing.T) {
	var buf bytes.Buffer
	h := hooks.NewLoggingHook(hooks.NewTextLogger(&buf, "debug"))
	img, _ := core.AllocRawImage(2, 2, core.ColorspaceI420)
	h.BeforeStep(context.Background(), "convert", img)
	h.AfterStep(context.Background(), "convert", img, time.Millisecond, nil)
	out := buf.String()
	if !strings.Contains(out, "pipeline.step.start") || !strings.Contains(out, "colorspace=I420") {
		t.Errorf("output: %q", out)
	}
}
