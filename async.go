package imageutil

import (
	"context"

	"github.com/Skryldev/image-util/core"
	"github.com/Skryldev/image-util/pipeline"
	"github.com/Skryldev/image-util/session"
)

// The *Async helpers submit a synchronous call to the worker pool and return
// a channel that receives exactly one core.JobResult.  The session must not
// be touched until the result arrives.  Start must have been called.

// DecodeAsync runs d.Run on the worker pool.  The result carries
// Output.Raw.
func (p *Processor) DecodeAsync(ctx context.Context, d *session.Decode) (<-chan core.JobResult, error) {
	return p.submit(ctx, func(ctx context.Context) (core.JobOutput, error) {
		img, err := d.Run(ctx)
		return core.JobOutput{Raw: img}, err
	})
}

// EncodeAsync runs e.Run on the worker pool.  The result carries
// Output.Compressed.
func (p *Processor) EncodeAsync(ctx context.Context, e *session.Encode) (<-chan core.JobResult, error) {
	return p.submit(ctx, func(ctx context.Context) (core.JobOutput, error) {
		out, err := e.Run(ctx)
		return core.JobOutput{Compressed: out}, err
	})
}

// SaveAsync runs a.Save on the worker pool.  The result carries
// Output.Compressed.
func (p *Processor) SaveAsync(ctx context.Context, a *session.Animation) (<-chan core.JobResult, error) {
	return p.submit(ctx, func(ctx context.Context) (core.JobOutput, error) {
		out, err := a.Save(ctx)
		return core.JobOutput{Compressed: out}, err
	})
}

// TransformAsync runs t.Run(src) on the worker pool.  The result carries
// Output.Raw.
func (p *Processor) TransformAsync(ctx context.Context, t *pipeline.Transformation, src *core.RawImage) (<-chan core.JobResult, error) {
	return p.submit(ctx, func(ctx context.Context) (core.JobOutput, error) {
		img, err := t.Run(ctx, src)
		return core.JobOutput{Raw: img}, err
	})
}

func (p *Processor) submit(ctx context.Context, run func(context.Context) (core.JobOutput, error)) (<-chan core.JobResult, error) {
	ch := make(chan core.JobResult, 1)
	if _, err := p.inner.Submit(core.Job{Ctx: ctx, Run: run, ResultCh: ch}); err != nil {
		return nil, err
	}
	return ch, nil
}
