// Package session holds the stateful handles that coordinate one decode,
// one still-image encode, or one animated GIF assembly.
//
// A session is used by one goroutine at a time.  Calls that arrive while
// Run or Save is in progress, and every call after Close, fail with
// InvalidOperation instead of blocking.
package session

import (
	"sync"

	"github.com/google/uuid"

	"github.com/Skryldev/image-util/config"
	"github.com/Skryldev/image-util/core"
	apperrors "github.com/Skryldev/image-util/errors"
)

// Kind discriminates the session variants.
type Kind int

const (
	KindDecode Kind = iota
	KindEncode
	KindAnimation
)

func (k Kind) String() string {
	switch k {
	case KindDecode:
		return "decode"
	case KindEncode:
		return "encode"
	case KindAnimation:
		return "animation"
	}
	return "unknown"
}

// Session is implemented by *Decode, *Encode and *Animation only.
type Session interface {
	ID() string
	Kind() Kind
	Close() error

	sealed()
}

// Deps are the collaborators a session works through.
type Deps struct {
	Registry core.Registry
	Store    core.FileStore
	Logger   core.Logger
	Config   config.Config
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = core.NopLogger{}
	}
	return d
}

// ── Shared state ──────────────────────────────────────────────────────────────

type base struct {
	id   string
	deps Deps

	mu      sync.Mutex
	running bool
	closed  bool
}

func newBase(deps Deps) base {
	return base{id: uuid.NewString(), deps: deps.withDefaults()}
}

func (b *base) ID() string { return b.id }

// usableLocked rejects calls on a closed or busy session.  b.mu must be held.
func (b *base) usableLocked(op string) error {
	if b.closed {
		return apperrors.Newf(apperrors.KindInvalidOperation, op, "session closed")
	}
	if b.running {
		return apperrors.Newf(apperrors.KindInvalidOperation, op, "session busy")
	}
	return nil
}

// begin marks the session busy.  b.mu must be held.
func (b *base) beginLocked(op string) error {
	if err := b.usableLocked(op); err != nil {
		return err
	}
	b.running = true
	return nil
}

func (b *base) end() {
	b.mu.Lock()
	b.running = false
	b.mu.Unlock()
}

// closeLocked marks the session closed.  b.mu must be held.
func (b *base) closeLocked(op string) error {
	if b.closed {
		return apperrors.Newf(apperrors.KindInvalidOperation, op, "session closed")
	}
	if b.running {
		return apperrors.Newf(apperrors.KindInvalidOperation, op, "session busy")
	}
	b.closed = true
	return nil
}

func (b *base) logFailure(op string, err error) {
	b.deps.Logger.Error(op+".failed",
		"session", b.id,
		"kind", string(apperrors.KindOf(err)),
		"error", err.Error(),
	)
}

func (*Decode) sealed()    {}
func (*Encode) sealed()    {}
func (*Animation) sealed() {}

func (*Decode) Kind() Kind    { return KindDecode }
func (*Encode) Kind() Kind    { return KindEncode }
func (*Animation) Kind() Kind { return KindAnimation }
