package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zhouzirui/syntra/backend/internal/logging"
	"github.com/zhouzirui/syntra/backend/internal/model/chat"
	"github.com/zhouzirui/syntra/backend/internal/service/ai"
)

var (
	// ErrTurnInProgress rejects a second turn on a session that is still streaming.
	ErrTurnInProgress = errors.New("a reply is still streaming for this session")
	// ErrStreamIdle fails a turn whose provider stopped producing chunks.
	ErrStreamIdle = errors.New("model stream idle timeout")
)

// Observer receives snapshots while a turn runs. Calls are made synchronously
// from the goroutine running the turn, in the order the changes happened.
type Observer interface {
	SessionUpdated(session chat.Session)
	HistoryUpdated(sessions []chat.Session)
}

// Recorder collects turn metrics.
type Recorder interface {
	TurnStarted(tier chat.Tier)
	ChunkApplied(tier chat.Tier)
	StoreFailed(op string)
	TurnFinished(tier chat.Tier, state State, elapsed time.Duration)
}

// Outcome summarises a finished turn.
type Outcome struct {
	SessionID string
	State     State
	Reply     chat.Message
	Chunks    int
	// Err is the provider error of a failed turn.
	Err error
	// StoreErr joins every storage error seen during the turn. The in-memory
	// session stays authoritative when it is set.
	StoreErr error
}

// Option customises an Orchestrator.
type Option func(*Orchestrator)

// WithIdleTimeout fails a turn when no chunk arrives within d. Zero disables it.
func WithIdleTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.idleTimeout = d }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithIDGenerator overrides message id generation.
func WithIDGenerator(newID func() string) Option {
	return func(o *Orchestrator) { o.newID = newID }
}

// WithRecorder installs a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) { o.logger = logging.OrNop(l) }
}

// Orchestrator runs turns: it appends the user message and the draft reply,
// feeds provider chunks through a Turn and writes every change through to the store.
type Orchestrator struct {
	provider    ai.Provider
	store       chat.Store
	recorder    Recorder
	logger      *zap.Logger
	idleTimeout time.Duration
	now         func() time.Time
	newID       func() string

	mu       sync.Mutex
	inflight map[string]struct{}
}

// New creates an Orchestrator.
func New(provider ai.Provider, store chat.Store, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		provider: provider,
		store:    store,
		recorder: nopRecorder{},
		logger:   zap.NewNop(),
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
		inflight: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Streaming reports whether sessionID has a turn in progress.
func (o *Orchestrator) Streaming(sessionID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.inflight[sessionID]
	return ok
}

func (o *Orchestrator) acquire(sessionID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.inflight[sessionID]; ok {
		return false
	}
	o.inflight[sessionID] = struct{}{}
	return true
}

func (o *Orchestrator) release(sessionID string) {
	o.mu.Lock()
	delete(o.inflight, sessionID)
	o.mu.Unlock()
}

// Run executes one turn on session and blocks until it is DONE or FAILED.
// session is mutated in place and must not be shared with other goroutines
// while Run is executing. A returned error means the turn was rejected before
// any message was appended.
func (o *Orchestrator) Run(ctx context.Context, session *chat.Session, text string, tier chat.Tier, obs Observer) (Outcome, error) {
	if session == nil || session.ID == "" {
		return Outcome{}, fmt.Errorf("run turn: session is required")
	}
	if obs == nil {
		obs = nopObserver{}
	}
	if !o.acquire(session.ID) {
		return Outcome{}, ErrTurnInProgress
	}
	defer o.release(session.ID)

	started := o.now()
	sc := ai.ContextFor(*session)

	now := o.now()
	session.Append(chat.Message{ID: o.newID(), Role: chat.RoleUser, Content: text, CreatedAt: now}, now)
	session.Append(chat.Message{ID: o.newID(), Role: chat.RoleAssistant, CreatedAt: now}, now)

	r := &runner{o: o, ctx: context.WithoutCancel(ctx), session: session, obs: obs, tier: tier}
	r.run(allEffects)
	o.recorder.TurnStarted(tier)

	turn := newTurn(session, o.now)
	streamCtx, cancelStream := context.WithCancel(ctx)
	defer cancelStream()

	stream, err := o.provider.OpenStream(streamCtx, sc, text, tier)
	switch {
	case err != nil && ctx.Err() != nil:
		r.run(turn.Apply(CancelEvent{}))
	case err != nil:
		r.run(turn.Apply(ErrorEvent{Err: fmt.Errorf("open stream: %w", err)}))
	default:
		o.consume(ctx, cancelStream, turn, stream, r)
	}

	outcome := Outcome{
		SessionID: session.ID,
		State:     turn.State(),
		Reply:     turn.Draft(),
		Chunks:    turn.chunks,
		Err:       turn.err,
		StoreErr:  errors.Join(r.storeErrs...),
	}
	o.recorder.TurnFinished(tier, outcome.State, o.now().Sub(started))

	fields := []zap.Field{
		zap.String("session", session.ID),
		zap.String("tier", string(tier)),
		zap.Stringer("state", outcome.State),
		zap.Int("chunks", outcome.Chunks),
	}
	if outcome.Err != nil {
		o.logger.Warn("turn failed", append(fields, zap.Error(outcome.Err))...)
	} else {
		o.logger.Info("turn finished", fields...)
	}
	return outcome, nil
}

type received struct {
	chunk string
	err   error
}

// consume applies chunks until the turn is terminal. On return the reader is
// closed and cancelStream aborts the provider request. The receiving goroutine
// is not joined: a provider that ignores ctx may keep it in Recv until its
// writer sends or closes, and the turn must not wait for that.
func (o *Orchestrator) consume(ctx context.Context, cancelStream context.CancelFunc, turn *Turn, stream *schema.StreamReader[string], r *runner) {
	results := make(chan received)
	stop := make(chan struct{})

	go func() {
		for {
			chunk, err := stream.Recv()
			select {
			case results <- received{chunk: chunk, err: err}:
			case <-stop:
				return
			}
			if err != nil {
				return
			}
		}
	}()
	defer func() {
		close(stop)
		cancelStream()
		stream.Close()
	}()

	var idle <-chan time.Time
	var timer *time.Timer
	if o.idleTimeout > 0 {
		timer = time.NewTimer(o.idleTimeout)
		defer timer.Stop()
		idle = timer.C
	}

	for turn.State() == StateStreaming {
		var ev Event
		select {
		case res := <-results:
			switch {
			case errors.Is(res.err, io.EOF):
				ev = EndEvent{}
			case res.err != nil && ctx.Err() != nil:
				ev = CancelEvent{}
			case res.err != nil:
				ev = ErrorEvent{Err: res.err}
			default:
				ev = TokenEvent{Text: res.chunk}
			}
		case <-ctx.Done():
			ev = CancelEvent{}
		case <-idle:
			ev = ErrorEvent{Err: ErrStreamIdle}
		}

		effects := turn.Apply(ev)
		if _, ok := ev.(TokenEvent); ok && len(effects) > 0 {
			o.recorder.ChunkApplied(r.tier)
		}
		r.run(effects)

		if timer != nil && turn.State() == StateStreaming {
			timer.Reset(o.idleTimeout)
		}
	}
}

// runner executes effects for one turn and collects storage errors.
type runner struct {
	o         *Orchestrator
	ctx       context.Context
	session   *chat.Session
	obs       Observer
	tier      chat.Tier
	storeErrs []error
}

func (r *runner) run(effects []Effect) {
	for _, eff := range effects {
		switch eff {
		case PersistEffect:
			if err := r.o.store.Put(r.ctx, r.session.Clone()); err != nil {
				r.storeFailed("put", err)
			}
		case PublishEffect:
			r.obs.SessionUpdated(r.session.Clone())
		case RefreshHistoryEffect:
			sessions, err := r.o.store.List(r.ctx, r.session.OwnerID)
			if err != nil {
				r.storeFailed("list", err)
				continue
			}
			r.obs.HistoryUpdated(sessions)
		}
	}
}

func (r *runner) storeFailed(op string, err error) {
	r.o.recorder.StoreFailed(op)
	r.o.logger.Warn("session store failed",
		zap.String("op", op),
		zap.String("session", r.session.ID),
		zap.Error(err))
	r.storeErrs = append(r.storeErrs, fmt.Errorf("%s session %s: %w", op, r.session.ID, err))
}

type nopObserver struct{}

func (nopObserver) SessionUpdated(chat.Session)   {}
func (nopObserver) HistoryUpdated([]chat.Session) {}

type nopRecorder struct{}

func (nopRecorder) TurnStarted(chat.Tier)                        {}
func (nopRecorder) ChunkApplied(chat.Tier)                       {}
func (nopRecorder) StoreFailed(string)                           {}
func (nopRecorder) TurnFinished(chat.Tier, State, time.Duration) {}
