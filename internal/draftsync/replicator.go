package draftsync

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"resumebuilder/internal/resume"
)

// DefaultDebounce coalesces bursts of edits into one remote call.
const DefaultDebounce = 800 * time.Millisecond

// Target is the remote side of the replication. *Client implements it.
type Target interface {
	CreateResume(ctx context.Context, token string, doc resume.Payload) (uint, error)
	UpdateResume(ctx context.Context, token string, id uint, doc resume.Payload) error
}

// SessionProvider yields the current bearer token; an empty token means
// the user is not signed in and nothing is sent.
type SessionProvider interface {
	Token() string
	Clear()
}

// Session is an in-memory SessionProvider.
type Session struct {
	mu    sync.RWMutex
	token string
}

func NewSession(token string) *Session { return &Session{token: token} }

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) Set(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

func (s *Session) Clear() { s.Set("") }

// Notifier surfaces transient, non-blocking notices such as a failed save.
type Notifier interface {
	Notify(message string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(message string)

func (f NotifierFunc) Notify(message string) { f(message) }

// ReplicatorConfig wires a Replicator.
type ReplicatorConfig struct {
	Store    *Store
	Target   Target
	Session  SessionProvider
	Notifier Notifier
	// OnUnauthorized runs after a 401, once the session has been cleared.
	// It runs on the sending goroutine and must not call Stop or Teardown directly.
	OnUnauthorized func()
	// Location feeds ResolveTemplateID when the draft has no template id.
	Location func() string
	Debounce time.Duration
	// ResumeID is the remote id of the draft, if already known.
	ResumeID uint
	Logger   *slog.Logger
}

// Replicator mirrors Store changes to Target. Sends are serialized and never retried.
type Replicator struct {
	cfg ReplicatorConfig

	mu          sync.Mutex
	timer       *time.Timer
	resumeID    uint
	started     bool
	stopped     bool
	unsubscribe func()
	inflight    sync.WaitGroup
	// version counts local changes; synced is the version last accepted remotely.
	version uint64
	synced  uint64

	sendMu sync.Mutex
}

func NewReplicator(cfg ReplicatorConfig) *Replicator {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Session == nil {
		cfg.Session = NewSession("")
	}
	r := &Replicator{cfg: cfg, resumeID: cfg.ResumeID}
	if cfg.ResumeID == 0 {
		// Nothing exists remotely yet, so the first flush must create it.
		r.version = 1
	}
	return r
}

// Start subscribes to the store. Calling it twice is a no-op.
func (r *Replicator) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started || r.stopped {
		return
	}
	r.started = true
	r.unsubscribe = r.cfg.Store.Subscribe(r.onChange)
}

// Stop cancels a pending send and waits for an in-flight one to finish.
func (r *Replicator) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	if r.timer != nil {
		r.timer.Stop()
	}
	unsubscribe := r.unsubscribe
	r.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	r.inflight.Wait()
}

// ResumeID returns the remote id learned from the last create.
func (r *Replicator) ResumeID() uint {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resumeID
}

func (r *Replicator) setResumeID(id uint) {
	r.mu.Lock()
	r.resumeID = id
	r.mu.Unlock()
}

func (r *Replicator) onChange(Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return
	}
	r.version++
	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = time.AfterFunc(r.cfg.Debounce, r.fire)
}

func (r *Replicator) fire() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.inflight.Add(1)
	r.mu.Unlock()
	defer r.inflight.Done()

	_ = r.FlushPending(context.Background())
}

// Pending reports whether local changes have not yet been accepted remotely.
func (r *Replicator) Pending() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.version != r.synced
}

// FlushPending is Flush, skipped when nothing changed since the last successful send.
func (r *Replicator) FlushPending(ctx context.Context) error {
	r.sendMu.Lock()
	defer r.sendMu.Unlock()
	if !r.Pending() {
		return nil
	}
	return r.flushLocked(ctx)
}

// Flush sends the current snapshot immediately. It returns nil without
// sending when there is no session.
func (r *Replicator) Flush(ctx context.Context) error {
	r.sendMu.Lock()
	defer r.sendMu.Unlock()
	return r.flushLocked(ctx)
}

func (r *Replicator) flushLocked(ctx context.Context) error {
	token := r.cfg.Session.Token()
	if token == "" {
		return nil
	}

	r.mu.Lock()
	version := r.version
	r.mu.Unlock()

	doc := r.cfg.Store.Snapshot()
	payload := Normalize(doc)
	location := ""
	if r.cfg.Location != nil {
		location = r.cfg.Location()
	}
	payload.TemplateID = ResolveTemplateID(payload.TemplateID, location)

	if id := r.ResumeID(); id != 0 {
		err := r.cfg.Target.UpdateResume(ctx, token, id, payload)
		if err == nil {
			r.markSynced(version)
			r.cfg.Logger.Debug("draft synced", slog.Uint64("resume_id", uint64(id)))
			return nil
		}
		if !IsStatus(err, http.StatusNotFound) {
			return r.fail(err)
		}
		r.cfg.Logger.Info("remote resume gone, recreating", slog.Uint64("resume_id", uint64(id)))
		r.setResumeID(0)
	}

	id, err := r.cfg.Target.CreateResume(ctx, token, payload)
	if err != nil {
		return r.fail(err)
	}
	r.setResumeID(id)
	r.markSynced(version)
	r.cfg.Logger.Info("draft created remotely", slog.Uint64("resume_id", uint64(id)))
	return nil
}

func (r *Replicator) markSynced(version uint64) {
	r.mu.Lock()
	r.synced = version
	r.mu.Unlock()
}

func (r *Replicator) fail(err error) error {
	r.cfg.Logger.Warn("draft sync failed", slog.Any("error", err))
	if r.cfg.Notifier != nil {
		r.cfg.Notifier.Notify("Could not save your resume to the server. Your changes are kept locally.")
	}
	if IsStatus(err, http.StatusUnauthorized) {
		r.cfg.Session.Clear()
		if r.cfg.OnUnauthorized != nil {
			r.cfg.OnUnauthorized()
		}
	}
	return err
}
