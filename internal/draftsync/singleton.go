package draftsync

import "sync"

var (
	defaultMu         sync.Mutex
	defaultReplicator *Replicator
)

// Init starts the process-wide replicator. It is a no-op, returning the
// existing instance, when one is already running.
func Init(cfg ReplicatorConfig) *Replicator {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultReplicator != nil {
		return defaultReplicator
	}
	r := NewReplicator(cfg)
	r.Start()
	defaultReplicator = r
	return r
}

// Current returns the running replicator or nil.
func Current() *Replicator {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	return defaultReplicator
}

// Teardown stops the process-wide replicator so Init can run again.
func Teardown() {
	defaultMu.Lock()
	r := defaultReplicator
	defaultReplicator = nil
	defaultMu.Unlock()

	if r != nil {
		r.Stop()
	}
}
