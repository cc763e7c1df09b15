package workspace

import (
	"fmt"
	"sync"
	"time"

	"github.com/gobwas/glob"
	"github.com/google/uuid"

	"github.com/concordhq/concord/internal/errors"
	"github.com/concordhq/concord/internal/event"
	"github.com/concordhq/concord/internal/hierarchy"
	"github.com/concordhq/concord/internal/logging"
)

const (
	// DefaultCapacity is the broadcast ring-buffer size. Older entries are
	// evicted, but Metadata.TotalBroadcasts keeps counting.
	DefaultCapacity = 200

	// DefaultQueryLimit caps GetBroadcasts results when the caller passes
	// no limit.
	DefaultQueryLimit = 50
)

// Workspace is the shared broadcast bus and vote ledger for one session.
// One process owns the Workspace and is its single writer; all methods are
// safe for concurrent use within that process.
type Workspace struct {
	policy            hierarchy.Policy
	capacity          int
	minDirectiveLevel int
	lexicon           []TermPair

	store *Store // nil = in-memory only
	bus   *event.Bus
	log   *logging.Logger

	mu  sync.Mutex
	doc Document
}

// Option configures a Workspace.
type Option func(*Workspace)

// WithBus attaches an event bus; accepted broadcasts, staged votes, and
// detected conflicts are published on it.
func WithBus(bus *event.Bus) Option {
	return func(w *Workspace) { w.bus = bus }
}

// WithLogger attaches a logger. Defaults to a nop logger.
func WithLogger(log *logging.Logger) Option {
	return func(w *Workspace) { w.log = log }
}

// WithCapacity overrides the broadcast ring-buffer capacity.
func WithCapacity(n int) Option {
	return func(w *Workspace) {
		if n > 0 {
			w.capacity = n
		}
	}
}

// WithLexicon overrides the contradiction lexicon used by DetectConflicts.
func WithLexicon(pairs []TermPair) Option {
	return func(w *Workspace) { w.lexicon = pairs }
}

// WithMinDirectiveLevel overrides the minimum sender level for DIRECTIVE
// broadcasts. Defaults to the Tactical band boundary.
func WithMinDirectiveLevel(level int) Option {
	return func(w *Workspace) { w.minDirectiveLevel = level }
}

// WithStore overrides the persistence store, mainly for tests that need
// custom lock settings.
func WithStore(store *Store) Option {
	return func(w *Workspace) { w.store = store }
}

// New creates a Workspace. If sessionDir is non-empty the workspace persists
// to {sessionDir}/workspace.json and loads any existing document; otherwise
// it is memory-only. Loading a corrupted document returns an error rather
// than silently discarding session history.
func New(sessionDir string, policy hierarchy.Policy, opts ...Option) (*Workspace, error) {
	w := &Workspace{
		policy:            policy,
		capacity:          DefaultCapacity,
		minDirectiveLevel: policy.Bounds.Tactical,
		lexicon:           DefaultLexicon(),
		log:               logging.NopLogger(),
		doc:               NewDocument(),
	}
	if sessionDir != "" {
		w.store = NewStore(sessionDir)
	}
	for _, opt := range opts {
		opt(w)
	}

	if w.store != nil {
		doc, err := w.store.Load()
		if err != nil {
			return nil, err
		}
		w.doc = doc
	}
	return w, nil
}

// Broadcast validates and appends a broadcast to the log. Validation
// failures (unknown category, DIRECTIVE below the minimum level, blank
// sender or message) come back as a soft result, never an error.
func (w *Workspace) Broadcast(sender string, senderLevel int, category Category, message string, opts BroadcastOptions) BroadcastResult {
	sender = NormalizeAlias(sender)
	if sender == "" {
		return BroadcastResult{Reason: "sender alias is required"}
	}
	if message == "" {
		return BroadcastResult{Reason: "message is required"}
	}
	if !ValidCategory(category) {
		return BroadcastResult{Reason: fmt.Sprintf("unknown category %q", category)}
	}
	if category == CategoryDirective && senderLevel < w.minDirectiveLevel {
		return BroadcastResult{Reason: fmt.Sprintf(
			"DIRECTIVE requires level %d or above, sender is level %d", w.minDirectiveLevel, senderLevel)}
	}

	entry := Broadcast{
		ID:          "bc-" + uuid.NewString(),
		Sender:      sender,
		SenderLevel: senderLevel,
		Category:    category,
		Message:     message,
		Metadata:    opts.Metadata,
		RelatedFile: opts.RelatedFile,
		Tags:        opts.Tags,
		Timestamp:   time.Now(),
		RequiresAck: opts.RequiresAck,
	}

	w.mu.Lock()
	w.commitLocked(func(doc *Document) {
		doc.Broadcasts = append(doc.Broadcasts, entry)
		if len(doc.Broadcasts) > w.capacity {
			doc.Broadcasts = doc.Broadcasts[len(doc.Broadcasts)-w.capacity:]
		}
		doc.Metadata.TotalBroadcasts++
	})
	w.mu.Unlock()

	if w.bus != nil {
		w.bus.Publish(event.NewBroadcastPostedEvent(entry.ID, sender, string(category), message))
	}
	w.log.Debug("broadcast accepted", "id", entry.ID, "sender", sender, "category", category)

	return BroadcastResult{OK: true, Entry: &entry}
}

// BroadcastOptions carries the optional broadcast fields.
type BroadcastOptions struct {
	Metadata    map[string]any
	RelatedFile string
	Tags        []string
	RequiresAck bool
}

// Acknowledge appends an ack record to a requires-ack broadcast. A second
// ack by the same agent fails, making the operation idempotent by
// construction.
func (w *Workspace) Acknowledge(broadcastID, acker, comment string) AckResult {
	acker = NormalizeAlias(acker)
	if acker == "" {
		return AckResult{Reason: "acker alias is required"}
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	idx := w.indexOfLocked(broadcastID)
	if idx < 0 {
		return AckResult{Reason: fmt.Sprintf("unknown broadcast %q", broadcastID)}
	}
	b := &w.doc.Broadcasts[idx]
	if !b.RequiresAck {
		return AckResult{Reason: "broadcast does not require acknowledgment"}
	}
	if b.AckedBy(acker) {
		return AckResult{Reason: fmt.Sprintf("%s already acknowledged %s", acker, broadcastID)}
	}

	ack := Acknowledgment{
		Agent:   acker,
		Comment: comment,
		Time:    time.Now(),
	}
	w.commitLocked(func(doc *Document) {
		for i := range doc.Broadcasts {
			if doc.Broadcasts[i].ID != broadcastID {
				continue
			}
			// Re-checked against the merged document: another process may
			// have recorded the same ack since the precondition ran.
			if !doc.Broadcasts[i].AckedBy(acker) {
				doc.Broadcasts[i].Acknowledgments = append(doc.Broadcasts[i].Acknowledgments, ack)
			}
			return
		}
	})

	return AckResult{OK: true}
}

// Filter selects broadcasts for GetBroadcasts. Zero values match everything.
type Filter struct {
	Category        Category
	Sender          string
	Since           time.Time
	RequiresAckOnly bool
	RelatedFileGlob string
	Limit           int
}

// GetBroadcasts returns broadcasts matching the filter, newest first, capped
// at the filter limit (DefaultQueryLimit when unset). An unparsable
// related-file glob is a caller error.
func (w *Workspace) GetBroadcasts(f Filter) ([]Broadcast, error) {
	var matcher glob.Glob
	if f.RelatedFileGlob != "" {
		var err error
		matcher, err = glob.Compile(f.RelatedFileGlob)
		if err != nil {
			return nil, errors.NewValidationError("related_file_glob", err.Error())
		}
	}

	sender := NormalizeAlias(f.Sender)
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultQueryLimit
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	var out []Broadcast
	for i := len(w.doc.Broadcasts) - 1; i >= 0 && len(out) < limit; i-- {
		b := w.doc.Broadcasts[i]
		if f.Category != "" && b.Category != f.Category {
			continue
		}
		if sender != "" && b.Sender != sender {
			continue
		}
		if !f.Since.IsZero() && !b.Timestamp.After(f.Since) {
			continue
		}
		if f.RequiresAckOnly && !b.RequiresAck {
			continue
		}
		if matcher != nil && !matcher.Match(b.RelatedFile) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

// GetPendingAcks returns broadcasts that require acknowledgment, were not
// sent by the given agent, and the agent has not yet acknowledged.
func (w *Workspace) GetPendingAcks(agent string) []Broadcast {
	agent = NormalizeAlias(agent)

	w.mu.Lock()
	defer w.mu.Unlock()

	var out []Broadcast
	for i := len(w.doc.Broadcasts) - 1; i >= 0; i-- {
		b := w.doc.Broadcasts[i]
		if !b.RequiresAck || b.Sender == agent || b.AckedBy(agent) {
			continue
		}
		out = append(out, b)
	}
	return out
}

// Get returns a broadcast by id.
func (w *Workspace) Get(broadcastID string) (Broadcast, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	idx := w.indexOfLocked(broadcastID)
	if idx < 0 {
		return Broadcast{}, false
	}
	return w.doc.Broadcasts[idx], true
}

// TotalBroadcasts returns the lifetime broadcast count, including entries
// evicted from the ring buffer.
func (w *Workspace) TotalBroadcasts() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.doc.Metadata.TotalBroadcasts
}

// Snapshot returns a deep-enough copy of the current document for read-only
// inspection (status displays, tests).
func (w *Workspace) Snapshot() Document {
	w.mu.Lock()
	defer w.mu.Unlock()

	doc := w.doc
	doc.Broadcasts = append([]Broadcast(nil), w.doc.Broadcasts...)
	doc.XPVotes = append([]Vote(nil), w.doc.XPVotes...)
	doc.VoteLimits = make(map[string]VoteLimit, len(w.doc.VoteLimits))
	for alias, limit := range w.doc.VoteLimits {
		doc.VoteLimits[alias] = limit
	}
	return doc
}

// indexOfLocked returns the position of a broadcast id, or -1.
func (w *Workspace) indexOfLocked(id string) int {
	for i := range w.doc.Broadcasts {
		if w.doc.Broadcasts[i].ID == id {
			return i
		}
	}
	return -1
}

// commitLocked applies a mutation to the authoritative document; w.mu must
// be held. With a store attached the whole read-modify-write runs inside one
// advisory-lock acquisition: the persisted document is re-loaded, fn applies
// on top of it, and the merged result replaces the in-memory copy, so
// concurrent writer processes never lose each other's updates. Storage
// failures degrade the commit to in-memory only with a warning; the
// governance decision is never rolled back for a storage problem.
func (w *Workspace) commitLocked(fn func(*Document)) {
	if w.store != nil {
		merged, err := w.store.Update(func(doc *Document) error {
			fn(doc)
			return nil
		})
		if err == nil {
			w.doc = merged
			return
		}
		w.log.Warn("workspace persist failed, continuing in memory", "error", err)
	}
	fn(&w.doc)
}
