package workspace

import (
	"fmt"
	"sort"
	"strings"

	"github.com/concordhq/concord/internal/event"
)

// TermPair is one antonym pair in the contradiction lexicon.
type TermPair struct {
	A string `mapstructure:"a"`
	B string `mapstructure:"b"`
}

// DefaultLexicon returns the standard antonym pairs scanned for by
// DetectConflicts.
func DefaultLexicon() []TermPair {
	return []TermPair{
		{A: "safe", B: "unsafe"},
		{A: "approve", B: "reject"},
		{A: "works", B: "broken"},
		{A: "correct", B: "incorrect"},
		{A: "keep", B: "remove"},
		{A: "pass", B: "fail"},
	}
}

// Conflict describes two contradictory broadcasts.
type Conflict struct {
	BroadcastIDs []string // ids of the contradicting broadcasts
	Senders      []string // distinct senders involved
	Term         string   // "a/b" lexicon pair, empty for manual flags
	Topic        string   // shared related file, or shared token summary
	Reason       string   // set for manual flags
}

// DefaultConflictWindow is how many recent broadcasts DetectConflicts scans
// when the caller passes no window.
const DefaultConflictWindow = 20

// DetectConflicts scans the most recent windowSize broadcasts for lexicon
// antonyms appearing in same-topic broadcasts from different senders.
// Broadcasts share a topic when they reference the same related file, or
// when their messages share at least two significant tokens. Pure query: no
// state changes, no events.
func (w *Workspace) DetectConflicts(windowSize int) []Conflict {
	if windowSize <= 0 {
		windowSize = DefaultConflictWindow
	}

	w.mu.Lock()
	recent := w.doc.Broadcasts
	if len(recent) > windowSize {
		recent = recent[len(recent)-windowSize:]
	}
	window := append([]Broadcast(nil), recent...)
	w.mu.Unlock()

	tokens := make([]map[string]bool, len(window))
	for i, b := range window {
		tokens[i] = tokenize(b.Message)
	}

	var conflicts []Conflict
	for i := 0; i < len(window); i++ {
		for j := i + 1; j < len(window); j++ {
			a, b := window[i], window[j]
			if a.Sender == b.Sender {
				continue
			}
			topic, shared := sameTopic(a, b, tokens[i], tokens[j])
			if !shared {
				continue
			}
			for _, pair := range w.lexicon {
				if (tokens[i][pair.A] && tokens[j][pair.B]) || (tokens[i][pair.B] && tokens[j][pair.A]) {
					conflicts = append(conflicts, Conflict{
						BroadcastIDs: []string{a.ID, b.ID},
						Senders:      []string{a.Sender, b.Sender},
						Term:         pair.A + "/" + pair.B,
						Topic:        topic,
					})
					break
				}
			}
		}
	}
	return conflicts
}

// ConflictResult reports the outcome of FlagConflict.
type ConflictResult struct {
	OK       bool
	Reason   string
	Conflict *Conflict
}

// FlagConflict records a manually reported conflict between existing
// broadcasts and emits a CONFLICT broadcast naming them. Unknown ids and
// degenerate flags are soft failures.
func (w *Workspace) FlagConflict(broadcastIDs []string, flaggedBy string, flaggerLevel int, reason string) ConflictResult {
	flaggedBy = NormalizeAlias(flaggedBy)
	if len(broadcastIDs) < 2 {
		return ConflictResult{Reason: "a conflict needs at least two broadcast ids"}
	}

	w.mu.Lock()
	var senders []string
	for _, id := range broadcastIDs {
		idx := w.indexOfLocked(id)
		if idx < 0 {
			w.mu.Unlock()
			return ConflictResult{Reason: fmt.Sprintf("unknown broadcast %q", id)}
		}
		senders = append(senders, w.doc.Broadcasts[idx].Sender)
	}
	w.mu.Unlock()

	conflict := Conflict{
		BroadcastIDs: append([]string(nil), broadcastIDs...),
		Senders:      senders,
		Reason:       reason,
	}

	message := fmt.Sprintf("conflict flagged between %s: %s",
		strings.Join(broadcastIDs, ", "), reason)
	res := w.Broadcast(flaggedBy, flaggerLevel, CategoryConflict, message, BroadcastOptions{
		Metadata: map[string]any{"conflicting_ids": broadcastIDs},
	})
	if !res.OK {
		return ConflictResult{Reason: res.Reason}
	}

	w.mu.Lock()
	w.commitLocked(func(doc *Document) {
		doc.Metadata.TotalConflicts++
	})
	w.mu.Unlock()

	if w.bus != nil {
		w.bus.Publish(event.NewConflictDetectedEvent(broadcastIDs, "", flaggedBy))
	}
	return ConflictResult{OK: true, Conflict: &conflict}
}

// sameTopic reports whether two broadcasts discuss the same thing and names
// the topic. Matching related files win; otherwise two shared significant
// tokens suffice.
func sameTopic(a, b Broadcast, ta, tb map[string]bool) (string, bool) {
	if a.RelatedFile != "" && a.RelatedFile == b.RelatedFile {
		return a.RelatedFile, true
	}

	var shared []string
	for tok := range ta {
		if tb[tok] {
			shared = append(shared, tok)
		}
	}
	if len(shared) >= 2 {
		// Map iteration order would make the topic label flap between runs.
		sort.Strings(shared)
		return strings.Join(shared[:2], "+"), true
	}
	return "", false
}

// stopwords are ignored when tokenizing messages for topic matching. The
// lexicon terms themselves stay significant.
var stopwords = map[string]bool{
	"the": true, "this": true, "that": true, "with": true, "from": true,
	"have": true, "should": true, "would": true, "could": true, "been": true,
	"were": true, "will": true, "there": true, "their": true, "about": true,
	"into": true, "very": true, "when": true, "which": true, "after": true,
}

// tokenize lowercases a message and splits it into significant tokens.
func tokenize(message string) map[string]bool {
	out := make(map[string]bool)
	words := strings.FieldsFunc(strings.ToLower(message), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9') && r != '_' && r != '.' && r != '/'
	})
	for _, word := range words {
		if len(word) < 3 || stopwords[word] {
			continue
		}
		out[word] = true
	}
	return out
}
