// Package workspace implements the global workspace: the shared broadcast
// bus every agent in a session publishes findings to, the rate-limited
// peer-XP-voting ledger, and the contradiction detector that feeds the
// arbitration protocol.
//
// The workspace owns a single JSON document persisted to the session
// directory. Mutating operations update the in-memory document and then
// mirror the whole document to disk under an advisory lockfile; a failed
// write degrades that operation to in-memory only with a logged warning,
// never rolling back the governance decision already made. One process per
// session is expected to own the workspace ("single writer"); other
// processes observe changes through the fsnotify Watcher.
//
// Validation failures triggered by agent input (unknown category, privileged
// category below minimum level, self-votes, over-limit votes) are returned
// as structured results safe to show back to the agent, never as Go errors.
package workspace
