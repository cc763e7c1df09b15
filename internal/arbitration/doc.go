// Package arbitration implements the conflict-case state machine: opening
// cases against contradictory broadcasts, selecting an arbitrator by
// subsidiarity, recording resolutions, and escalating stale cases on a
// per-turn deadline sweep.
//
// A case is pending until resolved; escalation keeps it pending while
// raising the required arbitrator level, which never decreases. Resolved
// cases are archived and immutable.
//
// Error policy differs from the subsumption controller on purpose: passing
// an unknown case id or resolving below the required level is a hard error,
// because it means the caller skipped the published qualification checks.
// Agent-visible softness lives in GetArbitrator returning no candidate.
package arbitration
