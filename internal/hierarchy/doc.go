// Package hierarchy defines the authority model shared by every governance
// component: the ordered Layer bands derived from an agent's level, the
// privilege tiers that gate which commands an agent may issue, and the
// voting-power tiers that bound peer XP votes.
//
// Everything in this package is pure and stateless. Numeric policy (band
// boundaries, vote bounds, session caps) lives in a Policy value that callers
// construct once and inject into each component, so tests and alternative
// deployments can tighten or loosen the bands without touching package state.
package hierarchy
