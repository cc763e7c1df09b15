// Package subsumption implements the layered authority controller: which
// agent may silence which, for how many turns, and in what order the
// surviving agents act.
//
// Authority is strictly layer-based. An agent may suppress another only when
// its layer is strictly higher; level differences inside one layer never
// grant authority. Suppressions decay by one on every turn tick and are
// removed exactly when they reach zero.
//
// Permission failures here are soft results shown back to the requesting
// agent, not errors. This is deliberately different from the arbitration
// protocol, where an under-level arbitrator is a hard error; do not
// normalize the two.
package subsumption
