package workspace

// SystemBroadcast posts a broadcast on behalf of the governance machinery
// (suppression notices, arbitration lifecycle messages). Side-channel by
// design: validation failures are logged and swallowed so they can never
// fail the primary operation that triggered the notice.
func (w *Workspace) SystemBroadcast(sender string, senderLevel int, category Category, message string, metadata map[string]any) {
	res := w.Broadcast(sender, senderLevel, category, message, BroadcastOptions{Metadata: metadata})
	if !res.OK {
		w.log.Warn("system broadcast dropped", "category", category, "reason", res.Reason)
	}
}

// GovernanceNotice implements the subsumption controller's notifier: notices
// land in the log as STATUS broadcasts.
func (w *Workspace) GovernanceNotice(sender string, senderLevel int, message string) {
	w.SystemBroadcast(sender, senderLevel, CategoryStatus, message, nil)
}
