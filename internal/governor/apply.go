package governor

import (
	"fmt"

	"github.com/concordhq/concord/internal/command"
	"github.com/concordhq/concord/internal/subsumption"
	"github.com/concordhq/concord/internal/workspace"
)

// ActionResult reports the outcome of one command token. Failures are soft
// and safe to show back to the acting agent; the governor absorbs hard
// errors from below because free text is the least trusted input it has.
type ActionResult struct {
	Token  command.Token
	OK     bool
	Reason string
}

// Apply parses command tokens out of an agent's output and executes each in
// order. The actor's own alias and level gate every action; tokens naming
// unknown targets fail softly.
func (g *Governor) Apply(actor subsumption.Agent, text string) []ActionResult {
	actor.ID = workspace.NormalizeAlias(actor.ID)

	var results []ActionResult
	for _, tok := range command.Parse(text) {
		res := ActionResult{Token: tok}
		res.OK, res.Reason = g.applyToken(actor, tok)
		if !res.OK {
			g.log.Debug("command rejected",
				"actor", actor.ID, "kind", tok.Kind, "reason", res.Reason)
		}
		results = append(results, res)
	}
	return results
}

func (g *Governor) applyToken(actor subsumption.Agent, tok command.Token) (bool, string) {
	switch tok.Kind {
	case command.KindSuppress:
		targetLevel, ok := g.lookupLevel(tok.Target)
		if !ok {
			return false, fmt.Sprintf("unknown agent %s", tok.Target)
		}
		r := g.ctrl.Suppress(actor.ID, actor.Level,
			workspace.NormalizeAlias(tok.Target), targetLevel, tok.Reason, 0)
		return r.OK, r.Reason

	case command.KindRelease:
		r := g.ctrl.Release(actor.ID, actor.Level, workspace.NormalizeAlias(tok.Target))
		return r.OK, r.Reason

	case command.KindXPVote:
		r := g.ws.VoteXP(actor.ID, actor.Level, tok.Target, tok.Delta, tok.Reason)
		return r.OK, r.Reason

	case command.KindBroadcast:
		r := g.ws.Broadcast(actor.ID, actor.Level,
			workspace.Category(tok.Category), tok.Message, workspace.BroadcastOptions{})
		return r.OK, r.Reason

	case command.KindConflict:
		r := g.ws.FlagConflict(tok.BroadcastIDs, actor.ID, actor.Level, tok.Reason)
		return r.OK, r.Reason

	case command.KindArbitrate:
		_, err := g.protocol.SubmitResolution(
			tok.CaseID, actor.ID, actor.Level, tok.Resolution, tok.WinnerID, nil)
		if err != nil {
			return false, err.Error()
		}
		return true, ""
	}
	return false, fmt.Sprintf("unsupported command %s", tok.Kind)
}
