// Package command extracts governance command tokens from agent free text.
// Tokens use a fixed bracketed grammar: `[[PREFIX:payload]]` with a
// case-sensitive prefix and a payload terminated by the first `]]`. A payload
// cannot itself contain `]]`. Malformed tokens are skipped, never fatal; the
// parser's job is extraction, not authorization.
package command

import (
	"strconv"
	"strings"
)

// Kind identifies a command token's grammar form.
type Kind string

const (
	KindSuppress  Kind = "SUPPRESS"
	KindRelease   Kind = "RELEASE"
	KindXPVote    Kind = "XP_VOTE"
	KindBroadcast Kind = "BROADCAST"
	KindConflict  Kind = "CONFLICT"
	KindArbitrate Kind = "ARBITRATE"
)

// Token is one parsed command. Only the fields for its Kind are populated:
//
//	SUPPRESS   Target, Reason
//	RELEASE    Target
//	XP_VOTE    Target, Delta, Reason
//	BROADCAST  Category, Message
//	CONFLICT   BroadcastIDs, Reason
//	ARBITRATE  CaseID, Resolution, WinnerID
type Token struct {
	Kind Kind
	Raw  string

	Target       string
	Reason       string
	Delta        int
	Category     string
	Message      string
	BroadcastIDs []string
	CaseID       string
	Resolution   string
	WinnerID     string
}

const (
	openMark  = "[["
	closeMark = "]]"
)

// Parse scans text for command tokens and returns them in order of
// appearance. Tokens with an unknown prefix, missing fields, or an
// unparseable vote delta are dropped; scanning continues after the token's
// closing `]]`.
func Parse(text string) []Token {
	var tokens []Token
	for {
		start := strings.Index(text, openMark)
		if start < 0 {
			return tokens
		}
		rest := text[start+len(openMark):]
		end := strings.Index(rest, closeMark)
		if end < 0 {
			return tokens
		}

		body := rest[:end]
		raw := text[start : start+len(openMark)+end+len(closeMark)]
		if tok, ok := parseBody(body); ok {
			tok.Raw = raw
			tokens = append(tokens, tok)
		}
		text = rest[end+len(closeMark):]
	}
}

func parseBody(body string) (Token, bool) {
	prefix, payload, found := strings.Cut(body, ":")
	if !found {
		return Token{}, false
	}

	switch Kind(prefix) {
	case KindSuppress:
		target, reason, ok := strings.Cut(payload, ":")
		if !ok || !validAlias(target) || reason == "" {
			return Token{}, false
		}
		return Token{Kind: KindSuppress, Target: target, Reason: reason}, true

	case KindRelease:
		if !validAlias(payload) || strings.Contains(payload, ":") {
			return Token{}, false
		}
		return Token{Kind: KindRelease, Target: payload}, true

	case KindXPVote:
		target, rest, ok := strings.Cut(payload, ":")
		if !ok || !validAlias(target) {
			return Token{}, false
		}
		deltaText, reason, ok := strings.Cut(rest, ":")
		if !ok || reason == "" {
			return Token{}, false
		}
		delta, err := strconv.Atoi(deltaText)
		if err != nil || delta == 0 {
			return Token{}, false
		}
		return Token{Kind: KindXPVote, Target: target, Delta: delta, Reason: reason}, true

	case KindBroadcast:
		category, message, ok := strings.Cut(payload, ":")
		if !ok || category == "" || message == "" {
			return Token{}, false
		}
		return Token{Kind: KindBroadcast, Category: category, Message: message}, true

	case KindConflict:
		idList, reason, ok := strings.Cut(payload, ":")
		if !ok || reason == "" {
			return Token{}, false
		}
		var ids []string
		for _, id := range strings.Split(idList, ",") {
			id = strings.TrimSpace(id)
			if id == "" {
				return Token{}, false
			}
			ids = append(ids, id)
		}
		if len(ids) < 2 {
			return Token{}, false
		}
		return Token{Kind: KindConflict, BroadcastIDs: ids, Reason: reason}, true

	case KindArbitrate:
		// The winner id is the final field; the resolution text in between
		// may itself contain colons.
		caseID, rest, ok := strings.Cut(payload, ":")
		if !ok || caseID == "" {
			return Token{}, false
		}
		cut := strings.LastIndex(rest, ":")
		if cut < 0 {
			return Token{}, false
		}
		resolution, winner := rest[:cut], rest[cut+1:]
		if resolution == "" || winner == "" {
			return Token{}, false
		}
		return Token{Kind: KindArbitrate, CaseID: caseID, Resolution: resolution, WinnerID: winner}, true
	}
	return Token{}, false
}

func validAlias(alias string) bool {
	return len(alias) > 1 && strings.HasPrefix(alias, "@")
}
