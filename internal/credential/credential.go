package credential

import (
	"strings"

	"github.com/angewarren12/billeterie-maritime-sub002/internal/ticketcode"
)

type Kind int

const (
	KindUnrecognized Kind = iota
	KindTicket
	KindBadge
)

// Credential is the tagged union a raw scanned string resolves to: a parsed
// ticket code, a badge UID, or unrecognized input. Classification happens
// once at the boundary so the validation paths never re-sniff formats.
type Credential struct {
	Kind     Kind
	Ticket   *ticketcode.Parsed
	BadgeUID string

	// ParseErr holds the ticket-code parse failure when a pipe-delimited
	// string turned out malformed; nil for badge and ticket kinds.
	ParseErr error
}

// Classify resolves a raw scanned string. Anything containing the field
// delimiter is treated as a ticket code attempt; everything else non-empty is
// an RFID UID looked up verbatim after trimming.
func Classify(raw string) Credential {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Credential{Kind: KindUnrecognized}
	}

	if strings.Contains(trimmed, "|") {
		parsed, err := ticketcode.Parse(trimmed)
		if err != nil {
			return Credential{Kind: KindUnrecognized, ParseErr: err}
		}
		return Credential{Kind: KindTicket, Ticket: parsed}
	}

	return Credential{Kind: KindBadge, BadgeUID: trimmed}
}
