package ticketcode

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Two wire formats coexist on printed tickets:
//
//	V1|<ticket_id>|<booking_reference>|<trip_id>|<sig8>
//	V2|<ticket_id>|<booking_reference>|<trip_id>|<return_trip_id_or_empty>|<sig8>
//
// sig8 is the first 8 hex characters of HMAC-SHA256(secret, ticket_id ++
// booking_reference). Field count selects the format.
const (
	VersionV1 = "V1"
	VersionV2 = "V2"

	sigHexLen = 8
)

var (
	ErrInvalidFormat      = errors.New("invalid ticket code format")
	ErrUnsupportedVersion = errors.New("unsupported ticket code version")
	ErrInvalidSignature   = errors.New("invalid ticket code signature")
)

// Parsed is a syntactically valid ticket code. Signature validity is a
// separate step (Signer.Verify).
type Parsed struct {
	Version          string
	TicketID         int64
	BookingReference string
	TripID           int64
	ReturnTripID     *int64
	Signature        string
}

// Parse splits and validates a raw ticket code string. It performs no I/O and
// does not check the signature.
func Parse(raw string) (*Parsed, error) {
	fields := strings.Split(strings.TrimSpace(raw), "|")

	switch fields[0] {
	case VersionV1:
		if len(fields) != 5 {
			return nil, ErrInvalidFormat
		}
	case VersionV2:
		if len(fields) != 6 {
			return nil, ErrInvalidFormat
		}
	default:
		if len(fields) < 2 {
			return nil, ErrInvalidFormat
		}
		return nil, ErrUnsupportedVersion
	}

	ticketID, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return nil, ErrInvalidFormat
	}
	tripID, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		return nil, ErrInvalidFormat
	}

	p := &Parsed{
		Version:          fields[0],
		TicketID:         ticketID,
		BookingReference: fields[2],
		TripID:           tripID,
	}

	if fields[0] == VersionV2 {
		if ret := fields[4]; ret != "" {
			retID, err := strconv.ParseInt(ret, 10, 64)
			if err != nil {
				return nil, ErrInvalidFormat
			}
			p.ReturnTripID = &retID
		}
		p.Signature = fields[5]
	} else {
		p.Signature = fields[4]
	}

	if len(p.Signature) != sigHexLen {
		return nil, ErrInvalidFormat
	}

	return p, nil
}

// Signer computes and checks the truncated HMAC on ticket codes. The secret
// is injected at construction, never read from a global.
type Signer struct {
	secret []byte
}

func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// Sign returns the 8-hex-char truncated signature for a ticket id and
// booking reference.
func (s *Signer) Sign(ticketID int64, bookingReference string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(strconv.FormatInt(ticketID, 10) + bookingReference))
	return hex.EncodeToString(mac.Sum(nil))[:sigHexLen]
}

// Verify checks the signature of a parsed code against a freshly computed
// one. Comparison goes through hmac.Equal.
func (s *Signer) Verify(p *Parsed) error {
	want := s.Sign(p.TicketID, p.BookingReference)
	if !hmac.Equal([]byte(want), []byte(strings.ToLower(p.Signature))) {
		return ErrInvalidSignature
	}
	return nil
}

// Encode produces the wire string for a ticket. Tickets with a linked return
// trip are encoded as V2; V2 is also used for one-way tickets issued after
// the format change (returnTripID nil encodes as an empty field).
func (s *Signer) Encode(ticketID int64, bookingReference string, tripID int64, returnTripID *int64) string {
	sig := s.Sign(ticketID, bookingReference)
	ret := ""
	if returnTripID != nil {
		ret = strconv.FormatInt(*returnTripID, 10)
	}
	return fmt.Sprintf("%s|%d|%s|%d|%s|%s", VersionV2, ticketID, bookingReference, tripID, ret, sig)
}

// EncodeV1 produces the legacy 5-field wire string.
func (s *Signer) EncodeV1(ticketID int64, bookingReference string, tripID int64) string {
	sig := s.Sign(ticketID, bookingReference)
	return fmt.Sprintf("%s|%d|%s|%d|%s", VersionV1, ticketID, bookingReference, tripID, sig)
}
