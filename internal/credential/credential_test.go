package credential

import (
	"testing"

	"github.com/angewarren12/billeterie-maritime-sub002/internal/ticketcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_TicketCode(t *testing.T) {
	signer := ticketcode.NewSigner("secret")
	code := signer.EncodeV1(42, "REF123", 7)

	cred := Classify(code)
	assert.Equal(t, KindTicket, cred.Kind)
	require.NotNil(t, cred.Ticket)
	assert.Equal(t, int64(42), cred.Ticket.TicketID)
}

func TestClassify_BadgeUID(t *testing.T) {
	cred := Classify("  04A1B2C3D4  ")
	assert.Equal(t, KindBadge, cred.Kind)
	assert.Equal(t, "04A1B2C3D4", cred.BadgeUID)
	assert.Nil(t, cred.Ticket)
}

func TestClassify_Empty(t *testing.T) {
	cred := Classify("   ")
	assert.Equal(t, KindUnrecognized, cred.Kind)
	assert.NoError(t, cred.ParseErr)
}

// A pipe-delimited string is always a ticket-code attempt: malformed ones
// must not fall back to a badge lookup.
func TestClassify_MalformedTicketCode(t *testing.T) {
	cred := Classify("V1|42|REF123")
	assert.Equal(t, KindUnrecognized, cred.Kind)
	assert.ErrorIs(t, cred.ParseErr, ticketcode.ErrInvalidFormat)

	cred = Classify("V9|42|REF123|7|abcdef01")
	assert.Equal(t, KindUnrecognized, cred.Kind)
	assert.ErrorIs(t, cred.ParseErr, ticketcode.ErrUnsupportedVersion)
}
