package ticketcode

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func TestParse_V1(t *testing.T) {
	signer := NewSigner(testSecret)
	sig := signer.Sign(42, "REF123")

	parsed, err := Parse(fmt.Sprintf("V1|42|REF123|7|%s", sig))
	require.NoError(t, err)

	assert.Equal(t, VersionV1, parsed.Version)
	assert.Equal(t, int64(42), parsed.TicketID)
	assert.Equal(t, "REF123", parsed.BookingReference)
	assert.Equal(t, int64(7), parsed.TripID)
	assert.Nil(t, parsed.ReturnTripID)
	assert.Equal(t, sig, parsed.Signature)
}

func TestParse_V2WithReturnTrip(t *testing.T) {
	signer := NewSigner(testSecret)
	sig := signer.Sign(42, "REF123")

	parsed, err := Parse(fmt.Sprintf("V2|42|REF123|7|9|%s", sig))
	require.NoError(t, err)

	assert.Equal(t, VersionV2, parsed.Version)
	require.NotNil(t, parsed.ReturnTripID)
	assert.Equal(t, int64(9), *parsed.ReturnTripID)
}

func TestParse_V2EmptyReturnTrip(t *testing.T) {
	signer := NewSigner(testSecret)
	sig := signer.Sign(42, "REF123")

	parsed, err := Parse(fmt.Sprintf("V2|42|REF123|7||%s", sig))
	require.NoError(t, err)
	assert.Nil(t, parsed.ReturnTripID)
}

func TestParse_WrongFieldCount(t *testing.T) {
	cases := []string{
		"V1|42|REF123|7",
		"V1|42|REF123|7|9|abcdef01",
		"V2|42|REF123|7|abcdef01",
		"V2|42|REF123|7|9|extra|abcdef01",
		"",
		"just-a-uid",
	}
	for _, raw := range cases {
		_, err := Parse(raw)
		assert.ErrorIs(t, err, ErrInvalidFormat, "input %q", raw)
	}
}

func TestParse_UnknownVersion(t *testing.T) {
	_, err := Parse("V3|42|REF123|7|abcdef01")
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestParse_NonNumericIDs(t *testing.T) {
	_, err := Parse("V1|abc|REF123|7|abcdef01")
	assert.ErrorIs(t, err, ErrInvalidFormat)

	_, err = Parse("V1|42|REF123|xyz|abcdef01")
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestVerify_ValidSignature(t *testing.T) {
	signer := NewSigner(testSecret)
	code := signer.EncodeV1(42, "REF123", 7)

	parsed, err := Parse(code)
	require.NoError(t, err)
	assert.NoError(t, signer.Verify(parsed))
}

// Flipping any character of the signature suffix must always be rejected.
func TestVerify_TamperedSignature(t *testing.T) {
	signer := NewSigner(testSecret)
	sig := signer.Sign(42, "REF123")

	for i := 0; i < len(sig); i++ {
		flipped := sig[i] + 1
		if flipped > 'f' || (flipped > '9' && flipped < 'a') {
			flipped = '0'
		}
		tampered := sig[:i] + string(flipped) + sig[i+1:]
		require.NotEqual(t, sig, tampered)

		parsed, err := Parse(fmt.Sprintf("V1|42|REF123|7|%s", tampered))
		require.NoError(t, err)
		assert.ErrorIs(t, signer.Verify(parsed), ErrInvalidSignature, "position %d", i)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	code := NewSigner("issuing-secret").EncodeV1(42, "REF123", 7)

	parsed, err := Parse(code)
	require.NoError(t, err)
	assert.ErrorIs(t, NewSigner("other-secret").Verify(parsed), ErrInvalidSignature)
}

func TestVerify_UppercaseSignatureAccepted(t *testing.T) {
	signer := NewSigner(testSecret)
	sig := strings.ToUpper(signer.Sign(42, "REF123"))

	parsed, err := Parse(fmt.Sprintf("V1|42|REF123|7|%s", sig))
	require.NoError(t, err)
	assert.NoError(t, signer.Verify(parsed))
}

func TestEncode_RoundTrip(t *testing.T) {
	signer := NewSigner(testSecret)
	ret := int64(9)

	parsed, err := Parse(signer.Encode(42, "REF123", 7, &ret))
	require.NoError(t, err)
	require.NoError(t, signer.Verify(parsed))
	assert.Equal(t, int64(42), parsed.TicketID)
	require.NotNil(t, parsed.ReturnTripID)
	assert.Equal(t, ret, *parsed.ReturnTripID)
}

func TestSign_Deterministic(t *testing.T) {
	signer := NewSigner(testSecret)
	assert.Equal(t, signer.Sign(42, "REF123"), signer.Sign(42, "REF123"))
	assert.NotEqual(t, signer.Sign(42, "REF123"), signer.Sign(43, "REF123"))
	assert.Len(t, signer.Sign(42, "REF123"), 8)
}
