package notify

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPickupEmail_EmbedsQRCode(t *testing.T) {
	mail, err := BuildPickupEmail("donor@example.com", PickupEmailData{
		Code:    "4821",
		NGOName: "Feed India",
		Items:   []string{"Rice (5kg)"},
		Address: "12 MG Road",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"donor@example.com"}, mail.To)
	assert.Contains(t, mail.HTMLBody, "4821")
	assert.Contains(t, mail.HTMLBody, "cid:pickup-code.png")
	assert.Contains(t, mail.TextBody, "Feed India")
	require.Len(t, mail.Inline, 1)
	assert.Equal(t, "image/png", mail.Inline[0].ContentType)
	assert.True(t, bytes.HasPrefix(mail.Inline[0].Data, []byte("\x89PNG")))
}

func TestBuildContactEmail_StripsMarkup(t *testing.T) {
	mail := BuildContactEmail("team@example.com", ContactEmailData{
		Name:    "Asha",
		Email:   "asha@example.com",
		Message: `Hello <script>alert("x")</script><b>team</b>`,
	})

	assert.NotContains(t, mail.HTMLBody, "<script>")
	assert.NotContains(t, mail.HTMLBody, "<b>")
	assert.Contains(t, mail.TextBody, "team")
	assert.Contains(t, mail.Subject, "Asha")
}

func TestBuildVerificationEmail(t *testing.T) {
	mail := BuildVerificationEmail("new@example.com", VerificationEmailData{Code: "123456", ExpiresIn: "10 minutes"})
	assert.Contains(t, mail.HTMLBody, "123456")
	assert.Contains(t, mail.TextBody, "10 minutes")
	assert.Empty(t, mail.Inline)
}
