package notify

import (
	"bytes"
	"fmt"
	"html"
	"html/template"

	"github.com/microcosm-cc/bluemonday"
	"github.com/skip2/go-qrcode"
)

const (
	siteName     = "BhojanSetu"
	pickupQRName = "pickup-code.png"
)

type VerificationEmailData struct {
	Code      string
	ExpiresIn string
}

func BuildVerificationEmail(to string, data VerificationEmailData) Mail {
	return Mail{
		To:       []string{to},
		Subject:  siteName + " Email Verification OTP",
		TextBody: fmt.Sprintf("Your verification OTP for %s is: %s\n\nThis code is valid for %s.\n", siteName, data.Code, data.ExpiresIn),
		HTMLBody: render(verificationTmpl, data),
	}
}

type PickupEmailData struct {
	Code     string
	NGOName  string
	Items    []string
	Address  string
	QRInline bool
}

// BuildPickupEmail renders the pickup verification mail with the code as an
// inline QR image the donor can show to the NGO agent.
func BuildPickupEmail(to string, data PickupEmailData) (Mail, error) {
	png, err := qrcode.Encode(data.Code, qrcode.Medium, 256)
	if err != nil {
		return Mail{}, fmt.Errorf("encode pickup qr: %w", err)
	}
	data.QRInline = true
	return Mail{
		To:       []string{to},
		Subject:  siteName + " Pickup Verification OTP",
		TextBody: fmt.Sprintf("Your OTP for pickup: %s\n\nPlease share this 4-digit code with the NGO agent, %s.\n", data.Code, data.NGOName),
		HTMLBody: render(pickupTmpl, data),
		Inline:   []Attachment{{Name: pickupQRName, ContentType: "image/png", Data: png}},
	}, nil
}

type ContactEmailData struct {
	Name    string
	Email   string
	Message string
}

var contactPolicy = bluemonday.StrictPolicy()

// BuildContactEmail strips any markup from the visitor's input before it is
// placed in the mail body.
func BuildContactEmail(to string, data ContactEmailData) Mail {
	// The sanitized strings are already escaped HTML.
	clean := struct {
		Name, Email, Message template.HTML
	}{
		Name:    template.HTML(contactPolicy.Sanitize(data.Name)),
		Email:   template.HTML(contactPolicy.Sanitize(data.Email)),
		Message: template.HTML(contactPolicy.Sanitize(data.Message)),
	}
	name := html.UnescapeString(string(clean.Name))
	return Mail{
		To:      []string{to},
		Subject: fmt.Sprintf("New Contact Inquiry from %s: %s", siteName, name),
		TextBody: fmt.Sprintf("Name: %s\nEmail: %s\n\n%s\n",
			name, html.UnescapeString(string(clean.Email)), html.UnescapeString(string(clean.Message))),
		HTMLBody: render(contactTmpl, clean),
	}
}

func render(tmpl *template.Template, data any) string {
	var buf bytes.Buffer
	_ = tmpl.Execute(&buf, data)
	return buf.String()
}

var verificationTmpl = template.Must(template.New("verification").Parse(`<h3>Your Verification OTP for BhojanSetu is:</h3>
<h1>{{.Code}}</h1>
<p>This code is valid for {{.ExpiresIn}}.</p>`))

var pickupTmpl = template.Must(template.New("pickup").Parse(`<h3>Your OTP for pickup:</h3>
<h1>{{.Code}}</h1>
{{if .QRInline}}<p><img src="cid:pickup-code.png" alt="Pickup code QR" width="200" height="200"></p>{{end}}
<p>Please share this 4-digit code with the NGO agent, {{.NGOName}}.</p>
{{if .Items}}<p>Items:</p><ul>{{range .Items}}<li>{{.}}</li>{{end}}</ul>{{end}}
{{if .Address}}<p>Pickup address: {{.Address}}</p>{{end}}`))

var contactTmpl = template.Must(template.New("contact").Parse(`<h3>Contact Details</h3>
<p><strong>Name:</strong> {{.Name}}</p>
<p><strong>Email:</strong> {{.Email}}</p>
<hr>
<h3>Message</h3>
<p>{{.Message}}</p>`))
