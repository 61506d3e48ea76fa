package notify

import (
	"bytes"
	"fmt"
	"html/template"
)

var verificationTmpl = template.Must(template.New("verify").Parse(
	`Dear {{.Name}},<br><br>` +
		`Thank you for choosing our service.<br>` +
		`To complete your registration, please click the link below to verify :<br>` +
		`<h3><a href="{{.URL}}" target="_self">VERIFY</a></h3>` +
		`Thank you<br><br>` +
		`<i>(This is an auto-generated email, please do not reply)</i>`,
))

func renderVerification(name, url string) (string, error) {
	var buf bytes.Buffer
	err := verificationTmpl.Execute(&buf, struct {
		Name string
		URL  string
	}{Name: name, URL: url})
	if err != nil {
		return "", fmt.Errorf("render verification email: %w", err)
	}
	return buf.String(), nil
}
