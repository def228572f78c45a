// Package render produces the certificate document. Rendering is a pure
// function of the certificate record: same input, same bytes, which keeps
// regenerated documents identical across calls. No database access.
package render

import (
	"bytes"
	_ "embed"
	"encoding/xml"
	"fmt"
	"net/url"
	"strings"
	"text/template"

	qrcode "github.com/skip2/go-qrcode"

	"certforge/internal/certificate/models"
	dErrors "certforge/pkg/domain-errors"
)

//go:embed template.svg
var templateSVG string

const dateLayout = "January 2, 2006"

var certificateTemplate = template.Must(
	template.New("certificate").
		Funcs(template.FuncMap{"esc": escapeXML}).
		Parse(templateSVG),
)

// Renderer renders certificates as SVG documents.
type Renderer struct {
	// baseURL is the public verification endpoint prefix, e.g.
	// https://certs.example.com. The rendered document embeds
	// <baseURL>/verify?code=<verification code>.
	baseURL string
}

func New(baseURL string) *Renderer {
	return &Renderer{baseURL: baseURL}
}

// qrSize is the rendered edge length of the QR block in SVG units.
const qrSize = 120.0

type templateData struct {
	OrganizationName  string
	ProgramName       string
	EmployeeName      string
	CertificateNumber string
	VerificationCode  string
	VerificationURL   string
	IssuedDate        string
	ExpiryDate        string
	QRPath            string
	QRScale           string
}

// Render produces the SVG document for a certificate. A template failure is
// terminal: the caller gets an error and no partial output, and the
// certificate itself remains issued.
func (r *Renderer) Render(cert *models.Certificate) ([]byte, error) {
	data := templateData{
		OrganizationName:  cert.OrganizationName,
		ProgramName:       cert.ProgramName,
		EmployeeName:      cert.EmployeeName,
		CertificateNumber: cert.CertificateNumber,
		VerificationCode:  cert.VerificationCode,
		VerificationURL:   r.verificationURL(cert.VerificationCode),
		IssuedDate:        cert.IssuedDate.UTC().Format(dateLayout),
	}
	if cert.ExpiryDate != nil {
		data.ExpiryDate = cert.ExpiryDate.UTC().Format(dateLayout)
	}

	path, modules, err := qrPath(data.VerificationURL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeRenderFailed, "failed to encode verification url")
	}
	data.QRPath = path
	data.QRScale = fmt.Sprintf("%.5f", qrSize/float64(modules))

	var buf bytes.Buffer
	if err := certificateTemplate.Execute(&buf, data); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeRenderFailed, "failed to render certificate document")
	}
	return buf.Bytes(), nil
}

// qrPath encodes the verification URL as a QR symbol and flattens its dark
// modules into one SVG path on a unit grid. The symbol generation is
// deterministic for a given URL, which keeps Render a pure function.
func qrPath(content string) (string, int, error) {
	qr, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return "", 0, err
	}
	qr.DisableBorder = true

	bitmap := qr.Bitmap()
	var b strings.Builder
	for y, row := range bitmap {
		for x, dark := range row {
			if dark {
				fmt.Fprintf(&b, "M%d %dh1v1h-1z", x, y)
			}
		}
	}
	return b.String(), len(bitmap), nil
}

func (r *Renderer) verificationURL(code string) string {
	return fmt.Sprintf("%s/verify?code=%s", r.baseURL, url.QueryEscape(code))
}

func escapeXML(s string) string {
	var buf bytes.Buffer
	if err := xml.EscapeText(&buf, []byte(s)); err != nil {
		return ""
	}
	return buf.String()
}
