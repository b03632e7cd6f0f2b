package services

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vnkhanh/e-cert-backend/models"
	"github.com/vnkhanh/e-cert-backend/utils"
)

//go:embed templates/*.html
var pageFS embed.FS

var pages = template.Must(template.ParseFS(pageFS, "templates/*.html"))

const qrSize = 200

// Renderer produces the certificate document for a student and returns its
// location relative to the data directory.
type Renderer interface {
	Render(ctx context.Context, student models.StudentRecord, certID int) (string, error)
}

// LinkBuilder builds verification links for certificate tokens.
type LinkBuilder struct {
	tokens  *utils.TokenManager
	baseURL string
}

// NewLinkBuilder uses publicBaseURL when set, otherwise http://<host>:<port>
// where an empty or "auto" host is replaced by the detected LAN address.
func NewLinkBuilder(tokens *utils.TokenManager, publicBaseURL, hostIP, port string) *LinkBuilder {
	base := strings.TrimRight(strings.TrimSpace(publicBaseURL), "/")
	if base == "" {
		host := strings.TrimSpace(hostIP)
		if host == "" || host == "auto" {
			host = utils.LocalIP()
		}
		base = "http://" + net.JoinHostPort(host, port)
	}
	return &LinkBuilder{tokens: tokens, baseURL: base}
}

func (l *LinkBuilder) BaseURL() string { return l.baseURL }

// VerificationURL signs {student_id, cert_id} and embeds it in a /verify link.
func (l *LinkBuilder) VerificationURL(studentID, certID int) (string, error) {
	token, err := l.tokens.GenerateCertificateToken(studentID, certID)
	if err != nil {
		return "", err
	}
	return l.baseURL + "/verify?token=" + url.QueryEscape(token), nil
}

type field struct {
	Key   string
	Value string
}

func fieldsOf(d models.RowData) []field {
	out := make([]field, 0, d.Len())
	for _, k := range d.Keys() {
		v, _ := d.Get(k)
		out = append(out, field{Key: k, Value: v})
	}
	return out
}

// HTMLRenderer writes self-contained HTML certificates to <dataDir>/certs.
type HTMLRenderer struct {
	dataDir string
	links   *LinkBuilder
}

func NewHTMLRenderer(dataDir string, links *LinkBuilder) *HTMLRenderer {
	return &HTMLRenderer{dataDir: dataDir, links: links}
}

// CertificateFile is the path of a certificate relative to the data directory.
func CertificateFile(certID int) string {
	return fmt.Sprintf("certs/cert_%d.html", certID)
}

func (r *HTMLRenderer) Render(_ context.Context, student models.StudentRecord, certID int) (string, error) {
	link, err := r.links.VerificationURL(student.ID, certID)
	if err != nil {
		return "", fmt.Errorf("sign verification link: %w", err)
	}
	qr, err := utils.QRCodeDataURI(link, qrSize)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	err = pages.ExecuteTemplate(&buf, "certificate.html", struct {
		CertNo    string
		IssueDate string
		Fields    []field
		QRCode    template.URL
	}{
		CertNo:    models.CertificateNumber(certID),
		IssueDate: time.Now().UTC().Format("2006-01-02"),
		Fields:    fieldsOf(student.Data),
		QRCode:    template.URL(qr),
	})
	if err != nil {
		return "", fmt.Errorf("render certificate: %w", err)
	}

	rel := CertificateFile(certID)
	path := filepath.Join(r.dataDir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write certificate: %w", err)
	}
	return rel, nil
}

// VerificationPage renders the human-readable result of a token check.
func VerificationPage(res *TokenVerification) ([]byte, error) {
	data := struct {
		Valid       bool
		CertNo      string
		IssuedBy    string
		GeneratedAt string
		Fields      []field
		Expected    string
		ProofHash   string
	}{
		Valid:    res.Valid,
		CertNo:   models.CertificateNumber(res.CertID),
		Fields:   fieldsOf(res.Student.Data),
		Expected: res.Expected,
	}
	if res.Certificate != nil {
		data.IssuedBy = res.Certificate.IssuedBy
		data.GeneratedAt = res.Certificate.GeneratedAt.UTC().Format("2006-01-02")
	}
	if res.Proof != nil {
		data.ProofHash = res.Proof.Hash
	}

	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, "verify.html", data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ErrorPage renders a minimal HTML error page.
func ErrorPage(title, message string) []byte {
	var buf bytes.Buffer
	err := pages.ExecuteTemplate(&buf, "error.html", struct{ Title, Message string }{title, message})
	if err != nil {
		return []byte(template.HTMLEscapeString(title + ": " + message))
	}
	return buf.Bytes()
}
