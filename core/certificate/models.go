package certificate

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
)

// Certificate is the durable record of a course certification.
// At most one valid certificate exists per (UserID, CourseID) at any time;
// revoked certificates are kept for audit.
type Certificate struct {
	ID       string      `json:"id"`
	Code     string      `json:"code"`
	UserID   string      `json:"user_id"`
	CourseID string      `json:"course_id"`
	IssuedAt time.Time   `json:"issued_at"` // UTC
	PDFURL   null.String `json:"pdf_url"`
	Valid    bool        `json:"valid"`
}

// Pending reports whether the certificate is a placeholder awaiting
// manual approval: no artifact yet and not valid.
func (c Certificate) Pending() bool {
	return !c.Valid && !c.PDFURL.Valid
}

// Verification is the public, auth-free view of a certificate.
type Verification struct {
	Valid      bool      `json:"valid"`
	Code       string    `json:"code"`
	UserName   string    `json:"user_name"`
	CourseName string    `json:"course_name"`
	IssuedAt   time.Time `json:"issued_at"`
}

// RenderData is everything the artifact renderer needs.
type RenderData struct {
	UserName   string
	CourseName string
	Code       string
	Issuer     string
	IssuedAt   time.Time
}

// Renderer produces the certificate artifact.
type Renderer interface {
	Render(ctx context.Context, data RenderData) (content []byte, contentType string, err error)
}

// Storage persists an artifact at a durable, publicly reachable URL.
type Storage interface {
	Store(ctx context.Context, key string, content []byte, contentType string) (publicURL string, err error)
}

// codeAlphabet leaves out 0/O/1/I to keep codes easy to read back.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// NewCode generates a human-verifiable certificate code of the form
// XXXX-XXXX-XXXX from fresh UUID entropy. Global uniqueness is backed by
// the storage layer's unique constraint on the code column.
func NewCode() string {
	id := uuid.New()
	buf := make([]byte, 0, 14)
	for i, b := range id[:12] {
		if i > 0 && i%4 == 0 {
			buf = append(buf, '-')
		}
		buf = append(buf, codeAlphabet[int(b)%len(codeAlphabet)])
	}
	return string(buf)
}
