package certificate

import (
	"context"
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/mwalimu/elimika/core"
	"github.com/mwalimu/elimika/core/course"
	"github.com/mwalimu/elimika/core/notification"
	"github.com/mwalimu/elimika/core/user"
)

var (
	// errors
	ErrNotFound   = errors.New("certificate not found")
	ErrNotPending = errors.New("certificate is not pending approval")
	// ErrDuplicateValid is returned by repositories when an insert races
	// on the one-valid-certificate-per-(user, course) constraint. The
	// loser fetches and returns the winner's certificate.
	ErrDuplicateValid = errors.New("a valid certificate already exists")
)

type (
	Repository interface {
		// CreateCertificate returns ErrDuplicateValid when a valid
		// certificate already exists for (UserID, CourseID).
		CreateCertificate(ctx context.Context, cert Certificate) (Certificate, error)
		GetCertificateByID(ctx context.Context, id string) (Certificate, error)
		GetCertificateByCode(ctx context.Context, code string) (Certificate, error)
		// GetValidCertificate returns ErrNotFound when no valid
		// certificate exists for (userID, courseID).
		GetValidCertificate(ctx context.Context, userID, courseID string) (Certificate, error)
		SetCertificateValidity(ctx context.Context, id string, valid bool) (Certificate, error)
		DeleteCertificate(ctx context.Context, id string) error
		QueryUserCertificates(ctx context.Context, userID string) ([]Certificate, error)
	}

	Service interface {
		// Issue creates and persists a certificate for (userID, courseID).
		// Idempotent: an existing valid certificate is returned unchanged,
		// with no second artifact rendered. Eligibility is the caller's
		// decision; the service does not recompute course-wide pass state.
		Issue(ctx context.Context, userID, courseID string) (Certificate, error)
		// Revoke marks the certificate invalid; the row and the backing
		// artifact are kept so public verification reports it as revoked
		// rather than missing.
		Revoke(ctx context.Context, id string) (Certificate, error)
		// CreatePending records a placeholder awaiting manual approval:
		// no artifact, not valid.
		CreatePending(ctx context.Context, userID, courseID string) (Certificate, error)
		// ApprovePending promotes a placeholder into a real certificate,
		// equivalent to deleting it and calling Issue. A certificate that
		// already has an artifact or is valid is rejected as not pending.
		ApprovePending(ctx context.Context, id string) (Certificate, error)
		GetByID(ctx context.Context, id string) (Certificate, error)
		QueryByUser(ctx context.Context, userID string) ([]Certificate, error)
		// Verify resolves a certificate code for the public verification
		// surface. No authentication involved.
		Verify(ctx context.Context, code string) (Verification, error)
	}

	service struct {
		repo      Repository
		renderer  Renderer
		storage   Storage
		userSvc   user.Service
		courseSvc course.Service
		notifier  notification.Notifier
		conf      *core.Config
	}
)

var _ Service = (*service)(nil)

func NewService(
	repo Repository,
	renderer Renderer,
	storage Storage,
	userSvc user.Service,
	courseSvc course.Service,
	notifier notification.Notifier,
	conf *core.Config,
) Service {
	return &service{
		repo:      repo,
		renderer:  renderer,
		storage:   storage,
		userSvc:   userSvc,
		courseSvc: courseSvc,
		notifier:  notifier,
		conf:      conf,
	}
}

func (svc *service) Issue(ctx context.Context, userID, courseID string) (Certificate, error) {
	if existing, err := svc.repo.GetValidCertificate(ctx, userID, courseID); err == nil {
		return existing, nil
	} else if err != ErrNotFound {
		return Certificate{}, err
	}

	usr, err := svc.userSvc.GetByID(ctx, userID)
	if err != nil {
		return Certificate{}, err
	}
	crs, err := svc.courseSvc.GetByID(ctx, courseID)
	if err != nil {
		return Certificate{}, err
	}

	// The code is generated before any hard-to-undo side effect; the DB
	// row is the durable record of success. A failed render or upload
	// leaves no row behind.
	code := NewCode()
	issuedAt := core.NowFunc()

	content, contentType, err := svc.renderer.Render(ctx, RenderData{
		UserName:   usr.Name,
		CourseName: crs.Title,
		Code:       code,
		Issuer:     svc.conf.Certificate.Issuer,
		IssuedAt:   issuedAt,
	})
	if err != nil {
		return Certificate{}, pkgerrors.Wrap(err, "rendering certificate")
	}

	url, err := svc.storage.Store(ctx, artifactKey(code), content, contentType)
	if err != nil {
		return Certificate{}, pkgerrors.Wrap(err, "storing certificate artifact")
	}

	cert, err := svc.repo.CreateCertificate(ctx, Certificate{
		Code:     code,
		UserID:   userID,
		CourseID: courseID,
		IssuedAt: issuedAt,
		PDFURL:   null.StringFrom(url),
		Valid:    true,
	})
	if err == ErrDuplicateValid {
		// lost a race against a concurrent Issue: return the winner's
		return svc.repo.GetValidCertificate(ctx, userID, courseID)
	}
	if err != nil {
		return Certificate{}, err
	}

	svc.notifier.Notify(notification.Event{
		Type:          notification.CertificateIssued,
		SubjectUserID: userID,
		Payload: map[string]interface{}{
			"certificate_id": cert.ID,
			"code":           cert.Code,
			"course_id":      courseID,
			"pdf_url":        url,
		},
	})
	return cert, nil
}

func (svc *service) Revoke(ctx context.Context, id string) (Certificate, error) {
	cert, err := svc.repo.SetCertificateValidity(ctx, id, false)
	if err != nil {
		return Certificate{}, err
	}
	svc.notifier.Notify(notification.Event{
		Type:          notification.CertificateRevoked,
		SubjectUserID: cert.UserID,
		Payload: map[string]interface{}{
			"certificate_id": cert.ID,
			"code":           cert.Code,
			"course_id":      cert.CourseID,
		},
	})
	return cert, nil
}

func (svc *service) CreatePending(ctx context.Context, userID, courseID string) (Certificate, error) {
	return svc.repo.CreateCertificate(ctx, Certificate{
		Code:     NewCode(),
		UserID:   userID,
		CourseID: courseID,
		IssuedAt: core.NowFunc(),
		Valid:    false,
	})
}

func (svc *service) ApprovePending(ctx context.Context, id string) (Certificate, error) {
	cert, err := svc.repo.GetCertificateByID(ctx, id)
	if err != nil {
		return Certificate{}, err
	}
	if !cert.Pending() {
		return Certificate{}, core.NewPreconditionError(ErrNotPending)
	}
	if err = svc.repo.DeleteCertificate(ctx, cert.ID); err != nil {
		return Certificate{}, err
	}
	return svc.Issue(ctx, cert.UserID, cert.CourseID)
}

func (svc *service) GetByID(ctx context.Context, id string) (Certificate, error) {
	return svc.repo.GetCertificateByID(ctx, id)
}

func (svc *service) QueryByUser(ctx context.Context, userID string) ([]Certificate, error) {
	return svc.repo.QueryUserCertificates(ctx, userID)
}

func (svc *service) Verify(ctx context.Context, code string) (Verification, error) {
	cert, err := svc.repo.GetCertificateByCode(ctx, core.CleanString(code))
	if err != nil {
		return Verification{}, err
	}

	verification := Verification{
		Valid:    cert.Valid,
		Code:     cert.Code,
		IssuedAt: cert.IssuedAt,
	}
	if usr, err := svc.userSvc.GetByID(ctx, cert.UserID); err == nil {
		verification.UserName = usr.Name
	}
	if crs, err := svc.courseSvc.GetByID(ctx, cert.CourseID); err == nil {
		verification.CourseName = crs.Title
	}
	return verification, nil
}

func artifactKey(code string) string {
	return fmt.Sprintf("certificates/%s.png", code)
}
