// Package verification implements the applicant verification state machine:
// signup → email verification → license upload → human review →
// approve/reject. Every durable bit of workflow state lives in the external
// customer store (tags + metafields); this service owns the transition
// rules and keeps the two layers in lockstep.
package verification

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel/codes"

	"provider-verify/internal/common/errors"
	"provider-verify/internal/common/logger"
	"provider-verify/internal/common/metrics"
	"provider-verify/internal/common/observability"
	"provider-verify/internal/models"
	"provider-verify/internal/verification/token"
)

// CustomerStore is the slice of the external attribute store the workflow
// depends on. Implemented by shopify.Client.
type CustomerStore interface {
	CreateApplicant(ctx context.Context, in models.NewApplicant) (*models.Applicant, error)
	GetApplicant(ctx context.Context, customerID string) (*models.Applicant, error)
	MarkEmailVerified(ctx context.Context, customerID string) error
	SearchByEmail(ctx context.Context, email string) ([]models.Applicant, error)
	SearchByTag(ctx context.Context, tag string) ([]models.Applicant, error)
	SetMetafield(ctx context.Context, customerID, key, value string) error
	GetMetafields(ctx context.Context, customerID string) (map[string]string, error)
	AddTags(ctx context.Context, customerID string, tags ...string) error
	RemoveTag(ctx context.Context, customerID, tag string) error
	SendAccountInvite(ctx context.Context, customerID string) error
}

// FileStore holds the uploaded license documents.
type FileStore interface {
	Store(ctx context.Context, r io.Reader, declaredType, originalName string) (string, error)
	Dispose(ctx context.Context, name string) error
}

// Mailer sends the workflow's transactional emails.
type Mailer interface {
	SendVerificationEmail(ctx context.Context, to, firstName, verifyURL string) error
	SendRejectionEmail(ctx context.Context, to, firstName string) error
}

// OperatorNotifier tells the review operators that a new applicant entered
// the queue. Best-effort.
type OperatorNotifier interface {
	ReviewQueued(ctx context.Context, applicant *models.Applicant) error
}

// Locker serializes transitions per applicant. The external store is not
// transactional, so the tag swap and metafield writes of one transition
// must not interleave with another writer.
type Locker interface {
	Lock(ctx context.Context, customerID string) (release func(), err error)
}

// TokenConsumer makes verification tokens single-use.
type TokenConsumer interface {
	Consume(ctx context.Context, tokenID string, ttl time.Duration) (bool, error)
}

type Config struct {
	// FrontendURL is the public base URL the verification link points to.
	FrontendURL string
}

type Service struct {
	store    CustomerStore
	files    FileStore
	mailer   Mailer
	notifier OperatorNotifier
	locks    Locker
	consumed TokenConsumer
	tokens   *token.Codec
	tracing  *observability.Tracing
	obs      *observability.Observability
	logger   logger.Logger
	cfg      Config
	now      func() time.Time
}

type Dependencies struct {
	Store    CustomerStore
	Files    FileStore
	Mailer   Mailer
	Notifier OperatorNotifier
	Locks    Locker
	Consumed TokenConsumer
	Tokens   *token.Codec
	Tracing  *observability.Tracing
	Obs      *observability.Observability
	Logger   logger.Logger
}

func NewService(deps Dependencies, cfg Config) *Service {
	return &Service{
		store:    deps.Store,
		files:    deps.Files,
		mailer:   deps.Mailer,
		notifier: deps.Notifier,
		locks:    deps.Locks,
		consumed: deps.Consumed,
		tokens:   deps.Tokens,
		tracing:  deps.Tracing,
		obs:      deps.Obs,
		logger:   deps.Logger,
		cfg:      cfg,
		now:      time.Now,
	}
}

// ==========================
// Transitions
// ==========================

// Signup creates the applicant record and starts the workflow in
// email_pending. Validation happens before any side effect; once the record
// exists, later failures leave it behind without rollback (the store is not
// transactional) and surface as upstream errors.
func (s *Service) Signup(ctx context.Context, in models.NewApplicant) (customerID string, err error) {
	ctx, done := s.observe(ctx, "signup", "")
	defer func() { done(err) }()

	npi, err := NormalizeNPI(in.NPI)
	if err != nil {
		return "", err
	}
	in.NPI = npi

	existing, err := s.store.SearchByEmail(ctx, in.Email)
	if err != nil {
		return "", err
	}
	if len(existing) > 0 {
		return "", errors.NewDuplicateEmailError(in.Email)
	}

	applicant, err := s.store.CreateApplicant(ctx, in)
	if err != nil {
		return "", err
	}

	if err := s.store.SetMetafield(ctx, applicant.ID, models.MetafieldNPI, npi); err != nil {
		return "", err
	}
	if err := s.setStatus(ctx, applicant.ID, models.StatusEmailPending); err != nil {
		return "", err
	}

	verificationToken, err := s.tokens.Issue(applicant.ID)
	if err != nil {
		return "", errors.NewInternalError(err)
	}
	verifyURL := fmt.Sprintf("%s/api/verify-email?token=%s", s.cfg.FrontendURL, verificationToken)

	if err := s.mailer.SendVerificationEmail(ctx, in.Email, in.FirstName, verifyURL); err != nil {
		return "", errors.NewEmailSendError(err)
	}

	s.logger.Info("applicant signed up", map[string]interface{}{
		"customerId": applicant.ID,
		"npi":        npi,
	})
	return applicant.ID, nil
}

// VerifyEmail consumes a verification token and advances the applicant to
// email_verified. Tokens are single-use: a replay within the validity
// window is rejected as long as the consumption store is reachable; when it
// is not, the transition proceeds statelessly rather than locking everyone
// out.
func (s *Service) VerifyEmail(ctx context.Context, tokenString string) (applicant *models.Applicant, err error) {
	verified, err := s.tokens.Verify(tokenString)
	if err != nil {
		return nil, err
	}

	ctx, done := s.observe(ctx, "verify_email", verified.CustomerID)
	defer func() { done(err) }()

	unlock := s.lock(ctx, verified.CustomerID)
	defer unlock()

	if verified.TokenID != "" {
		first, consumeErr := s.consumed.Consume(ctx, verified.TokenID, time.Until(verified.ExpiresAt))
		if consumeErr != nil {
			s.logger.Warn("token consumption store unavailable, accepting token statelessly", map[string]interface{}{
				"customerId": verified.CustomerID,
				"error":      consumeErr.Error(),
			})
		} else if !first {
			return nil, errors.NewTokenConsumedError()
		}
	}

	if err := s.store.MarkEmailVerified(ctx, verified.CustomerID); err != nil {
		return nil, err
	}
	if err := s.setStatus(ctx, verified.CustomerID, models.StatusEmailVerified); err != nil {
		return nil, err
	}

	applicant, err = s.store.GetApplicant(ctx, verified.CustomerID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("email verified", map[string]interface{}{"customerId": applicant.ID})
	return applicant, nil
}

// AttachLicense persists the uploaded document and moves the applicant into
// the review queue: status license_uploaded, tag swap
// pending_verification → pending_review. The file is written first, so an
// unknown customer id orphans it; the orphan is deleted before returning.
func (s *Service) AttachLicense(ctx context.Context, customerID string, file io.Reader, declaredType, originalName string) (filename string, err error) {
	if customerID == "" {
		return "", errors.NewValidationError("customerId is required")
	}

	ctx, done := s.observe(ctx, "attach_license", customerID)
	defer func() { done(err) }()

	unlock := s.lock(ctx, customerID)
	defer unlock()

	filename, err = s.files.Store(ctx, file, declaredType, originalName)
	if err != nil {
		return "", err
	}

	applicant, err := s.store.GetApplicant(ctx, customerID)
	if err != nil {
		_ = s.files.Dispose(ctx, filename)
		return "", err
	}

	if err := s.setStatus(ctx, customerID, models.StatusLicenseUploaded); err != nil {
		return "", err
	}
	if err := s.store.SetMetafield(ctx, customerID, models.MetafieldLicenseFile, filename); err != nil {
		return "", err
	}
	if err := s.store.SetMetafield(ctx, customerID, models.MetafieldUploadDate, s.now().UTC().Format(time.RFC3339)); err != nil {
		return "", err
	}

	if err := s.store.RemoveTag(ctx, customerID, models.TagPendingVerification); err != nil {
		return "", err
	}
	if err := s.store.AddTags(ctx, customerID, models.TagPendingReview); err != nil {
		return "", err
	}

	if s.notifier != nil {
		if notifyErr := s.notifier.ReviewQueued(ctx, applicant); notifyErr != nil {
			s.logger.Warn("operator notification failed", map[string]interface{}{
				"customerId": customerID,
				"error":      notifyErr.Error(),
			})
		}
	}

	s.logger.Info("license uploaded", map[string]interface{}{
		"customerId": customerID,
		"filename":   filename,
	})
	return filename, nil
}

// Approve is the operator's terminal accept: tag swap
// pending_review → verified, status approved, document handle disposed,
// store account invite sent so the applicant can log in. Re-approving an
// already-terminal applicant is rejected before any side effect.
func (s *Service) Approve(ctx context.Context, customerID string) (err error) {
	ctx, done := s.observe(ctx, "approve", customerID)
	defer func() { done(err) }()

	unlock := s.lock(ctx, customerID)
	defer unlock()

	applicant, fields, err := s.requirePendingReview(ctx, customerID)
	if err != nil {
		return err
	}

	if err := s.store.RemoveTag(ctx, customerID, models.TagPendingReview); err != nil {
		return err
	}
	if err := s.store.AddTags(ctx, customerID, models.TagVerified); err != nil {
		return err
	}
	if err := s.setStatus(ctx, customerID, models.StatusApproved); err != nil {
		return err
	}
	if err := s.store.SetMetafield(ctx, customerID, models.MetafieldApprovalOn, s.now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}

	s.disposeLicense(ctx, customerID, fields)

	if err := s.store.SendAccountInvite(ctx, customerID); err != nil {
		return err
	}

	s.logger.Info("applicant approved", map[string]interface{}{
		"customerId": customerID,
		"email":      applicant.Email,
	})
	return nil
}

// Reject is the operator's terminal decline: tag swap
// pending_review → rejected, status rejected, document handle disposed, and
// a guidance email to the applicant. The email is best-effort: the state
// transition has already committed, so a dispatch failure is logged and
// counted, never surfaced as a request failure.
func (s *Service) Reject(ctx context.Context, customerID string) (err error) {
	ctx, done := s.observe(ctx, "reject", customerID)
	defer func() { done(err) }()

	unlock := s.lock(ctx, customerID)
	defer unlock()

	applicant, fields, err := s.requirePendingReview(ctx, customerID)
	if err != nil {
		return err
	}

	if err := s.store.RemoveTag(ctx, customerID, models.TagPendingReview); err != nil {
		return err
	}
	if err := s.store.AddTags(ctx, customerID, models.TagRejected); err != nil {
		return err
	}
	if err := s.setStatus(ctx, customerID, models.StatusRejected); err != nil {
		return err
	}
	if err := s.store.SetMetafield(ctx, customerID, models.MetafieldRejectionOn, s.now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}

	s.disposeLicense(ctx, customerID, fields)

	if mailErr := s.mailer.SendRejectionEmail(ctx, applicant.Email, applicant.FirstName); mailErr != nil {
		metrics.EmailSendFailures.WithLabelValues("rejection").Inc()
		s.logger.Error("rejection email failed after state transition committed", map[string]interface{}{
			"customerId": customerID,
			"error":      mailErr.Error(),
		})
	}

	s.logger.Info("applicant rejected", map[string]interface{}{
		"customerId": customerID,
		"email":      applicant.Email,
	})
	return nil
}

// ==========================
// Projections
// ==========================

// PendingReviews derives the operator worklist: every record tagged
// pending_review, reconstituted from its metafields. The result is a
// snapshot in the store's native order.
func (s *Service) PendingReviews(ctx context.Context) ([]models.ApplicantSummary, error) {
	applicants, err := s.store.SearchByTag(ctx, models.TagPendingReview)
	if err != nil {
		return nil, err
	}

	summaries := make([]models.ApplicantSummary, 0, len(applicants))
	for i := range applicants {
		a := &applicants[i]
		fields, err := s.store.GetMetafields(ctx, a.ID)
		if err != nil {
			return nil, err
		}

		npi := fields[models.MetafieldNPI]
		if npi == "" {
			npi = "N/A"
		}
		summaries = append(summaries, models.ApplicantSummary{
			ID:              a.ID,
			FirstName:       a.FirstName,
			LastName:        a.LastName,
			Email:           a.Email,
			Phone:           a.Phone,
			NPI:             npi,
			LicenseFilename: fields[models.MetafieldLicenseFile],
			UploadDate:      fields[models.MetafieldUploadDate],
			Status:          models.VerificationStatus(fields[models.MetafieldStatus]),
		})
	}
	return summaries, nil
}

// CheckLogin reports whether a storefront login attempt should proceed,
// based on the lifecycle tag. Only fully verified applicants may log in.
func (s *Service) CheckLogin(ctx context.Context, email string) (allowed bool, message string, err error) {
	applicants, err := s.store.SearchByEmail(ctx, email)
	if err != nil {
		return false, "", err
	}
	if len(applicants) == 0 {
		return false, "No account found. You must apply first.", nil
	}

	a := &applicants[0]
	switch {
	case a.HasTag(models.TagVerified):
		return true, "", nil
	case a.HasTag(models.TagPendingVerification), a.HasTag(models.TagPendingReview):
		return false, "Your account is awaiting approval.", nil
	default:
		return false, "Your account is not approved.", nil
	}
}

// ==========================
// Helpers
// ==========================

func (s *Service) setStatus(ctx context.Context, customerID string, status models.VerificationStatus) error {
	return s.store.SetMetafield(ctx, customerID, models.MetafieldStatus, string(status))
}

// requirePendingReview loads the applicant and its metafields and enforces
// the operator-action precondition. Terminal applicants fail here, which is
// what keeps approve/reject idempotent side-effect-wise: the second attempt
// never reaches the notification or the file disposal.
func (s *Service) requirePendingReview(ctx context.Context, customerID string) (*models.Applicant, map[string]string, error) {
	applicant, err := s.store.GetApplicant(ctx, customerID)
	if err != nil {
		return nil, nil, err
	}
	if !applicant.HasTag(models.TagPendingReview) {
		return nil, nil, errors.NewTransitionInvalidError(
			fmt.Sprintf("customer %s is not pending review", customerID))
	}

	fields, err := s.store.GetMetafields(ctx, customerID)
	if err != nil {
		return nil, nil, err
	}
	return applicant, fields, nil
}

// disposeLicense removes the referenced document, best-effort. The
// license_filename metafield is intentionally left in place; the blob
// behind it is gone after this.
func (s *Service) disposeLicense(ctx context.Context, customerID string, fields map[string]string) {
	filename := fields[models.MetafieldLicenseFile]
	if filename == "" {
		return
	}
	if err := s.files.Dispose(ctx, filename); err != nil {
		s.logger.Warn("license disposal failed", map[string]interface{}{
			"customerId": customerID,
			"filename":   filename,
			"error":      err.Error(),
		})
	}
}

// lock acquires the per-applicant advisory lock. A lock-service outage
// degrades to unserialized transitions (the original behavior) instead of
// refusing the request.
func (s *Service) lock(ctx context.Context, customerID string) (release func()) {
	if s.locks == nil {
		return func() {}
	}
	unlock, err := s.locks.Lock(ctx, customerID)
	if err != nil {
		s.logger.Warn("applicant lock unavailable, proceeding unserialized", map[string]interface{}{
			"customerId": customerID,
			"error":      err.Error(),
		})
		return func() {}
	}
	return unlock
}

// observe wraps a transition with tracing, metrics, and duration recording.
func (s *Service) observe(ctx context.Context, transition, customerID string) (context.Context, func(error)) {
	start := s.now()

	if s.tracing == nil {
		return ctx, func(err error) { s.record(ctx, transition, start, err) }
	}

	ctx, span := s.tracing.StartTransition(ctx, transition, customerID)
	return ctx, func(err error) {
		if err != nil {
			span.SetStatus(codes.Error, string(errors.CodeOf(err)))
		}
		span.End()
		s.record(ctx, transition, start, err)
	}
}

func (s *Service) record(ctx context.Context, transition string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
		metrics.TransitionsFailed.WithLabelValues(transition, string(errors.CodeOf(err))).Inc()
	} else {
		metrics.TransitionsCompleted.WithLabelValues(transition).Inc()
	}
	if s.obs != nil {
		s.obs.RecordTransition(ctx, transition, status)
		s.obs.RecordTransitionDuration(ctx, transition, time.Since(start), status)
	}
}
