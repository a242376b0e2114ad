// internal/models/applicant.go
package models

import "time"

// VerificationStatus is the fine-grained workflow state persisted in the
// "verification" metafield namespace on the external customer record.
type VerificationStatus string

const (
	StatusEmailPending    VerificationStatus = "email_pending"
	StatusEmailVerified   VerificationStatus = "email_verified"
	StatusLicenseUploaded VerificationStatus = "license_uploaded"
	StatusPendingReview   VerificationStatus = "pending_review"
	StatusApproved        VerificationStatus = "approved"
	StatusRejected        VerificationStatus = "rejected"
)

// Terminal reports whether no further transition is legal from this status.
func (s VerificationStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// PhaseTag maps a status to the coarse lifecycle tag that mirrors it on the
// customer record. Tags are what the store's search can filter on; the
// metafield carries the detail. Exactly one lifecycle tag must be present at
// any time.
func (s VerificationStatus) PhaseTag() string {
	switch s {
	case StatusEmailPending, StatusEmailVerified:
		return TagPendingVerification
	case StatusLicenseUploaded, StatusPendingReview:
		return TagPendingReview
	case StatusApproved:
		return TagVerified
	case StatusRejected:
		return TagRejected
	}
	return ""
}

// Lifecycle tags on the customer record.
const (
	TagPendingVerification = "pending_verification"
	TagPendingReview       = "pending_review"
	TagVerified            = "verified"
	TagRejected            = "rejected"
)

// LifecycleTags lists every tag owned by the verification workflow, in
// lifecycle order.
var LifecycleTags = []string{TagPendingVerification, TagPendingReview, TagVerified, TagRejected}

// Metafield keys under the "verification" namespace.
const (
	MetafieldNamespace   = "verification"
	MetafieldNPI         = "npi"
	MetafieldStatus      = "verification_status"
	MetafieldLicenseFile = "license_filename"
	MetafieldUploadDate  = "license_upload_date"
	MetafieldApprovalOn  = "approval_date"
	MetafieldRejectionOn = "rejection_date"
)

// Applicant is the projection of an external customer record that the
// workflow cares about. The external store owns the record; this struct is
// never persisted locally.
type Applicant struct {
	ID            string   `json:"id"`
	FirstName     string   `json:"firstName"`
	LastName      string   `json:"lastName"`
	Email         string   `json:"email"`
	Phone         string   `json:"phone,omitempty"`
	Tags          []string `json:"tags"`
	VerifiedEmail bool     `json:"verifiedEmail"`
}

// HasTag reports whether the applicant carries the given tag.
func (a *Applicant) HasTag(tag string) bool {
	for _, t := range a.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// NewApplicant carries the signup attributes used to create the customer
// record. Address fields are optional and forwarded verbatim.
type NewApplicant struct {
	FirstName string
	LastName  string
	Company   string
	Email     string
	Phone     string
	NPI       string
	Address1  string
	Address2  string
	City      string
	Province  string
	Zip       string
	Country   string
}

// ApplicantSummary is one row of the admin review worklist, reconstituted
// from the customer record plus its verification metafields.
type ApplicantSummary struct {
	ID              string             `json:"id"`
	FirstName       string             `json:"firstName"`
	LastName        string             `json:"lastName"`
	Email           string             `json:"email"`
	Phone           string             `json:"phone,omitempty"`
	NPI             string             `json:"npi"`
	LicenseFilename string             `json:"licenseFilename,omitempty"`
	UploadDate      string             `json:"uploadDate,omitempty"`
	Status          VerificationStatus `json:"status"`
}

// UploadedAt parses the summary's upload date, returning the zero time when
// absent or unparseable.
func (s ApplicantSummary) UploadedAt() time.Time {
	t, err := time.Parse(time.RFC3339, s.UploadDate)
	if err != nil {
		return time.Time{}
	}
	return t
}
