// internal/verification/status.go
package verification

import "provider-verify/internal/models"

// legalTransitions is the workflow's transition table. A status absent from
// the map is terminal.
var legalTransitions = map[models.VerificationStatus][]models.VerificationStatus{
	models.StatusEmailPending:    {models.StatusEmailVerified},
	models.StatusEmailVerified:   {models.StatusLicenseUploaded},
	models.StatusLicenseUploaded: {models.StatusPendingReview, models.StatusApproved, models.StatusRejected},
	models.StatusPendingReview:   {models.StatusApproved, models.StatusRejected},
}

// CanTransition reports whether from → to is a legal workflow step.
func CanTransition(from, to models.VerificationStatus) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
