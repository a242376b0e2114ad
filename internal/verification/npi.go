// internal/verification/npi.go
package verification

import (
	"regexp"
	"strings"

	"provider-verify/internal/common/errors"
)

var npiPattern = regexp.MustCompile(`^\d{10}$`)

// NormalizeNPI strips all whitespace from an NPI and validates that exactly
// 10 digits remain. The normalized form is what gets persisted; it is
// immutable once set.
func NormalizeNPI(npi string) (string, error) {
	stripped := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r', '\v', '\f':
			return -1
		}
		return r
	}, npi)

	if !npiPattern.MatchString(stripped) {
		return "", errors.NewNPIInvalidError(npi)
	}
	return stripped, nil
}
