package validate

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/aswhitehouse/behavioural-contracts/internal/contract"
)

// Compiled patterns for PII detection. The scan is deliberately coarse:
// any match in the stringified response fails validation when the policy
// disallows PII.
var (
	// Email addresses.
	emailRe = regexp.MustCompile(`\b[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}\b`)

	// Phone numbers: grouped digits with optional separators.
	phoneRe = regexp.MustCompile(`\b\d{3}[-.]?\d{3}[-.]?\d{4}\b`)

	// US social security numbers.
	ssnRe = regexp.MustCompile(`\b\d{3}[-.]?\d{2}[-.]?\d{4}\b`)
)

var piiPatterns = []*regexp.Regexp{emailRe, phoneRe, ssnRe}

// ContainsPII scans the stringified response against the pattern set.
func ContainsPII(resp contract.Response) bool {
	text := stringify(resp)
	for _, re := range piiPatterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

func stringify(resp contract.Response) string {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Sprint(map[string]any(resp))
	}
	return string(data)
}
