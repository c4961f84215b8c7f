package validate

import (
	"github.com/ShiraazMoollatjie/goluhn"
)

const ReferralCodeLength = 10

// IsReferralCode reports whether s is a 10 digit string passing the Luhn check.
func IsReferralCode(s string) bool {
	if len(s) != ReferralCodeLength {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return goluhn.Validate(s) == nil
}

func GenerateReferralCode() string {
	return goluhn.Generate(ReferralCodeLength)
}
