package company

import (
	"fmt"
)

// ValidateVATCode checks the format of an Italian VAT code: exactly 11
// numeric digits. Format only; use VATChecksumOK to also verify the check
// digit.
func ValidateVATCode(code string) error {
	if len(code) != 11 {
		return fmt.Errorf("vat code must be 11 digits, got %d characters", len(code))
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return fmt.Errorf("vat code must contain only digits")
		}
	}
	return nil
}

// VATChecksumOK verifies the partita IVA check digit (Luhn variant: digits
// in even positions are doubled, with 9 subtracted when the double exceeds
// 9; the 11th digit makes the sum a multiple of 10). Returns false for
// anything that is not 11 digits.
func VATChecksumOK(code string) bool {
	if ValidateVATCode(code) != nil {
		return false
	}

	sum := 0
	for i := 0; i < 10; i++ {
		d := int(code[i] - '0')
		if i%2 == 1 {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
	}
	check := (10 - sum%10) % 10
	return check == int(code[10]-'0')
}

// ValidateFiscalCode accepts either a personal fiscal code (16
// alphanumerics) or a company one (11 digits).
func ValidateFiscalCode(code string) error {
	switch len(code) {
	case 11:
		return ValidateVATCode(code)
	case 16:
		for i := 0; i < len(code); i++ {
			c := code[i]
			alnum := (c >= '0' && c <= '9') || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
			if !alnum {
				return fmt.Errorf("fiscal code must contain only letters and digits")
			}
		}
		return nil
	default:
		return fmt.Errorf("fiscal code must be 11 or 16 characters, got %d", len(code))
	}
}
