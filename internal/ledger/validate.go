package ledger

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/sadopc/billr/internal/model"
)

// Field limits.
const (
	maxNameLen        = 255
	maxEmailLen       = 255
	maxPhoneLen       = 50
	maxAddressLen     = 500
	maxDescriptionLen = 500
	maxInvoiceDescLen = 1000
)

var (
	emailPattern    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)
)

func requireText(entity, field, value string, max int) (string, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return "", validationErr(entity, field, "must not be empty")
	}
	return checkLen(entity, field, v, max)
}

func checkLen(entity, field, value string, max int) (string, error) {
	if utf8.RuneCountInString(value) > max {
		return "", validationErr(entity, field, fmt.Sprintf("must be at most %d characters", max))
	}
	return value, nil
}

func optionalText(entity, field, value string, max int) (string, error) {
	return checkLen(entity, field, strings.TrimSpace(value), max)
}

func validDate(entity, field, value string) error {
	if _, err := model.ParseDate(value); err != nil {
		return validationErr(entity, field, "must be a YYYY-MM-DD date")
	}
	return nil
}

func validEmail(email string) (string, error) {
	e, err := requireText("client", "email", email, maxEmailLen)
	if err != nil {
		return "", err
	}
	if !emailPattern.MatchString(e) {
		return "", validationErr("client", "email", "must be a valid email address")
	}
	return e, nil
}

func validCurrency(entity, code string) (string, error) {
	c := strings.ToUpper(strings.TrimSpace(code))
	if !currencyPattern.MatchString(c) {
		return "", validationErr(entity, "currency", "must be a three-letter currency code")
	}
	return c, nil
}

// normalizeSetting checks a scalar setting and returns its canonical value.
func normalizeSetting(key, value string) (string, error) {
	value = strings.TrimSpace(value)
	switch key {
	case SettingDefaultCurrency:
		return validCurrency("setting", value)
	case SettingInvoiceDueDays:
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 || n > 365 {
			return "", validationErr("setting", key, "must be a whole number of days between 0 and 365")
		}
		return strconv.Itoa(n), nil
	case SettingWeekStart:
		v := strings.ToLower(value)
		if v != "monday" && v != "sunday" {
			return "", validationErr("setting", key, "must be monday or sunday")
		}
		return v, nil
	case SettingTheme:
		return requireText("setting", key, value, 50)
	}
	return "", validationErr("setting", key, "unknown setting")
}
