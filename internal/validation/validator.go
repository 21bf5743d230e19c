package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"casino-engine/models"
)

var (
	ErrInvalidName        = errors.New("invalid name")
	ErrInvalidUUID        = errors.New("invalid UUID format")
	ErrInvalidRange       = errors.New("value out of valid range")
	ErrInvalidEnum        = errors.New("invalid enum value")
	ErrStringTooLong      = errors.New("string exceeds maximum length")
	ErrStringTooShort     = errors.New("string below minimum length")
	ErrContainsXSSPattern = errors.New("input contains suspicious XSS patterns")
)

const (
	MaxNameLength = 100
	// MaxChips bounds any single amount accepted from a client.
	MaxChips = 1_000_000_000
)

var (
	uuidRegex = regexp.MustCompile(`^[a-fA-F0-9]{8}-[a-fA-F0-9]{4}-[a-fA-F0-9]{4}-[a-fA-F0-9]{4}-[a-fA-F0-9]{12}$`)

	xssPatterns = []string{
		"<script", "</script", "javascript:", "onerror=", "onload=",
		"<iframe", "</iframe", "<object", "</object", "eval(",
	}
)

func ValidateUUID(id string) error {
	if id == "" {
		return errors.New("UUID is required")
	}
	if !uuidRegex.MatchString(id) {
		return ErrInvalidUUID
	}
	return nil
}

// ValidateID accepts any non-empty identifier without whitespace or control
// characters. Ids are not always UUIDs: players can be seeded with their own.
func ValidateID(id, fieldName string) error {
	if id == "" {
		return fmt.Errorf("%s is required", fieldName)
	}
	if len(id) > 64 {
		return fmt.Errorf("%w: %s must be at most 64 characters", ErrStringTooLong, fieldName)
	}
	for _, r := range id {
		if r <= ' ' || r == 0x7f {
			return fmt.Errorf("%w: %s contains whitespace or control characters", ErrInvalidName, fieldName)
		}
	}
	return nil
}

func ValidateIntRange(value, min, max int, fieldName string) error {
	if value < min || value > max {
		return fmt.Errorf("%w: %s must be between %d and %d", ErrInvalidRange, fieldName, min, max)
	}
	return nil
}

func ValidatePositiveInt(value int, fieldName string) error {
	if value <= 0 {
		return fmt.Errorf("%w: %s must be positive", ErrInvalidRange, fieldName)
	}
	return nil
}

func ValidateEnum(value string, allowed []string, fieldName string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("%w: %s must be one of %v", ErrInvalidEnum, fieldName, allowed)
}

func ValidateStringLength(value string, minLen, maxLen int, fieldName string) error {
	if len(value) < minLen {
		return fmt.Errorf("%w: %s must be at least %d characters", ErrStringTooShort, fieldName, minLen)
	}
	if len(value) > maxLen {
		return fmt.Errorf("%w: %s must be at most %d characters", ErrStringTooLong, fieldName, maxLen)
	}
	return nil
}

// SanitizeString strips null bytes and surrounding whitespace.
func SanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")
	return strings.TrimSpace(input)
}

// CheckXSS checks for common XSS patterns. Names are echoed to browser
// clients over the websocket.
func CheckXSS(input string) error {
	lower := strings.ToLower(input)
	for _, pattern := range xssPatterns {
		if strings.Contains(lower, pattern) {
			return fmt.Errorf("%w: contains '%s'", ErrContainsXSSPattern, pattern)
		}
	}
	return nil
}

// ValidateName sanitizes a display name and checks it. It returns the
// sanitized form.
func ValidateName(input, fieldName string) (string, error) {
	name := SanitizeString(input)
	if err := ValidateStringLength(name, 1, MaxNameLength, fieldName); err != nil {
		return "", err
	}
	if err := CheckXSS(name); err != nil {
		return "", fmt.Errorf("%s: %w", fieldName, err)
	}
	return name, nil
}

func ValidatePlayerName(name string) (string, error) {
	return ValidateName(name, "player name")
}

func ValidateTableName(name string) (string, error) {
	return ValidateName(name, "table name")
}

func ValidateGame(game string) error {
	allowed := make([]string, len(models.GameVariants))
	for i, g := range models.GameVariants {
		allowed[i] = string(g)
	}
	return ValidateEnum(game, allowed, "game")
}

// ValidateBetLimits checks optional table limits. Zero means "use the default".
func ValidateBetLimits(minBet, maxBet int) error {
	if minBet < 0 || maxBet < 0 {
		return fmt.Errorf("%w: bet limits must be non-negative", ErrInvalidRange)
	}
	if minBet > MaxChips || maxBet > MaxChips {
		return fmt.Errorf("%w: bet limits must be at most %d", ErrInvalidRange, MaxChips)
	}
	if minBet > 0 && maxBet > 0 && minBet > maxBet {
		return fmt.Errorf("%w: min bet must be <= max bet", ErrInvalidRange)
	}
	return nil
}

func ValidateBetAmount(amount int) error {
	return ValidateIntRange(amount, 1, MaxChips, "amount")
}

func ValidateStartingBalance(balance int) error {
	return ValidateIntRange(balance, 0, MaxChips, "balance")
}

// ValidateChipAdjustment checks an admin balance change. Negative amounts
// remove chips; zero is meaningless.
func ValidateChipAdjustment(amount int) error {
	if amount == 0 {
		return fmt.Errorf("%w: amount must be non-zero", ErrInvalidRange)
	}
	if amount > MaxChips || amount < -MaxChips {
		return fmt.Errorf("%w: amount must be within ±%d", ErrInvalidRange, MaxChips)
	}
	return nil
}
