// Package naming generates unique, platform-compliant resource names for
// endpoints and deployments. Serving platforms require names of 3-32
// characters, lowercase alphanumerics and hyphens, starting with a letter
// and not ending with a hyphen. Uniqueness is best-effort via a timestamp
// plus a short random token.
package naming

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind selects the name format. Endpoint names carry a readable
// MMDD-HHMM timestamp; deployment names use the denser MMDDHHMM form so
// longer base names still fit under the same length ceiling.
type Kind string

const (
	KindEndpoint   Kind = "endpoint"
	KindDeployment Kind = "deployment"
)

const (
	// MaxLength is the platform ceiling for resource names.
	MaxLength = 32

	// MinLength is the platform floor for resource names.
	MinLength = 3

	// minBaseLength is the minimum usable base name after truncation.
	// Falling below it signals a configuration problem rather than
	// something worth repairing silently.
	minBaseLength = 3

	endpointTokenLen   = 6
	deploymentTokenLen = 4
)

// ErrNameTooShort is returned when the base name cannot be truncated to fit
// the platform ceiling while keeping at least minBaseLength characters.
var ErrNameTooShort = errors.New("base name too short after truncation to fit length ceiling")

// ErrInvalidBaseName is returned for base names containing characters
// outside [a-zA-Z0-9-] or not starting with a letter.
var ErrInvalidBaseName = errors.New("invalid base name")

// Generator produces resource names. The zero value is usable; now and
// token exist so tests can pin the clock and randomness.
type Generator struct {
	now   func() time.Time
	token func(n int) string
}

// New returns a Generator using the wall clock and random tokens.
func New() *Generator {
	return &Generator{}
}

// Generate composes a unique name for the given kind.
//
// Endpoint kind:   {base}-{MMDD}-{HHMM}-{token}
// Deployment kind: {base}-{MMDDHHMM}-{token}
//
// attemptIndex > 0 inserts a -retryN segment before the token so retried
// deployments never collide with the resources of a failed attempt. The
// base is truncated first, never the suffix; if fewer than 3 base
// characters would remain, ErrNameTooShort is returned.
func (g *Generator) Generate(baseName string, kind Kind, attemptIndex int) (string, error) {
	base, err := normalizeBase(baseName)
	if err != nil {
		return "", err
	}
	if len(base) < minBaseLength {
		return "", fmt.Errorf("%w: base %q has fewer than %d usable characters", ErrNameTooShort, baseName, minBaseLength)
	}

	var stamp string
	var tokenLen int
	switch kind {
	case KindDeployment:
		stamp = g.clock().Format("01021504")
		tokenLen = deploymentTokenLen
	default:
		stamp = g.clock().Format("0102-1504")
		tokenLen = endpointTokenLen
	}

	suffix := "-" + stamp
	if attemptIndex > 0 {
		suffix += fmt.Sprintf("-retry%d", attemptIndex)
	}
	suffix += "-" + g.newToken(tokenLen)

	available := MaxLength - len(suffix)
	if available < minBaseLength {
		return "", fmt.Errorf("%w: %d characters available for base %q", ErrNameTooShort, available, baseName)
	}
	if len(base) > available {
		base = strings.TrimRight(base[:available], "-")
		if len(base) < minBaseLength {
			return "", fmt.Errorf("%w: base %q truncates to %q", ErrNameTooShort, baseName, base)
		}
	}

	return base + suffix, nil
}

// Generate is a convenience wrapper around a default Generator.
func Generate(baseName string, kind Kind, attemptIndex int) (string, error) {
	return New().Generate(baseName, kind, attemptIndex)
}

// Validate checks a name against the platform rules: 3-32 characters,
// lowercase alphanumerics and hyphens, alphanumeric first and last rune,
// no consecutive hyphens. kind is only used in error messages.
func Validate(name string, kind Kind) error {
	if name == "" {
		return fmt.Errorf("%s name cannot be empty", kind)
	}
	if len(name) < MinLength {
		return fmt.Errorf("%s name %q must be at least %d characters", kind, name, MinLength)
	}
	if len(name) > MaxLength {
		return fmt.Errorf("%s name %q must be %d characters or less", kind, name, MaxLength)
	}
	if !isLowerAlnum(name[0]) || !isLowerAlnum(name[len(name)-1]) {
		return fmt.Errorf("%s name %q must start and end with a lowercase alphanumeric character", kind, name)
	}
	for i := 0; i < len(name); i++ {
		if !isLowerAlnum(name[i]) && name[i] != '-' {
			return fmt.Errorf("%s name %q may only contain lowercase letters, numbers, and hyphens", kind, name)
		}
	}
	if strings.Contains(name, "--") {
		return fmt.Errorf("%s name %q cannot contain consecutive hyphens", kind, name)
	}
	return nil
}

// normalizeBase lowercases the base name, maps underscores to hyphens, and
// rejects anything outside [a-z0-9-] or not starting with a letter.
func normalizeBase(baseName string) (string, error) {
	base := strings.ToLower(strings.ReplaceAll(baseName, "_", "-"))
	if base == "" {
		return "", fmt.Errorf("%w: empty base name", ErrInvalidBaseName)
	}
	if base[0] < 'a' || base[0] > 'z' {
		return "", fmt.Errorf("%w: %q must start with a letter", ErrInvalidBaseName, baseName)
	}
	for i := 0; i < len(base); i++ {
		if !isLowerAlnum(base[i]) && base[i] != '-' {
			return "", fmt.Errorf("%w: %q contains character %q", ErrInvalidBaseName, baseName, base[i])
		}
	}
	return strings.TrimRight(base, "-"), nil
}

func isLowerAlnum(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
}

func (g *Generator) clock() time.Time {
	if g.now != nil {
		return g.now()
	}
	return time.Now()
}

func (g *Generator) newToken(n int) string {
	if g.token != nil {
		return g.token(n)
	}
	// uuid hex chars are lowercase [0-9a-f], which keeps the composed
	// name inside the platform charset.
	t := strings.ReplaceAll(uuid.NewString(), "-", "")
	return t[:n]
}
