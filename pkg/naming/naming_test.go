package naming

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var namePattern = regexp.MustCompile(`^[a-z][a-z0-9-]*[a-z0-9]$`)

func fixedGenerator(t *testing.T) *Generator {
	t.Helper()
	return &Generator{
		now:   func() time.Time { return time.Date(2025, 10, 6, 14, 30, 0, 0, time.UTC) },
		token: func(n int) string { return strings.Repeat("a", n) },
	}
}

func TestGenerateEndpointFormat(t *testing.T) {
	g := fixedGenerator(t)

	name, err := g.Generate("purchase", KindEndpoint, 0)
	require.NoError(t, err)
	assert.Equal(t, "purchase-1006-1430-aaaaaa", name)
	assert.LessOrEqual(t, len(name), MaxLength)
}

func TestGenerateDeploymentFormat(t *testing.T) {
	g := fixedGenerator(t)

	name, err := g.Generate("purchase-predictor", KindDeployment, 0)
	require.NoError(t, err)
	assert.Equal(t, "purchase-predictor-10061430-aaaa", name)
	assert.LessOrEqual(t, len(name), MaxLength)
}

func TestGenerateOutputAlwaysCompliant(t *testing.T) {
	g := New()

	bases := []string{"purchase-predictor", "pp", "Purchase_Predictor", "a-very-long-base-name-for-endpoints", "abc"}
	for _, base := range bases {
		for _, kind := range []Kind{KindEndpoint, KindDeployment} {
			for attempt := 0; attempt < 4; attempt++ {
				name, err := g.Generate(base, kind, attempt)
				if err != nil {
					// Short bases may legitimately fail once the retry
					// segment eats into the base budget.
					assert.ErrorIs(t, err, ErrNameTooShort)
					continue
				}
				assert.LessOrEqual(t, len(name), MaxLength, "base=%s kind=%s attempt=%d", base, kind, attempt)
				assert.Regexp(t, namePattern, name, "base=%s kind=%s attempt=%d", base, kind, attempt)
				assert.NoError(t, Validate(name, kind))
			}
		}
	}
}

func TestGenerateTruncatesBaseNotSuffix(t *testing.T) {
	g := fixedGenerator(t)

	name, err := g.Generate("a-very-long-base-name-for-endpoints", KindEndpoint, 0)
	require.NoError(t, err)
	assert.Len(t, name, MaxLength)
	assert.True(t, strings.HasSuffix(name, "-1006-1430-aaaaaa"), "suffix must survive truncation: %s", name)
}

func TestGenerateRetrySegment(t *testing.T) {
	g := fixedGenerator(t)

	name, err := g.Generate("purchase", KindEndpoint, 2)
	require.NoError(t, err)
	assert.Equal(t, "purchase-1006-1430-retry2-aaaaaa", name)
}

func TestGenerateDistinctNamesAcrossAttempts(t *testing.T) {
	g := New()

	seen := map[string]bool{}
	for attempt := 0; attempt < 3; attempt++ {
		name, err := g.Generate("purchase-predictor", KindEndpoint, attempt)
		require.NoError(t, err)
		assert.False(t, seen[name], "duplicate name %s", name)
		seen[name] = true
	}
}

func TestGenerateNameTooShort(t *testing.T) {
	g := fixedGenerator(t)

	_, err := g.Generate("ab", KindEndpoint, 0)
	assert.ErrorIs(t, err, ErrNameTooShort)

	// A base that only loses characters to hyphen trimming can also fall
	// below the floor.
	_, err = g.Generate("ab--", KindEndpoint, 0)
	assert.ErrorIs(t, err, ErrNameTooShort)
}

func TestGenerateRejectsInvalidBase(t *testing.T) {
	g := fixedGenerator(t)

	for _, base := range []string{"", "pp!", "has space", "9starts-with-digit", "-leading-hyphen"} {
		_, err := g.Generate(base, KindEndpoint, 0)
		assert.ErrorIs(t, err, ErrInvalidBaseName, "base=%q", base)
	}
}

func TestGenerateNormalizesCase(t *testing.T) {
	g := fixedGenerator(t)

	name, err := g.Generate("Purchase_Predictor", KindDeployment, 0)
	require.NoError(t, err)
	assert.Equal(t, "purchase-predictor-10061430-aaaa", name)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"purchase-predictor-1006", false},
		{"pp1", false},
		{"", true},
		{"ab", true},
		{strings.Repeat("a", 33), true},
		{"-leading", true},
		{"trailing-", true},
		{"double--hyphen", true},
		{"Upper-Case", true},
		{"under_score", true},
	}

	for _, tt := range tests {
		err := Validate(tt.name, KindEndpoint)
		if tt.wantErr {
			assert.Error(t, err, "name=%q", tt.name)
		} else {
			assert.NoError(t, err, "name=%q", tt.name)
		}
	}
}
