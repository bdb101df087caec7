package finding

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeverityRank(t *testing.T) {
	assert.Greater(t, SeverityCritical.Rank(), SeverityHigh.Rank())
	assert.Greater(t, SeverityHigh.Rank(), SeverityMedium.Rank())
	assert.Greater(t, SeverityMedium.Rank(), SeverityLow.Rank())
	assert.Greater(t, SeverityLow.Rank(), SeverityInfo.Rank())
}

func TestSeverityValid(t *testing.T) {
	for _, s := range Severities() {
		assert.True(t, s.Valid(), "severity %s", s)
	}
	assert.False(t, Severity("enormous").Valid())
	assert.False(t, Severity("").Valid())
}

func TestSummarize(t *testing.T) {
	findings := []Finding{
		{Severity: SeverityCritical},
		{Severity: SeverityCritical},
		{Severity: SeverityHigh},
		{Severity: SeverityInfo},
	}
	s := Summarize(findings)
	assert.Equal(t, Summary{Critical: 2, High: 1, Info: 1}, s)
}

func TestSummarize_Empty(t *testing.T) {
	assert.Equal(t, Summary{}, Summarize(nil))
}
