package valueobjects

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewTimeoutPolicyDefaults(t *testing.T) {
	p := NewTimeoutPolicy(0, 0)

	assert.Equal(t, uint32(5000), p.FloorMs)
	assert.Equal(t, uint32(120000), p.CeilingMs)
	assert.Equal(t, uint32(30000), p.CurrentMs)
	assert.Equal(t, uint32(30000), p.RecommendedMs)
}

func TestRecommendFromSuccess(t *testing.T) {
	tests := []struct {
		name    string
		totalMs uint32
		want    uint32
	}{
		{"fast probe clamps up to floor", 80, 5000},
		{"mid-range probe gets triple", 3000, 9000},
		{"slow probe clamps down to ceiling", 50000, 120000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewTimeoutPolicy(5000, 120000).RecommendFromSuccess(tt.totalMs)
			assert.Equal(t, tt.want, p.RecommendedMs)
		})
	}
}

func TestRecommendFromFailure(t *testing.T) {
	p := NewTimeoutPolicy(5000, 120000)
	p.CurrentMs = 10000
	assert.Equal(t, uint32(15000), p.RecommendFromFailure().RecommendedMs)

	p.CurrentMs = 90000
	assert.Equal(t, uint32(120000), p.RecommendFromFailure().RecommendedMs)
}

func TestApplyRecommendationIsExplicit(t *testing.T) {
	p := NewTimeoutPolicy(5000, 120000)

	recommended := p.RecommendFromSuccess(20000)
	assert.Equal(t, uint32(60000), recommended.RecommendedMs)
	assert.Equal(t, uint32(30000), recommended.CurrentMs)

	applied := recommended.ApplyRecommendation()
	assert.Equal(t, uint32(60000), applied.CurrentMs)
}

func TestRecommendationAlwaysWithinBounds(t *testing.T) {
	p := NewTimeoutPolicy(5000, 120000)
	for _, totalMs := range []uint32{0, 1, 1600, 40000, 100000, 4000000} {
		out := p.RecommendFromSuccess(totalMs)
		assert.GreaterOrEqual(t, out.RecommendedMs, p.FloorMs)
		assert.LessOrEqual(t, out.RecommendedMs, p.CeilingMs)
	}
}
