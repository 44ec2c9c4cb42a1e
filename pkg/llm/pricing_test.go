package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrice(t *testing.T) {
	got := price(1000, 500, 0.01, 0.03)
	assert.InDelta(t, 0.025, got, 1e-9)
}

func TestPrice_Zero(t *testing.T) {
	assert.Equal(t, 0.0, price(0, 0, 0.01, 0.03))
}

func TestClassifyHTTPStatus(t *testing.T) {
	cases := []struct {
		status int
		want   ErrorKind
	}{
		{429, ErrRateLimit},
		{413, ErrContextTooLarge},
		{500, ErrTransient},
		{503, ErrTransient},
		{401, ErrProviderInvalid},
		{400, ErrProviderInvalid},
		{404, ErrPermanent},
	}
	for _, c := range cases {
		kind, ok := classifyHTTPStatus(c.status)
		assert.True(t, ok)
		assert.Equal(t, c.want, kind)
	}
	_, ok := classifyHTTPStatus(200)
	assert.False(t, ok)
}
