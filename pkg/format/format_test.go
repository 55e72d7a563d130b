package format

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDuration(t *testing.T) {
	tests := []struct {
		want string
		in   time.Duration
	}{
		{"1.5ms", 1500 * time.Microsecond},
		{"42s", 42 * time.Second},
		{"3m5s", 3*time.Minute + 5*time.Second},
		{"2h0m1s", 2*time.Hour + time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Duration(tt.in))
	}
}

func TestRatio(t *testing.T) {
	assert.Equal(t, "0%", Ratio(3, 0))
	assert.Equal(t, "100%", Ratio(4, 4))
	assert.Equal(t, "33.3%", Ratio(1, 3))
}

func TestBytes(t *testing.T) {
	assert.Equal(t, "25GiB", Bytes(25<<30))
	assert.Equal(t, "512B", Bytes(512))
}

func TestTimeAgo(t *testing.T) {
	assert.Equal(t, "never", TimeAgo(time.Time{}))
	assert.Equal(t, "2h ago", TimeAgo(time.Now().Add(-2*time.Hour)))
	assert.Equal(t, "5s", TimeDuration(5*time.Second))
	assert.Equal(t, "3d", TimeDuration(72*time.Hour))
}
