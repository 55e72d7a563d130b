package filter

import (
	"fmt"
	"strings"

	"github.com/docker/go-units"
)

// ParseSize converts a human readable size such as "25GB" or "512 MiB" to
// bytes. Decimal suffixes use powers of 1000, binary suffixes powers of 1024.
func ParseSize(human string) (int64, error) {
	s := strings.TrimSpace(human)
	if s == "" {
		return 0, fmt.Errorf("size is empty")
	}

	var (
		n   int64
		err error
	)
	if strings.Contains(strings.ToLower(s), "ib") {
		n, err = units.RAMInBytes(s)
	} else {
		n, err = units.FromHumanSize(s)
	}
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", human, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid size %q: negative", human)
	}
	return n, nil
}

// FormatSize renders bytes the way sizes are written in filter params
func FormatSize(bytes int64) string {
	return units.HumanSizeWithPrecision(float64(bytes), 3)
}
