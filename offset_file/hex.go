package offset_file

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseHexList parses a comma separated list of hex values such as
// "0x1D2C3E0, 0x50, 0x20". The 0x prefix is optional. An empty string is an
// empty list.
func ParseHexList(s string) ([]uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	parts := strings.Split(s, ",")
	result := make([]uint64, 0, len(parts))
	for i, part := range parts {
		part = strings.TrimSpace(part)
		part = strings.TrimPrefix(strings.TrimPrefix(part, "0x"), "0X")
		if part == "" {
			return nil, fmt.Errorf("item %d of %q is empty", i, s)
		}
		v, err := strconv.ParseUint(part, 16, 64)
		if err != nil {
			return nil, fmt.Errorf("item %d of %q: %w", i, s, err)
		}
		result = append(result, v)
	}
	return result, nil
}

// ParseHexBytes parses a hex list whose items each fit in a byte.
func ParseHexBytes(s string) ([]byte, error) {
	values, err := ParseHexList(s)
	if err != nil {
		return nil, err
	}

	result := make([]byte, len(values))
	for i, v := range values {
		if v > 0xFF {
			return nil, fmt.Errorf("item %d of %q: 0x%x does not fit in a byte", i, s, v)
		}
		result[i] = byte(v)
	}
	return result, nil
}
