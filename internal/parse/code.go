package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var codeRe = regexp.MustCompile(`^DU-(\d{4})-(\d{3,})$`)

// ParsedCode holds the structured data parsed from a container code.
type ParsedCode struct {
	Year int
	Seq  int
}

// ParseCode extracts the provisioning year and sequence number from a
// container code such as "DU-2026-001". Whitespace around the code is
// tolerated; anything else is rejected.
func ParseCode(raw string) (ParsedCode, error) {
	s := strings.TrimSpace(raw)
	m := codeRe.FindStringSubmatch(s)
	if m == nil {
		return ParsedCode{}, fmt.Errorf("unable to parse container code: %q", raw)
	}

	year, err := strconv.Atoi(m[1])
	if err != nil {
		return ParsedCode{}, fmt.Errorf("invalid year in container code %q: %w", raw, err)
	}
	seq, err := strconv.Atoi(m[2])
	if err != nil {
		return ParsedCode{}, fmt.Errorf("invalid sequence in container code %q: %w", raw, err)
	}
	if seq == 0 {
		return ParsedCode{}, fmt.Errorf("container sequence starts at 1: %q", raw)
	}

	return ParsedCode{Year: year, Seq: seq}, nil
}

// FormatCode renders a container code in the canonical DU-<year>-<seq> form.
func FormatCode(year, seq int) string {
	return fmt.Sprintf("DU-%04d-%03d", year, seq)
}
