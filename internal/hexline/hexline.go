// Package hexline parses bracketed hex byte lists out of text lines.
//
// A line like
//
//	packet 3: [01, 7F, 0x02] trailer
//
// carries one payload: the first bracketed region whose interior looks like
// a comma/whitespace separated token list. Everything before, between, and
// after the region is ignored. Lines without such a region carry no payload
// and are not an error.
package hexline

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	// ErrInvalidToken is returned when a token is not a hex byte after the
	// optional 0x prefix is stripped.
	ErrInvalidToken = errors.New("hexline: invalid hex token")

	// ErrValueOutOfRange is returned when a token parses but exceeds 0xFF.
	ErrValueOutOfRange = errors.New("hexline: value out of byte range")
)

var (
	// Candidate region: interior is alphanumerics, commas, and whitespace.
	// Wider than strict hex so that [GG, 01] reports the bad token instead
	// of being skipped as unrelated text.
	listRE = regexp.MustCompile(`\[([0-9A-Za-z,\s]*)\]`)
	sepRE  = regexp.MustCompile(`[,\s]+`)
	hexRE  = regexp.MustCompile(`^[0-9A-Fa-f]+$`)
)

// Parse extracts the first bracketed hex list from line and returns it as a
// byte payload. found reports whether a candidate region was present at all;
// an empty list [] is found with a zero-length payload. Parse is pure and
// safe for concurrent use.
func Parse(line string) (payload []byte, found bool, err error) {
	m := listRE.FindStringSubmatch(line)
	if m == nil {
		return nil, false, nil
	}
	out := []byte{}
	for _, tok := range sepRE.Split(strings.TrimSpace(m[1]), -1) {
		if tok == "" {
			continue
		}
		clean := tok
		if len(clean) >= 2 && (clean[:2] == "0x" || clean[:2] == "0X") {
			clean = clean[2:]
		}
		if !hexRE.MatchString(clean) {
			return nil, true, fmt.Errorf("%w: %q", ErrInvalidToken, tok)
		}
		v, perr := strconv.ParseUint(clean, 16, 64)
		if perr != nil || v > 0xFF {
			// ParseUint only fails here on overflow, which is out of range
			// by definition.
			return nil, true, fmt.Errorf("%w: %q", ErrValueOutOfRange, tok)
		}
		out = append(out, byte(v))
	}
	return out, true, nil
}

// Format renders a payload as a bracketed list of uppercase hex bytes,
// e.g. "[01, 7F, FF]". Format output re-parses to an identical payload.
func Format(payload []byte) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range payload {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%02X", v)
	}
	b.WriteByte(']')
	return b.String()
}
