package timing

import (
	"fmt"
	"strconv"
	"strings"
)

// Method identifies a timing source in the reconciliation fallback chain.
type Method int

const (
	// MethodAuto tries every source in canonical order.
	MethodAuto Method = iota
	// MethodNavigation derives timestamps from DVD navigation data (the
	// first PTS of each elementary stream in the title program chain).
	MethodNavigation
	// MethodPresentation uses the probe's per-stream start_pts values.
	MethodPresentation
	// MethodProbeStart uses the probe's per-stream start_time values.
	MethodProbeStart
	// MethodNone is recorded when every source failed and the zero-delay
	// default was applied.
	MethodNone
)

func (m Method) String() string {
	switch m {
	case MethodAuto:
		return "auto"
	case MethodNavigation:
		return "navigation"
	case MethodPresentation:
		return "presentation"
	case MethodProbeStart:
		return "probestart"
	case MethodNone:
		return "none"
	default:
		return fmt.Sprintf("method(%d)", int(m))
	}
}

// MarshalText implements encoding.TextMarshaler for the metadata artifact.
func (m Method) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Method) UnmarshalText(text []byte) error {
	parsed, err := ParseMethod(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParseMethod converts a configuration string to a Method.
func ParseMethod(value string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "auto":
		return MethodAuto, nil
	case "navigation":
		return MethodNavigation, nil
	case "presentation":
		return MethodPresentation, nil
	case "probestart":
		return MethodProbeStart, nil
	default:
		return MethodAuto, fmt.Errorf("timing: unknown method %q", value)
	}
}

// canonicalOrder is the fallback chain used by auto mode. A non-auto
// preference is tried first, then the remaining methods in this order.
var canonicalOrder = []Method{MethodNavigation, MethodPresentation, MethodProbeStart}

// methodOrder builds the candidate attempt order for a preference.
func methodOrder(pref Method) []Method {
	if pref == MethodAuto || pref == MethodNone {
		return append([]Method(nil), canonicalOrder...)
	}
	order := []Method{pref}
	for _, m := range canonicalOrder {
		if m != pref {
			order = append(order, m)
		}
	}
	return order
}

// ParseTimebase interprets a probe time base string as seconds-per-tick.
// Accepts "num/den"; a plain number is treated as a rate (ticks per
// second); anything malformed degrades to whole seconds.
func ParseTimebase(value string) (num, den int64) {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 1, 1
	}
	if idx := strings.IndexByte(cleaned, '/'); idx >= 0 {
		n, errN := strconv.ParseInt(strings.TrimSpace(cleaned[:idx]), 10, 64)
		d, errD := strconv.ParseInt(strings.TrimSpace(cleaned[idx+1:]), 10, 64)
		if errN != nil || errD != nil || n <= 0 || d <= 0 {
			return 1, 1
		}
		return n, d
	}
	if rate, err := strconv.ParseInt(cleaned, 10, 64); err == nil && rate > 0 {
		return 1, rate
	}
	return 1, 1
}
