package timing

// SkewClass grades a computed delay by magnitude. Minor skews are
// corrected silently, moderate skews are corrected with a warning (or
// escalated to review when auto-fix is disabled), and severe skews mark
// the stream as likely corrupt.
type SkewClass int

const (
	SkewNone SkewClass = iota
	SkewMinor
	SkewModerate
	SkewSevere
)

func (c SkewClass) String() string {
	switch c {
	case SkewNone:
		return "none"
	case SkewMinor:
		return "minor"
	case SkewModerate:
		return "moderate"
	case SkewSevere:
		return "severe"
	default:
		return "unknown"
	}
}

// ClassifySkew grades an absolute delay in milliseconds against the
// configured warn and error thresholds.
func ClassifySkew(delayMS, warnThresholdMS, errorThresholdMS int) SkewClass {
	if delayMS < 0 {
		delayMS = -delayMS
	}
	switch {
	case delayMS == 0:
		return SkewNone
	case warnThresholdMS <= 0 || delayMS <= warnThresholdMS:
		return SkewMinor
	case errorThresholdMS <= 0 || delayMS <= errorThresholdMS:
		return SkewModerate
	default:
		return SkewSevere
	}
}
