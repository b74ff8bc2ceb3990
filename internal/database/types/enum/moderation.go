package enum

import "fmt"

// RuleType identifies which detection rule produced a verdict.
type RuleType int

const (
	// RuleTypeSpam indicates message rate or duplicate content detection.
	RuleTypeSpam RuleType = iota
	// RuleTypeRaid indicates coordinated join burst detection.
	RuleTypeRaid
	// RuleTypeContentFilter indicates a blocklist term or pattern match.
	RuleTypeContentFilter
)

// String returns the rule type name.
func (r RuleType) String() string {
	switch r {
	case RuleTypeSpam:
		return "Spam"
	case RuleTypeRaid:
		return "Raid"
	case RuleTypeContentFilter:
		return "ContentFilter"
	default:
		return fmt.Sprintf("RuleType(%d)", int(r))
	}
}

// Severity ranks how serious a detection verdict is.
// Higher values always outrank lower ones when verdicts are merged.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

// String returns the severity name.
func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "Low"
	case SeverityMedium:
		return "Medium"
	case SeverityHigh:
		return "High"
	case SeverityCritical:
		return "Critical"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// Raise returns the severity one level above s, capped at Critical.
func (s Severity) Raise() Severity {
	if s >= SeverityCritical {
		return SeverityCritical
	}

	return s + 1
}

// FlagStatus tracks where a flagged event is in its review lifecycle.
// Transitions are one-way: Pending is the only non-terminal state apart
// from Acknowledged, which may still move to Actioned.
type FlagStatus int

const (
	// FlagStatusPending means no moderator has looked at the event yet.
	FlagStatusPending FlagStatus = iota
	// FlagStatusAcknowledged means a moderator has seen the event but not acted.
	FlagStatusAcknowledged
	// FlagStatusDismissed means the event needs no action. Terminal.
	FlagStatusDismissed
	// FlagStatusActioned means a moderation action was recorded. Terminal.
	FlagStatusActioned
)

// String returns the flag status name.
func (s FlagStatus) String() string {
	switch s {
	case FlagStatusPending:
		return "Pending"
	case FlagStatusAcknowledged:
		return "Acknowledged"
	case FlagStatusDismissed:
		return "Dismissed"
	case FlagStatusActioned:
		return "Actioned"
	default:
		return fmt.Sprintf("FlagStatus(%d)", int(s))
	}
}

// CaseType identifies the moderation action a case records.
type CaseType int

const (
	CaseTypeWarn CaseType = iota
	CaseTypeKick
	CaseTypeBan
	CaseTypeMute
	CaseTypeNote
)

// String returns the case type name.
func (c CaseType) String() string {
	switch c {
	case CaseTypeWarn:
		return "Warn"
	case CaseTypeKick:
		return "Kick"
	case CaseTypeBan:
		return "Ban"
	case CaseTypeMute:
		return "Mute"
	case CaseTypeNote:
		return "Note"
	default:
		return fmt.Sprintf("CaseType(%d)", int(c))
	}
}

// IsTemporary reports whether the case type supports a duration that the
// expiration sweep must eventually lift.
func (c CaseType) IsTemporary() bool {
	return c == CaseTypeBan || c == CaseTypeMute
}

// ConfigMode selects how a guild's moderation thresholds are sourced.
// The three simple presets expand to built-in sub-configs; Advanced uses
// the sub-configs stored on the guild record verbatim.
type ConfigMode int

const (
	ConfigModeStandard ConfigMode = iota
	ConfigModeLenient
	ConfigModeStrict
	ConfigModeAdvanced
)

// String returns the config mode name.
func (m ConfigMode) String() string {
	switch m {
	case ConfigModeStandard:
		return "Standard"
	case ConfigModeLenient:
		return "Lenient"
	case ConfigModeStrict:
		return "Strict"
	case ConfigModeAdvanced:
		return "Advanced"
	default:
		return fmt.Sprintf("ConfigMode(%d)", int(m))
	}
}
