package ffmpeg

import (
	"fmt"
	"slices"
	"strings"
)

// OptionType represents a strongly typed transcoder input option
type OptionType string

// Input option constants
const (
	OptionNoBuffer           OptionType = "nobuffer"
	OptionLowDelay           OptionType = "low_delay"
	OptionFastProbe          OptionType = "fast_probe"
	OptionDropAudio          OptionType = "no_audio"
	OptionGeneratePTS        OptionType = "genpts"
	OptionDiscardCorrupt     OptionType = "discardcorrupt"
	OptionIgnoreErrors       OptionType = "ignore_err"
	OptionWallclockTimestamp OptionType = "wallclock_ts"
	OptionSocketTimeout5s    OptionType = "timeout_5s"
	OptionSocketTimeout15s   OptionType = "timeout_15s"
)

// OptionCategory represents option categories
type OptionCategory string

const (
	CategoryLatency     OptionCategory = "Latency"
	CategoryTiming      OptionCategory = "Timing"
	CategoryErrorHandle OptionCategory = "Error Handling"
	CategoryNetwork     OptionCategory = "Network"
)

// ExclusiveGroup represents a group of mutually exclusive options
type ExclusiveGroup string

const (
	GroupSocketTimeout ExclusiveGroup = "socket_timeout"
)

// Option describes an input flag with metadata
type Option struct {
	Key            OptionType      `json:"key"`
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	Category       OptionCategory  `json:"category"`
	Defaults       []Mode          `json:"defaults,omitempty"`        // modes that enable it by default
	FFmpegDefault  string          `json:"ffmpeg_default"`            // ffmpeg's own default value
	ExclusiveGroup *ExclusiveGroup `json:"exclusive_group,omitempty"` // group for mutually exclusive options
	ConflictsWith  []OptionType    `json:"conflicts_with,omitempty"`
}

func group(g ExclusiveGroup) *ExclusiveGroup { return &g }

// AllOptions contains every supported input option, in the order their
// arguments are emitted.
var AllOptions = []Option{
	{
		Key:           OptionNoBuffer,
		Name:          "No Buffering",
		Description:   "Do not buffer input packets before decoding",
		Category:      CategoryLatency,
		Defaults:      []Mode{ModeContinuous},
		FFmpegDefault: "disabled",
	},
	{
		Key:           OptionGeneratePTS,
		Name:          "Generate PTS",
		Description:   "Generate missing presentation timestamps",
		Category:      CategoryTiming,
		FFmpegDefault: "disabled",
		ConflictsWith: []OptionType{OptionWallclockTimestamp},
	},
	{
		Key:           OptionDiscardCorrupt,
		Name:          "Discard Corrupt Packets",
		Description:   "Drop packets flagged as corrupt instead of decoding them",
		Category:      CategoryErrorHandle,
		FFmpegDefault: "disabled",
	},
	{
		Key:           OptionLowDelay,
		Name:          "Low Delay",
		Description:   "Force low delay decoding",
		Category:      CategoryLatency,
		Defaults:      []Mode{ModeContinuous},
		FFmpegDefault: "disabled",
	},
	{
		Key:           OptionFastProbe,
		Name:          "Fast Probe",
		Description:   "Minimal probe size and no stream analysis before the first frame",
		Category:      CategoryLatency,
		Defaults:      []Mode{ModeContinuous},
		FFmpegDefault: "5000000 bytes, 5s",
	},
	{
		Key:           OptionWallclockTimestamp,
		Name:          "Wallclock Timestamps",
		Description:   "Use wallclock as timestamps for cameras with broken clocks",
		Category:      CategoryTiming,
		FFmpegDefault: "disabled",
		ConflictsWith: []OptionType{OptionGeneratePTS},
	},
	{
		Key:           OptionIgnoreErrors,
		Name:          "Ignore Errors",
		Description:   "Continue decoding despite bitstream errors",
		Category:      CategoryErrorHandle,
		FFmpegDefault: "disabled",
	},
	{
		Key:            OptionSocketTimeout5s,
		Name:           "Short Socket Timeout",
		Description:    "Give up on an unresponsive camera after 5 seconds",
		Category:       CategoryNetwork,
		FFmpegDefault:  "none",
		ExclusiveGroup: group(GroupSocketTimeout),
	},
	{
		Key:            OptionSocketTimeout15s,
		Name:           "Long Socket Timeout",
		Description:    "Give up on an unresponsive camera after 15 seconds",
		Category:       CategoryNetwork,
		FFmpegDefault:  "none",
		ExclusiveGroup: group(GroupSocketTimeout),
	},
	{
		Key:           OptionDropAudio,
		Name:          "Drop Audio",
		Description:   "Ignore the camera's audio track",
		Category:      CategoryLatency,
		Defaults:      []Mode{ModeContinuous},
		FFmpegDefault: "disabled",
	},
}

// GetOptionByKey returns an option by its key
func GetOptionByKey(key OptionType) *Option {
	for i := range AllOptions {
		if AllOptions[i].Key == key {
			return &AllOptions[i]
		}
	}
	return nil
}

// GetOptionsByCategory returns options grouped by category
func GetOptionsByCategory() map[OptionCategory][]Option {
	categories := make(map[OptionCategory][]Option)
	for _, option := range AllOptions {
		categories[option.Category] = append(categories[option.Category], option)
	}
	return categories
}

// GetDefaultOptions returns the options enabled by default for a mode
func GetDefaultOptions(mode Mode) []OptionType {
	var defaults []OptionType
	for _, option := range AllOptions {
		if slices.Contains(option.Defaults, mode) {
			defaults = append(defaults, option.Key)
		}
	}
	return defaults
}

// ParseOptions converts option keys from configuration into typed options
// and validates them.
func ParseOptions(keys []string) ([]OptionType, error) {
	opts := make([]OptionType, 0, len(keys))
	for _, k := range keys {
		opts = append(opts, OptionType(strings.TrimSpace(k)))
	}
	if err := ValidateOptions(opts); err != nil {
		return nil, err
	}
	return opts, nil
}

// ValidateOptions checks for unknown keys, conflicts and exclusive group violations
func ValidateOptions(selectedOptions []OptionType) error {
	exclusiveGroups := make(map[ExclusiveGroup][]OptionType)
	selectedSet := make(map[OptionType]bool)

	for _, optionKey := range selectedOptions {
		option := GetOptionByKey(optionKey)
		if option == nil {
			return fmt.Errorf("unknown transcoder option '%s'", optionKey)
		}
		selectedSet[optionKey] = true

		if option.ExclusiveGroup != nil {
			exclusiveGroups[*option.ExclusiveGroup] = append(exclusiveGroups[*option.ExclusiveGroup], optionKey)
		}
	}

	for group, options := range exclusiveGroups {
		if len(options) > 1 {
			var optionNames []string
			for _, opt := range options {
				optionNames = append(optionNames, GetOptionByKey(opt).Name)
			}
			return fmt.Errorf("multiple options from exclusive group '%s' selected: %s", group, strings.Join(optionNames, ", "))
		}
	}

	for _, optionKey := range selectedOptions {
		option := GetOptionByKey(optionKey)
		for _, conflictOpt := range option.ConflictsWith {
			if selectedSet[conflictOpt] {
				return fmt.Errorf("option '%s' conflicts with '%s'", option.Name, GetOptionByKey(conflictOpt).Name)
			}
		}
	}

	return nil
}

// optionArgs renders the selected options as input arguments. Arguments
// follow AllOptions order regardless of selection order, and fflags are
// merged into a single flag.
func optionArgs(selected []OptionType) []string {
	var args []string
	var fflags []string

	for _, option := range AllOptions {
		if !slices.Contains(selected, option.Key) {
			continue
		}
		switch option.Key {
		case OptionNoBuffer:
			fflags = append(fflags, "nobuffer")
		case OptionGeneratePTS:
			fflags = append(fflags, "genpts")
		case OptionDiscardCorrupt:
			fflags = append(fflags, "discardcorrupt")
		case OptionLowDelay:
			args = append(args, "-flags", "low_delay")
		case OptionFastProbe:
			args = append(args, "-probesize", "32", "-analyzeduration", "0")
		case OptionWallclockTimestamp:
			args = append(args, "-use_wallclock_as_timestamps", "1")
		case OptionIgnoreErrors:
			args = append(args, "-err_detect", "ignore_err")
		case OptionSocketTimeout5s:
			args = append(args, "-timeout", "5000000")
		case OptionSocketTimeout15s:
			args = append(args, "-timeout", "15000000")
		case OptionDropAudio:
			args = append(args, "-an")
		}
	}

	if len(fflags) > 0 {
		args = append([]string{"-fflags", strings.Join(fflags, "+")}, args...)
	}
	return args
}
