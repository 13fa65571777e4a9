package gram

import (
	"fmt"
	"strings"
)

// Setting identifiers exposed by the lg-laptop platform driver.
const (
	BatteryCareLimit = "battery_care_limit"
	FnLock           = "fn_lock"
	USBCharge        = "usb_charge"
	ReaderMode       = "reader_mode"
	FanMode          = "fan_mode"
)

// Choice is one selectable value of a Setting, paired with the label shown
// to the user. A Setting's choices are ordered; a control's selected index
// maps directly onto this order.
type Choice struct {
	Label string
	Value string
}

// Setting describes one hardware feature and the closed set of values it
// accepts. The first choice is the default ("off") value.
type Setting struct {
	ID      string
	Title   string
	Choices []Choice
}

var onOff = []Choice{
	{Label: "Disabled", Value: "0"},
	{Label: "Enabled", Value: "1"},
}

// whitelist is the fixed set of settings the writer will touch.
var whitelist = []Setting{
	{
		ID:    BatteryCareLimit,
		Title: "Battery Care Limit",
		Choices: []Choice{
			{Label: "No Limit", Value: "100"},
			{Label: "Limit to 80%", Value: "80"},
		},
	},
	{ID: FnLock, Title: "Fn Lock", Choices: onOff},
	{ID: USBCharge, Title: "USB Charge", Choices: onOff},
	{ID: ReaderMode, Title: "Reader Mode", Choices: onOff},
	{
		ID:    FanMode,
		Title: "Fan Mode",
		Choices: []Choice{
			{Label: "Optimized", Value: "0"},
			{Label: "Silent", Value: "1"},
			{Label: "Performance", Value: "2"},
		},
	},
}

// Settings returns the whitelisted settings in display order.
func Settings() []Setting {
	out := make([]Setting, len(whitelist))
	copy(out, whitelist)
	return out
}

// Lookup returns the whitelisted Setting with the given id.
func Lookup(id string) (Setting, error) {
	for _, s := range whitelist {
		if s.ID == id {
			return s, nil
		}
	}
	return Setting{}, fmt.Errorf("%w: %q", ErrUnknownSetting, id)
}

// ParseAssignment splits a "setting=value" argument and validates both
// halves against the whitelist.
func ParseAssignment(arg string) (Setting, string, error) {
	id, value, ok := strings.Cut(arg, "=")
	if !ok {
		return Setting{}, "", fmt.Errorf("%w: expected <setting>=<value>, got %q", ErrUsage, arg)
	}
	setting, err := Lookup(id)
	if err != nil {
		return Setting{}, "", err
	}
	if err := setting.Validate(value); err != nil {
		return Setting{}, "", err
	}
	return setting, value, nil
}

// Default returns the setting's default choice.
func (s Setting) Default() Choice {
	return s.Choices[0]
}

// IsDefault reports whether value is the setting's default value.
func (s Setting) IsDefault(value string) bool {
	return len(s.Choices) > 0 && s.Choices[0].Value == value
}

// Index returns the position of value among the setting's choices, or -1.
func (s Setting) Index(value string) int {
	for i, c := range s.Choices {
		if c.Value == value {
			return i
		}
	}
	return -1
}

// Choice returns the choice at index.
func (s Setting) Choice(index int) (Choice, bool) {
	if index < 0 || index >= len(s.Choices) {
		return Choice{}, false
	}
	return s.Choices[index], true
}

// Resolve accepts either a raw value or a choice label (case-insensitive)
// and returns the matching index.
func (s Setting) Resolve(input string) (int, error) {
	if i := s.Index(input); i >= 0 {
		return i, nil
	}
	for i, c := range s.Choices {
		if strings.EqualFold(c.Label, input) {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %s does not accept %q (allowed: %s)", ErrInvalidValue, s.ID, input, s.allowed())
}

// Validate rejects any value outside the setting's closed value set.
func (s Setting) Validate(value string) error {
	if len(s.Choices) == 0 {
		return fmt.Errorf("%w: %s has no allowed values", ErrInvalidValue, s.ID)
	}
	if s.Index(value) < 0 {
		return fmt.Errorf("%w: %s does not accept %q (allowed: %s)", ErrInvalidValue, s.ID, value, s.allowed())
	}
	return nil
}

func (s Setting) allowed() string {
	values := make([]string, len(s.Choices))
	for i, c := range s.Choices {
		values[i] = c.Value
	}
	return strings.Join(values, "/")
}
