package gram

import (
	"os"
	"path/filepath"
	"strings"
)

// DefaultDMIPath holds the firmware identification attributes.
const DefaultDMIPath = "/sys/class/dmi/id"

// InfoField is one labelled system identifier.
type InfoField struct {
	Label string
	Value string
}

var dmiFields = []struct {
	file  string
	label string
}{
	{"sys_vendor", "Vendor"},
	{"product_name", "Product Name"},
	{"product_serial", "Serial Number"},
	{"bios_vendor", "BIOS Vendor"},
	{"bios_version", "BIOS Version"},
}

// ReadSystemInfo reads the identifiers under dir. Unreadable entries (the
// serial number is root-only) are reported as "Unknown".
func ReadSystemInfo(dir string) []InfoField {
	fields := make([]InfoField, 0, len(dmiFields))
	for _, f := range dmiFields {
		value := "Unknown"
		if data, err := os.ReadFile(filepath.Join(dir, f.file)); err == nil {
			if v := strings.TrimSpace(string(data)); v != "" {
				value = v
			}
		}
		fields = append(fields, InfoField{Label: f.label, Value: value})
	}
	return fields
}

// FormatSystemInfo renders fields as alternating label and value lines.
func FormatSystemInfo(fields []InfoField) string {
	var b strings.Builder
	for _, f := range fields {
		b.WriteString(f.Label)
		b.WriteByte('\n')
		b.WriteString(f.Value)
		b.WriteByte('\n')
	}
	return b.String()
}

// ParseSystemInfo reads alternating label and value lines. A trailing label
// without a value is dropped.
func ParseSystemInfo(s string) []InfoField {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	var fields []InfoField
	for i := 0; i+1 < len(lines); i += 2 {
		fields = append(fields, InfoField{Label: lines[i], Value: lines[i+1]})
	}
	return fields
}
