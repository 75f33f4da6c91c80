package builder

import (
	"fmt"

	"github.com/joehsn/formify/model"
)

// PlaceholderOptions seeds a field that becomes enum-like with nothing to
// carry over.
func PlaceholderOptions() []string {
	return []string{placeholderOption(1), placeholderOption(2)}
}

func placeholderOption(n int) string {
	return fmt.Sprintf("Option %d", n)
}

// ApplyType switches f to type t and reconciles the data that only makes
// sense for some types:
//
//   - into radio/checkbox/dropdown: existing options are kept, otherwise two
//     placeholders are added;
//   - out of radio/checkbox/dropdown: options are dropped;
//   - to anything but text: validations are dropped.
func ApplyType(f *model.Field, t model.FieldType) {
	if f.Type == t {
		return
	}
	f.Type = t

	if t.IsEnum() {
		if len(f.Options) == 0 {
			f.Options = PlaceholderOptions()
		}
	} else {
		f.Options = nil
	}

	if t != model.TypeText {
		f.Validations = nil
	}
}
