package report

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/osteele/liquid"
)

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func registerFilters(engine *liquid.Engine) {
	// Byte count as kilobytes: {{ currentBytes | kb }}
	engine.RegisterFilter("kb", func(value any) string {
		f, ok := toFloat(value)
		if !ok {
			return fmt.Sprintf("%v", value)
		}
		return fmt.Sprintf("%.1f KB", f/1024)
	})

	// Percentage with one decimal: {{ savingsPercent | pct }}
	engine.RegisterFilter("pct", func(value any) string {
		f, ok := toFloat(value)
		if !ok {
			return fmt.Sprintf("%v", value)
		}
		return fmt.Sprintf("%.1f%%", f)
	})

	// Right-pad to a column width: {{ field | pad: 20 }}
	engine.RegisterFilter("pad", func(value any, width int) string {
		s := fmt.Sprintf("%v", value)
		if n := utf8.RuneCountInString(s); n < width {
			return s + strings.Repeat(" ", width-n)
		}
		return s
	})

	// Horizontal rule: {{ "=" | rule: 60 }}
	engine.RegisterFilter("rule", func(s string, n int) string {
		return strings.Repeat(s, n)
	})

	// Seconds from a time.Duration encoded as nanoseconds.
	engine.RegisterFilter("seconds", func(value any) string {
		f, ok := toFloat(value)
		if !ok {
			return fmt.Sprintf("%v", value)
		}
		return fmt.Sprintf("%.0fs", f/1e9)
	})

	// Indented JSON: {{ record | json: 4 }}
	engine.RegisterFilter("json", func(value any, indent int) string {
		prefix := strings.Repeat(" ", indent)
		b, err := json.MarshalIndent(value, prefix, "  ")
		if err != nil {
			return fmt.Sprintf("%v", value)
		}
		return prefix + string(b)
	})
}
