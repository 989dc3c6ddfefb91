package tune

import (
	"context"
	"strings"

	"github.com/lakshaymaurya-felt/macmole/internal/runner"
)

// ParsePmsetCustom parses `pmset -g custom` into per-source settings:
//
//	Battery Power:
//	 standby              1
//	AC Power:
//	 standby              1
func ParsePmsetCustom(out string) map[string]map[string]string {
	sections := make(map[string]map[string]string)
	current := ""

	for _, line := range strings.Split(out, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if strings.HasSuffix(trimmed, ":") && !strings.HasPrefix(line, " ") {
			current = strings.TrimSuffix(trimmed, ":")
			sections[current] = make(map[string]string)
			continue
		}
		if current == "" {
			continue
		}
		fields := strings.Fields(trimmed)
		if len(fields) < 2 {
			continue
		}
		sections[current][fields[0]] = fields[1]
	}
	return sections
}

// effectivePower picks the AC Power section, falling back to any section
// (desktops report only AC, some report "System-wide").
func effectivePower(sections map[string]map[string]string) map[string]string {
	if ac, ok := sections["AC Power"]; ok {
		return ac
	}
	for _, name := range []string{"Battery Power", "UPS Power"} {
		if s, ok := sections[name]; ok {
			return s
		}
	}
	for _, s := range sections {
		return s
	}
	return map[string]string{}
}

// ReadPower returns the current pmset values.
func ReadPower(ctx context.Context, r runner.Runner) (map[string]string, error) {
	out, err := runner.Output(ctx, r, "pmset", "-g", "custom")
	if err != nil {
		return nil, err
	}
	return effectivePower(ParsePmsetCustom(out)), nil
}
