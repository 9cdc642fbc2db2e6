package offers

import (
	"strconv"
	"strings"

	"github.com/m3rciful/offerbot/models"
)

// Form is the parsed admin input for creating or editing an offer.
type Form struct {
	Name        string
	LinkPattern string
	Templates   []string
	Delays      []int64
}

// ParseForm reads the keyed-line offer form admins type into the chat:
//
//	name: Summer promo
//	link: https://track.example/land
//	pb: https://cb.example/?tid=$clickid 0
//	pb: https://cb2.example/?tid=$clickid 30
//
// Each pb: line carries a URL template and a delay in seconds applied after
// that step. Unknown keys and blank lines are rejected to catch typos early.
func ParseForm(text string) (*Form, error) {
	f := &Form{}
	for ln, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		key, rest, found := strings.Cut(line, ":")
		if !found {
			return nil, models.NewValidationError("form", "line %d: expected 'key: value', got %q", ln+1, line)
		}
		rest = strings.TrimSpace(rest)
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "name":
			f.Name = rest
		case "link":
			f.LinkPattern = rest
		case "pb":
			tpl, delay, err := parsePBLine(ln+1, rest)
			if err != nil {
				return nil, err
			}
			f.Templates = append(f.Templates, tpl)
			f.Delays = append(f.Delays, delay)
		default:
			return nil, models.NewValidationError("form", "line %d: unknown key %q (allowed: name, link, pb)", ln+1, strings.TrimSpace(key))
		}
	}
	if f.Name == "" {
		return nil, models.NewValidationError("form", "missing 'name:' line")
	}
	if len(f.Templates) == 0 {
		return nil, models.NewValidationError("form", "missing 'pb:' lines (need 1 to %d)", MaxSteps)
	}
	return f, nil
}

func parsePBLine(ln int, rest string) (string, int64, error) {
	fields := strings.Fields(rest)
	switch len(fields) {
	case 1:
		return fields[0], 0, nil
	case 2:
		delay, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil || delay < 0 {
			return "", 0, models.NewValidationError("form", "line %d: delay %q must be a non-negative number of seconds", ln, fields[1])
		}
		return fields[0], delay, nil
	default:
		return "", 0, models.NewValidationError("form", "line %d: expected 'pb: <url> [delay_seconds]'", ln)
	}
}
