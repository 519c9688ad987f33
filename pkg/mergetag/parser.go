package mergetag

import (
	"regexp"
	"strings"

	"github.com/dukex/nurture/pkg/models"
)

var tagPattern = regexp.MustCompile(`\{\{\s*([^{}|]+?)\s*((?:\|[^{}]*)?)\}\}`)

// Modifier is one "|name" or "|name:\"arg\"" segment of a tag.
type Modifier struct {
	Name     string
	Argument string
}

// Tag is a parsed merge tag occurrence.
type Tag struct {
	Raw       string
	Path      string
	Modifiers []Modifier
}

// Parse returns every tag in text in order of appearance.
func Parse(text string) []Tag {
	matches := tagPattern.FindAllStringSubmatch(text, -1)
	tags := make([]Tag, 0, len(matches))

	for _, match := range matches {
		tags = append(tags, Tag{
			Raw:       match[0],
			Path:      models.NormalizePath(match[1]),
			Modifiers: parseModifiers(match[2]),
		})
	}

	return tags
}

// parseModifiers splits "|a|b:\"x|y\"" on pipes that are outside quotes.
func parseModifiers(chain string) []Modifier {
	chain = strings.TrimSpace(chain)
	if chain == "" {
		return nil
	}

	var (
		segments []string
		current  strings.Builder
		quote    rune
	)

	for _, r := range chain {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}

			current.WriteRune(r)
		case r == '"' || r == '\'':
			quote = r

			current.WriteRune(r)
		case r == '|':
			segments = append(segments, current.String())
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}

	segments = append(segments, current.String())

	modifiers := make([]Modifier, 0, len(segments))

	for _, segment := range segments {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}

		name, argument, _ := strings.Cut(segment, ":")
		modifiers = append(modifiers, Modifier{
			Name:     strings.ToLower(strings.TrimSpace(name)),
			Argument: unquote(strings.TrimSpace(argument)),
		})
	}

	return modifiers
}

func unquote(value string) string {
	if len(value) >= 2 {
		first, last := value[0], value[len(value)-1]
		if (first == '"' || first == '\'') && first == last {
			return value[1 : len(value)-1]
		}
	}

	return value
}
