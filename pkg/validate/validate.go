package validate

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	json "github.com/goccy/go-json"

	"github.com/customfit-ai/customfit-go/pkg/events"
)

// Collector limits on a single event.
const (
	MaxNameLength     = 256
	MaxProperties     = 1000
	MaxNestingDepth   = 10
	MaxSerializedSize = 100 * 1024
)

// Sentinel validation errors.
var (
	ErrEmptyName         = errors.New("validate: event name is empty")
	ErrNameTooLong       = errors.New("validate: event name exceeds length limit")
	ErrInvalidName       = errors.New("validate: event name contains control characters")
	ErrTooManyProperties = errors.New("validate: too many properties")
	ErrTooDeeplyNested   = errors.New("validate: properties nested too deeply")
	ErrPropertiesTooBig  = errors.New("validate: serialized properties exceed size limit")
)

// EventValidator enforces the collector limits. The zero value is ready
// to use.
type EventValidator struct{}

// New returns an EventValidator.
func New() *EventValidator { return &EventValidator{} }

// ValidateName trims surrounding whitespace and checks the name against
// the collector limits, returning the cleaned name.
func (*EventValidator) ValidateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrEmptyName
	}
	if len(name) > MaxNameLength {
		return "", fmt.Errorf("%w: %d > %d bytes", ErrNameTooLong, len(name), MaxNameLength)
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return "", ErrInvalidName
		}
	}
	return name, nil
}

// ValidateProperties checks entry count, nesting depth, and serialized
// size. A nil property set is valid.
func (*EventValidator) ValidateProperties(props events.Properties) (events.Properties, error) {
	if props == nil {
		return nil, nil
	}
	if props.Len() > MaxProperties {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyProperties, props.Len(), MaxProperties)
	}

	for _, p := range props {
		if sub, ok := p.Value.AsJSON(); ok {
			// The property object itself is one level.
			if depth(sub)+1 > MaxNestingDepth {
				return nil, fmt.Errorf("%w: key %q", ErrTooDeeplyNested, p.Key)
			}
		}
	}

	data, err := json.Marshal(props)
	if err != nil {
		return nil, fmt.Errorf("validate: properties are not serializable: %w", err)
	}
	if len(data) > MaxSerializedSize {
		return nil, fmt.Errorf("%w: %d > %d bytes", ErrPropertiesTooBig, len(data), MaxSerializedSize)
	}
	return props, nil
}

// depth measures the nesting depth of a decoded JSON subtree. Scalars
// count one level, containers add one per layer.
func depth(v any) int {
	switch t := v.(type) {
	case map[string]any:
		deepest := 0
		for _, child := range t {
			deepest = max(deepest, depth(child))
		}
		return deepest + 1
	case []any:
		deepest := 0
		for _, child := range t {
			deepest = max(deepest, depth(child))
		}
		return deepest + 1
	default:
		return 1
	}
}
