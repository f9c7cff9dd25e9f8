package recipe

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Kind identifies what a step asks the agent to do.
type Kind string

const (
	KindNavigate        Kind = "NAVIGATE"
	KindClickBySelector Kind = "CLICK_BY_SELECTOR"
	KindTypeText        Kind = "TYPE_TEXT"
	KindWaitUntil       Kind = "WAIT_UNTIL"
	KindSleep           Kind = "SLEEP"
)

// Kinds lists every supported step kind in display order.
var Kinds = []Kind{KindNavigate, KindClickBySelector, KindTypeText, KindWaitUntil, KindSleep}

var ErrUnknownKind = errors.New("unknown step kind")

// Short names accepted by ParseKind.
var kindAliases = map[string]Kind{
	"NAV":   KindNavigate,
	"OPEN":  KindNavigate,
	"CLICK": KindClickBySelector,
	"TYPE":  KindTypeText,
	"WAIT":  KindWaitUntil,
}

// ParseKind accepts a kind name or short alias in any case.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToUpper(strings.TrimSpace(s)))
	if alias, ok := kindAliases[string(k)]; ok {
		return alias, nil
	}
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Action is the kind-specific payload of a step. The agent interprets the
// value at run time; nothing here checks its format.
type Action interface {
	Kind() Kind
	Value() string
}

// Navigate opens a URL.
type Navigate struct{ URL string }

// ClickBySelector clicks the first element matching a CSS selector.
type ClickBySelector struct{ Selector string }

// TypeText types literal text into the focused element.
type TypeText struct{ Text string }

// WaitUntil blocks until a condition expression holds.
type WaitUntil struct{ Condition string }

// Sleep pauses for a duration such as "2s".
type Sleep struct{ Duration string }

func (Navigate) Kind() Kind { return KindNavigate }
func (a Navigate) Value() string { return a.URL }
func (ClickBySelector) Kind() Kind { return KindClickBySelector }
func (a ClickBySelector) Value() string { return a.Selector }
func (TypeText) Kind() Kind { return KindTypeText }
func (a TypeText) Value() string { return a.Text }
func (WaitUntil) Kind() Kind { return KindWaitUntil }
func (a WaitUntil) Value() string { return a.Condition }
func (Sleep) Kind() Kind { return KindSleep }
func (a Sleep) Value() string { return a.Duration }

// NewAction builds the variant for kind. Empty values are allowed.
func NewAction(kind Kind, value string) (Action, error) {
	switch kind {
	case KindNavigate:
		return Navigate{URL: value}, nil
	case KindClickBySelector:
		return ClickBySelector{Selector: value}, nil
	case KindTypeText:
		return TypeText{Text: value}, nil
	case KindWaitUntil:
		return WaitUntil{Condition: value}, nil
	case KindSleep:
		return Sleep{Duration: value}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, string(kind))
	}
}

// Step is one positioned action inside a recipe.
type Step struct {
	Action Action
	Order  int
	// TransientID keys list rendering only. It is never persisted and must
	// not be used to compare steps.
	TransientID string
}

// Kind is shorthand for s.Action.Kind().
func (s Step) Kind() Kind {
	if s.Action == nil {
		return ""
	}
	return s.Action.Kind()
}

// Value is shorthand for s.Action.Value().
func (s Step) Value() string {
	if s.Action == nil {
		return ""
	}
	return s.Action.Value()
}

// stepRecord is the persisted shape of a step.
type stepRecord struct {
	Type  Kind   `json:"type" yaml:"type"`
	Value string `json:"value" yaml:"value"`
	Order int    `json:"order" yaml:"order"`
}

func (s Step) MarshalJSON() ([]byte, error) {
	if s.Action == nil {
		return nil, errors.New("step has no action")
	}
	return json.Marshal(stepRecord{Type: s.Kind(), Value: s.Value(), Order: s.Order})
}

func (s *Step) UnmarshalJSON(data []byte) error {
	var rec stepRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	action, err := NewAction(rec.Type, rec.Value)
	if err != nil {
		return err
	}
	*s = Step{Action: action, Order: rec.Order}
	return nil
}

// MarshalYAML exports a step in the same shape as the stored document.
func (s Step) MarshalYAML() (any, error) {
	if s.Action == nil {
		return nil, errors.New("step has no action")
	}
	return stepRecord{Type: s.Kind(), Value: s.Value(), Order: s.Order}, nil
}
