package prompt

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var (
	// ErrNotReference is returned when an identifier does not match the
	// prompt reference pattern.
	ErrNotReference = errors.New("prompt: identifier is not a prompt reference")

	// ErrTemplateNotFound is returned when the registry has no template
	// for the requested id and version.
	ErrTemplateNotFound = errors.New("prompt: template not found")
)

// Template is a stored prompt with the model it is bound to.
type Template struct {
	// Text is the prompt body, possibly containing {{name}} placeholders.
	Text string

	// ModelID is the backend model the prompt was authored for.
	ModelID string
}

// Registry fetches templates by id, optionally pinned to a version.
// An empty version selects the registry's current version.
type Registry interface {
	GetPrompt(ctx context.Context, id, version string) (*Template, error)
}

// Reference is a parsed prompt reference.
type Reference struct {
	ID      string
	Version string
}

// referenceSegment marks a prompt reference. In an ARN it follows a colon
// ("arn:...:prompt/<id>"); in a plain path form it follows a slash.
const referenceSegment = "prompt/"

// IsReference reports whether the model identifier denotes a stored prompt.
func IsReference(modelID string) bool {
	_, err := ParseReference(modelID)
	return err == nil
}

// ParseReference parses ".../prompt/<id>[:<version>]". The prefix before
// the prompt segment is ignored; only the trailing id and version matter.
func ParseReference(modelID string) (*Reference, error) {
	idx := strings.LastIndex(modelID, referenceSegment)
	if idx < 0 {
		return nil, ErrNotReference
	}
	if idx > 0 {
		switch modelID[idx-1] {
		case ':', '/':
		default:
			return nil, ErrNotReference
		}
	}

	rest := modelID[idx+len(referenceSegment):]
	if rest == "" || strings.Contains(rest, "/") {
		return nil, ErrNotReference
	}

	ref := &Reference{ID: rest}
	if id, version, found := strings.Cut(rest, ":"); found {
		if id == "" || version == "" {
			return nil, ErrNotReference
		}
		ref.ID = id
		ref.Version = version
	}
	return ref, nil
}

// VariableMismatchError reports a discrepancy between the placeholders in a
// template and the variables supplied with the request. Both sets are named
// so the caller can see the full mismatch, not just one direction.
type VariableMismatchError struct {
	Placeholders []string
	Supplied     []string
}

func (e *VariableMismatchError) Error() string {
	return fmt.Sprintf(
		"prompt: template placeholders %v do not match supplied variables %v",
		e.Placeholders, e.Supplied,
	)
}

var placeholderPattern = regexp.MustCompile(`\{\{([^{}]+)\}\}`)

// Placeholders returns the sorted, deduplicated placeholder names in text.
func Placeholders(text string) []string {
	seen := make(map[string]struct{})
	for _, match := range placeholderPattern.FindAllStringSubmatch(text, -1) {
		seen[match[1]] = struct{}{}
	}
	return sortedKeys(seen)
}

// Resolve fetches the referenced template and substitutes variables into it.
// The placeholder set must exactly equal the supplied variable set; any
// discrepancy in either direction fails with VariableMismatchError.
func Resolve(ctx context.Context, registry Registry, ref *Reference, variables map[string]string) (*Template, error) {
	template, err := registry.GetPrompt(ctx, ref.ID, ref.Version)
	if err != nil {
		return nil, err
	}

	placeholders := Placeholders(template.Text)
	supplied := make(map[string]struct{}, len(variables))
	for name := range variables {
		supplied[name] = struct{}{}
	}

	if !sameSet(placeholders, supplied) {
		return nil, &VariableMismatchError{
			Placeholders: placeholders,
			Supplied:     sortedKeys(supplied),
		}
	}

	text := template.Text
	for name, value := range variables {
		text = strings.ReplaceAll(text, "{{"+name+"}}", value)
	}

	return &Template{Text: text, ModelID: template.ModelID}, nil
}

func sameSet(names []string, set map[string]struct{}) bool {
	if len(names) != len(set) {
		return false
	}
	for _, name := range names {
		if _, ok := set[name]; !ok {
			return false
		}
	}
	return true
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
