package locator

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const (
	errorMessageUnresolved      = "locator: no candidate resolved"
	errorMessageEmptyCandidates = "locator: empty candidate list"
	kindNameCSS                 = "css"
	kindNameXPath               = "xpath"
	kindNameUnknown             = "unknown"
	strategyStringFormat        = "%s=%s"
	xpathRootPrefix             = "/"
	xpathGroupPrefix            = "(/"
	xpathRelativePrefix         = "./"
)

var (
	// ErrUnresolved indicates that no strategy of a candidate list matched the document.
	ErrUnresolved = errors.New(errorMessageUnresolved)
	// ErrEmptyCandidates indicates a lookup was attempted with no strategies at all.
	ErrEmptyCandidates = errors.New(errorMessageEmptyCandidates)
)

// Kind identifies the query language of a Strategy.
type Kind int

const (
	KindCSS Kind = iota
	KindXPath
)

func (kind Kind) String() string {
	switch kind {
	case KindCSS:
		return kindNameCSS
	case KindXPath:
		return kindNameXPath
	default:
		return kindNameUnknown
	}
}

// Strategy is one way of locating an element.
type Strategy struct {
	Kind       Kind
	Expression string
}

// CSS builds a CSS selector strategy.
func CSS(expression string) Strategy {
	return Strategy{Kind: KindCSS, Expression: strings.TrimSpace(expression)}
}

// XPath builds an XPath strategy.
func XPath(expression string) Strategy {
	return Strategy{Kind: KindXPath, Expression: strings.TrimSpace(expression)}
}

// ParseStrategy infers the strategy kind from the expression: anything rooted
// at "/" or "(/" or "./" is XPath, everything else CSS.
func ParseStrategy(expression string) Strategy {
	trimmed := strings.TrimSpace(expression)
	if strings.HasPrefix(trimmed, xpathRootPrefix) ||
		strings.HasPrefix(trimmed, xpathGroupPrefix) ||
		strings.HasPrefix(trimmed, xpathRelativePrefix) {
		return XPath(trimmed)
	}
	return CSS(trimmed)
}

func (strategy Strategy) String() string {
	return fmt.Sprintf(strategyStringFormat, strategy.Kind, strategy.Expression)
}

// Candidates is an ordered list of strategies tried first to last.
type Candidates []Strategy

// Parse builds Candidates from raw expressions, preserving order.
func Parse(expressions ...string) Candidates {
	candidates := make(Candidates, 0, len(expressions))
	for _, expression := range expressions {
		if strings.TrimSpace(expression) == "" {
			continue
		}
		candidates = append(candidates, ParseStrategy(expression))
	}
	return candidates
}

// Expressions returns the raw expressions in declared order.
func (candidates Candidates) Expressions() []string {
	expressions := make([]string, 0, len(candidates))
	for _, strategy := range candidates {
		expressions = append(expressions, strategy.Expression)
	}
	return expressions
}

// Finder reports whether a strategy currently matches at least one element.
type Finder interface {
	Present(ctx context.Context, strategy Strategy) (bool, error)
}

// FinderFunc adapts a function to the Finder interface.
type FinderFunc func(ctx context.Context, strategy Strategy) (bool, error)

func (finderFunc FinderFunc) Present(ctx context.Context, strategy Strategy) (bool, error) {
	return finderFunc(ctx, strategy)
}

// Resolution records which candidate won for a logical field.
type Resolution struct {
	Field    string
	Strategy Strategy
	Index    int
}

// UnresolvedError lists every candidate tried for a field.
type UnresolvedError struct {
	Field    string
	Tried    Candidates
	Failures []error
}

func (unresolvedError *UnresolvedError) Error() string {
	var builder strings.Builder
	builder.WriteString(errorMessageUnresolved)
	builder.WriteString(" for ")
	builder.WriteString(unresolvedError.Field)
	builder.WriteString(" [")
	for index, strategy := range unresolvedError.Tried {
		if index > 0 {
			builder.WriteString(", ")
		}
		builder.WriteString(strategy.String())
	}
	builder.WriteString("]")
	if len(unresolvedError.Failures) > 0 {
		builder.WriteString(": ")
		builder.WriteString(errors.Join(unresolvedError.Failures...).Error())
	}
	return builder.String()
}

func (unresolvedError *UnresolvedError) Is(target error) bool {
	return target == ErrUnresolved
}

// Resolve evaluates candidates in declared order and returns the first one the
// finder reports present. A finder error on one candidate is recorded and the
// next candidate is tried. Context cancellation stops the walk.
func Resolve(ctx context.Context, finder Finder, field string, candidates Candidates) (Resolution, error) {
	if len(candidates) == 0 {
		return Resolution{}, fmt.Errorf("%w: %s", ErrEmptyCandidates, field)
	}

	var failures []error
	for index, strategy := range candidates {
		if contextErr := ctx.Err(); contextErr != nil {
			return Resolution{}, contextErr
		}
		present, findErr := finder.Present(ctx, strategy)
		if findErr != nil {
			failures = append(failures, fmt.Errorf("%s: %w", strategy, findErr))
			continue
		}
		if present {
			return Resolution{Field: field, Strategy: strategy, Index: index}, nil
		}
	}

	return Resolution{}, &UnresolvedError{Field: field, Tried: candidates, Failures: failures}
}

// ResolveFields resolves every field before returning, so callers can decide
// to interact only once all of them are known to exist.
func ResolveFields(ctx context.Context, finder Finder, catalog Catalog, fields ...string) ([]Resolution, error) {
	resolutions := make([]Resolution, 0, len(fields))
	for _, field := range fields {
		candidates, lookupErr := catalog.Candidates(field)
		if lookupErr != nil {
			return nil, lookupErr
		}
		resolution, resolveErr := Resolve(ctx, finder, field, candidates)
		if resolveErr != nil {
			return nil, resolveErr
		}
		resolutions = append(resolutions, resolution)
	}
	return resolutions, nil
}
