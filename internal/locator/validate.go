package locator

import (
	"fmt"

	"github.com/andybalholm/cascadia"
	"github.com/antchfx/xpath"
)

// Severity grades a catalog Issue.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Issue is a single catalog validation finding.
type Issue struct {
	Severity   Severity
	Field      string
	Expression string
	Message    string
}

func (issue Issue) String() string {
	if issue.Expression == "" {
		return fmt.Sprintf("%s: %s", issue.Field, issue.Message)
	}
	return fmt.Sprintf("%s: %q %s", issue.Field, issue.Expression, issue.Message)
}

// Validate checks each field's candidates compile and are not duplicated.
// Issues are ordered by field name, then by candidate position.
func Validate(catalog Catalog) []Issue {
	var issues []Issue
	for _, field := range catalog.Fields() {
		candidates := catalog[field]
		if len(candidates) == 0 {
			issues = append(issues, Issue{Severity: SeverityError, Field: field, Message: "has no candidates"})
			continue
		}
		seen := make(map[Strategy]struct{}, len(candidates))
		for _, strategy := range candidates {
			if _, duplicate := seen[strategy]; duplicate {
				issues = append(issues, Issue{Severity: SeverityWarning, Field: field, Expression: strategy.Expression, Message: "is listed more than once"})
				continue
			}
			seen[strategy] = struct{}{}
			if compileErr := compileStrategy(strategy); compileErr != nil {
				issues = append(issues, Issue{Severity: SeverityError, Field: field, Expression: strategy.Expression, Message: compileErr.Error()})
			}
		}
	}
	return issues
}

func compileStrategy(strategy Strategy) error {
	switch strategy.Kind {
	case KindCSS:
		if _, compileErr := cascadia.Compile(strategy.Expression); compileErr != nil {
			return fmt.Errorf("does not compile as css: %w", compileErr)
		}
	case KindXPath:
		if _, compileErr := xpath.Compile(strategy.Expression); compileErr != nil {
			return fmt.Errorf("does not compile as xpath: %w", compileErr)
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedKind, strategy.Kind)
	}
	return nil
}
