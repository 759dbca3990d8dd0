package locator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
)

const (
	errorMessageParseDocument   = "locator: parse document"
	errorMessageInvalidCSS      = "locator: invalid css selector"
	errorMessageInvalidXPath    = "locator: invalid xpath expression"
	errorMessageUnsupportedKind = "locator: unsupported strategy kind"
)

var (
	// ErrInvalidExpression indicates a strategy expression that cannot be compiled.
	ErrInvalidExpression = errors.New("locator: invalid expression")
	// ErrUnsupportedKind indicates a strategy kind the finder cannot evaluate.
	ErrUnsupportedKind = errors.New(errorMessageUnsupportedKind)
)

// DocumentFinder evaluates strategies against a static HTML snapshot, such as
// a captured page source.
type DocumentFinder struct {
	document *goquery.Document
}

// NewDocumentFinder parses the HTML read from reader.
func NewDocumentFinder(reader io.Reader) (*DocumentFinder, error) {
	document, parseErr := goquery.NewDocumentFromReader(reader)
	if parseErr != nil {
		return nil, fmt.Errorf("%s: %w", errorMessageParseDocument, parseErr)
	}
	return &DocumentFinder{document: document}, nil
}

// NewDocumentFinderFromString parses markup.
func NewDocumentFinderFromString(markup string) (*DocumentFinder, error) {
	return NewDocumentFinder(strings.NewReader(markup))
}

// Present reports whether at least one element matches strategy.
func (finder *DocumentFinder) Present(ctx context.Context, strategy Strategy) (bool, error) {
	count, countErr := finder.Count(ctx, strategy)
	if countErr != nil {
		return false, countErr
	}
	return count > 0, nil
}

// Count returns the number of elements matching strategy.
func (finder *DocumentFinder) Count(ctx context.Context, strategy Strategy) (int, error) {
	if contextErr := ctx.Err(); contextErr != nil {
		return 0, contextErr
	}
	switch strategy.Kind {
	case KindCSS:
		selector, compileErr := cascadia.Compile(strategy.Expression)
		if compileErr != nil {
			return 0, fmt.Errorf("%s %q: %w", errorMessageInvalidCSS, strategy.Expression, errors.Join(ErrInvalidExpression, compileErr))
		}
		return finder.document.FindMatcher(selector).Length(), nil
	case KindXPath:
		if len(finder.document.Nodes) == 0 {
			return 0, nil
		}
		nodes, queryErr := htmlquery.QueryAll(finder.document.Nodes[0], strategy.Expression)
		if queryErr != nil {
			return 0, fmt.Errorf("%s %q: %w", errorMessageInvalidXPath, strategy.Expression, errors.Join(ErrInvalidExpression, queryErr))
		}
		return len(nodes), nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedKind, strategy.Kind)
	}
}

// Text returns the trimmed text of the first CSS match, or "" when nothing matches.
func (finder *DocumentFinder) Text(selector string) string {
	return strings.TrimSpace(finder.document.Find(selector).First().Text())
}

// Title returns the document title.
func (finder *DocumentFinder) Title() string {
	return finder.Text("title")
}
