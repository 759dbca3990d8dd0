package locator

import (
	"fmt"
	"strings"
)

const (
	buttonWithTextFormat  = "//button[contains(text(), %s)]"
	linkWithTextFormat    = "//a[contains(text(), %s)]"
	anyWithTextFormat     = "//*[contains(text(), %s)]"
	xpathConcatFormat     = "concat(%s)"
	singleQuote           = "'"
	doubleQuote           = `"`
	singleQuoteLiteral    = `"'"`
	xpathConcatSeparator  = ", "
	quotedLiteralTemplate = "%s%s%s"
)

// ButtonWithText matches a button whose own text contains text.
func ButtonWithText(text string) Strategy {
	return XPath(fmt.Sprintf(buttonWithTextFormat, xpathLiteral(text)))
}

// LinkWithText matches an anchor whose own text contains text.
func LinkWithText(text string) Strategy {
	return XPath(fmt.Sprintf(linkWithTextFormat, xpathLiteral(text)))
}

// AnyWithText matches any element whose own text contains text.
func AnyWithText(text string) Strategy {
	return XPath(fmt.Sprintf(anyWithTextFormat, xpathLiteral(text)))
}

// xpathLiteral quotes value for XPath 1.0, which has no escape sequences.
// Values holding both quote kinds are split and joined with concat().
func xpathLiteral(value string) string {
	if !strings.Contains(value, singleQuote) {
		return fmt.Sprintf(quotedLiteralTemplate, singleQuote, value, singleQuote)
	}
	if !strings.Contains(value, doubleQuote) {
		return fmt.Sprintf(quotedLiteralTemplate, doubleQuote, value, doubleQuote)
	}
	segments := strings.Split(value, singleQuote)
	parts := make([]string, 0, len(segments)*2)
	for index, segment := range segments {
		if index > 0 {
			parts = append(parts, singleQuoteLiteral)
		}
		if segment != "" {
			parts = append(parts, fmt.Sprintf(quotedLiteralTemplate, singleQuote, segment, singleQuote))
		}
	}
	return fmt.Sprintf(xpathConcatFormat, strings.Join(parts, xpathConcatSeparator))
}
