package browsersession

import (
	"fmt"

	"github.com/MarkoPoloResearchLab/velan_e2e/internal/locator"
)

const (
	scriptReadyState = `document.readyState`

	cssElementFormat   = `document.querySelector(%q)`
	xpathElementFormat = `document.evaluate(%q, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue`
	cssCountFormat     = `document.querySelectorAll(%q).length`
	xpathCountFormat   = `document.evaluate(%q, document, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null).snapshotLength`

	presentFormat = `(%s) !== null`

	displayedFormat = `(function(element) {
		if (!element) { return false; }
		var style = window.getComputedStyle(element);
		if (style.display === "none" || style.visibility === "hidden" || style.opacity === "0") { return false; }
		var rect = element.getBoundingClientRect();
		return rect.width > 0 && rect.height > 0;
	})(%s)`

	clickableFormat = `(function(element) {
		if (!element || element.disabled) { return false; }
		var style = window.getComputedStyle(element);
		if (style.display === "none" || style.visibility === "hidden" || style.pointerEvents === "none") { return false; }
		var rect = element.getBoundingClientRect();
		return rect.width > 0 && rect.height > 0;
	})(%s)`

	textFormat = `(function(element) {
		if (!element) { return null; }
		return (element.innerText || element.textContent || "").trim();
	})(%s)`

	valueFormat = `(function(element) {
		if (!element) { return null; }
		return element.value === undefined ? null : String(element.value);
	})(%s)`

	bodyTextScript = `document.body ? document.body.innerText : ""`

	selectByValueFormat = `(function(element, value) {
		if (!element || element.tagName !== "SELECT") { return false; }
		var matched = Array.prototype.some.call(element.options, function(option) { return option.value === value; });
		if (!matched) { return false; }
		var setter = Object.getOwnPropertyDescriptor(HTMLSelectElement.prototype, "value").set;
		setter.call(element, value);
		element.dispatchEvent(new Event("input", { bubbles: true }));
		element.dispatchEvent(new Event("change", { bubbles: true }));
		return true;
	})(%s, %q)`

	selectByIndexFormat = `(function(element, index) {
		if (!element || element.tagName !== "SELECT" || index < 0 || index >= element.options.length) { return false; }
		element.selectedIndex = index;
		element.dispatchEvent(new Event("input", { bubbles: true }));
		element.dispatchEvent(new Event("change", { bubbles: true }));
		return true;
	})(%s, %d)`

	setValueFormat = `(function(element, value) {
		if (!element || element.value === undefined) { return false; }
		var prototype = Object.getPrototypeOf(element);
		var descriptor = Object.getOwnPropertyDescriptor(prototype, "value");
		if (descriptor && descriptor.set) { descriptor.set.call(element, value); } else { element.value = value; }
		element.dispatchEvent(new Event("input", { bubbles: true }));
		element.dispatchEvent(new Event("change", { bubbles: true }));
		return element.value === value;
	})(%s, %q)`

	checkFormat = `(function(element) {
		if (!element) { return false; }
		if (!element.checked) { element.click(); }
		return element.checked === true;
	})(%s)`
)

func elementScript(strategy locator.Strategy) string {
	if strategy.Kind == locator.KindXPath {
		return fmt.Sprintf(xpathElementFormat, strategy.Expression)
	}
	return fmt.Sprintf(cssElementFormat, strategy.Expression)
}

func countScript(strategy locator.Strategy) string {
	if strategy.Kind == locator.KindXPath {
		return fmt.Sprintf(xpathCountFormat, strategy.Expression)
	}
	return fmt.Sprintf(cssCountFormat, strategy.Expression)
}

func presentScript(strategy locator.Strategy) string {
	return fmt.Sprintf(presentFormat, elementScript(strategy))
}

func displayedScript(strategy locator.Strategy) string {
	return fmt.Sprintf(displayedFormat, elementScript(strategy))
}

func clickableScript(strategy locator.Strategy) string {
	return fmt.Sprintf(clickableFormat, elementScript(strategy))
}

func textScript(strategy locator.Strategy) string {
	return fmt.Sprintf(textFormat, elementScript(strategy))
}

func valueScript(strategy locator.Strategy) string {
	return fmt.Sprintf(valueFormat, elementScript(strategy))
}

func selectByValueScript(strategy locator.Strategy, value string) string {
	return fmt.Sprintf(selectByValueFormat, elementScript(strategy), value)
}

func selectByIndexScript(strategy locator.Strategy, index int) string {
	return fmt.Sprintf(selectByIndexFormat, elementScript(strategy), index)
}

func setValueScript(strategy locator.Strategy, value string) string {
	return fmt.Sprintf(setValueFormat, elementScript(strategy), value)
}

func checkScript(strategy locator.Strategy) string {
	return fmt.Sprintf(checkFormat, elementScript(strategy))
}
