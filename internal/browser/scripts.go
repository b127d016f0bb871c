package browser

import "fmt"

// The probe scripts run inside the page and return a plain bool so the poll
// loop never depends on page-side state staying alive between polls.

// probeScript reports whether the condition's selector currently matches,
// and, for clickable conditions, whether the element is interactable: laid
// out, visible, receiving pointer events, and not disabled.
func probeScript(selector string, clickable bool) string {
	return fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		if (!el) return false;
		if (!%t) return true;
		const rect = el.getBoundingClientRect();
		if (rect.width === 0 || rect.height === 0) return false;
		const style = window.getComputedStyle(el);
		if (style.visibility === 'hidden' || style.pointerEvents === 'none') return false;
		if (el.disabled) return false;
		return true;
	})()`, selector, clickable)
}

// forcedClickScript clicks the first match at script level, bypassing
// whatever overlay intercepted the trusted click.
func forcedClickScript(selector string) string {
	return fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		if (!el) return false;
		el.click();
		return true;
	})()`, selector)
}

// hoverLastScript scrolls the last match into view and dispatches the pointer
// event sequence a real hover produces.
func hoverLastScript(selector string) string {
	return fmt.Sprintf(`(() => {
		const list = document.querySelectorAll(%q);
		if (list.length === 0) return false;
		const el = list[list.length - 1];
		el.scrollIntoView({block: 'center'});
		for (const type of ['pointerover', 'pointerenter', 'mouseover', 'mouseenter']) {
			el.dispatchEvent(new MouseEvent(type, {bubbles: true, cancelable: true, view: window}));
		}
		return true;
	})()`, selector)
}
