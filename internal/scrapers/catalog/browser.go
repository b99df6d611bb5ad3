package catalog

import "context"

// WaitPolicy tells Goto when a navigation counts as finished.
type WaitPolicy int

const (
	// WaitLoad waits for the load event.
	WaitLoad WaitPolicy = iota
	// WaitNetworkIdle waits until the page stops issuing requests.
	WaitNetworkIdle
)

// BrowserSession is a single stateful browser tab, the catalog keeps the
// search state in the server session so every call must go through the
// same tab.
//
// note: fault injection point
type BrowserSession interface {
	Goto(ctx context.Context, url string, wait WaitPolicy) error
	WaitForSelector(ctx context.Context, selector string) error
	// Select selects the options of the select element whose value equals
	// value and returns the values that ended up selected.
	Select(ctx context.Context, selector, value string) ([]string, error)
	// Click clicks the element and does not wait for any navigation.
	Click(ctx context.Context, selector string) error
	// ClickLinkWithText clicks the first element matching selector whose
	// trimmed text equals text and waits for the navigation it triggers. It
	// returns false if there is no such element.
	ClickLinkWithText(ctx context.Context, selector, text string) (bool, error)
	// Evaluate runs a javascript expression and decodes its result into out.
	Evaluate(ctx context.Context, js string, out any) error
	// ExtractRows returns the outer html of every element matching
	// rowSelector.
	ExtractRows(ctx context.Context, rowSelector string) ([]string, error)
	// HrefsMatching returns the href attribute of every matching anchor.
	HrefsMatching(ctx context.Context, selector string) ([]string, error)
	// OptionValues returns the value of every matching option element.
	OptionValues(ctx context.Context, selector string) ([]string, error)
	Close() error
}
