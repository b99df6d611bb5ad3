package catalog

import (
	"context"
	"fmt"
	"strings"
)

const selectedTermScript = `(() => {
  const select = document.querySelector("#selectedTerm");
  if (!select) {
    return "";
  }
  const option = select.options[select.selectedIndex] || select.options[0];
  return option ? option.value : "";
})()`

// BrowserTermDetector reads the term the search form preselects, which is
// the term the catalog currently publishes.
type BrowserTermDetector struct {
	driver SubjectPageDriver
}

func NewBrowserTermDetector(driver SubjectPageDriver) BrowserTermDetector {
	return BrowserTermDetector{driver: driver}
}

func (t BrowserTermDetector) Detect(ctx context.Context) (string, error) {
	err := t.driver.openForm(ctx)
	if err != nil {
		return "", err
	}

	var term string
	err = t.driver.step(ctx, "read term", func(ctx context.Context) error {
		return t.driver.browser.Evaluate(ctx, selectedTermScript, &term)
	})
	if err != nil {
		return "", err
	}
	term = strings.TrimSpace(term)
	if term == "" {
		return "", fmt.Errorf("search form has no term selected")
	}
	return term, nil
}
