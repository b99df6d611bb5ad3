package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

type ChromeOptions struct {
	// ExecPath of the chrome binary, empty uses the one on PATH.
	ExecPath string
	Headless bool
	// IdleGrace bounds how long Goto waits for network idle after the load
	// event before moving on.
	IdleGrace time.Duration
}

// ChromeSession implements BrowserSession with chromedp.
type ChromeSession struct {
	browserCtx      context.Context
	cancelBrowser   context.CancelFunc
	cancelAllocator context.CancelFunc
	idleGrace       time.Duration
}

var _ BrowserSession = (*ChromeSession)(nil)

// NewChromeSession starts a browser and opens its first tab.
func NewChromeSession(ctx context.Context, opts ChromeOptions) (*ChromeSession, error) {
	allocOpts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}
	if opts.IdleGrace <= 0 {
		opts.IdleGrace = time.Second * 5
	}

	allocatorCtx, cancelAllocator := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocOpts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocatorCtx)
	err := chromedp.Run(browserCtx)
	if err != nil {
		cancelBrowser()
		cancelAllocator()
		return nil, fmt.Errorf("start chrome: %w", err)
	}

	return &ChromeSession{
		browserCtx:      browserCtx,
		cancelBrowser:   cancelBrowser,
		cancelAllocator: cancelAllocator,
		idleGrace:       opts.IdleGrace,
	}, nil
}

// run executes the actions in the browser tab, stopping early when ctx is
// done or its deadline passes.
func (c *ChromeSession) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(c.browserCtx)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		defer cancelDeadline()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (c *ChromeSession) Goto(ctx context.Context, url string, wait WaitPolicy) error {
	if wait == WaitLoad {
		return c.run(ctx, chromedp.Navigate(url))
	}

	return c.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		idle := make(chan struct{}, 1)
		listenCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		chromedp.ListenTarget(listenCtx, func(ev any) {
			lifecycle, ok := ev.(*page.EventLifecycleEvent)
			if ok && lifecycle.Name == "networkIdle" {
				select {
				case idle <- struct{}{}:
				default:
				}
			}
		})

		err := page.SetLifecycleEventsEnabled(true).Do(ctx)
		if err != nil {
			return err
		}
		err = chromedp.Navigate(url).Do(ctx)
		if err != nil {
			return err
		}

		select {
		case <-idle:
		case <-time.After(c.idleGrace):
		case <-ctx.Done():
			return ctx.Err()
		}
		return nil
	}))
}

func (c *ChromeSession) WaitForSelector(ctx context.Context, selector string) error {
	return c.run(ctx, chromedp.WaitReady(selector, chromedp.ByQuery))
}

func jsString(s string) string {
	encoded, _ := json.Marshal(s)
	return string(encoded)
}

const selectScript = `(() => {
  const el = document.querySelector(%s);
  if (!el) {
    return null;
  }
  const selected = [];
  for (const option of el.options) {
    option.selected = option.value === %s;
    if (option.selected) {
      selected.push(option.value);
    }
  }
  el.dispatchEvent(new Event("input", { bubbles: true }));
  el.dispatchEvent(new Event("change", { bubbles: true }));
  return selected;
})()`

func (c *ChromeSession) Select(ctx context.Context, selector, value string) ([]string, error) {
	var selected []string
	var missing bool
	err := c.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var raw json.RawMessage
		err := chromedp.Evaluate(fmt.Sprintf(selectScript, jsString(selector), jsString(value)), &raw).Do(ctx)
		if err != nil {
			return err
		}
		if string(raw) == "null" {
			missing = true
			return nil
		}
		return json.Unmarshal(raw, &selected)
	}))
	if err != nil {
		return nil, err
	}
	if missing {
		return nil, fmt.Errorf("no element matches %s", selector)
	}
	return selected, nil
}

func (c *ChromeSession) Click(ctx context.Context, selector string) error {
	return c.run(ctx, chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible))
}

const clickLinkScript = `(() => {
  const links = Array.from(document.querySelectorAll(%s));
  const link = links.find((a) => (a.textContent || "").trim() === %s);
  if (!link) {
    return false;
  }
  link.click();
  return true;
})()`

func (c *ChromeSession) ClickLinkWithText(ctx context.Context, selector, text string) (bool, error) {
	var clicked bool
	err := c.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		loaded := make(chan struct{}, 1)
		listenCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		chromedp.ListenTarget(listenCtx, func(ev any) {
			if _, ok := ev.(*page.EventLoadEventFired); ok {
				select {
				case loaded <- struct{}{}:
				default:
				}
			}
		})

		err := chromedp.Evaluate(fmt.Sprintf(clickLinkScript, jsString(selector), jsString(text)), &clicked).Do(ctx)
		if err != nil || !clicked {
			return err
		}

		select {
		case <-loaded:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}))
	return clicked, err
}

func (c *ChromeSession) Evaluate(ctx context.Context, js string, out any) error {
	return c.run(ctx, chromedp.Evaluate(js, out))
}

func (c *ChromeSession) ExtractRows(ctx context.Context, rowSelector string) ([]string, error) {
	var rows []string
	err := c.Evaluate(ctx, fmt.Sprintf(
		`Array.from(document.querySelectorAll(%s)).map((e) => e.outerHTML)`,
		jsString(rowSelector),
	), &rows)
	return rows, err
}

func (c *ChromeSession) HrefsMatching(ctx context.Context, selector string) ([]string, error) {
	var hrefs []string
	err := c.Evaluate(ctx, fmt.Sprintf(
		`Array.from(document.querySelectorAll(%s)).map((a) => a.getAttribute("href")).filter((h) => h !== null)`,
		jsString(selector),
	), &hrefs)
	return hrefs, err
}

func (c *ChromeSession) OptionValues(ctx context.Context, selector string) ([]string, error) {
	var values []string
	err := c.Evaluate(ctx, fmt.Sprintf(
		`Array.from(document.querySelectorAll(%s)).map((o) => o.value)`,
		jsString(selector),
	), &values)
	return values, err
}

// Close closes the tab and shuts the browser down.
func (c *ChromeSession) Close() error {
	c.cancelBrowser()
	c.cancelAllocator()
	return nil
}
