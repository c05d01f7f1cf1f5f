// Package browser is the page automation capability used by the collector and
// the poster. Element lookups are lazy: a handle is resolved again on every
// action, so it stays valid while the page re-renders.
package browser

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when an element resolves to no node.
var ErrNotFound = errors.New("element not found")

// Element is a lazily resolved handle to zero or more DOM nodes. Reads and
// actions apply to the first matching node.
type Element interface {
	Locator(selector string) Element
	All() ([]Element, error)
	Count() (int, error)
	First() Element
	Last() Element

	Attribute(name string) (string, error)
	Text() (string, error)
	Visible() bool
	Enabled() bool

	Click() error
	Fill(value string) error
	ScrollIntoView() error
	WaitVisible(timeout time.Duration) error
}

// Frame scopes lookups to a document, either the page or an embedded iframe.
type Frame interface {
	Locator(selector string) Element
}

// Page is one browser tab.
type Page interface {
	Frame
	Goto(ctx context.Context, url string) error
	FrameLocator(selector string) Frame
	WaitForURL(url string, timeout time.Duration) error
	Screenshot(path string) error
}

// Session owns a page and the browser process behind it.
type Session interface {
	Page() Page
	Close() error
}

// Exists reports whether el resolves to at least one node.
func Exists(el Element) bool {
	n, err := el.Count()
	return err == nil && n > 0
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
