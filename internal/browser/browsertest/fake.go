// Package browsertest provides an in-memory DOM for driving browser.Page
// consumers in tests. Selectors are matched literally: a node's children are
// registered under the exact selector string the code under test uses.
package browsertest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"pv-reviews/internal/browser"
)

// Node is one fake DOM node.
type Node struct {
	Attrs    map[string]string
	Text     string
	Hidden   bool
	Disabled bool
	Value    string // last filled value

	// Hooks run on actions and may mutate the tree.
	OnClick  func(n *Node) error
	OnFill   func(n *Node, value string) error
	OnScroll func(n *Node) error

	Clicks  int
	Scrolls int

	children map[string][]*Node
}

// NewNode returns a node with the given text.
func NewNode(text string) *Node {
	return &Node{Text: text, Attrs: map[string]string{}, children: map[string][]*Node{}}
}

// Attr sets an attribute and returns the node.
func (n *Node) Attr(name, value string) *Node {
	n.Attrs[name] = value
	return n
}

// Add appends children under selector and returns the receiver.
func (n *Node) Add(selector string, children ...*Node) *Node {
	n.children[selector] = append(n.children[selector], children...)
	return n
}

// Set replaces the children under selector.
func (n *Node) Set(selector string, children ...*Node) *Node {
	n.children[selector] = children
	return n
}

// Children returns the nodes registered under selector.
func (n *Node) Children(selector string) []*Node {
	return n.children[selector]
}

// Element returns a handle resolving to n alone.
func (n *Node) Element() browser.Element {
	return &Locator{resolve: func() []*Node { return []*Node{n} }}
}

// Locator resolves lazily against the current tree.
type Locator struct {
	resolve func() []*Node
}

func (l *Locator) nodes() []*Node {
	return l.resolve()
}

func (l *Locator) first() (*Node, error) {
	ns := l.nodes()
	if len(ns) == 0 {
		return nil, browser.ErrNotFound
	}
	return ns[0], nil
}

func (l *Locator) Locator(selector string) browser.Element {
	return &Locator{resolve: func() []*Node {
		var out []*Node
		for _, n := range l.nodes() {
			out = append(out, n.children[selector]...)
		}
		return out
	}}
}

func (l *Locator) All() ([]browser.Element, error) {
	ns := l.nodes()
	out := make([]browser.Element, len(ns))
	for i, n := range ns {
		out[i] = n.Element()
	}
	return out, nil
}

func (l *Locator) Count() (int, error) {
	return len(l.nodes()), nil
}

func (l *Locator) First() browser.Element {
	return &Locator{resolve: func() []*Node {
		ns := l.nodes()
		if len(ns) == 0 {
			return nil
		}
		return ns[:1]
	}}
}

func (l *Locator) Last() browser.Element {
	return &Locator{resolve: func() []*Node {
		ns := l.nodes()
		if len(ns) == 0 {
			return nil
		}
		return ns[len(ns)-1:]
	}}
}

func (l *Locator) Attribute(name string) (string, error) {
	n, err := l.first()
	if err != nil {
		return "", err
	}
	return n.Attrs[name], nil
}

func (l *Locator) Text() (string, error) {
	n, err := l.first()
	if err != nil {
		return "", err
	}
	return n.Text, nil
}

func (l *Locator) Visible() bool {
	n, err := l.first()
	return err == nil && !n.Hidden
}

func (l *Locator) Enabled() bool {
	n, err := l.first()
	return err == nil && !n.Disabled
}

func (l *Locator) Click() error {
	n, err := l.first()
	if err != nil {
		return err
	}
	if n.Hidden {
		return errors.New("element is not visible")
	}
	if n.Disabled {
		return errors.New("element is disabled")
	}
	n.Clicks++
	if n.OnClick != nil {
		return n.OnClick(n)
	}
	return nil
}

func (l *Locator) Fill(value string) error {
	n, err := l.first()
	if err != nil {
		return err
	}
	n.Value = value
	if n.OnFill != nil {
		return n.OnFill(n, value)
	}
	return nil
}

func (l *Locator) ScrollIntoView() error {
	n, err := l.first()
	if err != nil {
		return err
	}
	n.Scrolls++
	if n.OnScroll != nil {
		return n.OnScroll(n)
	}
	return nil
}

func (l *Locator) WaitVisible(timeout time.Duration) error {
	if !l.Visible() {
		return fmt.Errorf("wait visible: %w", browser.ErrNotFound)
	}
	return nil
}

// Page is a fake tab with a main document and named frames.
type Page struct {
	mu sync.Mutex

	Root   *Node
	Frames map[string]*Node

	URL         string
	Visited     []string
	Screenshots []string

	GotoErr    error
	WaitURLErr error
	OnGoto     func(url string)
}

// NewPage returns an empty page.
func NewPage() *Page {
	return &Page{Root: NewNode(""), Frames: map[string]*Node{}}
}

// Frame returns the frame document registered under selector, creating it.
func (p *Page) Frame(selector string) *Node {
	p.mu.Lock()
	defer p.mu.Unlock()
	if f, ok := p.Frames[selector]; ok {
		return f
	}
	f := NewNode("")
	p.Frames[selector] = f
	return f
}

func (p *Page) Goto(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	p.Visited = append(p.Visited, url)
	p.URL = url
	hook := p.OnGoto
	p.mu.Unlock()
	if hook != nil {
		hook(url)
	}
	return p.GotoErr
}

func (p *Page) Locator(selector string) browser.Element {
	return p.Root.Element().Locator(selector)
}

func (p *Page) FrameLocator(selector string) browser.Frame {
	return &frame{page: p, selector: selector}
}

func (p *Page) WaitForURL(url string, timeout time.Duration) error {
	return p.WaitURLErr
}

func (p *Page) Screenshot(path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Screenshots = append(p.Screenshots, path)
	return nil
}

type frame struct {
	page     *Page
	selector string
}

func (f *frame) Locator(selector string) browser.Element {
	return &Locator{resolve: func() []*Node {
		f.page.mu.Lock()
		doc, ok := f.page.Frames[f.selector]
		f.page.mu.Unlock()
		if !ok {
			return nil
		}
		return doc.children[selector]
	}}
}

// Session wraps a Page as a browser.Session.
type Session struct {
	FakePage *Page
	Closed   bool
}

func (s *Session) Page() browser.Page { return s.FakePage }

func (s *Session) Close() error {
	s.Closed = true
	return nil
}
