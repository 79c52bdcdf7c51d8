package feed

import (
	"context"

	"github.com/go-rod/rod"

	"github.com/nquill/memescope/crawl/internal/browser"
	"github.com/nquill/memescope/crawl/internal/item"
)

// RodPage adapts a browser Tab to the crawler's Page port.
type RodPage struct {
	tab *browser.Tab
}

// NewRodPage wraps tab.
func NewRodPage(tab *browser.Tab) *RodPage {
	return &RodPage{tab: tab}
}

func (p *RodPage) Navigate(ctx context.Context, url string) error {
	return p.tab.Navigate(ctx, url)
}

func (p *RodPage) Elements(selector string) ([]item.Handle, error) {
	els, err := p.tab.Page.Elements(selector)
	if err != nil {
		return nil, err
	}
	handles := make([]item.Handle, len(els))
	for i, el := range els {
		handles[i] = rodHandle{el: el}
	}
	return handles, nil
}

func (p *RodPage) ScrollHeight() (int, error) {
	res, err := p.tab.Page.Eval(`() => document.body.scrollHeight`)
	if err != nil {
		return 0, err
	}
	return res.Value.Int(), nil
}

func (p *RodPage) ScrollToBottom() error {
	_, err := p.tab.Page.Eval(`() => window.scrollTo(0, document.body.scrollHeight)`)
	return err
}

type rodHandle struct {
	el *rod.Element
}

func (h rodHandle) Element(selector string) (item.Node, error) {
	el, err := h.el.Element(selector)
	if err != nil {
		return nil, err
	}
	return rodNode{el: el}, nil
}

func (h rodHandle) Elements(selector string) ([]item.Node, error) {
	els, err := h.el.Elements(selector)
	if err != nil {
		return nil, err
	}
	nodes := make([]item.Node, len(els))
	for i, el := range els {
		nodes[i] = rodNode{el: el}
	}
	return nodes, nil
}

type rodNode struct {
	el *rod.Element
}

func (n rodNode) Text() (string, error) {
	return n.el.Text()
}

func (n rodNode) Attribute(name string) (*string, error) {
	return n.el.Attribute(name)
}
