// Package sections extracts named regions out of server-rendered HTML
// fragments. The cart endpoints return whole section templates; controllers
// only splice the node a descriptor's selector points at.
package sections

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// Extract parses the fragment and returns the inner HTML of the first node
// matching selector. Selectors support tag names, #id, .class, compounds
// (tag.class) and descendant chains ("div .js-contents"), which covers every
// selector the section descriptors use.
func Extract(fragment, selector string) (string, error) {
	node, err := find(fragment, selector)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if err := html.Render(&b, child); err != nil {
			return "", fmt.Errorf("rendering fragment: %w", err)
		}
	}
	return b.String(), nil
}

// ExtractOuter is like Extract but returns the matched node itself,
// used when a whole element is replaced rather than its contents.
func ExtractOuter(fragment, selector string) (string, error) {
	node, err := find(fragment, selector)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	if err := html.Render(&b, node); err != nil {
		return "", fmt.Errorf("rendering fragment: %w", err)
	}
	return b.String(), nil
}

func find(fragment, selector string) (*html.Node, error) {
	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return nil, fmt.Errorf("parsing fragment: %w", err)
	}

	parts, err := parseSelector(selector)
	if err != nil {
		return nil, err
	}

	node := query(doc, parts)
	if node == nil {
		return nil, fmt.Errorf("selector %q matched nothing", selector)
	}
	return node, nil
}

// simpleSelector is one compound part of a descendant chain: tag, #id and
// .class constraints that must all hold on a single element.
type simpleSelector struct {
	tag     string
	id      string
	classes []string
}

func parseSelector(selector string) ([]simpleSelector, error) {
	fields := strings.Fields(selector)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty selector")
	}

	parts := make([]simpleSelector, 0, len(fields))
	for _, field := range fields {
		var part simpleSelector
		rest := field
		// Leading tag name runs until the first # or .
		if i := strings.IndexAny(rest, "#."); i != 0 {
			if i < 0 {
				part.tag = rest
				rest = ""
			} else {
				part.tag = rest[:i]
				rest = rest[i:]
			}
		}
		for rest != "" {
			kind := rest[0]
			rest = rest[1:]
			end := strings.IndexAny(rest, "#.")
			var token string
			if end < 0 {
				token, rest = rest, ""
			} else {
				token, rest = rest[:end], rest[end:]
			}
			if token == "" {
				return nil, fmt.Errorf("malformed selector %q", selector)
			}
			switch kind {
			case '#':
				part.id = token
			case '.':
				part.classes = append(part.classes, token)
			}
		}
		parts = append(parts, part)
	}
	return parts, nil
}

// query walks the tree depth-first and returns the first element matching the
// final part of the chain whose ancestors satisfy the earlier parts in order.
func query(root *html.Node, parts []simpleSelector) *html.Node {
	var walk func(n *html.Node, remaining []simpleSelector) *html.Node
	walk = func(n *html.Node, remaining []simpleSelector) *html.Node {
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			if child.Type == html.ElementNode && matches(child, remaining[0]) {
				if len(remaining) == 1 {
					return child
				}
				if found := walk(child, remaining[1:]); found != nil {
					return found
				}
			}
			// A deeper node may still start the chain
			if found := walk(child, remaining); found != nil {
				return found
			}
		}
		return nil
	}
	return walk(root, parts)
}

func matches(n *html.Node, sel simpleSelector) bool {
	if sel.tag != "" && n.Data != sel.tag {
		return false
	}
	if sel.id != "" && attr(n, "id") != sel.id {
		return false
	}
	if len(sel.classes) > 0 {
		have := strings.Fields(attr(n, "class"))
		for _, want := range sel.classes {
			found := false
			for _, c := range have {
				if c == want {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	return true
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}
