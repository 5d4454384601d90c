package metadata

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// parse walks the document once and keeps the first value seen for each
// field. URL-valued fields are resolved against base.
func parse(r io.Reader, base *url.URL) (*Metadata, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w", err)
	}

	var (
		md                 Metadata
		icon, shortcutIcon string
		canonical, ogImage string
	)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "title":
				// SVG and MathML have their own <title>; only the HTML one
				// names the document.
				if md.Title == nil && n.Namespace == "" {
					md.Title = nonEmpty(textOf(n))
				}
			case "meta":
				content := attr(n, "content")
				switch strings.ToLower(attr(n, "name")) {
				case "description":
					setOnce(&md.Description, content)
				}
				switch strings.ToLower(attr(n, "property")) {
				case "og:title":
					setOnce(&md.OGTitle, content)
				case "og:description":
					setOnce(&md.OGDescription, content)
				case "og:image":
					if ogImage == "" {
						ogImage = strings.TrimSpace(content)
					}
				}
			case "link":
				href := strings.TrimSpace(attr(n, "href"))
				switch strings.ToLower(strings.Join(strings.Fields(attr(n, "rel")), " ")) {
				case "icon":
					if icon == "" {
						icon = href
					}
				case "shortcut icon":
					if shortcutIcon == "" {
						shortcutIcon = href
					}
				case "canonical":
					if canonical == "" {
						canonical = href
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	md.OGImageURL = resolve(base, ogImage)
	md.CanonicalURL = resolve(base, canonical)
	if icon != "" {
		md.FaviconURL = resolve(base, icon)
	} else {
		md.FaviconURL = resolve(base, shortcutIcon)
	}

	return &md, nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textOf(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func nonEmpty(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func setOnce(dst **string, value string) {
	if *dst == nil {
		*dst = nonEmpty(value)
	}
}

// resolve returns ref as an absolute URL, or nil when ref is empty or
// unparseable.
func resolve(base *url.URL, ref string) *string {
	if ref == "" {
		return nil
	}
	u, err := url.Parse(ref)
	if err != nil {
		return nil
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	s := u.String()
	return &s
}
