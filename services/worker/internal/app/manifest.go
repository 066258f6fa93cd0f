package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

const maxDocumentBytes = 4 << 20

// assetAttrs maps element names to the attribute holding an asset reference.
var assetAttrs = map[string]string{
	"script": "src",
	"link":   "href",
	"img":    "src",
}

// DiscoverAssets fetches the root document and returns the same-origin
// assets it references, in document order and without duplicates.
func DiscoverAssets(ctx context.Context, client *http.Client, root *url.URL) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, root.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/html")
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch root document: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch root document: %s", resp.Status)
	}
	return ParseAssetRefs(io.LimitReader(resp.Body, maxDocumentBytes), root)
}

// ParseAssetRefs extracts same-origin asset URLs from an HTML document.
func ParseAssetRefs(r io.Reader, base *url.URL) ([]string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse root document: %w", err)
	}
	seen := make(map[string]struct{})
	var out []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if attr, ok := assetAttrs[n.Data]; ok {
				if ref := attrValue(n, attr); ref != "" {
					if u, ok := resolveSameOrigin(base, ref); ok {
						if _, dup := seen[u]; !dup {
							seen[u] = struct{}{}
							out = append(out, u)
						}
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out, nil
}

func attrValue(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

func resolveSameOrigin(base *url.URL, ref string) (string, bool) {
	u, err := base.Parse(ref)
	if err != nil {
		return "", false
	}
	if u.Scheme != base.Scheme || u.Host != base.Host {
		return "", false
	}
	u.Fragment = ""
	return u.String(), true
}
