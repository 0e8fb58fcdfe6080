package document

import (
	"bytes"
	"fmt"
	"net/url"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"

	"github.com/ragbench/ragbench/internal/errdefs"
)

// extensionTypes maps accepted upload extensions to their file type.
var extensionTypes = map[string]string{
	".txt":  "txt",
	".md":   "md",
	".html": "html",
	".htm":  "html",
}

// SupportedExtensions returns the accepted upload extensions, sorted.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(extensionTypes))
	for ext := range extensionTypes {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// TypeForFilename resolves a filename to its file type or rejects the
// extension.
func TypeForFilename(filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	fileType, ok := extensionTypes[ext]
	if !ok {
		return "", errdefs.Validationf("file",
			"unsupported file type %q; supported: %s", ext, strings.Join(SupportedExtensions(), ", "))
	}
	return fileType, nil
}

// Extract pulls plain text from an uploaded file based on its
// extension.
func Extract(filename string, content []byte) (string, error) {
	fileType, err := TypeForFilename(filename)
	if err != nil {
		return "", err
	}
	switch fileType {
	case "html":
		return extractHTML(content)
	default:
		return decodeText(content), nil
	}
}

// decodeText returns the content as UTF-8. Content that is not valid
// UTF-8 is reinterpreted as Latin-1, which maps every byte.
func decodeText(content []byte) string {
	if utf8.Valid(content) {
		return string(content)
	}
	runes := make([]rune, 0, len(content))
	for _, b := range content {
		runes = append(runes, rune(b))
	}
	return string(runes)
}

// extractHTML runs readability extraction and falls back to a plain
// text-node walk when no article body is found. Readability expects a
// page-sized document; short fragments land in the fallback.
func extractHTML(content []byte) (string, error) {
	pageURL, _ := url.Parse("local://upload")
	article, err := readability.FromReader(bytes.NewReader(content), pageURL)
	if err == nil && strings.TrimSpace(article.TextContent) != "" {
		return strings.TrimSpace(article.TextContent), nil
	}
	return textNodes(content)
}

// textNodes walks the parsed tree collecting text, skipping script and
// style subtrees.
func textNodes(content []byte) (string, error) {
	doc, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("parsing html: %w", err)
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript":
				return
			}
		}
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				b.WriteString(text)
				b.WriteByte('\n')
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return strings.TrimSpace(b.String()), nil
}
