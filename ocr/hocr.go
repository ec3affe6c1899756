package ocr

import (
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/tsawler/transcripta/model"
)

// parseHOCR extracts word-level fragments from an hOCR document.
// Tesseract emits one ocrx_word span per recognized word with the
// bounding box and confidence encoded in the title attribute:
//
//	<span class='ocrx_word' id='word_1_2' title='bbox 653 116 724 135; x_wconf 93'>CS101</span>
//
// Spans without a parseable bbox are skipped. A missing x_wconf property
// yields confidence 1; Tesseract always emits it, but hOCR from other
// producers may not.
func parseHOCR(r io.Reader, page int) ([]model.TextFragment, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	var fragments []model.TextFragment
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && hasClass(n, "ocrx_word") {
			if f, ok := wordFragment(n, page); ok {
				fragments = append(fragments, f)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return fragments, nil
}

func wordFragment(n *html.Node, page int) (model.TextFragment, bool) {
	bbox, conf, ok := parseHOCRTitle(attrValue(n, "title"))
	if !ok {
		return model.TextFragment{}, false
	}
	text := strings.TrimSpace(nodeText(n))
	if text == "" {
		return model.TextFragment{}, false
	}
	return model.TextFragment{
		Text:       text,
		BBox:       bbox,
		Confidence: conf,
		Page:       page,
	}, true
}

// parseHOCRTitle parses the semicolon-separated hOCR property list,
// e.g. "bbox 653 116 724 135; x_wconf 93". It reports whether a valid
// bbox property was present.
func parseHOCRTitle(title string) (model.BBox, float64, bool) {
	var (
		bbox     model.BBox
		conf     = 1.0
		haveBBox bool
	)
	for _, prop := range strings.Split(title, ";") {
		fields := strings.Fields(prop)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "bbox":
			if len(fields) != 5 {
				continue
			}
			var vals [4]float64
			ok := true
			for i, s := range fields[1:] {
				v, err := strconv.ParseFloat(s, 64)
				if err != nil {
					ok = false
					break
				}
				vals[i] = v
			}
			if !ok {
				continue
			}
			bbox = model.NewBBoxFromEdges(vals[0], vals[1], vals[2], vals[3])
			haveBBox = true
		case "x_wconf":
			if len(fields) == 2 {
				if v, err := strconv.ParseFloat(fields[1], 64); err == nil {
					conf = v / 100
				}
			}
		}
	}
	return bbox, conf, haveBBox
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attrValue(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func attrValue(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// nodeText returns the concatenated text content of n and its children.
func nodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(nodeText(c))
	}
	return sb.String()
}
