package caption

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dyatlov/go-opengraph/opengraph"
)

// Probe names, used as log attributes and metric labels
const (
	ProbeOpenGraph  = "og_description"
	ProbeLDJSON     = "ld_json"
	ProbeSharedData = "shared_data"
	ProbeSelector   = "selector"
)

// markupProbe reads one candidate caption out of a parsed document.
// An error means the probe could not evaluate; it never ends the strategy.
type markupProbe struct {
	name string
	find func(doc *goquery.Document) (string, error)
}

// staticProbes run in order, most structured source first
var staticProbes = []markupProbe{
	{name: ProbeOpenGraph, find: probeOpenGraph},
	{name: ProbeLDJSON, find: probeLDJSON},
	{name: ProbeSharedData, find: probeSharedData},
	{name: ProbeSelector, find: probeSelectors},
}

func probeOpenGraph(doc *goquery.Document) (string, error) {
	og := opengraph.NewOpenGraph()
	doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		attrs := make(map[string]string, 3)
		for _, name := range []string{"property", "name", "content"} {
			if v, ok := s.Attr(name); ok {
				attrs[name] = v
			}
		}
		og.ProcessMeta(attrs)
	})
	return og.Description, nil
}

// probeLDJSON reads the first structured-data block. Both a single object
// and an array of objects are accepted; caption wins over description.
func probeLDJSON(doc *goquery.Document) (string, error) {
	script := doc.Find(`script[type="application/ld+json"]`).First()
	if script.Length() == 0 {
		return "", nil
	}

	raw := strings.TrimSpace(script.Text())
	if raw == "" {
		return "", nil
	}

	var data interface{}
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return "", err
	}

	var objects []map[string]interface{}
	switch v := data.(type) {
	case map[string]interface{}:
		objects = append(objects, v)
	case []interface{}:
		for _, item := range v {
			if obj, ok := item.(map[string]interface{}); ok {
				objects = append(objects, obj)
			}
		}
	}

	for _, obj := range objects {
		for _, key := range []string{"caption", "description"} {
			if s, ok := obj[key].(string); ok && strings.TrimSpace(s) != "" {
				return s, nil
			}
		}
	}
	return "", nil
}

// sharedDataPattern captures the object literal assigned to the legacy
// global state variable.
var sharedDataPattern = regexp.MustCompile(`window\._sharedData\s*=\s*(\{.*\});`)

// sharedDataCaptionPath is the one historical layout this probe understands.
// Pages with any other layout miss.
var sharedDataCaptionPath = []interface{}{
	"entry_data", "PostPage", 0, "graphql", "shortcode_media",
	"edge_media_to_caption", "edges", 0, "node", "text",
}

// probeSharedData is legacy and best effort. Every script assigning the
// global state is tried in document order until one yields caption text.
// A parse error is reported only when no script produced a caption.
func probeSharedData(doc *goquery.Document) (string, error) {
	var caption string
	var parseErr error

	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.Text()
		if !strings.Contains(text, "window._sharedData") {
			return true
		}
		m := sharedDataPattern.FindStringSubmatch(text)
		if m == nil {
			return true
		}

		var data interface{}
		if err := json.Unmarshal([]byte(m[1]), &data); err != nil {
			parseErr = err
			return true
		}

		value, ok := lookupPath(data, sharedDataCaptionPath...)
		if !ok {
			return true
		}
		if str, _ := value.(string); strings.TrimSpace(str) != "" {
			caption = str
			return false
		}
		return true
	})

	if caption != "" {
		return caption, nil
	}
	return "", parseErr
}

// lookupPath walks decoded JSON through string keys and int indexes.
// Any missing key, short array or unexpected type yields ok == false.
func lookupPath(v interface{}, path ...interface{}) (interface{}, bool) {
	current := v
	for _, step := range path {
		switch key := step.(type) {
		case string:
			obj, ok := current.(map[string]interface{})
			if !ok {
				return nil, false
			}
			next, ok := obj[key]
			if !ok {
				return nil, false
			}
			current = next
		case int:
			arr, ok := current.([]interface{})
			if !ok || key < 0 || key >= len(arr) {
				return nil, false
			}
			current = arr[key]
		default:
			return nil, false
		}
	}
	return current, true
}

// captionSelector is one structural guess about the post markup
type captionSelector struct {
	selector  string
	firstOnly bool
}

// captionSelectors are unversioned guesses and may stop matching at any time
var captionSelectors = []captionSelector{
	{selector: `div[data-testid="media-caption-text"]`},
	{selector: `div.C4VMK > span`, firstOnly: true},
	{selector: `article span`, firstOnly: true},
}

func probeSelectors(doc *goquery.Document) (string, error) {
	for _, cs := range captionSelectors {
		sel := doc.Find(cs.selector)
		if cs.firstOnly {
			sel = sel.First()
		}
		if text := strings.TrimSpace(sel.Text()); text != "" {
			return text, nil
		}
	}
	return "", nil
}
