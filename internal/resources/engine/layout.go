package engine

import (
	"strings"

	"github.com/beevik/etree"

	"github.com/GoSim-25-26J-441/apk-studio-backend/internal/resources/patch"
)

// adjustment rewrites exact attribute values on matching layout elements.
// For every direction, no output value is also an input value, so a second
// application finds nothing to change.
type adjustment struct {
	attrs   []string
	matches func(el *etree.Element) bool
	values  map[string]map[string]string
}

var adjustments = map[string]adjustment{
	patch.AdjustTextSize: {
		attrs:   []string{"textSize"},
		matches: func(*etree.Element) bool { return true },
		values: map[string]map[string]string{
			patch.SizeLarge: {"14sp": "18sp", "16sp": "20sp"},
			patch.SizeSmall: {"16sp": "12sp", "18sp": "14sp"},
		},
	},
	patch.AdjustDpadSize: {
		attrs: []string{"layout_width", "layout_height"},
		matches: func(el *etree.Element) bool {
			id := strings.ToLower(androidAttr(el, "id"))
			return strings.Contains(id, "dpad") || strings.Contains(id, "d_pad")
		},
		values: map[string]map[string]string{
			patch.SizeLarge: {"48dp": "64dp", "56dp": "72dp"},
			patch.SizeSmall: {"64dp": "48dp", "72dp": "56dp"},
		},
	},
}

func androidAttr(el *etree.Element, key string) string {
	for _, a := range el.Attr {
		if a.Key == key && a.Space == "android" {
			return a.Value
		}
	}
	return ""
}

// apply rewrites every matching attribute under root. It returns the
// number of values changed and the number of matching attributes, which
// also counts values already at a target.
func (a adjustment) apply(root *etree.Element, direction string) (changed, matched int) {
	mapping, ok := a.values[direction]
	if !ok {
		return 0, 0
	}
	targets := make(map[string]bool, len(mapping))
	for _, out := range mapping {
		targets[out] = true
	}
	var walk func(el *etree.Element)
	walk = func(el *etree.Element) {
		if a.matches(el) {
			for i := range el.Attr {
				attr := &el.Attr[i]
				if attr.Space != "android" || !contains(a.attrs, attr.Key) {
					continue
				}
				if next, ok := mapping[attr.Value]; ok {
					attr.Value = next
					changed++
					matched++
				} else if targets[attr.Value] {
					matched++
				}
			}
		}
		for _, child := range el.ChildElements() {
			walk(child)
		}
	}
	walk(root)
	return changed, matched
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
