package patch

import (
	"path/filepath"
	"strings"
)

// Compile translates a change request into a Set. Color scheme entries come
// first, then the description rules in order, then reference assets. It is
// a pure function of its inputs.
func Compile(description, colorScheme string, assets []AssetHandle) *Set {
	set := NewSet()

	if p, ok := LookupScheme(strings.ToLower(strings.TrimSpace(colorScheme))); ok {
		set.Put(Instruction{Kind: KindColor, Key: "primary", Value: p.Primary})
		set.Put(Instruction{Kind: KindColor, Key: "secondary", Value: p.Secondary})
		set.Put(Instruction{Kind: KindColor, Key: "accent", Value: p.Accent})
	}

	text := strings.ToLower(description)
	for _, r := range rules {
		if !containsAny(text, r.triggers) {
			continue
		}
		m, ok := firstModifier(text, r.modifiers)
		if !ok {
			continue
		}
		for _, e := range r.emits(m) {
			set.Put(Instruction{Kind: e.kind, Key: e.key, Value: e.value})
		}
	}

	for _, a := range assets {
		target := strings.TrimSpace(a.TargetPath)
		if target == "" {
			continue
		}
		set.Put(Instruction{
			Kind:    KindRasterAsset,
			Key:     filepath.ToSlash(filepath.Clean(target)),
			Payload: a.Data,
		})
	}

	return set
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

func firstModifier(text string, mods []modifier) (modifier, bool) {
	for _, m := range mods {
		if containsAny(text, m.words) {
			return m, true
		}
	}
	return modifier{}, false
}
