package patch

// Palette is a named color scheme.
type Palette struct {
	Primary   string
	Secondary string
	Accent    string
}

var schemes = map[string]Palette{
	"blue":   {Primary: "#007bff", Secondary: "#6c757d", Accent: "#17a2b8"},
	"green":  {Primary: "#28a745", Secondary: "#6c757d", Accent: "#20c997"},
	"red":    {Primary: "#dc3545", Secondary: "#6c757d", Accent: "#fd7e14"},
	"purple": {Primary: "#6f42c1", Secondary: "#6c757d", Accent: "#e83e8c"},
	"orange": {Primary: "#fd7e14", Secondary: "#6c757d", Accent: "#ffc107"},
	"dark":   {Primary: "#343a40", Secondary: "#6c757d", Accent: "#ffffff"},
	"light":  {Primary: "#f8f9fa", Secondary: "#e9ecef", Accent: "#343a40"},
}

// SchemeNames lists the recognised color schemes.
func SchemeNames() []string {
	return []string{"blue", "green", "red", "purple", "orange", "dark", "light"}
}

// LookupScheme returns the palette for a scheme name.
func LookupScheme(name string) (Palette, bool) {
	p, ok := schemes[name]
	return p, ok
}

const (
	SizeLarge = "large"
	SizeSmall = "small"
)

// Layout adjustment keys.
const (
	AdjustTextSize = "text_size"
	AdjustDpadSize = "dpad_size"
)

// modifier maps one word in the description to an emitted value.
type modifier struct {
	words []string
	value string
}

// emit is one instruction produced when a rule's modifier matches. When
// value is empty the modifier's value is used.
type emit struct {
	kind  TargetKind
	key   string
	value string
}

// rule fires when any trigger word is present. Modifiers are tried in order
// and the first present one wins.
type rule struct {
	triggers  []string
	modifiers []modifier
	emits     func(m modifier) []emit
}

func colorModifiers(names ...string) []modifier {
	hex := map[string]string{
		"blue":   "#007bff",
		"green":  "#28a745",
		"red":    "#dc3545",
		"orange": "#fd7e14",
	}
	out := make([]modifier, 0, len(names))
	for _, n := range names {
		out = append(out, modifier{words: []string{n}, value: hex[n]})
	}
	return out
}

var sizeModifiers = []modifier{
	{words: []string{"bigger", "larger"}, value: SizeLarge},
	{words: []string{"smaller"}, value: SizeSmall},
}

func single(kind TargetKind, key string) func(modifier) []emit {
	return func(m modifier) []emit {
		return []emit{{kind: kind, key: key, value: m.value}}
	}
}

// rules are evaluated in this order; later rules overwrite earlier ones
// that target the same key.
var rules = []rule{
	{
		triggers:  []string{"control", "knob"},
		modifiers: colorModifiers("blue", "green", "red", "orange"),
		emits:     single(KindColor, "control_color"),
	},
	{
		triggers:  []string{"dpad", "d-pad"},
		modifiers: sizeModifiers,
		emits:     single(KindLayoutAttribute, AdjustDpadSize),
	},
	{
		triggers:  []string{"glow", "light"},
		modifiers: colorModifiers("blue", "green", "red"),
		emits:     single(KindColor, "glow_color"),
	},
	{
		triggers: []string{"connection", "status"},
		// "disconnected" contains "connected" and must be tested first.
		modifiers: []modifier{
			{words: []string{"disconnected"}, value: "Disconnected"},
			{words: []string{"connected"}, value: "Connected"},
		},
		emits: func(m modifier) []emit {
			color := "#28a745"
			if m.value == "Disconnected" {
				color = "#dc3545"
			}
			return []emit{
				{kind: KindString, key: "connection_status", value: m.value},
				{kind: KindColor, key: "status_color", value: color},
			}
		},
	},
	{
		triggers:  []string{"button"},
		modifiers: colorModifiers("blue", "green", "red"),
		emits:     single(KindColor, "button_color"),
	},
	{
		triggers:  []string{"text"},
		modifiers: sizeModifiers,
		emits:     single(KindLayoutAttribute, AdjustTextSize),
	},
}
