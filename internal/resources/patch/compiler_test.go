package patch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile_SchemeProducesThreeColors(t *testing.T) {
	want := map[string][3]string{
		"blue":   {"#007bff", "#6c757d", "#17a2b8"},
		"green":  {"#28a745", "#6c757d", "#20c997"},
		"red":    {"#dc3545", "#6c757d", "#fd7e14"},
		"purple": {"#6f42c1", "#6c757d", "#e83e8c"},
		"orange": {"#fd7e14", "#6c757d", "#ffc107"},
		"dark":   {"#343a40", "#6c757d", "#ffffff"},
		"light":  {"#f8f9fa", "#e9ecef", "#343a40"},
	}
	require.Len(t, SchemeNames(), len(want))

	for _, name := range SchemeNames() {
		t.Run(name, func(t *testing.T) {
			set := Compile("", name, nil)
			colors := set.OfKind(KindColor)
			require.Len(t, colors, 3)
			assert.Equal(t, 3, set.Len())

			exp := want[name]
			assert.Equal(t, Instruction{Kind: KindColor, Key: "primary", Value: exp[0]}, colors[0])
			assert.Equal(t, Instruction{Kind: KindColor, Key: "secondary", Value: exp[1]}, colors[1])
			assert.Equal(t, Instruction{Kind: KindColor, Key: "accent", Value: exp[2]}, colors[2])
		})
	}
}

func TestCompile_SchemeNameIsNormalised(t *testing.T) {
	set := Compile("", "  Purple ", nil)
	assert.Equal(t, 3, set.Len())

	assert.True(t, Compile("", "magenta", nil).Empty())
}

func TestCompile_UnionOfIndependentTriggers(t *testing.T) {
	set := Compile("make the button blue and text bigger", "", nil)

	require.Equal(t, 2, set.Len())
	btn, ok := set.Get(KindColor, "button_color")
	require.True(t, ok)
	assert.Equal(t, "#007bff", btn.Value)

	txt, ok := set.Get(KindLayoutAttribute, AdjustTextSize)
	require.True(t, ok)
	assert.Equal(t, SizeLarge, txt.Value)

	// colors precede layout attributes
	all := set.Instructions()
	assert.Equal(t, KindColor, all[0].Kind)
	assert.Equal(t, KindLayoutAttribute, all[1].Kind)
}

func TestCompile_ModifierPriorityWithinRule(t *testing.T) {
	// blue is checked before red for the control rule
	set := Compile("Control knob: red or blue?", "", nil)
	in, ok := set.Get(KindColor, "control_color")
	require.True(t, ok)
	assert.Equal(t, "#007bff", in.Value)
}

func TestCompile_OrangeOnlyForControls(t *testing.T) {
	set := Compile("orange glow and orange button", "", nil)
	assert.True(t, set.Empty())

	set = Compile("orange knob", "", nil)
	in, ok := set.Get(KindColor, "control_color")
	require.True(t, ok)
	assert.Equal(t, "#fd7e14", in.Value)
}

func TestCompile_ConnectionStatus(t *testing.T) {
	tests := []struct {
		desc      string
		wantText  string
		wantColor string
	}{
		{desc: "show status as connected", wantText: "Connected", wantColor: "#28a745"},
		{desc: "Connection DISCONNECTED", wantText: "Disconnected", wantColor: "#dc3545"},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			set := Compile(tt.desc, "", nil)

			s, ok := set.Get(KindString, "connection_status")
			require.True(t, ok)
			assert.Equal(t, tt.wantText, s.Value)

			c, ok := set.Get(KindColor, "status_color")
			require.True(t, ok)
			assert.Equal(t, tt.wantColor, c.Value)
		})
	}
}

func TestCompile_DpadAndTextSizes(t *testing.T) {
	set := Compile("smaller d-pad please, larger text", "", nil)

	d, ok := set.Get(KindLayoutAttribute, AdjustDpadSize)
	require.True(t, ok)
	// "larger" is tested before "smaller" in the size modifiers
	assert.Equal(t, SizeLarge, d.Value)

	txt, ok := set.Get(KindLayoutAttribute, AdjustTextSize)
	require.True(t, ok)
	assert.Equal(t, SizeLarge, txt.Value)

	set = Compile("smaller text", "", nil)
	txt, ok = set.Get(KindLayoutAttribute, AdjustTextSize)
	require.True(t, ok)
	assert.Equal(t, SizeSmall, txt.Value)
}

func TestCompile_TriggerWithoutModifierIsIgnored(t *testing.T) {
	assert.True(t, Compile("the button and the text", "", nil).Empty())
	assert.True(t, Compile("", "", nil).Empty())
}

func TestCompile_GlowMatchesLightScheme(t *testing.T) {
	// "light" as a word also triggers the glow rule
	set := Compile("green light", "", nil)
	in, ok := set.Get(KindColor, "glow_color")
	require.True(t, ok)
	assert.Equal(t, "#28a745", in.Value)
}

func TestCompile_SchemeFollowedByRuleKeepsOrder(t *testing.T) {
	set := Compile("red button", "blue", nil)

	colors := set.OfKind(KindColor)
	require.Len(t, colors, 4)
	assert.Equal(t, []string{"primary", "secondary", "accent", "button_color"},
		[]string{colors[0].Key, colors[1].Key, colors[2].Key, colors[3].Key})
	assert.Equal(t, "#dc3545", colors[3].Value)
}

func TestCompile_RasterAssets(t *testing.T) {
	assets := []AssetHandle{
		{Name: "logo.png", TargetPath: "res/drawable/logo.png", Data: []byte{1, 2, 3}},
		{Name: "moodboard.jpg"},
		{Name: "bg.png", TargetPath: "./res/drawable-hdpi/../drawable/bg.png", Data: []byte{4}},
	}
	set := Compile("", "", assets)

	raster := set.OfKind(KindRasterAsset)
	require.Len(t, raster, 2)
	assert.Equal(t, "res/drawable/logo.png", raster[0].Key)
	assert.Equal(t, []byte{1, 2, 3}, raster[0].Payload)
	assert.Equal(t, "res/drawable/bg.png", raster[1].Key)
}

func TestSet_PutOverwritesInPlace(t *testing.T) {
	s := NewSet()
	s.Put(Instruction{Kind: KindColor, Key: "a", Value: "1"})
	s.Put(Instruction{Kind: KindColor, Key: "b", Value: "2"})
	s.Put(Instruction{Kind: KindColor, Key: "a", Value: "3"})

	got := s.OfKind(KindColor)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Key)
	assert.Equal(t, "3", got[0].Value)
}
