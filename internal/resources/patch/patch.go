// Package patch turns free-text change requests into ordered resource patch
// instructions. It never touches the filesystem.
package patch

// TargetKind is the kind of resource an instruction replaces.
type TargetKind string

const (
	KindColor           TargetKind = "color"
	KindString          TargetKind = "string"
	KindLayoutAttribute TargetKind = "layout_attribute"
	KindRasterAsset     TargetKind = "raster_asset"
)

// kindOrder is the order in which instruction groups are emitted and applied.
var kindOrder = []TargetKind{KindColor, KindString, KindLayoutAttribute, KindRasterAsset}

// Instruction replaces one existing resource value. For layout attributes
// Key names a size adjustment and Value its direction ("large"/"small").
// For raster assets Key is a path relative to the resource root and Payload
// holds the new bytes.
type Instruction struct {
	Kind    TargetKind `json:"kind"`
	Key     string     `json:"key"`
	Value   string     `json:"value,omitempty"`
	Payload []byte     `json:"-"`
}

// AssetHandle is a reference asset supplied with a change request.
// Assets without a TargetPath are informational and produce no instruction.
type AssetHandle struct {
	Name       string
	TargetPath string
	Data       []byte
}

// Set is an ordered collection of instructions. Within one kind, a key
// appears at most once; a later write replaces the value but keeps the
// position of the first.
type Set struct {
	groups map[TargetKind]*group
}

type group struct {
	order []string
	items map[string]Instruction
}

func NewSet() *Set {
	return &Set{groups: make(map[TargetKind]*group, len(kindOrder))}
}

// Put adds or overwrites an instruction.
func (s *Set) Put(in Instruction) {
	g, ok := s.groups[in.Kind]
	if !ok {
		g = &group{items: make(map[string]Instruction)}
		s.groups[in.Kind] = g
	}
	if _, exists := g.items[in.Key]; !exists {
		g.order = append(g.order, in.Key)
	}
	g.items[in.Key] = in
}

// Get returns the instruction stored for kind and key.
func (s *Set) Get(kind TargetKind, key string) (Instruction, bool) {
	g, ok := s.groups[kind]
	if !ok {
		return Instruction{}, false
	}
	in, ok := g.items[key]
	return in, ok
}

// Instructions returns all instructions: colors, strings, layout
// attributes, then raster assets.
func (s *Set) Instructions() []Instruction {
	out := make([]Instruction, 0, s.Len())
	for _, k := range kindOrder {
		out = append(out, s.OfKind(k)...)
	}
	return out
}

// OfKind returns the instructions of one kind in insertion order.
func (s *Set) OfKind(kind TargetKind) []Instruction {
	g, ok := s.groups[kind]
	if !ok {
		return nil
	}
	out := make([]Instruction, 0, len(g.order))
	for _, key := range g.order {
		out = append(out, g.items[key])
	}
	return out
}

func (s *Set) Len() int {
	n := 0
	for _, g := range s.groups {
		n += len(g.order)
	}
	return n
}

func (s *Set) Empty() bool { return s.Len() == 0 }
