package db

// HNSWParams tunes an HNSW vector field. Zero values leave the server defaults.
type HNSWParams struct {
	Dim            int
	Distance       DistanceMetric
	M              int
	EFConstruction int
}

// IndexBuilder assembles an IndexDefinition field by field.
// Field order is kept as declared since FT.CREATE is order sensitive for SCHEMA output.
type IndexBuilder struct {
	def IndexDefinition
}

// NewIndex starts a definition for the named index.
func NewIndex(name string) *IndexBuilder {
	return &IndexBuilder{def: IndexDefinition{Name: name}}
}

// Prefix restricts the index to hashes under the given key prefixes.
func (b *IndexBuilder) Prefix(prefixes ...string) *IndexBuilder {
	b.def.Prefixes = append(b.def.Prefixes, prefixes...)
	return b
}

// Tag adds an exact-match field, used for tenant scoping.
func (b *IndexBuilder) Tag(name string) *IndexBuilder {
	return b.add(IndexField{Name: name, Type: IndexFieldTag})
}

// Text adds full-text fields with the default weight.
func (b *IndexBuilder) Text(names ...string) *IndexBuilder {
	for _, name := range names {
		b.add(IndexField{Name: name, Type: IndexFieldText})
	}
	return b
}

// WeightedText adds a full-text field whose matches score weight times higher.
func (b *IndexBuilder) WeightedText(name string, weight float64) *IndexBuilder {
	return b.add(IndexField{Name: name, Type: IndexFieldText, TextWeight: weight})
}

// Vector adds a FLOAT32 HNSW vector field.
func (b *IndexBuilder) Vector(name string, p HNSWParams) *IndexBuilder {
	return b.add(IndexField{
		Name:              name,
		Type:              IndexFieldVector,
		VectorDim:         p.Dim,
		VectorDistance:    p.Distance,
		VectorM:           p.M,
		VectorEFConstruct: p.EFConstruction,
	})
}

// Build validates the definition and returns a copy, so the builder may be reused.
func (b *IndexBuilder) Build() (*IndexDefinition, error) {
	if err := b.def.Validate(); err != nil {
		return nil, err
	}
	def := b.def
	def.Prefixes = append([]string(nil), b.def.Prefixes...)
	def.Fields = append([]IndexField(nil), b.def.Fields...)
	return &def, nil
}

func (b *IndexBuilder) add(f IndexField) *IndexBuilder {
	b.def.Fields = append(b.def.Fields, f)
	return b
}
