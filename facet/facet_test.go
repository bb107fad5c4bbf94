package facet_test

import (
	"testing"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/kestrelsearch/kestrel/facet"
	"github.com/kestrelsearch/kestrel/query"
)

type fakeCtx struct {
	stringDocids map[uint16]map[string]*roaring.Bitmap
	existsDocids map[uint16]*roaring.Bitmap
	universe     *roaring.Bitmap
}

func newFakeCtx() *fakeCtx {
	return &fakeCtx{
		stringDocids: map[uint16]map[string]*roaring.Bitmap{},
		existsDocids: map[uint16]*roaring.Bitmap{},
		universe:     roaring.New(),
	}
}

func (f *fakeCtx) setString(fid uint16, value string, docs ...uint32) {
	if f.stringDocids[fid] == nil {
		f.stringDocids[fid] = map[string]*roaring.Bitmap{}
	}
	bm := roaring.New()
	bm.AddMany(docs)
	f.stringDocids[fid][value] = bm
	f.universe.AddMany(docs)
}

func (f *fakeCtx) WordDocids(string) (*roaring.Bitmap, error)              { return roaring.New(), nil }
func (f *fakeCtx) WordPrefixDocids(string) (*roaring.Bitmap, error)        { return roaring.New(), nil }
func (f *fakeCtx) WordFieldDocids(string, uint16) (*roaring.Bitmap, error) { return roaring.New(), nil }
func (f *fakeCtx) WordPositionDocids(string, uint32) (*roaring.Bitmap, error) {
	return roaring.New(), nil
}
func (f *fakeCtx) WordPairProximityDocids(string, string, uint8) (*roaring.Bitmap, error) {
	return roaring.New(), nil
}
func (f *fakeCtx) ExistsDocids(fid uint16) (*roaring.Bitmap, error) {
	if bm, ok := f.existsDocids[fid]; ok {
		return bm.Clone(), nil
	}
	return roaring.New(), nil
}
func (f *fakeCtx) IsNullDocids(uint16) (*roaring.Bitmap, error)  { return roaring.New(), nil }
func (f *fakeCtx) IsEmptyDocids(uint16) (*roaring.Bitmap, error) { return roaring.New(), nil }
func (f *fakeCtx) FacetStringDocids(fid uint16, value string) (*roaring.Bitmap, error) {
	if bm, ok := f.stringDocids[fid][value]; ok {
		return bm.Clone(), nil
	}
	return roaring.New(), nil
}
func (f *fakeCtx) FacetStringValues(fid uint16) ([]string, error) {
	var out []string
	for v := range f.stringDocids[fid] {
		out = append(out, v)
	}
	return out, nil
}
func (f *fakeCtx) FacetNumericLevels(uint16) ([]query.NumericLevel, error) { return nil, nil }
func (f *fakeCtx) Universe() (*roaring.Bitmap, error)                      { return f.universe.Clone(), nil }
func (f *fakeCtx) Vocabulary() ([]string, error)                           { return nil, nil }
func (f *fakeCtx) WordPairFrequency(string, string, uint8) (uint64, error) { return 0, nil }

var _ query.Context = (*fakeCtx)(nil)

type staticResolver struct {
	fields map[string]struct {
		fid        uint16
		filterable bool
	}
}

func (r staticResolver) ResolveField(path string) (uint16, bool, bool) {
	f, ok := r.fields[path]
	if !ok {
		return 0, false, false
	}
	return f.fid, f.filterable, true
}

func TestEvalEqString(t *testing.T) {
	ctx := newFakeCtx()
	ctx.setString(1, "red", 1, 2)
	ctx.setString(1, "blue", 3)
	resolver := staticResolver{fields: map[string]struct {
		fid        uint16
		filterable bool
	}{"color": {fid: 1, filterable: true}}}

	bits, err := facet.Eval(ctx, resolver, facet.Field{Path: "color", Expr: facet.Eq{Value: facet.Str("RED")}})
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if bits.GetCardinality() != 2 || !bits.Contains(1) || !bits.Contains(2) {
		t.Fatalf("expected {1,2}, got %v", bits.ToArray())
	}
}

func TestEvalNonFilterableFieldIsUserError(t *testing.T) {
	ctx := newFakeCtx()
	resolver := staticResolver{fields: map[string]struct {
		fid        uint16
		filterable bool
	}{"color": {fid: 1, filterable: false}}}

	_, err := facet.Eval(ctx, resolver, facet.Field{Path: "color", Expr: facet.Eq{Value: facet.Str("red")}})
	if err == nil {
		t.Fatalf("expected an error for a non-filterable field")
	}
}

func TestEvalNotIsUniverseMinusInner(t *testing.T) {
	ctx := newFakeCtx()
	ctx.setString(1, "red", 1, 2)
	ctx.setString(1, "blue", 3)
	resolver := staticResolver{fields: map[string]struct {
		fid        uint16
		filterable bool
	}{"color": {fid: 1, filterable: true}}}

	bits, err := facet.Eval(ctx, resolver, facet.Not{Expr: facet.Field{Path: "color", Expr: facet.Eq{Value: facet.Str("red")}}})
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if bits.GetCardinality() != 1 || !bits.Contains(3) {
		t.Fatalf("expected {3}, got %v", bits.ToArray())
	}
}

func TestDistributionOrdersByCount(t *testing.T) {
	ctx := newFakeCtx()
	ctx.setString(1, "red", 1, 2, 3)
	ctx.setString(1, "blue", 4)
	universe, _ := ctx.Universe()

	counts, err := facet.Distribution(ctx, universe, 1, facet.ByCount, 10)
	if err != nil {
		t.Fatalf("Distribution: %v", err)
	}
	if len(counts) != 2 || counts[0].Value != "red" || counts[0].Count != 3 {
		t.Fatalf("expected red first with count 3, got %+v", counts)
	}
}
