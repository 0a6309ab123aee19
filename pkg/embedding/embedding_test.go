package embedding

import (
	"context"
	"fmt"
	"math"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

type stubTier struct {
	name   string
	vector []float32
	model  string
	err    error
	calls  int
	seen   string
}

func (t *stubTier) Name() string { return t.name }

func (t *stubTier) Embed(ctx context.Context, text string, contentType ContentType) ([]float32, string, error) {
	t.calls++
	t.seen = text
	return t.vector, t.model, t.err
}

func TestHashVector(t *testing.T) {
	Convey("Given the hash embedding fallback", t, func() {
		Convey("It is deterministic", func() {
			a := hashVector("some memory content", 64)
			b := hashVector("some memory content", 64)
			So(a, ShouldResemble, b)
		})

		Convey("Different inputs produce different vectors", func() {
			a := hashVector("first content", 64)
			b := hashVector("second content", 64)
			So(a, ShouldNotResemble, b)
		})

		Convey("The vector has the requested dimension", func() {
			So(hashVector("x", 32), ShouldHaveLength, 32)
			So(hashVector("x", 1536), ShouldHaveLength, 1536)
		})

		Convey("The vector is L2 normalized", func() {
			vector := hashVector("normalize me", 128)
			var norm float64
			for _, v := range vector {
				norm += float64(v) * float64(v)
			}
			So(math.Sqrt(norm), ShouldAlmostEqual, 1.0, 1e-5)
		})

		Convey("Empty input still yields a unit vector", func() {
			vector := hashVector("", 16)
			So(vector, ShouldHaveLength, 16)
			var norm float64
			for _, v := range vector {
				norm += float64(v) * float64(v)
			}
			So(math.Sqrt(norm), ShouldAlmostEqual, 1.0, 1e-5)
		})
	})
}

func TestTieredGenerator(t *testing.T) {
	ctx := context.Background()

	Convey("Given a tiered generator", t, func() {
		Convey("The first healthy tier wins", func() {
			good := &stubTier{name: "good", vector: make([]float32, 8), model: "model-a"}
			unused := &stubTier{name: "unused", vector: make([]float32, 8), model: "model-b"}
			gen := NewTieredGenerator(8, good, unused)

			result := gen.Generate(ctx, "hello", Text, "")
			So(result.ModelUsed, ShouldEqual, "model-a")
			So(unused.calls, ShouldEqual, 0)
		})

		Convey("A failing tier falls through to the next", func() {
			broken := &stubTier{name: "broken", err: fmt.Errorf("connection refused")}
			good := &stubTier{name: "good", vector: make([]float32, 8), model: "model-b"}
			gen := NewTieredGenerator(8, broken, good)

			result := gen.Generate(ctx, "hello", Text, "")
			So(result.ModelUsed, ShouldEqual, "model-b")
			So(broken.calls, ShouldEqual, 1)
		})

		Convey("A wrong-dimension tier is skipped", func() {
			wrong := &stubTier{name: "wrong", vector: make([]float32, 4), model: "model-a"}
			gen := NewTieredGenerator(8, wrong)

			result := gen.Generate(ctx, "hello", Text, "")
			So(result.ModelUsed, ShouldEqual, hashModelName)
			So(result.Vector, ShouldHaveLength, 8)
		})

		Convey("With every tier down generation still succeeds", func() {
			broken := &stubTier{name: "broken", err: fmt.Errorf("down")}
			gen := NewTieredGenerator(16, broken)

			result := gen.Generate(ctx, "survives anything", Text, "")
			So(result.ModelUsed, ShouldEqual, hashModelName)
			So(result.Vector, ShouldHaveLength, 16)
			So(result.TokenEstimate, ShouldBeGreaterThan, 0)
		})

		Convey("Structural context is serialized ahead of the code", func() {
			tier := &stubTier{name: "capture", vector: make([]float32, 8), model: "model-a"}
			gen := NewTieredGenerator(8, tier)

			result := gen.GenerateWithContext(ctx, "func Get(id string) {}", CodeContext{
				Language:  "go",
				Functions: []string{"Get", "Put"},
				Imports:   []string{"context"},
				Calls:     map[string][]string{"Get": {"fetch"}},
			})
			So(result.ModelUsed, ShouldEqual, "model-a")
			So(tier.seen, ShouldContainSubstring, "// functions: Get, Put")
			So(tier.seen, ShouldContainSubstring, "// imports: context")
			So(tier.seen, ShouldContainSubstring, "// calls: Get -> fetch")
			So(tier.seen, ShouldContainSubstring, "func Get(id string) {}")
		})

		Convey("Batch generation covers every input", func() {
			gen := NewTieredGenerator(8)
			results := gen.GenerateBatch(ctx, []string{"one", "two", "three"}, Text, "")
			So(results, ShouldHaveLength, 3)
			for _, result := range results {
				So(result.Vector, ShouldHaveLength, 8)
			}
		})
	})
}

func TestCosine(t *testing.T) {
	Convey("Given the cosine similarity helper", t, func() {
		Convey("Identical vectors score 1", func() {
			v := []float32{0.5, 0.5, 0.1}
			So(Cosine(v, v), ShouldAlmostEqual, 1.0, 1e-6)
		})

		Convey("Orthogonal vectors score 0", func() {
			So(Cosine([]float32{1, 0}, []float32{0, 1}), ShouldAlmostEqual, 0.0, 1e-6)
		})

		Convey("Mismatched dimensions score 0", func() {
			So(Cosine([]float32{1, 0}, []float32{1, 0, 0}), ShouldEqual, 0)
		})

		Convey("Zero vectors score 0", func() {
			So(Cosine([]float32{0, 0}, []float32{1, 1}), ShouldEqual, 0)
		})
	})
}
