package geom

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOverlap(t *testing.T) {
	tests := []struct {
		name string
		a, b Shape
		want bool
	}{
		{"circles apart", Circle(V(0, 0), 1), Circle(V(3, 0), 1), false},
		{"circles touching", Circle(V(0, 0), 1), Circle(V(2, 0), 1), true},
		{"circles overlapping", Circle(V(0, 0), 2), Circle(V(1, 1), 1), true},
		{"boxes apart", Box(V(0, 0), V(1, 1)), Box(V(2, 2), V(3, 3)), false},
		{"boxes sharing edge", Box(V(0, 0), V(1, 1)), Box(V(1, 0), V(2, 1)), true},
		{"circle beside box", Circle(V(5, 0.5), 1), Box(V(0, 0), V(1, 1)), false},
		{"circle touching box", Circle(V(2, 0.5), 1), Box(V(0, 0), V(1, 1)), true},
		{"box vs circle at corner", Box(V(0, 0), V(1, 1)), Circle(V(2, 2), 1), false},
		{"circle inside box", Circle(V(5, 5), 1), Box(V(0, 0), V(10, 10)), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Overlap(tt.a, tt.b))
			assert.Equal(t, tt.want, Overlap(tt.b, tt.a))
		})
	}
}

func TestDegenerate(t *testing.T) {
	assert.True(t, Circle(V(1, 1), 0).Degenerate())
	assert.True(t, Box(V(1, 1), V(1, 5)).Degenerate())
	assert.False(t, Circle(V(1, 1), 0.1).Degenerate())
	assert.False(t, Box(V(0, 0), V(1, 1)).Degenerate())
}

func TestBounds(t *testing.T) {
	min, max := Circle(V(10, 20), 5).Bounds()
	assert.Equal(t, V(5, 15), min)
	assert.Equal(t, V(15, 25), max)

	b := Box(V(4, 4), V(0, 0))
	assert.Equal(t, V(0, 0), b.Min)
	assert.Equal(t, V(4, 4), b.Max)
}

func TestSegmentHits(t *testing.T) {
	assert.True(t, SegmentHitsCircle(V(-5, 0), V(5, 0), V(0, 0.5), 1))
	assert.False(t, SegmentHitsCircle(V(-5, 3), V(5, 3), V(0, 0), 1))
	assert.True(t, SegmentHits(V(-5, 0.5), V(5, 0.5), Box(V(0, 0), V(1, 1))))
	assert.False(t, SegmentHits(V(-5, 2), V(5, 2), Box(V(0, 0), V(1, 1))))
}

func TestRandomPointInCircleStaysInside(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 500; i++ {
		p := RandomPointInCircle(r, 7)
		assert.LessOrEqual(t, p.Len(), 7.0+1e-9)
	}
	for i := 0; i < 500; i++ {
		p := RandomPointInDonut(r, 3, 5)
		assert.GreaterOrEqual(t, p.Len(), 3.0-1e-9)
		assert.LessOrEqual(t, p.Len(), 5.0+1e-9)
	}
}

func TestNormalizeZero(t *testing.T) {
	assert.Equal(t, Vec2{}, Vec2{}.Normalize())
	assert.InDelta(t, 1.0, V(3, 4).Normalize().Len(), 1e-9)
}

func TestSeparate(t *testing.T) {
	// circle against circle
	p := Separate(Circle(V(1, 0), 1), Circle(V(0, 0), 2))
	assert.InDelta(t, 3.0, p.X, 1e-9)
	assert.InDelta(t, 0.0, p.Y, 1e-9)

	// outside a box corner region
	p = Separate(Circle(V(2.5, 0), 1), Box(V(-2, -2), V(2, 2)))
	assert.InDelta(t, 3.0, p.X, 1e-9)

	// centre inside the box leaves through the nearest side
	p = Separate(Circle(V(0, 1.5), 0.5), Box(V(-2, -2), V(2, 2)))
	assert.Equal(t, V(0, 2.5), p)

	// no overlap, no change
	assert.Equal(t, V(10, 10), Separate(Circle(V(10, 10), 1), Circle(V(0, 0), 1)))
}
