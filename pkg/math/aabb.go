package math

// AABB is an axis-aligned bounding box. The zero value is empty.
type AABB struct {
	Min, Max Vec3
	valid    bool
}

// BoundsOf returns the box enclosing points.
func BoundsOf(points []Vec3) AABB {
	var b AABB
	for _, p := range points {
		b = b.Extend(p)
	}
	return b
}

// Extend returns the box grown to include p.
func (b AABB) Extend(p Vec3) AABB {
	if !b.valid {
		return AABB{Min: p, Max: p, valid: true}
	}
	return AABB{Min: b.Min.Min(p), Max: b.Max.Max(p), valid: true}
}

// Empty reports whether the box encloses no points.
func (b AABB) Empty() bool {
	return !b.valid
}

// Size returns the box extent along each axis.
func (b AABB) Size() Vec3 {
	return b.Max.Sub(b.Min)
}

// Center returns the midpoint of the box.
func (b AABB) Center() Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}
