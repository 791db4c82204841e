package pod

import "fmt"

// Vector3 is three sequential native floats.
type Vector3 struct {
	X, Y, Z float32
}

func (v Vector3) String() string {
	return fmt.Sprintf("(%g, %g, %g)", v.X, v.Y, v.Z)
}

// Quaternion is four sequential native floats, X Y Z W.
type Quaternion struct {
	X, Y, Z, W float32
}

func (q Quaternion) String() string {
	return fmt.Sprintf("(%g, %g, %g, %g)", q.X, q.Y, q.Z, q.W)
}

// Color is an RGB triple of floats in [0,1].
type Color struct {
	R, G, B float32
}

func (c Color) String() string {
	return fmt.Sprintf("rgb(%g, %g, %g)", c.R, c.G, c.B)
}
