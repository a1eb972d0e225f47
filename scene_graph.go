package meadow

import "github.com/go-gl/mathgl/mgl32"

type Transform struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
}

func IdentityTransform() Transform {
	return Transform{
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
	}
}

// EulerTransform builds a transform from XYZ Euler angles in radians.
func EulerTransform(position mgl32.Vec3, rx, ry, rz float32) Transform {
	t := IdentityTransform()
	t.Position = position
	t.Rotation = mgl32.AnglesToQuat(rx, ry, rz, mgl32.XYZ)
	return t
}

func (t Transform) Matrix() mgl32.Mat4 {
	return mgl32.Translate3D(t.Position[0], t.Position[1], t.Position[2]).
		Mul4(t.Rotation.Mat4()).
		Mul4(mgl32.Scale3D(t.Scale[0], t.Scale[1], t.Scale[2]))
}

type AmbientLight struct {
	Color     mgl32.Vec3
	Intensity float32
}

func (l *AmbientLight) radiance() mgl32.Vec4 {
	return l.Color.Mul(l.Intensity).Vec4(1)
}

// Plane is a flat mesh drawn with its own material.
type Plane struct {
	Mesh     AssetId
	Material *Material
}

// Node is one element of the scene tree. Payload is one of *AmbientLight,
// *Sky, *Plane, *Field, *OrbitControls, *Suspense, or nil for a group.
type Node struct {
	Name      string
	Transform Transform
	Payload   any
	Children  []*Node

	parent *Node
}

func NewNode(name string, payload any) *Node {
	return &Node{
		Name:      name,
		Transform: IdentityTransform(),
		Payload:   payload,
	}
}

func (n *Node) Add(children ...*Node) *Node {
	for _, c := range children {
		c.parent = n
		n.Children = append(n.Children, c)
	}
	return n
}

func (n *Node) Parent() *Node {
	return n.parent
}

func (n *Node) WorldMatrix() mgl32.Mat4 {
	m := n.Transform.Matrix()
	for p := n.parent; p != nil; p = p.parent {
		m = p.Transform.Matrix().Mul4(m)
	}
	return m
}

// Walk visits n and its descendants depth first. Returning false from fn
// skips the children of the visited node.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Find returns the first node with the given name.
func (n *Node) Find(name string) *Node {
	var found *Node
	n.Walk(func(node *Node) bool {
		if found != nil {
			return false
		}
		if node.Name == name {
			found = node
			return false
		}
		return true
	})
	return found
}
