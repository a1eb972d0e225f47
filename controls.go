package meadow

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	polarEpsilon  = 1e-6
	motionEpsilon = 1e-7
)

// OrbitControls orbits a camera around Target. Input accumulates spherical
// deltas; Update applies them, with exponential damping when enabled, and must
// run once per frame.
type OrbitControls struct {
	Camera *Camera
	Target mgl32.Vec3

	EnableDamping bool
	DampingFactor float32
	RotateSpeed   float32
	ZoomSpeed     float32
	MinDistance   float32
	MaxDistance   float32
	// Polar angle limits in radians, measured from +Y.
	MinPolar float32
	MaxPolar float32

	deltaTheta float32
	deltaPhi   float32
	scale      float32
	panOffset  mgl32.Vec3
}

func NewOrbitControls(camera *Camera, cfg ControlsConfig) *OrbitControls {
	return &OrbitControls{
		Camera:        camera,
		Target:        camera.Target,
		EnableDamping: cfg.EnableDamping,
		DampingFactor: cfg.DampingFactor,
		RotateSpeed:   cfg.RotateSpeed,
		ZoomSpeed:     cfg.ZoomSpeed,
		MinDistance:   cfg.MinDistance,
		MaxDistance:   cfg.MaxDistance,
		MinPolar:      0,
		MaxPolar:      math32.Pi,
		scale:         1,
	}
}

// Rotate turns pointer movement in pixels into an orbit. A drag across the
// full viewport height is one revolution at RotateSpeed 1.
func (o *OrbitControls) Rotate(dx, dy float32, viewportHeight int) {
	if viewportHeight <= 0 {
		return
	}
	h := float32(viewportHeight)
	o.deltaTheta -= 2 * math32.Pi * dx / h * o.RotateSpeed
	o.deltaPhi -= 2 * math32.Pi * dy / h * o.RotateSpeed
}

// Zoom dollies towards the target for positive scroll and away for negative.
func (o *OrbitControls) Zoom(scroll float32) {
	if scroll == 0 {
		return
	}
	step := math32.Pow(0.95, o.ZoomSpeed*math32.Abs(scroll))
	if scroll > 0 {
		o.scale *= step
	} else {
		o.scale /= step
	}
}

// Pan moves the target in the view plane so the point under the cursor follows it.
func (o *OrbitControls) Pan(dx, dy float32, viewportHeight int) {
	if viewportHeight <= 0 {
		return
	}
	offset := o.Camera.Position.Sub(o.Target)
	distance := offset.Len() * math32.Tan(mgl32.DegToRad(o.Camera.FOV)/2)
	h := float32(viewportHeight)

	forward := o.Target.Sub(o.Camera.Position)
	right := forward.Cross(o.Camera.Up)
	if right.Len() < polarEpsilon {
		return
	}
	right = right.Normalize()
	up := right.Cross(forward).Normalize()

	o.panOffset = o.panOffset.
		Sub(right.Mul(2 * dx * distance / h)).
		Add(up.Mul(2 * dy * distance / h))
}

func (o *OrbitControls) idle() bool {
	return math32.Abs(o.deltaTheta) < motionEpsilon &&
		math32.Abs(o.deltaPhi) < motionEpsilon &&
		o.scale == 1 &&
		o.panOffset.Len() < motionEpsilon
}

// Update moves the camera and reports whether it changed. Once the pending
// motion has decayed below a small threshold it is dropped and the camera is
// left untouched.
func (o *OrbitControls) Update() bool {
	if o.idle() {
		o.deltaTheta, o.deltaPhi = 0, 0
		o.panOffset = mgl32.Vec3{}
		return false
	}

	offset := o.Camera.Position.Sub(o.Target)
	radius, theta, phi := toSpherical(offset)

	if o.EnableDamping {
		theta += o.deltaTheta * o.DampingFactor
		phi += o.deltaPhi * o.DampingFactor
	} else {
		theta += o.deltaTheta
		phi += o.deltaPhi
	}

	phi = clamp(phi, o.MinPolar, o.MaxPolar)
	phi = clamp(phi, polarEpsilon, math32.Pi-polarEpsilon)

	radius = clamp(radius*o.scale, o.MinDistance, o.MaxDistance)

	if o.EnableDamping {
		o.Target = o.Target.Add(o.panOffset.Mul(o.DampingFactor))
	} else {
		o.Target = o.Target.Add(o.panOffset)
	}

	o.Camera.Position = o.Target.Add(fromSpherical(radius, theta, phi))
	o.Camera.Target = o.Target

	if o.EnableDamping {
		decay := 1 - o.DampingFactor
		o.deltaTheta *= decay
		o.deltaPhi *= decay
		o.panOffset = o.panOffset.Mul(decay)
	} else {
		o.deltaTheta, o.deltaPhi = 0, 0
		o.panOffset = mgl32.Vec3{}
	}
	o.scale = 1
	return true
}

// toSpherical returns radius, azimuth about +Y measured from +Z, and polar
// angle from +Y.
func toSpherical(v mgl32.Vec3) (radius, theta, phi float32) {
	radius = v.Len()
	if radius == 0 {
		return 0, 0, 0
	}
	theta = math32.Atan2(v[0], v[2])
	phi = math32.Acos(clamp(v[1]/radius, -1, 1))
	return radius, theta, phi
}

func fromSpherical(radius, theta, phi float32) mgl32.Vec3 {
	sinPhi := math32.Sin(phi)
	return mgl32.Vec3{
		radius * sinPhi * math32.Sin(theta),
		radius * math32.Cos(phi),
		radius * sinPhi * math32.Cos(theta),
	}
}

func clamp(v, lo, hi float32) float32 {
	return math32.Max(lo, math32.Min(hi, v))
}
