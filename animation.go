package meadow

// AnimationDriver advances the shared time uniform by a fixed step per
// frame and keeps the orbit controls' damping running.
type AnimationDriver struct {
	Uniforms *UniformSet
	Step     float32
	Controls *OrbitControls
}

func NewAnimationDriver(uniforms *UniformSet, cfg AnimationConfig, controls *OrbitControls) *AnimationDriver {
	return &AnimationDriver{
		Uniforms: uniforms,
		Step:     cfg.Step,
		Controls: controls,
	}
}

// Frame runs one animation tick. The step does not depend on elapsed wall
// time, so the animation rate follows the frame rate.
func (d *AnimationDriver) Frame() {
	d.Uniforms.Advance(d.Step)
	d.UpdateControls()
}

// UpdateControls applies damped camera motion without advancing time.
func (d *AnimationDriver) UpdateControls() {
	if d.Controls != nil {
		d.Controls.Update()
	}
}
