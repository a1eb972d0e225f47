package meadow

// UniformSet is the state shared between the animation driver and every
// material that binds it. It is threaded explicitly; there is no global copy.
type UniformSet struct {
	Time    float32
	Texture AssetId
}

func NewUniformSet(initialTime float32, texture AssetId) *UniformSet {
	return &UniformSet{Time: initialTime, Texture: texture}
}

// Advance adds a fixed step to Time, independent of wall-clock time.
func (u *UniformSet) Advance(step float32) {
	u.Time += step
}
