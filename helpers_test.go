package meadow

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/meadow/gpu"
)

// mockDevice records every create and release so tests can check that each
// handle is released exactly once.
type mockDevice struct {
	mu sync.Mutex

	next     uint64
	created  map[string]map[uint64]bool
	released map[string]map[uint64]int

	pipelines []gpu.PipelineDesc
	submits   [][]gpu.Pass
	writes    map[gpu.BufferID][]byte
	resizes   [][2]int

	failSubmit error
}

func newMockDevice() *mockDevice {
	return &mockDevice{
		created:  map[string]map[uint64]bool{},
		released: map[string]map[uint64]int{},
		writes:   map[gpu.BufferID][]byte{},
	}
}

func (d *mockDevice) create(kind string) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.next++
	if d.created[kind] == nil {
		d.created[kind] = map[uint64]bool{}
	}
	d.created[kind][d.next] = true
	return d.next
}

func (d *mockDevice) release(kind string, id uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.released[kind] == nil {
		d.released[kind] = map[uint64]int{}
	}
	d.released[kind][id]++
}

func (d *mockDevice) CreateBuffer(desc gpu.BufferDesc) (gpu.BufferID, error) {
	if len(desc.Contents) == 0 {
		return 0, fmt.Errorf("buffer %s: empty contents", desc.Label)
	}
	return gpu.BufferID(d.create("buffer")), nil
}

func (d *mockDevice) WriteBuffer(id gpu.BufferID, offset uint64, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.created["buffer"][uint64(id)] || d.released["buffer"][uint64(id)] > 0 {
		return gpu.ErrUnknownHandle
	}
	d.writes[id] = append([]byte(nil), data...)
	return nil
}

func (d *mockDevice) ReleaseBuffer(id gpu.BufferID) { d.release("buffer", uint64(id)) }

func (d *mockDevice) CreateTexture(desc gpu.TextureDesc) (gpu.TextureID, error) {
	if desc.Width == 0 || desc.Height == 0 {
		return 0, fmt.Errorf("texture %s: empty size", desc.Label)
	}
	return gpu.TextureID(d.create("texture")), nil
}

func (d *mockDevice) ReleaseTexture(id gpu.TextureID) { d.release("texture", uint64(id)) }

func (d *mockDevice) CreatePipeline(desc gpu.PipelineDesc) (gpu.PipelineID, error) {
	d.mu.Lock()
	d.pipelines = append(d.pipelines, desc)
	d.mu.Unlock()
	return gpu.PipelineID(d.create("pipeline")), nil
}

func (d *mockDevice) ReleasePipeline(id gpu.PipelineID) { d.release("pipeline", uint64(id)) }

func (d *mockDevice) CreateBindGroup(pipeline gpu.PipelineID, group uint32, entries []gpu.BindEntry) (gpu.BindGroupID, error) {
	return gpu.BindGroupID(d.create("bindgroup")), nil
}

func (d *mockDevice) ReleaseBindGroup(id gpu.BindGroupID) { d.release("bindgroup", uint64(id)) }

func (d *mockDevice) Submit(passes []gpu.Pass) error {
	if d.failSubmit != nil {
		return d.failSubmit
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.submits = append(d.submits, passes)
	return nil
}

func (d *mockDevice) Resize(width, height int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resizes = append(d.resizes, [2]int{width, height})
}

func (d *mockDevice) createdCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, ids := range d.created {
		n += len(ids)
	}
	return n
}

// requireAllReleasedOnce fails unless every created handle was released
// exactly once and nothing unknown was released.
func (d *mockDevice) requireAllReleasedOnce(t *testing.T) {
	t.Helper()
	d.mu.Lock()
	defer d.mu.Unlock()
	for kind, ids := range d.created {
		for id := range ids {
			require.Equal(t, 1, d.released[kind][id], "%s %d release count", kind, id)
		}
	}
	for kind, ids := range d.released {
		for id := range ids {
			require.True(t, d.created[kind][id], "released unknown %s %d", kind, id)
		}
	}
}

func (d *mockDevice) lastFrame() []gpu.Pass {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.submits) == 0 {
		return nil
	}
	return d.submits[len(d.submits)-1]
}

// drawsLabelled counts draws with the given label across a frame's passes.
func drawsLabelled(passes []gpu.Pass, label string) []gpu.Draw {
	var out []gpu.Draw
	for _, p := range passes {
		for _, d := range p.Draws {
			if d.Label == label {
				out = append(out, d)
			}
		}
	}
	return out
}

type fakeWindow struct {
	width, height int
	closed        bool
	input         PointerInput
	resized       bool
}

func (w *fakeWindow) Size() (int, int) { return w.width, w.height }

func (w *fakeWindow) ShouldClose() bool { return w.closed }

func (w *fakeWindow) PollEvents() (PointerInput, bool) {
	in, resized := w.input, w.resized
	w.input, w.resized = PointerInput{}, false
	return in, resized
}

func (w *fakeWindow) resize(width, height int) {
	w.width, w.height = width, height
	w.resized = true
}

// writeTestGLB writes a single-triangle blade mesh attached to a node with
// the given name.
func writeTestGLB(t *testing.T, dir, nodeName string) string {
	t.Helper()
	doc := gltf.NewDocument()
	pos := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {0.1, 0, 0}, {0, 1, 0}})
	normal := modeler.WriteNormal(doc, [][3]float32{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}})
	uv := modeler.WriteTextureCoord(doc, [][2]float32{{0, 1}, {1, 1}, {0, 0}})
	idx := modeler.WriteIndices(doc, []uint16{0, 1, 2})
	doc.Meshes = []*gltf.Mesh{{
		Name: "blade",
		Primitives: []*gltf.Primitive{{
			Indices: gltf.Index(idx),
			Attributes: map[string]int{
				"POSITION":   pos,
				"NORMAL":     normal,
				"TEXCOORD_0": uv,
			},
		}},
	}}
	doc.Nodes = []*gltf.Node{{Name: nodeName, Mesh: gltf.Index(0)}}

	path := filepath.Join(dir, "grass.glb")
	require.NoError(t, gltf.SaveBinary(doc, path))
	return path
}

func writeTestPNG(t *testing.T, dir string) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.NRGBA{R: 40, G: 160, B: 30, A: 255})
	img.Set(1, 0, color.NRGBA{R: 50, G: 170, B: 40, A: 255})
	img.Set(0, 1, color.NRGBA{R: 60, G: 180, B: 50, A: 0})
	img.Set(1, 1, color.NRGBA{R: 70, G: 190, B: 60, A: 128})

	path := filepath.Join(dir, "grass.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

// testConfig points the asset paths at freshly written fixtures.
func testConfig(t *testing.T) Config {
	t.Helper()
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Assets.MeshPath = writeTestGLB(t, dir, "grass")
	cfg.Assets.TexturePath = writeTestPNG(t, dir)
	cfg.Assets.Workers = 1
	return cfg
}

// stepUntil steps the app until it reaches want or the deadline passes.
func stepUntil(t *testing.T, app *App, want State) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for app.State() != want && !app.Finished() {
		require.True(t, time.Now().Before(deadline), "timed out waiting for %v, in %v", want, app.State())
		app.Step()
		time.Sleep(time.Millisecond)
	}
	require.Equal(t, want, app.State())
}
