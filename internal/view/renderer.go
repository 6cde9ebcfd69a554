package view

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/Faultbox/meshlink/pkg/math"
	"github.com/Faultbox/meshlink/pkg/refine"
)

// vertex layout: position(3f) + normal(3f)
const vertexStride = 6 * 4

type splitBuffers struct {
	vao        uint32
	vbo        uint32
	ebo        uint32
	indexCount int32
}

type meshEntry struct {
	model   math.Mat4
	visible bool
	splits  []splitBuffers
}

// Renderer owns the GPU-side copy of the synced scene: one VAO per split,
// keyed by entity path. All methods require a current GL context.
type Renderer struct {
	program   uint32
	uModel    int32
	uViewProj int32
	uColor    int32

	meshes map[string]*meshEntry
}

// NewRenderer compiles the shading program. Requires a current GL context.
func NewRenderer() (*Renderer, error) {
	program, err := compileProgram(vertexShaderSrc, fragmentShaderSrc)
	if err != nil {
		return nil, fmt.Errorf("compiling scene shader: %w", err)
	}
	r := &Renderer{
		program:   program,
		uModel:    uniform(program, "uModel"),
		uViewProj: uniform(program, "uViewProj"),
		uColor:    uniform(program, "uColor"),
		meshes:    make(map[string]*meshEntry),
	}
	gl.Enable(gl.DEPTH_TEST)
	return r, nil
}

// Upload replaces the GPU buffers for one refined mesh. A re-sync of an
// existing path frees the previous buffers first.
func (r *Renderer) Upload(m *refine.RefinedMesh) {
	path := m.Source.Path
	if old, ok := r.meshes[path]; ok {
		old.free()
	}

	entry := &meshEntry{
		model:   m.Source.Matrix(),
		visible: m.Source.Flags.Visible,
	}
	for i := range m.Splits {
		entry.splits = append(entry.splits, uploadSplit(&m.Splits[i]))
	}
	r.meshes[path] = entry
}

// Remove frees the GPU buffers for a path. Unknown paths are ignored.
func (r *Renderer) Remove(path string) {
	if entry, ok := r.meshes[path]; ok {
		entry.free()
		delete(r.meshes, path)
	}
}

// Draw renders every visible mesh with the given view-projection matrix.
func (r *Renderer) Draw(viewProj math.Mat4) {
	gl.UseProgram(r.program)
	gl.UniformMatrix4fv(r.uViewProj, 1, false, viewProj.Ptr())
	gl.Uniform3f(r.uColor, 0.75, 0.75, 0.78)

	for _, entry := range r.meshes {
		if !entry.visible {
			continue
		}
		gl.UniformMatrix4fv(r.uModel, 1, false, entry.model.Ptr())
		for _, sb := range entry.splits {
			gl.BindVertexArray(sb.vao)
			gl.DrawElements(gl.TRIANGLES, sb.indexCount, gl.UNSIGNED_INT, nil)
		}
	}
	gl.BindVertexArray(0)
}

// Destroy frees all GPU resources.
func (r *Renderer) Destroy() {
	for _, entry := range r.meshes {
		entry.free()
	}
	r.meshes = make(map[string]*meshEntry)
	gl.DeleteProgram(r.program)
}

func uploadSplit(s *refine.Split) splitBuffers {
	// Interleave position and normal. Splits always carry normals after
	// refinement; an empty normal buffer falls back to zero vectors.
	verts := make([]float32, 0, len(s.Points)*6)
	for i, p := range s.Points {
		var n math.Vec3
		if i < len(s.Normals) {
			n = s.Normals[i]
		}
		verts = append(verts, p.X, p.Y, p.Z, n.X, n.Y, n.Z)
	}

	indices := make([]uint32, len(s.Indices))
	for i, idx := range s.Indices {
		indices[i] = uint32(idx)
	}

	var sb splitBuffers
	sb.indexCount = int32(len(indices))

	gl.GenVertexArrays(1, &sb.vao)
	gl.BindVertexArray(sb.vao)

	gl.GenBuffers(1, &sb.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, sb.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(verts)*4, gl.Ptr(verts), gl.STATIC_DRAW)

	gl.GenBuffers(1, &sb.ebo)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, sb.ebo)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(indices)*4, gl.Ptr(indices), gl.STATIC_DRAW)

	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, vertexStride, 0)
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointerWithOffset(1, 3, gl.FLOAT, false, vertexStride, uintptr(3*4))

	gl.BindVertexArray(0)
	return sb
}

func (e *meshEntry) free() {
	for i := range e.splits {
		sb := &e.splits[i]
		gl.DeleteBuffers(1, &sb.vbo)
		gl.DeleteBuffers(1, &sb.ebo)
		gl.DeleteVertexArrays(1, &sb.vao)
	}
	e.splits = nil
}
