// Package transform computes the per-frame model/view/projection matrices.
package transform

import (
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

// MVP matches the uniform block layout of the vertex shader: three
// column-major 4x4 matrices.
type MVP struct {
	Model mgl32.Mat4
	View  mgl32.Mat4
	Proj  mgl32.Mat4
}

const (
	degreesPerSecond = 90
	fovY             = 45
	near             = 0.1
	far              = 10
)

var (
	eye    = mgl32.Vec3{2, 2, 2}
	center = mgl32.Vec3{0, 0, 0}
	up     = mgl32.Vec3{0, 0, 1}
)

// Spin returns the transforms for a model turning about +Z, seen from
// (2,2,2), for a drawable of width x height pixels.
func Spin(elapsed time.Duration, width, height uint32) MVP {
	angle := float32(elapsed.Seconds()) * mgl32.DegToRad(degreesPerSecond)
	aspect := float32(1)
	if height > 0 {
		aspect = float32(width) / float32(height)
	}
	proj := mgl32.Perspective(mgl32.DegToRad(fovY), aspect, near, far)
	proj[5] *= -1 // Vulkan clip space has Y pointing down
	return MVP{
		Model: mgl32.HomogRotate3D(angle, up),
		View:  mgl32.LookAtV(eye, center, up),
		Proj:  proj,
	}
}
