package presenter

import (
	"github.com/fabioarnold/blobbyvolley2/common/math32"
	"github.com/fabioarnold/blobbyvolley2/common/vmath"
)

var (
	// IslandWaypoint is the overview position the menu camera orbits at.
	IslandWaypoint = vmath.NewV3(0, 3, 16)
	// PlayfieldWaypoint is the fixed gameplay camera position.
	PlayfieldWaypoint = vmath.NewV3(6+0.2, 1.345, 4-0.2)
)

const (
	// OrbitStep is how far the menu camera orbits per frame, in radians.
	OrbitStep = 0.01

	playfieldYaw = -math32.Pi / 4
)

// CameraPose is a camera position and its rotation about the Y axis.
type CameraPose struct {
	Position vmath.V3
	Yaw      float32
}

// CameraRig moves the camera between the gameplay shot and the orbiting
// menu shot, keyed only by the menu alpha.
type CameraRig struct {
	// Angle accumulates the orbit. It stays in (-Pi, Pi].
	Angle float32
}

// Update advances the rig by one frame and returns the camera pose.
func (r *CameraRig) Update(alpha float32) CameraPose {
	switch {
	case alpha == 1:
		r.Angle += OrbitStep
		if r.Angle > math32.Pi {
			r.Angle -= math32.TwoPi
		}
		return orbitPose(r.Angle)
	case alpha > 0.5:
		return blendPose(alpha, r.Angle)
	default:
		r.Angle = 0
		return approachPose(alpha)
	}
}

// Regime names the shot Update picks for alpha, for logs.
func Regime(alpha float32) string {
	switch {
	case alpha == 1:
		return "orbit"
	case alpha > 0.5:
		return "unwind"
	default:
		return "approach"
	}
}

// orbitPose looks at the island's vertical axis from angle around it.
func orbitPose(angle float32) CameraPose {
	s, c := math32.SinCos(angle)
	return CameraPose{
		Position: vmath.NewV3(s*IslandWaypoint.Z, IslandWaypoint.Y, c*IslandWaypoint.Z),
		Yaw:      angle,
	}
}

// blendPose unwinds the orbit towards angle zero as alpha drops to 0.5.
func blendPose(alpha, angle float32) CameraPose {
	return orbitPose(math32.EaseInOutQuad(2*alpha-1) * angle)
}

// approachPose moves from the island waypoint at alpha 0.5 to the playfield
// waypoint at alpha 0.
func approachPose(alpha float32) CameraPose {
	a := math32.EaseInOutQuad(1 - 2*alpha)
	return CameraPose{
		Position: IslandWaypoint.Lerp(PlayfieldWaypoint, a),
		Yaw:      playfieldYaw * a,
	}
}

// BallPosition maps a simulation ball position to the ball proxy's position
// in playfield space. Simulation y grows downwards.
func BallPosition(b Ball) vmath.V3 {
	return vmath.NewV3(
		math32.MapRange(b.X, 0, 800, -1.958, 1.958),
		math32.MapRange(b.Y, 0, 600, 2.44, -0.495),
		0,
	)
}
