package viz

import "math"

type Vec3 struct {
	X, Y, Z float64
}

func (v Vec3) Scale(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }
func (v Vec3) Length() float64      { return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z) }

// View is an orthographic camera looking down the rotated z axis. The zero
// value looks straight down onto the ecliptic.
type View struct {
	RotX, RotY float64
	Zoom       float64
}

func NewView() *View { return &View{Zoom: 1} }

func (v *View) RotateX(a float64) { v.RotX += a }
func (v *View) RotateY(a float64) { v.RotY += a }
func (v *View) ZoomIn()           { v.Zoom = math.Min(50, v.Zoom*1.25) }
func (v *View) ZoomOut()          { v.Zoom = math.Max(0.02, v.Zoom/1.25) }

func (v *View) Rotate(p Vec3) Vec3 {
	cx, sx := math.Cos(v.RotX), math.Sin(v.RotX)
	p.Y, p.Z = p.Y*cx-p.Z*sx, p.Y*sx+p.Z*cx
	cy, sy := math.Cos(v.RotY), math.Sin(v.RotY)
	p.X, p.Z = p.X*cy+p.Z*sy, -p.X*sy+p.Z*cy
	return p
}

// Project maps p onto a sw x sh sub-pixel grid where a distance of extent
// from the origin reaches the shorter half-axis at zoom 1. Braille sub-pixels
// are close to square on a typical terminal font.
func (v *View) Project(p Vec3, extent float64, sw, sh int) (int, int) {
	zoom := v.Zoom
	if zoom == 0 {
		zoom = 1
	}
	r := v.Rotate(p).Scale(zoom / extent)
	half := float64(min(sw, sh)-1) / 2
	x := int(math.Round(r.X*half)) + sw/2
	y := int(math.Round(-r.Y*half)) + sh/2
	return x, y
}
