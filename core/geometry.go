package core

import "math"

// EarthRadiusKm is the mean Earth radius used for all site/spacecraft
// geometry (kilometres). A spherical Earth is accurate enough for
// steering-angle prediction.
const EarthRadiusKm = 6371.0

// Vec3 is an ECEF-style vector in kilometres.
type Vec3 struct {
	X, Y, Z float64
}

// DistanceTo returns the straight-line distance between two points.
func (v Vec3) DistanceTo(other Vec3) float64 {
	dx := v.X - other.X
	dy := v.Y - other.Y
	dz := v.Z - other.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Norm returns the Euclidean norm of the vector.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Sub returns v - other.
func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{X: v.X - other.X, Y: v.Y - other.Y, Z: v.Z - other.Z}
}

// Dot returns the dot product of two vectors.
func (v Vec3) Dot(other Vec3) float64 {
	return v.X*other.X + v.Y*other.Y + v.Z*other.Z
}

// GeodeticToECEF converts a ground-site latitude/longitude/altitude to
// ECEF kilometres on the spherical Earth model.
func GeodeticToECEF(latDeg, lonDeg, altKm float64) Vec3 {
	lat := latDeg * math.Pi / 180
	lon := lonDeg * math.Pi / 180
	r := EarthRadiusKm + altKm
	return Vec3{
		X: r * math.Cos(lat) * math.Cos(lon),
		Y: r * math.Cos(lat) * math.Sin(lon),
		Z: r * math.Sin(lat),
	}
}

// hasLineOfSight checks whether the straight segment between p1 and p2
// intersects the Earth sphere. If it does, the Earth blocks the
// line-of-sight and the function returns false. A ground site can only
// steer at a spacecraft while this holds.
//
// All positions are ECEF in kilometres, on or above the surface. The
// endpoints themselves never block: a site sitting exactly on the
// sphere still sees everything above its horizon.
func hasLineOfSight(p1, p2 Vec3) bool {
	v := p2.Sub(p1)
	a := v.Dot(v)
	if a == 0 {
		// Degenerate case: same point. If it's outside Earth, treat as LoS;
		// if inside, treat as blocked.
		return p1.Dot(p1) > EarthRadiusKm*EarthRadiusKm
	}

	// Find the closest point on the line to the Earth's centre (origin).
	// t* minimises |p1 + t v|^2 over t ∈ ℝ. Outside (0, 1) the segment's
	// closest approach is an endpoint, which cannot be occluded.
	t := -p1.Dot(v) / a
	if t <= 0 || t >= 1 {
		return true
	}

	closest := Vec3{
		X: p1.X + v.X*t,
		Y: p1.Y + v.Y*t,
		Z: p1.Z + v.Z*t,
	}

	// If the closest interior point lies inside or on the Earth sphere,
	// the segment passes through the Earth -> no LoS.
	return closest.Dot(closest) > EarthRadiusKm*EarthRadiusKm
}

// ElevationDegrees returns the elevation angle of the target as seen
// from the observer, in degrees. 0° = geometric horizon, 90° = overhead.
func ElevationDegrees(observer, target Vec3) float64 {
	// Vector from observer to target.
	v := target.Sub(observer)
	vNorm := v.Norm()
	if vNorm == 0 {
		return 90
	}

	// Local zenith at observer is its normalised position vector.
	r := observer.Norm()
	if r == 0 {
		return 90
	}
	zenith := Vec3{
		X: observer.X / r,
		Y: observer.Y / r,
		Z: observer.Z / r,
	}

	// Angle between v and zenith.
	cosGamma := v.Dot(zenith) / vNorm
	if cosGamma > 1 {
		cosGamma = 1
	} else if cosGamma < -1 {
		cosGamma = -1
	}
	gammaDeg := math.Acos(cosGamma) * 180.0 / math.Pi

	// Elevation is measured from local horizon (90° − zenith angle).
	return 90.0 - gammaDeg
}

// enuDirection returns the unit vector from observer to target in the
// observer's local east/north/up frame. Falls back to up when the two
// points coincide or the observer sits at a pole (where east is
// undefined).
func enuDirection(observer, target Vec3) (east, north, up float64) {
	v := target.Sub(observer)
	vNorm := v.Norm()
	r := observer.Norm()
	if vNorm == 0 || r == 0 {
		return 0, 0, 1
	}

	upV := Vec3{X: observer.X / r, Y: observer.Y / r, Z: observer.Z / r}

	// east = z_earth x up, undefined at the poles.
	eastV := Vec3{X: -upV.Y, Y: upV.X, Z: 0}
	eNorm := eastV.Norm()
	if eNorm == 0 {
		return 0, 0, 1
	}
	eastV = Vec3{X: eastV.X / eNorm, Y: eastV.Y / eNorm}

	// north = up x east.
	northV := Vec3{
		X: upV.Y*eastV.Z - upV.Z*eastV.Y,
		Y: upV.Z*eastV.X - upV.X*eastV.Z,
		Z: upV.X*eastV.Y - upV.Y*eastV.X,
	}

	dir := Vec3{X: v.X / vNorm, Y: v.Y / vNorm, Z: v.Z / vNorm}
	return dir.Dot(eastV), dir.Dot(northV), dir.Dot(upV)
}
