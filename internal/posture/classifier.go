package posture

// Classification labels a single distance reading. The flags are mutually
// exclusive while tooClose < notSitting; both false means acceptable posture.
type Classification struct {
	IsTooClose   bool
	IsNotSitting bool
}

// Classify labels a distance against the threshold pair. Strict inequalities
// only: a distance equal to either threshold classifies as acceptable.
func Classify(distance float64, t Thresholds) Classification {
	return Classification{
		IsTooClose:   distance < t.TooClose,
		IsNotSitting: distance > t.NotSitting,
	}
}
