// Package bodymetrics computes the aesthetic progress metrics used to
// seed coaching context, chiefly the V-Taper shoulder-to-waist ratio.
package bodymetrics

import "fmt"

// Unit is the measurement system a profile was recorded in.
type Unit string

const (
	Metric   Unit = "metric"   // centimeters
	Imperial Unit = "imperial" // inches
)

const cmPerInch = 2.54

// CmToIn converts centimeters to inches.
func CmToIn(cm float64) float64 { return cm / cmPerInch }

// InToCm converts inches to centimeters.
func InToCm(in float64) float64 { return in * cmPerInch }

// Profile holds the athlete measurements relevant to posing feedback.
// Shoulder and waist are circumferences in the profile's unit.
type Profile struct {
	Name     string
	Goal     string
	Shoulder float64
	Waist    float64
	Unit     Unit
}

// VTaper returns the shoulder-to-waist quotient. The ratio is unitless,
// so mixed-unit profiles only need both measurements in the same system.
func (p Profile) VTaper() (float64, error) {
	if p.Shoulder <= 0 || p.Waist <= 0 {
		return 0, fmt.Errorf("invalid measurements: shoulder=%.1f waist=%.1f", p.Shoulder, p.Waist)
	}
	return p.Shoulder / p.Waist, nil
}

// ShoulderCm and WaistCm normalize to centimeters for display.
func (p Profile) ShoulderCm() float64 {
	if p.Unit == Imperial {
		return InToCm(p.Shoulder)
	}
	return p.Shoulder
}

func (p Profile) WaistCm() float64 {
	if p.Unit == Imperial {
		return InToCm(p.Waist)
	}
	return p.Waist
}

// Classify maps a V-Taper ratio to the coaching band used in feedback.
func Classify(ratio float64) string {
	switch {
	case ratio >= 1.618:
		return "golden"
	case ratio >= 1.45:
		return "athletic"
	case ratio >= 1.25:
		return "developing"
	default:
		return "foundation"
	}
}
