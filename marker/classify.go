package marker

import (
	"math"
	"strings"
)

// HeadingValid reports whether h is an available heading: finite and below
// InvalidHeading.
func HeadingValid(h float64) bool {
	return !math.IsNaN(h) && !math.IsInf(h, 0) && h < InvalidHeading
}

// ClassifyObject returns the icon for a newly seen object, or for one whose
// heading just became available again.
func ClassifyObject(stationType int, headingValid bool) IconCategory {
	if stationType == StationDetected {
		return IconDetectedCar
	}
	if !headingValid {
		return IconCircle
	}
	switch stationType {
	case StationPedestrian, StationPedestrianV2:
		return IconDetectedPedestrian
	case StationVehicle:
		return IconDetectedCar
	case StationTruck:
		return IconDetectedTruck
	default:
		return IconPlainCar
	}
}

// ClassifyEvent maps a cause code to its icon. Unhandled codes get IconNone.
func ClassifyEvent(causeCode int) IconCategory {
	switch causeCode {
	case CauseIcyRoad:
		return IconIcyRoad
	case CauseGenericDanger:
		return IconGenericDanger
	default:
		return IconNone
	}
}

// isPedestrian objects are never rotated after creation.
func isPedestrian(stationType int) bool {
	return stationType == StationPedestrian || stationType == StationPedestrianV2
}

// NormalizeID trims surrounding whitespace and drops NUL characters, which
// upstream encoders sometimes leave in fixed-width id fields.
func NormalizeID(id string) string {
	return strings.TrimSpace(strings.ReplaceAll(id, "\x00", ""))
}

// NextObjectIcon returns the icon of a known object after an update, given
// its current icon. Detected objects (station type 0) only move from the
// plain car or circle to the green circle; other objects fall back to a
// circle while their heading is unavailable and regain their own icon once
// it is available again.
func NextObjectIcon(current IconCategory, stationType int, headingValid bool) IconCategory {
	if stationType == StationDetected {
		if current == IconPlainCar || current == IconCircle {
			return IconGreenCircle
		}
		return current
	}
	if !headingValid {
		if current == IconPlainCar || current == IconGreenCircle {
			return IconCircle
		}
		return current
	}
	if current == IconCircle || current == IconGreenCircle {
		return ClassifyObject(stationType, true)
	}
	return current
}
