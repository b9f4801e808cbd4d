package prediction

// RiskLevel is a four-tier severity classification.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// Severity orders risk levels; higher is worse. Unknown levels rank 0.
func (r RiskLevel) Severity() int {
	switch r {
	case RiskLow:
		return 1
	case RiskMedium:
		return 2
	case RiskHigh:
		return 3
	case RiskCritical:
		return 4
	default:
		return 0
	}
}

// Valid returns true when the risk level is supported.
func (r RiskLevel) Valid() bool {
	return r.Severity() > 0
}

// SensorWeight is one ranked contributing sensor.
type SensorWeight struct {
	Name   string  `json:"name" yaml:"name"`
	Weight float64 `json:"weight" yaml:"weight"`
}

// Result is the structured output of one inference.
type Result struct {
	RUL                  int            `json:"rul" yaml:"rul"`
	HealthIndex          int            `json:"health_index" yaml:"health_index"`
	RiskLevel            RiskLevel      `json:"risk_level" yaml:"risk_level"`
	PrecursorProbability float64        `json:"precursor_probability" yaml:"precursor_probability"`
	Confidence           float64        `json:"confidence" yaml:"confidence"`
	FailureMode          string         `json:"failure_mode" yaml:"failure_mode"`
	TopSensors           []SensorWeight `json:"top_sensors" yaml:"top_sensors"`
	RecommendedAction    string         `json:"recommended_action" yaml:"recommended_action"`
	DriftDetected        bool           `json:"drift_detected" yaml:"drift_detected"`
}

// Degraded reports whether the result falls below the degradation threshold.
func (r Result) Degraded() bool {
	return r.HealthIndex < degradedBelow
}

func (r Result) clone() Result {
	out := r
	out.TopSensors = append([]SensorWeight(nil), r.TopSensors...)
	return out
}
