package prediction

import (
	"fmt"
	"math"

	assets "forsee-cloud/internal/assets/domain"
)

const (
	baseHealth      = 85.0
	healthDivisor   = 10.0
	rulPerHealth    = 1.2
	fixedConfidence = 0.87
	degradedBelow   = 50
	driftBelow      = 40
	maxTopSensors   = 4
	baseWeight      = 40.0
	weightStep      = 8.0
	minWeight       = 10.0
	jitterSpan      = 10.0

	FailureModeDegraded = "Degradation Detected"
	FailureModeNormal   = "Normal Operation"
)

// Provider produces a prediction for a profile and its readings.
type Provider interface {
	Predict(profile assets.AssetProfile, readings Readings) Result
}

// Override produces a fixed result for one asset id.
type Override func() Result

// Engine is the rule-based risk inference engine.
// It holds no mutable state besides its jitter source.
type Engine struct {
	overrides map[string]Override
	jitter    JitterSource
}

// EngineOption customizes the engine.
type EngineOption func(*Engine)

// WithOverride registers a fixed result for assetID.
func WithOverride(assetID string, override Override) EngineOption {
	return func(e *Engine) {
		if assetID != "" && override != nil {
			e.overrides[assetID] = override
		}
	}
}

// WithFixedResult registers a constant result for assetID.
func WithFixedResult(assetID string, result Result) EngineOption {
	fixed := result.clone()
	return WithOverride(assetID, func() Result { return fixed.clone() })
}

// WithJitterSource sets the random source used for sensor weights.
func WithJitterSource(source JitterSource) EngineOption {
	return func(e *Engine) {
		if source != nil {
			e.jitter = source
		}
	}
}

// NewEngine constructs an engine. Overrides are fixed after construction.
func NewEngine(opts ...EngineOption) *Engine {
	engine := &Engine{overrides: make(map[string]Override)}
	for _, opt := range opts {
		opt(engine)
	}
	if engine.jitter == nil {
		engine.jitter = NewTimeSeededSource()
	}
	return engine
}

// Predict implements Provider.
func (e *Engine) Predict(profile assets.AssetProfile, readings Readings) Result {
	return e.Infer(profile, readings)
}

// Infer maps readings for profile into a prediction. It never fails.
func (e *Engine) Infer(profile assets.AssetProfile, readings Readings) Result {
	if override, ok := e.overrides[profile.ID]; ok {
		return override()
	}
	return e.InferWith(profile, readings, e.jitter)
}

// InferWith runs the generic path with a caller-owned jitter source.
func (e *Engine) InferWith(profile assets.AssetProfile, readings Readings, jitter JitterSource) Result {
	var first float64
	if sensor, ok := profile.FirstSensor(); ok {
		first = readings.Value(sensor.ID)
	}
	health := HealthIndex(first)

	result := Result{
		RUL:                  int(math.Round(float64(health) * rulPerHealth)),
		HealthIndex:          health,
		RiskLevel:            ClassifyRisk(health),
		PrecursorProbability: round2(float64(100-health) / 100),
		Confidence:           fixedConfidence,
		FailureMode:          FailureModeNormal,
		TopSensors:           topSensors(profile.Sensors, jitter),
		RecommendedAction:    MaintenanceAction(health),
		DriftDetected:        health < driftBelow,
	}
	if result.Degraded() {
		result.FailureMode = FailureModeDegraded
		result.RecommendedAction = profile.DefaultDecision.Action
	}
	return result
}

// HealthIndex maps the first sensor value into a 0..100 score.
func HealthIndex(value float64) int {
	raw := baseHealth - value/healthDivisor
	if math.IsNaN(raw) {
		raw = baseHealth
	}
	return int(math.Round(math.Max(0, math.Min(100, raw))))
}

// ClassifyRisk maps a health index to a risk tier. Lower bounds are inclusive.
func ClassifyRisk(healthIndex int) RiskLevel {
	switch {
	case healthIndex >= 70:
		return RiskLow
	case healthIndex >= 50:
		return RiskMedium
	case healthIndex >= 30:
		return RiskHigh
	default:
		return RiskCritical
	}
}

// MaintenanceAction is the recommendation for a healthy asset.
func MaintenanceAction(healthIndex int) string {
	days := int(math.Round(float64(healthIndex) / 2))
	return fmt.Sprintf("Continue normal operation. Next scheduled maintenance in %d days.", days)
}

func topSensors(sensors []assets.SensorSpec, jitter JitterSource) []SensorWeight {
	count := len(sensors)
	if count > maxTopSensors {
		count = maxTopSensors
	}
	weights := make([]SensorWeight, 0, count)
	for i := 0; i < count; i++ {
		base := baseWeight - weightStep*float64(i)
		weight := math.Min(base+jitterValue(jitter), math.Nextafter(base+jitterSpan, 0))
		weights = append(weights, SensorWeight{
			Name:   sensors[i].Label,
			Weight: math.Max(minWeight, weight),
		})
	}
	return weights
}

// jitterValue keeps the perturbation inside [0, jitterSpan) whatever the source yields.
func jitterValue(source JitterSource) float64 {
	if source == nil {
		return 0
	}
	value := source.Float64()
	if math.IsNaN(value) || value < 0 {
		return 0
	}
	if value >= 1 {
		return math.Nextafter(jitterSpan, 0)
	}
	return value * jitterSpan
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
