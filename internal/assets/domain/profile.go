package assets

// Direction describes how a degradation factor is trending.
type Direction string

const (
	DirectionUp     Direction = "up"
	DirectionDown   Direction = "down"
	DirectionStable Direction = "stable"
)

// Impact describes how strongly a factor drives degradation.
type Impact string

const (
	ImpactStrong   Impact = "strong"
	ImpactModerate Impact = "moderate"
	ImpactNeutral  Impact = "neutral"
)

// EventSeverity tags a narrative timeline event.
type EventSeverity string

const (
	EventNormal    EventSeverity = "normal"
	EventWarning   EventSeverity = "warning"
	EventCritical  EventSeverity = "critical"
	EventInference EventSeverity = "inference"
)

// Range is an input hint for a sensor, not a validation bound.
type Range struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// SensorSpec describes one sensor input of an asset profile.
type SensorSpec struct {
	ID           string `json:"id" yaml:"id"`
	Label        string `json:"label" yaml:"label"`
	Unit         string `json:"unit" yaml:"unit"`
	Range        Range  `json:"range" yaml:"range"`
	DefaultValue string `json:"default_value" yaml:"default"`
}

// DegradationDriver annotates a physical factor that drives degradation.
type DegradationDriver struct {
	Factor    string    `json:"factor" yaml:"factor"`
	Direction Direction `json:"direction" yaml:"direction"`
	Impact    Impact    `json:"impact" yaml:"impact"`
}

// CognitiveEvent is an illustrative timeline entry.
type CognitiveEvent struct {
	Time        string        `json:"time" yaml:"time"`
	Description string        `json:"description" yaml:"description"`
	Severity    EventSeverity `json:"severity" yaml:"severity"`
	Details     string        `json:"details,omitempty" yaml:"details"`
}

// DigitalIdentity is descriptive provenance of the monitored asset.
type DigitalIdentity struct {
	Age             string `json:"age" yaml:"age"`
	Regime          string `json:"regime" yaml:"regime"`
	Model           string `json:"model" yaml:"model"`
	LastMaintenance string `json:"last_maintenance" yaml:"last_maintenance"`
}

// Precursor is static precursor metadata.
type Precursor struct {
	Probability float64 `json:"probability" yaml:"probability"`
	Status      string  `json:"status" yaml:"status"`
	Explanation string  `json:"explanation" yaml:"explanation"`
}

// DataDrift is static drift metadata.
type DataDrift struct {
	Detected    bool   `json:"detected" yaml:"detected"`
	Severity    string `json:"severity" yaml:"severity"`
	Explanation string `json:"explanation" yaml:"explanation"`
}

// FailureCluster is static failure cluster metadata.
type FailureCluster struct {
	ID          string `json:"id" yaml:"id"`
	Label       string `json:"label" yaml:"label"`
	Description string `json:"description" yaml:"description"`
}

// Economics is static cost metadata.
type Economics struct {
	PotentialCost string `json:"potential_cost" yaml:"potential_cost"`
	DowntimeCost  string `json:"downtime_cost" yaml:"downtime_cost"`
}

// Consequence is one projected outcome of ignoring a decision.
type Consequence struct {
	Text   string `json:"text" yaml:"text"`
	Impact string `json:"impact" yaml:"impact"`
}

// Decision is the default remediation policy of a profile.
type Decision struct {
	Action       string        `json:"action" yaml:"action"`
	Why          []string      `json:"why" yaml:"why"`
	Consequences []Consequence `json:"consequences" yaml:"consequences"`
}

// AssetProfile is the static descriptor of one monitored asset type.
type AssetProfile struct {
	ID                 string              `json:"id" yaml:"id"`
	Title              string              `json:"title" yaml:"title"`
	Description        string              `json:"description" yaml:"description"`
	Location           string              `json:"location" yaml:"location"`
	DigitalIdentity    DigitalIdentity     `json:"digital_identity" yaml:"digital_identity"`
	Sensors            []SensorSpec        `json:"sensors" yaml:"sensors"`
	DegradationDrivers []DegradationDriver `json:"degradation_drivers" yaml:"degradation_drivers"`
	CognitiveTimeline  []CognitiveEvent    `json:"cognitive_timeline" yaml:"cognitive_timeline"`
	Precursor          Precursor           `json:"precursor" yaml:"precursor"`
	DataDrift          DataDrift           `json:"data_drift" yaml:"data_drift"`
	FailureCluster     FailureCluster      `json:"failure_cluster" yaml:"failure_cluster"`
	Economics          Economics           `json:"economics" yaml:"economics"`
	DefaultDecision    Decision            `json:"default_decision" yaml:"default_decision"`
}

// FirstSensor returns the first declared sensor, if any.
func (p AssetProfile) FirstSensor() (SensorSpec, bool) {
	if len(p.Sensors) == 0 {
		return SensorSpec{}, false
	}
	return p.Sensors[0], true
}

// DefaultReadings returns the declared default value of every sensor.
func (p AssetProfile) DefaultReadings() map[string]string {
	readings := make(map[string]string, len(p.Sensors))
	for _, sensor := range p.Sensors {
		readings[sensor.ID] = sensor.DefaultValue
	}
	return readings
}

// Validate checks profile invariants.
func (p AssetProfile) Validate() error {
	if p.ID == "" {
		return ErrEmptyProfileID
	}
	seen := make(map[string]struct{}, len(p.Sensors))
	for _, sensor := range p.Sensors {
		if sensor.ID == "" {
			return &ProfileError{ProfileID: p.ID, Reason: "empty sensor id"}
		}
		if _, ok := seen[sensor.ID]; ok {
			return &ProfileError{ProfileID: p.ID, Reason: "duplicate sensor id " + sensor.ID}
		}
		seen[sensor.ID] = struct{}{}
	}
	for _, driver := range p.DegradationDrivers {
		if !driver.Direction.Valid() {
			return &ProfileError{ProfileID: p.ID, Reason: "invalid driver direction " + string(driver.Direction)}
		}
		if !driver.Impact.Valid() {
			return &ProfileError{ProfileID: p.ID, Reason: "invalid driver impact " + string(driver.Impact)}
		}
	}
	return nil
}

// Valid returns true when direction is supported.
func (d Direction) Valid() bool {
	switch d {
	case DirectionUp, DirectionDown, DirectionStable:
		return true
	default:
		return false
	}
}

// Valid returns true when impact is supported.
func (i Impact) Valid() bool {
	switch i {
	case ImpactStrong, ImpactModerate, ImpactNeutral:
		return true
	default:
		return false
	}
}
