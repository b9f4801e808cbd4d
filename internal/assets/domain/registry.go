package assets

// DefaultProfileID is the profile served for empty or unknown ids.
const DefaultProfileID = "wind-turbines"

// Registry is a read-only catalog of asset profiles.
// It is built once and is safe for concurrent readers.
type Registry struct {
	order     []string
	profiles  map[string]AssetProfile
	defaultID string
}

// RegistryOption customizes registry construction.
type RegistryOption func(*Registry)

// WithDefaultProfile overrides the fallback profile id.
func WithDefaultProfile(id string) RegistryOption {
	return func(r *Registry) {
		if id != "" {
			r.defaultID = id
		}
	}
}

// NewRegistry validates and registers profiles in the given order.
func NewRegistry(profiles []AssetProfile, opts ...RegistryOption) (*Registry, error) {
	registry := &Registry{
		order:     make([]string, 0, len(profiles)),
		profiles:  make(map[string]AssetProfile, len(profiles)),
		defaultID: DefaultProfileID,
	}
	for _, opt := range opts {
		opt(registry)
	}
	for _, profile := range profiles {
		if err := profile.Validate(); err != nil {
			return nil, err
		}
		if _, ok := registry.profiles[profile.ID]; ok {
			return nil, &ProfileError{ProfileID: profile.ID, Reason: "duplicate profile id"}
		}
		registry.profiles[profile.ID] = profile.clone()
		registry.order = append(registry.order, profile.ID)
	}
	if _, ok := registry.profiles[registry.defaultID]; !ok {
		return nil, &ProfileError{ProfileID: registry.defaultID, Reason: "default profile not registered"}
	}
	return registry, nil
}

// Get returns the profile for id, falling back to the default profile.
func (r *Registry) Get(id string) AssetProfile {
	if profile, ok := r.Lookup(id); ok {
		return profile
	}
	return r.profiles[r.defaultID].clone()
}

// Lookup returns the profile for id and whether it is registered.
func (r *Registry) Lookup(id string) (AssetProfile, bool) {
	if id == "" {
		return AssetProfile{}, false
	}
	profile, ok := r.profiles[id]
	if !ok {
		return AssetProfile{}, false
	}
	return profile.clone(), true
}

// List returns all profiles in registration order.
func (r *Registry) List() []AssetProfile {
	result := make([]AssetProfile, 0, len(r.order))
	for _, id := range r.order {
		result = append(result, r.profiles[id].clone())
	}
	return result
}

// DefaultID returns the fallback profile id.
func (r *Registry) DefaultID() string {
	return r.defaultID
}

// Len returns the number of registered profiles.
func (r *Registry) Len() int {
	return len(r.order)
}

func (p AssetProfile) clone() AssetProfile {
	out := p
	out.Sensors = append([]SensorSpec(nil), p.Sensors...)
	out.DegradationDrivers = append([]DegradationDriver(nil), p.DegradationDrivers...)
	out.CognitiveTimeline = append([]CognitiveEvent(nil), p.CognitiveTimeline...)
	out.DefaultDecision.Why = append([]string(nil), p.DefaultDecision.Why...)
	out.DefaultDecision.Consequences = append([]Consequence(nil), p.DefaultDecision.Consequences...)
	return out
}
