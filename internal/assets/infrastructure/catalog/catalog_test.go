package catalog

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	assets "forsee-cloud/internal/assets/domain"
	prediction "forsee-cloud/internal/prediction/domain"
)

func TestEmbeddedCatalog_BuildsRegistry(t *testing.T) {
	doc, err := Load("")
	if err != nil {
		t.Fatalf("load embedded: %v", err)
	}
	registry, err := doc.Registry("")
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	if registry.Len() != 11 {
		t.Fatalf("expected 11 profiles, got %d", registry.Len())
	}
	if registry.DefaultID() != assets.DefaultProfileID {
		t.Fatalf("expected default %s, got %s", assets.DefaultProfileID, registry.DefaultID())
	}
	list := registry.List()
	if list[0].ID != "power-transformers" || list[len(list)-1].ID != "semiconductor-tools" {
		t.Fatalf("unexpected catalog order: %s .. %s", list[0].ID, list[len(list)-1].ID)
	}
}

func TestEmbeddedCatalog_SensorIDsUniquePerProfile(t *testing.T) {
	doc, err := Load("")
	if err != nil {
		t.Fatalf("load embedded: %v", err)
	}
	for _, profile := range doc.Profiles {
		seen := map[string]bool{}
		for _, sensor := range profile.Sensors {
			if seen[sensor.ID] {
				t.Fatalf("duplicate sensor %s in %s", sensor.ID, profile.ID)
			}
			seen[sensor.ID] = true
		}
		if len(profile.Sensors) == 0 {
			t.Fatalf("profile %s has no sensors", profile.ID)
		}
		if profile.DefaultDecision.Action == "" {
			t.Fatalf("profile %s has no default action", profile.ID)
		}
	}
}

func TestEmbeddedCatalog_UnknownIDUsesWindTurbine(t *testing.T) {
	doc, err := Load("")
	if err != nil {
		t.Fatalf("load embedded: %v", err)
	}
	registry, err := doc.Registry("")
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	want := registry.Get("wind-turbines")
	for _, id := range []string{"", "rockets", "laptop"} {
		if got := registry.Get(id); !reflect.DeepEqual(got, want) {
			t.Fatalf("expected wind turbine for %q, got %s", id, got.ID)
		}
	}
	if want.Sensors[0].ID != "gearboxVib" || want.Sensors[0].Range.Max != 50 {
		t.Fatalf("unexpected first sensor %+v", want.Sensors[0])
	}
}

func TestEmbeddedCatalog_LaptopOverride(t *testing.T) {
	doc, err := Load("")
	if err != nil {
		t.Fatalf("load embedded: %v", err)
	}
	registry, err := doc.Registry("")
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	engine := prediction.NewEngine(append(doc.EngineOptions(), prediction.WithJitterSource(prediction.FixedSource(0)))...)
	result := engine.Infer(registry.Get("laptops"), prediction.Readings{"cpu_temperature": "1000"})
	if result.RUL != 270 || result.HealthIndex != 62 || result.RiskLevel != prediction.RiskMedium {
		t.Fatalf("unexpected laptop override: %+v", result)
	}
	if result.FailureMode != "Thermal Degradation" || !result.DriftDetected {
		t.Fatalf("unexpected laptop override: %+v", result)
	}
	if len(result.TopSensors) != 3 || result.TopSensors[0].Name != "CPU Temp" {
		t.Fatalf("unexpected laptop sensors: %+v", result.TopSensors)
	}
}

func TestParse_RejectsOverrideForUnknownAsset(t *testing.T) {
	data := []byte(`
default_profile: a
profiles:
  - id: a
    sensors:
      - { id: s, label: S }
overrides:
  b:
    risk_level: LOW
`)
	if _, err := Parse(data); err == nil {
		t.Fatalf("expected unknown override error")
	}
}

func TestParse_RejectsUnknownFields(t *testing.T) {
	data := []byte(`
profiles:
  - id: a
    colour: blue
`)
	if _, err := Parse(data); err == nil {
		t.Fatalf("expected unknown field error")
	}
}

func TestLoad_FileOverridesEmbedded(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	data := []byte(`
default_profile: pumps
profiles:
  - id: pumps
    title: Pump
    sensors:
      - { id: flow, label: Flow, unit: "l/s", range: { min: 0, max: 10 }, default: "4" }
    default_decision:
      action: Replace seal
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	doc, err := Load(path)
	if err != nil {
		t.Fatalf("load file: %v", err)
	}
	registry, err := doc.Registry("")
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	if got := registry.Get("anything").Title; got != "Pump" {
		t.Fatalf("expected pump default, got %s", got)
	}
}
