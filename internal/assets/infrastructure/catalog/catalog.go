package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	assets "forsee-cloud/internal/assets/domain"
	prediction "forsee-cloud/internal/prediction/domain"
)

//go:embed catalog.yaml
var embedded []byte

// Document is the asset catalog data feed.
type Document struct {
	DefaultProfile string                       `yaml:"default_profile"`
	Profiles       []assets.AssetProfile        `yaml:"profiles"`
	Overrides      map[string]prediction.Result `yaml:"overrides"`
}

// Load reads the catalog at path, or the embedded catalog when path is empty.
func Load(path string) (Document, error) {
	if path == "" {
		return Parse(embedded)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a catalog document and checks its overrides.
func Parse(data []byte) (Document, error) {
	var doc Document
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil {
		return Document{}, fmt.Errorf("catalog: decode: %w", err)
	}
	if len(doc.Profiles) == 0 {
		return Document{}, errors.New("catalog: no profiles")
	}
	known := make(map[string]struct{}, len(doc.Profiles))
	for _, profile := range doc.Profiles {
		known[profile.ID] = struct{}{}
	}
	for assetID, result := range doc.Overrides {
		if _, ok := known[assetID]; !ok {
			return Document{}, fmt.Errorf("catalog: override for unknown asset %s", assetID)
		}
		if !result.RiskLevel.Valid() {
			return Document{}, fmt.Errorf("catalog: override %s: invalid risk level %q", assetID, result.RiskLevel)
		}
	}
	return doc, nil
}

// Registry builds the immutable profile registry.
// A non-empty defaultID takes precedence over the document default.
func (d Document) Registry(defaultID string) (*assets.Registry, error) {
	if defaultID == "" {
		defaultID = d.DefaultProfile
	}
	return assets.NewRegistry(d.Profiles, assets.WithDefaultProfile(defaultID))
}

// EngineOptions registers every override as a fixed engine result.
func (d Document) EngineOptions() []prediction.EngineOption {
	opts := make([]prediction.EngineOption, 0, len(d.Overrides))
	for assetID, result := range d.Overrides {
		opts = append(opts, prediction.WithFixedResult(assetID, result))
	}
	return opts
}
