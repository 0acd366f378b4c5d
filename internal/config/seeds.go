package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dleimonis/guardian-dashboard-ai-sub000/internal/model"
)

// resourcesFile is the top-level structure of resources.yaml.
type resourcesFile struct {
	Resources []model.ResourceSeed `yaml:"resources"`
}

// recipientsFile is the top-level structure of recipients.yaml.
type recipientsFile struct {
	Recipients []model.Recipient `yaml:"recipients"`
}

// LoadResourceSeeds reads the resource-pool inventory from a YAML file.
// An empty path or missing file returns the built-in reference inventory.
func LoadResourceSeeds(path string) ([]model.ResourceSeed, error) {
	if path == "" {
		return DefaultResourceSeeds(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultResourceSeeds(), nil
		}
		return nil, fmt.Errorf("read resources file: %w", err)
	}
	var f resourcesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse resources file: %w", err)
	}
	return f.Resources, nil
}

// LoadRecipients reads the alert roster from a YAML file. An empty path
// or missing file returns nil (the JSON config roster applies).
func LoadRecipients(path string) ([]model.Recipient, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read recipients file: %w", err)
	}
	var f recipientsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse recipients file: %w", err)
	}
	return f.Recipients, nil
}

// DefaultResourceSeeds is the reference deployment's response inventory.
func DefaultResourceSeeds() []model.ResourceSeed {
	return []model.ResourceSeed{
		{Type: "fire_truck", Quantity: 12, Location: "central-station"},
		{Type: "fire_truck", Quantity: 6, Location: "north-station"},
		{Type: "ambulance", Quantity: 20, Location: "general-hospital"},
		{Type: "ambulance", Quantity: 8, Location: "east-clinic"},
		{Type: "rescue_team", Quantity: 5, Location: "hq"},
		{Type: "rescue_team", Quantity: 3, Location: "harbor"},
		{Type: "helicopter", Quantity: 2, Location: "airfield"},
		{Type: "water_pump", Quantity: 15, Location: "utility-depot"},
		{Type: "shelter_kit", Quantity: 500, Location: "warehouse"},
	}
}
