package storage

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"immo-estimator/apperrors"
	"immo-estimator/forest"
	"immo-estimator/models"
)

// SaveSchema writes the feature schema as YAML, creating directories.
func SaveSchema(path string, schema *models.FeatureSchema) error {
	data, err := yaml.Marshal(schema)
	if err != nil {
		return fmt.Errorf("artifacts: marshal schema: %w", err)
	}
	return writeFile(path, data)
}

// LoadSchema reads a feature schema written by SaveSchema.
func LoadSchema(path string) (*models.FeatureSchema, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	var schema models.FeatureSchema
	if err := yaml.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("artifacts: unmarshal schema %q: %w", path, err)
	}
	if schema.Version != models.SchemaVersion {
		return nil, fmt.Errorf("artifacts: schema %q has version %d, want %d", path, schema.Version, models.SchemaVersion)
	}
	return &schema, nil
}

// SaveModel gob-encodes the trained forest, creating directories.
func SaveModel(path string, model *forest.Regressor) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(model); err != nil {
		return fmt.Errorf("artifacts: encode model: %w", err)
	}
	return writeFile(path, buf.Bytes())
}

// LoadModel decodes a forest written by SaveModel.
func LoadModel(path string) (*forest.Regressor, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	var model forest.Regressor
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&model); err != nil {
		return nil, fmt.Errorf("artifacts: decode model %q: %w", path, err)
	}
	if !model.Trained() {
		return nil, fmt.Errorf("artifacts: model %q: %w", path, apperrors.ErrModelNotTrained)
	}
	return &model, nil
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("artifacts: create dir for %q: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("artifacts: write %q: %w", path, err)
	}
	return nil
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("artifacts: read %q: %w", path, apperrors.ErrSourceNotFound)
		}
		return nil, fmt.Errorf("artifacts: read %q: %w", path, err)
	}
	return data, nil
}
