package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mmr-tortoise/dockgrid/internal/model"
)

// ImageRecord is one entry of the structured image-records file: a container
// image paired with the stereotype it serves.
//
// The records file is the structured alternative to the flat alternating
// "configs" list. Because image and stereotype are fields of a single
// record, the trailing-image-without-payload failure mode of the flat list
// cannot occur here by construction.
type ImageRecord struct {
	// Image is the container image reference.
	Image string `yaml:"image"`

	// Stereotype is the capability set served by the image, as an inline
	// YAML mapping.
	Stereotype map[string]any `yaml:"stereotype"`
}

// recordsFile is the top-level document shape of the records file:
//
//	images:
//	  - image: selenium/standalone-firefox:latest
//	    stereotype:
//	      browserName: firefox
type recordsFile struct {
	Images []ImageRecord `yaml:"images"`
}

// LoadImageRecords reads and validates the structured image-records file at
// path. Record order is preserved. A missing or unreadable file, invalid
// YAML, or a record without both fields is a configuration error.
func LoadImageRecords(path string) ([]ImageRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, model.WrapConfigError(
			fmt.Sprintf("unable to read image records file %s", path), err)
	}

	var doc recordsFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, model.WrapConfigError(
			fmt.Sprintf("invalid image records file %s", path), err)
	}

	for i, rec := range doc.Images {
		if rec.Image == "" {
			return nil, model.NewConfigError(fmt.Sprintf(
				"image records file %s: record %d has no image", path, i))
		}
		if len(rec.Stereotype) == 0 {
			return nil, model.NewConfigError(fmt.Sprintf(
				"image records file %s: record %d (%s) has no stereotype",
				path, i, rec.Image))
		}
	}

	return doc.Images, nil
}
