package store

import (
	"errors"
	"fmt"
	"strings"

	"artdiff/internal/model"
)

func colorKey(k model.ColorKey) string {
	return prefixColorKey + k.Values + sep + k.ModelID + sep + k.Type
}

// ColorModelByName looks up a color model, ignoring case.
func (tx *Tx) ColorModelByName(name string) (*model.ColorModel, error) {
	var cm model.ColorModel
	if err := tx.getJSON(prefixColorModel+strings.ToLower(name), &cm); err != nil {
		return nil, fmt.Errorf("color model %q: %w", name, err)
	}
	return &cm, nil
}

// PutColorModel registers a color model under its lower-cased name.
func (tx *Tx) PutColorModel(cm *model.ColorModel) error {
	if cm.ID == "" || cm.Name == "" {
		return fmt.Errorf("%w: color model requires id and name", model.ErrValidation)
	}
	cm.Name = strings.ToLower(cm.Name)
	return tx.putJSON(prefixColorModel+cm.Name, cm)
}

// Color loads a color by id.
func (tx *Tx) Color(id string) (*model.Color, error) {
	var c model.Color
	if err := tx.getJSON(prefixColor+id, &c); err != nil {
		return nil, fmt.Errorf("color %s: %w", id, err)
	}
	return &c, nil
}

// FindOrCreateColor returns the color with key k, creating it with newID when
// absent. The boolean reports whether a new color was created.
func (tx *Tx) FindOrCreateColor(k model.ColorKey, newID string) (*model.Color, bool, error) {
	var id string
	err := tx.getJSON(colorKey(k), &id)
	switch {
	case err == nil:
		c, err := tx.Color(id)
		return c, false, err
	case !errors.Is(err, model.ErrNotFound):
		return nil, false, err
	}

	c := &model.Color{ID: newID, Key: k}
	if err := tx.putJSON(colorKey(k), newID); err != nil {
		return nil, false, err
	}
	if err := tx.putJSON(prefixColor+newID, c); err != nil {
		return nil, false, err
	}
	return c, true, nil
}
