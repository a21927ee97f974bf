// Package configutil reads layered json5 configuration files.
package configutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

// Layers lists the files ReadConfig looks at for path, lowest priority first. For
// "dir/config.json5" that is "dir/config.json5" followed by "dir/config.local.json5".
func Layers(path string) []string {
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	return []string{path, stem + ".local" + ext}
}

// readLayer decodes a single file into a fresh T. found is false when the file does not exist,
// an empty file is found but leaves T zeroed.
func readLayer[T any](path string) (layer T, found bool, err error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return layer, false, nil
	}
	if err != nil {
		return layer, false, err
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return layer, true, nil
	}
	if err := json5.Unmarshal(raw, &layer); err != nil {
		return layer, true, fmt.Errorf("parse %s: %w", path, err)
	}
	return layer, true, nil
}

// ReadConfig merges every layer of path (see Layers), later layers overriding the non-zero
// fields of earlier ones.
//
// os.ErrNotExist is returned when no layer exists.
func ReadConfig[T any](path string) (T, error) {
	var out T
	foundAny := false

	for _, layerPath := range Layers(path) {
		layer, found, err := readLayer[T](layerPath)
		if err != nil {
			return out, err
		}
		if !found {
			continue
		}
		foundAny = true
		if err := mergo.Merge(&out, layer, mergo.WithOverride); err != nil {
			return out, fmt.Errorf("merge %s: %w", layerPath, err)
		}
	}

	if !foundAny {
		return out, os.ErrNotExist
	}
	return out, nil
}

// ReadFrom looks for name in start and then in each parent directory, returning the first
// config found.
func ReadFrom[T any](start string, name string) (T, error) {
	var zero T

	dir, err := filepath.Abs(start)
	if err != nil {
		return zero, err
	}
	for {
		config, err := ReadConfig[T](filepath.Join(dir, name))
		switch {
		case err == nil:
			return config, nil
		case !errors.Is(err, os.ErrNotExist):
			return zero, err
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return zero, os.ErrNotExist
		}
		dir = parent
	}
}

// ReadRecursively is ReadFrom starting at the working directory.
func ReadRecursively[T any](name string) (T, error) {
	cwd, err := os.Getwd()
	if err != nil {
		var zero T
		return zero, err
	}
	return ReadFrom[T](cwd, name)
}
