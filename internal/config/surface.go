package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/frudas24/occtview/internal/glconfig"
	"gopkg.in/yaml.v3"
)

// surfaceFile is the YAML layout of the surface preference file:
//
//	requests:
//	  - {red: 8, green: 8, blue: 8, depth: 24, stencil: 8, client_version: 2}
//	  - {red: 8, green: 8, blue: 8, depth: 16, stencil: 8, client_version: 2}
type surfaceFile struct {
	Requests []glconfig.Request `yaml:"requests"`
}

// LoadSurfaceFile reads the ordered surface preference list. A missing file
// yields glconfig.DefaultRequests.
func LoadSurfaceFile(path string) ([]glconfig.Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return glconfig.DefaultRequests(), nil
		}
		return nil, err
	}
	var f surfaceFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("surface config %s: %w", path, err)
	}
	if len(f.Requests) == 0 {
		return nil, fmt.Errorf("surface config %s: no requests", path)
	}
	for i, r := range f.Requests {
		if err := validateRequest(r); err != nil {
			return nil, fmt.Errorf("surface config %s: request %d: %w", path, i, err)
		}
	}
	return f.Requests, nil
}

// validateRequest rejects requests no platform could satisfy.
func validateRequest(r glconfig.Request) error {
	for _, c := range []int{r.Red, r.Green, r.Blue} {
		if c <= 0 || c > 16 {
			return fmt.Errorf("colour channels must be 1-16 bits")
		}
	}
	if r.Alpha < 0 || r.Depth < 0 || r.Stencil < 0 {
		return fmt.Errorf("alpha, depth and stencil must be >= 0")
	}
	if r.ClientVersion < glconfig.ClientVersion2 {
		return fmt.Errorf("client_version must be >= %d", glconfig.ClientVersion2)
	}
	return nil
}
