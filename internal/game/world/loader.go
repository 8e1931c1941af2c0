package world

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// yamlWorldFile is the top-level YAML structure for seed world files.
type yamlWorldFile struct {
	Rooms []yamlRoom `yaml:"rooms"`
	Items []yamlItem `yaml:"items"`
}

// yamlRoom is the YAML representation of a room.
type yamlRoom struct {
	ID          string         `yaml:"id"`
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Exits       []yamlExit     `yaml:"exits"`
	Properties  map[string]any `yaml:"properties"`
}

// yamlExit is the YAML representation of an exit.
type yamlExit struct {
	Direction string `yaml:"direction"`
	Target    string `yaml:"target"`
}

// yamlItem is the YAML representation of an item.
type yamlItem struct {
	ID          string         `yaml:"id"`
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Container   string         `yaml:"container"`
	Properties  map[string]any `yaml:"properties"`
}

// SeedWorld is static content applied idempotently at startup.
type SeedWorld struct {
	Rooms []*Object
	Items []*Object
	Exits []Exit
}

// LoadSeedFile reads and validates a seed world YAML file.
//
// Precondition: path must point to a readable YAML file.
// Postcondition: Returns a validated SeedWorld or a non-nil error.
func LoadSeedFile(path string) (*SeedWorld, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading seed file %s: %w", path, err)
	}
	return LoadSeedBytes(data)
}

// LoadSeedBytes parses and validates a seed world from YAML bytes.
//
// Postcondition: object ids are unique and every room has at most one exit
// per direction. References to rooms outside the document, such as the start
// room, are resolved when the seed is applied.
func LoadSeedBytes(data []byte) (*SeedWorld, error) {
	var file yamlWorldFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing seed YAML: %w", err)
	}

	sw := &SeedWorld{}
	ids := make(map[string]bool)
	for _, yr := range file.Rooms {
		if yr.ID == "" || yr.Name == "" {
			return nil, fmt.Errorf("room %q: id and name are required", yr.ID)
		}
		if ids[yr.ID] {
			return nil, fmt.Errorf("duplicate object id %q", yr.ID)
		}
		ids[yr.ID] = true
		sw.Rooms = append(sw.Rooms, &Object{
			ID:          yr.ID,
			Name:        yr.Name,
			Description: strings.TrimSpace(yr.Description),
			Kind:        KindRoom,
			Properties:  propertiesOrEmpty(yr.Properties),
		})
		seen := make(map[Direction]bool)
		for _, ye := range yr.Exits {
			dir := Direction(ye.Direction).Normalize()
			if canonical, ok := ParseDirection(ye.Direction); ok {
				dir = canonical
			}
			if dir == "" || ye.Target == "" {
				return nil, fmt.Errorf("room %q: exit needs direction and target", yr.ID)
			}
			if seen[dir] {
				return nil, fmt.Errorf("room %q: duplicate exit %q", yr.ID, dir)
			}
			seen[dir] = true
			sw.Exits = append(sw.Exits, Exit{RoomID: yr.ID, Direction: dir, DestinationID: ye.Target})
		}
	}

	for _, yi := range file.Items {
		if yi.ID == "" || yi.Name == "" || yi.Container == "" {
			return nil, fmt.Errorf("item %q: id, name and container are required", yi.ID)
		}
		if ids[yi.ID] {
			return nil, fmt.Errorf("duplicate object id %q", yi.ID)
		}
		ids[yi.ID] = true
		sw.Items = append(sw.Items, &Object{
			ID:          yi.ID,
			Name:        yi.Name,
			Description: strings.TrimSpace(yi.Description),
			Kind:        KindItem,
			ContainerID: yi.Container,
			Properties:  propertiesOrEmpty(yi.Properties),
		})
	}
	return sw, nil
}

func propertiesOrEmpty(p map[string]any) map[string]any {
	if p == nil {
		return map[string]any{}
	}
	return p
}
