package config

import (
	"gopkg.in/yaml.v3"
)

// WorkFile represents the structure of the kiln.work.yaml configuration file.
type WorkFile struct {
	Version     string             `yaml:"version"`
	Units       []string           `yaml:"units"`
	Concurrency int                `yaml:"concurrency"`
	Ignore      []string           `yaml:"ignore"`
	Cache       CacheDTO           `yaml:"cache"`
	Tasks       map[string]TaskDTO `yaml:"tasks"`
}

// CacheDTO configures the task store.
type CacheDTO struct {
	Backend           string   `yaml:"backend"`
	Dir               string   `yaml:"dir"`
	Tests             *bool    `yaml:"tests"`
	TightFingerprints bool     `yaml:"tightFingerprints"`
	Redis             RedisDTO `yaml:"redis"`
}

// RedisDTO holds the redis connection settings.
type RedisDTO struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// UnitFile represents the structure of a kiln.yaml unit file.
type UnitFile struct {
	Name      string              `yaml:"name"`
	DependsOn []string            `yaml:"dependsOn"`
	Commands  map[string][]string `yaml:"commands"`
	Tasks     map[string]TaskDTO  `yaml:"tasks"`
}

// TaskDTO represents a task kind in the configuration.
type TaskDTO struct {
	Cmd          []string          `yaml:"cmd"`
	Env          map[string]string `yaml:"env"`
	DependsOn    []string          `yaml:"dependsOn"`
	Inputs       []string          `yaml:"inputs"`
	InputsInDeps []string          `yaml:"inputsInDeps"`
	Outputs      []OutputDTO       `yaml:"outputs"`
	Units        []string          `yaml:"units"`
	Test         bool              `yaml:"test"`
	Cache        *bool             `yaml:"cache"`
	Shadowing    bool              `yaml:"shadowing"`
	Assets       []string          `yaml:"assets"`
}

// OutputDTO is an output location. It is written either as a plain path
// or as a mapping with path and purge.
type OutputDTO struct {
	Path  string `yaml:"path"`
	Purge string `yaml:"purge"`
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (o *OutputDTO) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		*o = OutputDTO{}
		return value.Decode(&o.Path)
	}
	type plain OutputDTO
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}
	*o = OutputDTO(p)
	return nil
}
