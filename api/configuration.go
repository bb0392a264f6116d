package api

import (
	"fmt"
	"os"

	"github.com/featstore/featstore/constants"
	"gopkg.in/yaml.v3"
)

type Configuration struct {
	ProjectName  string             `yaml:"project"`
	Registry     RegistryConfig     `yaml:"registry"`
	OnlineStore  OnlineStoreConfig  `yaml:"online_store"`
	OfflineStore OfflineStoreConfig `yaml:"offline_store"`
}

type RegistryConfig struct {
	Type string `yaml:"type"` // postgres, memory
	DSN  string `yaml:"dsn,omitempty"`
}

type OnlineStoreConfig struct {
	Type     string `yaml:"type"` // redis, mysql, memory
	Addr     string `yaml:"addr,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
	DSN      string `yaml:"dsn,omitempty"` // mysql
}

type OfflineStoreConfig struct {
	Type string `yaml:"type"` // sqlite
	Path string `yaml:"path,omitempty"`
}

// NewConfiguration returns an in-process configuration: memory registry,
// memory online store and a sqlite offline store at the given path.
func NewConfiguration(projectName, offlinePath string) *Configuration {
	return &Configuration{
		ProjectName:  projectName,
		Registry:     RegistryConfig{Type: constants.Registry_Type_Memory},
		OnlineStore:  OnlineStoreConfig{Type: constants.Datasource_Type_Memory},
		OfflineStore: OfflineStoreConfig{Type: constants.Datasource_Type_SQLite, Path: offlinePath},
	}
}

func LoadConfiguration(path string) (*Configuration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read configuration %s: %w", path, err)
	}

	var cfg Configuration
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse configuration %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Configuration) Validate() error {
	if c.ProjectName == "" {
		return fmt.Errorf("configuration missing project name")
	}

	switch c.Registry.Type {
	case constants.Registry_Type_Memory:
	case constants.Registry_Type_Postgres:
		if c.Registry.DSN == "" {
			return fmt.Errorf("postgres registry requires a dsn")
		}
	default:
		return fmt.Errorf("unsupported registry type:%s", c.Registry.Type)
	}

	switch c.OnlineStore.Type {
	case constants.Datasource_Type_Memory:
	case constants.Datasource_Type_Redis:
		if c.OnlineStore.Addr == "" {
			return fmt.Errorf("redis online store requires an addr")
		}
	case constants.Datasource_Type_MySQL:
		if c.OnlineStore.DSN == "" {
			return fmt.Errorf("mysql online store requires a dsn")
		}
	default:
		return fmt.Errorf("unsupported online store type:%s", c.OnlineStore.Type)
	}

	if c.OfflineStore.Type != constants.Datasource_Type_SQLite {
		return fmt.Errorf("unsupported offline store type:%s", c.OfflineStore.Type)
	}
	if c.OfflineStore.Path == "" {
		return fmt.Errorf("sqlite offline store requires a path")
	}

	return nil
}
