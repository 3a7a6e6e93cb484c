package cfg

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

type AccountType string

const (
	MEMORY  AccountType = "memory"
	LOCAL   AccountType = "local"
	SQLITE  AccountType = "sqlite"
	MAILDIR AccountType = "maildir"
)

type Config struct {
	Accounts map[string]Account `yaml:"accounts"`
}

type Account struct {
	Type AccountType `yaml:"type"`
	// File is the database file for "local" and "sqlite" accounts.
	File string `yaml:"file"`
	// Root is the top directory for "maildir" accounts.
	Root string `yaml:"root"`
}

// LoadFromFile loads the configuration from a YAML file
func LoadFromFile(fileName string) (*Config, error) {
	file, err := os.Open(fileName)
	if err != nil {
		return nil, err
	}
	return load(file)
}

// load from a io.ReadCloser
func load(reader io.ReadCloser) (*Config, error) {
	defer reader.Close()
	decoder := yaml.NewDecoder(reader)
	config := &Config{}
	err := decoder.Decode(config)
	if err != nil {
		return nil, err
	}
	err = validate(config)
	if err != nil {
		return nil, err
	}
	return config, nil
}

func validate(config *Config) error {
	for name, account := range config.Accounts {
		switch account.Type {
		case MEMORY:
		case LOCAL, SQLITE:
			if account.File == "" {
				return fmt.Errorf("account %q: missing \"file\" parameter", name)
			}
		case MAILDIR:
			if account.Root == "" {
				return fmt.Errorf("account %q: missing \"root\" parameter", name)
			}
		default:
			return fmt.Errorf("account %q: unknown type %q", name, account.Type)
		}
	}
	return nil
}
