package appConfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"

	"gcm/internal/gitlab"
	logger "gcm/internal/log"
)

const DefaultConfigFileName = "gitlabMirror.yaml"

const (
	EnvCloneDirectory = "GCM_CLONE_DIRECTORY"
	EnvBaseURL        = "GCM_BASE_URL"
	EnvLogFile        = "GCM_LOG_FILE"
	EnvMetricsFile    = "GCM_METRICS_FILE"
)

var ErrConfigNotFound = errors.New("config file not found in current directory or home directory")

type AppConfig struct {
	GitLab      []gitlab.GitLabConfig `yaml:"gitlab"`
	LogFile     string                `yaml:"logFile"`
	MetricsFile string                `yaml:"metricsFile"`
	// Path is the file the configuration was read from, empty when built from the environment.
	Path string `yaml:"-"`
}

// LoadConfig reads configFilePath, or DefaultConfigFileName from the working directory and
// then the home directory when no path is given. Environment overrides are applied and
// every host gets its defaults. Without any config file a single host is built from the
// environment.
func LoadConfig(configFilePath string) (*AppConfig, error) {
	config, err := readConfig(configFilePath)
	if errors.Is(err, ErrConfigNotFound) && configFilePath == "" {
		logger.Log.Debugf("No %s found, configuring from environment", DefaultConfigFileName)
		config = &AppConfig{}
	} else if err != nil {
		return nil, err
	}

	config.applyEnvironment()
	if len(config.GitLab) == 0 {
		return nil, fmt.Errorf("%w and %s is not set", ErrConfigNotFound, EnvBaseURL)
	}
	for i := range config.GitLab {
		if err := config.GitLab[i].Validate(); err != nil {
			return nil, err
		}
		config.GitLab[i] = config.GitLab[i].WithDefaults()
	}
	return config, nil
}

func readConfig(configFilePath string) (*AppConfig, error) {
	path, err := findConfigFile(configFilePath)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}

	var config AppConfig
	if err := yaml.UnmarshalStrict(data, &config); err != nil {
		return nil, fmt.Errorf("could not unmarshal config file %s: %w", path, err)
	}
	config.Path = path
	logger.Log.Debugf("Loaded configuration from %s", path)
	return &config, nil
}

func findConfigFile(configFilePath string) (string, error) {
	if configFilePath != "" {
		if _, err := os.Stat(configFilePath); err != nil {
			if os.IsNotExist(err) {
				return "", fmt.Errorf("%w: %s", ErrConfigNotFound, configFilePath)
			}
			return "", err
		}
		return configFilePath, nil
	}

	if _, err := os.Stat(DefaultConfigFileName); err == nil {
		return DefaultConfigFileName, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	homeConfig := filepath.Join(homeDir, DefaultConfigFileName)
	if _, err := os.Stat(homeConfig); err != nil {
		return "", ErrConfigNotFound
	}
	return homeConfig, nil
}

// applyEnvironment lets GCM_* variables replace the matching fields of the first host.
func (config *AppConfig) applyEnvironment() {
	if logFile := os.Getenv(EnvLogFile); logFile != "" {
		config.LogFile = logFile
	}
	if metricsFile := os.Getenv(EnvMetricsFile); metricsFile != "" {
		config.MetricsFile = metricsFile
	}

	baseURL := os.Getenv(EnvBaseURL)
	cloneDirectory := os.Getenv(EnvCloneDirectory)
	if len(config.GitLab) == 0 {
		if baseURL == "" {
			return
		}
		config.GitLab = []gitlab.GitLabConfig{{}}
	}
	if baseURL != "" {
		config.GitLab[0].BaseURL = baseURL
	}
	if cloneDirectory != "" {
		config.GitLab[0].CloneDirectory = cloneDirectory
	}
}

// Host returns the host configuration named by hostName, or the only one when hostName is empty.
func (config *AppConfig) Host(hostName string) (gitlab.GitLabConfig, error) {
	if hostName == "" {
		if len(config.GitLab) != 1 {
			return gitlab.GitLabConfig{}, fmt.Errorf("%d hosts are configured, select one with --host", len(config.GitLab))
		}
		return config.GitLab[0], nil
	}
	for _, host := range config.GitLab {
		if host.HostName == hostName || host.BaseURL == hostName {
			return host, nil
		}
	}
	return gitlab.GitLabConfig{}, fmt.Errorf("host %s is not configured", hostName)
}
