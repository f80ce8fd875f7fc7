package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrConfigNotFound is returned when the config file does not exist.
// Callers can check for this with errors.Is(err, config.ErrConfigNotFound).
var ErrConfigNotFound = errors.New("config file not found")

type DestinationConfig struct {
	BucketURL     string `yaml:"bucket_url"`
	DatasetName   string `yaml:"dataset_name"`
	Layout        string `yaml:"layout,omitempty"`
	AsStaging     bool   `yaml:"as_staging,omitempty"`
	VerifyRestore bool   `yaml:"verify_restore,omitempty"`
}

// CredentialsConfig holds non-secret cloud settings. Secrets come from
// the environment.
type CredentialsConfig struct {
	AWSRegion          string `yaml:"aws_region,omitempty"`
	AWSProfile         string `yaml:"aws_profile,omitempty"`
	AWSEndpointURL     string `yaml:"aws_endpoint_url,omitempty"`
	AzureAccountName   string `yaml:"azure_account_name,omitempty"`
	AzureTenantID      string `yaml:"azure_tenant_id,omitempty"`
	AzureClientID      string `yaml:"azure_client_id,omitempty"`
	GCPCredentialsFile string `yaml:"gcp_credentials_file,omitempty"`
	GCPEndpoint        string `yaml:"gcp_endpoint,omitempty"`
}

type JournalConfig struct {
	Connection    string `yaml:"connection,omitempty"`
	AuthMethod    string `yaml:"auth_method,omitempty"`
	AWSRegion     string `yaml:"aws_region,omitempty"`
	AzureTenantID string `yaml:"azure_tenant_id,omitempty"`
	AzureClientID string `yaml:"azure_client_id,omitempty"`
}

type LoadConfig struct {
	Workers           int     `yaml:"workers,omitempty"`
	MaxRetries        *int    `yaml:"max_retries,omitempty"`
	DeleteConcurrency int     `yaml:"delete_concurrency,omitempty"`
	DeleteRate        float64 `yaml:"delete_rate,omitempty"`
}

type ProjectConfig struct {
	Destination DestinationConfig `yaml:"destination"`
	Credentials CredentialsConfig `yaml:"credentials"`
	Journal     JournalConfig     `yaml:"journal"`
	Load        LoadConfig        `yaml:"load"`
	Timeout     string            `yaml:"timeout"`
	LogFormat   string            `yaml:"log_format,omitempty"`
}

const ConfigFileName = "fsload.yaml"

func Load(projectDir string) (*ProjectConfig, error) {
	configPath := filepath.Join(projectDir, ConfigFileName)
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Write stores cfg as the config file of projectDir.
func Write(projectDir string, cfg *ProjectConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(projectDir, ConfigFileName), data, 0644)
}
