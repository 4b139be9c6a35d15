package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Provider         string `json:"provider"`
	VastCLI          string `json:"vast_cli"`
	VastAPIURL       string `json:"vast_api_url"`
	VastAPIKey       string `json:"vast_api_key"`
	VastKeyPath      string `json:"vast_api_key_path"`
	Image            string `json:"image"`
	DiskGB           int    `json:"disk_gb"`
	OnstartCmd       string `json:"onstart_cmd"`
	AWSAMI           string `json:"aws_ami"`
	AWSAMIOwner      string `json:"aws_ami_owner"`
	AWSAMIPattern    string `json:"aws_ami_pattern"`
	AWSKeyName       string `json:"aws_key_name"`
	AWSSecurityGroup string `json:"aws_security_group"`
	AWSNameTag       string `json:"aws_name_tag"`
}

// Keys lists every setting that can be overridden from flags or the
// environment.
var Keys = []string{
	"provider",
	"vast_cli",
	"vast_api_url",
	"vast_api_key",
	"vast_api_key_path",
	"image",
	"disk_gb",
	"onstart_cmd",
	"aws_ami",
	"aws_ami_owner",
	"aws_ami_pattern",
	"aws_key_name",
	"aws_security_group",
	"aws_name_tag",
}

func Defaults() Config {
	return Config{
		Provider:      "vast",
		VastCLI:       "vastai",
		VastAPIURL:    "https://console.vast.ai/api/v0",
		VastKeyPath:   "~/.vast_api_key",
		Image:         "pytorch/pytorch:latest",
		DiskGB:        100,
		OnstartCmd:    `bash -c 'echo Running my work...; python /path/to/your_script.py; vastai stop instance $CONTAINER_ID'`,
		AWSAMIOwner:   "amazon",
		AWSAMIPattern: "Deep Learning OSS Nvidia Driver AMI GPU PyTorch*",
		AWSNameTag:    "gpulaunch",
	}
}

// LoadConfig returns the defaults overlaid with
// ~/.config/gpulaunch/default.json when that file exists.
func LoadConfig() (Config, error) {
	cfg := Defaults()

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, nil
	}

	path := filepath.Join(home, ".config", "gpulaunch", "default.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// NewViper returns a viper instance reading GPULAUNCH_* variables. The
// vast API key is also read from VAST_API_KEY.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("gpulaunch")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("vast_api_key", "GPULAUNCH_VAST_API_KEY", "VAST_API_KEY")
	return v
}

// WithOverrides replaces every field whose key is set in v.
func (c Config) WithOverrides(v *viper.Viper) (Config, error) {
	for _, key := range Keys {
		if !v.IsSet(key) {
			continue
		}
		if err := c.set(key, v); err != nil {
			return c, err
		}
	}
	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

func (c *Config) set(key string, v *viper.Viper) error {
	switch key {
	case "provider":
		c.Provider = v.GetString(key)
	case "vast_cli":
		c.VastCLI = v.GetString(key)
	case "vast_api_url":
		c.VastAPIURL = v.GetString(key)
	case "vast_api_key":
		c.VastAPIKey = v.GetString(key)
	case "vast_api_key_path":
		c.VastKeyPath = v.GetString(key)
	case "image":
		c.Image = v.GetString(key)
	case "disk_gb":
		c.DiskGB = v.GetInt(key)
	case "onstart_cmd":
		c.OnstartCmd = v.GetString(key)
	case "aws_ami":
		c.AWSAMI = v.GetString(key)
	case "aws_ami_owner":
		c.AWSAMIOwner = v.GetString(key)
	case "aws_ami_pattern":
		c.AWSAMIPattern = v.GetString(key)
	case "aws_key_name":
		c.AWSKeyName = v.GetString(key)
	case "aws_security_group":
		c.AWSSecurityGroup = v.GetString(key)
	case "aws_name_tag":
		c.AWSNameTag = v.GetString(key)
	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	return nil
}

func (c Config) Validate() error {
	switch c.Provider {
	case "vast", "ec2":
	default:
		return fmt.Errorf("unknown provider %q (want vast or ec2)", c.Provider)
	}
	if c.DiskGB < 1 {
		return fmt.Errorf("disk_gb must be positive, got %d", c.DiskGB)
	}
	return nil
}

// ResolveVastAPIKey returns the configured key, falling back to the file
// the vastai CLI writes on `vastai set api-key`.
func (c Config) ResolveVastAPIKey() string {
	if c.VastAPIKey != "" {
		return c.VastAPIKey
	}
	data, err := os.ReadFile(expandHome(c.VastKeyPath))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
