// Package vast talks to the vast.ai GPU marketplace. Searching and
// destroying go through the vastai CLI; creating an instance uses the REST
// API directly so the new contract ID comes back as structured data.
package vast

import (
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/emaland/gpulaunch/internal/executor"
)

const (
	DefaultCLI     = "vastai"
	DefaultAPIURL  = "https://console.vast.ai/api/v0"
	DefaultImage   = "pytorch/pytorch:latest"
	DefaultDiskGB  = 100
	DefaultOnstart = `bash -c 'echo Running my work...; python /path/to/your_script.py; vastai stop instance $CONTAINER_ID'`
)

// LaunchSpec is the fixed configuration every new instance gets.
type LaunchSpec struct {
	Image   string
	DiskGB  int
	Onstart string
	SSH     bool
}

func DefaultLaunchSpec() LaunchSpec {
	return LaunchSpec{
		Image:   DefaultImage,
		DiskGB:  DefaultDiskGB,
		Onstart: DefaultOnstart,
		SSH:     true,
	}
}

type Options struct {
	CLI        string
	APIURL     string
	APIKey     string
	Spec       LaunchSpec
	Runner     executor.Runner
	HTTPClient *http.Client
	Logger     log.FieldLogger
}

type Client struct {
	cli    string
	apiURL string
	apiKey string
	spec   LaunchSpec
	runner executor.Runner
	http   *http.Client
	logger log.FieldLogger
}

func NewClient(opts Options) *Client {
	c := &Client{
		cli:    opts.CLI,
		apiURL: opts.APIURL,
		apiKey: opts.APIKey,
		spec:   opts.Spec,
		runner: opts.Runner,
		http:   opts.HTTPClient,
		logger: opts.Logger,
	}
	if c.cli == "" {
		c.cli = DefaultCLI
	}
	if c.apiURL == "" {
		c.apiURL = DefaultAPIURL
	}
	if c.logger == nil {
		c.logger = log.StandardLogger()
	}
	if c.runner == nil {
		c.runner = executor.NewExecutor(c.logger)
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 60 * time.Second}
	}
	if c.spec == (LaunchSpec{}) {
		c.spec = DefaultLaunchSpec()
	}
	return c
}

func (c *Client) Name() string {
	return "vast"
}
