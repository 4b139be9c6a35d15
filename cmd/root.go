package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/emaland/gpulaunch/internal/awsutil"
	gpuconfig "github.com/emaland/gpulaunch/internal/config"
	"github.com/emaland/gpulaunch/internal/launch"
	"github.com/emaland/gpulaunch/internal/vast"
)

var (
	gcfg     gpuconfig.Config
	logger   = log.New()
	launcher *launch.Launcher

	// newMarket builds the backend for the configured provider.
	newMarket            = buildMarket
	BaseEndpointOverride string
)

const awsCredentialGuidance = `AWS credentials not found. Configure them using one of:

  aws sso login                        If you use AWS IAM Identity Center (SSO)
  aws configure                        Interactive setup for ~/.aws/credentials
  export AWS_ACCESS_KEY_ID=...         Set credentials via environment variables
  export AWS_SECRET_ACCESS_KEY=...
  export AWS_PROFILE=my-profile        Use a named profile from ~/.aws/config

Docs: https://docs.aws.amazon.com/cli/latest/userguide/cli-configure-files.html`

func NewRootCmd() *cobra.Command {
	var verbose bool

	v := gpuconfig.NewViper()

	root := &cobra.Command{
		Use:   "gpulaunch",
		Short: "Rent and release GPU machines on a cloud marketplace",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger.SetOutput(cmd.ErrOrStderr())
			logger.SetLevel(log.InfoLevel)
			if verbose {
				logger.SetLevel(log.DebugLevel)
			}

			var err error
			gcfg, err = gpuconfig.LoadConfig()
			if err != nil {
				return err
			}
			gcfg, err = gcfg.WithOverrides(v)
			if err != nil {
				return err
			}

			market, err := newMarket(cmd.Context(), gcfg, logger)
			if err != nil {
				return err
			}
			launcher = launch.NewLauncher(market, logger)
			return nil
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")
	root.PersistentFlags().String("provider", "vast", "Marketplace backend: vast or ec2")
	root.PersistentFlags().String("vast_cli", "vastai", "Path to the vastai CLI")
	root.PersistentFlags().String("image", "", "Container image (vast) for new instances")
	root.PersistentFlags().Int("disk_gb", 0, "Disk size in GB for new instances")
	for _, key := range []string{"provider", "vast_cli", "image", "disk_gb"} {
		if err := v.BindPFlag(key, root.PersistentFlags().Lookup(key)); err != nil {
			logger.WithError(err).Fatal("flag binding failed")
		}
	}

	root.AddCommand(
		newTryLaunchCmd(),
		newDestroyCmd(),
		newSearchCmd(),
		newLaunchCmd(),
	)
	return root
}

func Execute() {
	if err := NewRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func buildMarket(ctx context.Context, c gpuconfig.Config, logger log.FieldLogger) (launch.Marketplace, error) {
	switch c.Provider {
	case "ec2":
		return buildSpotMarket(ctx, c, logger)
	default:
		spec := vast.LaunchSpec{
			Image:   c.Image,
			DiskGB:  c.DiskGB,
			Onstart: c.OnstartCmd,
			SSH:     true,
		}
		return vast.NewClient(vast.Options{
			CLI:    c.VastCLI,
			APIURL: c.VastAPIURL,
			APIKey: c.ResolveVastAPIKey(),
			Spec:   spec,
			Logger: logger,
		}), nil
	}
}

func buildSpotMarket(ctx context.Context, c gpuconfig.Config, logger log.FieldLogger) (launch.Marketplace, error) {
	var opts []func(*config.LoadOptions) error
	if BaseEndpointOverride != "" {
		opts = append(opts, config.WithBaseEndpoint(BaseEndpointOverride))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	// Verify credentials are valid before any command runs.
	stsClient := sts.NewFromConfig(awsCfg)
	if _, err := stsClient.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{}); err != nil {
		fmt.Fprintln(os.Stderr, awsCredentialGuidance)
		return nil, err
	}

	return awsutil.NewSpotMarket(ec2.NewFromConfig(awsCfg), awsutil.SpotConfig{
		AMIID:         c.AWSAMI,
		AMIOwner:      c.AWSAMIOwner,
		AMIPattern:    c.AWSAMIPattern,
		KeyName:       c.AWSKeyName,
		SecurityGroup: c.AWSSecurityGroup,
		DiskGB:        int32(c.DiskGB),
		Onstart:       c.OnstartCmd,
		NameTag:       c.AWSNameTag,
	}, logger), nil
}

type jsonResult struct {
	Result interface{} `json:"result"`
}

// printResult writes {"result": value} on one line.
func printResult(w io.Writer, value interface{}) error {
	return json.NewEncoder(w).Encode(jsonResult{Result: value})
}
