package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/querygen/internal/config"
)

// rootOptions are the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	env        string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "querygen",
		Short:         "Generate categorized YouTube search queries from a keyword list",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "YAML config file (default config/<env>.yaml)")
	pf.StringVar(&opts.env, "env", "", "environment name: local, dev, prod (default $ENV or local)")
	pf.StringVar(&opts.logLevel, "log-level", "", "log level override: debug, info, warn, error")

	cmd.AddCommand(newRunCmd(opts), newStatusCmd(opts), newVersionCmd())
	return cmd
}

// loadConfig resolves the environment, reads the config file and applies flag overrides.
// overrides may be nil.
func loadConfig(root *rootOptions, overrides *runOptions) (config.Config, string, error) {
	if err := config.LoadEnvFiles(); err != nil {
		return config.Config{}, "", err
	}

	env := root.env
	if env == "" {
		env = config.GetEnv()
	}

	var (
		cfg config.Config
		err error
	)
	if root.configPath != "" {
		cfg, err = config.LoadFile(root.configPath)
	} else {
		cfg, err = config.Load(env)
	}
	if err != nil {
		return config.Config{}, "", err
	}

	if root.logLevel != "" {
		cfg.Logging.Level = root.logLevel
	}
	if overrides != nil {
		overrides.apply(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, "", fmt.Errorf("invalid config: %w", err)
	}
	return cfg, env, nil
}
