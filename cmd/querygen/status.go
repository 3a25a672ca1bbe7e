package main

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	aggregaterepo "github.com/kailas-cloud/querygen/internal/repository/aggregate"
)

func newStatusCmd(root *rootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print the progress of an aggregate file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := output
			if path == "" {
				cfg, _, err := loadConfig(root, nil)
				if err != nil {
					return err
				}
				path = cfg.Output.Path
			}
			return printStatus(cmd.OutOrStdout(), path)
		},
	}

	cmd.Flags().StringVar(&output, "output", "", "aggregate file (overrides output.path)")
	return cmd
}

// printStatus writes the progress of the aggregate at path as indented JSON.
// The file is only read, a corrupt file is reported and left in place.
func printStatus(w io.Writer, path string) error {
	agg, err := aggregaterepo.New(path, "", zap.NewNop()).Read()
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(agg.Progress())
}
