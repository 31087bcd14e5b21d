package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/cli"
)

func analysisCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analysis <session-token>",
		Short: "Show the spending breakdown for a processed statement",
		Args:  cobra.ExactArgs(1),
		RunE:  runAnalysis,
	}
}

func runAnalysis(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	token := args[0]

	rt, err := buildRuntime(ctx, false)
	if err != nil {
		return err
	}
	defer rt.Close()

	patterns, err := rt.app.GetSpendingAnalysis(ctx, token)
	if err != nil {
		return err
	}

	fmt.Println(cli.RenderAnalysis(patterns))
	return nil
}
