package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/cli"
	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/model"
	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/recommend"
)

func recommendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recommend <session-token>",
		Short: "Rank catalog cards against a processed statement",
		Long: `Score every eligible card in the catalog against the session's spending
patterns and print the top picks with per-category benefit breakdowns.

The session must have completed processing first (see the process command).`,
		Args: cobra.ExactArgs(1),
		RunE: runRecommend,
	}

	cmd.Flags().String("credit-score", "good", "your credit standing (poor, fair, good, excellent)")
	cmd.Flags().String("network", "", "preferred card network (visa, mastercard, amex, discover, rupay)")
	cmd.Flags().String("issuer", "", "preferred issuer")
	cmd.Flags().Float64("max-fee", 0, "annual fee ceiling; 0 means no cap")
	cmd.Flags().Int("top", 0, "number of cards to show (default from config)")
	cmd.Flags().Bool("no-fee", false, "only cards without an annual fee")
	cmd.Flags().Bool("business", false, "include business cards")
	cmd.Flags().Bool("benefits", false, "show per-category benefit tables")

	return cmd
}

func runRecommend(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	token := args[0]

	creditScore, _ := cmd.Flags().GetString("credit-score")
	network, _ := cmd.Flags().GetString("network")
	issuer, _ := cmd.Flags().GetString("issuer")
	maxFee, _ := cmd.Flags().GetFloat64("max-fee")
	topN, _ := cmd.Flags().GetInt("top")
	noFee, _ := cmd.Flags().GetBool("no-fee")
	business, _ := cmd.Flags().GetBool("business")
	benefits, _ := cmd.Flags().GetBool("benefits")

	bucket, err := parseCreditScore(creditScore)
	if err != nil {
		return err
	}

	rt, err := buildRuntime(ctx, false)
	if err != nil {
		return err
	}
	defer rt.Close()

	result, err := rt.app.GetRecommendations(ctx, token, recommend.Options{
		CreditScore:          bucket,
		PreferredNetwork:     model.CardNetwork(network),
		PreferredIssuer:      issuer,
		MaxAnnualFee:         maxFee,
		TopN:                 topN,
		NoAnnualFeeOnly:      noFee,
		IncludeBusinessCards: business,
	})
	if err != nil {
		return err
	}

	fmt.Println(cli.RenderRecommendations(result))

	if benefits {
		for i := range result.Recommendations {
			rec := &result.Recommendations[i]
			fmt.Println()
			fmt.Println(cli.BoldStyle.Render(rec.CardName))
			fmt.Println(cli.RenderBenefits(rec))
		}
	}

	return nil
}

func parseCreditScore(s string) (model.CreditScoreBucket, error) {
	switch model.CreditScoreBucket(s) {
	case model.ScorePoor, model.ScoreFair, model.ScoreGood, model.ScoreExcellent:
		return model.CreditScoreBucket(s), nil
	default:
		return "", fmt.Errorf("invalid credit score %q (expected poor, fair, good, or excellent)", s)
	}
}
