package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/cli"
	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/model"
	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/service"
)

func catalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Browse the card catalog",
	}

	cmd.AddCommand(catalogListCmd())

	return cmd
}

func catalogListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List active catalog cards",
		RunE:  runCatalogList,
	}

	cmd.Flags().String("network", "", "filter by network (visa, mastercard, amex, discover, rupay)")
	cmd.Flags().Float64("max-fee", -1, "annual fee ceiling; negative means no cap")
	cmd.Flags().Bool("business", false, "include business cards")

	return cmd
}

func runCatalogList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	network, _ := cmd.Flags().GetString("network")
	maxFee, _ := cmd.Flags().GetFloat64("max-fee")
	business, _ := cmd.Flags().GetBool("business")

	rt, err := buildRuntime(ctx, false)
	if err != nil {
		return err
	}
	defer rt.Close()

	cards, err := rt.store.ListEligibleCards(ctx, service.CatalogFilters{
		PreferredNetwork:     model.CardNetwork(network),
		MaxAnnualFee:         maxFee,
		IncludeBusinessCards: business,
	})
	if err != nil {
		return err
	}
	if len(cards) == 0 {
		fmt.Println(cli.FormatInfo("No cards match the filters."))
		return nil
	}

	header := fmt.Sprintf("%-30s %-16s %-10s %10s %8s", "Card", "Issuer", "Network", "Fee", "Base")
	fmt.Println(cli.TableHeaderStyle.Render(header))
	for i := range cards {
		card := &cards[i]
		fmt.Printf("%-30s %-16s %-10s %10s %7.1f%%\n",
			card.Name, card.Issuer, card.Network,
			fmt.Sprintf("$%.0f", card.AnnualFee), card.BaseRewardRate)
	}

	return nil
}
