package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"pocketbank/internal/cli"
	"pocketbank/internal/config"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load()

	cfg := config.LoadCLI()
	client := cli.NewClient(cfg.APIBaseURL)

	root := &cobra.Command{
		Use:           "pbk",
		Short:         "pocketbank command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		registerCmd(client),
		whoamiCmd(client),
		logoutCmd(),
		marketCmd(client),
		estateCmd(client),
		depositCmd(client),
		historyCmd(client),
	)

	if err := root.Execute(); err != nil {
		printError(err)
		os.Exit(1)
	}
}

func cmdContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

func registerCmd(client *cli.Client) *cobra.Command {
	return &cobra.Command{
		Use:   "register <username>",
		Short: "Create an account and save it locally",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			ctx, cancel := cmdContext()
			defer cancel()
			user, err := client.Register(ctx, args[0])
			if err != nil {
				return err
			}
			if err := cli.SaveProfile(cli.Profile{UserID: user.ID, Username: user.Username}); err != nil {
				return err
			}
			printSuccess("welcome, %s", user.Username)
			printBalance(user.Balance)
			return nil
		},
	}
}

func whoamiCmd(client *cli.Client) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the saved account and its balance",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			profile, err := cli.LoadProfile()
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext()
			defer cancel()
			user, err := client.GetUser(ctx, profile.UserID)
			if err != nil {
				return err
			}
			fmt.Printf("%s (id %d)\n", user.Username, user.ID)
			printBalance(user.Balance)
			return nil
		},
	}
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved account",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if err := cli.ClearProfile(); err != nil {
				return err
			}
			printSuccess("profile cleared")
			return nil
		},
	}
}

func marketCmd(client *cli.Client) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "market",
		Short: "Browse and trade marketplace items",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "Show unsold items",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, cancel := cmdContext()
			defer cancel()
			items, err := client.ListMarket(ctx)
			if err != nil {
				return err
			}
			renderMarket(items)
			return nil
		},
	}

	var sellPrice int64
	var sellDescription string
	sell := &cobra.Command{
		Use:   "sell <name>",
		Short: "Put an item up for sale",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			profile, err := cli.LoadProfile()
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext()
			defer cancel()
			listing, err := client.SellMarket(ctx, profile.UserID, args[0], sellPrice, sellDescription)
			if err != nil {
				return err
			}
			printSuccess("listed %q for %s (id %d)", listing.Name, formatMoney(listing.Price), listing.ID)
			return nil
		},
	}
	sell.Flags().Int64Var(&sellPrice, "price", 0, "asking price")
	sell.Flags().StringVar(&sellDescription, "description", "", "listing description")
	_ = sell.MarkFlagRequired("price")

	buy := &cobra.Command{
		Use:   "buy <listing-id>",
		Short: "Buy a marketplace item",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			profile, err := cli.LoadProfile()
			if err != nil {
				return err
			}
			listingID, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext()
			defer cancel()
			if err := client.BuyMarket(ctx, profile.UserID, listingID); err != nil {
				return err
			}
			printSuccess("purchase complete")
			return nil
		},
	}

	cmd.AddCommand(list, sell, buy)
	return cmd
}

func estateCmd(client *cli.Client) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "estate",
		Short: "Browse and trade real estate",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "Show unsold properties",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, cancel := cmdContext()
			defer cancel()
			properties, err := client.ListEstate(ctx)
			if err != nil {
				return err
			}
			renderEstate(properties)
			return nil
		},
	}

	var sellPrice int64
	var sellAddress string
	var sellRooms int32
	var sellArea float64
	sell := &cobra.Command{
		Use:   "sell <title>",
		Short: "Put a property up for sale",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			profile, err := cli.LoadProfile()
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext()
			defer cancel()
			listing, err := client.SellEstate(ctx, profile.UserID, args[0], sellPrice, sellAddress, sellRooms, sellArea)
			if err != nil {
				return err
			}
			printSuccess("listed %q for %s (id %d)", listing.Title, formatMoney(listing.Price), listing.ID)
			return nil
		},
	}
	sell.Flags().Int64Var(&sellPrice, "price", 0, "asking price")
	sell.Flags().StringVar(&sellAddress, "address", "", "property address")
	sell.Flags().Int32Var(&sellRooms, "rooms", 1, "number of rooms")
	sell.Flags().Float64Var(&sellArea, "area", 0, "area in square meters")
	_ = sell.MarkFlagRequired("price")

	buy := &cobra.Command{
		Use:   "buy <listing-id>",
		Short: "Buy a property",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			profile, err := cli.LoadProfile()
			if err != nil {
				return err
			}
			listingID, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext()
			defer cancel()
			if err := client.BuyEstate(ctx, profile.UserID, listingID); err != nil {
				return err
			}
			printSuccess("purchase complete")
			return nil
		},
	}

	cmd.AddCommand(list, sell, buy)
	return cmd
}

func depositCmd(client *cli.Client) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deposit",
		Short: "Manage fixed-term deposits",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "Show your deposits",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			profile, err := cli.LoadProfile()
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext()
			defer cancel()
			deposits, err := client.ListDeposits(ctx, profile.UserID)
			if err != nil {
				return err
			}
			renderDeposits(deposits)
			return nil
		},
	}

	var amount int64
	var rate float64
	var termMonths int32
	open := &cobra.Command{
		Use:   "open <name>",
		Short: "Open a fixed-term deposit",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			profile, err := cli.LoadProfile()
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext()
			defer cancel()
			dep, err := client.OpenDeposit(ctx, profile.UserID, args[0], amount, rate, termMonths)
			if err != nil {
				return err
			}
			printSuccess("opened %q: %s at %.2f%% until %s",
				dep.Name, formatMoney(dep.Amount), dep.Rate, dep.ExpiresAt.Format("2006-01-02"))
			return nil
		},
	}
	open.Flags().Int64Var(&amount, "amount", 0, "deposit amount")
	open.Flags().Float64Var(&rate, "rate", 0, "annual rate percent")
	open.Flags().Int32Var(&termMonths, "term", 0, "term in months")
	_ = open.MarkFlagRequired("amount")
	_ = open.MarkFlagRequired("term")

	cmd.AddCommand(list, open)
	return cmd
}

func historyCmd(client *cli.Client) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show your transaction history",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			profile, err := cli.LoadProfile()
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext()
			defer cancel()
			txs, err := client.ListTransactions(ctx, profile.UserID)
			if err != nil {
				return err
			}
			renderHistory(profile.UserID, txs)
			return nil
		},
	}
}
