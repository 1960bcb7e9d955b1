package main

import (
	"fmt"
	"strconv"
	"strings"

	"pocketbank/internal/game"

	"github.com/fatih/color"
)

var (
	successColor = color.New(color.FgGreen)
	errorColor   = color.New(color.FgRed, color.Bold)
	headerColor  = color.New(color.FgCyan, color.Bold)
	moneyColor   = color.New(color.FgYellow)
	mutedColor   = color.New(color.FgHiBlack)
)

func printSuccess(format string, args ...any) {
	successColor.Printf(format+"\n", args...)
}

func printError(err error) {
	errorColor.Fprintf(color.Error, "error: %v\n", err)
}

func printBalance(balance int64) {
	fmt.Printf("balance: %s\n", moneyColor.Sprint(formatMoney(balance)))
}

// formatMoney groups thousands: 170000 -> "170,000".
func formatMoney(amount int64) string {
	s := strconv.FormatInt(amount, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, ch := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(ch)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func renderMarket(items []game.MarketListing) {
	if len(items) == 0 {
		mutedColor.Println("nothing for sale")
		return
	}
	headerColor.Println("marketplace")
	for _, item := range items {
		fmt.Printf("  #%-5d %-30s %12s  by %s\n",
			item.ID, truncate(item.Name, 30), moneyColor.Sprint(formatMoney(item.Price)), item.SellerName)
		if item.Description != "" {
			mutedColor.Printf("         %s\n", truncate(item.Description, 70))
		}
	}
}

func renderEstate(properties []game.EstateListing) {
	if len(properties) == 0 {
		mutedColor.Println("nothing for sale")
		return
	}
	headerColor.Println("real estate")
	for _, p := range properties {
		fmt.Printf("  #%-5d %-30s %12s  %d rooms, %.1f m²  by %s\n",
			p.ID, truncate(p.Title, 30), moneyColor.Sprint(formatMoney(p.Price)), p.Rooms, p.Area, p.SellerName)
		if p.Address != "" {
			mutedColor.Printf("         %s\n", truncate(p.Address, 70))
		}
	}
}

func renderDeposits(deposits []game.Deposit) {
	if len(deposits) == 0 {
		mutedColor.Println("no deposits")
		return
	}
	headerColor.Println("deposits")
	for _, d := range deposits {
		fmt.Printf("  #%-5d %-24s %12s  %.2f%%  until %s\n",
			d.ID, truncate(d.Name, 24), moneyColor.Sprint(formatMoney(d.Amount)), d.Rate,
			d.ExpiresAt.Format("2006-01-02"))
	}
}

func renderHistory(userID int64, txs []game.Transaction) {
	if len(txs) == 0 {
		mutedColor.Println("no transactions")
		return
	}
	headerColor.Println("history")
	for _, tx := range txs {
		direction := "-"
		if tx.ToUserID == userID {
			direction = "+"
		}
		fmt.Printf("  %s  %s%12s  %-22s %s\n",
			tx.CreatedAt.Format("2006-01-02 15:04"), direction,
			moneyColor.Sprint(formatMoney(tx.Amount)), tx.Kind, truncate(tx.Description, 40))
	}
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
