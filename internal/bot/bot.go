// Package bot generates synthetic marketplace demand: it samples idle
// listings on a schedule and drives manufactured buyers through the
// same settlement path human purchases use.
package bot

import (
	"context"
	"log/slog"
	"sync"

	"pocketbank/internal/game"
	"pocketbank/internal/metrics"

	"github.com/google/uuid"
)

const (
	// Per-cycle sample sizes bound the bot's load per invocation.
	MarketSampleSize = 3
	EstateSampleSize = 2

	// Independent buy probability per sampled candidate.
	MarketBuyProbability = 0.3
	EstateBuyProbability = 0.2
)

// Store is the slice of the game service the bot needs. *game.Service
// implements it; tests use a scripted fake.
type Store interface {
	SampleMarketListings(ctx context.Context, limit int) ([]game.MarketListing, error)
	SampleEstateListings(ctx context.Context, limit int) ([]game.EstateListing, error)
	SpawnShopper(ctx context.Context) (game.User, error)
	Settle(ctx context.Context, in game.SettleInput) (game.SettleResult, error)
}

// Rand supplies the probability rolls. *math/rand.Rand satisfies it.
type Rand interface {
	Float64() float64
}

type Bot struct {
	store Store
	log   *slog.Logger
	mu    sync.Mutex
	rand  Rand
}

func New(store Store, rnd Rand, logger *slog.Logger) *Bot {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bot{
		store: store,
		log:   logger,
		rand:  rnd,
	}
}

// RunCycle performs one pass of synthetic demand and returns the number
// of purchases that committed. Failures on one candidate (spawn error,
// lost race, thin wallet) skip that candidate only; the cycle continues.
func (b *Bot) RunCycle(ctx context.Context) (int, error) {
	purchases := 0

	items, err := b.store.SampleMarketListings(ctx, MarketSampleSize)
	if err != nil {
		return purchases, err
	}
	for _, item := range items {
		if b.roll() >= MarketBuyProbability {
			continue
		}
		if b.buy(ctx, item.ID, game.KindMarket, item.Price, item.Name) {
			purchases++
		}
	}

	parcels, err := b.store.SampleEstateListings(ctx, EstateSampleSize)
	if err != nil {
		return purchases, err
	}
	for _, parcel := range parcels {
		if b.roll() >= EstateBuyProbability {
			continue
		}
		if b.buy(ctx, parcel.ID, game.KindEstate, parcel.Price, parcel.Title) {
			purchases++
		}
	}

	metrics.RecordBotCycle(purchases)
	return purchases, nil
}

func (b *Bot) buy(ctx context.Context, listingID int64, kind game.ListingKind, price int64, title string) bool {
	shopper, err := b.store.SpawnShopper(ctx)
	if err != nil {
		b.log.Warn("shopper spawn failed, skipping candidate", "listing_id", listingID, "err", err)
		return false
	}
	if shopper.Balance < price {
		return false
	}
	_, err = b.store.Settle(ctx, game.SettleInput{
		BuyerID:        shopper.ID,
		ListingID:      listingID,
		Kind:           kind,
		Bot:            true,
		IdempotencyKey: uuid.NewString(),
	})
	if err != nil {
		b.log.Warn("bot settlement failed, skipping candidate",
			"listing_id", listingID, "kind", string(kind), "err", err)
		return false
	}
	metrics.RecordSettlement(game.TxBotPurchase, "ok")
	b.log.Info("bot purchase", "listing_id", listingID, "title", title, "amount", price, "buyer", shopper.Username)
	return true
}

func (b *Bot) roll() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rand.Float64()
}
