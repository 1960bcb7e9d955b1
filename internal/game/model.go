package game

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

const (
	// StarterBalance is credited to every registered player.
	StarterBalance = int64(170_000)

	// Synthetic shoppers arrive with a random balance in this range.
	ShopperBalanceMin = int64(50_000)
	ShopperBalanceMax = int64(500_000)
)

var (
	// ErrInvalidInput marks caller mistakes; the API maps it to 400.
	ErrInvalidInput = errors.New("invalid input")

	ErrListingUnavailable   = errors.New("listing not available")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrUserNotFound         = errors.New("user not found")
	ErrUsernameTaken        = errors.New("username already taken")
	ErrBuyerMissing         = errors.New("buyer account missing")
	ErrDuplicateIdempotency = errors.New("duplicate idempotency key")
	ErrTxConflict           = errors.New("transaction conflict, retry")
)

// ListingKind selects which listing table a settlement runs against.
type ListingKind string

const (
	KindMarket ListingKind = "market"
	KindEstate ListingKind = "estate"
)

func (k ListingKind) Valid() bool {
	return k == KindMarket || k == KindEstate
}

// Transaction-log kinds, one per successful settlement.
const (
	TxMarketplacePurchase = "marketplace_purchase"
	TxRealEstatePurchase  = "realestate_purchase"
	TxBotPurchase         = "bot_purchase"
)

// TxKindFor returns the transaction-log kind for a settlement. Bot
// purchases are logged under a single kind regardless of listing table.
func TxKindFor(kind ListingKind, bot bool) string {
	if bot {
		return TxBotPurchase
	}
	if kind == KindEstate {
		return TxRealEstatePurchase
	}
	return TxMarketplacePurchase
}

var usernameRE = regexp.MustCompile(`^[a-zA-Z0-9_]{3,32}$`)

func ValidateUsername(username string) error {
	if !usernameRE.MatchString(strings.TrimSpace(username)) {
		return fmt.Errorf("%w: username must be 3-32 letters, digits or underscores", ErrInvalidInput)
	}
	return nil
}

type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Balance   int64     `json:"balance"`
	IsBot     bool      `json:"is_bot"`
	CreatedAt time.Time `json:"created_at"`
}

type MarketListing struct {
	ID          int64     `json:"id"`
	SellerID    int64     `json:"seller_id"`
	SellerName  string    `json:"seller_name,omitempty"`
	Name        string    `json:"name"`
	Price       int64     `json:"price"`
	Description string    `json:"description"`
	ImageURL    string    `json:"image_url"`
	IsSold      bool      `json:"is_sold"`
	CreatedAt   time.Time `json:"created_at"`
}

type EstateListing struct {
	ID          int64     `json:"id"`
	SellerID    int64     `json:"seller_id"`
	SellerName  string    `json:"seller_name,omitempty"`
	Title       string    `json:"title"`
	Price       int64     `json:"price"`
	Address     string    `json:"address"`
	Rooms       int32     `json:"rooms"`
	Area        float64   `json:"area"`
	Description string    `json:"description"`
	ImageURL    string    `json:"image_url"`
	IsSold      bool      `json:"is_sold"`
	CreatedAt   time.Time `json:"created_at"`
}

type Deposit struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	Name       string    `json:"deposit_name"`
	Amount     int64     `json:"amount"`
	Rate       float64   `json:"rate"`
	TermMonths int32     `json:"term_months"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Transaction is one append-only ledger row. Rows are never mutated
// or deleted after insert.
type Transaction struct {
	ID          int64     `json:"id"`
	FromUserID  int64     `json:"from_user_id"`
	ToUserID    int64     `json:"to_user_id"`
	Amount      int64     `json:"amount"`
	Kind        string    `json:"type"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewMarketListing validates caller input before it reaches the store.
func NewMarketListing(sellerID int64, name string, price int64, description, imageURL string) (MarketListing, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return MarketListing{}, fmt.Errorf("%w: product name is required", ErrInvalidInput)
	}
	if price <= 0 {
		return MarketListing{}, fmt.Errorf("%w: price must be > 0", ErrInvalidInput)
	}
	if sellerID <= 0 {
		return MarketListing{}, fmt.Errorf("%w: seller id is required", ErrInvalidInput)
	}
	return MarketListing{
		SellerID:    sellerID,
		Name:        name,
		Price:       price,
		Description: strings.TrimSpace(description),
		ImageURL:    strings.TrimSpace(imageURL),
	}, nil
}

func NewEstateListing(sellerID int64, title string, price int64, address string, rooms int32, area float64, description, imageURL string) (EstateListing, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return EstateListing{}, fmt.Errorf("%w: property title is required", ErrInvalidInput)
	}
	if price <= 0 {
		return EstateListing{}, fmt.Errorf("%w: price must be > 0", ErrInvalidInput)
	}
	if sellerID <= 0 {
		return EstateListing{}, fmt.Errorf("%w: seller id is required", ErrInvalidInput)
	}
	if rooms <= 0 {
		rooms = 1
	}
	if area < 0 {
		area = 0
	}
	return EstateListing{
		SellerID:    sellerID,
		Title:       title,
		Price:       price,
		Address:     strings.TrimSpace(address),
		Rooms:       rooms,
		Area:        area,
		Description: strings.TrimSpace(description),
		ImageURL:    strings.TrimSpace(imageURL),
	}, nil
}

func NewDeposit(userID int64, name string, amount int64, rate float64, termMonths int32, now time.Time) (Deposit, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Deposit{}, fmt.Errorf("%w: deposit name is required", ErrInvalidInput)
	}
	if amount <= 0 {
		return Deposit{}, fmt.Errorf("%w: amount must be > 0", ErrInvalidInput)
	}
	if rate < 0 {
		return Deposit{}, fmt.Errorf("%w: rate must be >= 0", ErrInvalidInput)
	}
	if termMonths <= 0 {
		return Deposit{}, fmt.Errorf("%w: term must be at least 1 month", ErrInvalidInput)
	}
	if userID <= 0 {
		return Deposit{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	return Deposit{
		UserID:     userID,
		Name:       name,
		Amount:     amount,
		Rate:       rate,
		TermMonths: termMonths,
		CreatedAt:  now,
		ExpiresAt:  now.AddDate(0, int(termMonths), 0),
	}, nil
}
