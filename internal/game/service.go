package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	mathrand "math/rand"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the pgx surface the service uses. *pgxpool.Pool implements it;
// settlement tests substitute a scripted fake.
type DB interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// shopperNames is the fixed pool the demand bot draws display names from.
var shopperNames = []string{
	"Alexey", "Maria", "Dmitry", "Anna", "Sergey", "Elena",
	"Ivan", "Olga", "Andrey", "Natalia", "Mikhail", "Tatiana",
}

// Rand is the randomness the shopper generator needs. *math/rand.Rand
// satisfies it; tests supply scripted values.
type Rand interface {
	Intn(n int) int
	Int63n(n int64) int64
	Float64() float64
}

type Service struct {
	db   DB
	log  *slog.Logger
	mu   sync.Mutex
	rand *mathrand.Rand
}

func NewService(db DB, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		db:   db,
		log:  logger,
		rand: mathrand.New(mathrand.NewSource(time.Now().UnixNano())),
	}
}

func (s *Service) RegisterUser(ctx context.Context, username string) (User, error) {
	var u User
	username = strings.TrimSpace(username)
	if err := ValidateUsername(username); err != nil {
		return u, err
	}
	err := s.db.QueryRow(ctx, `
		INSERT INTO users (username, balance, is_bot)
		VALUES ($1, $2, false)
		RETURNING id, username, balance, is_bot, created_at
	`, username, StarterBalance).Scan(&u.ID, &u.Username, &u.Balance, &u.IsBot, &u.CreatedAt)
	if isUniqueViolation(err) {
		return u, ErrUsernameTaken
	}
	return u, err
}

func (s *Service) GetUser(ctx context.Context, userID int64) (User, error) {
	var u User
	err := s.db.QueryRow(ctx, `
		SELECT id, username, balance, is_bot, created_at
		FROM users
		WHERE id = $1
	`, userID).Scan(&u.ID, &u.Username, &u.Balance, &u.IsBot, &u.CreatedAt)
	if err == pgx.ErrNoRows {
		return u, ErrUserNotFound
	}
	return u, err
}

// SetBalance overwrites a user's balance. Administrative surface only;
// every game-driven movement goes through Settle.
func (s *Service) SetBalance(ctx context.Context, userID, balance int64) error {
	if balance < 0 {
		return fmt.Errorf("%w: balance must be >= 0", ErrInvalidInput)
	}
	cmd, err := s.db.Exec(ctx, `
		UPDATE users
		SET balance = $1
		WHERE id = $2
	`, balance, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *Service) CreateMarketListing(ctx context.Context, in CreateMarketListingInput) (MarketListing, error) {
	listing, err := NewMarketListing(in.SellerID, in.Name, in.Price, in.Description, in.ImageURL)
	if err != nil {
		return listing, err
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return listing, err
	}
	defer tx.Rollback(ctx)

	if err := claimIdempotency(ctx, tx, in.SellerID, in.IdempotencyKey, "create_market_listing"); err != nil {
		return listing, err
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO market_listings (seller_id, name, price, description, image_url)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, is_sold, created_at
	`, listing.SellerID, listing.Name, listing.Price, listing.Description, listing.ImageURL).
		Scan(&listing.ID, &listing.IsSold, &listing.CreatedAt)
	if isForeignKeyViolation(err) {
		return listing, ErrUserNotFound
	}
	if err != nil {
		return listing, err
	}
	return listing, tx.Commit(ctx)
}

func (s *Service) ListMarket(ctx context.Context) ([]MarketListing, error) {
	rows, err := s.db.Query(ctx, `
		SELECT ml.id, ml.seller_id, u.username, ml.name, ml.price,
		       ml.description, ml.image_url, ml.is_sold, ml.created_at
		FROM market_listings ml
		JOIN users u ON u.id = ml.seller_id
		WHERE ml.is_sold = false
		ORDER BY ml.created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]MarketListing, 0)
	for rows.Next() {
		var l MarketListing
		if err := rows.Scan(&l.ID, &l.SellerID, &l.SellerName, &l.Name, &l.Price,
			&l.Description, &l.ImageURL, &l.IsSold, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *Service) CreateEstateListing(ctx context.Context, in CreateEstateListingInput) (EstateListing, error) {
	listing, err := NewEstateListing(in.SellerID, in.Title, in.Price, in.Address, in.Rooms, in.Area, in.Description, in.ImageURL)
	if err != nil {
		return listing, err
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return listing, err
	}
	defer tx.Rollback(ctx)

	if err := claimIdempotency(ctx, tx, in.SellerID, in.IdempotencyKey, "create_estate_listing"); err != nil {
		return listing, err
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO estate_listings (seller_id, title, price, address, rooms, area, description, image_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, is_sold, created_at
	`, listing.SellerID, listing.Title, listing.Price, listing.Address, listing.Rooms,
		listing.Area, listing.Description, listing.ImageURL).
		Scan(&listing.ID, &listing.IsSold, &listing.CreatedAt)
	if isForeignKeyViolation(err) {
		return listing, ErrUserNotFound
	}
	if err != nil {
		return listing, err
	}
	return listing, tx.Commit(ctx)
}

func (s *Service) ListEstate(ctx context.Context) ([]EstateListing, error) {
	rows, err := s.db.Query(ctx, `
		SELECT el.id, el.seller_id, u.username, el.title, el.price, el.address,
		       el.rooms, el.area, el.description, el.image_url, el.is_sold, el.created_at
		FROM estate_listings el
		JOIN users u ON u.id = el.seller_id
		WHERE el.is_sold = false
		ORDER BY el.created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]EstateListing, 0)
	for rows.Next() {
		var l EstateListing
		if err := rows.Scan(&l.ID, &l.SellerID, &l.SellerName, &l.Title, &l.Price, &l.Address,
			&l.Rooms, &l.Area, &l.Description, &l.ImageURL, &l.IsSold, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *Service) CreateDeposit(ctx context.Context, in CreateDepositInput) (Deposit, error) {
	dep, err := NewDeposit(in.UserID, in.Name, in.Amount, in.Rate, in.TermMonths, time.Now())
	if err != nil {
		return dep, err
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return dep, err
	}
	defer tx.Rollback(ctx)

	if err := claimIdempotency(ctx, tx, in.UserID, in.IdempotencyKey, "create_deposit"); err != nil {
		return dep, err
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO deposits (user_id, deposit_name, amount, rate, term_months, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, dep.UserID, dep.Name, dep.Amount, dep.Rate, dep.TermMonths, dep.ExpiresAt).
		Scan(&dep.ID, &dep.CreatedAt)
	if isForeignKeyViolation(err) {
		return dep, ErrUserNotFound
	}
	if err != nil {
		return dep, err
	}
	return dep, tx.Commit(ctx)
}

func (s *Service) ListDeposits(ctx context.Context, userID int64) ([]Deposit, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, deposit_name, amount, rate, term_months, created_at, expires_at
		FROM deposits
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Deposit, 0)
	for rows.Next() {
		var d Deposit
		if err := rows.Scan(&d.ID, &d.UserID, &d.Name, &d.Amount, &d.Rate,
			&d.TermMonths, &d.CreatedAt, &d.ExpiresAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Service) ListTransactions(ctx context.Context, userID int64) ([]Transaction, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, from_user_id, to_user_id, amount, type, description, created_at
		FROM transactions
		WHERE from_user_id = $1 OR to_user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Transaction, 0)
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.FromUserID, &t.ToUserID, &t.Amount,
			&t.Kind, &t.Description, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// SampleMarketListings returns up to limit unsold items in random order.
// The bot uses this; no ordering guarantee is intended.
func (s *Service) SampleMarketListings(ctx context.Context, limit int) ([]MarketListing, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, seller_id, name, price, description, image_url, is_sold, created_at
		FROM market_listings
		WHERE is_sold = false
		ORDER BY random()
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MarketListing
	for rows.Next() {
		var l MarketListing
		if err := rows.Scan(&l.ID, &l.SellerID, &l.Name, &l.Price,
			&l.Description, &l.ImageURL, &l.IsSold, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *Service) SampleEstateListings(ctx context.Context, limit int) ([]EstateListing, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, seller_id, title, price, address, rooms, area,
		       description, image_url, is_sold, created_at
		FROM estate_listings
		WHERE is_sold = false
		ORDER BY random()
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EstateListing
	for rows.Next() {
		var l EstateListing
		if err := rows.Scan(&l.ID, &l.SellerID, &l.Title, &l.Price, &l.Address, &l.Rooms,
			&l.Area, &l.Description, &l.ImageURL, &l.IsSold, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// SpawnShopper creates a synthetic buyer account with a random name and
// balance. Name collisions surface as ErrUsernameTaken; the bot skips
// the candidate rather than retrying.
func (s *Service) SpawnShopper(ctx context.Context) (User, error) {
	s.mu.Lock()
	username, balance := ShopperProfile(s.rand)
	s.mu.Unlock()

	var u User
	err := s.db.QueryRow(ctx, `
		INSERT INTO users (username, balance, is_bot)
		VALUES ($1, $2, true)
		RETURNING id, username, balance, is_bot, created_at
	`, username, balance).Scan(&u.ID, &u.Username, &u.Balance, &u.IsBot, &u.CreatedAt)
	if isUniqueViolation(err) {
		return u, ErrUsernameTaken
	}
	return u, err
}

// ShopperProfile draws a synthetic buyer's username and balance from
// the given randomness source.
func ShopperProfile(rnd Rand) (username string, balance int64) {
	name := shopperNames[rnd.Intn(len(shopperNames))]
	suffix := 1000 + rnd.Intn(9000)
	username = fmt.Sprintf("bot_%s_%d", name, suffix)
	balance = ShopperBalanceMin + rnd.Int63n(ShopperBalanceMax-ShopperBalanceMin+1)
	return username, balance
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
