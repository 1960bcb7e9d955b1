package game

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Settle atomically transfers one listing from seller to buyer:
// availability check, funds check, symmetric balance transfer, sold-flag
// flip and transaction-log append all commit or roll back together.
// Human and bot purchases run through this same path.
func (s *Service) Settle(ctx context.Context, in SettleInput) (SettleResult, error) {
	var out SettleResult
	if !in.Kind.Valid() {
		return out, fmt.Errorf("%w: unknown listing kind %q", ErrInvalidInput, in.Kind)
	}
	if in.BuyerID <= 0 {
		return out, fmt.Errorf("%w: buyer id is required", ErrInvalidInput)
	}
	if in.ListingID <= 0 {
		return out, fmt.Errorf("%w: listing id is required", ErrInvalidInput)
	}

	const maxAttempts = 8
	retryDelay := 75 * time.Millisecond
	for attempt := 0; attempt < maxAttempts; attempt++ {
		tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
		if err != nil {
			return out, err
		}
		err = func() error {
			defer tx.Rollback(ctx)

			if err := claimIdempotency(ctx, tx, in.BuyerID, in.IdempotencyKey, "settle"); err != nil {
				return err
			}

			listing, err := lockUnsoldListing(ctx, tx, in.Kind, in.ListingID)
			if err != nil {
				return err
			}

			var balance int64
			if err := tx.QueryRow(ctx, `
				SELECT balance
				FROM users
				WHERE id = $1
				FOR UPDATE
			`, in.BuyerID).Scan(&balance); err != nil {
				if err == pgx.ErrNoRows {
					return ErrBuyerMissing
				}
				return err
			}
			if balance < listing.price {
				return ErrInsufficientFunds
			}

			if _, err := tx.Exec(ctx, `
				UPDATE users SET balance = balance - $1 WHERE id = $2
			`, listing.price, in.BuyerID); err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, `
				UPDATE users SET balance = balance + $1 WHERE id = $2
			`, listing.price, listing.sellerID); err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, listing.markSoldSQL, in.ListingID); err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, `
				INSERT INTO transactions (from_user_id, to_user_id, amount, type, description)
				VALUES ($1, $2, $3, $4, $5)
			`, in.BuyerID, listing.sellerID, listing.price, TxKindFor(in.Kind, in.Bot), listing.title); err != nil {
				return err
			}

			out.SellerID = listing.sellerID
			out.Price = listing.price
			out.Description = listing.title
			out.BuyerBalance = balance - listing.price
			return tx.Commit(ctx)
		}()
		if err == nil {
			s.log.Info("settlement committed",
				"kind", TxKindFor(in.Kind, in.Bot),
				"listing_id", in.ListingID,
				"buyer_id", in.BuyerID,
				"seller_id", out.SellerID,
				"amount", out.Price,
			)
			return out, nil
		}
		if !isSerializationError(err) {
			return out, err
		}
		if attempt == maxAttempts-1 {
			return out, ErrTxConflict
		}
		if err := sleepWithContext(ctx, retryDelay); err != nil {
			return out, err
		}
		if retryDelay < 1200*time.Millisecond {
			retryDelay *= 2
		}
	}

	return out, ErrTxConflict
}

type lockedListing struct {
	sellerID    int64
	price       int64
	title       string
	markSoldSQL string
}

// lockUnsoldListing reads the listing row with is_sold=false under FOR
// UPDATE. A missing row means the listing never existed or sold already;
// callers are not told which.
func lockUnsoldListing(ctx context.Context, tx pgx.Tx, kind ListingKind, listingID int64) (lockedListing, error) {
	var l lockedListing
	var query string
	switch kind {
	case KindMarket:
		query = `
			SELECT seller_id, price, name
			FROM market_listings
			WHERE id = $1 AND is_sold = false
			FOR UPDATE
		`
		l.markSoldSQL = `UPDATE market_listings SET is_sold = true WHERE id = $1`
	case KindEstate:
		query = `
			SELECT seller_id, price, title
			FROM estate_listings
			WHERE id = $1 AND is_sold = false
			FOR UPDATE
		`
		l.markSoldSQL = `UPDATE estate_listings SET is_sold = true WHERE id = $1`
	}
	if err := tx.QueryRow(ctx, query, listingID).Scan(&l.sellerID, &l.price, &l.title); err != nil {
		if err == pgx.ErrNoRows {
			return l, ErrListingUnavailable
		}
		return l, err
	}
	return l, nil
}

func claimIdempotency(ctx context.Context, tx pgx.Tx, userID int64, key, action string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("idempotency key is required")
	}
	cmd, err := tx.Exec(ctx, `
		INSERT INTO idempotency_keys (user_id, key, action, created_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (user_id, key) DO NOTHING
	`, userID, key, action)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrDuplicateIdempotency
	}
	return nil
}

func isSerializationError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "40001"
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
