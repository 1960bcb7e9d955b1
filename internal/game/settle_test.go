package game

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// fakeDB hands out scripted transactions, one per settlement attempt.
type fakeDB struct {
	txs []*fakeTx
	i   int
}

func (d *fakeDB) BeginTx(context.Context, pgx.TxOptions) (pgx.Tx, error) {
	if d.i >= len(d.txs) {
		return nil, errors.New("no transaction scripted for this attempt")
	}
	tx := d.txs[d.i]
	d.i++
	return tx, nil
}

func (d *fakeDB) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errors.New("not scripted")
}

func (d *fakeDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not scripted")
}

func (d *fakeDB) QueryRow(context.Context, string, ...any) pgx.Row {
	return errRow{errors.New("not scripted")}
}

type execCall struct {
	sql  string
	args []any
}

// fakeTx scripts the row reads Settle performs and records every write.
// The embedded interface covers the pgx.Tx surface the engine never
// touches.
type fakeTx struct {
	pgx.Tx

	sellerID    int64
	price       int64
	title       string
	balance     int64
	listingGone bool
	buyerGone   bool
	keyClaimed  bool
	commitErr   error

	execs      []execCall
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	t.execs = append(t.execs, execCall{sql: sql, args: args})
	if strings.Contains(sql, "idempotency_keys") && t.keyClaimed {
		return pgconn.NewCommandTag("INSERT 0 0"), nil
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (t *fakeTx) QueryRow(_ context.Context, sql string, _ ...any) pgx.Row {
	switch {
	case strings.Contains(sql, "market_listings"), strings.Contains(sql, "estate_listings"):
		if t.listingGone {
			return errRow{pgx.ErrNoRows}
		}
		return scanRow{vals: []any{t.sellerID, t.price, t.title}}
	case strings.Contains(sql, "FROM users"):
		if t.buyerGone {
			return errRow{pgx.ErrNoRows}
		}
		return scanRow{vals: []any{t.balance}}
	}
	return errRow{errors.New("unexpected query: " + sql)}
}

func (t *fakeTx) Commit(context.Context) error {
	if t.commitErr != nil {
		return t.commitErr
	}
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	t.rolledBack = true
	return nil
}

type errRow struct{ err error }

func (r errRow) Scan(...any) error { return r.err }

type scanRow struct{ vals []any }

func (r scanRow) Scan(dest ...any) error {
	for i, d := range dest {
		switch p := d.(type) {
		case *int64:
			*p = r.vals[i].(int64)
		case *string:
			*p = r.vals[i].(string)
		default:
			return errors.New("scanRow: unsupported dest")
		}
	}
	return nil
}

func (t *fakeTx) execsMatching(fragment string) []execCall {
	var out []execCall
	for _, c := range t.execs {
		if strings.Contains(c.sql, fragment) {
			out = append(out, c)
		}
	}
	return out
}

func settleInput(kind ListingKind) SettleInput {
	return SettleInput{
		BuyerID:        7,
		ListingID:      5,
		Kind:           kind,
		IdempotencyKey: "key-1",
	}
}

func TestSettleTransfersAtomically(t *testing.T) {
	tx := &fakeTx{sellerID: 2, price: 400, title: "Lamp", balance: 1000}
	svc := NewService(&fakeDB{txs: []*fakeTx{tx}}, nil)

	out, err := svc.Settle(context.Background(), settleInput(KindMarket))
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if out.SellerID != 2 || out.Price != 400 || out.Description != "Lamp" {
		t.Errorf("result = %+v", out)
	}
	if out.BuyerBalance != 600 {
		t.Errorf("BuyerBalance = %d, want 600", out.BuyerBalance)
	}
	if !tx.committed {
		t.Fatal("transaction not committed")
	}

	debits := tx.execsMatching("balance - ")
	credits := tx.execsMatching("balance + ")
	if len(debits) != 1 || len(credits) != 1 {
		t.Fatalf("debits = %d, credits = %d, want exactly one each", len(debits), len(credits))
	}
	if debits[0].args[0].(int64) != credits[0].args[0].(int64) {
		t.Errorf("debit %v != credit %v, money not conserved", debits[0].args[0], credits[0].args[0])
	}
	if debits[0].args[1].(int64) != 7 || credits[0].args[1].(int64) != 2 {
		t.Errorf("debit hit user %v, credit hit user %v", debits[0].args[1], credits[0].args[1])
	}

	if sold := tx.execsMatching("is_sold = true"); len(sold) != 1 || sold[0].args[0].(int64) != 5 {
		t.Errorf("sold-flag flips = %+v, want one for listing 5", sold)
	}

	logs := tx.execsMatching("INSERT INTO transactions")
	if len(logs) != 1 {
		t.Fatalf("ledger inserts = %d, want 1", len(logs))
	}
	args := logs[0].args
	if args[0].(int64) != 7 || args[1].(int64) != 2 || args[2].(int64) != 400 {
		t.Errorf("ledger row args = %v", args)
	}
	if args[3].(string) != TxMarketplacePurchase || args[4].(string) != "Lamp" {
		t.Errorf("ledger kind/description = %v, %v", args[3], args[4])
	}
}

func TestSettleBotPurchaseLedgerKind(t *testing.T) {
	tx := &fakeTx{sellerID: 2, price: 400, title: "Flat", balance: 1000}
	svc := NewService(&fakeDB{txs: []*fakeTx{tx}}, nil)

	in := settleInput(KindEstate)
	in.Bot = true
	if _, err := svc.Settle(context.Background(), in); err != nil {
		t.Fatalf("Settle: %v", err)
	}
	logs := tx.execsMatching("INSERT INTO transactions")
	if len(logs) != 1 || logs[0].args[3].(string) != TxBotPurchase {
		t.Errorf("ledger inserts = %+v, want one with bot kind", logs)
	}
}

func TestSettleSoldListingLeavesNoTrace(t *testing.T) {
	tx := &fakeTx{listingGone: true}
	svc := NewService(&fakeDB{txs: []*fakeTx{tx}}, nil)

	_, err := svc.Settle(context.Background(), settleInput(KindMarket))
	if !errors.Is(err, ErrListingUnavailable) {
		t.Fatalf("err = %v, want ErrListingUnavailable", err)
	}
	if tx.committed {
		t.Error("transaction committed on unavailable listing")
	}
	if !tx.rolledBack {
		t.Error("transaction not rolled back")
	}
	if got := tx.execsMatching("balance"); len(got) != 0 {
		t.Errorf("balance writes = %+v, want none", got)
	}
}

func TestSettleInsufficientFundsLeavesNoTrace(t *testing.T) {
	tx := &fakeTx{sellerID: 2, price: 400, title: "Lamp", balance: 100}
	svc := NewService(&fakeDB{txs: []*fakeTx{tx}}, nil)

	_, err := svc.Settle(context.Background(), settleInput(KindMarket))
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("err = %v, want ErrInsufficientFunds", err)
	}
	if tx.committed {
		t.Error("transaction committed on insufficient funds")
	}
	if got := tx.execsMatching("balance"); len(got) != 0 {
		t.Errorf("balance writes = %+v, want none", got)
	}
	if got := tx.execsMatching("is_sold"); len(got) != 0 {
		t.Errorf("sold-flag writes = %+v, want none", got)
	}
}

func TestSettleMissingBuyer(t *testing.T) {
	tx := &fakeTx{sellerID: 2, price: 400, title: "Lamp", buyerGone: true}
	svc := NewService(&fakeDB{txs: []*fakeTx{tx}}, nil)

	_, err := svc.Settle(context.Background(), settleInput(KindMarket))
	if !errors.Is(err, ErrBuyerMissing) {
		t.Fatalf("err = %v, want ErrBuyerMissing", err)
	}
	if tx.committed {
		t.Error("transaction committed with missing buyer")
	}
}

func TestSettleDuplicateIdempotencyKey(t *testing.T) {
	tx := &fakeTx{sellerID: 2, price: 400, title: "Lamp", balance: 1000, keyClaimed: true}
	svc := NewService(&fakeDB{txs: []*fakeTx{tx}}, nil)

	_, err := svc.Settle(context.Background(), settleInput(KindMarket))
	if !errors.Is(err, ErrDuplicateIdempotency) {
		t.Fatalf("err = %v, want ErrDuplicateIdempotency", err)
	}
	if tx.committed {
		t.Error("transaction committed on replayed key")
	}
}

func TestSettleRetriesSerializationConflict(t *testing.T) {
	conflicted := &fakeTx{
		sellerID: 2, price: 400, title: "Lamp", balance: 1000,
		commitErr: &pgconn.PgError{Code: "40001"},
	}
	clean := &fakeTx{sellerID: 2, price: 400, title: "Lamp", balance: 1000}
	db := &fakeDB{txs: []*fakeTx{conflicted, clean}}
	svc := NewService(db, nil)

	out, err := svc.Settle(context.Background(), settleInput(KindMarket))
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if db.i != 2 {
		t.Errorf("attempts = %d, want 2", db.i)
	}
	if !clean.committed {
		t.Error("retry attempt not committed")
	}
	if out.BuyerBalance != 600 {
		t.Errorf("BuyerBalance = %d, want 600", out.BuyerBalance)
	}
}

func TestSettleRejectsBadInput(t *testing.T) {
	svc := NewService(&fakeDB{}, nil)

	cases := []SettleInput{
		{BuyerID: 7, ListingID: 5, Kind: "stocks", IdempotencyKey: "k"},
		{BuyerID: 0, ListingID: 5, Kind: KindMarket, IdempotencyKey: "k"},
		{BuyerID: 7, ListingID: 0, Kind: KindMarket, IdempotencyKey: "k"},
	}
	for _, in := range cases {
		_, err := svc.Settle(context.Background(), in)
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("Settle(%+v) err = %v, want ErrInvalidInput", in, err)
		}
	}
}
