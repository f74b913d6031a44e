package repository

import (
	"auction-market/internal/auctionerrors"
	model "auction-market/internal/models"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"modernc.org/sqlite"
)

const (
	driverPostgres = "postgres"
	driverSQLite   = "sqlite"
)

const (
	accountColumns = "id, username, email, password_hash, image, created_at"
	auctionColumns = "id, owner_id, title, description, image, start_at, end_at, status, winning_bid_id, created_at, updated_at"
	bidColumns     = "seq, id, auction_id, bidder_id, item_name, item_description, item_image, created_at"
)

// SQLRepo implements AuctionDB on top of Postgres or SQLite through sqlx
type SQLRepo struct {
	db *sqlx.DB
}

// NewSQLRepo wraps an open connection; the dialect is taken from its driver name
func NewSQLRepo(db *sqlx.DB) *SQLRepo {
	return &SQLRepo{db: db}
}

// OpenPostgres connects to Postgres and configures the connection pool
func OpenPostgres(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, driverPostgres, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)
	return db, nil
}

// OpenSQLite opens an embedded SQLite database. Writes are serialized over a single connection.
func OpenSQLite(ctx context.Context, path string) (*sqlx.DB, error) {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	dsn := path + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"

	db, err := sqlx.ConnectContext(ctx, driverSQLite, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// Close releases the underlying connection pool
func (r *SQLRepo) Close() error {
	return r.db.Close()
}

// shareLock keeps a concurrent conditional close waiting until the reading transaction commits
func (r *SQLRepo) shareLock() string {
	if r.db.DriverName() == driverPostgres {
		return " FOR SHARE"
	}
	return ""
}

func (r *SQLRepo) storeError(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, auctionerrors.ErrNotFound)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			return fmt.Errorf("%s: %w", op, auctionerrors.ErrConflict)
		case "23503":
			return fmt.Errorf("%s: %w", op, auctionerrors.ErrNotFound)
		}
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		msg := liteErr.Error()
		switch {
		case strings.Contains(msg, "UNIQUE constraint failed"):
			return fmt.Errorf("%s: %w", op, auctionerrors.ErrConflict)
		case strings.Contains(msg, "FOREIGN KEY constraint failed"):
			return fmt.Errorf("%s: %w", op, auctionerrors.ErrNotFound)
		}
	}

	return fmt.Errorf("%s: %w: %w", op, auctionerrors.ErrStoreUnavailable, err)
}

// CreateAccount stores a new account, rejecting duplicate usernames and emails
func (r *SQLRepo) CreateAccount(ctx context.Context, account model.Account) error {
	query := r.db.Rebind(`INSERT INTO accounts (` + accountColumns + `) VALUES (?, ?, ?, ?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, query,
		account.AccountID, account.Username, account.Email, account.PasswordHash, account.Image, account.CreatedAt.UTC())
	if err != nil {
		return r.storeError("create account", err)
	}
	return nil
}

// GetAccount returns the account with the given ID
func (r *SQLRepo) GetAccount(ctx context.Context, accountID string) (model.Account, error) {
	var account model.Account
	query := r.db.Rebind(`SELECT ` + accountColumns + ` FROM accounts WHERE id = ?`)
	if err := r.db.GetContext(ctx, &account, query, accountID); err != nil {
		return model.Account{}, r.storeError("get account "+accountID, err)
	}
	return account, nil
}

// GetAccountByUsername looks an account up by its case-insensitive username
func (r *SQLRepo) GetAccountByUsername(ctx context.Context, username string) (model.Account, error) {
	var account model.Account
	query := r.db.Rebind(`SELECT ` + accountColumns + ` FROM accounts WHERE lower(username) = lower(?)`)
	if err := r.db.GetContext(ctx, &account, query, strings.TrimSpace(username)); err != nil {
		return model.Account{}, r.storeError("get account by username", err)
	}
	return account, nil
}

// UpdateAccount applies a patch to an account; unique indexes keep username and email unique
func (r *SQLRepo) UpdateAccount(ctx context.Context, accountID string, patch AccountPatch) (model.Account, error) {
	var (
		sets []string
		args []any
	)
	if patch.Username != nil {
		sets, args = append(sets, "username = ?"), append(args, *patch.Username)
	}
	if patch.Email != nil {
		sets, args = append(sets, "email = ?"), append(args, *patch.Email)
	}
	if patch.PasswordHash != nil {
		sets, args = append(sets, "password_hash = ?"), append(args, *patch.PasswordHash)
	}
	if patch.Image != nil {
		sets, args = append(sets, "image = ?"), append(args, *patch.Image)
	}
	if len(sets) == 0 {
		return r.GetAccount(ctx, accountID)
	}

	args = append(args, accountID)
	query := r.db.Rebind(`UPDATE accounts SET ` + strings.Join(sets, ", ") + ` WHERE id = ? RETURNING ` + accountColumns)

	var account model.Account
	if err := r.db.QueryRowxContext(ctx, query, args...).StructScan(&account); err != nil {
		return model.Account{}, r.storeError("update account "+accountID, err)
	}
	return account, nil
}

// CreateAuction stores a new auction
func (r *SQLRepo) CreateAuction(ctx context.Context, auction model.Auction) error {
	query := r.db.Rebind(`INSERT INTO auctions (` + auctionColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, query,
		auction.AuctionID, auction.OwnerID, auction.Title, auction.Description, auction.Image,
		auction.StartAt.UTC(), auction.EndAt.UTC(), auction.Status, auction.WinningBidID,
		auction.CreatedAt.UTC(), auction.UpdatedAt.UTC())
	if err != nil {
		return r.storeError("create auction", err)
	}
	return nil
}

// GetAuction returns the auction with the given ID
func (r *SQLRepo) GetAuction(ctx context.Context, auctionID string) (model.Auction, error) {
	var auction model.Auction
	query := r.db.Rebind(`SELECT ` + auctionColumns + ` FROM auctions WHERE id = ?`)
	if err := r.db.GetContext(ctx, &auction, query, auctionID); err != nil {
		return model.Auction{}, r.storeError("get auction "+auctionID, err)
	}
	return auction, nil
}

// FindAuctions returns the auctions matching filter, newest first
func (r *SQLRepo) FindAuctions(ctx context.Context, filter AuctionFilter) ([]model.Auction, error) {
	var (
		where []string
		args  []any
	)
	from := "auctions a"
	if filter.OwnerID != "" {
		where, args = append(where, "a.owner_id = ?"), append(args, filter.OwnerID)
	}
	if filter.Status != "" {
		where, args = append(where, "a.status = ?"), append(args, filter.Status)
	}
	if filter.WinnerBidderID != "" {
		from = "auctions a JOIN bids b ON b.id = a.winning_bid_id"
		where, args = append(where, "b.bidder_id = ?"), append(args, filter.WinnerBidderID)
	}

	cols := "a." + strings.ReplaceAll(auctionColumns, ", ", ", a.")
	query := `SELECT ` + cols + ` FROM ` + from
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY a.created_at DESC, a.id ASC`

	auctions := []model.Auction{}
	if err := r.db.SelectContext(ctx, &auctions, r.db.Rebind(query), args...); err != nil {
		return nil, r.storeError("find auctions", err)
	}
	return auctions, nil
}

// UpdateAuction applies patch in a single conditional statement
func (r *SQLRepo) UpdateAuction(ctx context.Context, auctionID string, patch AuctionPatch, cond AuctionCondition) (model.Auction, error) {
	var (
		sets []string
		args []any
	)
	if patch.Title != nil {
		sets, args = append(sets, "title = ?"), append(args, *patch.Title)
	}
	if patch.Description != nil {
		sets, args = append(sets, "description = ?"), append(args, *patch.Description)
	}
	if patch.Image != nil {
		sets, args = append(sets, "image = ?"), append(args, *patch.Image)
	}
	if patch.StartAt != nil {
		sets, args = append(sets, "start_at = ?"), append(args, patch.StartAt.UTC())
	}
	if patch.EndAt != nil {
		sets, args = append(sets, "end_at = ?"), append(args, patch.EndAt.UTC())
	}
	if patch.Status != nil {
		sets, args = append(sets, "status = ?"), append(args, *patch.Status)
	}
	if patch.WinningBidID != nil {
		sets, args = append(sets, "winning_bid_id = ?"), append(args, *patch.WinningBidID)
	}
	if !patch.UpdatedAt.IsZero() {
		sets, args = append(sets, "updated_at = ?"), append(args, patch.UpdatedAt.UTC())
	}
	if len(sets) == 0 {
		return r.GetAuction(ctx, auctionID)
	}

	where := []string{"id = ?"}
	args = append(args, auctionID)
	if cond.Status != "" {
		where, args = append(where, "status = ?"), append(args, cond.Status)
	}
	if cond.NoBids {
		where, args = append(where, "NOT EXISTS (SELECT 1 FROM bids WHERE bids.auction_id = ?)"), append(args, auctionID)
	}

	query := r.db.Rebind(`UPDATE auctions SET ` + strings.Join(sets, ", ") +
		` WHERE ` + strings.Join(where, " AND ") + ` RETURNING ` + auctionColumns)

	var auction model.Auction
	err := r.db.QueryRowxContext(ctx, query, args...).StructScan(&auction)
	if errors.Is(err, sql.ErrNoRows) {
		if _, getErr := r.GetAuction(ctx, auctionID); getErr != nil {
			return model.Auction{}, fmt.Errorf("update auction: %w", getErr)
		}
		return model.Auction{}, fmt.Errorf("update auction %s: %w", auctionID, auctionerrors.ErrConditionFailed)
	}
	if err != nil {
		return model.Auction{}, r.storeError("update auction "+auctionID, err)
	}
	return auction, nil
}

// DeleteAuction removes an auction together with all of its bids
func (r *SQLRepo) DeleteAuction(ctx context.Context, auctionID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return r.storeError("delete auction: begin", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, r.db.Rebind(`DELETE FROM bids WHERE auction_id = ?`), auctionID); err != nil {
		return r.storeError("delete auction bids", err)
	}

	res, err := tx.ExecContext(ctx, r.db.Rebind(`DELETE FROM auctions WHERE id = ?`), auctionID)
	if err != nil {
		return r.storeError("delete auction "+auctionID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return r.storeError("delete auction "+auctionID, err)
	}
	if affected == 0 {
		return fmt.Errorf("delete auction %s: %w", auctionID, auctionerrors.ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return r.storeError("delete auction: commit", err)
	}
	return nil
}

// CreateBid records a bid if, at write time, its auction is open and bid.CreatedAt
// falls inside the auction window
func (r *SQLRepo) CreateBid(ctx context.Context, bid model.Bid) (model.Bid, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return model.Bid{}, r.storeError("record bid: begin", err)
	}
	defer tx.Rollback()

	var auction model.Auction
	query := r.db.Rebind(`SELECT ` + auctionColumns + ` FROM auctions WHERE id = ?` + r.shareLock())
	if err := tx.GetContext(ctx, &auction, query, bid.AuctionID); err != nil {
		return model.Bid{}, r.storeError("record bid for auction "+bid.AuctionID, err)
	}
	if !auction.AcceptsBidsAt(bid.CreatedAt) {
		return model.Bid{}, fmt.Errorf("record bid for auction %s: %w", bid.AuctionID, auctionerrors.ErrAuctionClosed)
	}

	insert := r.db.Rebind(`INSERT INTO bids (id, auction_id, bidder_id, item_name, item_description, item_image, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)
        RETURNING seq`)
	err = tx.QueryRowxContext(ctx, insert,
		bid.BidID, bid.AuctionID, bid.BidderID, bid.ItemName, bid.ItemDescription, bid.ItemImage, bid.CreatedAt.UTC()).
		Scan(&bid.Seq)
	if err != nil {
		return model.Bid{}, r.storeError("record bid for auction "+bid.AuctionID, err)
	}

	if err := tx.Commit(); err != nil {
		return model.Bid{}, r.storeError("record bid: commit", err)
	}
	return bid, nil
}

// GetBid returns the bid with the given ID
func (r *SQLRepo) GetBid(ctx context.Context, bidID string) (model.Bid, error) {
	var bid model.Bid
	query := r.db.Rebind(`SELECT ` + bidColumns + ` FROM bids WHERE id = ?`)
	if err := r.db.GetContext(ctx, &bid, query, bidID); err != nil {
		return model.Bid{}, r.storeError("get bid "+bidID, err)
	}
	return bid, nil
}

// FindBids returns bids matching filter ordered by insertion
func (r *SQLRepo) FindBids(ctx context.Context, filter BidFilter) ([]model.Bid, error) {
	where := []string{"seq > ?"}
	args := []any{filter.AfterSeq}
	if filter.AuctionID != "" {
		where, args = append(where, "auction_id = ?"), append(args, filter.AuctionID)
	}
	if filter.BidderID != "" {
		where, args = append(where, "bidder_id = ?"), append(args, filter.BidderID)
	}

	query := `SELECT ` + bidColumns + ` FROM bids WHERE ` + strings.Join(where, " AND ") + ` ORDER BY seq ASC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	bids := []model.Bid{}
	if err := r.db.SelectContext(ctx, &bids, r.db.Rebind(query), args...); err != nil {
		return nil, r.storeError("find bids", err)
	}
	return bids, nil
}

// CountBids returns how many bids an auction has received
func (r *SQLRepo) CountBids(ctx context.Context, auctionID string) (int, error) {
	var count int
	query := r.db.Rebind(`SELECT COUNT(1) FROM bids WHERE auction_id = ?`)
	if err := r.db.GetContext(ctx, &count, query, auctionID); err != nil {
		return 0, r.storeError("count bids", err)
	}
	return count, nil
}
