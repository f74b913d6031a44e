package repository

import (
	"auction-market/internal/auctionerrors"
	model "auction-market/internal/models"
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// AuctionDB defines the persistent store for accounts, auctions and bids
type AuctionDB interface {
	CreateAccount(ctx context.Context, account model.Account) error
	GetAccount(ctx context.Context, accountID string) (model.Account, error)
	GetAccountByUsername(ctx context.Context, username string) (model.Account, error)
	UpdateAccount(ctx context.Context, accountID string, patch AccountPatch) (model.Account, error)

	CreateAuction(ctx context.Context, auction model.Auction) error
	GetAuction(ctx context.Context, auctionID string) (model.Auction, error)
	FindAuctions(ctx context.Context, filter AuctionFilter) ([]model.Auction, error)
	UpdateAuction(ctx context.Context, auctionID string, patch AuctionPatch, cond AuctionCondition) (model.Auction, error)
	DeleteAuction(ctx context.Context, auctionID string) error

	CreateBid(ctx context.Context, bid model.Bid) (model.Bid, error)
	GetBid(ctx context.Context, bidID string) (model.Bid, error)
	FindBids(ctx context.Context, filter BidFilter) ([]model.Bid, error)
	CountBids(ctx context.Context, auctionID string) (int, error)
}

// AccountPatch lists the account fields to overwrite; nil fields are left untouched
type AccountPatch struct {
	Username     *string
	Email        *string
	PasswordHash *string
	Image        *string
}

// AuctionFilter selects auctions; zero fields match everything
type AuctionFilter struct {
	OwnerID string
	Status  model.AuctionStatus
	// WinnerBidderID matches closed auctions whose winning bid was placed by this account
	WinnerBidderID string
}

// AuctionPatch lists the auction fields to overwrite; nil fields are left untouched
type AuctionPatch struct {
	Title        *string
	Description  *string
	Image        *string
	StartAt      *time.Time
	EndAt        *time.Time
	Status       *model.AuctionStatus
	WinningBidID *string
	UpdatedAt    time.Time
}

// AuctionCondition must hold on the stored record at commit time for an update to apply
type AuctionCondition struct {
	Status model.AuctionStatus
	NoBids bool
}

// BidFilter selects bids in insertion order
type BidFilter struct {
	AuctionID string
	BidderID  string
	AfterSeq  int64
	Limit     int
}

// MemoryRepo is a concurrency-safe in-memory implementation of AuctionDB
type MemoryRepo struct {
	mu          sync.RWMutex
	accounts    map[string]model.Account // key: accountID
	usernames   map[string]string        // key: lowercased username -> accountID
	emails      map[string]string        // key: lowercased email -> accountID
	auctions    map[string]model.Auction // key: auctionID
	bids        map[string]model.Bid     // key: bidID
	auctionBids map[string][]string      // key: auctionID -> bidIDs in insertion order
	seq         int64
}

// NewMemoryRepo creates a new in-memory repository instance
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		accounts:    make(map[string]model.Account),
		usernames:   make(map[string]string),
		emails:      make(map[string]string),
		auctions:    make(map[string]model.Auction),
		bids:        make(map[string]model.Bid),
		auctionBids: make(map[string][]string),
	}
}

func foldKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// CreateAccount stores a new account, rejecting duplicate usernames and emails
func (r *MemoryRepo) CreateAccount(ctx context.Context, account model.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.accounts[account.AccountID]; ok {
		return fmt.Errorf("create account %s: %w", account.AccountID, auctionerrors.ErrConflict)
	}
	if _, ok := r.usernames[foldKey(account.Username)]; ok {
		return fmt.Errorf("create account: username %q: %w", account.Username, auctionerrors.ErrConflict)
	}
	if _, ok := r.emails[foldKey(account.Email)]; ok {
		return fmt.Errorf("create account: email %q: %w", account.Email, auctionerrors.ErrConflict)
	}

	r.accounts[account.AccountID] = account
	r.usernames[foldKey(account.Username)] = account.AccountID
	r.emails[foldKey(account.Email)] = account.AccountID
	return nil
}

// GetAccount returns the account with the given ID
func (r *MemoryRepo) GetAccount(ctx context.Context, accountID string) (model.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	account, ok := r.accounts[accountID]
	if !ok {
		return model.Account{}, fmt.Errorf("get account %s: %w", accountID, auctionerrors.ErrNotFound)
	}
	return account, nil
}

// GetAccountByUsername looks an account up by its case-insensitive username
func (r *MemoryRepo) GetAccountByUsername(ctx context.Context, username string) (model.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.usernames[foldKey(username)]
	if !ok {
		return model.Account{}, fmt.Errorf("get account by username %q: %w", username, auctionerrors.ErrNotFound)
	}
	return r.accounts[id], nil
}

// UpdateAccount applies a patch to an account, keeping username and email unique
func (r *MemoryRepo) UpdateAccount(ctx context.Context, accountID string, patch AccountPatch) (model.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	account, ok := r.accounts[accountID]
	if !ok {
		return model.Account{}, fmt.Errorf("update account %s: %w", accountID, auctionerrors.ErrNotFound)
	}

	if patch.Username != nil {
		if owner, taken := r.usernames[foldKey(*patch.Username)]; taken && owner != accountID {
			return model.Account{}, fmt.Errorf("update account: username %q: %w", *patch.Username, auctionerrors.ErrConflict)
		}
	}
	if patch.Email != nil {
		if owner, taken := r.emails[foldKey(*patch.Email)]; taken && owner != accountID {
			return model.Account{}, fmt.Errorf("update account: email %q: %w", *patch.Email, auctionerrors.ErrConflict)
		}
	}

	if patch.Username != nil {
		delete(r.usernames, foldKey(account.Username))
		account.Username = *patch.Username
		r.usernames[foldKey(account.Username)] = accountID
	}
	if patch.Email != nil {
		delete(r.emails, foldKey(account.Email))
		account.Email = *patch.Email
		r.emails[foldKey(account.Email)] = accountID
	}
	if patch.PasswordHash != nil {
		account.PasswordHash = *patch.PasswordHash
	}
	if patch.Image != nil {
		account.Image = *patch.Image
	}

	r.accounts[accountID] = account
	return account, nil
}

// CreateAuction stores a new auction
func (r *MemoryRepo) CreateAuction(ctx context.Context, auction model.Auction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.accounts[auction.OwnerID]; !ok {
		return fmt.Errorf("create auction: owner %s: %w", auction.OwnerID, auctionerrors.ErrNotFound)
	}
	if _, ok := r.auctions[auction.AuctionID]; ok {
		return fmt.Errorf("create auction %s: %w", auction.AuctionID, auctionerrors.ErrConflict)
	}
	r.auctions[auction.AuctionID] = auction
	return nil
}

// GetAuction returns the auction with the given ID
func (r *MemoryRepo) GetAuction(ctx context.Context, auctionID string) (model.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	auction, ok := r.auctions[auctionID]
	if !ok {
		return model.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, auctionerrors.ErrNotFound)
	}
	return auction, nil
}

// FindAuctions returns the auctions matching filter, newest first
func (r *MemoryRepo) FindAuctions(ctx context.Context, filter AuctionFilter) ([]model.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	auctions := make([]model.Auction, 0)
	for _, a := range r.auctions {
		if filter.OwnerID != "" && a.OwnerID != filter.OwnerID {
			continue
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		if filter.WinnerBidderID != "" {
			winning, ok := r.bids[a.WinningBidID]
			if !ok || winning.BidderID != filter.WinnerBidderID {
				continue
			}
		}
		auctions = append(auctions, a)
	}

	sort.Slice(auctions, func(i, j int) bool {
		if auctions[i].CreatedAt.Equal(auctions[j].CreatedAt) {
			return auctions[i].AuctionID < auctions[j].AuctionID
		}
		return auctions[i].CreatedAt.After(auctions[j].CreatedAt)
	})
	return auctions, nil
}

// UpdateAuction applies patch only if cond still holds on the stored auction
func (r *MemoryRepo) UpdateAuction(ctx context.Context, auctionID string, patch AuctionPatch, cond AuctionCondition) (model.Auction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	auction, ok := r.auctions[auctionID]
	if !ok {
		return model.Auction{}, fmt.Errorf("update auction %s: %w", auctionID, auctionerrors.ErrNotFound)
	}
	if cond.Status != "" && auction.Status != cond.Status {
		return model.Auction{}, fmt.Errorf("update auction %s: status is %s: %w", auctionID, auction.Status, auctionerrors.ErrConditionFailed)
	}
	if cond.NoBids && len(r.auctionBids[auctionID]) > 0 {
		return model.Auction{}, fmt.Errorf("update auction %s: bids exist: %w", auctionID, auctionerrors.ErrConditionFailed)
	}

	applyAuctionPatch(&auction, patch)
	r.auctions[auctionID] = auction
	return auction, nil
}

func applyAuctionPatch(a *model.Auction, patch AuctionPatch) {
	if patch.Title != nil {
		a.Title = *patch.Title
	}
	if patch.Description != nil {
		a.Description = *patch.Description
	}
	if patch.Image != nil {
		a.Image = *patch.Image
	}
	if patch.StartAt != nil {
		a.StartAt = *patch.StartAt
	}
	if patch.EndAt != nil {
		a.EndAt = *patch.EndAt
	}
	if patch.Status != nil {
		a.Status = *patch.Status
	}
	if patch.WinningBidID != nil {
		a.WinningBidID = *patch.WinningBidID
	}
	if !patch.UpdatedAt.IsZero() {
		a.UpdatedAt = patch.UpdatedAt
	}
}

// DeleteAuction removes an auction together with all of its bids
func (r *MemoryRepo) DeleteAuction(ctx context.Context, auctionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.auctions[auctionID]; !ok {
		return fmt.Errorf("delete auction %s: %w", auctionID, auctionerrors.ErrNotFound)
	}
	for _, bidID := range r.auctionBids[auctionID] {
		delete(r.bids, bidID)
	}
	delete(r.auctionBids, auctionID)
	delete(r.auctions, auctionID)
	return nil
}

// CreateBid records a bid if, at write time, its auction is open and bid.CreatedAt
// falls inside the auction window
func (r *MemoryRepo) CreateBid(ctx context.Context, bid model.Bid) (model.Bid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	auction, ok := r.auctions[bid.AuctionID]
	if !ok {
		return model.Bid{}, fmt.Errorf("record bid for auction %s: %w", bid.AuctionID, auctionerrors.ErrNotFound)
	}
	if !auction.AcceptsBidsAt(bid.CreatedAt) {
		return model.Bid{}, fmt.Errorf("record bid for auction %s: %w", bid.AuctionID, auctionerrors.ErrAuctionClosed)
	}
	if _, ok := r.accounts[bid.BidderID]; !ok {
		return model.Bid{}, fmt.Errorf("record bid: bidder %s: %w", bid.BidderID, auctionerrors.ErrNotFound)
	}

	r.seq++
	bid.Seq = r.seq
	r.bids[bid.BidID] = bid
	r.auctionBids[bid.AuctionID] = append(r.auctionBids[bid.AuctionID], bid.BidID)
	return bid, nil
}

// GetBid returns the bid with the given ID
func (r *MemoryRepo) GetBid(ctx context.Context, bidID string) (model.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bid, ok := r.bids[bidID]
	if !ok {
		return model.Bid{}, fmt.Errorf("get bid %s: %w", bidID, auctionerrors.ErrNotFound)
	}
	return bid, nil
}

// FindBids returns bids matching filter ordered by insertion
func (r *MemoryRepo) FindBids(ctx context.Context, filter BidFilter) ([]model.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var candidates []model.Bid
	if filter.AuctionID != "" {
		for _, id := range r.auctionBids[filter.AuctionID] {
			candidates = append(candidates, r.bids[id])
		}
	} else {
		for _, b := range r.bids {
			candidates = append(candidates, b)
		}
		sort.Slice(candidates, func(i, j int) bool { return candidates[i].Seq < candidates[j].Seq })
	}

	bids := make([]model.Bid, 0)
	for _, b := range candidates {
		if b.Seq <= filter.AfterSeq {
			continue
		}
		if filter.BidderID != "" && b.BidderID != filter.BidderID {
			continue
		}
		bids = append(bids, b)
		if filter.Limit > 0 && len(bids) == filter.Limit {
			break
		}
	}
	return bids, nil
}

// CountBids returns how many bids an auction has received
func (r *MemoryRepo) CountBids(ctx context.Context, auctionID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.auctionBids[auctionID]), nil
}
