package auction

import (
	"auction-market/internal/auctionerrors"
	"auction-market/internal/models"
	"auction-market/internal/repository"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// BidView is a bid joined with its bidder's username
type BidView struct {
	models.Bid
	BidderUsername string `json:"bidder_username"`
}

// AuctionView is an auction joined with its owner, bids and winning bid at read time
type AuctionView struct {
	models.Auction
	OwnerUsername string    `json:"owner_username"`
	AcceptingBids bool      `json:"accepting_bids"`
	BidCount      int       `json:"bid_count"`
	Bids          []BidView `json:"bids,omitempty"`
	WinningBid    *BidView  `json:"winning_bid,omitempty"`
}

// usernames memoizes account lookups for the duration of one read
type usernames struct {
	repo  repository.AuctionDB
	cache map[string]string
}

func newUsernames(repo repository.AuctionDB) *usernames {
	return &usernames{repo: repo, cache: make(map[string]string)}
}

func (u *usernames) lookup(ctx context.Context, accountID string) (string, error) {
	if name, ok := u.cache[accountID]; ok {
		return name, nil
	}
	account, err := u.repo.GetAccount(ctx, accountID)
	if errors.Is(err, auctionerrors.ErrNotFound) {
		u.cache[accountID] = ""
		return "", nil
	}
	if err != nil {
		return "", err
	}
	u.cache[accountID] = account.Username
	return account.Username, nil
}

// GetAuction returns an auction with its bids and winning bid
func (s *AuctionService) GetAuction(ctx context.Context, auctionID string) (AuctionView, error) {
	if auctionID == "" {
		return AuctionView{}, fmt.Errorf("service: %w - empty auction ID", auctionerrors.ErrValidation)
	}
	auction, err := s.repo.GetAuction(ctx, auctionID)
	if err != nil {
		return AuctionView{}, fmt.Errorf("service: failed to get auction %s: %w", auctionID, err)
	}
	return s.buildView(ctx, newUsernames(s.repo), auction, true)
}

// ListOpenAuctions returns all auctions that have not been closed, newest first
func (s *AuctionService) ListOpenAuctions(ctx context.Context) ([]AuctionView, error) {
	auctions, err := s.repo.FindAuctions(ctx, repository.AuctionFilter{Status: models.StatusOpen})
	if err != nil {
		return nil, fmt.Errorf("service: failed to list open auctions: %w", err)
	}
	return s.buildViews(ctx, auctions, false)
}

// ListAuctionsByOwner returns the auctions an account created, with bids and winners
func (s *AuctionService) ListAuctionsByOwner(ctx context.Context, ownerID string) ([]AuctionView, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, fmt.Errorf("service: %w - empty owner ID", auctionerrors.ErrValidation)
	}
	auctions, err := s.repo.FindAuctions(ctx, repository.AuctionFilter{OwnerID: ownerID})
	if err != nil {
		return nil, fmt.Errorf("service: failed to list auctions of %s: %w", ownerID, err)
	}
	return s.buildViews(ctx, auctions, true)
}

// ListWinningBids returns the closed auctions won by a bidder
func (s *AuctionService) ListWinningBids(ctx context.Context, bidderID string) ([]AuctionView, error) {
	if strings.TrimSpace(bidderID) == "" {
		return nil, fmt.Errorf("service: %w - empty bidder ID", auctionerrors.ErrValidation)
	}
	auctions, err := s.repo.FindAuctions(ctx, repository.AuctionFilter{Status: models.StatusClosed, WinnerBidderID: bidderID})
	if err != nil {
		return nil, fmt.Errorf("service: failed to list winning bids of %s: %w", bidderID, err)
	}
	return s.buildViews(ctx, auctions, false)
}

func (s *AuctionService) buildViews(ctx context.Context, auctions []models.Auction, withBids bool) ([]AuctionView, error) {
	names := newUsernames(s.repo)
	views := make([]AuctionView, 0, len(auctions))
	for _, a := range auctions {
		view, err := s.buildView(ctx, names, a, withBids)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *AuctionService) buildView(ctx context.Context, names *usernames, auction models.Auction, withBids bool) (AuctionView, error) {
	view := AuctionView{
		Auction:       auction,
		AcceptingBids: auction.AcceptsBidsAt(s.now()),
	}

	owner, err := names.lookup(ctx, auction.OwnerID)
	if err != nil {
		return AuctionView{}, fmt.Errorf("service: failed to load owner of auction %s: %w", auction.AuctionID, err)
	}
	view.OwnerUsername = owner

	if withBids {
		for bid, err := range s.ListBidsForAuction(ctx, auction.AuctionID) {
			if err != nil {
				return AuctionView{}, err
			}
			bv, err := s.bidView(ctx, names, bid)
			if err != nil {
				return AuctionView{}, err
			}
			view.Bids = append(view.Bids, bv)
		}
		view.BidCount = len(view.Bids)
	} else {
		count, err := s.repo.CountBids(ctx, auction.AuctionID)
		if err != nil {
			return AuctionView{}, fmt.Errorf("service: failed to count bids of auction %s: %w", auction.AuctionID, err)
		}
		view.BidCount = count
	}

	if auction.WinningBidID != "" {
		winning, err := s.repo.GetBid(ctx, auction.WinningBidID)
		if err != nil {
			return AuctionView{}, fmt.Errorf("service: failed to load winning bid of auction %s: %w", auction.AuctionID, err)
		}
		bv, err := s.bidView(ctx, names, winning)
		if err != nil {
			return AuctionView{}, err
		}
		view.WinningBid = &bv
	}
	return view, nil
}

func (s *AuctionService) bidView(ctx context.Context, names *usernames, bid models.Bid) (BidView, error) {
	bidder, err := names.lookup(ctx, bid.BidderID)
	if err != nil {
		return BidView{}, fmt.Errorf("service: failed to load bidder of bid %s: %w", bid.BidID, err)
	}
	return BidView{Bid: bid, BidderUsername: bidder}, nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// ParseTimestamp accepts RFC3339 and HTML datetime-local values; zone-less values are UTC
func ParseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("service: %w - empty timestamp", auctionerrors.ErrValidation)
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("service: %w - unparseable timestamp %q", auctionerrors.ErrValidation, value)
}
