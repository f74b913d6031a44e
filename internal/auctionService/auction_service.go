package auction

import (
	"auction-market/internal/auctionerrors"
	"auction-market/internal/models"
	"auction-market/internal/repository"
	"auction-market/utils"
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"
)

const defaultPageSize = 100

// AuctionService owns the auction state machine and bid admission rules.
// It keeps no mutable state between calls; every transition is a single store operation.
type AuctionService struct {
	repo               repository.AuctionDB
	now                func() time.Time
	lockEditsAfterBids bool
	pageSize           int
}

// Option configures an AuctionService
type Option func(*AuctionService)

// WithClock replaces the wall clock used for time-window checks
func WithClock(now func() time.Time) Option {
	return func(s *AuctionService) { s.now = now }
}

// WithEditLock forbids editing an auction once it has received a bid
func WithEditLock(enabled bool) Option {
	return func(s *AuctionService) { s.lockEditsAfterBids = enabled }
}

// WithPageSize sets how many bids ListBidsForAuction fetches per store round trip
func WithPageSize(n int) Option {
	return func(s *AuctionService) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// NewAuctionService creates a new AuctionService instance
func NewAuctionService(repo repository.AuctionDB, opts ...Option) *AuctionService {
	s := &AuctionService{
		repo:     repo,
		now:      func() time.Time { return time.Now().UTC() },
		pageSize: defaultPageSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AuctionDraft holds the fields of an auction to be created
type AuctionDraft struct {
	Title       string
	Description string
	Image       string
	StartAt     time.Time
	EndAt       time.Time
}

// BidDraft holds the offered item of a bid to be submitted
type BidDraft struct {
	ItemName        string
	ItemDescription string
	ItemImage       string
}

// AuctionUpdate lists the auction fields an owner wants to change; nil fields are kept
type AuctionUpdate struct {
	Title       *string
	Description *string
	Image       *string
	StartAt     *time.Time
	EndAt       *time.Time
}

// CreateAuction validates and stores a new open auction
func (s *AuctionService) CreateAuction(ctx context.Context, ownerID string, draft AuctionDraft) (models.Auction, error) {
	if err := validateDraft(ownerID, draft); err != nil {
		return models.Auction{}, err
	}

	if _, err := s.repo.GetAccount(ctx, ownerID); err != nil {
		return models.Auction{}, fmt.Errorf("service: failed to load owner %s: %w", ownerID, err)
	}

	now := s.now()
	auction := models.Auction{
		AuctionID:   utils.GenerateID(),
		OwnerID:     ownerID,
		Title:       strings.TrimSpace(draft.Title),
		Description: strings.TrimSpace(draft.Description),
		Image:       strings.TrimSpace(draft.Image),
		StartAt:     draft.StartAt.UTC(),
		EndAt:       draft.EndAt.UTC(),
		Status:      models.StatusOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.CreateAuction(ctx, auction); err != nil {
		return models.Auction{}, fmt.Errorf("service: failed to create auction for owner %s: %w", ownerID, err)
	}
	return auction, nil
}

// validateDraft checks required fields and the start < end invariant
func validateDraft(ownerID string, draft AuctionDraft) error {
	if ownerID == "" {
		return fmt.Errorf("service: %w - missing owner", auctionerrors.ErrValidation)
	}
	if strings.TrimSpace(draft.Title) == "" {
		return fmt.Errorf("service: %w - title is required", auctionerrors.ErrValidation)
	}
	if strings.TrimSpace(draft.Description) == "" {
		return fmt.Errorf("service: %w - description is required", auctionerrors.ErrValidation)
	}
	if draft.StartAt.IsZero() || draft.EndAt.IsZero() {
		return fmt.Errorf("service: %w - start and end are required", auctionerrors.ErrValidation)
	}
	if !draft.StartAt.Before(draft.EndAt) {
		return fmt.Errorf("service: %w - end time must be after start time", auctionerrors.ErrValidation)
	}
	return nil
}

// SubmitBid validates and records a bid. Admission is re-checked by the store at write time,
// so a bid racing a close is either committed before it or rejected.
func (s *AuctionService) SubmitBid(ctx context.Context, auctionID, bidderID string, draft BidDraft) (models.Bid, error) {
	if auctionID == "" || bidderID == "" {
		return models.Bid{}, fmt.Errorf("service: %w - missing auctionID or bidderID", auctionerrors.ErrValidation)
	}
	if strings.TrimSpace(draft.ItemName) == "" || strings.TrimSpace(draft.ItemDescription) == "" {
		return models.Bid{}, fmt.Errorf("service: %w - item name and description are required", auctionerrors.ErrValidation)
	}

	auction, err := s.repo.GetAuction(ctx, auctionID)
	if err != nil {
		return models.Bid{}, fmt.Errorf("service: failed to load auction %s: %w", auctionID, err)
	}
	if auction.OwnerID == bidderID {
		return models.Bid{}, fmt.Errorf("service: %w - auction %s", auctionerrors.ErrSelfBid, auctionID)
	}
	if _, err := s.repo.GetAccount(ctx, bidderID); err != nil {
		return models.Bid{}, fmt.Errorf("service: failed to load bidder %s: %w", bidderID, err)
	}

	now := s.now()
	if !auction.AcceptsBidsAt(now) {
		return models.Bid{}, fmt.Errorf("service: %w - auction %s is %s, window %s to %s",
			auctionerrors.ErrAuctionClosed, auctionID, auction.Status,
			auction.StartAt.Format(time.RFC3339), auction.EndAt.Format(time.RFC3339))
	}

	bid := models.Bid{
		BidID:           utils.GenerateID(),
		AuctionID:       auctionID,
		BidderID:        bidderID,
		ItemName:        strings.TrimSpace(draft.ItemName),
		ItemDescription: strings.TrimSpace(draft.ItemDescription),
		ItemImage:       strings.TrimSpace(draft.ItemImage),
		CreatedAt:       now,
	}

	stored, err := s.repo.CreateBid(ctx, bid)
	if err != nil {
		return models.Bid{}, fmt.Errorf("service: failed to record bid for auction %s by %s: %w", auctionID, bidderID, err)
	}
	return stored, nil
}

// ListBidsForAuction yields the bids of an auction in insertion order.
// The sequence is lazy and restartable: every range pages through the store again.
func (s *AuctionService) ListBidsForAuction(ctx context.Context, auctionID string) iter.Seq2[models.Bid, error] {
	return func(yield func(models.Bid, error) bool) {
		if auctionID == "" {
			yield(models.Bid{}, fmt.Errorf("service: %w - empty auction ID", auctionerrors.ErrValidation))
			return
		}
		if _, err := s.repo.GetAuction(ctx, auctionID); err != nil {
			yield(models.Bid{}, fmt.Errorf("service: failed to load auction %s: %w", auctionID, err))
			return
		}

		var after int64
		for {
			page, err := s.repo.FindBids(ctx, repository.BidFilter{AuctionID: auctionID, AfterSeq: after, Limit: s.pageSize})
			if err != nil {
				yield(models.Bid{}, fmt.Errorf("service: failed to list bids for auction %s: %w", auctionID, err))
				return
			}
			for _, bid := range page {
				if !yield(bid, nil) {
					return
				}
				after = bid.Seq
			}
			if len(page) < s.pageSize {
				return
			}
		}
	}
}

// GetBidsForAuction collects ListBidsForAuction into a slice
func (s *AuctionService) GetBidsForAuction(ctx context.Context, auctionID string) ([]models.Bid, error) {
	bids := []models.Bid{}
	for bid, err := range s.ListBidsForAuction(ctx, auctionID) {
		if err != nil {
			return nil, err
		}
		bids = append(bids, bid)
	}
	return bids, nil
}

// ChooseWinner closes an open auction with one of its bids as the winner.
// The Open -> Closed transition is a single conditional update in the store.
func (s *AuctionService) ChooseWinner(ctx context.Context, auctionID, bidID, callerID string) (models.Auction, error) {
	if auctionID == "" || bidID == "" || callerID == "" {
		return models.Auction{}, fmt.Errorf("service: %w - missing auctionID, bidID or caller", auctionerrors.ErrValidation)
	}

	auction, err := s.repo.GetAuction(ctx, auctionID)
	if err != nil {
		return models.Auction{}, fmt.Errorf("service: failed to load auction %s: %w", auctionID, err)
	}
	if auction.OwnerID != callerID {
		return models.Auction{}, fmt.Errorf("service: %w - only the owner can choose a winner", auctionerrors.ErrForbidden)
	}
	if !auction.IsOpen() {
		return models.Auction{}, fmt.Errorf("service: %w - auction %s", auctionerrors.ErrInvalidState, auctionID)
	}

	bid, err := s.repo.GetBid(ctx, bidID)
	if err != nil {
		return models.Auction{}, fmt.Errorf("service: failed to load bid %s: %w", bidID, err)
	}
	if bid.AuctionID != auctionID {
		return models.Auction{}, fmt.Errorf("service: %w - bid %s is not part of auction %s", auctionerrors.ErrBidMismatch, bidID, auctionID)
	}

	closed := models.StatusClosed
	patch := repository.AuctionPatch{Status: &closed, WinningBidID: &bidID, UpdatedAt: s.now()}
	updated, err := s.repo.UpdateAuction(ctx, auctionID, patch, repository.AuctionCondition{Status: models.StatusOpen})
	if err != nil {
		return models.Auction{}, fmt.Errorf("service: failed to close auction %s: %w", auctionID, err)
	}
	return updated, nil
}

// EditAuction changes an open auction on behalf of its owner
func (s *AuctionService) EditAuction(ctx context.Context, auctionID, callerID string, update AuctionUpdate) (models.Auction, error) {
	if auctionID == "" || callerID == "" {
		return models.Auction{}, fmt.Errorf("service: %w - missing auctionID or caller", auctionerrors.ErrValidation)
	}

	auction, err := s.repo.GetAuction(ctx, auctionID)
	if err != nil {
		return models.Auction{}, fmt.Errorf("service: failed to load auction %s: %w", auctionID, err)
	}
	if auction.OwnerID != callerID {
		return models.Auction{}, fmt.Errorf("service: %w - only the owner can edit an auction", auctionerrors.ErrForbidden)
	}
	if !auction.IsOpen() {
		return models.Auction{}, fmt.Errorf("service: %w - auction %s", auctionerrors.ErrInvalidState, auctionID)
	}

	patch, err := buildPatch(auction, update)
	if err != nil {
		return models.Auction{}, err
	}
	patch.UpdatedAt = s.now()

	cond := repository.AuctionCondition{Status: models.StatusOpen, NoBids: s.lockEditsAfterBids}
	updated, err := s.repo.UpdateAuction(ctx, auctionID, patch, cond)
	if errors.Is(err, auctionerrors.ErrConditionFailed) {
		return models.Auction{}, s.classifyEditConflict(ctx, auctionID, err)
	}
	if err != nil {
		return models.Auction{}, fmt.Errorf("service: failed to update auction %s: %w", auctionID, err)
	}
	return updated, nil
}

// buildPatch validates an update against the current auction
func buildPatch(current models.Auction, update AuctionUpdate) (repository.AuctionPatch, error) {
	var patch repository.AuctionPatch
	changed := false

	if update.Title != nil {
		title := strings.TrimSpace(*update.Title)
		if title == "" {
			return patch, fmt.Errorf("service: %w - title cannot be empty", auctionerrors.ErrValidation)
		}
		patch.Title, changed = &title, true
	}
	if update.Description != nil {
		description := strings.TrimSpace(*update.Description)
		if description == "" {
			return patch, fmt.Errorf("service: %w - description cannot be empty", auctionerrors.ErrValidation)
		}
		patch.Description, changed = &description, true
	}
	if update.Image != nil {
		image := strings.TrimSpace(*update.Image)
		patch.Image, changed = &image, true
	}

	start, end := current.StartAt, current.EndAt
	if update.StartAt != nil {
		start = update.StartAt.UTC()
		patch.StartAt, changed = &start, true
	}
	if update.EndAt != nil {
		end = update.EndAt.UTC()
		patch.EndAt, changed = &end, true
	}
	if !start.Before(end) {
		return patch, fmt.Errorf("service: %w - end time must be after start time", auctionerrors.ErrValidation)
	}

	if !changed {
		return patch, fmt.Errorf("service: %w - nothing to update", auctionerrors.ErrValidation)
	}
	return patch, nil
}

// classifyEditConflict explains why a conditional edit did not apply
func (s *AuctionService) classifyEditConflict(ctx context.Context, auctionID string, cause error) error {
	auction, err := s.repo.GetAuction(ctx, auctionID)
	if err != nil {
		return fmt.Errorf("service: failed to reload auction %s: %w", auctionID, err)
	}
	if !auction.IsOpen() {
		return fmt.Errorf("service: %w - auction %s", auctionerrors.ErrInvalidState, auctionID)
	}
	if s.lockEditsAfterBids {
		return fmt.Errorf("service: %w - auction %s", auctionerrors.ErrAuctionHasBids, auctionID)
	}
	return fmt.Errorf("service: failed to update auction %s: %w", auctionID, cause)
}

// DeleteAuction removes an auction and all of its bids on behalf of its owner
func (s *AuctionService) DeleteAuction(ctx context.Context, auctionID, callerID string) error {
	if auctionID == "" || callerID == "" {
		return fmt.Errorf("service: %w - missing auctionID or caller", auctionerrors.ErrValidation)
	}

	auction, err := s.repo.GetAuction(ctx, auctionID)
	if err != nil {
		return fmt.Errorf("service: failed to load auction %s: %w", auctionID, err)
	}
	if auction.OwnerID != callerID {
		return fmt.Errorf("service: %w - only the owner can delete an auction", auctionerrors.ErrForbidden)
	}

	if err := s.repo.DeleteAuction(ctx, auctionID); err != nil {
		return fmt.Errorf("service: failed to delete auction %s: %w", auctionID, err)
	}
	return nil
}
