package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"auction-market/internal/auctionerrors"
	model "auction-market/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

// Helper to create and store a new Account
func seedAccount(t *testing.T, repo AuctionDB, username string) model.Account {
	t.Helper()
	account := model.Account{
		AccountID:    uuid.NewString(),
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "hash",
		CreatedAt:    base,
	}
	require.NoError(t, repo.CreateAccount(context.Background(), account))
	return account
}

// Helper to create and store a new open Auction running from start to end
func seedAuction(t *testing.T, repo AuctionDB, ownerID string, start, end time.Time) model.Auction {
	t.Helper()
	auction := model.Auction{
		AuctionID:   uuid.NewString(),
		OwnerID:     ownerID,
		Title:       "Old guitar",
		Description: "Acoustic guitar in fair condition",
		StartAt:     start,
		EndAt:       end,
		Status:      model.StatusOpen,
		CreatedAt:   start,
		UpdatedAt:   start,
	}
	require.NoError(t, repo.CreateAuction(context.Background(), auction))
	return auction
}

// Helper to build a new Bid
func newBid(auctionID, bidderID string, createdAt time.Time) model.Bid {
	return model.Bid{
		BidID:           uuid.NewString(),
		AuctionID:       auctionID,
		BidderID:        bidderID,
		ItemName:        "Vinyl records",
		ItemDescription: "A box of jazz records",
		CreatedAt:       createdAt,
	}
}

// runStoreSuite exercises the AuctionDB contract. newRepo must return an empty store.
func runStoreSuite(t *testing.T, newRepo func(t *testing.T) AuctionDB) {
	ctx := context.Background()

	t.Run("accounts", func(t *testing.T) {
		repo := newRepo(t)
		alice := seedAccount(t, repo, "alice")

		tests := []struct {
			name    string
			account model.Account
			wantErr error
		}{
			{
				name:    "duplicate_username_case_insensitive",
				account: model.Account{AccountID: uuid.NewString(), Username: "ALICE", Email: "other@example.com", CreatedAt: base},
				wantErr: auctionerrors.ErrConflict,
			},
			{
				name:    "duplicate_email",
				account: model.Account{AccountID: uuid.NewString(), Username: "alice2", Email: "Alice@Example.com", CreatedAt: base},
				wantErr: auctionerrors.ErrConflict,
			},
			{
				name:    "distinct_account",
				account: model.Account{AccountID: uuid.NewString(), Username: "bob", Email: "bob@example.com", CreatedAt: base},
			},
		}

		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				err := repo.CreateAccount(ctx, tc.account)
				if tc.wantErr != nil {
					require.ErrorIs(t, err, tc.wantErr)
					return
				}
				require.NoError(t, err)
			})
		}

		got, err := repo.GetAccountByUsername(ctx, "Alice")
		require.NoError(t, err)
		require.Equal(t, alice.AccountID, got.AccountID)

		_, err = repo.GetAccount(ctx, "missing")
		require.ErrorIs(t, err, auctionerrors.ErrNotFound)

		_, err = repo.GetAccountByUsername(ctx, "nobody")
		require.ErrorIs(t, err, auctionerrors.ErrNotFound)

		taken := "bob"
		_, err = repo.UpdateAccount(ctx, alice.AccountID, AccountPatch{Username: &taken})
		require.ErrorIs(t, err, auctionerrors.ErrConflict)

		renamed, image := "alicia", "https://img.example.com/a.png"
		updated, err := repo.UpdateAccount(ctx, alice.AccountID, AccountPatch{Username: &renamed, Image: &image})
		require.NoError(t, err)
		require.Equal(t, "alicia", updated.Username)
		require.Equal(t, image, updated.Image)
		require.Equal(t, alice.Email, updated.Email)

		_, err = repo.GetAccountByUsername(ctx, "alice")
		require.ErrorIs(t, err, auctionerrors.ErrNotFound)

		_, err = repo.UpdateAccount(ctx, "missing", AccountPatch{Image: &image})
		require.ErrorIs(t, err, auctionerrors.ErrNotFound)
	})

	t.Run("create_and_find_auctions", func(t *testing.T) {
		repo := newRepo(t)
		alice := seedAccount(t, repo, "alice")
		bob := seedAccount(t, repo, "bob")

		older := seedAuction(t, repo, alice.AccountID, base, base.Add(time.Hour))
		newer := seedAuction(t, repo, alice.AccountID, base.Add(time.Minute), base.Add(2*time.Hour))
		other := seedAuction(t, repo, bob.AccountID, base.Add(2*time.Minute), base.Add(3*time.Hour))

		got, err := repo.GetAuction(ctx, older.AuctionID)
		require.NoError(t, err)
		require.Equal(t, older.Title, got.Title)
		require.Equal(t, model.StatusOpen, got.Status)
		require.WithinDuration(t, older.StartAt, got.StartAt, time.Millisecond)
		require.WithinDuration(t, older.EndAt, got.EndAt, time.Millisecond)

		_, err = repo.GetAuction(ctx, "missing")
		require.ErrorIs(t, err, auctionerrors.ErrNotFound)

		orphan := older
		orphan.AuctionID = uuid.NewString()
		orphan.OwnerID = "ghost"
		require.ErrorIs(t, repo.CreateAuction(ctx, orphan), auctionerrors.ErrNotFound)

		tests := []struct {
			name    string
			filter  AuctionFilter
			wantIDs []string
		}{
			{name: "all_newest_first", filter: AuctionFilter{}, wantIDs: []string{other.AuctionID, newer.AuctionID, older.AuctionID}},
			{name: "by_owner", filter: AuctionFilter{OwnerID: alice.AccountID}, wantIDs: []string{newer.AuctionID, older.AuctionID}},
			{name: "by_status_open", filter: AuctionFilter{Status: model.StatusOpen}, wantIDs: []string{other.AuctionID, newer.AuctionID, older.AuctionID}},
			{name: "by_status_closed", filter: AuctionFilter{Status: model.StatusClosed}, wantIDs: []string{}},
			{name: "unknown_owner", filter: AuctionFilter{OwnerID: "nobody"}, wantIDs: []string{}},
		}

		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				auctions, err := repo.FindAuctions(ctx, tc.filter)
				require.NoError(t, err)
				ids := make([]string, 0, len(auctions))
				for _, a := range auctions {
					ids = append(ids, a.AuctionID)
				}
				require.Equal(t, tc.wantIDs, ids)
			})
		}
	})

	t.Run("create_bid_admission", func(t *testing.T) {
		repo := newRepo(t)
		owner := seedAccount(t, repo, "owner")
		bidder := seedAccount(t, repo, "bidder")
		auction := seedAuction(t, repo, owner.AccountID, base, base.Add(time.Hour))

		tests := []struct {
			name    string
			bid     model.Bid
			wantErr error
		}{
			{name: "inside_window", bid: newBid(auction.AuctionID, bidder.AccountID, base.Add(30*time.Minute))},
			{name: "at_start", bid: newBid(auction.AuctionID, bidder.AccountID, base)},
			{name: "at_end", bid: newBid(auction.AuctionID, bidder.AccountID, base.Add(time.Hour))},
			{name: "before_start", bid: newBid(auction.AuctionID, bidder.AccountID, base.Add(-time.Second)), wantErr: auctionerrors.ErrAuctionClosed},
			{name: "after_end", bid: newBid(auction.AuctionID, bidder.AccountID, base.Add(time.Hour+time.Second)), wantErr: auctionerrors.ErrAuctionClosed},
			{name: "unknown_auction", bid: newBid("missing", bidder.AccountID, base.Add(time.Minute)), wantErr: auctionerrors.ErrNotFound},
			{name: "unknown_bidder", bid: newBid(auction.AuctionID, "ghost", base.Add(time.Minute)), wantErr: auctionerrors.ErrNotFound},
		}

		var lastSeq int64
		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				stored, err := repo.CreateBid(ctx, tc.bid)
				if tc.wantErr != nil {
					require.ErrorIs(t, err, tc.wantErr)
					return
				}
				require.NoError(t, err)
				require.Greater(t, stored.Seq, lastSeq)
				lastSeq = stored.Seq

				got, err := repo.GetBid(ctx, tc.bid.BidID)
				require.NoError(t, err)
				require.Equal(t, tc.bid.ItemName, got.ItemName)
				require.Equal(t, stored.Seq, got.Seq)
			})
		}

		count, err := repo.CountBids(ctx, auction.AuctionID)
		require.NoError(t, err)
		require.Equal(t, 3, count)

		_, err = repo.GetBid(ctx, "missing")
		require.ErrorIs(t, err, auctionerrors.ErrNotFound)
	})

	t.Run("find_bids_pages_in_insertion_order", func(t *testing.T) {
		repo := newRepo(t)
		owner := seedAccount(t, repo, "owner")
		bidders := []model.Account{seedAccount(t, repo, "b1"), seedAccount(t, repo, "b2")}
		auction := seedAuction(t, repo, owner.AccountID, base, base.Add(time.Hour))
		other := seedAuction(t, repo, owner.AccountID, base, base.Add(time.Hour))

		var want []string
		for i := 0; i < 7; i++ {
			bid := newBid(auction.AuctionID, bidders[i%2].AccountID, base.Add(time.Duration(i)*time.Minute))
			_, err := repo.CreateBid(ctx, bid)
			require.NoError(t, err)
			want = append(want, bid.BidID)

			_, err = repo.CreateBid(ctx, newBid(other.AuctionID, bidders[0].AccountID, base))
			require.NoError(t, err)
		}

		var (
			got   []string
			after int64
		)
		for {
			page, err := repo.FindBids(ctx, BidFilter{AuctionID: auction.AuctionID, AfterSeq: after, Limit: 3})
			require.NoError(t, err)
			require.LessOrEqual(t, len(page), 3)
			for _, b := range page {
				require.Equal(t, auction.AuctionID, b.AuctionID)
				got = append(got, b.BidID)
				after = b.Seq
			}
			if len(page) < 3 {
				break
			}
		}
		require.Equal(t, want, got)

		byBidder, err := repo.FindBids(ctx, BidFilter{AuctionID: auction.AuctionID, BidderID: bidders[1].AccountID})
		require.NoError(t, err)
		require.Len(t, byBidder, 3)

		none, err := repo.FindBids(ctx, BidFilter{AuctionID: "missing"})
		require.NoError(t, err)
		require.Empty(t, none)
	})

	t.Run("conditional_close", func(t *testing.T) {
		repo := newRepo(t)
		owner := seedAccount(t, repo, "owner")
		bidder := seedAccount(t, repo, "bidder")
		auction := seedAuction(t, repo, owner.AccountID, base, base.Add(time.Hour))

		bid, err := repo.CreateBid(ctx, newBid(auction.AuctionID, bidder.AccountID, base.Add(time.Minute)))
		require.NoError(t, err)

		closed := model.StatusClosed
		patch := AuctionPatch{Status: &closed, WinningBidID: &bid.BidID, UpdatedAt: base.Add(2 * time.Minute)}
		open := AuctionCondition{Status: model.StatusOpen}

		updated, err := repo.UpdateAuction(ctx, auction.AuctionID, patch, open)
		require.NoError(t, err)
		require.Equal(t, model.StatusClosed, updated.Status)
		require.Equal(t, bid.BidID, updated.WinningBidID)

		_, err = repo.UpdateAuction(ctx, auction.AuctionID, patch, open)
		require.ErrorIs(t, err, auctionerrors.ErrConditionFailed)

		_, err = repo.UpdateAuction(ctx, "missing", patch, open)
		require.ErrorIs(t, err, auctionerrors.ErrNotFound)

		_, err = repo.CreateBid(ctx, newBid(auction.AuctionID, bidder.AccountID, base.Add(3*time.Minute)))
		require.ErrorIs(t, err, auctionerrors.ErrAuctionClosed)

		won, err := repo.FindAuctions(ctx, AuctionFilter{Status: model.StatusClosed, WinnerBidderID: bidder.AccountID})
		require.NoError(t, err)
		require.Len(t, won, 1)
		require.Equal(t, auction.AuctionID, won[0].AuctionID)

		notWon, err := repo.FindAuctions(ctx, AuctionFilter{Status: model.StatusClosed, WinnerBidderID: owner.AccountID})
		require.NoError(t, err)
		require.Empty(t, notWon)
	})

	t.Run("no_bids_condition", func(t *testing.T) {
		repo := newRepo(t)
		owner := seedAccount(t, repo, "owner")
		bidder := seedAccount(t, repo, "bidder")
		auction := seedAuction(t, repo, owner.AccountID, base, base.Add(time.Hour))

		title := "Renamed"
		cond := AuctionCondition{Status: model.StatusOpen, NoBids: true}
		updated, err := repo.UpdateAuction(ctx, auction.AuctionID, AuctionPatch{Title: &title}, cond)
		require.NoError(t, err)
		require.Equal(t, "Renamed", updated.Title)

		_, err = repo.CreateBid(ctx, newBid(auction.AuctionID, bidder.AccountID, base.Add(time.Minute)))
		require.NoError(t, err)

		_, err = repo.UpdateAuction(ctx, auction.AuctionID, AuctionPatch{Title: &title}, cond)
		require.ErrorIs(t, err, auctionerrors.ErrConditionFailed)
	})

	t.Run("delete_cascades_to_bids", func(t *testing.T) {
		repo := newRepo(t)
		owner := seedAccount(t, repo, "owner")
		bidder := seedAccount(t, repo, "bidder")
		auction := seedAuction(t, repo, owner.AccountID, base, base.Add(time.Hour))

		bid, err := repo.CreateBid(ctx, newBid(auction.AuctionID, bidder.AccountID, base.Add(time.Minute)))
		require.NoError(t, err)

		require.NoError(t, repo.DeleteAuction(ctx, auction.AuctionID))

		_, err = repo.GetAuction(ctx, auction.AuctionID)
		require.ErrorIs(t, err, auctionerrors.ErrNotFound)
		_, err = repo.GetBid(ctx, bid.BidID)
		require.ErrorIs(t, err, auctionerrors.ErrNotFound)

		count, err := repo.CountBids(ctx, auction.AuctionID)
		require.NoError(t, err)
		require.Zero(t, count)

		require.ErrorIs(t, repo.DeleteAuction(ctx, auction.AuctionID), auctionerrors.ErrNotFound)
	})

	t.Run("bids_racing_close", func(t *testing.T) {
		repo := newRepo(t)
		owner := seedAccount(t, repo, "owner")
		auction := seedAuction(t, repo, owner.AccountID, base, base.Add(time.Hour))

		const bidderCount = 20
		bidders := make([]model.Account, bidderCount)
		for i := range bidders {
			bidders[i] = seedAccount(t, repo, fmt.Sprintf("racer%d", i))
		}
		first, err := repo.CreateBid(ctx, newBid(auction.AuctionID, bidders[0].AccountID, base.Add(time.Minute)))
		require.NoError(t, err)

		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			accepted = 1
			errs     []error
		)
		closed := model.StatusClosed
		wg.Add(bidderCount + 1)
		go func() {
			defer wg.Done()
			_, err := repo.UpdateAuction(ctx, auction.AuctionID,
				AuctionPatch{Status: &closed, WinningBidID: &first.BidID, UpdatedAt: base.Add(time.Minute)},
				AuctionCondition{Status: model.StatusOpen})
			if err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}()
		for i := 0; i < bidderCount; i++ {
			bidder := bidders[i]
			go func() {
				defer wg.Done()
				_, err := repo.CreateBid(ctx, newBid(auction.AuctionID, bidder.AccountID, base.Add(2*time.Minute)))
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					accepted++
				case !errors.Is(err, auctionerrors.ErrAuctionClosed):
					errs = append(errs, err)
				}
			}()
		}
		wg.Wait()

		require.Empty(t, errs)

		count, err := repo.CountBids(ctx, auction.AuctionID)
		require.NoError(t, err)
		require.Equal(t, accepted, count)

		got, err := repo.GetAuction(ctx, auction.AuctionID)
		require.NoError(t, err)
		require.Equal(t, model.StatusClosed, got.Status)
		require.Equal(t, first.BidID, got.WinningBidID)

		_, err = repo.CreateBid(ctx, newBid(auction.AuctionID, bidders[1].AccountID, base.Add(3*time.Minute)))
		require.ErrorIs(t, err, auctionerrors.ErrAuctionClosed)
	})
}
