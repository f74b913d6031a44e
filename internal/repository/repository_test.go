package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"auction-market/internal/auctionerrors"
	model "auction-market/internal/models"

	"github.com/stretchr/testify/require"
)

func TestMemoryRepo_Contract(t *testing.T) {
	t.Parallel()

	runStoreSuite(t, func(t *testing.T) AuctionDB { return NewMemoryRepo() })
}

// Test CreateBid stores bids by value
func TestMemoryRepo_BidsAreCopies(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewMemoryRepo()
	owner := seedAccount(t, repo, "owner")
	bidder := seedAccount(t, repo, "bidder")
	auction := seedAuction(t, repo, owner.AccountID, base, base.Add(time.Hour))

	bid := newBid(auction.AuctionID, bidder.AccountID, base.Add(time.Minute))
	_, err := repo.CreateBid(ctx, bid)
	require.NoError(t, err)

	bid.ItemName = "changed after submit"
	got, err := repo.GetBid(ctx, bid.BidID)
	require.NoError(t, err)
	require.Equal(t, "Vinyl records", got.ItemName)

	bids, err := repo.FindBids(ctx, BidFilter{AuctionID: auction.AuctionID})
	require.NoError(t, err)
	bids[0].ItemName = "mutated slice"

	again, err := repo.FindBids(ctx, BidFilter{AuctionID: auction.AuctionID})
	require.NoError(t, err)
	require.Equal(t, "Vinyl records", again[0].ItemName)
}

// Test FindBids without an auction filter spans all auctions in seq order
func TestMemoryRepo_FindBidsAcrossAuctions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewMemoryRepo()
	owner := seedAccount(t, repo, "owner")
	bidder := seedAccount(t, repo, "bidder")
	a1 := seedAuction(t, repo, owner.AccountID, base, base.Add(time.Hour))
	a2 := seedAuction(t, repo, owner.AccountID, base, base.Add(time.Hour))

	for i := 0; i < 4; i++ {
		target := a1.AuctionID
		if i%2 == 1 {
			target = a2.AuctionID
		}
		_, err := repo.CreateBid(ctx, newBid(target, bidder.AccountID, base.Add(time.Minute)))
		require.NoError(t, err)
	}

	bids, err := repo.FindBids(ctx, BidFilter{BidderID: bidder.AccountID})
	require.NoError(t, err)
	require.Len(t, bids, 4)
	for i := 1; i < len(bids); i++ {
		require.Less(t, bids[i-1].Seq, bids[i].Seq)
	}
}

// concurrency test
func TestMemoryRepo_ConcurrentBidsAndCloses(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewMemoryRepo()
	owner := seedAccount(t, repo, "owner")
	bidder := seedAccount(t, repo, "bidder")

	const auctionCount = 10
	auctions := make([]model.Auction, auctionCount)
	for i := range auctions {
		auctions[i] = seedAuction(t, repo, owner.AccountID, base, base.Add(time.Hour))
	}

	var wg sync.WaitGroup
	closeWins := make([]int, auctionCount)
	var mu sync.Mutex

	for i := range auctions {
		id := auctions[i].AuctionID
		for j := 0; j < 5; j++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				_, _ = repo.CreateBid(ctx, newBid(id, bidder.AccountID, base.Add(time.Minute)))
			}()
			go func(i int) {
				defer wg.Done()
				closed := model.StatusClosed
				winner := fmt.Sprintf("winner-%d", i)
				_, err := repo.UpdateAuction(ctx, id,
					AuctionPatch{Status: &closed, WinningBidID: &winner},
					AuctionCondition{Status: model.StatusOpen})
				if err == nil {
					mu.Lock()
					closeWins[i]++
					mu.Unlock()
					return
				}
				require.ErrorIs(t, err, auctionerrors.ErrConditionFailed)
			}(i)
		}
	}
	wg.Wait()

	for i, wins := range closeWins {
		require.Equal(t, 1, wins, "auction %d must be closed exactly once", i)
	}
}
