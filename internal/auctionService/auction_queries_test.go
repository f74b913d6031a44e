package auction

import (
	"context"
	"testing"
	"time"

	"auction-market/internal/auctionerrors"
	"auction-market/internal/models"

	"github.com/stretchr/testify/require"
)

func TestAuctionService_Queries(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	owner := f.account(t, "owner")
	alice := f.account(t, "alice")
	bob := f.account(t, "bob")

	f.clock.Set(at(9, 0))
	decided := f.auction(t, owner.AccountID, at(10, 0), at(11, 0))
	f.clock.Set(at(9, 5))
	running := f.auction(t, owner.AccountID, at(10, 0), at(12, 0))
	f.clock.Set(at(9, 10))
	foreign := f.auction(t, alice.AccountID, at(10, 0), at(12, 0))

	f.clock.Set(at(10, 10))
	aliceBid, err := f.service.SubmitBid(ctx, decided.AuctionID, alice.AccountID, itemDraft("Drone"))
	require.NoError(t, err)
	_, err = f.service.SubmitBid(ctx, decided.AuctionID, bob.AccountID, itemDraft("Camera"))
	require.NoError(t, err)
	_, err = f.service.SubmitBid(ctx, running.AuctionID, bob.AccountID, itemDraft("Skates"))
	require.NoError(t, err)
	_, err = f.service.ChooseWinner(ctx, decided.AuctionID, aliceBid.BidID, owner.AccountID)
	require.NoError(t, err)

	t.Run("get_auction_with_bids", func(t *testing.T) {
		view, err := f.service.GetAuction(ctx, decided.AuctionID)
		require.NoError(t, err)
		require.Equal(t, "owner", view.OwnerUsername)
		require.False(t, view.AcceptingBids)
		require.Equal(t, 2, view.BidCount)
		require.Len(t, view.Bids, 2)
		require.Equal(t, "alice", view.Bids[0].BidderUsername)
		require.Equal(t, "bob", view.Bids[1].BidderUsername)
		require.NotNil(t, view.WinningBid)
		require.Equal(t, aliceBid.BidID, view.WinningBid.BidID)
		require.Equal(t, "alice", view.WinningBid.BidderUsername)
	})

	t.Run("get_running_auction", func(t *testing.T) {
		view, err := f.service.GetAuction(ctx, running.AuctionID)
		require.NoError(t, err)
		require.True(t, view.AcceptingBids)
		require.Nil(t, view.WinningBid)
	})

	t.Run("get_missing_auction", func(t *testing.T) {
		_, err := f.service.GetAuction(ctx, "missing")
		require.ErrorIs(t, err, auctionerrors.ErrNotFound)

		_, err = f.service.GetAuction(ctx, "")
		require.ErrorIs(t, err, auctionerrors.ErrValidation)
	})

	t.Run("list_open", func(t *testing.T) {
		views, err := f.service.ListOpenAuctions(ctx)
		require.NoError(t, err)
		require.Len(t, views, 2)
		require.Equal(t, foreign.AuctionID, views[0].AuctionID)
		require.Equal(t, running.AuctionID, views[1].AuctionID)
		require.Equal(t, 1, views[1].BidCount)
		require.Empty(t, views[1].Bids)
	})

	t.Run("list_by_owner", func(t *testing.T) {
		views, err := f.service.ListAuctionsByOwner(ctx, owner.AccountID)
		require.NoError(t, err)
		require.Len(t, views, 2)
		require.Equal(t, running.AuctionID, views[0].AuctionID)
		require.Equal(t, decided.AuctionID, views[1].AuctionID)
		require.Len(t, views[1].Bids, 2)

		_, err = f.service.ListAuctionsByOwner(ctx, " ")
		require.ErrorIs(t, err, auctionerrors.ErrValidation)
	})

	t.Run("list_winning_bids", func(t *testing.T) {
		won, err := f.service.ListWinningBids(ctx, alice.AccountID)
		require.NoError(t, err)
		require.Len(t, won, 1)
		require.Equal(t, decided.AuctionID, won[0].AuctionID)
		require.Equal(t, models.StatusClosed, won[0].Status)

		lost, err := f.service.ListWinningBids(ctx, bob.AccountID)
		require.NoError(t, err)
		require.Empty(t, lost)
	})
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		value   string
		want    time.Time
		wantErr bool
	}{
		{name: "rfc3339_utc", value: "2025-01-02T10:30:00Z", want: time.Date(2025, 1, 2, 10, 30, 0, 0, time.UTC)},
		{name: "rfc3339_offset", value: "2025-01-02T12:30:00+02:00", want: time.Date(2025, 1, 2, 10, 30, 0, 0, time.UTC)},
		{name: "rfc3339_nano", value: "2025-01-02T10:30:00.5Z", want: time.Date(2025, 1, 2, 10, 30, 0, 500000000, time.UTC)},
		{name: "datetime_local", value: "2025-01-02T00:00", want: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)},
		{name: "datetime_local_seconds", value: "2025-01-02T00:00:30", want: time.Date(2025, 1, 2, 0, 0, 30, 0, time.UTC)},
		{name: "space_separated", value: " 2025-01-02 08:15 ", want: time.Date(2025, 1, 2, 8, 15, 0, 0, time.UTC)},
		{name: "empty", value: "", wantErr: true},
		{name: "garbage", value: "tomorrow at noon", wantErr: true},
		{name: "date_only", value: "2025-01-02", wantErr: true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseTimestamp(tc.value)
			if tc.wantErr {
				require.ErrorIs(t, err, auctionerrors.ErrValidation)
				return
			}
			require.NoError(t, err)
			require.True(t, tc.want.Equal(got), "want %s, got %s", tc.want, got)
			require.Equal(t, time.UTC, got.Location())
		})
	}
}
