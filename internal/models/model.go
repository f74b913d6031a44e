package models

import "time"

// AuctionStatus is the lifecycle state of an auction
type AuctionStatus string

const (
	StatusOpen   AuctionStatus = "open"
	StatusClosed AuctionStatus = "closed"
)

// Account represents a registered participant
type Account struct {
	AccountID    string    `json:"account_id" db:"id"`
	Username     string    `json:"username" db:"username"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Image        string    `json:"image,omitempty" db:"image"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Auction represents a time-boxed request for bids owned by one account
type Auction struct {
	AuctionID    string        `json:"auction_id" db:"id"`
	OwnerID      string        `json:"owner_id" db:"owner_id"`
	Title        string        `json:"title" db:"title"`
	Description  string        `json:"description" db:"description"`
	Image        string        `json:"image,omitempty" db:"image"`
	StartAt      time.Time     `json:"start_at" db:"start_at"`
	EndAt        time.Time     `json:"end_at" db:"end_at"`
	Status       AuctionStatus `json:"status" db:"status"`
	WinningBidID string        `json:"winning_bid_id,omitempty" db:"winning_bid_id"`
	CreatedAt    time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at" db:"updated_at"`
}

// IsOpen reports whether the auction is still in the Open state
func (a Auction) IsOpen() bool {
	return a.Status == StatusOpen
}

// AcceptsBidsAt reports whether a bid placed at t falls inside the auction window
func (a Auction) AcceptsBidsAt(t time.Time) bool {
	return a.IsOpen() && !t.Before(a.StartAt) && !t.After(a.EndAt)
}

// Bid represents an immutable offer submitted against an auction
type Bid struct {
	BidID           string    `json:"bid_id" db:"id"`
	Seq             int64     `json:"-" db:"seq"`
	AuctionID       string    `json:"auction_id" db:"auction_id"`
	BidderID        string    `json:"bidder_id" db:"bidder_id"`
	ItemName        string    `json:"item_name" db:"item_name"`
	ItemDescription string    `json:"item_description" db:"item_description"`
	ItemImage       string    `json:"item_image,omitempty" db:"item_image"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}
