package auctionerrors

import "errors"

// Repository-level errors
var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("already exists")
	ErrConditionFailed  = errors.New("condition failed")
	ErrStoreUnavailable = errors.New("store unavailable")
)

// business logic errors
var (
	ErrValidation     = errors.New("validation failed")
	ErrForbidden      = errors.New("forbidden")
	ErrAuctionClosed  = errors.New("auction is not accepting bids")
	ErrInvalidState   = errors.New("auction is already closed")
	ErrSelfBid        = errors.New("owner cannot bid on own auction")
	ErrBidMismatch    = errors.New("bid belongs to a different auction")
	ErrAuctionHasBids = errors.New("auction already has bids")
)

// identity errors
var (
	ErrUnauthenticated = errors.New("unauthenticated")
)
