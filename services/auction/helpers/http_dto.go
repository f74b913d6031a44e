package helpers

// Request/Response DTOs
type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token     string `json:"token"`
	AccountID string `json:"account_id"`
	Username  string `json:"username"`
	ExpiresAt string `json:"expires_at"`
}

type UpdateProfileRequest struct {
	Username *string `json:"username"`
	Email    *string `json:"email" binding:"omitempty,email"`
	Password *string `json:"password" binding:"omitempty,min=6"`
	Image    *string `json:"image"`
}

type CreateAuctionRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description" binding:"required"`
	Image       string `json:"image"`
	StartAt     string `json:"start_at" binding:"required"`
	EndAt       string `json:"end_at" binding:"required"`
}

type UpdateAuctionRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Image       *string `json:"image"`
	StartAt     *string `json:"start_at"`
	EndAt       *string `json:"end_at"`
}

type PlaceBidRequest struct {
	ItemName        string `json:"item_name" binding:"required"`
	ItemDescription string `json:"item_description" binding:"required"`
	ItemImage       string `json:"item_image"`
}

type ChooseWinnerRequest struct {
	BidID string `json:"bid_id" binding:"required"`
}

type BidResponse struct {
	BidID           string `json:"bid_id"`
	AuctionID       string `json:"auction_id"`
	BidderID        string `json:"bidder_id"`
	ItemName        string `json:"item_name"`
	ItemDescription string `json:"item_description"`
	ItemImage       string `json:"item_image,omitempty"`
	CreatedAt       string `json:"created_at"`
}
