package handler

import (
	"context"
	"net/http"
	"time"

	auction "auction-market/internal/auctionService"
	model "auction-market/internal/models"
	"auction-market/services/auction/helpers"
	"auction-market/utils"

	"github.com/gin-gonic/gin"
)

type AuctionServiceInterface interface {
	CreateAuction(ctx context.Context, ownerID string, draft auction.AuctionDraft) (model.Auction, error)
	SubmitBid(ctx context.Context, auctionID, bidderID string, draft auction.BidDraft) (model.Bid, error)
	GetBidsForAuction(ctx context.Context, auctionID string) ([]model.Bid, error)
	ChooseWinner(ctx context.Context, auctionID, bidID, callerID string) (model.Auction, error)
	EditAuction(ctx context.Context, auctionID, callerID string, update auction.AuctionUpdate) (model.Auction, error)
	DeleteAuction(ctx context.Context, auctionID, callerID string) error
	GetAuction(ctx context.Context, auctionID string) (auction.AuctionView, error)
	ListOpenAuctions(ctx context.Context) ([]auction.AuctionView, error)
	ListAuctionsByOwner(ctx context.Context, ownerID string) ([]auction.AuctionView, error)
	ListWinningBids(ctx context.Context, bidderID string) ([]auction.AuctionView, error)
}

type AuctionHandler struct {
	service AuctionServiceInterface
}

func NewAuctionHandler(service AuctionServiceInterface) *AuctionHandler {
	return &AuctionHandler{service: service}
}

// CreateAuctionHandler handles POST /auctions
func (h *AuctionHandler) CreateAuctionHandler(c *gin.Context) {
	var req helpers.CreateAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "CreateAuctionHandler", err)
		return
	}

	ownerID := helpers.CallerID(c)
	start, err := auction.ParseTimestamp(req.StartAt)
	if err != nil {
		helpers.HandleServiceError(c, "CreateAuctionHandler", err, map[string]any{"owner_id": ownerID, "start_at": req.StartAt})
		return
	}
	end, err := auction.ParseTimestamp(req.EndAt)
	if err != nil {
		helpers.HandleServiceError(c, "CreateAuctionHandler", err, map[string]any{"owner_id": ownerID, "end_at": req.EndAt})
		return
	}

	created, err := h.service.CreateAuction(c.Request.Context(), ownerID, auction.AuctionDraft{
		Title:       req.Title,
		Description: req.Description,
		Image:       req.Image,
		StartAt:     start,
		EndAt:       end,
	})
	if err != nil {
		helpers.HandleServiceError(c, "CreateAuctionHandler", err, map[string]any{"owner_id": ownerID})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, created, "auction created successfully")
	helpers.LogSuccess("CreateAuctionHandler", "auction created successfully", map[string]any{
		"auction_id": created.AuctionID,
		"owner_id":   ownerID,
	})
}

// ListOpenAuctionsHandler handles GET /auctions
func (h *AuctionHandler) ListOpenAuctionsHandler(c *gin.Context) {
	auctions, err := h.service.ListOpenAuctions(c.Request.Context())
	if err != nil {
		helpers.HandleServiceError(c, "ListOpenAuctionsHandler", err, nil)
		return
	}
	if auctions == nil {
		auctions = []auction.AuctionView{}
	}

	utils.JSONResponse(c, http.StatusOK, auctions, "auctions retrieved successfully")
	helpers.LogSuccess("ListOpenAuctionsHandler", "auctions retrieved successfully", map[string]any{"count": len(auctions)})
}

// GetAuctionHandler handles GET /auctions/:auction_id
func (h *AuctionHandler) GetAuctionHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	view, err := h.service.GetAuction(c.Request.Context(), auctionID)
	if err != nil {
		helpers.HandleServiceError(c, "GetAuctionHandler", err, map[string]any{"auction_id": auctionID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, view, "auction retrieved successfully")
}

// EditAuctionHandler handles PATCH /auctions/:auction_id
func (h *AuctionHandler) EditAuctionHandler(c *gin.Context) {
	var req helpers.UpdateAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "EditAuctionHandler", err)
		return
	}

	auctionID := c.Param("auction_id")
	callerID := helpers.CallerID(c)
	update := auction.AuctionUpdate{
		Title:       req.Title,
		Description: req.Description,
		Image:       req.Image,
	}
	for _, field := range []struct {
		raw *string
		dst **time.Time
	}{{req.StartAt, &update.StartAt}, {req.EndAt, &update.EndAt}} {
		if field.raw == nil {
			continue
		}
		t, err := auction.ParseTimestamp(*field.raw)
		if err != nil {
			helpers.HandleServiceError(c, "EditAuctionHandler", err, map[string]any{"auction_id": auctionID})
			return
		}
		*field.dst = &t
	}

	updated, err := h.service.EditAuction(c.Request.Context(), auctionID, callerID, update)
	if err != nil {
		helpers.HandleServiceError(c, "EditAuctionHandler", err, map[string]any{"auction_id": auctionID, "caller_id": callerID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, updated, "auction updated successfully")
	helpers.LogSuccess("EditAuctionHandler", "auction updated successfully", map[string]any{"auction_id": auctionID})
}

// DeleteAuctionHandler handles DELETE /auctions/:auction_id
func (h *AuctionHandler) DeleteAuctionHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	callerID := helpers.CallerID(c)

	if err := h.service.DeleteAuction(c.Request.Context(), auctionID, callerID); err != nil {
		helpers.HandleServiceError(c, "DeleteAuctionHandler", err, map[string]any{"auction_id": auctionID, "caller_id": callerID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, gin.H{"auction_id": auctionID}, "auction deleted successfully")
	helpers.LogSuccess("DeleteAuctionHandler", "auction deleted successfully", map[string]any{"auction_id": auctionID})
}

// SubmitBidHandler handles POST /auctions/:auction_id/bids
func (h *AuctionHandler) SubmitBidHandler(c *gin.Context) {
	var req helpers.PlaceBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "SubmitBidHandler", err)
		return
	}

	auctionID := c.Param("auction_id")
	bidderID := helpers.CallerID(c)
	bid, err := h.service.SubmitBid(c.Request.Context(), auctionID, bidderID, auction.BidDraft{
		ItemName:        req.ItemName,
		ItemDescription: req.ItemDescription,
		ItemImage:       req.ItemImage,
	})
	if err != nil {
		helpers.HandleServiceError(c, "SubmitBidHandler", err, map[string]any{"auction_id": auctionID, "bidder_id": bidderID})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, helpers.ToBidResponse(bid), "bid recorded successfully")
	helpers.LogSuccess("SubmitBidHandler", "bid recorded successfully", map[string]any{
		"bid_id":     bid.BidID,
		"auction_id": bid.AuctionID,
		"bidder_id":  bid.BidderID,
	})
}

// GetBidsForAuctionHandler handles GET /auctions/:auction_id/bids
func (h *AuctionHandler) GetBidsForAuctionHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	bids, err := h.service.GetBidsForAuction(c.Request.Context(), auctionID)
	if err != nil {
		helpers.HandleServiceError(c, "GetBidsForAuctionHandler", err, map[string]any{"auction_id": auctionID})
		return
	}

	resp := make([]helpers.BidResponse, 0, len(bids))
	for _, b := range bids {
		resp = append(resp, helpers.ToBidResponse(b))
	}

	utils.JSONResponse(c, http.StatusOK, resp, "bids retrieved successfully")
	helpers.LogSuccess("GetBidsForAuctionHandler", "bids retrieved successfully", map[string]any{
		"auction_id": auctionID,
		"count":      len(resp),
	})
}

// ChooseWinnerHandler handles POST /auctions/:auction_id/winner
func (h *AuctionHandler) ChooseWinnerHandler(c *gin.Context) {
	var req helpers.ChooseWinnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "ChooseWinnerHandler", err)
		return
	}

	auctionID := c.Param("auction_id")
	callerID := helpers.CallerID(c)
	closed, err := h.service.ChooseWinner(c.Request.Context(), auctionID, req.BidID, callerID)
	if err != nil {
		helpers.HandleServiceError(c, "ChooseWinnerHandler", err, map[string]any{
			"auction_id": auctionID,
			"bid_id":     req.BidID,
			"caller_id":  callerID,
		})
		return
	}

	utils.JSONResponse(c, http.StatusOK, closed, "winner chosen successfully")
	helpers.LogSuccess("ChooseWinnerHandler", "winner chosen successfully", map[string]any{
		"auction_id": auctionID,
		"bid_id":     req.BidID,
	})
}

// ListAuctionsByOwnerHandler handles GET /users/:user_id/auctions
func (h *AuctionHandler) ListAuctionsByOwnerHandler(c *gin.Context) {
	userID := c.Param("user_id")
	auctions, err := h.service.ListAuctionsByOwner(c.Request.Context(), userID)
	if err != nil {
		helpers.HandleServiceError(c, "ListAuctionsByOwnerHandler", err, map[string]any{"user_id": userID})
		return
	}
	if auctions == nil {
		auctions = []auction.AuctionView{}
	}

	utils.JSONResponse(c, http.StatusOK, auctions, "auctions retrieved successfully")
	helpers.LogSuccess("ListAuctionsByOwnerHandler", "auctions retrieved successfully", map[string]any{
		"user_id": userID,
		"count":   len(auctions),
	})
}

// ListWinningBidsHandler handles GET /users/:user_id/winning-bids
func (h *AuctionHandler) ListWinningBidsHandler(c *gin.Context) {
	userID := c.Param("user_id")
	auctions, err := h.service.ListWinningBids(c.Request.Context(), userID)
	if err != nil {
		helpers.HandleServiceError(c, "ListWinningBidsHandler", err, map[string]any{"user_id": userID})
		return
	}
	if auctions == nil {
		auctions = []auction.AuctionView{}
	}

	utils.JSONResponse(c, http.StatusOK, auctions, "winning bids retrieved successfully")
	helpers.LogSuccess("ListWinningBidsHandler", "winning bids retrieved successfully", map[string]any{
		"user_id": userID,
		"count":   len(auctions),
	})
}
