package helpers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"auction-market/internal/auctionerrors"
	model "auction-market/internal/models"
	"auction-market/utils"

	"github.com/gin-gonic/gin"
)

// AccountIDKey is the gin context key holding the authenticated caller
const AccountIDKey = "account_id"

// HandleBindError sends a standardized JSON error for binding failures
func HandleBindError(c *gin.Context, handlerName string, err error) {
	wrappedErr := fmt.Errorf("invalid request payload: %w", err)
	utils.JSONError(c, http.StatusBadRequest, wrappedErr, "invalid request payload")
	utils.Warn(handlerName+": binding error", map[string]any{"error": err.Error()})
}

// MapErrorToHTTP maps domain/service errors to HTTP status code and message
func MapErrorToHTTP(err error) (int, string) {
	switch {
	case errors.Is(err, auctionerrors.ErrValidation):
		return http.StatusBadRequest, "invalid request"
	case errors.Is(err, auctionerrors.ErrUnauthenticated):
		return http.StatusUnauthorized, "authentication required"
	case errors.Is(err, auctionerrors.ErrForbidden):
		return http.StatusForbidden, "not allowed"
	case errors.Is(err, auctionerrors.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, auctionerrors.ErrAuctionClosed):
		return http.StatusConflict, "auction is not accepting bids"
	case errors.Is(err, auctionerrors.ErrInvalidState):
		return http.StatusConflict, "auction is already closed"
	case errors.Is(err, auctionerrors.ErrConditionFailed):
		return http.StatusConflict, "auction changed concurrently"
	case errors.Is(err, auctionerrors.ErrAuctionHasBids):
		return http.StatusConflict, "auction already has bids"
	case errors.Is(err, auctionerrors.ErrConflict):
		return http.StatusConflict, "already exists"
	case errors.Is(err, auctionerrors.ErrSelfBid):
		return http.StatusUnprocessableEntity, "cannot bid on your own auction"
	case errors.Is(err, auctionerrors.ErrBidMismatch):
		return http.StatusUnprocessableEntity, "bid does not belong to this auction"
	case errors.Is(err, auctionerrors.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "storage temporarily unavailable"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// HandleServiceError maps err to a JSON error response and logs it with ctx
func HandleServiceError(c *gin.Context, handlerName string, err error, ctx map[string]any) {
	status, message := MapErrorToHTTP(err)
	utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)

	if ctx == nil {
		ctx = map[string]any{}
	}
	ctx["handler"] = handlerName
	ctx["error"] = err.Error()
	if status >= http.StatusInternalServerError {
		utils.Error(handlerName+": request failed", ctx)
		return
	}
	utils.Warn(handlerName+": request rejected", ctx)
}

// LogSuccess is a small helper to standardize logging of successful operations
func LogSuccess(handlerName, message string, ctx map[string]any) {
	utils.Info(handlerName+": "+message, ctx)
}

// BearerToken extracts the token of an "Authorization: Bearer <token>" header
func BearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// CallerID returns the account ID set by the authentication middleware
func CallerID(c *gin.Context) string {
	return c.GetString(AccountIDKey)
}

// ToBidResponse formats a bid for the wire
func ToBidResponse(bid model.Bid) BidResponse {
	return BidResponse{
		BidID:           bid.BidID,
		AuctionID:       bid.AuctionID,
		BidderID:        bid.BidderID,
		ItemName:        bid.ItemName,
		ItemDescription: bid.ItemDescription,
		ItemImage:       bid.ItemImage,
		CreatedAt:       bid.CreatedAt.UTC().Format(time.RFC3339),
	}
}
