package server

import (
	account "auction-market/internal/accountService"
	auction "auction-market/internal/auctionService"
	handler "auction-market/services/auction/handler"

	"github.com/gin-gonic/gin"
)

// SetupRouter configures all Gin routes for the application
func SetupRouter(auctionService *auction.AuctionService, accountService *account.AccountService) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())          // recover from panics
	router.Use(RequestLoggerMiddleware) // custom request logging

	auctionHandler := handler.NewAuctionHandler(auctionService)
	accountHandler := handler.NewAccountHandler(accountService)
	requireAuth := AuthMiddleware(accountService)

	router.POST("/accounts", accountHandler.RegisterHandler)
	router.POST("/sessions", accountHandler.LoginHandler)
	router.DELETE("/sessions", requireAuth, accountHandler.LogoutHandler)

	me := router.Group("/me", requireAuth)
	{
		me.GET("", accountHandler.GetProfileHandler)
		me.PATCH("", accountHandler.UpdateProfileHandler)
	}

	auctions := router.Group("/auctions")
	{
		auctions.GET("", auctionHandler.ListOpenAuctionsHandler)
		auctions.GET("/:auction_id", auctionHandler.GetAuctionHandler)
		auctions.GET("/:auction_id/bids", auctionHandler.GetBidsForAuctionHandler)

		auctions.POST("", requireAuth, auctionHandler.CreateAuctionHandler)
		auctions.PATCH("/:auction_id", requireAuth, auctionHandler.EditAuctionHandler)
		auctions.DELETE("/:auction_id", requireAuth, auctionHandler.DeleteAuctionHandler)
		auctions.POST("/:auction_id/bids", requireAuth, auctionHandler.SubmitBidHandler)
		auctions.POST("/:auction_id/winner", requireAuth, auctionHandler.ChooseWinnerHandler)
	}

	users := router.Group("/users")
	{
		users.GET("/:user_id/auctions", auctionHandler.ListAuctionsByOwnerHandler)
		users.GET("/:user_id/winning-bids", auctionHandler.ListWinningBidsHandler)
	}

	return router
}
