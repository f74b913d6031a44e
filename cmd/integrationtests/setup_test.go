package integrationtests

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	account "auction-market/internal/accountService"
	auction "auction-market/internal/auctionService"
	"auction-market/internal/repository"
	"auction-market/internal/server"
	"auction-market/internal/session"
	"auction-market/services/auction/helpers"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// backend builds the AuctionDB a test router runs on
type backend struct {
	name    string
	newRepo func(t *testing.T) repository.AuctionDB
}

var backends = []backend{
	{
		name:    "memory",
		newRepo: func(t *testing.T) repository.AuctionDB { return repository.NewMemoryRepo() },
	},
	{
		name: "sqlite",
		newRepo: func(t *testing.T) repository.AuctionDB {
			ctx := context.Background()
			db, err := repository.OpenSQLite(ctx, filepath.Join(t.TempDir(), "auction.db"))
			require.NoError(t, err)
			require.NoError(t, repository.Migrate(ctx, db))
			repo := repository.NewSQLRepo(db)
			t.Cleanup(func() { _ = repo.Close() })
			return repo
		},
	},
}

// SetupTestRouter initializes the router over repo with in-memory sessions
func SetupTestRouter(repo repository.AuctionDB, opts ...auction.Option) *gin.Engine {
	gin.SetMode(gin.TestMode)
	auctionSvc := auction.NewAuctionService(repo, opts...)
	accountSvc := account.NewAccountService(repo, session.NewMemoryStore(), time.Hour, account.WithHashCost(bcrypt.MinCost))
	return server.SetupRouter(auctionSvc, accountSvc)
}

// ExecuteRequestAndParse executes an HTTP request on the given router and parses the response envelope
func ExecuteRequestAndParse(t *testing.T, router *gin.Engine, method, url, token string, body any) (map[string]any, *httptest.ResponseRecorder) {
	t.Helper()

	var reqBody []byte
	switch v := body.(type) {
	case nil:
	case string:
		reqBody = []byte(v)
	default:
		var err error
		reqBody, err = json.Marshal(v)
		require.NoError(t, err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, url, bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	router.ServeHTTP(w, req)

	var resp map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), "body: %s", w.Body.String())
	}
	return resp, w
}

// user is a registered and logged-in account
type user struct {
	ID    string
	Token string
}

// RegisterAndLogin creates an account through the API and returns its session
func RegisterAndLogin(t *testing.T, router *gin.Engine, username string) user {
	t.Helper()

	_, w := ExecuteRequestAndParse(t, router, http.MethodPost, "/accounts", "", helpers.RegisterRequest{
		Username: username,
		Email:    fmt.Sprintf("%s@example.com", username),
		Password: "password1",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	resp, w := ExecuteRequestAndParse(t, router, http.MethodPost, "/sessions", "", helpers.LoginRequest{
		Username: username,
		Password: "password1",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	data := resp["data"].(map[string]any)
	return user{ID: data["account_id"].(string), Token: data["token"].(string)}
}

// CreateAuction opens an auction owned by u and returns its ID
func CreateAuction(t *testing.T, router *gin.Engine, u user, start, end time.Time) string {
	t.Helper()

	resp, w := ExecuteRequestAndParse(t, router, http.MethodPost, "/auctions", u.Token, helpers.CreateAuctionRequest{
		Title:       "Record player",
		Description: "Turntable with spare needle",
		StartAt:     start.UTC().Format(time.RFC3339),
		EndAt:       end.UTC().Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return resp["data"].(map[string]any)["auction_id"].(string)
}

// PlaceBid submits a bid as u and returns the response recorder and bid ID, if any
func PlaceBid(t *testing.T, router *gin.Engine, u user, auctionID, item string) (*httptest.ResponseRecorder, string) {
	t.Helper()

	resp, w := ExecuteRequestAndParse(t, router, http.MethodPost, "/auctions/"+auctionID+"/bids", u.Token, helpers.PlaceBidRequest{
		ItemName:        item,
		ItemDescription: item + " to trade",
	})
	if w.Code != http.StatusCreated {
		return w, ""
	}
	return w, resp["data"].(map[string]any)["bid_id"].(string)
}
