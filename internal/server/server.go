package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/MarkoPoloResearchLab/cardbank/internal/store/gormstore"
	"github.com/MarkoPoloResearchLab/cardbank/pkg/cardstore"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Run boots the HTTP service using the supplied configuration and account
// store. It blocks until ctx is cancelled or the listener fails.
func Run(ctx context.Context, cfg Config, accounts *gormstore.Store, logger *zap.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	handler := &httpHandler{
		logger:   logger,
		accounts: accounts,
	}
	router := setupRouter(cfg, handler)

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("cardbankd listening", zap.String("addr", cfg.ListenAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Warn("server shutdown error", zap.Error(shutdownErr))
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func setupRouter(cfg Config, handler *httpHandler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Origin", "Accept", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/api/check", handler.handleCheck)

	api := router.Group("/api")
	api.Use(bearerAuth([]byte(cfg.ClientKey), cfg.TokenIssuer))

	api.GET("/accounts", handler.handleAccounts)
	api.POST("/account/create", handler.handleCreate)
	api.POST("/account/deposit", handler.handleDeposit)
	api.POST("/account/withdraw", handler.handleWithdraw)
	api.POST("/account/transfer", handler.handleTransfer)
	api.POST("/account/sync", handler.handleSync)
	api.DELETE("/account/:uuid", handler.handleDelete)

	return router
}

type httpHandler struct {
	logger   *zap.Logger
	accounts *gormstore.Store
}

func (handler *httpHandler) handleCheck(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (handler *httpHandler) handleAccounts(ctx *gin.Context) {
	rows, err := handler.accounts.ListAll(ctx.Request.Context())
	if err != nil {
		handler.respondStoreError(ctx, err)
		return
	}
	accounts := make([]accountPayload, 0, len(rows))
	for _, row := range rows {
		accounts = append(accounts, accountPayload{
			UUID:         row.UUID,
			BalanceCents: row.BalanceCents,
		})
	}
	ctx.JSON(http.StatusOK, snapshotResponse{
		Success:  true,
		Count:    len(accounts),
		Accounts: accounts,
	})
}

func (handler *httpHandler) handleCreate(ctx *gin.Context) {
	var request createRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return
	}
	var id cardstore.AccountID
	if request.UUID != "" {
		parsed, err := cardstore.NewAccountID(request.UUID)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, errorResponse("invalid_uuid", "uuid must be canonical"))
			return
		}
		id = parsed
	}
	account, err := handler.accounts.CreateAccount(ctx.Request.Context(), id, request.BalanceCents)
	if err != nil {
		handler.respondStoreError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{
		"success": true,
		"account": accountPayload{UUID: account.UUID, BalanceCents: account.BalanceCents},
	})
}

func (handler *httpHandler) handleDeposit(ctx *gin.Context) {
	id, amount, ok := handler.bindAmountRequest(ctx)
	if !ok {
		return
	}
	balance, err := handler.accounts.Deposit(ctx.Request.Context(), id, amount)
	if err != nil {
		handler.respondStoreError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"success": true, "uuid": id.String(), "balance_cents": balance})
}

func (handler *httpHandler) handleWithdraw(ctx *gin.Context) {
	id, amount, ok := handler.bindAmountRequest(ctx)
	if !ok {
		return
	}
	balance, err := handler.accounts.Withdraw(ctx.Request.Context(), id, amount)
	if err != nil {
		handler.respondStoreError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"success": true, "uuid": id.String(), "balance_cents": balance})
}

func (handler *httpHandler) handleTransfer(ctx *gin.Context) {
	var request transferRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return
	}
	from, err := cardstore.NewAccountID(request.UUIDFrom)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_uuid", "uuid_from must be canonical"))
		return
	}
	to, err := cardstore.NewAccountID(request.UUIDTo)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_uuid", "uuid_to must be canonical"))
		return
	}
	amount, err := cardstore.NewAmountCents(request.AmountCents)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_amount", "amount_cents must be positive"))
		return
	}
	if err := handler.accounts.Transfer(ctx.Request.Context(), from, to, amount.Uint64()); err != nil {
		handler.respondStoreError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"success": true})
}

func (handler *httpHandler) handleSync(ctx *gin.Context) {
	var request syncRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return
	}
	id, err := cardstore.NewAccountID(request.UUID)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_uuid", "uuid must be canonical"))
		return
	}
	if err := handler.accounts.Sync(ctx.Request.Context(), id, request.BalanceCents); err != nil {
		handler.respondStoreError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"success": true})
}

func (handler *httpHandler) handleDelete(ctx *gin.Context) {
	id, err := cardstore.NewAccountID(ctx.Param("uuid"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_uuid", "uuid must be canonical"))
		return
	}
	if err := handler.accounts.Delete(ctx.Request.Context(), id); err != nil {
		handler.respondStoreError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"success": true})
}

func (handler *httpHandler) bindAmountRequest(ctx *gin.Context) (cardstore.AccountID, uint64, bool) {
	var request amountRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return cardstore.AccountID{}, 0, false
	}
	id, err := cardstore.NewAccountID(request.UUID)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_uuid", "uuid must be canonical"))
		return cardstore.AccountID{}, 0, false
	}
	amount, err := cardstore.NewAmountCents(request.AmountCents)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_amount", "amount_cents must be positive"))
		return cardstore.AccountID{}, 0, false
	}
	return id, amount.Uint64(), true
}

func (handler *httpHandler) respondStoreError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, cardstore.ErrNotFound):
		ctx.JSON(http.StatusNotFound, errorResponse("not_found", "account not found"))
	case errors.Is(err, cardstore.ErrInsufficientFunds):
		ctx.JSON(http.StatusBadRequest, errorResponse("insufficient_funds", "balance too low"))
	case errors.Is(err, cardstore.ErrSameAccount):
		ctx.JSON(http.StatusBadRequest, errorResponse("same_account", "source and destination match"))
	case errors.Is(err, gormstore.ErrAccountExists):
		ctx.JSON(http.StatusConflict, errorResponse("account_exists", "uuid already registered"))
	default:
		handler.logger.Error("account store operation failed", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, errorResponse("store_error", "operation failed"))
	}
}

func errorResponse(code string, message string) gin.H {
	return gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
}

type createRequest struct {
	UUID         string `json:"uuid"`
	BalanceCents uint64 `json:"balance_cents"`
}

type amountRequest struct {
	UUID        string `json:"uuid"`
	AmountCents uint64 `json:"amount_cents"`
}

type transferRequest struct {
	UUIDFrom    string `json:"uuid_from"`
	UUIDTo      string `json:"uuid_to"`
	AmountCents uint64 `json:"amount_cents"`
}

type syncRequest struct {
	UUID         string `json:"uuid"`
	BalanceCents uint64 `json:"balance_cents"`
}

type snapshotResponse struct {
	Success  bool             `json:"success"`
	Count    int              `json:"count"`
	Accounts []accountPayload `json:"accounts"`
}

type accountPayload struct {
	UUID         string `json:"uuid"`
	BalanceCents uint64 `json:"balance_cents"`
}
