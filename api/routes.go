package api

// registerRoutes registers all API routes. Reads are public; every route that
// changes state requires the X-Caller header.
func (s *Server) registerRoutes() {
	s.router.GET("/ws", s.handleWebSocket)

	api := s.router.Group("/api")
	{
		api.GET("/status", s.handleStatus)
		api.GET("/params", s.handleGetParams)
		api.PUT("/params", CallerMiddleware(), s.handleUpdateParams)
		api.GET("/pairs/:token_a/:token_b", s.handleGetVaultByPair)
		api.GET("/accounts/:address", s.handleGetAccount)

		if s.config.FaucetEnabled {
			api.POST("/faucet", s.handleFaucet)
		}

		vaults := api.Group("/vaults")
		{
			vaults.GET("", s.handleListVaults)
			vaults.POST("", CallerMiddleware(), s.handleCreateVault)
		}

		vault := vaults.Group("/:id")
		{
			vault.GET("", s.handleGetVault)

			// Fee model and admin controls
			vault.GET("/fees", s.handleGetFees)
			vault.POST("/fee", CallerMiddleware(), s.handleSetFee)
			vault.POST("/pause", CallerMiddleware(), s.handlePause)
			vault.POST("/resume", CallerMiddleware(), s.handleResume)

			// Order books
			vault.GET("/book/:token", s.handleGetBook)
			vault.GET("/book/:token/prices", s.handleGetPrices)
			vault.GET("/book/:token/level", s.handleGetLevel)

			// Orders
			vault.GET("/orders/:order_id", s.handleGetOrder)
			vault.GET("/owners/:owner", s.handleGetOwnerOrders)
			protected := vault.Group("")
			protected.Use(CallerMiddleware())
			{
				protected.POST("/orders", s.handleNewOrder)
				protected.POST("/orders/:order_id/cancel", s.handleCancelOrder)
				protected.POST("/orders/:order_id/transfer", s.handleTransferOrder)
				protected.POST("/orders/:order_id/approve", s.handleApprove)
				protected.POST("/operators", s.handleSetOperator)
			}

			// Trading
			vault.GET("/quote/:token", s.handleQuote)
			vault.POST("/buy", CallerMiddleware(), s.handleBuy)
			vault.GET("/arbitrage/:token", s.handleArbitrageQuote)
			vault.POST("/arbitrage", CallerMiddleware(), s.handleArbitrage)

			// Withdrawable balances
			vault.GET("/balances/:trader/:token", s.handleGetTraderBalance)
			vault.POST("/withdraw", CallerMiddleware(), s.handleWithdraw)
			vault.POST("/withdraw-for", CallerMiddleware(), s.handleWithdrawFor)
		}
	}
}
