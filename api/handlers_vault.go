package api

import (
	"context"
	"fmt"
	"net/http"

	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/gin-gonic/gin"

	"github.com/paw-chain/vaultbook/x/vault/types"
)

// pathID parses a numeric path parameter, answering 400 when it is malformed
func pathID(c *gin.Context, name string) (uint64, bool) {
	id, err := ParseID(c.Param(name))
	if err != nil {
		writeBadRequest(c, "INVALID_ID", fmt.Errorf("%s: %w", name, err))
		return 0, false
	}
	return id, true
}

// callerOf returns the caller set by CallerMiddleware
func callerOf(c *gin.Context) (sdk.AccAddress, bool) {
	caller, err := GetCallerFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error: err.Error(),
			Code:  "CALLER_REQUIRED",
		})
		return nil, false
	}
	return caller, true
}

// handleListVaults lists every vault, or those trading ?token=
func (s *Server) handleListVaults(c *gin.Context) {
	token := c.Query("token")
	if token != "" {
		if err := ValidateDenom(token); err != nil {
			writeBadRequest(c, "INVALID_TOKEN", err)
			return
		}
	}

	var vaults []types.Vault
	err := s.query(func(ctx sdk.Context) error {
		var err error
		if token == "" {
			vaults, err = s.ledger.VaultKeeper.Vaults(ctx)
		} else {
			vaults, err = s.ledger.VaultKeeper.VaultsForToken(ctx, token)
		}
		return err
	})
	if err != nil {
		writeError(c, err)
		return
	}
	if vaults == nil {
		vaults = []types.Vault{}
	}

	c.JSON(http.StatusOK, VaultsResponse{Vaults: vaults, Count: len(vaults)})
}

// handleCreateVault opens a vault for a token pair
func (s *Server) handleCreateVault(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}
	var req CreateVaultRequest
	if err := ValidateAndBindJSON(c, &req); err != nil {
		writeBadRequest(c, "INVALID_REQUEST", err)
		return
	}
	var p requestParser
	tokenA := p.denom("token_a", req.TokenA)
	tokenB := p.denom("token_b", req.TokenB)
	if !p.ok(c) {
		return
	}

	var vault types.Vault
	block, err := s.deliver(c, "create_vault", func(ctx sdk.Context) error {
		var err error
		vault, err = s.ledger.VaultKeeper.CreateVault(ctx, caller, tokenA, tokenB)
		return err
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, VaultResponse{Vault: vault, Height: block.Height})
}

// handleGetVault returns one vault
func (s *Server) handleGetVault(c *gin.Context) {
	vaultID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var resp VaultResponse
	err := s.query(func(ctx sdk.Context) error {
		vault, found := s.ledger.VaultKeeper.GetVault(ctx, vaultID)
		if !found {
			return types.ErrVaultNotFound.Wrapf("vault %d", vaultID)
		}
		resp = VaultResponse{Vault: vault, Height: ctx.BlockHeight()}
		return nil
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// handleGetVaultByPair looks a vault up by its tokens, in either order
func (s *Server) handleGetVaultByPair(c *gin.Context) {
	var p requestParser
	tokenA := p.denom("token_a", c.Param("token_a"))
	tokenB := p.denom("token_b", c.Param("token_b"))
	if !p.ok(c) {
		return
	}

	var resp VaultResponse
	err := s.query(func(ctx sdk.Context) error {
		vault, found := s.ledger.VaultKeeper.GetVaultByPair(ctx, tokenA, tokenB)
		if !found {
			return types.ErrVaultNotFound.Wrapf("no vault for %s/%s", tokenA, tokenB)
		}
		resp = VaultResponse{Vault: vault, Height: ctx.BlockHeight()}
		return nil
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// handleGetFees returns the fee model, plus the fee arithmetic on ?amount=
func (s *Server) handleGetFees(c *gin.Context) {
	vaultID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var p requestParser
	amount := p.optionalAmount("amount", c.Query("amount"))
	if !p.ok(c) {
		return
	}
	withAmount := c.Query("amount") != ""

	var resp FeesResponse
	err := s.query(func(ctx sdk.Context) error {
		k := s.ledger.VaultKeeper
		fees, err := k.FeeModel(ctx, vaultID)
		if err != nil {
			return err
		}
		resp.FeePercentage = fees.Percentage
		if !withAmount {
			return nil
		}

		resp.Amount = &amount
		feeOf, err := fees.FeeOf(amount)
		if err != nil {
			return err
		}
		feeFor, err := fees.FeeFor(amount)
		if err != nil {
			return err
		}
		withFee, err := fees.WithFee(amount)
		if err != nil {
			return err
		}
		withoutFee, err := fees.WithoutFee(amount)
		if err != nil {
			return err
		}
		resp.FeeOf, resp.FeeFor, resp.WithFee, resp.WithoutFee = &feeOf, &feeFor, &withFee, &withoutFee
		return nil
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// handleSetFee lowers the fee of a vault
func (s *Server) handleSetFee(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}
	vaultID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req SetFeeRequest
	if err := ValidateAndBindJSON(c, &req); err != nil {
		writeBadRequest(c, "INVALID_REQUEST", err)
		return
	}
	var p requestParser
	fee := p.amount("fee_percentage", req.FeePercentage)
	if !p.ok(c) {
		return
	}

	block, err := s.deliver(c, "set_fee", func(ctx sdk.Context) error {
		return s.ledger.VaultKeeper.SetFeePercentage(ctx, caller, vaultID, fee)
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Success: true, Height: block.Height})
}

// handlePause halts trading on a vault
func (s *Server) handlePause(c *gin.Context) {
	s.handleTradingSwitch(c, "pause_trading", s.ledger.VaultKeeper.PauseTrading)
}

// handleResume resumes trading on a vault
func (s *Server) handleResume(c *gin.Context) {
	s.handleTradingSwitch(c, "resume_trading", s.ledger.VaultKeeper.ResumeTrading)
}

func (s *Server) handleTradingSwitch(c *gin.Context, op string, flip func(ctx context.Context, caller sdk.AccAddress, vaultID uint64) error) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}
	vaultID, ok := pathID(c, "id")
	if !ok {
		return
	}

	block, err := s.deliver(c, op, func(ctx sdk.Context) error {
		return flip(ctx, caller, vaultID)
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Success: true, Height: block.Height})
}

// handleGetParams returns the registry identities and default fee
func (s *Server) handleGetParams(c *gin.Context) {
	var params types.Params
	err := s.query(func(ctx sdk.Context) error {
		var err error
		params, err = s.ledger.VaultKeeper.GetParams(ctx)
		return err
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, params)
}

// handleUpdateParams replaces the params; only the admin may call it
func (s *Server) handleUpdateParams(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}
	var params types.Params
	if err := ValidateAndBindJSON(c, &params); err != nil {
		writeBadRequest(c, "INVALID_REQUEST", err)
		return
	}

	block, err := s.deliver(c, "update_params", func(ctx sdk.Context) error {
		return s.ledger.VaultKeeper.UpdateParams(ctx, caller, params)
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Success: true, Height: block.Height})
}
