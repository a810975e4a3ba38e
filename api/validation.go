package api

import (
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/gin-gonic/gin"

	"github.com/paw-chain/vaultbook/x/vault/types"
)

// Validation constants
const (
	MaxRequestSize   = 1 << 20 // 1 MB
	MaxAmountLength  = 78      // digits of 2^256
	MaxAddressLength = 100
	DefaultPageLimit = 50
	MaxPageLimit     = 500
)

var (
	// Unsigned decimal integer
	uintRegex = regexp.MustCompile(`^[0-9]+$`)
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors holds multiple validation errors
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v *ValidationErrors) Add(field, message string) {
	v.Errors = append(v.Errors, ValidationError{
		Field:   field,
		Message: message,
	})
}

func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

func (v *ValidationErrors) Error() string {
	if !v.HasErrors() {
		return ""
	}
	var sb strings.Builder
	for i, err := range v.Errors {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(fmt.Sprintf("%s: %s", err.Field, err.Message))
	}
	return sb.String()
}

// =================== Amount Validation ===================

// ParseAmount parses a non-negative integer amount of base units below 2^256.
func ParseAmount(amount string) (math.Int, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return math.Int{}, fmt.Errorf("amount is required")
	}
	if len(amount) > MaxAmountLength {
		return math.Int{}, fmt.Errorf("amount too long")
	}
	if !uintRegex.MatchString(amount) {
		return math.Int{}, fmt.Errorf("amount must be an unsigned integer of base units")
	}
	v, ok := math.NewIntFromString(amount)
	if !ok || !types.IsUint256(v) {
		return math.Int{}, fmt.Errorf("amount out of range")
	}
	return v, nil
}

// =================== Address Validation ===================

// ParseAddress parses a bech32 account address.
func ParseAddress(address string) (sdk.AccAddress, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, fmt.Errorf("address is required")
	}
	if len(address) > MaxAddressLength {
		return nil, fmt.Errorf("address too long")
	}
	addr, err := sdk.AccAddressFromBech32(address)
	if err != nil {
		return nil, fmt.Errorf("invalid address: %w", err)
	}
	return addr, nil
}

// =================== Token/Denom Validation ===================

// ValidateDenom validates a bank denomination
func ValidateDenom(denom string) error {
	if denom == "" {
		return fmt.Errorf("denom is required")
	}
	return sdk.ValidateDenom(denom)
}

// =================== Request Parsing ===================

// requestParser collects every field error of a request before responding.
type requestParser struct {
	errs ValidationErrors
}

// amount parses a required amount.
func (p *requestParser) amount(field, value string) math.Int {
	v, err := ParseAmount(value)
	if err != nil {
		p.errs.Add(field, err.Error())
		return math.ZeroInt()
	}
	return v
}

// optionalAmount parses an amount that defaults to zero.
func (p *requestParser) optionalAmount(field, value string) math.Int {
	if strings.TrimSpace(value) == "" {
		return math.ZeroInt()
	}
	return p.amount(field, value)
}

// address parses a required address.
func (p *requestParser) address(field, value string) sdk.AccAddress {
	addr, err := ParseAddress(value)
	if err != nil {
		p.errs.Add(field, err.Error())
		return nil
	}
	return addr
}

// optionalAddress parses an address that may be left empty.
func (p *requestParser) optionalAddress(field, value string) sdk.AccAddress {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return p.address(field, value)
}

func (p *requestParser) denom(field, value string) string {
	if err := ValidateDenom(value); err != nil {
		p.errs.Add(field, err.Error())
	}
	return value
}

// ok writes a 400 listing every field error and reports whether parsing succeeded.
func (p *requestParser) ok(c *gin.Context) bool {
	if !p.errs.HasErrors() {
		return true
	}
	c.JSON(http.StatusBadRequest, gin.H{
		"error":  "Invalid request",
		"code":   "INVALID_REQUEST",
		"fields": p.errs.Errors,
	})
	return false
}

// =================== Query Parameter Validation ===================

// ValidateLimit validates limit query parameter
func ValidateLimit(limitStr string, defaultLimit, maxLimit int) int {
	limit := defaultLimit
	if limitStr != "" && uintRegex.MatchString(limitStr) {
		if v, err := strconv.Atoi(limitStr); err == nil {
			limit = v
		}
	}

	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	return limit
}

// ValidateOffset parses an offset query parameter, defaulting to zero.
func ValidateOffset(offsetStr string) (uint64, error) {
	if offsetStr == "" {
		return 0, nil
	}
	if !uintRegex.MatchString(offsetStr) {
		return 0, fmt.Errorf("offset must be an unsigned integer")
	}
	return strconv.ParseUint(offsetStr, 10, 64)
}

// ParseID parses a vault or order id path parameter.
func ParseID(idStr string) (uint64, error) {
	if !uintRegex.MatchString(idStr) {
		return 0, fmt.Errorf("id must be an unsigned integer")
	}
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("id out of range")
	}
	return id, nil
}

// =================== Helper Function for Gin Context ===================

// ValidateAndBindJSON validates and binds JSON with size limit
func ValidateAndBindJSON(c *gin.Context, obj interface{}) error {
	if c.Request.ContentLength > MaxRequestSize {
		return fmt.Errorf("request body too large (max %d bytes)", MaxRequestSize)
	}

	if err := c.ShouldBindJSON(obj); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	return nil
}

// GetCallerFromContext returns the caller identity set by CallerMiddleware.
func GetCallerFromContext(c *gin.Context) (sdk.AccAddress, error) {
	v, exists := c.Get(ContextKeyCaller)
	if !exists {
		return nil, fmt.Errorf("caller not identified")
	}
	caller, ok := v.(sdk.AccAddress)
	if !ok || caller.Empty() {
		return nil, fmt.Errorf("invalid caller context")
	}
	return caller, nil
}
