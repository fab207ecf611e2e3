package domain

import (
	"errors"
	"fmt"

	fp "github.com/evetabi/amm/internal/fixedpoint"
)

// ──────────────────────────────────────────────────────────────────────────────
// Sentinel errors: compare with errors.Is()
// ──────────────────────────────────────────────────────────────────────────────

// Market errors
var (
	// ErrMarketNotFound is returned when no market matches the given ID.
	ErrMarketNotFound = errors.New("market not found")

	// ErrMarketResolved is returned when a buy or sell is attempted on a
	// resolved market.
	ErrMarketResolved = errors.New("market is resolved: trading is closed")

	// ErrMarketNotResolved is returned by redeem before resolution.
	ErrMarketNotResolved = errors.New("market is not resolved yet")

	// ErrMarketAlreadyResolved is returned when trying to resolve twice.
	ErrMarketAlreadyResolved = errors.New("market is already resolved")

	// ErrResolutionTooEarly is returned when the oracle resolves before the
	// market's resolution time.
	ErrResolutionTooEarly = errors.New("resolution time has not been reached")

	// ErrFeesLocked is returned when the creator claims fees before the
	// market is resolved or its resolution time has passed.
	ErrFeesLocked = errors.New("creator fees are not claimable yet")

	// ErrInsufficientCollateral is returned when the market cannot cover a
	// payout from its collateral balance.
	ErrInsufficientCollateral = errors.New("market collateral is insufficient for payout")
)

// Permission errors
var (
	// ErrNotOracle is returned when someone other than the oracle resolves.
	ErrNotOracle = errors.New("caller is not the market oracle")

	// ErrNotCreator is returned when someone other than the creator claims fees.
	ErrNotCreator = errors.New("caller is not the market creator")
)

// Validation errors
var (
	// ErrInvalidMarketParams is returned when creation parameters are out of range.
	ErrInvalidMarketParams = errors.New("invalid market parameters")

	// ErrInsufficientBuffer is returned when the creator's liquidity deposit
	// does not cover the cost of the initial share state.
	ErrInsufficientBuffer = errors.New("liquidity deposit below required collateral buffer")

	// ErrInvalidAmount is returned for zero or negative trade amounts.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrZeroShares is returned when a payment is too small to buy any shares.
	ErrZeroShares = errors.New("payment buys zero shares")

	// ErrInsufficientShares is returned when a holder sells more than they own.
	ErrInsufficientShares = errors.New("insufficient shares")

	// ErrInvalidOutcome is returned when the side is not YES or NO.
	ErrInvalidOutcome = errors.New("invalid outcome: must be YES or NO")

	// ErrInvalidAccount is returned for a missing or malformed account address.
	ErrInvalidAccount = errors.New("invalid account address")
)

// ErrSlippage is the sentinel wrapped by every *SlippageError.
var ErrSlippage = errors.New("slippage bound violated")

// ──────────────────────────────────────────────────────────────────────────────
// SlippageError
// ──────────────────────────────────────────────────────────────────────────────

// SlippageError reports which caller bound was missed and by how much.
// Bound is "min_shares" for buys and "min_payout" for sells.
type SlippageError struct {
	Bound string
	Min   fp.Amount
	Got   fp.Amount
}

func (e *SlippageError) Error() string {
	return fmt.Sprintf("%s: %s below %s %s", ErrSlippage, e.Got, e.Bound, e.Min)
}

// Unwrap lets errors.Is(err, ErrSlippage) match.
func (e *SlippageError) Unwrap() error { return ErrSlippage }

// ──────────────────────────────────────────────────────────────────────────────
// Helper predicates
// ──────────────────────────────────────────────────────────────────────────────

func isAny(err error, targets ...error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsNotFound returns true when err (or any error in its chain) is a domain
// "not found" error. Handlers translate these to HTTP 404.
func IsNotFound(err error) bool {
	return isAny(err, ErrMarketNotFound)
}

// IsConflict returns true for errors caused by the market's lifecycle state
// rather than the request itself.
func IsConflict(err error) bool {
	return isAny(err,
		ErrMarketResolved,
		ErrMarketNotResolved,
		ErrMarketAlreadyResolved,
		ErrResolutionTooEarly,
		ErrFeesLocked,
		ErrInsufficientCollateral,
	)
}

// IsPermission returns true when the caller lacks the identity an operation
// requires.
func IsPermission(err error) bool {
	return isAny(err, ErrNotOracle, ErrNotCreator)
}

// IsSlippage returns true for slippage bound violations.
func IsSlippage(err error) bool {
	return errors.Is(err, ErrSlippage)
}

// IsValidation returns true for malformed or out-of-range requests.
func IsValidation(err error) bool {
	return isAny(err,
		ErrInvalidMarketParams,
		ErrInsufficientBuffer,
		ErrInvalidAmount,
		ErrZeroShares,
		ErrInsufficientShares,
		ErrInvalidOutcome,
		ErrInvalidAccount,
	)
}
