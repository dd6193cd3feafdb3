package routes

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"synthmint/config"
	"synthmint/native/bank"
	"synthmint/native/mint"
	"synthmint/native/oracle"
	"synthmint/native/reward"
	"synthmint/observability"
)

const defaultBodyLimit = 1 << 16

var errInvalidRatio = errors.New("ratioBps must be a positive integer")

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	respondJSON(w, status, map[string]string{"error": err.Error()})
}

func writeDomainError(w http.ResponseWriter, err error) {
	writeError(w, statusForError(err), err)
}

// statusForError maps domain failures onto stable HTTP statuses: 400 for
// malformed requests, 403 for authorization, 422 for tokens the protocol
// will not take, 409 for invariant and balance conflicts.
func statusForError(err error) int {
	switch {
	case errors.Is(err, mint.ErrInvalidAmount),
		errors.Is(err, mint.ErrUnknownToken),
		errors.Is(err, mint.ErrAmountTooLow),
		errors.Is(err, reward.ErrInvalidRewardRate),
		errors.Is(err, oracle.ErrInvalidPrice),
		errors.Is(err, bank.ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, reward.ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, mint.ErrTokenNotEligible),
		errors.Is(err, mint.ErrMintingProhibited),
		errors.Is(err, mint.ErrTokenNoValue):
		return http.StatusUnprocessableEntity
	case errors.Is(err, mint.ErrInsufficientCollateralBalance),
		errors.Is(err, mint.ErrInsufficientDebtOutstanding),
		errors.Is(err, mint.ErrCollateralRatioBroken),
		errors.Is(err, mint.ErrInsufficientCollateralValue),
		errors.Is(err, mint.ErrInsufficientBalance),
		errors.Is(err, bank.ErrInsufficientBalance),
		errors.Is(err, bank.ErrInsufficientAllowance),
		errors.Is(err, reward.ErrTooEarly),
		errors.Is(err, reward.ErrNoRewardsUnlocked),
		errors.Is(err, reward.ErrRewardsDepleted),
		errors.Is(err, reward.ErrNoRewardsEarned),
		errors.Is(err, reward.ErrClaimRejected):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (d Deps) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	limit := d.MaxBodyBytes
	if limit <= 0 {
		limit = defaultBodyLimit
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func parseAddressField(name, raw string) (common.Address, error) {
	addr, err := config.ParseAddress(raw)
	if err != nil {
		return common.Address{}, fmt.Errorf("%s: %w", name, err)
	}
	return addr, nil
}

func parseAmountField(name, raw string) (*big.Int, error) {
	amount, err := config.ParseAmount(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return amount, nil
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// instrument records operation counters and latency for a handler.
func instrument(operation string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)
		observability.Protocol().Observe(operation, rec.status, time.Since(start))
	}
}
