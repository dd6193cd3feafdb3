package routes

import (
	"math/big"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
)

type mintRoutes struct {
	deps Deps
}

func (mr *mintRoutes) mount(r chi.Router) {
	r.Post("/deposit", instrument("mint.deposit", mr.deposit))
	r.Post("/withdraw", instrument("mint.withdraw", mr.withdraw))
	r.Post("/mint", instrument("mint.mint", mr.mint))
	r.Post("/repay", instrument("mint.repay", mr.repay))
	r.Post("/withdraw-max", instrument("mint.withdraw_max", mr.withdrawMax))
	r.Post("/mint-max", instrument("mint.mint_max", mr.mintMax))
	r.Post("/repay-max", instrument("mint.repay_max", mr.repayMax))
	r.Post("/probe/collateral-decrease", instrument("mint.probe", mr.probeCollateralDecrease))
	r.Post("/probe/debt-increase", instrument("mint.probe", mr.probeDebtIncrease))
	r.Get("/position/{account}", instrument("mint.position", mr.position))
	r.Get("/collateral/{account}/{token}", instrument("mint.balance", mr.collateralBalance))
	r.Get("/debt/{account}/{token}", instrument("mint.balance", mr.debtBalance))
	r.Get("/limits/{account}/{token}", instrument("mint.limits", mr.limits))
	r.Get("/totals", instrument("mint.totals", mr.totals))
}

type positionRequest struct {
	Account string `json:"account"`
	Token   string `json:"token"`
	Amount  string `json:"amount"`
}

type probeRequest struct {
	Account  string `json:"account"`
	Token    string `json:"token"`
	Amount   string `json:"amount"`
	RatioBps uint64 `json:"ratioBps"`
}

func (mr *mintRoutes) decodePosition(w http.ResponseWriter, r *http.Request) (account, token common.Address, amount *big.Int, ok bool) {
	var req positionRequest
	if err := mr.deps.decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	account, err := parseAddressField("account", req.Account)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	token, err = parseAddressField("token", req.Token)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	amount, err = parseAmountField("amount", req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	return account, token, amount, true
}

// decodePair is decodePosition without the amount, for the max-action calls.
func (mr *mintRoutes) decodePair(w http.ResponseWriter, r *http.Request) (account, token common.Address, ok bool) {
	var req positionRequest
	if err := mr.deps.decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	account, err := parseAddressField("account", req.Account)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	token, err = parseAddressField("token", req.Token)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	return account, token, true
}

func (mr *mintRoutes) deposit(w http.ResponseWriter, r *http.Request) {
	account, token, amount, ok := mr.decodePosition(w, r)
	if !ok {
		return
	}
	if err := mr.deps.Engine.Deposit(account, token, amount); err != nil {
		writeDomainError(w, err)
		return
	}
	mr.deps.persist()
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (mr *mintRoutes) withdraw(w http.ResponseWriter, r *http.Request) {
	account, token, amount, ok := mr.decodePosition(w, r)
	if !ok {
		return
	}
	if err := mr.deps.Engine.Withdraw(account, token, amount); err != nil {
		writeDomainError(w, err)
		return
	}
	mr.deps.persist()
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (mr *mintRoutes) mint(w http.ResponseWriter, r *http.Request) {
	account, token, amount, ok := mr.decodePosition(w, r)
	if !ok {
		return
	}
	if err := mr.deps.Engine.Mint(account, token, amount); err != nil {
		writeDomainError(w, err)
		return
	}
	mr.deps.persist()
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (mr *mintRoutes) repay(w http.ResponseWriter, r *http.Request) {
	account, token, amount, ok := mr.decodePosition(w, r)
	if !ok {
		return
	}
	if err := mr.deps.Engine.Repay(account, token, amount); err != nil {
		writeDomainError(w, err)
		return
	}
	mr.deps.persist()
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (mr *mintRoutes) withdrawMax(w http.ResponseWriter, r *http.Request) {
	account, token, ok := mr.decodePair(w, r)
	if !ok {
		return
	}
	amount, err := mr.deps.Engine.WithdrawMax(account, token)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	mr.deps.persist()
	respondJSON(w, http.StatusOK, map[string]string{"amount": amount.String()})
}

func (mr *mintRoutes) mintMax(w http.ResponseWriter, r *http.Request) {
	account, token, ok := mr.decodePair(w, r)
	if !ok {
		return
	}
	amount, err := mr.deps.Engine.MintMax(account, token)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	mr.deps.persist()
	respondJSON(w, http.StatusOK, map[string]string{"amount": amount.String()})
}

func (mr *mintRoutes) repayMax(w http.ResponseWriter, r *http.Request) {
	account, token, ok := mr.decodePair(w, r)
	if !ok {
		return
	}
	amount, err := mr.deps.Engine.RepayMax(account, token)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	mr.deps.persist()
	respondJSON(w, http.StatusOK, map[string]string{"amount": amount.String()})
}

func (mr *mintRoutes) probeCollateralDecrease(w http.ResponseWriter, r *http.Request) {
	mr.probe(w, r, mr.deps.Engine.CollateralCanDecrease)
}

func (mr *mintRoutes) probeDebtIncrease(w http.ResponseWriter, r *http.Request) {
	mr.probe(w, r, mr.deps.Engine.DebtCanIncrease)
}

func (mr *mintRoutes) probe(w http.ResponseWriter, r *http.Request, check func(common.Address, common.Address, *big.Int, uint64) bool) {
	var req probeRequest
	if err := mr.deps.decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	account, err := parseAddressField("account", req.Account)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	token, err := parseAddressField("token", req.Token)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	amount, err := parseAmountField("amount", req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	ratio := req.RatioBps
	if ratio == 0 {
		ratio = mr.deps.Engine.Params().MinCollateralRatioBps
	}
	respondJSON(w, http.StatusOK, map[string]bool{"allowed": check(account, token, amount, ratio)})
}

func (mr *mintRoutes) pathAddress(w http.ResponseWriter, r *http.Request, param string) (common.Address, bool) {
	addr, err := parseAddressField(param, chi.URLParam(r, param))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return common.Address{}, false
	}
	return addr, true
}

func (mr *mintRoutes) position(w http.ResponseWriter, r *http.Request) {
	account, ok := mr.pathAddress(w, r, "account")
	if !ok {
		return
	}
	engine := mr.deps.Engine
	resp := map[string]any{
		"collateralValue": engine.CollateralValueOf(account).String(),
		"debtValue":       engine.DebtValueOf(account).String(),
		"rewardEligible":  engine.IsRewardEligible(account),
		"canClaimReward":  engine.CanClaimReward(account),
	}
	if ratio, hasDebt := engine.RatioBps(account); hasDebt {
		resp["ratioBps"] = ratio.String()
	}
	if mr.deps.Distributor != nil {
		resp["rewardsEarned"] = mr.deps.Distributor.Earned(account).String()
	}
	respondJSON(w, http.StatusOK, resp)
}

func (mr *mintRoutes) collateralBalance(w http.ResponseWriter, r *http.Request) {
	mr.balance(w, r, mr.deps.Engine.CollateralBalance)
}

func (mr *mintRoutes) debtBalance(w http.ResponseWriter, r *http.Request) {
	mr.balance(w, r, mr.deps.Engine.DebtBalance)
}

func (mr *mintRoutes) balance(w http.ResponseWriter, r *http.Request, read func(common.Address, common.Address) *big.Int) {
	account, ok := mr.pathAddress(w, r, "account")
	if !ok {
		return
	}
	token, ok := mr.pathAddress(w, r, "token")
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"balance": read(account, token).String()})
}

func (mr *mintRoutes) limits(w http.ResponseWriter, r *http.Request) {
	account, ok := mr.pathAddress(w, r, "account")
	if !ok {
		return
	}
	token, ok := mr.pathAddress(w, r, "token")
	if !ok {
		return
	}
	ratio := mr.deps.Engine.Params().MinCollateralRatioBps
	if raw := r.URL.Query().Get("ratioBps"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || parsed == 0 {
			writeError(w, http.StatusBadRequest, errInvalidRatio)
			return
		}
		ratio = parsed
	}
	engine := mr.deps.Engine
	respondJSON(w, http.StatusOK, map[string]string{
		"maxToMint":     engine.MaxToMint(account, token, ratio).String(),
		"maxToWithdraw": engine.MaxToWithdraw(account, token, ratio).String(),
		"minToDeposit":  engine.MinToDeposit(account, token, ratio).String(),
	})
}

func (mr *mintRoutes) totals(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"collateralValue": mr.deps.Engine.CollateralTotal().String(),
		"debtValue":       mr.deps.Engine.DebtTotal().String(),
	})
}
