package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"synthmint/observability"
)

type rewardRoutes struct {
	deps Deps
}

func (rr *rewardRoutes) mount(r chi.Router) {
	r.Post("/push", instrument("reward.push", rr.push))
	r.Post("/update-rate", instrument("reward.update_rate", rr.updateRate))
	r.Post("/update", instrument("reward.update", rr.update))
	r.Post("/claim", instrument("reward.claim", rr.claim))
	r.Get("/earned/{account}", instrument("reward.earned", rr.earned))
	r.Get("/state", instrument("reward.state", rr.state))
}

func (rr *rewardRoutes) publishState() {
	dist := rr.deps.Distributor
	observability.Protocol().SetRewardState(dist.Rate(), dist.EpochEnd())
}

func (rr *rewardRoutes) push(w http.ResponseWriter, r *http.Request) {
	if err := rr.deps.Distributor.Push(); err != nil {
		writeDomainError(w, err)
		return
	}
	rr.publishState()
	rr.deps.persist()
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"rate":   rr.deps.Distributor.Rate().String(),
	})
}

type updateRateRequest struct {
	Caller string `json:"caller"`
	Target string `json:"target"`
}

func (rr *rewardRoutes) updateRate(w http.ResponseWriter, r *http.Request) {
	var req updateRateRequest
	if err := rr.deps.decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	caller, err := parseAddressField("caller", req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	target, err := parseAmountField("target", req.Target)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := rr.deps.Distributor.UpdateRate(caller, target); err != nil {
		writeDomainError(w, err)
		return
	}
	rr.deps.persist()
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type accountRequest struct {
	Account string `json:"account"`
}

// update settles one account's checkpoint, or just advances the global
// accumulator when no account is given.
func (rr *rewardRoutes) update(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := rr.deps.decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Account == "" {
		rr.deps.Distributor.UpdateGlobal()
	} else {
		account, err := parseAddressField("account", req.Account)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		rr.deps.Distributor.UpdateAccount(account)
	}
	rr.deps.persist()
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rr *rewardRoutes) claim(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := rr.deps.decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	account, err := parseAddressField("account", req.Account)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	paid, err := rr.deps.Distributor.Claim(account)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	rr.deps.persist()
	respondJSON(w, http.StatusOK, map[string]string{"amount": paid.String()})
}

func (rr *rewardRoutes) earned(w http.ResponseWriter, r *http.Request) {
	account, err := parseAddressField("account", chi.URLParam(r, "account"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"amount": rr.deps.Distributor.Earned(account).String(),
	})
}

func (rr *rewardRoutes) state(w http.ResponseWriter, r *http.Request) {
	dist := rr.deps.Distributor
	respondJSON(w, http.StatusOK, map[string]any{
		"rate":       dist.Rate().String(),
		"targetRate": dist.TargetRate().String(),
		"epochEnd":   dist.EpochEnd(),
		"lastPush":   dist.LastPush(),
	})
}
