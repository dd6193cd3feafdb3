package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type oracleRoutes struct {
	deps Deps
}

func (or *oracleRoutes) mount(r chi.Router) {
	r.Post("/price", instrument("oracle.set_price", or.setPrice))
	r.Get("/price/{token}", instrument("oracle.get_price", or.getPrice))
}

type priceRequest struct {
	Token    string `json:"token"`
	Value    string `json:"value"`
	Decimals uint8  `json:"decimals"`
}

func (or *oracleRoutes) setPrice(w http.ResponseWriter, r *http.Request) {
	var req priceRequest
	if err := or.deps.decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	token, err := parseAddressField("token", req.Token)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	value, err := parseAmountField("value", req.Value)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := or.deps.Oracle.SetPrice(token, value, req.Decimals); err != nil {
		writeDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (or *oracleRoutes) getPrice(w http.ResponseWriter, r *http.Request) {
	token, err := parseAddressField("token", chi.URLParam(r, "token"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	value, decimals := or.deps.Oracle.Price(token)
	respondJSON(w, http.StatusOK, map[string]any{
		"value":    value.String(),
		"decimals": decimals,
	})
}
