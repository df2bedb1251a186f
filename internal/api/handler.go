// Package api exposes the ledger over HTTP.
//
// Commands are POST routes; the acting identity is taken from the X-Caller
// header as supplied by the fronting host. Queries are GET routes and need
// no caller.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/roxy/points-engine/internal/ledger"
)

// CallerHeader carries the trusted caller identity.
const CallerHeader = "X-Caller"

// Handler serves the command and query routes.
type Handler struct {
	engine *ledger.Engine
	faucet bool
}

// NewHandler creates a Handler. When faucet is set, POST /faucet credits
// native currency to any account.
func NewHandler(engine *ledger.Engine, faucet bool) *Handler {
	return &Handler{engine: engine, faucet: faucet}
}

// Routes mounts every route on r.
func (h *Handler) Routes(r chi.Router) {
	// Identity.
	r.Post("/accounts", command[ledger.Register](h))
	r.Get("/accounts/{accountID}", h.GetAccount)
	r.Get("/accounts/{accountID}/can-sell", h.GetCanSell)
	r.Get("/accounts/{accountID}/native", h.GetNativeBalance)
	r.Get("/usernames/{username}", h.GetUsernameOwner)

	// Prediction market.
	r.Post("/events", command[ledger.CreateEvent](h))
	r.Post("/events/resolve", command[ledger.ResolveEvent](h))
	r.Post("/stakes", command[ledger.Stake](h))
	r.Post("/claims", command[ledger.Claim](h))
	r.Get("/events/{eventID}", h.GetEvent)
	r.Get("/events/{eventID}/stakes/{accountID}/{side}", h.GetStake)

	// Marketplace.
	r.Post("/listings", command[ledger.CreateListing](h))
	r.Post("/listings/buy", command[ledger.BuyListing](h))
	r.Post("/listings/cancel", command[ledger.CancelListing](h))
	r.Get("/listings/{listingID}", h.GetListing)

	// Guilds.
	r.Post("/guilds", command[ledger.CreateGuild](h))
	r.Post("/guilds/join", command[ledger.JoinGuild](h))
	r.Post("/guilds/leave", command[ledger.LeaveGuild](h))
	r.Post("/guilds/deposit", command[ledger.DepositToGuild](h))
	r.Post("/guilds/withdraw", command[ledger.WithdrawFromGuild](h))
	r.Post("/guilds/stake", command[ledger.GuildStake](h))
	r.Post("/guilds/claim", command[ledger.GuildClaim](h))
	r.Get("/guilds/{guildID}", h.GetGuild)
	r.Get("/guilds/{guildID}/members/{accountID}", h.GetMember)
	r.Get("/guilds/{guildID}/stakes/{eventID}/{side}", h.GetGuildStake)
	r.Get("/guilds/{guildID}/stats", h.GetGuildStats)

	// Admin and treasury.
	r.Post("/admin-points/buy", command[ledger.BuyAdminPoints](h))
	r.Route("/admin", func(r chi.Router) {
		r.Post("/mint", command[ledger.MintAdminPoints](h))
		r.Post("/withdraw-fees", command[ledger.WithdrawProtocolFees](h))
		r.Post("/transfer", command[ledger.TransferAdmin](h))
		r.Post("/config/min-earned-for-sell", command[ledger.SetMinEarnedForSell](h))
		r.Post("/config/listing-fee", command[ledger.SetListingFee](h))
		r.Post("/config/protocol-fee-bps", command[ledger.SetProtocolFeeBps](h))
		r.Post("/config/admin-point-price", command[ledger.SetAdminPointPrice](h))
		r.Post("/config/starting-points", command[ledger.SetStartingPoints](h))
	})
	r.Get("/protocol", h.GetProtocol)
	r.Get("/protocol/lifetime", h.GetLifetime)
	r.Get("/treasury", h.GetTreasury)

	// Audit trail.
	r.Get("/logs", h.ListLogs)
	r.Get("/logs/{logID}", h.GetLog)

	if h.faucet {
		r.Post("/faucet", h.Faucet)
	}
}

// command decodes the request body into C and executes it for the caller.
func command[C ledger.Command](h *Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := callerOf(w, r)
		if !ok {
			return
		}
		var cmd C
		if !decode(w, r, &cmd) {
			return
		}
		receipt, err := h.engine.Execute(r.Context(), caller, cmd)
		if err != nil {
			writeLedgerError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, receipt)
	}
}

// FaucetRequest is the body of POST /faucet.
type FaucetRequest struct {
	Account string `json:"account"`
	Amount  uint64 `json:"amount"`
}

// Faucet credits native currency to an account.
func (h *Handler) Faucet(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOf(w, r)
	if !ok {
		return
	}
	var req FaucetRequest
	if !decode(w, r, &req) {
		return
	}
	receipt, err := h.engine.DepositNative(r.Context(), caller, req.Account, req.Amount)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

func callerOf(w http.ResponseWriter, r *http.Request) (string, bool) {
	caller := r.Header.Get(CallerHeader)
	if caller == "" {
		writeError(w, CallerHeader+" header is required", http.StatusUnauthorized)
		return "", false
	}
	return caller, true
}

// decode reads a JSON body into v. An empty body leaves v zeroed.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func uintParam(w http.ResponseWriter, r *http.Request, name string) (uint64, bool) {
	v, err := strconv.ParseUint(chi.URLParam(r, name), 10, 64)
	if err != nil {
		writeError(w, "invalid "+name, http.StatusBadRequest)
		return 0, false
	}
	return v, true
}

// statusOf maps a command error to its HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, ledger.ErrArithmeticOverflow), errors.Is(err, ledger.ErrTransferFailed):
		return http.StatusUnprocessableEntity
	case ledger.IsInvalid(err):
		return http.StatusBadRequest
	case ledger.IsForbidden(err):
		return http.StatusForbidden
	case ledger.IsNotFound(err):
		return http.StatusNotFound
	case ledger.IsConflict(err):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrDepositUnsupported):
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code,omitempty"`
	Kind  string `json:"kind,omitempty"`
}

func writeLedgerError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	le, ok := ledger.AsError(err)
	if !ok {
		if status == http.StatusInternalServerError {
			slog.Error("request failed", "err", err)
			writeError(w, "internal error", status)
			return
		}
		writeError(w, err.Error(), status)
		return
	}
	writeJSON(w, status, ErrorResponse{Error: le.Error(), Code: le.Code, Kind: le.Kind})
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
