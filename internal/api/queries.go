package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/roxy/points-engine/internal/ledger"
	"github.com/roxy/points-engine/internal/model"
)

const (
	defaultLogLimit = 100
	maxLogLimit     = 1000
)

// AmountResponse wraps a single quantity.
type AmountResponse struct {
	Amount uint64 `json:"amount"`
}

// GetAccount handles GET /accounts/{accountID}.
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	a, err := h.engine.Account(r.Context(), chi.URLParam(r, "accountID"))
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// GetCanSell handles GET /accounts/{accountID}/can-sell.
func (h *Handler) GetCanSell(w http.ResponseWriter, r *http.Request) {
	can, err := h.engine.CanSell(r.Context(), chi.URLParam(r, "accountID"))
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"can_sell": can})
}

// GetNativeBalance handles GET /accounts/{accountID}/native.
func (h *Handler) GetNativeBalance(w http.ResponseWriter, r *http.Request) {
	v, err := h.engine.NativeBalance(r.Context(), chi.URLParam(r, "accountID"))
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AmountResponse{Amount: v})
}

// GetUsernameOwner handles GET /usernames/{username}.
func (h *Handler) GetUsernameOwner(w http.ResponseWriter, r *http.Request) {
	owner, err := h.engine.UsernameOwner(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"account": owner})
}

// GetEvent handles GET /events/{eventID}.
func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := uintParam(w, r, "eventID")
	if !ok {
		return
	}
	ev, err := h.engine.Event(r.Context(), id)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

// GetStake handles GET /events/{eventID}/stakes/{accountID}/{side}.
func (h *Handler) GetStake(w http.ResponseWriter, r *http.Request) {
	eventID, ok := uintParam(w, r, "eventID")
	if !ok {
		return
	}
	side, ok := sideParam(w, r)
	if !ok {
		return
	}
	key := model.StakeKey{EventID: eventID, Account: chi.URLParam(r, "accountID"), Side: side}
	v, err := h.engine.Stake(r.Context(), key)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AmountResponse{Amount: v})
}

// GetListing handles GET /listings/{listingID}.
func (h *Handler) GetListing(w http.ResponseWriter, r *http.Request) {
	id, ok := uintParam(w, r, "listingID")
	if !ok {
		return
	}
	l, err := h.engine.Listing(r.Context(), id)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// GetGuild handles GET /guilds/{guildID}.
func (h *Handler) GetGuild(w http.ResponseWriter, r *http.Request) {
	id, ok := uintParam(w, r, "guildID")
	if !ok {
		return
	}
	g, err := h.engine.Guild(r.Context(), id)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// MemberResponse is a member's standing in a guild.
type MemberResponse struct {
	ledger.Membership
	Deposit uint64 `json:"deposit"`
}

// GetMember handles GET /guilds/{guildID}/members/{accountID}.
func (h *Handler) GetMember(w http.ResponseWriter, r *http.Request) {
	id, ok := uintParam(w, r, "guildID")
	if !ok {
		return
	}
	key := model.MemberKey{GuildID: id, Account: chi.URLParam(r, "accountID")}
	m, err := h.engine.Membership(r.Context(), key)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	dep, err := h.engine.GuildDeposit(r.Context(), key)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MemberResponse{Membership: m, Deposit: dep})
}

// GetGuildStake handles GET /guilds/{guildID}/stakes/{eventID}/{side}.
func (h *Handler) GetGuildStake(w http.ResponseWriter, r *http.Request) {
	guildID, ok := uintParam(w, r, "guildID")
	if !ok {
		return
	}
	eventID, ok := uintParam(w, r, "eventID")
	if !ok {
		return
	}
	side, ok := sideParam(w, r)
	if !ok {
		return
	}
	v, err := h.engine.GuildStake(r.Context(), model.GuildStakeKey{GuildID: guildID, EventID: eventID, Side: side})
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AmountResponse{Amount: v})
}

// GetGuildStats handles GET /guilds/{guildID}/stats.
func (h *Handler) GetGuildStats(w http.ResponseWriter, r *http.Request) {
	id, ok := uintParam(w, r, "guildID")
	if !ok {
		return
	}
	st, err := h.engine.GuildStats(r.Context(), id)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// GetProtocol handles GET /protocol.
func (h *Handler) GetProtocol(w http.ResponseWriter, r *http.Request) {
	p, err := h.engine.Protocol(r.Context())
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// GetLifetime handles GET /protocol/lifetime.
func (h *Handler) GetLifetime(w http.ResponseWriter, r *http.Request) {
	p, err := h.engine.Protocol(r.Context())
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p.Lifetime())
}

// GetTreasury handles GET /treasury.
func (h *Handler) GetTreasury(w http.ResponseWriter, r *http.Request) {
	p, err := h.engine.Protocol(r.Context())
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{
		"treasury":           p.Treasury,
		"total_admin_minted": p.TotalAdminMinted,
	})
}

// GetLog handles GET /logs/{logID}.
func (h *Handler) GetLog(w http.ResponseWriter, r *http.Request) {
	id, ok := uintParam(w, r, "logID")
	if !ok {
		return
	}
	entry, err := h.engine.LogEntry(r.Context(), id)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// ListLogs handles GET /logs?from=&limit=. Entries are returned in id order
// starting at from (default 1).
func (h *Handler) ListLogs(w http.ResponseWriter, r *http.Request) {
	from := uint64(1)
	if s := r.URL.Query().Get("from"); s != "" {
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil || v == 0 {
			writeError(w, "invalid from", http.StatusBadRequest)
			return
		}
		from = v
	}
	limit := defaultLogLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v <= 0 {
			writeError(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = min(v, maxLogLimit)
	}

	entries, err := h.engine.LogEntries(r.Context(), from, limit)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	if entries == nil {
		entries = []model.LogEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func sideParam(w http.ResponseWriter, r *http.Request) (model.Side, bool) {
	side := model.Side(chi.URLParam(r, "side"))
	if !side.Valid() {
		writeError(w, "side must be yes or no", http.StatusBadRequest)
		return "", false
	}
	return side, true
}
