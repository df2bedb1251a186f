// Package model defines the core domain records shared across the points engine.
// All quantities are unsigned integers: points and native-currency micro-units
// are never fractional and never negative.
package model

import "time"

// Side is one outcome of a binary event.
type Side string

const (
	SideYes Side = "yes"
	SideNo  Side = "no"
)

// Valid reports whether s is yes or no.
func (s Side) Valid() bool {
	return s == SideYes || s == SideNo
}

// SideOf maps a winner flag to its side.
func SideOf(yes bool) Side {
	if yes {
		return SideYes
	}
	return SideNo
}

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideYes {
		return SideNo
	}
	return SideYes
}

// Event status values. Open → resolved is the only transition.
const (
	EventOpen     = "open"
	EventResolved = "resolved"
)

// Stats tracks settled predictions for an account or a guild.
// WinRate is expressed in basis points.
type Stats struct {
	TotalPredictions  uint64 `json:"total_predictions"`
	Wins              uint64 `json:"wins"`
	Losses            uint64 `json:"losses"`
	TotalPointsEarned uint64 `json:"total_points_earned"`
	WinRate           uint64 `json:"win_rate"`
}

// Record adds one settled prediction paying reward and recomputes WinRate.
// The caller checks that TotalPointsEarned+reward fits in a uint64.
func (s *Stats) Record(reward uint64) {
	s.TotalPredictions++
	if reward > 0 {
		s.Wins++
	} else {
		s.Losses++
	}
	s.TotalPointsEarned += reward
	s.WinRate = s.Wins * 10000 / s.TotalPredictions
}

// Account is a registered identity and its point balances.
// EarnedPoints only grows through individual claim rewards and gates selling.
type Account struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	Points       uint64 `json:"points"`
	EarnedPoints uint64 `json:"earned_points"`
	Stats        Stats  `json:"stats"`
}

// Event is a binary-outcome proposition. Pools are never reset; settlement
// reads them after resolution.
type Event struct {
	ID       uint64 `json:"id"`
	YesPool  uint64 `json:"yes_pool"`
	NoPool   uint64 `json:"no_pool"`
	Status   string `json:"status"`
	Winner   *bool  `json:"winner"`
	Creator  string `json:"creator"`
	Metadata string `json:"metadata"`
}

// Pool returns the pool for side.
func (e *Event) Pool(side Side) uint64 {
	if side == SideYes {
		return e.YesPool
	}
	return e.NoPool
}

// StakeKey identifies an individual stake.
type StakeKey struct {
	EventID uint64 `json:"event_id"`
	Account string `json:"account"`
	Side    Side   `json:"side"`
}

// GuildStakeKey identifies a guild-owned stake.
type GuildStakeKey struct {
	GuildID uint64 `json:"guild_id"`
	EventID uint64 `json:"event_id"`
	Side    Side   `json:"side"`
}

// MemberKey identifies a (guild, account) pair for membership and deposits.
type MemberKey struct {
	GuildID uint64 `json:"guild_id"`
	Account string `json:"account"`
}

// Listing is a seller's standing offer of points for native currency.
// After cancellation Points and PriceTotal keep their last values.
type Listing struct {
	ID         uint64 `json:"id"`
	Seller     string `json:"seller"`
	Points     uint64 `json:"points"`
	PriceTotal uint64 `json:"price_total"`
	Active     bool   `json:"active"`
}

// Guild is a named group owning a pooled points balance.
type Guild struct {
	ID          uint64 `json:"id"`
	Creator     string `json:"creator"`
	Name        string `json:"name"`
	TotalPoints uint64 `json:"total_points"`
	MemberCount uint64 `json:"member_count"`
}

// LogEntry is an immutable audit record. Once appended it is never modified
// or deleted.
type LogEntry struct {
	ID        uint64    `json:"id"`
	Action    string    `json:"action"`
	User      string    `json:"user"`
	EventID   *uint64   `json:"event_id,omitempty"`
	ListingID *uint64   `json:"listing_id,omitempty"`
	Amount    *uint64   `json:"amount,omitempty"`
	Metadata  string    `json:"metadata"`
	CreatedAt time.Time `json:"created_at"`
}

// Protocol holds admin configuration, the treasury and global counters.
type Protocol struct {
	Admin            string `json:"admin"`
	StartingPoints   uint64 `json:"starting_points"`
	MinEarnedForSell uint64 `json:"min_earned_for_sell"`
	ListingFee       uint64 `json:"listing_fee"`
	ProtocolFeeBps   uint64 `json:"protocol_fee_bps"`
	AdminPointPrice  uint64 `json:"admin_point_price"`
	Treasury         uint64 `json:"treasury"`
	TotalAdminMinted uint64 `json:"total_admin_minted"`
	NextListingID    uint64 `json:"next_listing_id"`

	// Lifetime stake volume. Monotonic; never decremented on claim.
	TotalYesStakes      uint64 `json:"total_yes_stakes"`
	TotalNoStakes       uint64 `json:"total_no_stakes"`
	TotalGuildYesStakes uint64 `json:"total_guild_yes_stakes"`
	TotalGuildNoStakes  uint64 `json:"total_guild_no_stakes"`
}

// Default protocol parameters.
const (
	DefaultStartingPoints   uint64 = 1000
	DefaultMinEarnedForSell uint64 = 10000
	DefaultListingFee       uint64 = 10_000_000
	DefaultProtocolFeeBps   uint64 = 200
	DefaultAdminPointPrice  uint64 = 1000
	MaxProtocolFeeBps       uint64 = 1000
)

// NewProtocol returns the initial protocol record for admin with default parameters.
func NewProtocol(admin string) Protocol {
	return Protocol{
		Admin:            admin,
		StartingPoints:   DefaultStartingPoints,
		MinEarnedForSell: DefaultMinEarnedForSell,
		ListingFee:       DefaultListingFee,
		ProtocolFeeBps:   DefaultProtocolFeeBps,
		AdminPointPrice:  DefaultAdminPointPrice,
		NextListingID:    1,
	}
}

// LifetimeStakes is the read-only view of the monotonic stake counters.
type LifetimeStakes struct {
	Yes      uint64 `json:"yes"`
	No       uint64 `json:"no"`
	GuildYes uint64 `json:"guild_yes"`
	GuildNo  uint64 `json:"guild_no"`
}

// Lifetime extracts the lifetime counters from p.
func (p Protocol) Lifetime() LifetimeStakes {
	return LifetimeStakes{
		Yes:      p.TotalYesStakes,
		No:       p.TotalNoStakes,
		GuildYes: p.TotalGuildYesStakes,
		GuildNo:  p.TotalGuildNoStakes,
	}
}
