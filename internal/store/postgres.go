package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/roxy/points-engine/internal/model"
)

//go:embed schema.sql
var schemaSQL string

// PostgresStore implements Store using PostgreSQL as the source of truth.
// Quantities are stored as NUMERIC(20,0) and travel as text so the full
// uint64 range survives the round trip.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the schema if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("store.Migrate: %w", err)
	}
	return nil
}

func (s *PostgresStore) View(ctx context.Context, fn func(r Reader) error) error {
	opts := pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}
	return pgx.BeginTxFunc(ctx, s.pool, opts, func(tx pgx.Tx) error {
		return fn(&pgTx{q: tx})
	})
}

// Update retries serialization failures up to maxSerializationRetries times.
func (s *PostgresStore) Update(ctx context.Context, fn func(tx Tx) error) error {
	opts := pgx.TxOptions{IsoLevel: pgx.Serializable}
	var err error
	for attempt := 0; attempt <= maxSerializationRetries; attempt++ {
		err = pgx.BeginTxFunc(ctx, s.pool, opts, func(tx pgx.Tx) error {
			return fn(&pgTx{q: tx})
		})
		if !isSerializationFailure(err) {
			return err
		}
	}
	return err
}

const maxSerializationRetries = 3

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "40001"
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type pgTx struct {
	q querier
}

func num(v uint64) string { return strconv.FormatUint(v, 10) }

// parseNums parses NUMERIC text columns into their destinations.
func parseNums(pairs ...any) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		src := pairs[i].(string)
		dst := pairs[i+1].(*uint64)
		v, err := strconv.ParseUint(src, 10, 64)
		if err != nil {
			return fmt.Errorf("parse numeric %q: %w", src, err)
		}
		*dst = v
	}
	return nil
}

func optNum(s *string) (*uint64, error) {
	if s == nil {
		return nil, nil
	}
	v, err := strconv.ParseUint(*s, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse numeric %q: %w", *s, err)
	}
	return &v, nil
}

func optNumArg(v *uint64) *string {
	if v == nil {
		return nil
	}
	s := num(*v)
	return &s
}

// scalar reads a single NUMERIC value, reporting found=false on no rows.
func (t *pgTx) scalar(ctx context.Context, op, sql string, args ...any) (uint64, bool, error) {
	var s string
	if err := t.q.QueryRow(ctx, sql, args...).Scan(&s); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("store.%s: %w", op, err)
	}
	var v uint64
	if err := parseNums(s, &v); err != nil {
		return 0, false, fmt.Errorf("store.%s: %w", op, err)
	}
	return v, true, nil
}

func (t *pgTx) exec(ctx context.Context, op, sql string, args ...any) error {
	if _, err := t.q.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("store.%s: %w", op, err)
	}
	return nil
}

// --- Reader ---

func (t *pgTx) Protocol(ctx context.Context) (model.Protocol, error) {
	var p model.Protocol
	var c [12]string
	err := t.q.QueryRow(ctx,
		`SELECT admin, starting_points::TEXT, min_earned_for_sell::TEXT, listing_fee::TEXT,
		        protocol_fee_bps::TEXT, admin_point_price::TEXT, treasury::TEXT,
		        total_admin_minted::TEXT, next_listing_id::TEXT,
		        total_yes_stakes::TEXT, total_no_stakes::TEXT,
		        total_guild_yes_stakes::TEXT, total_guild_no_stakes::TEXT
		 FROM protocol WHERE id = 1`).
		Scan(&p.Admin, &c[0], &c[1], &c[2], &c[3], &c[4], &c[5], &c[6], &c[7], &c[8], &c[9], &c[10], &c[11])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return p, ErrNotInitialized
		}
		return p, fmt.Errorf("store.Protocol: %w", err)
	}
	err = parseNums(
		c[0], &p.StartingPoints, c[1], &p.MinEarnedForSell, c[2], &p.ListingFee,
		c[3], &p.ProtocolFeeBps, c[4], &p.AdminPointPrice, c[5], &p.Treasury,
		c[6], &p.TotalAdminMinted, c[7], &p.NextListingID,
		c[8], &p.TotalYesStakes, c[9], &p.TotalNoStakes,
		c[10], &p.TotalGuildYesStakes, c[11], &p.TotalGuildNoStakes,
	)
	if err != nil {
		return p, fmt.Errorf("store.Protocol: %w", err)
	}
	return p, nil
}

func (t *pgTx) Account(ctx context.Context, id string) (model.Account, bool, error) {
	var a model.Account
	var c [7]string
	err := t.q.QueryRow(ctx,
		`SELECT id, username, points::TEXT, earned_points::TEXT,
		        total_predictions::TEXT, wins::TEXT, losses::TEXT,
		        total_points_earned::TEXT, win_rate::TEXT
		 FROM accounts WHERE id = $1`, id).
		Scan(&a.ID, &a.Username, &c[0], &c[1], &c[2], &c[3], &c[4], &c[5], &c[6])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return a, false, nil
		}
		return a, false, fmt.Errorf("store.Account %s: %w", id, err)
	}
	err = parseNums(
		c[0], &a.Points, c[1], &a.EarnedPoints,
		c[2], &a.Stats.TotalPredictions, c[3], &a.Stats.Wins, c[4], &a.Stats.Losses,
		c[5], &a.Stats.TotalPointsEarned, c[6], &a.Stats.WinRate,
	)
	if err != nil {
		return a, false, fmt.Errorf("store.Account %s: %w", id, err)
	}
	return a, true, nil
}

func (t *pgTx) UsernameOwner(ctx context.Context, username string) (string, bool, error) {
	var owner string
	err := t.q.QueryRow(ctx, `SELECT owner FROM usernames WHERE username = $1`, username).Scan(&owner)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("store.UsernameOwner: %w", err)
	}
	return owner, true, nil
}

func (t *pgTx) Event(ctx context.Context, id uint64) (model.Event, bool, error) {
	var e model.Event
	var idS, yes, no string
	err := t.q.QueryRow(ctx,
		`SELECT id::TEXT, yes_pool::TEXT, no_pool::TEXT, status, winner, creator, metadata
		 FROM events WHERE id = $1::NUMERIC`, num(id)).
		Scan(&idS, &yes, &no, &e.Status, &e.Winner, &e.Creator, &e.Metadata)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return e, false, nil
		}
		return e, false, fmt.Errorf("store.Event %d: %w", id, err)
	}
	if err := parseNums(idS, &e.ID, yes, &e.YesPool, no, &e.NoPool); err != nil {
		return e, false, fmt.Errorf("store.Event %d: %w", id, err)
	}
	return e, true, nil
}

func (t *pgTx) Stake(ctx context.Context, key model.StakeKey) (uint64, bool, error) {
	return t.scalar(ctx, "Stake",
		`SELECT amount::TEXT FROM stakes WHERE event_id = $1::NUMERIC AND account = $2 AND side = $3`,
		num(key.EventID), key.Account, string(key.Side))
}

func (t *pgTx) Listing(ctx context.Context, id uint64) (model.Listing, bool, error) {
	var l model.Listing
	var idS, points, price string
	err := t.q.QueryRow(ctx,
		`SELECT id::TEXT, seller, points::TEXT, price_total::TEXT, active
		 FROM listings WHERE id = $1::NUMERIC`, num(id)).
		Scan(&idS, &l.Seller, &points, &price, &l.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return l, false, nil
		}
		return l, false, fmt.Errorf("store.Listing %d: %w", id, err)
	}
	if err := parseNums(idS, &l.ID, points, &l.Points, price, &l.PriceTotal); err != nil {
		return l, false, fmt.Errorf("store.Listing %d: %w", id, err)
	}
	return l, true, nil
}

func (t *pgTx) Guild(ctx context.Context, id uint64) (model.Guild, bool, error) {
	var g model.Guild
	var idS, total, members string
	err := t.q.QueryRow(ctx,
		`SELECT id::TEXT, creator, name, total_points::TEXT, member_count::TEXT
		 FROM guilds WHERE id = $1::NUMERIC`, num(id)).
		Scan(&idS, &g.Creator, &g.Name, &total, &members)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return g, false, nil
		}
		return g, false, fmt.Errorf("store.Guild %d: %w", id, err)
	}
	if err := parseNums(idS, &g.ID, total, &g.TotalPoints, members, &g.MemberCount); err != nil {
		return g, false, fmt.Errorf("store.Guild %d: %w", id, err)
	}
	return g, true, nil
}

func (t *pgTx) Membership(ctx context.Context, key model.MemberKey) (bool, bool, error) {
	var member bool
	err := t.q.QueryRow(ctx,
		`SELECT member FROM guild_members WHERE guild_id = $1::NUMERIC AND account = $2`,
		num(key.GuildID), key.Account).Scan(&member)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, false, nil
		}
		return false, false, fmt.Errorf("store.Membership: %w", err)
	}
	return member, true, nil
}

func (t *pgTx) GuildDeposit(ctx context.Context, key model.MemberKey) (uint64, bool, error) {
	return t.scalar(ctx, "GuildDeposit",
		`SELECT amount::TEXT FROM guild_deposits WHERE guild_id = $1::NUMERIC AND account = $2`,
		num(key.GuildID), key.Account)
}

func (t *pgTx) GuildStake(ctx context.Context, key model.GuildStakeKey) (uint64, bool, error) {
	return t.scalar(ctx, "GuildStake",
		`SELECT amount::TEXT FROM guild_stakes
		 WHERE guild_id = $1::NUMERIC AND event_id = $2::NUMERIC AND side = $3`,
		num(key.GuildID), num(key.EventID), string(key.Side))
}

func (t *pgTx) GuildStats(ctx context.Context, guildID uint64) (model.Stats, bool, error) {
	var st model.Stats
	var c [5]string
	err := t.q.QueryRow(ctx,
		`SELECT total_predictions::TEXT, wins::TEXT, losses::TEXT,
		        total_points_earned::TEXT, win_rate::TEXT
		 FROM guild_stats WHERE guild_id = $1::NUMERIC`, num(guildID)).
		Scan(&c[0], &c[1], &c[2], &c[3], &c[4])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return st, false, nil
		}
		return st, false, fmt.Errorf("store.GuildStats %d: %w", guildID, err)
	}
	err = parseNums(c[0], &st.TotalPredictions, c[1], &st.Wins, c[2], &st.Losses,
		c[3], &st.TotalPointsEarned, c[4], &st.WinRate)
	if err != nil {
		return st, false, fmt.Errorf("store.GuildStats %d: %w", guildID, err)
	}
	return st, true, nil
}

func (t *pgTx) NativeBalance(ctx context.Context, id string) (uint64, error) {
	v, _, err := t.scalar(ctx, "NativeBalance",
		`SELECT amount::TEXT FROM native_balances WHERE account = $1`, id)
	return v, err
}

const logColumns = `id::TEXT, action, user_id, event_id::TEXT, listing_id::TEXT, amount::TEXT, metadata, created_at`

func (t *pgTx) LogEntry(ctx context.Context, id uint64) (model.LogEntry, bool, error) {
	rows, err := t.q.Query(ctx,
		`SELECT `+logColumns+` FROM transaction_logs WHERE id = $1::NUMERIC`, num(id))
	if err != nil {
		return model.LogEntry{}, false, fmt.Errorf("store.LogEntry %d: %w", id, err)
	}
	defer rows.Close()

	entries, err := scanLogEntries(rows)
	if err != nil {
		return model.LogEntry{}, false, fmt.Errorf("store.LogEntry %d: %w", id, err)
	}
	if len(entries) == 0 {
		return model.LogEntry{}, false, nil
	}
	return entries[0], true, nil
}

func (t *pgTx) LogEntries(ctx context.Context, from uint64, limit int) ([]model.LogEntry, error) {
	sql := `SELECT ` + logColumns + ` FROM transaction_logs WHERE id >= $1::NUMERIC ORDER BY id`
	args := []any{num(from)}
	if limit > 0 {
		sql += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := t.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("store.LogEntries: %w", err)
	}
	defer rows.Close()

	entries, err := scanLogEntries(rows)
	if err != nil {
		return nil, fmt.Errorf("store.LogEntries: %w", err)
	}
	return entries, nil
}

// scanLogEntries reads pgx rows into LogEntry slices.
func scanLogEntries(rows pgx.Rows) ([]model.LogEntry, error) {
	var entries []model.LogEntry
	for rows.Next() {
		var e model.LogEntry
		var idS string
		var eventS, listingS, amountS *string
		if err := rows.Scan(&idS, &e.Action, &e.User, &eventS, &listingS, &amountS,
			&e.Metadata, &e.CreatedAt); err != nil {
			return nil, err
		}
		if err := parseNums(idS, &e.ID); err != nil {
			return nil, err
		}
		var err error
		if e.EventID, err = optNum(eventS); err != nil {
			return nil, err
		}
		if e.ListingID, err = optNum(listingS); err != nil {
			return nil, err
		}
		if e.Amount, err = optNum(amountS); err != nil {
			return nil, err
		}
		e.CreatedAt = e.CreatedAt.UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// --- Writer ---

func (t *pgTx) PutProtocol(ctx context.Context, p model.Protocol) error {
	return t.exec(ctx, "PutProtocol",
		`INSERT INTO protocol (id, admin, starting_points, min_earned_for_sell, listing_fee,
		        protocol_fee_bps, admin_point_price, treasury, total_admin_minted, next_listing_id,
		        total_yes_stakes, total_no_stakes, total_guild_yes_stakes, total_guild_no_stakes)
		 VALUES (1, $1, $2::NUMERIC, $3::NUMERIC, $4::NUMERIC, $5::NUMERIC, $6::NUMERIC, $7::NUMERIC,
		         $8::NUMERIC, $9::NUMERIC, $10::NUMERIC, $11::NUMERIC, $12::NUMERIC, $13::NUMERIC)
		 ON CONFLICT (id) DO UPDATE SET
		        admin = EXCLUDED.admin,
		        starting_points = EXCLUDED.starting_points,
		        min_earned_for_sell = EXCLUDED.min_earned_for_sell,
		        listing_fee = EXCLUDED.listing_fee,
		        protocol_fee_bps = EXCLUDED.protocol_fee_bps,
		        admin_point_price = EXCLUDED.admin_point_price,
		        treasury = EXCLUDED.treasury,
		        total_admin_minted = EXCLUDED.total_admin_minted,
		        next_listing_id = EXCLUDED.next_listing_id,
		        total_yes_stakes = EXCLUDED.total_yes_stakes,
		        total_no_stakes = EXCLUDED.total_no_stakes,
		        total_guild_yes_stakes = EXCLUDED.total_guild_yes_stakes,
		        total_guild_no_stakes = EXCLUDED.total_guild_no_stakes`,
		p.Admin, num(p.StartingPoints), num(p.MinEarnedForSell), num(p.ListingFee),
		num(p.ProtocolFeeBps), num(p.AdminPointPrice), num(p.Treasury),
		num(p.TotalAdminMinted), num(p.NextListingID),
		num(p.TotalYesStakes), num(p.TotalNoStakes),
		num(p.TotalGuildYesStakes), num(p.TotalGuildNoStakes),
	)
}

func (t *pgTx) PutAccount(ctx context.Context, a model.Account) error {
	return t.exec(ctx, "PutAccount",
		`INSERT INTO accounts (id, username, points, earned_points, total_predictions, wins, losses,
		        total_points_earned, win_rate)
		 VALUES ($1, $2, $3::NUMERIC, $4::NUMERIC, $5::NUMERIC, $6::NUMERIC, $7::NUMERIC, $8::NUMERIC, $9::NUMERIC)
		 ON CONFLICT (id) DO UPDATE SET
		        username = EXCLUDED.username,
		        points = EXCLUDED.points,
		        earned_points = EXCLUDED.earned_points,
		        total_predictions = EXCLUDED.total_predictions,
		        wins = EXCLUDED.wins,
		        losses = EXCLUDED.losses,
		        total_points_earned = EXCLUDED.total_points_earned,
		        win_rate = EXCLUDED.win_rate`,
		a.ID, a.Username, num(a.Points), num(a.EarnedPoints),
		num(a.Stats.TotalPredictions), num(a.Stats.Wins), num(a.Stats.Losses),
		num(a.Stats.TotalPointsEarned), num(a.Stats.WinRate),
	)
}

func (t *pgTx) PutUsername(ctx context.Context, username, owner string) error {
	return t.exec(ctx, "PutUsername",
		`INSERT INTO usernames (username, owner) VALUES ($1, $2)`, username, owner)
}

func (t *pgTx) PutEvent(ctx context.Context, e model.Event) error {
	return t.exec(ctx, "PutEvent",
		`INSERT INTO events (id, yes_pool, no_pool, status, winner, creator, metadata)
		 VALUES ($1::NUMERIC, $2::NUMERIC, $3::NUMERIC, $4, $5, $6, $7)
		 ON CONFLICT (id) DO UPDATE SET
		        yes_pool = EXCLUDED.yes_pool,
		        no_pool = EXCLUDED.no_pool,
		        status = EXCLUDED.status,
		        winner = EXCLUDED.winner`,
		num(e.ID), num(e.YesPool), num(e.NoPool), e.Status, e.Winner, e.Creator, e.Metadata,
	)
}

func (t *pgTx) PutStake(ctx context.Context, key model.StakeKey, amount uint64) error {
	return t.exec(ctx, "PutStake",
		`INSERT INTO stakes (event_id, account, side, amount)
		 VALUES ($1::NUMERIC, $2, $3, $4::NUMERIC)
		 ON CONFLICT (event_id, account, side) DO UPDATE SET amount = EXCLUDED.amount`,
		num(key.EventID), key.Account, string(key.Side), num(amount),
	)
}

func (t *pgTx) PutListing(ctx context.Context, l model.Listing) error {
	return t.exec(ctx, "PutListing",
		`INSERT INTO listings (id, seller, points, price_total, active)
		 VALUES ($1::NUMERIC, $2, $3::NUMERIC, $4::NUMERIC, $5)
		 ON CONFLICT (id) DO UPDATE SET
		        points = EXCLUDED.points,
		        price_total = EXCLUDED.price_total,
		        active = EXCLUDED.active`,
		num(l.ID), l.Seller, num(l.Points), num(l.PriceTotal), l.Active,
	)
}

func (t *pgTx) PutGuild(ctx context.Context, g model.Guild) error {
	return t.exec(ctx, "PutGuild",
		`INSERT INTO guilds (id, creator, name, total_points, member_count)
		 VALUES ($1::NUMERIC, $2, $3, $4::NUMERIC, $5::NUMERIC)
		 ON CONFLICT (id) DO UPDATE SET
		        total_points = EXCLUDED.total_points,
		        member_count = EXCLUDED.member_count`,
		num(g.ID), g.Creator, g.Name, num(g.TotalPoints), num(g.MemberCount),
	)
}

func (t *pgTx) PutMembership(ctx context.Context, key model.MemberKey, member bool) error {
	return t.exec(ctx, "PutMembership",
		`INSERT INTO guild_members (guild_id, account, member)
		 VALUES ($1::NUMERIC, $2, $3)
		 ON CONFLICT (guild_id, account) DO UPDATE SET member = EXCLUDED.member`,
		num(key.GuildID), key.Account, member,
	)
}

func (t *pgTx) PutGuildDeposit(ctx context.Context, key model.MemberKey, amount uint64) error {
	return t.exec(ctx, "PutGuildDeposit",
		`INSERT INTO guild_deposits (guild_id, account, amount)
		 VALUES ($1::NUMERIC, $2, $3::NUMERIC)
		 ON CONFLICT (guild_id, account) DO UPDATE SET amount = EXCLUDED.amount`,
		num(key.GuildID), key.Account, num(amount),
	)
}

func (t *pgTx) PutGuildStake(ctx context.Context, key model.GuildStakeKey, amount uint64) error {
	return t.exec(ctx, "PutGuildStake",
		`INSERT INTO guild_stakes (guild_id, event_id, side, amount)
		 VALUES ($1::NUMERIC, $2::NUMERIC, $3, $4::NUMERIC)
		 ON CONFLICT (guild_id, event_id, side) DO UPDATE SET amount = EXCLUDED.amount`,
		num(key.GuildID), num(key.EventID), string(key.Side), num(amount),
	)
}

func (t *pgTx) PutGuildStats(ctx context.Context, guildID uint64, s model.Stats) error {
	return t.exec(ctx, "PutGuildStats",
		`INSERT INTO guild_stats (guild_id, total_predictions, wins, losses, total_points_earned, win_rate)
		 VALUES ($1::NUMERIC, $2::NUMERIC, $3::NUMERIC, $4::NUMERIC, $5::NUMERIC, $6::NUMERIC)
		 ON CONFLICT (guild_id) DO UPDATE SET
		        total_predictions = EXCLUDED.total_predictions,
		        wins = EXCLUDED.wins,
		        losses = EXCLUDED.losses,
		        total_points_earned = EXCLUDED.total_points_earned,
		        win_rate = EXCLUDED.win_rate`,
		num(guildID), num(s.TotalPredictions), num(s.Wins), num(s.Losses),
		num(s.TotalPointsEarned), num(s.WinRate),
	)
}

func (t *pgTx) PutNativeBalance(ctx context.Context, id string, amount uint64) error {
	return t.exec(ctx, "PutNativeBalance",
		`INSERT INTO native_balances (account, amount) VALUES ($1, $2::NUMERIC)
		 ON CONFLICT (account) DO UPDATE SET amount = EXCLUDED.amount`,
		id, num(amount),
	)
}

// AppendLog allocates max(id)+1 under the serializable transaction, so two
// concurrent appends cannot both commit the same id.
func (t *pgTx) AppendLog(ctx context.Context, e model.LogEntry) (uint64, error) {
	next, _, err := t.scalar(ctx, "AppendLog",
		`SELECT (COALESCE(MAX(id), 0) + 1)::TEXT FROM transaction_logs`)
	if err != nil {
		return 0, err
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	err = t.exec(ctx, "AppendLog",
		`INSERT INTO transaction_logs (id, action, user_id, event_id, listing_id, amount, metadata, created_at)
		 VALUES ($1::NUMERIC, $2, $3, $4::NUMERIC, $5::NUMERIC, $6::NUMERIC, $7, $8)`,
		num(next), e.Action, e.User,
		optNumArg(e.EventID), optNumArg(e.ListingID), optNumArg(e.Amount),
		e.Metadata, e.CreatedAt,
	)
	if err != nil {
		return 0, err
	}
	return next, nil
}
