package links

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/linkpulse/linkpulse/internal/errx"
	"github.com/linkpulse/linkpulse/internal/idgen"
)

// db is an internal interface satisfied by *pgxpool.Pool. RecordClick
// needs Begin; everything else runs on the pool directly.
type db interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

type repo struct {
	db  db
	ids idgen.Generator
}

// RepositoryConfig holds configuration for the repository
type RepositoryConfig struct {
	IDGenerator idgen.Generator
}

// NewRepository creates a new Repository implementation
func NewRepository(db db, config *RepositoryConfig) Repository {
	if config == nil {
		config = &RepositoryConfig{}
	}

	// Default: UUID v7 (good for DB locality). Retry once by default inside idgen.NewV7.
	if config.IDGenerator == nil {
		config.IDGenerator = idgen.NewV7(idgen.WithRetries(1))
	}

	return &repo{
		db:  db,
		ids: config.IDGenerator,
	}
}

const linkColumns = "id, user_id, name, original_url, custom_suffix, clicks, created_at, updated_at"

/***************
 * Row conversion
 ***************/

func mustTime(ts pgtype.Timestamptz, field string) (time.Time, error) {
	if !ts.Valid {
		return time.Time{}, fmt.Errorf("%s unexpectedly NULL", field)
	}
	return ts.Time, nil
}

func uuidPtr(v pgtype.UUID) *uuid.UUID {
	if !v.Valid {
		return nil
	}
	id := uuid.UUID(v.Bytes)
	return &id
}

func uuidParam(id *uuid.UUID) pgtype.UUID {
	if id == nil {
		return pgtype.UUID{}
	}
	return pgtype.UUID{Bytes: *id, Valid: true}
}

func uuidValue(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

func textParam(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

type scannable interface {
	Scan(dest ...any) error
}

func scanLink(row scannable) (Link, error) {
	var (
		id        pgtype.UUID
		ownerID   pgtype.UUID
		name      pgtype.Text
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
		link      Link
	)

	err := row.Scan(&id, &ownerID, &name, &link.OriginalURL, &link.CustomSuffix, &link.Clicks, &createdAt, &updatedAt)
	if err != nil {
		return Link{}, err
	}

	link.ID = uuid.UUID(id.Bytes)
	link.OwnerID = uuidPtr(ownerID)
	link.Name = name.String

	if link.CreatedAt, err = mustTime(createdAt, "created_at"); err != nil {
		return Link{}, err
	}
	if link.UpdatedAt, err = mustTime(updatedAt, "updated_at"); err != nil {
		return Link{}, err
	}
	return link, nil
}

func mapRepoError(op string, err error) error {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return errx.E(op, errx.NotFound, err)

	case isSuffixUniqueViolation(err):
		return errx.E(op, errx.Conflict, err)

	default:
		return errx.E(op, errx.Unavailable, err)
	}
}

/***************
 * Link CRUD
 ***************/

func (r *repo) CreateLink(ctx context.Context, link Link) (Link, error) {
	const op = "links.repo.CreateLink"

	// Generate ID if not provided
	if link.ID == uuid.Nil {
		id, err := r.ids.Generate()
		if err != nil {
			return Link{}, errx.E(op, errx.Unavailable, err)
		}
		link.ID = id
	}

	row := r.db.QueryRow(ctx, `
		INSERT INTO links (id, user_id, name, original_url, custom_suffix)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+linkColumns,
		uuidValue(link.ID), uuidParam(link.OwnerID), textParam(link.Name),
		link.OriginalURL, link.CustomSuffix,
	)

	created, err := scanLink(row)
	if err != nil {
		return Link{}, mapRepoError(op, err)
	}
	return created, nil
}

func (r *repo) GetLinkBySuffix(ctx context.Context, suffix string) (Link, error) {
	const op = "links.repo.GetLinkBySuffix"

	row := r.db.QueryRow(ctx,
		"SELECT "+linkColumns+" FROM links WHERE custom_suffix = $1", suffix)

	link, err := scanLink(row)
	if err != nil {
		return Link{}, mapRepoError(op, err)
	}
	return link, nil
}

func (r *repo) GetLinkByID(ctx context.Context, id, ownerID uuid.UUID) (Link, error) {
	const op = "links.repo.GetLinkByID"

	// Anonymous links stay readable; links owned by someone else look
	// exactly like missing rows to the caller.
	row := r.db.QueryRow(ctx,
		"SELECT "+linkColumns+" FROM links WHERE id = $1 AND (user_id = $2 OR user_id IS NULL)",
		uuidValue(id), uuidValue(ownerID))

	link, err := scanLink(row)
	if err != nil {
		return Link{}, mapRepoError(op, err)
	}
	return link, nil
}

func (r *repo) UpdateLinkSuffix(ctx context.Context, id, ownerID uuid.UUID, suffix string) error {
	const op = "links.repo.UpdateLinkSuffix"

	tag, err := r.db.Exec(ctx, `
		UPDATE links SET custom_suffix = $3, updated_at = now()
		WHERE id = $1 AND user_id = $2`,
		uuidValue(id), uuidValue(ownerID), suffix)
	if err != nil {
		return mapRepoError(op, err)
	}
	if tag.RowsAffected() == 0 {
		return errx.E(op, errx.NotFound, errors.New("link not found"))
	}
	return nil
}

// likeEscaper makes ILIKE treat filter input literally. Postgres
// resolves the escapes against its default escape character, backslash.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func (r *repo) ListLinks(ctx context.Context, ownerID uuid.UUID, offset, limit int, nameFilter string) ([]Link, int64, error) {
	const op = "links.repo.ListLinks"

	filter := escapeLike(nameFilter)

	rows, err := r.db.Query(ctx, `
		SELECT `+linkColumns+` FROM links
		WHERE user_id = $1 AND ($2::text = '' OR name ILIKE '%' || $2 || '%')
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`,
		uuidValue(ownerID), filter, limit, offset)
	if err != nil {
		return nil, 0, mapRepoError(op, err)
	}
	defer rows.Close()

	items := make([]Link, 0, limit)
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, 0, mapRepoError(op, err)
		}
		items = append(items, link)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, mapRepoError(op, err)
	}

	var total int64
	err = r.db.QueryRow(ctx, `
		SELECT count(*) FROM links
		WHERE user_id = $1 AND ($2::text = '' OR name ILIKE '%' || $2 || '%')`,
		uuidValue(ownerID), filter).Scan(&total)
	if err != nil {
		return nil, 0, mapRepoError(op, err)
	}

	return items, total, nil
}

func (r *repo) SuffixExists(ctx context.Context, suffix string) (bool, error) {
	const op = "links.repo.SuffixExists"

	var exists bool
	err := r.db.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM links WHERE custom_suffix = $1)", suffix).Scan(&exists)
	if err != nil {
		return false, mapRepoError(op, err)
	}
	return exists, nil
}

/***************
 * Click tracking
 ***************/

// RecordClick applies the full click-tracking update as one transaction:
// link counter, owner counters, and the (link, country) visit upsert
// commit together or not at all.
func (r *repo) RecordClick(ctx context.Context, suffix, country string) error {
	const op = "links.repo.RecordClick"

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return errx.E(op, errx.Unavailable, err)
	}
	// Rollback is a no-op once the transaction has committed.
	defer func() { _ = tx.Rollback(ctx) }()

	var (
		linkID  pgtype.UUID
		ownerID pgtype.UUID
	)
	err = tx.QueryRow(ctx, `
		UPDATE links SET clicks = clicks + 1, updated_at = now()
		WHERE custom_suffix = $1
		RETURNING id, user_id`, suffix).Scan(&linkID, &ownerID)
	if err != nil {
		return mapRepoError(op, err)
	}

	if ownerID.Valid {
		// Has this owner ever seen this country, on any of their links?
		// Only the first occurrence bumps unique_country_count.
		var seen bool
		err = tx.QueryRow(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM visits v
				JOIN links l ON l.id = v.link_id
				WHERE l.user_id = $1 AND v.country = $2
			)`, ownerID, country).Scan(&seen)
		if err != nil {
			return errx.E(op, errx.Unavailable, err)
		}

		newCountry := 0
		if !seen {
			newCountry = 1
		}

		_, err = tx.Exec(ctx, `
			UPDATE users SET
				total_clicks = total_clicks + 1,
				unique_country_count = unique_country_count + $2,
				updated_at = now()
			WHERE id = $1`, ownerID, newCountry)
		if err != nil {
			return errx.E(op, errx.Unavailable, err)
		}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO visits (link_id, country, count)
		VALUES ($1, $2, 1)
		ON CONFLICT (link_id, country)
		DO UPDATE SET count = visits.count + 1`, linkID, country)
	if err != nil {
		return errx.E(op, errx.Unavailable, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return errx.E(op, errx.Unavailable, err)
	}
	return nil
}

/***************
 * Stats reads
 ***************/

func (r *repo) VisitsByLink(ctx context.Context, linkID uuid.UUID) ([]Visit, error) {
	const op = "links.repo.VisitsByLink"

	rows, err := r.db.Query(ctx, `
		SELECT link_id, country, count FROM visits
		WHERE link_id = $1
		ORDER BY count DESC, country ASC`, uuidValue(linkID))
	if err != nil {
		return nil, mapRepoError(op, err)
	}
	defer rows.Close()

	return scanVisits(op, rows)
}

func (r *repo) OwnerLinkCount(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	const op = "links.repo.OwnerLinkCount"

	var total int64
	err := r.db.QueryRow(ctx,
		"SELECT count(*) FROM links WHERE user_id = $1", uuidValue(ownerID)).Scan(&total)
	if err != nil {
		return 0, mapRepoError(op, err)
	}
	return total, nil
}

func (r *repo) OwnerDistinctURLCount(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	const op = "links.repo.OwnerDistinctURLCount"

	var total int64
	err := r.db.QueryRow(ctx,
		"SELECT count(DISTINCT original_url) FROM links WHERE user_id = $1",
		uuidValue(ownerID)).Scan(&total)
	if err != nil {
		return 0, mapRepoError(op, err)
	}
	return total, nil
}

func (r *repo) OwnerRecentLinks(ctx context.Context, ownerID uuid.UUID, limit int) ([]LinkRef, error) {
	const op = "links.repo.OwnerRecentLinks"

	rows, err := r.db.Query(ctx, `
		SELECT custom_suffix, original_url FROM links
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, uuidValue(ownerID), limit)
	if err != nil {
		return nil, mapRepoError(op, err)
	}
	defer rows.Close()

	refs := make([]LinkRef, 0, limit)
	for rows.Next() {
		var ref LinkRef
		if err := rows.Scan(&ref.CustomSuffix, &ref.OriginalURL); err != nil {
			return nil, mapRepoError(op, err)
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, mapRepoError(op, err)
	}
	return refs, nil
}

func (r *repo) OwnerTopVisits(ctx context.Context, ownerID uuid.UUID, limit int) ([]Visit, error) {
	const op = "links.repo.OwnerTopVisits"

	rows, err := r.db.Query(ctx, `
		SELECT v.link_id, v.country, v.count FROM visits v
		JOIN links l ON l.id = v.link_id
		WHERE l.user_id = $1
		ORDER BY v.count DESC, v.country ASC
		LIMIT $2`, uuidValue(ownerID), limit)
	if err != nil {
		return nil, mapRepoError(op, err)
	}
	defer rows.Close()

	return scanVisits(op, rows)
}

func (r *repo) OwnerCountryTotals(ctx context.Context, ownerID uuid.UUID) ([]CountryClicks, error) {
	const op = "links.repo.OwnerCountryTotals"

	rows, err := r.db.Query(ctx, `
		SELECT v.country, SUM(v.count) AS clicks FROM visits v
		JOIN links l ON l.id = v.link_id
		WHERE l.user_id = $1
		GROUP BY v.country
		ORDER BY clicks DESC, v.country ASC`, uuidValue(ownerID))
	if err != nil {
		return nil, mapRepoError(op, err)
	}
	defer rows.Close()

	totals := make([]CountryClicks, 0)
	for rows.Next() {
		var cc CountryClicks
		if err := rows.Scan(&cc.Country, &cc.Clicks); err != nil {
			return nil, mapRepoError(op, err)
		}
		totals = append(totals, cc)
	}
	if err := rows.Err(); err != nil {
		return nil, mapRepoError(op, err)
	}
	return totals, nil
}

func scanVisits(op string, rows pgx.Rows) ([]Visit, error) {
	visits := make([]Visit, 0)
	for rows.Next() {
		var (
			linkID pgtype.UUID
			v      Visit
		)
		if err := rows.Scan(&linkID, &v.Country, &v.Count); err != nil {
			return nil, mapRepoError(op, err)
		}
		v.LinkID = uuid.UUID(linkID.Bytes)
		visits = append(visits, v)
	}
	if err := rows.Err(); err != nil {
		return nil, mapRepoError(op, err)
	}
	return visits, nil
}
