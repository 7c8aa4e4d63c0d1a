package repo

import (
	"context"
	"fmt"

	"github.com/Skryldev/member-directory/db"
	"github.com/Skryldev/member-directory/models"
)

// ─────────────────────────────────────────────────────────────────────────────
// MemberRepository
// ─────────────────────────────────────────────────────────────────────────────

// MemberRepository is the data-access contract for the members table.
// Lookups that match nothing return an error satisfying db.IsNotFound.
type MemberRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Member, error)
	FindByEmail(ctx context.Context, email string) (*models.Member, error)
	ListOrderedByID(ctx context.Context) ([]*models.Member, error)
	Insert(ctx context.Context, in models.MemberInput) (*models.Member, error)
	Update(ctx context.Context, id int64, in models.MemberInput) error
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int64, error)
}

// memberRepo is the production implementation backed by a db.Querier.
type memberRepo struct {
	q db.Querier
}

// NewMemberRepo returns a MemberRepository backed by q, which may be a *db.DB
// or a *db.Tx.
func NewMemberRepo(q db.Querier) MemberRepository {
	return &memberRepo{q: q}
}

// ─────────────────────────────────────────────────────────────────────────────
// SQL
// ─────────────────────────────────────────────────────────────────────────────

// Placeholders are written as "?" and rebound per dialect by the db package.
const (
	sqlInsertMember = `
		INSERT INTO members (name, email, level)
		VALUES (?, ?, ?)`

	sqlInsertMemberReturning = sqlInsertMember + `
		RETURNING id`

	sqlFindMemberByID = `
		SELECT id, name, email, level
		FROM   members
		WHERE  id = ?`

	sqlFindMemberByEmail = `
		SELECT id, name, email, level
		FROM   members
		WHERE  email = ?`

	sqlListMembers = `
		SELECT   id, name, email, level
		FROM     members
		ORDER BY id ASC`

	sqlUpdateMember = `
		UPDATE members
		SET    name = ?, email = ?, level = ?
		WHERE  id = ?`

	sqlDeleteMember = `
		DELETE FROM members WHERE id = ?`

	sqlCountMembers = `
		SELECT COUNT(*) FROM members`
)

// FindByID returns the member with primary key id.
func (r *memberRepo) FindByID(ctx context.Context, id int64) (*models.Member, error) {
	return scanMember(r.q.QueryRow(ctx, sqlFindMemberByID, id))
}

// FindByEmail returns the member registered under email.
func (r *memberRepo) FindByEmail(ctx context.Context, email string) (*models.Member, error) {
	return scanMember(r.q.QueryRow(ctx, sqlFindMemberByEmail, email))
}

// ListOrderedByID returns every member in ascending id order.
func (r *memberRepo) ListOrderedByID(ctx context.Context) ([]*models.Member, error) {
	rows, err := r.q.Query(ctx, sqlListMembers)
	if err != nil {
		return nil, fmt.Errorf("repo/member: list: %w", err)
	}
	defer rows.Close()

	var members []*models.Member
	for rows.Next() {
		m := &models.Member{}
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &m.Level); err != nil {
			return nil, fmt.Errorf("repo/member: scan: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo/member: list: %w", err)
	}
	return members, nil
}

// Insert stores a new member and returns it with its assigned id.
// A taken email fails with db.ErrDuplicateKey.
func (r *memberRepo) Insert(ctx context.Context, in models.MemberInput) (*models.Member, error) {
	var id int64
	if r.q.Dialect().SupportsLastInsertID() {
		res, err := r.q.Exec(ctx, sqlInsertMember, in.Name, in.Email, in.Level)
		if err != nil {
			return nil, fmt.Errorf("repo/member: insert: %w", err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return nil, fmt.Errorf("repo/member: insert id: %w", err)
		}
	} else {
		err := r.q.QueryRow(ctx, sqlInsertMemberReturning, in.Name, in.Email, in.Level).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("repo/member: insert: %w", err)
		}
	}

	return &models.Member{ID: id, Name: in.Name, Email: in.Email, Level: in.Level}, nil
}

// Update overwrites name, email and level of member id. It does not check
// that the row exists: MySQL reports zero affected rows for an update that
// changes nothing, so callers look the member up first.
func (r *memberRepo) Update(ctx context.Context, id int64, in models.MemberInput) error {
	if _, err := r.q.Exec(ctx, sqlUpdateMember, in.Name, in.Email, in.Level, id); err != nil {
		return fmt.Errorf("repo/member: update: %w", err)
	}
	return nil
}

// Delete removes member id. Returns db.ErrNotFound if no row was deleted.
func (r *memberRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.q.Exec(ctx, sqlDeleteMember, id)
	if err != nil {
		return fmt.Errorf("repo/member: delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("repo/member: delete: %w", err)
	}
	if n == 0 {
		return db.ErrNotFound
	}
	return nil
}

// Count returns the number of stored members.
func (r *memberRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.q.QueryRow(ctx, sqlCountMembers).Scan(&n); err != nil {
		return 0, fmt.Errorf("repo/member: count: %w", err)
	}
	return n, nil
}

// scanMember is the single place that maps a members row onto the model.
func scanMember(row *db.Row) (*models.Member, error) {
	m := &models.Member{}
	if err := row.Scan(&m.ID, &m.Name, &m.Email, &m.Level); err != nil {
		return nil, fmt.Errorf("repo/member: %w", err)
	}
	return m, nil
}

var _ MemberRepository = (*memberRepo)(nil)
