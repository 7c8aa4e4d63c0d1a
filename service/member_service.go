// Package service holds the member directory's business rules: input
// validation, email uniqueness and the transactional shape of each
// operation. Handlers translate its typed errors into HTTP responses.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Skryldev/member-directory/db"
	"github.com/Skryldev/member-directory/models"
	"github.com/Skryldev/member-directory/repo"
)

// MemberService validates and persists member CRUD operations.
type MemberService struct {
	store *db.DB
	log   *slog.Logger
}

// NewMemberService returns a MemberService writing through store.
func NewMemberService(store *db.DB, logger *slog.Logger) *MemberService {
	if logger == nil {
		logger = slog.Default()
	}
	return &MemberService{store: store, log: logger}
}

// List returns all members ordered by ascending id. An empty directory is
// reported as ErrNoMembers.
func (s *MemberService) List(ctx context.Context) ([]*models.Member, error) {
	members, err := repo.NewMemberRepo(s.store).ListOrderedByID(ctx)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	if len(members) == 0 {
		return nil, ErrNoMembers
	}
	return members, nil
}

// Create validates p and stores a new member.
func (s *MemberService) Create(ctx context.Context, p models.MemberPayload) (*models.Member, error) {
	in, err := ValidatePayload(p)
	if err != nil {
		return nil, err
	}

	var created *models.Member
	err = s.store.ExecTx(ctx, func(tx *db.Tx) error {
		members := repo.NewMemberRepo(tx)

		if _, err := members.FindByEmail(ctx, in.Email); err == nil {
			return ErrEmailExists
		} else if !db.IsNotFound(err) {
			return err
		}

		m, err := members.Insert(ctx, in)
		if err != nil {
			return err
		}
		created = m
		return nil
	})
	if err != nil {
		return nil, s.translate(err, "create member")
	}

	s.log.InfoContext(ctx, "member created", "member_id", created.ID)
	return created, nil
}

// Get returns member id or ErrInvalidMemberID.
func (s *MemberService) Get(ctx context.Context, id int64) (*models.Member, error) {
	if id <= 0 {
		return nil, ErrInvalidMemberID
	}
	m, err := repo.NewMemberRepo(s.store).FindByID(ctx, id)
	if err != nil {
		return nil, s.translate(err, "get member")
	}
	return m, nil
}

// Update replaces name, email and level of member id and returns the stored
// row. The member is looked up before the payload is validated.
func (s *MemberService) Update(ctx context.Context, id int64, p models.MemberPayload) (*models.Member, error) {
	if id <= 0 {
		return nil, ErrInvalidMemberID
	}

	var updated *models.Member
	err := s.store.ExecTx(ctx, func(tx *db.Tx) error {
		members := repo.NewMemberRepo(tx)

		if _, err := members.FindByID(ctx, id); err != nil {
			return err
		}

		in, err := ValidatePayload(p)
		if err != nil {
			return err
		}

		owner, err := members.FindByEmail(ctx, in.Email)
		switch {
		case err == nil && owner.ID != id:
			return ErrEmailExists
		case err != nil && !db.IsNotFound(err):
			return err
		}

		if err := members.Update(ctx, id, in); err != nil {
			return err
		}

		updated, err = members.FindByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, s.translate(err, "update member")
	}

	s.log.InfoContext(ctx, "member updated", "member_id", id)
	return updated, nil
}

// Delete removes member id permanently.
func (s *MemberService) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrInvalidMemberID
	}
	if err := repo.NewMemberRepo(s.store).Delete(ctx, id); err != nil {
		return s.translate(err, "delete member")
	}

	s.log.InfoContext(ctx, "member deleted", "member_id", id)
	return nil
}

// translate maps store sentinels onto the service taxonomy. Anything left
// over is a store failure and keeps its cause for logging.
func (s *MemberService) translate(err error, op string) error {
	var ve *ValidationError
	var nf *NotFoundError
	switch {
	case errors.As(err, &ve), errors.As(err, &nf):
		return err
	case db.IsNotFound(err):
		return ErrInvalidMemberID
	case db.IsDuplicateKey(err):
		return ErrEmailExists
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
