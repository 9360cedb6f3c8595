package debtor

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=debtor
type Repository interface {
	CreateDebtor(ctx context.Context, d *Debtor) error
	GetDebtor(ctx context.Context, id uuid.UUID) (*Debtor, error)
	ListDebtors(ctx context.Context, filter ListFilter) ([]*Debtor, error)
	UpdateDebtor(ctx context.Context, d *Debtor) error
	SetArchived(ctx context.Context, id uuid.UUID, archived bool) error
	DeleteDebtor(ctx context.Context, id uuid.UUID) error
}

type ListFilter struct {
	IncludeArchived bool
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, params CreateParams) (*Debtor, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	d := &Debtor{
		Name:  strings.TrimSpace(params.Name),
		Phone: params.Phone,
		Note:  params.Note,
	}
	if err := s.repo.CreateDebtor(ctx, d); err != nil {
		return nil, err
	}

	return d, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Debtor, error) {
	return s.repo.GetDebtor(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Debtor, error) {
	return s.repo.ListDebtors(ctx, filter)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, params UpdateParams) (*Debtor, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	d, err := s.repo.GetDebtor(ctx, id)
	if err != nil {
		return nil, err
	}

	d.Name = strings.TrimSpace(params.Name)
	d.Phone = params.Phone
	d.Note = params.Note

	if err := s.repo.UpdateDebtor(ctx, d); err != nil {
		return nil, err
	}

	return d, nil
}

func (s *Service) Archive(ctx context.Context, id uuid.UUID) error {
	return s.repo.SetArchived(ctx, id, true)
}

func (s *Service) Unarchive(ctx context.Context, id uuid.UUID) error {
	return s.repo.SetArchived(ctx, id, false)
}

// Delete removes the debtor; agreements, installments and payments cascade.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteDebtor(ctx, id)
}
