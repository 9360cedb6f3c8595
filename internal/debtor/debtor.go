package debtor

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound     = errors.New("debtor not found")
	ErrNameRequired = errors.New("debtor name is required")
)

// Debtor is someone the lender records debts against.
type Debtor struct {
	ID        uuid.UUID
	Name      string
	Phone     string
	Note      string
	Archived  bool
	CreatedAt time.Time
	UpdatedAt *time.Time
}

type CreateParams struct {
	Name  string
	Phone string
	Note  string
}

func (p CreateParams) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrNameRequired
	}

	return nil
}

type UpdateParams struct {
	Name  string
	Phone string
	Note  string
}

func (p UpdateParams) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrNameRequired
	}

	return nil
}
