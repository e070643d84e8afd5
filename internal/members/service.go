package members

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"github.com/chapterhub/chapterhub/internal/models"
)

// Service encapsulates member-related business logic
type Service struct {
	repo Repository
}

func NewService(r Repository) *Service {
	return &Service{repo: r}
}

// GetByID returns the member with the given identifier, or nil when absent.
func (s *Service) GetByID(ctx context.Context, id string) (*models.Member, error) {
	return s.repo.FindByID(ctx, id)
}

// Authenticate looks up a member by email and checks the password against the
// stored bcrypt hash. It returns nil for an unknown email and for a wrong
// password alike; callers must not reveal which one it was.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.Member, error) {
	m, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, nil
	}
	if err := bcrypt.CompareHashAndPassword([]byte(m.PasswordHash), []byte(password)); err != nil {
		return nil, nil
	}
	return m, nil
}
