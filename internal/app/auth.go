package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/neomorfeo/vendorhub/internal/domain"
)

// AuthService authenticates administrators and issues bearer tokens.
type AuthService struct {
	admins domain.AdminRepository
	hasher domain.PasswordHasher
	issuer domain.TokenIssuer
}

// NewAuthService creates an auth service with the given adapters.
func NewAuthService(admins domain.AdminRepository, hasher domain.PasswordHasher, issuer domain.TokenIssuer) *AuthService {
	return &AuthService{
		admins: admins,
		hasher: hasher,
		issuer: issuer,
	}
}

// Login checks the admin's credentials and returns a signed token.
// Unknown emails and wrong passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	admin, err := s.admins.GetAdminByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, domain.ErrAdminNotFound) {
		return "", domain.ErrInvalidCredentials
	}
	if err != nil {
		return "", fmt.Errorf("loading admin: %w", err)
	}

	if !s.hasher.Compare(password, admin.PasswordHash) {
		return "", domain.ErrInvalidCredentials
	}

	token, err := s.issuer.Issue(ctx, domain.Actor{ID: admin.ID, Role: admin.Role})
	if err != nil {
		return "", fmt.Errorf("issuing token: %w", err)
	}
	return token, nil
}

// EnsureAdmin creates an admin account unless one with the same email exists.
// It reports whether a new account was created.
func (s *AuthService) EnsureAdmin(ctx context.Context, name, email, password string, role domain.Role) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	_, err := s.admins.GetAdminByEmail(ctx, email)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, domain.ErrAdminNotFound) {
		return false, fmt.Errorf("loading admin: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return false, fmt.Errorf("hashing password: %w", err)
	}

	id, err := generateID()
	if err != nil {
		return false, fmt.Errorf("generating admin id: %w", err)
	}

	admin := domain.Admin{
		ID:           id,
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.admins.CreateAdmin(ctx, admin); err != nil {
		return false, fmt.Errorf("creating admin: %w", err)
	}
	return true, nil
}
