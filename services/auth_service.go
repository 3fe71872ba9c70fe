package services

import (
	"fmt"

	"cms-messaging/auth"
	"cms-messaging/domain"
	"cms-messaging/errors"
	"cms-messaging/repositories"
)

type IAuthService interface {
	Register(req auth.RegisterRequest) (string, error)
	Login(req auth.LoginRequest) (string, domain.User, error)
}

// AuthService is the collaborator that turns credentials into
// principals. The messaging core only ever sees the resulting user id.
type AuthService struct {
	users  repositories.IUserRepository
	tokens auth.TokenIssuer
}

func NewAuthService(users repositories.IUserRepository, tokens auth.TokenIssuer) *AuthService {
	return &AuthService{users: users, tokens: tokens}
}

// Register validates the request, hashes the password and persists the
// account. Returns the new user id.
func (s *AuthService) Register(req auth.RegisterRequest) (string, error) {
	if err := auth.ValidateRegister(req); err != nil {
		return "", err
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return s.users.CreateUser(req.Username, req.Email, hash)
}

// Login verifies the credentials and issues a bearer token. An unknown
// email and a wrong password are indistinguishable to the caller.
func (s *AuthService) Login(req auth.LoginRequest) (string, domain.User, error) {
	if err := auth.ValidateLogin(req); err != nil {
		return "", domain.User{}, err
	}

	user, err := s.users.GetUserByEmail(req.Email)
	if err != nil {
		return "", domain.User{}, errors.ErrInvalidCredentials
	}

	match, err := auth.ComparePassword(req.Password, user.PasswordHash)
	if err != nil || !match {
		return "", domain.User{}, errors.ErrInvalidCredentials
	}

	token, err := s.tokens.Generate(user)
	if err != nil {
		return "", domain.User{}, err
	}
	return token, user, nil
}
