package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

var ErrBadCredentials = errors.New("invalid email or password")

type Service struct {
	store      *Store
	secret     string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewService(store *Store, secret string, accessTTL, refreshTTL time.Duration) *Service {
	return &Service{store: store, secret: secret, accessTTL: accessTTL, refreshTTL: refreshTTL}
}

type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func (s *Service) Login(ctx context.Context, email, password string) (Tokens, User, error) {
	user, err := s.store.FindActiveUserByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return Tokens{}, User{}, ErrBadCredentials
	}
	if err != nil {
		return Tokens{}, User{}, err
	}
	if err := CheckPassword(user.PasswordHash, password); err != nil {
		return Tokens{}, User{}, ErrBadCredentials
	}

	tokens, err := s.issueTokens(ctx, user)
	if err != nil {
		return Tokens{}, User{}, err
	}
	if err := s.store.UpdateLastLogin(ctx, user.ID); err != nil {
		return Tokens{}, User{}, err
	}
	return tokens, user, nil
}

// Refresh rotates the session: the presented refresh token is replaced so a
// stolen token stops working after its first use.
func (s *Service) Refresh(ctx context.Context, userID, refreshToken string) (Tokens, error) {
	oldHash := hashToken(refreshToken)
	valid, err := s.store.SessionValid(ctx, userID, oldHash)
	if err != nil {
		return Tokens{}, err
	}
	if !valid {
		return Tokens{}, ErrInvalidToken
	}

	// Re-read identity so a role change takes effect on refresh.
	user, err := s.claimsForUser(ctx, userID)
	if err != nil {
		return Tokens{}, err
	}

	newRefresh, err := randomToken()
	if err != nil {
		return Tokens{}, err
	}
	if err := s.store.RotateSession(ctx, userID, oldHash, hashToken(newRefresh), time.Now().Add(s.refreshTTL)); err != nil {
		return Tokens{}, err
	}

	access, err := GenerateToken(s.secret, Claims{
		UserID:     user.ID,
		TenantID:   user.TenantID,
		EmployeeID: user.EmployeeID,
		Role:       user.Role,
	}, s.accessTTL)
	if err != nil {
		return Tokens{}, err
	}
	return Tokens{AccessToken: access, RefreshToken: newRefresh}, nil
}

func (s *Service) Logout(ctx context.Context, userID, refreshToken string) error {
	return s.store.RevokeSession(ctx, userID, hashToken(refreshToken))
}

func (s *Service) issueTokens(ctx context.Context, user User) (Tokens, error) {
	access, err := GenerateToken(s.secret, Claims{
		UserID:     user.ID,
		TenantID:   user.TenantID,
		EmployeeID: user.EmployeeID,
		Role:       user.Role,
	}, s.accessTTL)
	if err != nil {
		return Tokens{}, err
	}
	refresh, err := randomToken()
	if err != nil {
		return Tokens{}, err
	}
	if err := s.store.CreateSession(ctx, user.ID, hashToken(refresh), time.Now().Add(s.refreshTTL)); err != nil {
		return Tokens{}, err
	}
	return Tokens{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *Service) claimsForUser(ctx context.Context, userID string) (User, error) {
	var u User
	var employeeID *string
	err := s.store.DB.QueryRow(ctx, `
    SELECT u.id, u.tenant_id, e.id, u.email, u.role
    FROM users u
    LEFT JOIN employees e ON e.user_id = u.id
    WHERE u.id = $1 AND u.status = 'active'
  `, userID).Scan(&u.ID, &u.TenantID, &employeeID, &u.Email, &u.Role)
	if err != nil {
		return User{}, err
	}
	if employeeID != nil {
		u.EmployeeID = *employeeID
	}
	return u, nil
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
