package user

import (
	"context"
	"strings"
	"time"

	"github.com/RoadRescue/RoadRescue/internal/common/auth"
	"github.com/RoadRescue/RoadRescue/internal/common/config"
	"github.com/RoadRescue/RoadRescue/internal/domain"
	"github.com/google/uuid"
)

const accessTokenTTL = 24 * time.Hour

// Service 用户注册/登录/资料。
type Service struct {
	repo    *Repo
	authCfg config.AuthConfig
}

func NewService(repo *Repo, authCfg config.AuthConfig) *Service {
	return &Service{repo: repo, authCfg: authCfg}
}

// RegisterInput 注册入参。
type RegisterInput struct {
	Username string
	Password string
	FullName string
	Phone    string
	Email    string
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return nil, domain.ValidationError{Field: "username", Msg: "required"}
	}
	if in.Password == "" {
		return nil, domain.ValidationError{Field: "password", Msg: "required"}
	}

	existing, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ConflictError{Resource: "user", Msg: "username already exists"}
	}

	salt, err := GenerateSaltHex()
	if err != nil {
		return nil, err
	}
	hash, err := HashPassword(in.Password, salt)
	if err != nil {
		return nil, err
	}

	u := &User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		PasswordSalt: salt,
		FullName:     strings.TrimSpace(in.FullName),
		Phone:        strings.TrimSpace(in.Phone),
		Email:        strings.TrimSpace(in.Email),
		Roles:        RolesJoin([]string{"user"}),
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Login 校验口令并签发访问令牌。
func (s *Service) Login(ctx context.Context, username, password string) (*User, string, time.Time, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, "", time.Time{}, domain.ValidationError{Field: "username", Msg: "username/password required"}
	}

	u, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	if u == nil || !VerifyPassword(password, u.PasswordSalt, u.PasswordHash) {
		// 不区分用户不存在与口令错误
		return nil, "", time.Time{}, domain.NotFoundError{Resource: "credentials", ID: username}
	}

	token, exp, err := auth.GenerateAccessToken(s.authCfg, u.ID, u.RolesSlice(), accessTokenTTL)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return u, token, exp, nil
}

func (s *Service) Profile(ctx context.Context, userID string) (*User, error) {
	return s.repo.FindByID(ctx, userID)
}
