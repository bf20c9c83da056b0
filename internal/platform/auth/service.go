package auth

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"RACE-backend/internal/platform/db"
)

var (
	ErrAlreadyExists = errors.New("already exists")
	ErrNotFound      = errors.New("not found")
	ErrAuthFailed    = errors.New("authentication failed")
	ErrInvalidRole   = errors.New("invalid role")
)

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type Config struct {
	Secret        []byte
	TokenTTL      time.Duration
	StudentDomain string
}

type Service struct {
	store AccountStore
	cfg   Config
	clock Clock
}

func NewService(store AccountStore, cfg Config) *Service {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	return &Service{store: store, cfg: cfg, clock: realClock{}}
}

// WithClock はテスト用
func (s *Service) WithClock(c Clock) *Service {
	s.clock = c
	return s
}

type AuthService interface {
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	Register(ctx context.Context, in RegisterInput) error
	Delete(ctx context.Context, email string) error
	List(ctx context.Context) ([]Account, error)
}

type LoginResult struct {
	Token    string   `json:"token"`
	Identity Identity `json:"user"`
}

type RegisterInput struct {
	Email      string
	Password   string
	Role       string
	Name       string
	Department string
}

func (s *Service) Secret() []byte { return s.cfg.Secret }

// Login: スタッフは bcrypt、学生はメールアドレスの形式だけで判定（パスワード無し）
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.TrimSpace(email)
	acct, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	var id Identity
	switch {
	case acct != nil:
		if acct.IsDisabled {
			log.Printf("[WARN] login refused (disabled): %s", email)
			return nil, ErrAuthFailed
		}
		if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)); err != nil {
			log.Printf("[WARN] login failed (staff): bad password for %s", email)
			return nil, ErrAuthFailed
		}
		id = Identity{Email: acct.Email, Role: acct.Role, Name: acct.Name, Department: acct.Department}
	default:
		student, ok := ParseStudentEmail(email, s.cfg.StudentDomain)
		if !ok {
			log.Printf("[WARN] login failed: unknown user or invalid email format %q", email)
			return nil, ErrAuthFailed
		}
		id = student
	}

	token, err := s.issue(id)
	if err != nil {
		return nil, err
	}
	log.Printf("[INFO] login success: %s (%s)", id.Email, id.Role)
	return &LoginResult{Token: token, Identity: id}, nil
}

func (s *Service) issue(id Identity) (string, error) {
	now := s.clock.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  id.Email,
		"role": id.Role,
		"name": id.Name,
		"dept": id.Department,
		"year": id.Year,
		"iat":  now.Unix(),
		"exp":  now.Add(s.cfg.TokenTTL).Unix(),
	})
	return token.SignedString(s.cfg.Secret)
}

func (s *Service) Register(ctx context.Context, in RegisterInput) error {
	in.Email = strings.TrimSpace(in.Email)
	if !IsStaffRole(in.Role) {
		return ErrInvalidRole
	}
	exists, err := s.store.GetByEmail(ctx, in.Email)
	if err != nil {
		return err
	}
	if exists != nil {
		return ErrAlreadyExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	err = s.store.Create(ctx, &Account{
		Email:        in.Email,
		PasswordHash: string(hash),
		Role:         in.Role,
		Name:         in.Name,
		Department:   in.Department,
		CreatedAt:    s.clock.Now(),
	})
	if db.IsDuplicateKey(err) {
		return ErrAlreadyExists
	}
	return err
}

func (s *Service) Delete(ctx context.Context, email string) error {
	n, err := s.store.Delete(ctx, email)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Service) List(ctx context.Context) ([]Account, error) {
	return s.store.List(ctx)
}

// EnsureBootstrapAdmin: 設定に初期管理者があり未登録なら作成する
func (s *Service) EnsureBootstrapAdmin(ctx context.Context, email, password, name string) error {
	if email == "" || password == "" {
		return nil
	}
	err := s.Register(ctx, RegisterInput{Email: email, Password: password, Role: RoleAdmin, Name: name})
	if errors.Is(err, ErrAlreadyExists) {
		return nil
	}
	if err == nil {
		log.Printf("[INFO] bootstrap admin created: %s", email)
	}
	return err
}
