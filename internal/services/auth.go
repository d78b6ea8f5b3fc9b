package services

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	datadb "github.com/yungbote/ielts-backend/internal/data/db"
	"github.com/yungbote/ielts-backend/internal/data/repos"
	types "github.com/yungbote/ielts-backend/internal/domain"
	"github.com/yungbote/ielts-backend/internal/domain/user"
	"github.com/yungbote/ielts-backend/internal/platform/apierr"
	"github.com/yungbote/ielts-backend/internal/platform/ctxutil"
	"github.com/yungbote/ielts-backend/internal/platform/dbctx"
	"github.com/yungbote/ielts-backend/internal/platform/logger"
)

const minPasswordLen = 8

type RegisterInput struct {
	Email      string
	Password   string
	FirstName  string
	LastName   string
	TargetBand float64
	ExamModule string
}

// Session is the token pair handed to clients.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int64     `json:"expires_in"`
	ExpiresAt    time.Time `json:"refresh_expires_at"`
}

type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*types.User, *Session, error)
	Login(ctx context.Context, email, password string) (*types.User, *Session, error)
	Refresh(ctx context.Context, refreshToken string) (*Session, error)
	Logout(ctx context.Context) error
	// Authenticate validates an access JWT and that its session still exists.
	Authenticate(ctx context.Context, tokenString string) (*ctxutil.RequestData, error)
}

type AuthConfig struct {
	JWTSecret   string
	AccessTTL   time.Duration
	RefreshTTL  time.Duration
	AdminEmails []string
}

type JWTClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type authService struct {
	db       *gorm.DB
	log      *logger.Logger
	users    repos.UserRepo
	tokens   repos.UserTokenRepo
	avatars  AvatarService
	jobs     JobService
	cfg      AuthConfig
	adminSet map[string]bool
	nowFunc  func() time.Time
}

func NewAuthService(
	db *gorm.DB,
	baseLog *logger.Logger,
	users repos.UserRepo,
	tokens repos.UserTokenRepo,
	avatars AvatarService,
	jobs JobService,
	cfg AuthConfig,
) AuthService {
	admins := make(map[string]bool, len(cfg.AdminEmails))
	for _, e := range cfg.AdminEmails {
		if e = normalizeEmail(e); e != "" {
			admins[e] = true
		}
	}
	return &authService{
		db:       db,
		log:      baseLog.With("service", "AuthService"),
		users:    users,
		tokens:   tokens,
		avatars:  avatars,
		jobs:     jobs,
		cfg:      cfg,
		adminSet: admins,
		nowFunc:  func() time.Time { return time.Now().UTC() },
	}
}

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func (s *authService) Register(ctx context.Context, in RegisterInput) (*types.User, *Session, error) {
	email := normalizeEmail(in.Email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, nil, apierr.BadRequest("invalid_email", "email address is not valid")
	}
	if len(in.Password) < minPasswordLen {
		return nil, nil, apierr.BadRequest("weak_password", fmt.Sprintf("password must be at least %d characters", minPasswordLen))
	}
	exists, err := s.users.EmailExists(dbctx.Context{Ctx: ctx}, email)
	if err != nil {
		return nil, nil, err
	}
	if exists {
		return nil, nil, apierr.Conflict("email_taken", "an account with this email already exists")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}

	u := &types.User{
		ID:         uuid.New(),
		Email:      email,
		Password:   string(hash),
		FirstName:  strings.TrimSpace(in.FirstName),
		LastName:   strings.TrimSpace(in.LastName),
		Role:       user.RoleStudent,
		TargetBand: 7,
		ExamModule: user.ModuleAcademic,
		EmailOptIn: true,
	}
	if in.TargetBand > 0 {
		u.TargetBand = in.TargetBand
	}
	if in.ExamModule != "" {
		u.ExamModule = in.ExamModule
	}
	if s.adminSet[email] {
		u.Role = user.RoleAdmin
	}
	if s.avatars != nil {
		if err := s.avatars.GenerateInitials(ctx, u); err != nil {
			// A missing avatar never blocks sign-up.
			s.log.Warn("Generate avatar failed", "user_id", u.ID, "error", err)
		}
	}

	var sess *Session
	var welcome *types.JobRun
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: ctx, Tx: tx}
		if _, err := s.users.Create(inner, []*types.User{u}); err != nil {
			if datadb.IsUniqueViolation(err) {
				return apierr.Conflict("email_taken", "an account with this email already exists")
			}
			return fmt.Errorf("create user: %w", err)
		}
		var err error
		if sess, err = s.issue(inner, u); err != nil {
			return err
		}
		if s.jobs != nil {
			welcome, err = s.jobs.Enqueue(inner, u.ID, types.JobTypeEmailSend, "user", &u.ID, map[string]any{
				"kind":    "welcome",
				"user_id": u.ID.String(),
			})
			return err
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	if welcome != nil {
		if err := s.jobs.Dispatch(dbctx.Context{Ctx: ctx}, welcome.ID); err != nil {
			s.log.Warn("Dispatch welcome email failed", "job_id", welcome.ID, "error", err)
		}
	}
	return u, sess, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (*types.User, *Session, error) {
	users, err := s.users.GetByEmails(dbctx.Context{Ctx: ctx}, []string{normalizeEmail(email)})
	if err != nil {
		return nil, nil, err
	}
	if len(users) == 0 {
		return nil, nil, apierr.Unauthorized("invalid email or password")
	}
	u := users[0]
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		return nil, nil, apierr.Unauthorized("invalid email or password")
	}
	sess, err := s.issue(dbctx.Context{Ctx: ctx}, u)
	if err != nil {
		return nil, nil, err
	}
	return u, sess, nil
}

// Refresh rotates the session: the old token row is deleted in the same
// transaction that creates the new one, so a refresh token works once. The
// delete decides the winner between concurrent refreshes of one token.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil, apierr.BadRequest("missing_refresh_token", "refresh_token is required")
	}
	found, err := s.tokens.GetByRefreshTokens(dbctx.Context{Ctx: ctx}, []string{refreshToken})
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, apierr.Unauthorized("invalid refresh token")
	}
	old := found[0]
	if old.ExpiresAt.Before(s.nowFunc()) {
		if _, err := s.tokens.FullDeleteByIDs(dbctx.Context{Ctx: ctx}, []uuid.UUID{old.ID}); err != nil {
			s.log.Warn("Delete expired session failed", "session_id", old.ID, "error", err)
		}
		return nil, apierr.Unauthorized("refresh token expired")
	}

	var sess *Session
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: ctx, Tx: tx}
		users, err := s.users.GetByIDs(inner, []uuid.UUID{old.UserID})
		if err != nil {
			return err
		}
		if len(users) == 0 {
			return apierr.Unauthorized("user no longer exists")
		}
		n, err := s.tokens.FullDeleteByIDs(inner, []uuid.UUID{old.ID})
		if err != nil {
			return fmt.Errorf("delete old session: %w", err)
		}
		if n == 0 {
			return apierr.Unauthorized("refresh token already used")
		}
		sess, err = s.issue(inner, users[0])
		return err
	})
	if err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *authService) Logout(ctx context.Context) error {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.TokenString == "" {
		return apierr.Unauthorized("not authenticated")
	}
	found, err := s.tokens.GetByAccessTokens(dbctx.Context{Ctx: ctx}, []string{rd.TokenString})
	if err != nil {
		return err
	}
	if len(found) == 0 {
		return nil
	}
	_, err = s.tokens.FullDeleteByIDs(dbctx.Context{Ctx: ctx}, []uuid.UUID{found[0].ID})
	return err
}

func (s *authService) Authenticate(ctx context.Context, tokenString string) (*ctxutil.RequestData, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, apierr.Unauthorized("missing token")
	}
	claims := &JWTClaims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.nowFunc))
	if err != nil || !parsed.Valid {
		return nil, apierr.Unauthorized("invalid or expired token")
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, apierr.Unauthorized("invalid token subject")
	}
	found, err := s.tokens.GetByAccessTokens(dbctx.Context{Ctx: ctx}, []string{tokenString})
	if err != nil {
		return nil, err
	}
	if len(found) == 0 || found[0].UserID != userID {
		return nil, apierr.Unauthorized("session revoked")
	}
	return &ctxutil.RequestData{
		TokenString: tokenString,
		UserID:      userID,
		Role:        claims.Role,
		SessionID:   found[0].ID.String(),
	}, nil
}

func (s *authService) issue(dbc dbctx.Context, u *types.User) (*Session, error) {
	now := s.nowFunc()
	claims := JWTClaims{
		Role: u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   u.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.AccessTTL)),
		},
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	row := &types.UserToken{
		UserID:       u.ID,
		AccessToken:  access,
		RefreshToken: uuid.NewString(),
		ExpiresAt:    now.Add(s.cfg.RefreshTTL),
	}
	if _, err := s.tokens.Create(dbc, []*types.UserToken{row}); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return &Session{
		AccessToken:  access,
		RefreshToken: row.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.cfg.AccessTTL / time.Second),
		ExpiresAt:    row.ExpiresAt,
	}, nil
}
