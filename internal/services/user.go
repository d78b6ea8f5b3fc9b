package services

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/ielts-backend/internal/data/repos"
	types "github.com/yungbote/ielts-backend/internal/domain"
	"github.com/yungbote/ielts-backend/internal/domain/user"
	"github.com/yungbote/ielts-backend/internal/platform/apierr"
	"github.com/yungbote/ielts-backend/internal/platform/ctxutil"
	"github.com/yungbote/ielts-backend/internal/platform/dbctx"
	"github.com/yungbote/ielts-backend/internal/platform/logger"
	"github.com/yungbote/ielts-backend/internal/realtime"
	"github.com/yungbote/ielts-backend/internal/scoring"
)

const MaxAvatarBytes = 10 << 20

// ProfileUpdate holds optional fields; nil means unchanged.
type ProfileUpdate struct {
	FirstName  *string
	LastName   *string
	TargetBand *float64
	ExamModule *string
	ExamDate   *time.Time
	ClearDate  bool
	EmailOptIn *bool
}

type UserService interface {
	Me(ctx context.Context) (*types.User, error)
	UpdateProfile(ctx context.Context, in ProfileUpdate) (*types.User, error)
	UploadAvatar(ctx context.Context, r io.Reader) (*types.User, error)
}

type userService struct {
	log     *logger.Logger
	users   repos.UserRepo
	avatars AvatarService
	emit    SSEEmitter
}

func NewUserService(baseLog *logger.Logger, users repos.UserRepo, avatars AvatarService, emit SSEEmitter) UserService {
	return &userService{
		log:     baseLog.With("service", "UserService"),
		users:   users,
		avatars: avatars,
		emit:    emit,
	}
}

// requestUserID returns the authenticated caller or an unauthorized error.
func requestUserID(ctx context.Context) (uuid.UUID, error) {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return uuid.Nil, apierr.Unauthorized("not authenticated")
	}
	return rd.UserID, nil
}

func requireAdmin(ctx context.Context) error {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return apierr.Unauthorized("not authenticated")
	}
	if !rd.IsAdmin() {
		return apierr.Forbidden("admin role required")
	}
	return nil
}

func loadUser(ctx context.Context, users repos.UserRepo, id uuid.UUID) (*types.User, error) {
	rows, err := users.GetByIDs(dbctx.Context{Ctx: ctx}, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apierr.NotFound("user_not_found")
	}
	return rows[0], nil
}

func (s *userService) Me(ctx context.Context) (*types.User, error) {
	uid, err := requestUserID(ctx)
	if err != nil {
		return nil, err
	}
	return loadUser(ctx, s.users, uid)
}

func (s *userService) UpdateProfile(ctx context.Context, in ProfileUpdate) (*types.User, error) {
	uid, err := requestUserID(ctx)
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	if in.FirstName != nil {
		updates["first_name"] = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		updates["last_name"] = strings.TrimSpace(*in.LastName)
	}
	if in.TargetBand != nil {
		if !scoring.ValidBand(*in.TargetBand) {
			return nil, apierr.BadRequest("invalid_target_band", "target_band must be between 0 and 9 in half-band steps")
		}
		updates["target_band"] = *in.TargetBand
	}
	if in.ExamModule != nil {
		m := strings.ToLower(strings.TrimSpace(*in.ExamModule))
		if m != user.ModuleAcademic && m != user.ModuleGeneral {
			return nil, apierr.BadRequest("invalid_exam_module", "exam_module must be academic or general")
		}
		updates["exam_module"] = m
	}
	if in.ClearDate {
		updates["exam_date"] = nil
	} else if in.ExamDate != nil {
		updates["exam_date"] = in.ExamDate.UTC()
	}
	if in.EmailOptIn != nil {
		updates["email_opt_in"] = *in.EmailOptIn
	}
	if len(updates) > 0 {
		if err := s.users.UpdateFields(dbctx.Context{Ctx: ctx}, uid, updates); err != nil {
			return nil, fmt.Errorf("update profile: %w", err)
		}
	}
	u, err := loadUser(ctx, s.users, uid)
	if err != nil {
		return nil, err
	}
	s.notifyUpdated(ctx, u)
	return u, nil
}

func (s *userService) UploadAvatar(ctx context.Context, r io.Reader) (*types.User, error) {
	uid, err := requestUserID(ctx)
	if err != nil {
		return nil, err
	}
	raw, err := io.ReadAll(io.LimitReader(r, MaxAvatarBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read avatar: %w", err)
	}
	if len(raw) > MaxAvatarBytes {
		return nil, apierr.New(413, "file_too_large", fmt.Errorf("avatar exceeds %d bytes", MaxAvatarBytes))
	}
	u, err := loadUser(ctx, s.users, uid)
	if err != nil {
		return nil, err
	}
	if err := s.avatars.ReplaceFromImage(ctx, u, raw); err != nil {
		return nil, err
	}
	if err := s.users.UpdateFields(dbctx.Context{Ctx: ctx}, uid, map[string]interface{}{
		"avatar_bucket_key": u.AvatarBucketKey,
		"avatar_url":        u.AvatarURL,
	}); err != nil {
		return nil, fmt.Errorf("save avatar: %w", err)
	}
	s.notifyUpdated(ctx, u)
	return u, nil
}

func (s *userService) notifyUpdated(ctx context.Context, u *types.User) {
	if s.emit == nil {
		return
	}
	s.emit.Emit(ctx, realtime.SSEMessage{
		Channel: realtime.UserChannel(u.ID),
		Event:   realtime.SSEEventUserUpdated,
		Data:    map[string]any{"user": u},
	})
}
