// Package aggregates runs read-only reporting queries that span several
// attempt tables. It shares gorm's connection pool through sqlx.
package aggregates

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"gorm.io/gorm"

	"github.com/yungbote/ielts-backend/internal/platform/logger"
)

// SkillTotal is one row of a per-skill rollup.
type SkillTotal struct {
	Skill    string  `db:"skill" json:"skill"`
	Attempts int     `db:"attempts" json:"attempts"`
	AvgBand  float64 `db:"avg_band" json:"avg_band"`
	Minutes  float64 `db:"minutes" json:"minutes"`
}

type Store struct {
	db  *sqlx.DB
	log *logger.Logger
}

func New(gdb *gorm.DB, baseLog *logger.Logger) (*Store, error) {
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("aggregates: underlying sql.DB: %w", err)
	}
	driver := "postgres"
	if gdb.Dialector.Name() == "sqlite" {
		driver = "sqlite3"
	}
	return &Store{
		db:  sqlx.NewDb(sqlDB, driver),
		log: baseLog.With("component", "AggregateStore"),
	}, nil
}

// attemptFeed is the scored-attempt union. Every branch takes the same
// three args: from, to, and the optional user filter appended by caller.
const attemptFeed = `
SELECT user_id, 'speaking' AS skill, band, COALESCE(duration_sec, 0) / 60.0 AS minutes, scored_at AS at
  FROM speaking_session
 WHERE band IS NOT NULL AND deleted_at IS NULL AND scored_at >= ? AND scored_at < ? %[1]s
UNION ALL
SELECT user_id, 'writing' AS skill, band, time_spent_sec / 60.0 AS minutes, scored_at AS at
  FROM writing_submission
 WHERE band IS NOT NULL AND deleted_at IS NULL AND scored_at >= ? AND scored_at < ? %[1]s
UNION ALL
SELECT user_id, 'reading' AS skill, band, time_spent_sec / 60.0 AS minutes, created_at AS at
  FROM reading_test
 WHERE deleted_at IS NULL AND created_at >= ? AND created_at < ? %[1]s
UNION ALL
SELECT user_id, 'listening' AS skill, band, time_spent_sec / 60.0 AS minutes, created_at AS at
  FROM listening_test
 WHERE deleted_at IS NULL AND created_at >= ? AND created_at < ? %[1]s
`

func feed(from, to time.Time, userID *uuid.UUID) (string, []interface{}) {
	filter := ""
	if userID != nil {
		filter = "AND user_id = ?"
	}
	args := make([]interface{}, 0, 12)
	for i := 0; i < 4; i++ {
		args = append(args, from.UTC(), to.UTC())
		if userID != nil {
			args = append(args, *userID)
		}
	}
	return fmt.Sprintf(attemptFeed, filter), args
}

// SkillTotals rolls up one user's scored attempts in [from, to).
func (s *Store) SkillTotals(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]SkillTotal, error) {
	return s.totals(ctx, &userID, from, to)
}

// PlatformTotals is SkillTotals across every user.
func (s *Store) PlatformTotals(ctx context.Context, from, to time.Time) ([]SkillTotal, error) {
	return s.totals(ctx, nil, from, to)
}

func (s *Store) totals(ctx context.Context, userID *uuid.UUID, from, to time.Time) ([]SkillTotal, error) {
	inner, args := feed(from, to, userID)
	q := s.db.Rebind(`
SELECT skill, COUNT(*) AS attempts, AVG(band) AS avg_band, SUM(minutes) AS minutes
  FROM (` + inner + `) feed
 GROUP BY skill
 ORDER BY skill`)
	var out []SkillTotal
	if err := s.db.SelectContext(ctx, &out, q, args...); err != nil {
		return nil, fmt.Errorf("aggregates: skill totals: %w", err)
	}
	return out, nil
}

// Point is one scored attempt on a user's band history.
type Point struct {
	Skill   string   `db:"skill" json:"skill"`
	Band    float64  `db:"band" json:"band"`
	Minutes float64  `db:"minutes" json:"minutes"`
	At      feedTime `db:"at" json:"at"`
}

// feedTime accepts the driver's time.Time and SQLite's text timestamps.
type feedTime struct{ time.Time }

var feedTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func (t *feedTime) Scan(v interface{}) error {
	switch x := v.(type) {
	case nil:
		t.Time = time.Time{}
		return nil
	case time.Time:
		t.Time = x.UTC()
		return nil
	case []byte:
		return t.parse(string(x))
	case string:
		return t.parse(x)
	}
	return fmt.Errorf("aggregates: unsupported time value %T", v)
}

func (t *feedTime) parse(s string) error {
	s = strings.TrimSpace(s)
	for _, layout := range feedTimeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("aggregates: unparseable time %q", s)
}

func (t feedTime) MarshalJSON() ([]byte, error) { return t.Time.MarshalJSON() }

// History lists one user's scored attempts in [from, to), oldest first.
func (s *Store) History(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]Point, error) {
	inner, args := feed(from, to, &userID)
	q := s.db.Rebind(`SELECT skill, band, minutes, at FROM (` + inner + `) feed ORDER BY at ASC, skill ASC`)
	var out []Point
	if err := s.db.SelectContext(ctx, &out, q, args...); err != nil {
		return nil, fmt.Errorf("aggregates: history: %w", err)
	}
	return out, nil
}

// ActiveUserIDs lists users with at least one scored attempt in [from, to).
func (s *Store) ActiveUserIDs(ctx context.Context, from, to time.Time) ([]uuid.UUID, error) {
	inner, args := feed(from, to, nil)
	q := s.db.Rebind(`SELECT DISTINCT user_id FROM (` + inner + `) feed ORDER BY user_id`)
	var raw []string
	if err := s.db.SelectContext(ctx, &raw, q, args...); err != nil {
		return nil, fmt.Errorf("aggregates: active users: %w", err)
	}
	out := make([]uuid.UUID, 0, len(raw))
	for _, r := range raw {
		id, err := uuid.Parse(strings.TrimSpace(r))
		if err != nil {
			s.log.Warn("skipping malformed user id", "value", r)
			continue
		}
		out = append(out, id)
	}
	return out, nil
}

// CountUsers returns the number of registered, non-deleted users.
func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM "user" WHERE deleted_at IS NULL`); err != nil {
		return 0, fmt.Errorf("aggregates: count users: %w", err)
	}
	return n, nil
}
