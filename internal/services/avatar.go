package services

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math/rand/v2"
	"os"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"

	types "github.com/yungbote/ielts-backend/internal/domain"
	"github.com/yungbote/ielts-backend/internal/platform/apierr"
	"github.com/yungbote/ielts-backend/internal/platform/envutil"
	"github.com/yungbote/ielts-backend/internal/platform/gcp"
	"github.com/yungbote/ielts-backend/internal/platform/logger"
)

const avatarSize = 512

var defaultAvatarColors = []string{"#1E88E5", "#43A047", "#E53935", "#8E24AA", "#FB8C00", "#00897B", "#3949AB", "#6D4C41"}

type AvatarService interface {
	// GenerateInitials renders and uploads an initials avatar and sets the
	// user's avatar fields. It does not persist the user.
	GenerateInitials(ctx context.Context, user *types.User) error
	// ReplaceFromImage crops an uploaded image to a circle and swaps it in.
	ReplaceFromImage(ctx context.Context, user *types.User, raw []byte) error
}

type avatarService struct {
	log    *logger.Logger
	bucket gcp.BucketService

	colors     []color.NRGBA
	colorByHex map[string]color.NRGBA
	face       font.Face
}

// NewAvatarService uses the embedded Go Bold face unless AVATAR_FONT points
// at a TTF, and a built-in palette unless AVATAR_COLORS_JSON_PATH is set.
func NewAvatarService(log *logger.Logger, bucket gcp.BucketService) (AvatarService, error) {
	serviceLog := log.With("service", "AvatarService")

	fontBytes := gobold.TTF
	if p := envutil.String("AVATAR_FONT", ""); p != "" {
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read avatar font: %w", err)
		}
		fontBytes = b
	}
	parsed, err := truetype.Parse(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("parse avatar font: %w", err)
	}
	face := truetype.NewFace(parsed, &truetype.Options{Size: 206, DPI: 72, Hinting: font.HintingNone})

	hexes := defaultAvatarColors
	if p := envutil.String("AVATAR_COLORS_JSON_PATH", ""); p != "" {
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read avatar colors: %w", err)
		}
		if err := json.Unmarshal(b, &hexes); err != nil {
			return nil, fmt.Errorf("decode avatar colors: %w", err)
		}
	}
	svc := &avatarService{log: serviceLog, bucket: bucket, colorByHex: map[string]color.NRGBA{}, face: face}
	for _, h := range hexes {
		c, err := parseHexColor(h)
		if err != nil {
			return nil, fmt.Errorf("avatar color %q: %w", h, err)
		}
		svc.colors = append(svc.colors, c)
		svc.colorByHex[hexOf(c)] = c
	}
	if len(svc.colors) == 0 {
		return nil, fmt.Errorf("avatar colors list is empty")
	}
	return svc, nil
}

func (s *avatarService) GenerateInitials(ctx context.Context, user *types.User) error {
	if _, ok := s.colorByHex[normalizeHex(user.AvatarColor)]; !ok {
		user.AvatarColor = hexOf(s.colors[rand.IntN(len(s.colors))])
	}
	buf, err := s.render(initialsOf(user.FirstName, user.LastName), s.colorByHex[normalizeHex(user.AvatarColor)])
	if err != nil {
		return err
	}
	return s.swap(ctx, user, buf.Bytes())
}

func (s *avatarService) ReplaceFromImage(ctx context.Context, user *types.User, raw []byte) error {
	buf, err := circleCrop(raw, avatarSize)
	if err != nil {
		return apierr.BadRequest("invalid_image", err.Error())
	}
	return s.swap(ctx, user, buf.Bytes())
}

// swap uploads under a versioned key so CDNs never serve the old image, then
// best-effort deletes the previous object.
func (s *avatarService) swap(ctx context.Context, user *types.User, png []byte) error {
	oldKey := user.AvatarBucketKey
	key := fmt.Sprintf("%s/%d.png", user.ID, time.Now().UnixNano())
	if err := s.bucket.Upload(ctx, gcp.BucketAvatar, key, "image/png", bytes.NewReader(png)); err != nil {
		return fmt.Errorf("upload avatar: %w", err)
	}
	user.AvatarBucketKey = key
	user.AvatarURL = s.bucket.PublicURL(gcp.BucketAvatar, key)
	if oldKey != "" && oldKey != key {
		if err := s.bucket.Delete(ctx, gcp.BucketAvatar, oldKey); err != nil {
			s.log.Warn("Delete old avatar failed", "key", oldKey, "error", err)
		}
	}
	return nil
}

func (s *avatarService) render(initials string, bg color.NRGBA) (*bytes.Buffer, error) {
	dc := gg.NewContext(avatarSize, avatarSize)
	half := float64(avatarSize) / 2
	dc.DrawCircle(half, half, half)
	dc.Clip()
	dc.SetColor(bg)
	dc.DrawRectangle(0, 0, avatarSize, avatarSize)
	dc.Fill()

	dc.SetFontFace(s.face)
	dc.SetColor(color.White)
	dc.DrawStringAnchored(initials, half, half, 0.5, 0.35)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode avatar png: %w", err)
	}
	return &buf, nil
}

func circleCrop(raw []byte, size int) (*bytes.Buffer, error) {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	b := img.Bounds()
	side := min(b.Dx(), b.Dy())
	if side == 0 {
		return nil, fmt.Errorf("empty image")
	}
	origin := image.Point{X: b.Min.X + (b.Dx()-side)/2, Y: b.Min.Y + (b.Dy()-side)/2}
	square := image.NewRGBA(image.Rect(0, 0, side, side))
	draw.Draw(square, square.Bounds(), img, origin, draw.Src)

	scaled := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), square, square.Bounds(), draw.Over, nil)

	dc := gg.NewContext(size, size)
	dc.DrawCircle(float64(size)/2, float64(size)/2, float64(size)/2)
	dc.Clip()
	dc.DrawImage(scaled, 0, 0)
	var out bytes.Buffer
	if err := dc.EncodePNG(&out); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return &out, nil
}

func initialsOf(first, last string) string {
	pick := func(s string) string {
		r, _ := utf8.DecodeRuneInString(strings.TrimSpace(s))
		if r == utf8.RuneError {
			return ""
		}
		return string(unicode.ToUpper(r))
	}
	out := pick(first) + pick(last)
	if out == "" {
		return "?"
	}
	return out
}

func normalizeHex(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	return s
}

func parseHexColor(s string) (color.NRGBA, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(normalizeHex(s), "#"))
	if err != nil || len(raw) != 3 {
		return color.NRGBA{}, fmt.Errorf("expected #RRGGBB")
	}
	return color.NRGBA{R: raw[0], G: raw[1], B: raw[2], A: 0xFF}, nil
}

func hexOf(c color.NRGBA) string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}
