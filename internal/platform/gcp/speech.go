package gcp

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/yungbote/ielts-backend/internal/platform/ctxutil"
	"github.com/yungbote/ielts-backend/internal/platform/httpx"
	"github.com/yungbote/ielts-backend/internal/platform/logger"
)

type Speech interface {
	// Transcribe reads inline audio when Audio is set, otherwise GCSURI.
	Transcribe(ctx context.Context, req SpeechRequest) (*Transcript, error)
	Close() error
}

type SpeechRequest struct {
	Audio        []byte
	GCSURI       string
	MimeType     string
	LanguageCode string
	SampleRateHz int
}

type SpeechWord struct {
	Text       string  `json:"text"`
	StartSec   float64 `json:"start_sec"`
	EndSec     float64 `json:"end_sec"`
	Confidence float64 `json:"confidence"`
}

type Transcript struct {
	Text       string       `json:"text"`
	Words      []SpeechWord `json:"words,omitempty"`
	Confidence float64      `json:"confidence"`
}

type speechService struct {
	log        *logger.Logger
	client     *speech.Client
	model      string
	maxRetries int
}

func NewSpeech(log *logger.Logger, model string) (Speech, error) {
	c, err := speech.NewClient(context.Background(), ClientOptionsFromEnv()...)
	if err != nil {
		return nil, fmt.Errorf("speech client: %w", err)
	}
	return &speechService{
		log:        log.With("client", "gcp.Speech"),
		client:     c,
		model:      model,
		maxRetries: 4,
	}, nil
}

func (s *speechService) Close() error {
	return s.client.Close()
}

func (s *speechService) Transcribe(ctx context.Context, req SpeechRequest) (*Transcript, error) {
	ctx = ctxutil.Default(ctx)
	ctx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()

	audio := &speechpb.RecognitionAudio{}
	switch {
	case len(req.Audio) > 0:
		audio.AudioSource = &speechpb.RecognitionAudio_Content{Content: req.Audio}
	case strings.HasPrefix(req.GCSURI, "gs://"):
		audio.AudioSource = &speechpb.RecognitionAudio_Uri{Uri: req.GCSURI}
	default:
		return nil, fmt.Errorf("speech: no audio content or gs:// uri")
	}

	lang := req.LanguageCode
	if lang == "" {
		lang = "en-GB"
	}
	cfg := &speechpb.RecognitionConfig{
		LanguageCode:               lang,
		Model:                      s.model,
		EnableAutomaticPunctuation: true,
		EnableWordTimeOffsets:      true,
		EnableWordConfidence:       true,
		Encoding:                   EncodingFor(req.MimeType, req.GCSURI),
		SampleRateHertz:            int32(max(req.SampleRateHz, 0)),
	}
	lr := &speechpb.LongRunningRecognizeRequest{Config: cfg, Audio: audio}

	var last error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		resp, err := s.recognize(ctx, lr)
		if err == nil {
			return parseTranscript(resp), nil
		}
		last = err
		if !retryableGRPC(err) || attempt == s.maxRetries {
			break
		}
		wait := httpx.Backoff(attempt, 750*time.Millisecond, 10*time.Second)
		s.log.Warn("speech retry", "attempt", attempt+1, "wait", wait.String(), "error", err)
		if err := httpx.Sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("speech recognize: %w", last)
}

func (s *speechService) recognize(ctx context.Context, req *speechpb.LongRunningRecognizeRequest) (*speechpb.LongRunningRecognizeResponse, error) {
	op, err := s.client.LongRunningRecognize(ctx, req)
	if err != nil {
		return nil, err
	}
	return op.Wait(ctx)
}

func retryableGRPC(err error) bool {
	switch status.Code(err) {
	case codes.Unavailable, codes.ResourceExhausted, codes.DeadlineExceeded, codes.Aborted:
		return true
	}
	return false
}

// EncodingFor maps a mime type or object extension to a speech encoding.
// Unknown formats are left unspecified so the API sniffs the header.
func EncodingFor(mimeType, uri string) speechpb.RecognitionConfig_AudioEncoding {
	m := strings.ToLower(mimeType)
	ext := strings.ToLower(path.Ext(uri))
	switch {
	case strings.Contains(m, "wav") || ext == ".wav":
		return speechpb.RecognitionConfig_LINEAR16
	case strings.Contains(m, "flac") || ext == ".flac":
		return speechpb.RecognitionConfig_FLAC
	case strings.Contains(m, "mpeg") || strings.Contains(m, "mp3") || ext == ".mp3":
		return speechpb.RecognitionConfig_MP3
	case strings.Contains(m, "webm") || ext == ".webm":
		return speechpb.RecognitionConfig_WEBM_OPUS
	case strings.Contains(m, "ogg") || ext == ".ogg" || ext == ".opus":
		return speechpb.RecognitionConfig_OGG_OPUS
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED
	}
}

func parseTranscript(resp *speechpb.LongRunningRecognizeResponse) *Transcript {
	out := &Transcript{}
	if resp == nil {
		return out
	}
	var text strings.Builder
	var confSum float64
	var confN int
	for _, r := range resp.GetResults() {
		alts := r.GetAlternatives()
		if len(alts) == 0 || strings.TrimSpace(alts[0].GetTranscript()) == "" {
			continue
		}
		alt := alts[0]
		if text.Len() > 0 {
			text.WriteString(" ")
		}
		text.WriteString(strings.TrimSpace(alt.GetTranscript()))
		if c := alt.GetConfidence(); c > 0 {
			confSum += float64(c)
			confN++
		}
		for _, w := range alt.GetWords() {
			out.Words = append(out.Words, SpeechWord{
				Text:       w.GetWord(),
				StartSec:   seconds(w.GetStartTime()),
				EndSec:     seconds(w.GetEndTime()),
				Confidence: float64(w.GetConfidence()),
			})
		}
	}
	out.Text = collapseWhitespace(text.String())
	if confN > 0 {
		out.Confidence = confSum / float64(confN)
	}
	return out
}

func seconds(d *durationpb.Duration) float64 {
	if d == nil {
		return 0
	}
	return d.AsDuration().Seconds()
}
