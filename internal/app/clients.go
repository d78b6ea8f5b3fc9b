package app

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/yungbote/ielts-backend/internal/platform/envutil"
	"github.com/yungbote/ielts-backend/internal/platform/gcp"
	"github.com/yungbote/ielts-backend/internal/platform/logger"
	"github.com/yungbote/ielts-backend/internal/platform/openai"
	"github.com/yungbote/ielts-backend/internal/platform/sendgrid"
	"github.com/yungbote/ielts-backend/internal/realtime/bus"
	"github.com/yungbote/ielts-backend/internal/temporalx"
)

type Clients struct {
	Redis    goredis.UniversalClient
	SSEBus   bus.Bus
	Temporal temporalsdkclient.Client

	OpenaiClient openai.Client
	Mail         sendgrid.Client

	GcpBucket   gcp.BucketService
	GcpDocument gcp.Document
	GcpSpeech   gcp.Speech
	GcpVision   gcp.Vision
	OCR         gcp.OCR
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config, tcfg temporalx.Config) (Clients, error) {
	log.Info("Wiring clients...")
	var c Clients
	fail := func(err error) (Clients, error) {
		c.Close()
		return Clients{}, err
	}

	// Redis (optional): cross-instance SSE fan-out.
	if envutil.String("REDIS_ADDR", "") != "" {
		rdb, err := bus.NewRedisClientFromEnv(ctx)
		if err != nil {
			return fail(fmt.Errorf("init redis: %w", err))
		}
		c.Redis = rdb
		b, err := bus.NewRedisBus(log, rdb)
		if err != nil {
			return fail(fmt.Errorf("init redis SSE bus: %w", err))
		}
		c.SSEBus = b
	}

	// Temporal (optional): otherwise jobs run on the DB polling worker.
	if tcfg.Enabled() {
		if tcfg.AutoRegisterNamespace {
			if err := temporalx.EnsureNamespace(ctx, log, tcfg); err != nil {
				return fail(fmt.Errorf("ensure temporal namespace: %w", err))
			}
		}
		tc, err := temporalx.NewClient(ctx, log, tcfg)
		if err != nil {
			return fail(fmt.Errorf("init temporal client: %w", err))
		}
		c.Temporal = tc
	}

	// Gcs
	bucket, err := gcp.NewBucketService(log)
	if err != nil {
		return fail(fmt.Errorf("init bucket client: %w", err))
	}
	c.GcpBucket = bucket

	// Openai
	openaiClient, err := openai.NewClient(log)
	if err != nil {
		return fail(fmt.Errorf("init openai client: %w", err))
	}
	c.OpenaiClient = openaiClient

	// SendGrid (optional): without it every email is skipped.
	mail, err := sendgrid.NewFromEnv(log)
	if err != nil {
		log.Warn("SendGrid not configured; emails disabled", "error", err)
	} else {
		c.Mail = mail
	}

	// Gcp
	vision, err := gcp.NewVision(log)
	if err != nil {
		return fail(fmt.Errorf("init vision client: %w", err))
	}
	c.GcpVision = vision
	document, err := gcp.NewDocument(log)
	if err != nil {
		return fail(fmt.Errorf("init document client: %w", err))
	}
	c.GcpDocument = document
	c.OCR = gcp.NewOCRRouter(vision, document)

	speech, err := gcp.NewSpeech(log, cfg.SpeechModel)
	if err != nil {
		return fail(fmt.Errorf("init speech client: %w", err))
	}
	c.GcpSpeech = speech

	return c, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.SSEBus != nil {
		_ = c.SSEBus.Close()
	} else if c.Redis != nil {
		_ = c.Redis.Close()
	}
	if c.Temporal != nil {
		c.Temporal.Close()
	}
	if c.GcpSpeech != nil {
		_ = c.GcpSpeech.Close()
	}
	if c.GcpDocument != nil {
		_ = c.GcpDocument.Close()
	}
	if c.GcpVision != nil {
		_ = c.GcpVision.Close()
	}
	if c.GcpBucket != nil {
		_ = c.GcpBucket.Close()
	}
}
