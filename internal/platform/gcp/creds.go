package gcp

import (
	"encoding/base64"
	"os"
	"strings"

	"google.golang.org/api/option"
)

// ClientOptionsFromEnv resolves credentials for every GCP client in this
// package. GOOGLE_APPLICATION_CREDENTIALS_JSON may hold raw or base64 JSON;
// GOOGLE_APPLICATION_CREDENTIALS holds a file path. With neither set the
// SDK uses application default credentials. GCP_QUOTA_PROJECT bills API
// quota to a project other than the key's own.
func ClientOptionsFromEnv() []option.ClientOption {
	return clientOptions(
		os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON"),
		os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
		os.Getenv("GCP_QUOTA_PROJECT"),
	)
}

func clientOptions(inline, path, quotaProject string) []option.ClientOption {
	var opts []option.ClientOption
	if raw := credentialsJSON(inline); raw != nil {
		opts = append(opts, option.WithCredentialsJSON(raw))
	} else if p := strings.TrimSpace(path); p != "" {
		opts = append(opts, option.WithCredentialsFile(p))
	}
	if qp := strings.TrimSpace(quotaProject); qp != "" {
		opts = append(opts, option.WithQuotaProject(qp))
	}
	return opts
}

func credentialsJSON(v string) []byte {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	if strings.HasPrefix(v, "{") {
		return []byte(v)
	}
	if dec, err := base64.StdEncoding.DecodeString(v); err == nil && strings.HasPrefix(strings.TrimSpace(string(dec)), "{") {
		return dec
	}
	return nil
}

// collapseWhitespace joins OCR and STT fragments into single-spaced text.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
