package gcp

import (
	"testing"
	"time"

	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"
)

func TestEncodingFor(t *testing.T) {
	cases := []struct {
		mime, uri string
		want      speechpb.RecognitionConfig_AudioEncoding
	}{
		{"audio/wav", "", speechpb.RecognitionConfig_LINEAR16},
		{"", "gs://b/speaking/a.flac", speechpb.RecognitionConfig_FLAC},
		{"audio/mpeg", "", speechpb.RecognitionConfig_MP3},
		{"audio/webm;codecs=opus", "", speechpb.RecognitionConfig_WEBM_OPUS},
		{"audio/mp4", "", speechpb.RecognitionConfig_ENCODING_UNSPECIFIED},
	}
	for _, tc := range cases {
		if got := EncodingFor(tc.mime, tc.uri); got != tc.want {
			t.Fatalf("EncodingFor(%q,%q): got %v want %v", tc.mime, tc.uri, got, tc.want)
		}
	}
}

func TestParseTranscriptJoinsResultsAndWords(t *testing.T) {
	resp := &speechpb.LongRunningRecognizeResponse{
		Results: []*speechpb.SpeechRecognitionResult{
			{Alternatives: []*speechpb.SpeechRecognitionAlternative{{
				Transcript: " I live in  Leeds ",
				Confidence: 0.9,
				Words: []*speechpb.WordInfo{
					{Word: "I", StartTime: durationpb.New(0), EndTime: durationpb.New(200 * time.Millisecond)},
					{Word: "live", StartTime: durationpb.New(300 * time.Millisecond), EndTime: durationpb.New(600 * time.Millisecond)},
				},
			}}},
			{Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: "with my family", Confidence: 0.7}}},
			{},
		},
	}
	tr := parseTranscript(resp)
	if tr.Text != "I live in Leeds with my family" {
		t.Fatalf("text: got %q", tr.Text)
	}
	if len(tr.Words) != 2 || tr.Words[1].StartSec != 0.3 {
		t.Fatalf("words: got %+v", tr.Words)
	}
	if tr.Confidence < 0.79 || tr.Confidence > 0.81 {
		t.Fatalf("confidence: got %v want 0.8", tr.Confidence)
	}
}

func TestRetryableGRPC(t *testing.T) {
	if !retryableGRPC(status.Error(codes.Unavailable, "down")) {
		t.Fatalf("Unavailable should retry")
	}
	if retryableGRPC(status.Error(codes.InvalidArgument, "bad audio")) {
		t.Fatalf("InvalidArgument should not retry")
	}
}
