package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"clippilot/internal/domain"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeExtractor struct {
	result domain.CaptionResult
	err    error
	urls   []string
}

func (f *fakeExtractor) ExtractCaption(_ context.Context, rawURL string) (domain.CaptionResult, error) {
	f.urls = append(f.urls, rawURL)
	return f.result, f.err
}

type sentMessage struct {
	channelID string
	message   string
}

type fakeNotifier struct {
	mu     sync.Mutex
	sent   []sentMessage
	err    error
	closed bool
}

func (f *fakeNotifier) Notify(_ context.Context, channelID, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{channelID: channelID, message: message})
	return f.err
}

func (f *fakeNotifier) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

const testPostURL = "https://www.instagram.com/p/abc123/"

func TestProcessCaptionExtraction(t *testing.T) {
	tests := []struct {
		name        string
		result      domain.CaptionResult
		err         error
		wantErr     bool
		wantFound   bool
		wantCaption string
		wantKey     string
		wantNotice  string
	}{
		{
			name:        "caption found",
			result:      domain.CaptionResult{Caption: "Sunset over the bay"},
			wantFound:   true,
			wantCaption: "Sunset over the bay",
			wantNotice:  "Sunset over the bay",
		},
		{
			name:       "not found error",
			err:        &domain.NotFoundError{URL: testPostURL},
			wantKey:    "message",
			wantNotice: "No caption found",
		},
		{
			name:       "empty result",
			wantKey:    "message",
			wantNotice: "No caption found",
		},
		{
			name:       "invalid input completes with error",
			err:        &domain.InvalidInputError{Platform: "Instagram"},
			wantKey:    "error",
			wantNotice: "Invalid Instagram URL",
		},
		{
			name:    "upstream failure is returned",
			err:     &domain.UpstreamError{Strategy: "static", Err: errors.New("connection reset by peer")},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			extractor := &fakeExtractor{result: tt.result, err: tt.err}
			notifier := &fakeNotifier{}
			p := NewCaptionProcessor(createTestLogger(), extractor, notifier)

			result, err := p.ProcessCaptionExtraction(context.Background(), map[string]interface{}{
				"url":        testPostURL,
				"channel_id": "1234",
			}, createTestLogger())

			assert.Equal(t, []string{testPostURL}, extractor.urls)

			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, domain.IsUpstream(err))
				assert.Empty(t, notifier.sent)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantFound, result["found"])
			assert.Equal(t, tt.wantCaption, result["caption"])
			if tt.wantKey != "" {
				assert.Contains(t, result, tt.wantKey)
			}

			require.Len(t, notifier.sent, 1)
			assert.Equal(t, "1234", notifier.sent[0].channelID)
			assert.Contains(t, notifier.sent[0].message, tt.wantNotice)
		})
	}
}

func TestProcessCaptionExtractionWithoutChannel(t *testing.T) {
	notifier := &fakeNotifier{}
	p := NewCaptionProcessor(createTestLogger(), &fakeExtractor{result: domain.CaptionResult{Caption: "hi"}}, notifier)

	result, err := p.ProcessCaptionExtraction(context.Background(), map[string]interface{}{"url": testPostURL}, createTestLogger())
	require.NoError(t, err)
	assert.Equal(t, "hi", result["caption"])
	assert.Empty(t, notifier.sent)
}

func TestProcessCaptionExtractionNotifierFailureIsIgnored(t *testing.T) {
	notifier := &fakeNotifier{err: errors.New("discord down")}
	p := NewCaptionProcessor(createTestLogger(), &fakeExtractor{result: domain.CaptionResult{Caption: "hi"}}, notifier)

	result, err := p.ProcessCaptionExtraction(context.Background(), map[string]interface{}{
		"url":        testPostURL,
		"channel_id": "1234",
	}, createTestLogger())
	require.NoError(t, err)
	assert.Equal(t, true, result["found"])
}

func TestProcessCaptionExtractionBadPayload(t *testing.T) {
	extractor := &fakeExtractor{}
	p := NewCaptionProcessor(createTestLogger(), extractor, nil)

	_, err := p.ProcessCaptionExtraction(context.Background(), map[string]interface{}{"channel_id": "1234"}, createTestLogger())
	assert.EqualError(t, err, "missing or invalid url in payload")

	_, err = p.ProcessCaptionExtraction(context.Background(), map[string]interface{}{
		"url": map[string]interface{}{"href": testPostURL},
	}, createTestLogger())
	assert.ErrorContains(t, err, "invalid caption job payload")

	assert.Empty(t, extractor.urls)
}

type fakeSender struct {
	channelID string
	content   string
	err       error
}

func (f *fakeSender) ChannelMessageSend(channelID string, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.channelID = channelID
	f.content = content
	if f.err != nil {
		return nil, f.err
	}
	return &discordgo.Message{ID: "m1", ChannelID: channelID, Content: content}, nil
}

func TestDiscordNotifierNotify(t *testing.T) {
	sender := &fakeSender{}
	n := &DiscordNotifier{sender: sender, logger: createTestLogger()}

	require.NoError(t, n.Notify(context.Background(), "1234", strings.Repeat("a", 2500)))
	assert.Equal(t, "1234", sender.channelID)
	assert.Len(t, []rune(sender.content), discordMessageLimit)
	assert.True(t, strings.HasSuffix(sender.content, "…"))

	sender.err = errors.New("HTTP 403 Forbidden")
	err := n.Notify(context.Background(), "1234", "hello")
	assert.ErrorContains(t, err, "403")

	assert.NoError(t, n.Close())
}

func TestNewDiscordNotifier(t *testing.T) {
	n, err := NewDiscordNotifier("token", createTestLogger())
	require.NoError(t, err)
	assert.NotNil(t, n.session)
	assert.Same(t, n.session, n.sender)
}

func TestTruncateMessage(t *testing.T) {
	assert.Equal(t, "short", truncateMessage("short", 10))
	assert.Equal(t, "abcd…", truncateMessage("abcdefgh", 5))
	assert.Equal(t, "ééé…", truncateMessage("éééééé", 4))
}
