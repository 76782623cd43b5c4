package httpapi

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"tutor-chat/auth"
	"tutor-chat/channel"
	"tutor-chat/domain"
	"tutor-chat/errors"
	"tutor-chat/mocks"
	"tutor-chat/observability"
	"tutor-chat/repositories"
	"tutor-chat/runtime"
	"tutor-chat/runtime/workers"
	"tutor-chat/services"

	"github.com/dgraph-io/badger/v4"
	"github.com/gin-gonic/gin"
	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type testServer struct {
	url      string
	verifier *auth.Verifier
}

func newTestServer(t *testing.T) testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctrl := gomock.NewController(t)
	directory := mocks.NewMockIDirectory(ctrl)
	directory.EXPECT().
		GetUserDisplayInfo(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, userID domain.UserID) (domain.UserDisplayInfo, error) {
			return domain.UserDisplayInfo{UserID: userID, DisplayName: strings.ToUpper(string(userID))}, nil
		}).
		AnyTimes()

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	conversationRepository := repositories.NewConversationRepository(db)
	messageRepository := repositories.NewMessageRepository(db, log)

	orchestrator := runtime.NewOrchestrator(log, workers.NewSupervisor(log, 10*time.Millisecond),
		runtime.NewRegistry(), 64, time.Second).MonitorQueue(metrics, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, orchestrator.Start(ctx))

	resolver := services.NewConversationResolver(log, conversationRepository, metrics)
	messageService := services.NewMessageService(log, conversationRepository, messageRepository, orchestrator, metrics, 50)
	readTracker := services.NewReadTracker(log, messageRepository)
	aggregator := services.NewConversationAggregator(log, conversationRepository, messageRepository, readTracker,
		directory, metrics, services.AggregatorConfig{LookupTimeout: time.Second, Concurrency: 4})
	contacts := services.NewContactService(log, resolver, messageService, directory, services.Greetings{
		Tutor:   services.DefaultTutorGreeting,
		Request: services.DefaultRequestGreeting,
	})
	messageChannel := channel.NewMessageChannel(log, orchestrator.Registry(), messageRepository,
		channel.Config{BufferSize: 16, DedupWindow: 64}, metrics)
	chat := services.NewChatService(log, messageService, readTracker, messageChannel)

	verifier := auth.NewVerifier("a_long_enough_test_secret", "account-service")
	handlers := NewHandlers(log, contacts, aggregator, messageService, readTracker, chat)
	server := httptest.NewServer(NewRouter(log, verifier, handlers, registry))
	t.Cleanup(func() {
		server.Close()
		cancel()
		orchestrator.Stop()
	})
	return testServer{url: server.URL, verifier: verifier}
}

func (s testServer) do(t *testing.T, userID domain.UserID, method, path string, body any, out any) int {
	t.Helper()
	var payload bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&payload).Encode(body))
	}
	request, err := http.NewRequest(method, s.url+path, &payload)
	require.NoError(t, err)
	request.Header.Set("Content-Type", "application/json")
	if userID != "" {
		token, err := s.verifier.GenerateToken(userID, time.Hour)
		require.NoError(t, err)
		request.Header.Set("Authorization", "Bearer "+token)
	}
	response, err := http.DefaultClient.Do(request)
	require.NoError(t, err)
	defer response.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(response.Body).Decode(out))
	}
	return response.StatusCode
}

func TestRouter_Requires_Token(t *testing.T) {
	req := require.New(t)
	server := newTestServer(t)

	var errResp ErrorResponse
	req.Equal(http.StatusUnauthorized, server.do(t, "", http.MethodGet, "/v1/conversations", nil, &errResp))
	req.NotEmpty(errResp.Error)

	req.Equal(http.StatusOK, server.do(t, "", http.MethodGet, "/healthz", nil, nil))
}

func TestRouter_Conversation_Flow(t *testing.T) {
	req := require.New(t)
	server := newTestServer(t)

	// Given a student contacting a tutor from a help request
	var contact ContactResponse
	req.Equal(http.StatusCreated, server.do(t, "student", http.MethodPost, "/v1/conversations",
		ContactRequest{UserID: "tutor", Origin: "help_request", Subject: "Algebra"}, &contact))
	req.True(contact.Created)
	req.Equal("TUTOR", contact.OtherParticipant.DisplayName)
	path := "/v1/conversations/" + contact.ConversationID

	// And contacting again
	var again ContactResponse
	req.Equal(http.StatusOK, server.do(t, "tutor", http.MethodPost, "/v1/conversations",
		ContactRequest{UserID: "student"}, &again))
	req.Equal(contact.ConversationID, again.ConversationID)

	// When the tutor answers
	var answer MessageResponse
	req.Equal(http.StatusCreated, server.do(t, "tutor", http.MethodPost, path+"/messages",
		AppendRequest{Content: "sure, when?"}, &answer))
	req.Equal("tutor", answer.SenderID)

	// Then both messages are listed in order
	var history []MessageResponse
	req.Equal(http.StatusOK, server.do(t, "student", http.MethodGet, path+"/messages", nil, &history))
	req.Len(history, 2)
	req.Equal(`Hi! I'm contacting you about your request: "Algebra"`, history[0].Content)
	req.Equal("sure, when?", history[1].Content)

	// And the student has one unread message in the inbox
	var inbox InboxResponse
	req.Equal(http.StatusOK, server.do(t, "student", http.MethodGet, "/v1/conversations", nil, &inbox))
	req.False(inbox.Partial)
	req.Len(inbox.Conversations, 1)
	req.Equal(1, inbox.Conversations[0].UnreadCount)
	req.Equal("sure, when?", inbox.Conversations[0].LastMessage.Content)

	var unread UnreadResponse
	req.Equal(http.StatusOK, server.do(t, "student", http.MethodPost, path+"/read", nil, &unread))
	req.Equal(1, unread.Marked)
	req.Zero(unread.UnreadCount)
	req.Equal(http.StatusOK, server.do(t, "tutor", http.MethodGet, path+"/unread", nil, &unread))
	req.Equal(1, unread.UnreadCount)
}

func TestRouter_Rejections(t *testing.T) {
	req := require.New(t)
	server := newTestServer(t)

	var contact ContactResponse
	req.Equal(http.StatusCreated, server.do(t, "alice", http.MethodPost, "/v1/conversations",
		ContactRequest{UserID: "bob"}, &contact))
	path := "/v1/conversations/" + contact.ConversationID

	tests := []struct {
		name   string
		userID domain.UserID
		method string
		path   string
		body   any
		want   int
	}{
		{name: "self contact", userID: "alice", method: http.MethodPost, path: "/v1/conversations",
			body: ContactRequest{UserID: "alice"}, want: http.StatusBadRequest},
		{name: "missing target", userID: "alice", method: http.MethodPost, path: "/v1/conversations",
			body: map[string]string{}, want: http.StatusBadRequest},
		{name: "outsider reads", userID: "mallory", method: http.MethodGet, path: path + "/messages",
			want: http.StatusForbidden},
		{name: "outsider writes", userID: "mallory", method: http.MethodPost, path: path + "/messages",
			body: AppendRequest{Content: "hi"}, want: http.StatusForbidden},
		{name: "empty message", userID: "alice", method: http.MethodPost, path: path + "/messages",
			body: AppendRequest{Content: "   "}, want: http.StatusBadRequest},
		{name: "message too long", userID: "alice", method: http.MethodPost, path: path + "/messages",
			body: AppendRequest{Content: strings.Repeat("x", 51)}, want: http.StatusRequestEntityTooLarge},
		{name: "unknown conversation", userID: "alice", method: http.MethodGet, path: "/v1/conversations/nope/unread",
			want: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var errResp ErrorResponse
			require.Equal(t, tt.want, server.do(t, tt.userID, tt.method, tt.path, tt.body, &errResp))
			require.NotEmpty(t, errResp.Error)
		})
	}
}

func TestRouter_Malformed_Message_Body(t *testing.T) {
	req := require.New(t)
	server := newTestServer(t)

	var contact ContactResponse
	req.Equal(http.StatusCreated, server.do(t, "alice", http.MethodPost, "/v1/conversations",
		ContactRequest{UserID: "bob"}, &contact))

	// When the body is not a message object
	var errResp ErrorResponse
	status := server.do(t, "alice", http.MethodPost, "/v1/conversations/"+contact.ConversationID+"/messages",
		"{not json", &errResp)

	// Then the request is rejected as malformed, not as empty content
	req.Equal(http.StatusBadRequest, status)
	req.Contains(errResp.Error, errors.ErrMalformedRequest.Error())
	req.NotContains(errResp.Error, errors.ErrEmptyContent.Error())
}

type sseEvent struct {
	name string
	data string
}

func readEvent(t *testing.T, scanner *bufio.Scanner) sseEvent {
	t.Helper()
	var evt sseEvent
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event:"):
			evt.name = strings.TrimPrefix(line, "event:")
		case strings.HasPrefix(line, "data:"):
			evt.data = strings.TrimPrefix(line, "data:")
		case line == "" && evt.name != "":
			return evt
		}
	}
	require.FailNow(t, "stream ended", scanner.Err())
	return evt
}

func TestRouter_Stream(t *testing.T) {
	req := require.New(t)
	server := newTestServer(t)

	var contact ContactResponse
	req.Equal(http.StatusCreated, server.do(t, "student", http.MethodPost, "/v1/conversations",
		ContactRequest{UserID: "tutor", Origin: "tutor_listing"}, &contact))
	path := "/v1/conversations/" + contact.ConversationID

	// Given the tutor opening the chat view
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, server.url+path+"/stream", nil)
	req.NoError(err)
	token, err := server.verifier.GenerateToken("tutor", time.Hour)
	req.NoError(err)
	request.Header.Set("Authorization", "Bearer "+token)
	response, err := http.DefaultClient.Do(request)
	req.NoError(err)
	defer response.Body.Close()
	req.Equal(http.StatusOK, response.StatusCode)
	scanner := bufio.NewScanner(response.Body)

	// Then the greeting comes as history and is now read
	history := readEvent(t, scanner)
	req.Equal("history", history.name)
	var messages []MessageResponse
	req.NoError(json.Unmarshal([]byte(history.data), &messages))
	req.Len(messages, 1)
	req.Equal(services.DefaultTutorGreeting, messages[0].Content)

	var unread UnreadResponse
	req.Equal(http.StatusOK, server.do(t, "tutor", http.MethodGet, path+"/unread", nil, &unread))
	req.Zero(unread.UnreadCount)

	// When the student writes
	req.Equal(http.StatusCreated, server.do(t, "student", http.MethodPost, path+"/messages",
		AppendRequest{Content: "tomorrow at 5?"}, nil))

	// Then it shows up live, already read
	live := readEvent(t, scanner)
	req.Equal("message", live.name)
	var message MessageResponse
	req.NoError(json.Unmarshal([]byte(live.data), &message))
	req.Equal("tomorrow at 5?", message.Content)
	req.True(message.Read)
}
