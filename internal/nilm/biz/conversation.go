package biz

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kart-io/nilm-chat/internal/model"
	"github.com/kart-io/nilm-chat/internal/nilm/store"
	ctxlog "github.com/kart-io/nilm-chat/pkg/infra/logger"
	"github.com/kart-io/nilm-chat/pkg/infra/tracing"
	"github.com/kart-io/nilm-chat/pkg/utils/errors"
	"github.com/kart-io/nilm-chat/pkg/utils/id"
)

// DefaultMaxMessageLength 用户消息的最大字符数。
const DefaultMaxMessageLength = 4000

// persistTimeout 生成结束后保存助手消息的时限，不受请求超时影响。
const persistTimeout = 5 * time.Second

// ChatReply 对话接口的返回结果。
type ChatReply struct {
	Message    string                `json:"message"`
	SessionID  string                `json:"session_id"`
	Devices    []model.DeviceSummary `json:"devices"`
	Confidence float64               `json:"confidence"`
}

// ConversationService 管理会话与消息持久化，并调用生成流水线。
type ConversationService struct {
	store     store.Factory
	chat      *ChatService
	maxLength int
	now       func() time.Time
}

// NewConversationService 创建会话服务。
func NewConversationService(s store.Factory, chat *ChatService, maxLength int) *ConversationService {
	if maxLength <= 0 {
		maxLength = DefaultMaxMessageLength
	}
	return &ConversationService{
		store:     s,
		chat:      chat,
		maxLength: maxLength,
		now:       time.Now,
	}
}

// Chat 处理一轮对话：准备会话、保存用户消息、生成回复、保存助手消息。
// sessionID 为空时生成新的 UUID；未知的 sessionID 会以该 ID 新建会话。
func (s *ConversationService) Chat(ctx context.Context, message, sessionID string) (*ChatReply, error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "ConversationService.Chat")
	defer span.End()

	if strings.TrimSpace(message) == "" {
		return nil, errors.ErrEmptyMessage
	}
	if utf8.RuneCountInString(message) > s.maxLength {
		return nil, errors.ErrInvalidParam.WithMessagef("message must be at most %d characters", s.maxLength)
	}

	sessionID, err := s.ensureSession(ctx, sessionID)
	if err != nil {
		tracing.RecordError(ctx, err)
		return nil, err
	}
	ctx = ctxlog.WithSessionID(ctx, sessionID)

	if err := s.store.Messages().Create(ctx, &model.ChatMessage{
		SessionID: sessionID,
		Role:      model.RoleUser,
		Content:   message,
		Timestamp: s.now(),
	}); err != nil {
		return nil, errors.ErrDatabase.WithCause(err)
	}

	// 多取一条，留给提示构建器去掉刚保存的用户消息
	recent, err := s.store.Messages().Recent(ctx, sessionID, s.chat.Prompts().MaxHistory()+1)
	if err != nil {
		return nil, errors.ErrDatabase.WithCause(err)
	}

	result, err := s.chat.Generate(ctx, message, model.Turns(recent))
	if err != nil {
		return nil, err
	}

	// 生成可能已耗尽请求时限（降级结果），助手消息仍需保存
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	now := s.now()
	if err := s.store.Messages().Create(persistCtx, &model.ChatMessage{
		SessionID: sessionID,
		Role:      model.RoleAssistant,
		Content:   result.Response,
		Timestamp: now,
	}); err != nil {
		return nil, errors.ErrDatabase.WithCause(err)
	}
	if err := s.store.Sessions().Touch(persistCtx, sessionID, now); err != nil {
		ctxlog.GetLogger(ctx).Warnw("Failed to update session activity", "error", err.Error())
	}

	return &ChatReply{
		Message:    result.Response,
		SessionID:  sessionID,
		Devices:    result.Devices,
		Confidence: result.Confidence,
	}, nil
}

func (s *ConversationService) ensureSession(ctx context.Context, sessionID string) (string, error) {
	if sessionID == "" {
		sessionID = id.NewUUID()
	} else {
		_, err := s.store.Sessions().Get(ctx, sessionID)
		if err == nil {
			return sessionID, nil
		}
		if !store.IsNotFound(err) {
			return "", errors.ErrDatabase.WithCause(err)
		}
	}

	now := s.now()
	if err := s.store.Sessions().Create(ctx, &model.ChatSession{
		SessionID:  sessionID,
		CreatedAt:  now,
		LastActive: now,
	}); err != nil {
		return "", errors.ErrDatabase.WithCause(err)
	}
	ctxlog.GetLogger(ctx).Debugw("Chat session created", "session_id", sessionID)
	return sessionID, nil
}

// History 返回会话的全部消息，按时间顺序。没有消息时返回 ErrSessionNotFound。
func (s *ConversationService) History(ctx context.Context, sessionID string) ([]*model.ChatMessage, error) {
	msgs, err := s.store.Messages().List(ctx, sessionID)
	if err != nil {
		return nil, errors.ErrDatabase.WithCause(err)
	}
	if len(msgs) == 0 {
		return nil, errors.ErrSessionNotFound.WithMessagef("No chat history found for session %s", sessionID)
	}
	return msgs, nil
}

// DeleteSession 删除会话及其消息。会话不存在时返回 ErrSessionNotFound。
func (s *ConversationService) DeleteSession(ctx context.Context, sessionID string) error {
	deleted, err := s.store.Sessions().Delete(ctx, sessionID)
	if err != nil {
		return errors.ErrDatabase.WithCause(err)
	}
	if !deleted {
		return errors.ErrSessionNotFound
	}
	ctxlog.GetLogger(ctx).Infow("Chat session deleted", "session_id", sessionID)
	return nil
}
