// Package message 会话消息存储
// 消息只追加，序号在会话内单调递增，分类器标注在写入时一次性附带
package message

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"support_chat_server/internal/config"
	"support_chat_server/internal/dao/mysql/repository"
	"support_chat_server/internal/dto/request"
	"support_chat_server/internal/dto/respond"
	"support_chat_server/internal/model"
	"support_chat_server/internal/service/access"
	"support_chat_server/pkg/constants"
	"support_chat_server/pkg/enum/message/emotion_enum"
	"support_chat_server/pkg/enum/message/entity_type_enum"
	"support_chat_server/pkg/enum/message/sender_role_enum"
	"support_chat_server/pkg/enum/session/outcome_enum"
	"support_chat_server/pkg/enum/session/session_state_enum"
	"support_chat_server/pkg/enum/user/role_enum"
	"support_chat_server/pkg/errorx"
	"support_chat_server/pkg/util/snowflake"

	"go.uber.org/zap"
)

// Notifier 向观察连接推送提示
type Notifier interface {
	Notify(sessionId, event string, lastId int64)
}

// messageService 消息业务逻辑实现
type messageService struct {
	repos    *repository.Repositories
	polling  config.PollingConfig
	notifier Notifier
	now      func() time.Time
}

// NewMessageService 构造函数，notifier 可为 nil
func NewMessageService(repos *repository.Repositories, polling config.PollingConfig, notifier Notifier) *messageService {
	return &messageService{
		repos:    repos,
		polling:  polling,
		notifier: notifier,
		now:      time.Now,
	}
}

// annotations 校验并规范化后的分类器标注
type annotations struct {
	emotion  *string
	entities map[string]string
	intent   *string
	kbAnswer *string
	outcome  *string
}

// normalizeAnnotations 校验标注
// 枚举外的情绪、实体类型、结果一律拒绝；值为空的实体直接丢弃
func normalizeAnnotations(req *request.SendMessageRequest) (*annotations, error) {
	a := &annotations{}
	if req.Emotion != nil {
		if !emotion_enum.Valid(*req.Emotion) {
			return nil, errorx.Newf(errorx.CodeInvalidParam, "未知的情绪标签 %s", *req.Emotion)
		}
		a.emotion = req.Emotion
	}
	for rawType, value := range req.Entities {
		if value == nil || strings.TrimSpace(*value) == "" {
			continue
		}
		entityType, ok := entity_type_enum.Normalize(rawType)
		if !ok {
			return nil, errorx.Newf(errorx.CodeInvalidParam, "未知的实体类型 %s", rawType)
		}
		if _, dup := a.entities[entityType]; dup {
			return nil, errorx.Newf(errorx.CodeInvalidParam, "实体类型 %s 重复", entityType)
		}
		if a.entities == nil {
			a.entities = make(map[string]string)
		}
		a.entities[entityType] = strings.TrimSpace(*value)
	}
	if req.Intent != nil && strings.TrimSpace(*req.Intent) != "" {
		intent := strings.TrimSpace(*req.Intent)
		a.intent = &intent
	}
	if req.KbAnswer != nil && *req.KbAnswer != "" {
		a.kbAnswer = req.KbAnswer
	}
	if req.Outcome != nil {
		if !outcome_enum.Valid(*req.Outcome) {
			return nil, errorx.Newf(errorx.CodeInvalidParam, "未知的会话结果 %s", *req.Outcome)
		}
		a.outcome = req.Outcome
	}
	return a, nil
}

// Append 追加消息
// 锁住会话行后分配下一个序号，保证并发发送时序号连续且不重复
func (m *messageService) Append(ctx context.Context, caller access.Caller, req request.SendMessageRequest) (*respond.MessageRespond, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, errorx.New(errorx.CodeInvalidParam, "消息内容不能为空")
	}
	if utf8.RuneCountInString(req.Text) > constants.MAX_TEXT_LENGTH {
		return nil, errorx.Newf(errorx.CodeInvalidParam, "消息内容不能超过 %d 个字符", constants.MAX_TEXT_LENGTH)
	}
	ann, err := normalizeAnnotations(&req)
	if err != nil {
		return nil, err
	}

	var msg *model.Message
	err = m.repos.WithContext(ctx).Transaction(func(tx *repository.Repositories) error {
		session, err := tx.Session.FindByUuidForUpdate(req.SessionId)
		if err != nil {
			return err
		}
		senderRole, ok := access.SenderRole(caller, session)
		if !ok {
			return errorx.ErrForbidden
		}
		if ann.kbAnswer != nil && senderRole != sender_role_enum.Customer {
			return errorx.New(errorx.CodeInvalidParam, "kb_answer 只能附加在客户消息上")
		}
		if session.State != session_state_enum.Active {
			return errorx.ErrSessionNotActive
		}

		msg = &model.Message{
			Uuid:       snowflake.GenerateID(),
			SessionId:  session.Uuid,
			Seq:        session.LastMessageId + 1,
			SenderRole: senderRole,
			SenderId:   caller.UserID,
			Text:       req.Text,
			Emotion:    ann.emotion,
			Entities:   ann.entities,
			Intent:     ann.intent,
			KbAnswer:   ann.kbAnswer,
			Outcome:    ann.outcome,
			CreatedAt:  m.now(),
		}
		if err := tx.Message.Create(msg); err != nil {
			return err
		}
		if err := tx.Session.SetLastMessageId(session.Uuid, msg.Seq); err != nil {
			return err
		}
		// 随消息到达的结果信号，会话仍为 active 时生效
		if ann.outcome != nil {
			if _, err := tx.Session.SetOutcome(session.Uuid, *ann.outcome); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errorx.IsBusiness(err) {
			zap.L().Debug("发送消息被拒绝",
				zap.String("session_id", req.SessionId),
				zap.String("sender_id", caller.UserID),
				zap.Int("code", errorx.GetCode(err)),
			)
			return nil, err
		}
		zap.L().Error("写入消息失败", zap.String("session_id", req.SessionId), zap.Error(err))
		return nil, errorx.ErrServerBusy
	}

	if m.notifier != nil {
		m.notifier.Notify(msg.SessionId, constants.HINT_EVENT_MESSAGE, msg.Seq)
	}
	rsp := toRespond(msg, caller.Role)
	return &rsp, nil
}

// List 增量拉取 since_id 之后的消息
// 没有新消息时返回空列表；会话结束后仍可拉取，State 告知客户端停止发送
func (m *messageService) List(ctx context.Context, caller access.Caller, sessionId string, sinceId int64) (*respond.MessageListRespond, error) {
	if sinceId < 0 {
		sinceId = 0
	}
	repos := m.repos.WithContext(ctx)
	// 先读会话状态再读消息：读到 ended 时消息列表已是最终结果
	session, err := repos.Session.FindByUuid(sessionId)
	if err != nil {
		if errorx.IsBusiness(err) {
			return nil, err
		}
		zap.L().Error("查询会话失败", zap.String("session_id", sessionId), zap.Error(err))
		return nil, errorx.ErrServerBusy
	}
	if !access.CanRead(caller, session) {
		return nil, errorx.ErrForbidden
	}

	batch := m.polling.MaxBatch
	if batch <= 0 || batch > constants.MAX_MESSAGE_BATCH {
		batch = constants.MAX_MESSAGE_BATCH
	}
	messages, err := repos.Message.ListSince(sessionId, sinceId, batch+1)
	if err != nil {
		zap.L().Error("查询消息失败", zap.String("session_id", sessionId), zap.Int64("since_id", sinceId), zap.Error(err))
		return nil, errorx.ErrServerBusy
	}
	hasMore := len(messages) > batch
	if hasMore {
		messages = messages[:batch]
	}

	rsp := &respond.MessageListRespond{
		SessionId:      sessionId,
		State:          session.State,
		Messages:       make([]respond.MessageRespond, 0, len(messages)),
		LastId:         sinceId,
		HasMore:        hasMore,
		PollIntervalMs: m.pollIntervalMs(),
	}
	for i := range messages {
		rsp.Messages = append(rsp.Messages, toRespond(&messages[i], caller.Role))
	}
	if n := len(messages); n > 0 {
		rsp.LastId = messages[n-1].Seq
	}
	return rsp, nil
}

func (m *messageService) pollIntervalMs() int {
	if m.polling.IntervalMs > 0 {
		return m.polling.IntervalMs
	}
	return constants.DEFAULT_POLL_INTERVAL
}

// toRespond 转换为响应结构，kb_answer 只给坐席侧看
func toRespond(msg *model.Message, viewerRole string) respond.MessageRespond {
	rsp := respond.MessageRespond{
		MessageId:  msg.Seq,
		SessionId:  msg.SessionId,
		SenderRole: msg.SenderRole,
		SenderId:   msg.SenderId,
		Text:       msg.Text,
		Timestamp:  msg.CreatedAt,
		Emotion:    msg.Emotion,
		Entities:   msg.Entities,
		Intent:     msg.Intent,
		Outcome:    msg.Outcome,
	}
	if viewerRole != role_enum.Customer {
		rsp.KbAnswer = msg.KbAnswer
	}
	return rsp
}
