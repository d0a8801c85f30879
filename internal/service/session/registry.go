package session

import (
	"time"

	"support_chat_server/internal/dao/mysql/repository"
	"support_chat_server/internal/dto/respond"
	"support_chat_server/internal/model"
	"support_chat_server/pkg/constants"
	"support_chat_server/pkg/enum/session/outcome_enum"
	"support_chat_server/pkg/enum/session/session_state_enum"
	"support_chat_server/pkg/errorx"
	"support_chat_server/pkg/util/random"
)

// 以下为事务内的会话状态迁移原语，调用方负责开启事务

// newSessionId 生成会话 ID：S + YYMMDD + 13 位随机串
func newSessionId() string {
	return "S" + random.GetNowAndLenRandomString(constants.SESSION_ID_RANDOM_LEN)
}

// createSession 创建 pending 会话
// 先查一次给出明确错误，并发下由 live_customer_id 唯一索引兜底
func createSession(tx *repository.Repositories, customerId string, now time.Time) (*model.Session, error) {
	_, err := tx.Session.FindLiveByCustomer(customerId)
	if err == nil {
		return nil, errorx.ErrAlreadyActive
	}
	if !errorx.IsNotFound(err) {
		return nil, err
	}

	live := customerId
	session := &model.Session{
		Uuid:           newSessionId(),
		CustomerId:     customerId,
		LiveCustomerId: &live,
		State:          session_state_enum.Pending,
		Outcome:        outcome_enum.Pending,
		StartedAt:      now,
	}
	if err := tx.Session.Create(session); err != nil {
		return nil, err
	}
	return session, nil
}

// bindAgent pending -> active
func bindAgent(tx *repository.Repositories, sessionId, agentId string, now time.Time) (*model.Session, error) {
	ok, err := tx.Session.BindAgent(sessionId, agentId, now)
	if err != nil {
		return nil, err
	}
	session, err := tx.Session.FindByUuid(sessionId)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errorx.Newf(errorx.CodeInvalidState, "会话 %s 当前为 %s 状态，无法绑定坐席", sessionId, session.State)
	}
	return session, nil
}

// toRespond 转换为响应结构
func toRespond(s *model.Session) respond.SessionRespond {
	rsp := respond.SessionRespond{
		SessionId:     s.Uuid,
		CustomerId:    s.CustomerId,
		AgentId:       s.AgentId,
		State:         s.State,
		Outcome:       s.Outcome,
		StartedAt:     s.StartedAt,
		LastMessageId: s.LastMessageId,
	}
	if s.BoundAt.Valid {
		t := s.BoundAt.Time
		rsp.BoundAt = &t
	}
	if s.EndedAt.Valid {
		t := s.EndedAt.Time
		rsp.EndedAt = &t
	}
	return rsp
}
