package session

import (
	"context"
	"time"

	"support_chat_server/internal/dao/mysql/repository"
	"support_chat_server/pkg/enum/session/session_state_enum"
	"support_chat_server/pkg/errorx"

	"go.uber.org/zap"
)

// DrainQueue 按排队顺序为 pending 会话分配坐席，直到队列为空或无人可分配
// 在结束会话、坐席状态变化后以及定时扫描时调用，返回本次绑定的数量
func (s *sessionService) DrainQueue(ctx context.Context) int {
	bound := 0
	for ctx.Err() == nil {
		progressed, err := s.bindNext(ctx)
		if err != nil {
			if !errorx.HasCode(err, errorx.CodeNoAgentAvailable) {
				zap.L().Error("排队分配失败", zap.Error(err))
			}
			break
		}
		if !progressed {
			break
		}
		bound++
	}
	return bound
}

// bindNext 尝试为队首会话分配坐席
// 返回 false 表示队列已空
func (s *sessionService) bindNext(ctx context.Context) (bool, error) {
	repos := s.repos.WithContext(ctx)
	head, err := repos.Session.ListPending(1)
	if err != nil {
		return false, err
	}
	if len(head) == 0 {
		return false, nil
	}

	var bound string
	err = repos.Transaction(func(tx *repository.Repositories) error {
		session, err := tx.Session.FindByUuidForUpdate(head[0].Uuid)
		if err != nil {
			return err
		}
		// 其他协程已处理，继续看下一个
		if session.State != session_state_enum.Pending {
			return nil
		}
		agentId, err := s.assigner.Pick(tx, session.CustomerId)
		if err != nil {
			return err
		}
		if _, err := bindAgent(tx, session.Uuid, agentId, s.now()); err != nil {
			return err
		}
		bound = agentId
		zap.L().Info("排队会话已分配坐席",
			zap.String("session_id", session.Uuid),
			zap.String("customer_id", session.CustomerId),
			zap.String("agent_id", agentId),
		)
		return nil
	})
	if err != nil {
		return false, err
	}
	if bound != "" {
		s.assigner.Committed(bound)
	}
	return true, nil
}

// RunQueueSweeper 定时扫描排队会话，直到 ctx 取消
// 兜底处理多实例部署下其他实例释放的空位
func (s *sessionService) RunQueueSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.DrainQueue(ctx); n > 0 {
				zap.L().Info("定时扫描分配排队会话", zap.Int("bound", n))
			}
		}
	}
}
