package analytics

import (
	"sort"
	"time"

	"support_chat_server/internal/model"
	"support_chat_server/pkg/enum/message/entity_type_enum"
	"support_chat_server/pkg/enum/message/sender_role_enum"
)

// Card 单个会话的统计卡片
type Card struct {
	SessionId        string            `json:"session_id"`
	CustomerId       string            `json:"customer_id"`
	AgentId          string            `json:"agent_id"`
	Outcome          string            `json:"outcome"`
	StartedAt        time.Time         `json:"start_time"`
	EndedAt          *time.Time        `json:"end_time,omitempty"`
	MessageCount     int               `json:"message_count"`
	NerSummary       map[string]string `json:"ner_summary"`       // 每种实体类型首次出现的值
	IntentClassified string            `json:"intent_classified"` // 首个识别到的意图
	CustomerEmotions map[string]int64  `json:"customer_emotions"`
	AgentEmotions    map[string]int64  `json:"agent_emotions"`
	// EntityCounts 实体类型 -> 值 -> 出现次数，计入全局汇总
	EntityCounts map[string]map[string]int64 `json:"entity_counts"`
}

// Summary 统计汇总，坐席级与全局共用
// 各字段都是计数，合并满足交换律与结合律
type Summary struct {
	Sessions         int64                       `json:"sessions"`
	Outcomes         map[string]int64            `json:"outcomes"`
	CustomerEmotions map[string]int64            `json:"customer_emotions"`
	AgentEmotions    map[string]int64            `json:"agent_emotions"`
	Entities         map[string]map[string]int64 `json:"entities"`
}

// NewSummary 空汇总
func NewSummary() *Summary {
	return &Summary{
		Outcomes:         map[string]int64{},
		CustomerEmotions: map[string]int64{},
		AgentEmotions:    map[string]int64{},
		Entities:         map[string]map[string]int64{},
	}
}

// BuildCard 由会话与其全部消息计算卡片，不依赖消息切片的顺序
func BuildCard(session *model.Session, messages []model.Message) Card {
	ordered := append([]model.Message(nil), messages...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Seq < ordered[j].Seq })

	card := Card{
		SessionId:        session.Uuid,
		CustomerId:       session.CustomerId,
		AgentId:          session.AgentId,
		Outcome:          session.Outcome,
		StartedAt:        session.StartedAt,
		MessageCount:     len(ordered),
		NerSummary:       map[string]string{},
		CustomerEmotions: map[string]int64{},
		AgentEmotions:    map[string]int64{},
		EntityCounts:     map[string]map[string]int64{},
	}
	if session.EndedAt.Valid {
		t := session.EndedAt.Time
		card.EndedAt = &t
	}

	for _, msg := range ordered {
		if msg.Emotion != nil && *msg.Emotion != "" {
			if msg.SenderRole == sender_role_enum.Agent {
				card.AgentEmotions[*msg.Emotion]++
			} else {
				card.CustomerEmotions[*msg.Emotion]++
			}
		}
		if card.IntentClassified == "" && msg.Intent != nil {
			card.IntentClassified = *msg.Intent
		}
		// 按固定类型顺序遍历，保证结果与 map 遍历顺序无关
		for _, entityType := range entity_type_enum.All {
			value, ok := msg.Entities[entityType]
			if !ok || value == "" {
				continue
			}
			if _, seen := card.NerSummary[entityType]; !seen {
				card.NerSummary[entityType] = value
			}
			if card.EntityCounts[entityType] == nil {
				card.EntityCounts[entityType] = map[string]int64{}
			}
			card.EntityCounts[entityType][value]++
		}
	}
	return card
}

// Fold 将一张卡片计入汇总
func (s *Summary) Fold(card Card) {
	s.ensure()
	s.Sessions++
	s.Outcomes[card.Outcome]++
	addCounts(s.CustomerEmotions, card.CustomerEmotions)
	addCounts(s.AgentEmotions, card.AgentEmotions)
	for entityType, values := range card.EntityCounts {
		if s.Entities[entityType] == nil {
			s.Entities[entityType] = map[string]int64{}
		}
		addCounts(s.Entities[entityType], values)
	}
}

// Merge 合并另一份汇总
func (s *Summary) Merge(other *Summary) {
	s.ensure()
	if other == nil {
		return
	}
	s.Sessions += other.Sessions
	addCounts(s.Outcomes, other.Outcomes)
	addCounts(s.CustomerEmotions, other.CustomerEmotions)
	addCounts(s.AgentEmotions, other.AgentEmotions)
	for entityType, values := range other.Entities {
		if s.Entities[entityType] == nil {
			s.Entities[entityType] = map[string]int64{}
		}
		addCounts(s.Entities[entityType], values)
	}
}

func (s *Summary) ensure() {
	if s.Outcomes == nil {
		s.Outcomes = map[string]int64{}
	}
	if s.CustomerEmotions == nil {
		s.CustomerEmotions = map[string]int64{}
	}
	if s.AgentEmotions == nil {
		s.AgentEmotions = map[string]int64{}
	}
	if s.Entities == nil {
		s.Entities = map[string]map[string]int64{}
	}
}

func addCounts(dst, src map[string]int64) {
	for k, v := range src {
		dst[k] += v
	}
}

// fromModel 数据库汇总行转换为 Summary
func fromModel(row *model.AnalyticsSummary) *Summary {
	s := &Summary{
		Sessions:         row.Sessions,
		Outcomes:         row.Outcomes,
		CustomerEmotions: row.CustomerEmotions,
		AgentEmotions:    row.AgentEmotions,
		Entities:         row.Entities,
	}
	s.ensure()
	return s
}

// applyTo 将 Summary 写回数据库汇总行
func (s *Summary) applyTo(row *model.AnalyticsSummary) {
	row.Sessions = s.Sessions
	row.Outcomes = s.Outcomes
	row.CustomerEmotions = s.CustomerEmotions
	row.AgentEmotions = s.AgentEmotions
	row.Entities = s.Entities
}
