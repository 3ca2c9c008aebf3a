package postgres

import (
	"database/sql"
	"time"

	"github.com/brightdoor/listing-studio/internal/domain/billing"
)

type subscriptionTableModel struct {
	OrgID               string        `db:"org_id"`
	Plan                string        `db:"plan"`
	Status              string        `db:"status"`
	PeriodStart         time.Time     `db:"period_start"`
	PeriodEnd           time.Time     `db:"period_end"`
	AIGenerationsUsed   int64         `db:"ai_generations_used"`
	AIGenerationsLimit  sql.NullInt64 `db:"ai_generations_limit"`
	VideoRendersUsed    int64         `db:"video_renders_used"`
	VideoRendersLimit   sql.NullInt64 `db:"video_renders_limit"`
	CreatedAt           time.Time     `db:"created_at"`
	UpdatedAt           time.Time     `db:"updated_at"`
}

func (m subscriptionTableModel) toDomain() billing.Subscription {
	return billing.Subscription{
		OrgID:             m.OrgID,
		Plan:              billing.PlanID(m.Plan),
		Status:            billing.SubscriptionStatus(m.Status),
		PeriodStart:       m.PeriodStart,
		PeriodEnd:         m.PeriodEnd,
		AIGenerationsUsed: m.AIGenerationsUsed,
		VideoRendersUsed:  m.VideoRendersUsed,
	}
}

func (m subscriptionTableModel) usedFor(kind billing.UsageKind) int64 {
	if kind == billing.UsageVideoRender {
		return m.VideoRendersUsed
	}
	return m.AIGenerationsUsed
}

func (m subscriptionTableModel) limitFor(kind billing.UsageKind) sql.NullInt64 {
	if kind == billing.UsageVideoRender {
		return m.VideoRendersLimit
	}
	return m.AIGenerationsLimit
}
