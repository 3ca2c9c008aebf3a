package billing

import "time"

type PlanID string

const (
	PlanFree         PlanID = "free"
	PlanStarter      PlanID = "starter"
	PlanProfessional PlanID = "professional"
	PlanTeam         PlanID = "team"
)

type UsageKind string

const (
	UsageAIGeneration UsageKind = "ai_generation"
	UsageVideoRender  UsageKind = "video_render"
)

type SubscriptionStatus string

const (
	StatusActive    SubscriptionStatus = "active"
	StatusTrialing  SubscriptionStatus = "trialing"
	StatusPastDue   SubscriptionStatus = "past_due"
	StatusCancelled SubscriptionStatus = "cancelled"
)

// CanConsume reports whether the subscription may consume metered usage at
// all, independent of numeric quota.
func (s SubscriptionStatus) CanConsume() bool {
	return s == StatusActive || s == StatusTrialing
}

// Plan describes per-billing-period allowances. A nil limit means unlimited.
type Plan struct {
	ID                 PlanID
	Name               string
	AIGenerationsLimit *int64
	VideoRendersLimit  *int64
	TeamMembersLimit   *int64
}

func (p Plan) LimitFor(kind UsageKind) *int64 {
	switch kind {
	case UsageAIGeneration:
		return p.AIGenerationsLimit
	case UsageVideoRender:
		return p.VideoRendersLimit
	default:
		return limit(0)
	}
}

func limit(n int64) *int64 { return &n }

// Catalog returns the built-in plan table.
func Catalog() map[PlanID]Plan {
	return map[PlanID]Plan{
		PlanFree: {
			ID:                 PlanFree,
			Name:               "Free",
			AIGenerationsLimit: limit(10),
			VideoRendersLimit:  limit(3),
			TeamMembersLimit:   limit(1),
		},
		PlanStarter: {
			ID:                 PlanStarter,
			Name:               "Starter",
			AIGenerationsLimit: limit(100),
			VideoRendersLimit:  limit(20),
			TeamMembersLimit:   limit(3),
		},
		PlanProfessional: {
			ID:                 PlanProfessional,
			Name:               "Professional",
			AIGenerationsLimit: limit(500),
			VideoRendersLimit:  limit(100),
			TeamMembersLimit:   limit(10),
		},
		PlanTeam: {
			ID:   PlanTeam,
			Name: "Team",
			// Unlimited renders and generations.
			TeamMembersLimit: nil,
		},
	}
}

// Subscription is one organization's billing state for the current period.
type Subscription struct {
	OrgID             string
	Plan              PlanID
	Status            SubscriptionStatus
	PeriodStart       time.Time
	PeriodEnd         time.Time
	AIGenerationsUsed int64
	VideoRendersUsed  int64
}

func (s Subscription) UsedFor(kind UsageKind) int64 {
	switch kind {
	case UsageAIGeneration:
		return s.AIGenerationsUsed
	case UsageVideoRender:
		return s.VideoRendersUsed
	default:
		return 0
	}
}

// Usage is one counter's position against its limit. Limit nil = unlimited.
type Usage struct {
	Kind  UsageKind
	Used  int64
	Limit *int64
}

// Remaining returns the headroom left, or nil for unlimited.
func (u Usage) Remaining() *int64 {
	if u.Limit == nil {
		return nil
	}
	rem := *u.Limit - u.Used
	if rem < 0 {
		rem = 0
	}
	return &rem
}

// UsageRecord is the audit row written alongside a counter increment.
type UsageRecord struct {
	ID        string
	OrgID     string
	Kind      UsageKind
	Quantity  int64
	ListingID string
	CreatedAt time.Time
}

type RejectReason string

const (
	ReasonNone           RejectReason = ""
	ReasonNoSuchConsumer RejectReason = "no_such_consumer"
	ReasonInactiveStatus RejectReason = "inactive_status"
	ReasonLimitReached   RejectReason = "limit_reached"
)

// ReserveOutcome is the structured result of a quota reservation attempt.
// Degraded marks results produced by the non-atomic fallback path, whose
// guarantee under concurrency is weaker (bounded overshoot possible).
type ReserveOutcome struct {
	Granted   bool
	Reason    RejectReason
	Used      int64
	Limit     *int64
	Remaining *int64
	Degraded  bool
}
