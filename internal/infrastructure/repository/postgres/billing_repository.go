package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/brightdoor/listing-studio/internal/domain/billing"
)

type BillingRepository struct {
	db *sqlx.DB
}

func NewBillingRepository(db *sqlx.DB) *BillingRepository {
	return &BillingRepository{db: db}
}

type reserveUsageRow struct {
	Granted bool          `db:"granted"`
	Reason  string        `db:"reason"`
	Used    int64         `db:"used"`
	Limit   sql.NullInt64 `db:"usage_limit"`
}

// ReserveAtomic delegates the check-and-increment to the reserve_usage SQL
// function, which locks the subscription row so concurrent reservations
// against a near-exhausted quota serialize server-side. A missing function
// surfaces as billing.ErrAtomicReserveUnsupported.
func (r *BillingRepository) ReserveAtomic(ctx context.Context, orgID string, kind billing.UsageKind, amount int64) (billing.ReserveOutcome, error) {
	var row reserveUsageRow
	err := r.db.GetContext(ctx, &row,
		`SELECT granted, reason, used, usage_limit FROM reserve_usage($1, $2, $3)`,
		orgID, string(kind), amount,
	)
	if err != nil {
		if isUndefinedFunction(err) {
			return billing.ReserveOutcome{}, billing.ErrAtomicReserveUnsupported
		}
		return billing.ReserveOutcome{}, fmt.Errorf("call reserve_usage: %w", err)
	}

	usage := billing.Usage{Kind: kind, Used: row.Used, Limit: int64Ptr(row.Limit)}
	return billing.ReserveOutcome{
		Granted:   row.Granted,
		Reason:    billing.RejectReason(row.Reason),
		Used:      usage.Used,
		Limit:     usage.Limit,
		Remaining: usage.Remaining(),
	}, nil
}

func (r *BillingRepository) GetSubscription(ctx context.Context, orgID string) (billing.Subscription, bool, error) {
	var row subscriptionTableModel
	err := r.db.GetContext(ctx, &row,
		`SELECT * FROM subscriptions WHERE org_id = $1`, orgID)
	if err != nil {
		if isNotFound(err) {
			return billing.Subscription{}, false, nil
		}
		return billing.Subscription{}, false, fmt.Errorf("get subscription: %w", err)
	}
	return row.toDomain(), true, nil
}

// UpsertSubscription writes the subscription and freezes the plan's limits
// onto the row, so the reserve_usage function needs no plan catalog.
func (r *BillingRepository) UpsertSubscription(ctx context.Context, sub billing.Subscription) error {
	plan, ok := billing.Catalog()[sub.Plan]
	if !ok {
		return fmt.Errorf("unknown plan %q", sub.Plan)
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO subscriptions (
			org_id, plan, status, period_start, period_end,
			ai_generations_used, ai_generations_limit,
			video_renders_used, video_renders_limit,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
		ON CONFLICT (org_id) DO UPDATE SET
			plan = EXCLUDED.plan,
			status = EXCLUDED.status,
			period_start = EXCLUDED.period_start,
			period_end = EXCLUDED.period_end,
			ai_generations_limit = EXCLUDED.ai_generations_limit,
			video_renders_limit = EXCLUDED.video_renders_limit,
			updated_at = now()`,
		sub.OrgID, string(sub.Plan), string(sub.Status), sub.PeriodStart, sub.PeriodEnd,
		sub.AIGenerationsUsed, nullInt64(plan.AIGenerationsLimit),
		sub.VideoRendersUsed, nullInt64(plan.VideoRendersLimit),
	)
	if err != nil {
		return fmt.Errorf("upsert subscription: %w", err)
	}
	return nil
}

func (r *BillingRepository) GetUsage(ctx context.Context, orgID string, kind billing.UsageKind) (billing.Usage, billing.SubscriptionStatus, bool, error) {
	var row subscriptionTableModel
	err := r.db.GetContext(ctx, &row,
		`SELECT * FROM subscriptions WHERE org_id = $1`, orgID)
	if err != nil {
		if isNotFound(err) {
			return billing.Usage{}, "", false, nil
		}
		return billing.Usage{}, "", false, fmt.Errorf("get usage: %w", err)
	}

	usage := billing.Usage{
		Kind:  kind,
		Used:  row.usedFor(kind),
		Limit: int64Ptr(row.limitFor(kind)),
	}
	return usage, billing.SubscriptionStatus(row.Status), true, nil
}

func (r *BillingRepository) SetUsed(ctx context.Context, orgID string, kind billing.UsageKind, used int64) error {
	column := "ai_generations_used"
	if kind == billing.UsageVideoRender {
		column = "video_renders_used"
	}

	_, err := r.db.ExecContext(ctx,
		`UPDATE subscriptions SET `+column+` = $1, updated_at = now() WHERE org_id = $2`,
		used, orgID,
	)
	if err != nil {
		return fmt.Errorf("set %s: %w", column, err)
	}
	return nil
}

func (r *BillingRepository) RecordUsage(ctx context.Context, rec billing.UsageRecord) error {
	listingID := nullString(rec.ListingID)
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO usage_records (id, org_id, kind, quantity, listing_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.ID, rec.OrgID, string(rec.Kind), rec.Quantity, listingID, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert usage record: %w", err)
	}
	return nil
}

func (r *BillingRepository) ResetPeriodUsage(ctx context.Context, orgID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE subscriptions
		SET ai_generations_used = 0, video_renders_used = 0, updated_at = now()
		WHERE org_id = $1`,
		orgID,
	)
	if err != nil {
		return fmt.Errorf("reset period usage: %w", err)
	}
	return nil
}
