package httpapi

import "context"

type contextKey string

const orgIDContextKey contextKey = "org-id"

func withOrgID(ctx context.Context, orgID string) context.Context {
	return context.WithValue(ctx, orgIDContextKey, orgID)
}

func orgIDFromContext(ctx context.Context) (string, bool) {
	orgID, ok := ctx.Value(orgIDContextKey).(string)
	return orgID, ok && orgID != ""
}
