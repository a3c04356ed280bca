package auth

import "context"

type contextKey struct{}

// AuthContext is the identity the auth middleware attaches to a request.
// FamilyID is zero when the user does not belong to a family.
type AuthContext struct {
	UserID     int64
	Username   string
	Email      string
	Role       string
	FamilyID   int64
	FamilyRole string
	Token      string
}

func WithAuth(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

func FromContext(ctx context.Context) (AuthContext, bool) {
	ac, ok := ctx.Value(contextKey{}).(AuthContext)
	return ac, ok
}

func UserID(ctx context.Context) int64 {
	ac, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return ac.UserID
}

func FamilyID(ctx context.Context) int64 {
	ac, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return ac.FamilyID
}

func IsFamilyAdmin(ctx context.Context) bool {
	ac, ok := FromContext(ctx)
	if !ok {
		return false
	}
	return ac.FamilyRole == "admin"
}
