package middleware

import "context"

// Actor is the authenticated caller of an admin route.
type Actor struct {
	Subject string
	Role    string
}

type actorKey struct{}

// WithActor stores the authenticated subject and role on ctx.
func WithActor(ctx context.Context, subject, role string) context.Context {
	return context.WithValue(ctx, actorKey{}, Actor{Subject: subject, Role: role})
}

func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(Actor)
	return actor, ok
}

// SubjectFromContext is empty for anonymous storefront requests.
func SubjectFromContext(ctx context.Context) string {
	actor, _ := ActorFromContext(ctx)
	return actor.Subject
}

func RoleFromContext(ctx context.Context) string {
	actor, _ := ActorFromContext(ctx)
	return actor.Role
}
