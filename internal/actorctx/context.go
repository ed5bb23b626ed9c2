// Package actorctx carries the authenticated submitter identity through a
// request. Authentication itself happens upstream; this package only trusts
// what the gateway forwarded.
package actorctx

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
)

// Role is the submitter's relationship to the property.
type Role string

const (
	RoleTenant  Role = "tenant"
	RoleManager Role = "manager"
	RoleOwner   Role = "owner"
)

// Actor identifies who is performing the request.
type Actor struct {
	ID   snowflake.ID
	Role Role
}

// Capabilities is the resolved capability descriptor the pipeline branches
// on, instead of matching role strings inline.
type Capabilities struct {
	// CanAutoVerify marks submissions trusted at creation time.
	CanAutoVerify bool
	// MustOwnActiveLease requires an active lease on the meter's property.
	MustOwnActiveLease bool
	// CanVerifyReadings allows confirming tenant-submitted readings.
	CanVerifyReadings bool
}

// ParseRole normalizes a role string from the gateway.
func ParseRole(raw string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleTenant:
		return RoleTenant, true
	case RoleManager:
		return RoleManager, true
	case RoleOwner:
		return RoleOwner, true
	default:
		return "", false
	}
}

// CapabilitiesFor resolves the capability descriptor for a role.
func CapabilitiesFor(role Role) Capabilities {
	switch role {
	case RoleManager, RoleOwner:
		return Capabilities{
			CanAutoVerify:      true,
			MustOwnActiveLease: false,
			CanVerifyReadings:  true,
		}
	default:
		return Capabilities{
			CanAutoVerify:      false,
			MustOwnActiveLease: true,
			CanVerifyReadings:  false,
		}
	}
}

type actorKey struct{}

// WithActor stores the actor in the context.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the actor from context, if set.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(actorKey{}).(Actor)
	if !ok || actor.ID == 0 {
		return Actor{}, false
	}
	return actor, true
}
