package model

import (
	"context"
	"errors"
	"fmt"
)

// RequestContext carries identity, organisation scope, and tracing
// information for the lifetime of an authenticated request. It is immutable
// after construction and safe for concurrent reads.
type RequestContext struct {
	SubjectID     string
	Email         string
	OrgID         string
	Roles         []string
	Claims        map[string]any
	Token         string
	CorrelationID string
	TraceID       string
	Locale        string
}

// Validate checks that all mandatory fields are present. SubjectID and
// OrgID must be non-empty: every resource call is scoped to one organisation.
func (rc *RequestContext) Validate() error {
	var errs []error
	if rc.SubjectID == "" {
		errs = append(errs, fmt.Errorf("SubjectID is required"))
	}
	if rc.OrgID == "" {
		errs = append(errs, fmt.Errorf("OrgID is required"))
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// HasRole returns true if the RequestContext contains the given role.
func (rc *RequestContext) HasRole(role string) bool {
	for _, r := range rc.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Claim returns the value of the given claim key, or nil if not present.
func (rc *RequestContext) Claim(key string) any {
	if rc.Claims == nil {
		return nil
	}
	return rc.Claims[key]
}

// Session is the capability the resource client consumes at call time: the
// bearer token and organisation scope of the current request. Abstracting
// it keeps persistent-storage details out of the client and lets tests
// substitute fixed values.
type Session interface {
	AccessToken() string
	OrganisationID() string
}

// AccessToken implements Session.
func (rc *RequestContext) AccessToken() string { return rc.Token }

// OrganisationID implements Session.
func (rc *RequestContext) OrganisationID() string { return rc.OrgID }

// StaticSession is a fixed-value Session for tests and tooling.
type StaticSession struct {
	Token string
	Org   string
}

// AccessToken implements Session.
func (s StaticSession) AccessToken() string { return s.Token }

// OrganisationID implements Session.
func (s StaticSession) OrganisationID() string { return s.Org }

type contextKey struct{}

// WithRequestContext attaches a RequestContext to the given context.
func WithRequestContext(ctx context.Context, rctx *RequestContext) context.Context {
	return context.WithValue(ctx, contextKey{}, rctx)
}

// RequestContextFrom extracts the RequestContext from the context, or
// returns nil if not present.
func RequestContextFrom(ctx context.Context) *RequestContext {
	rctx, _ := ctx.Value(contextKey{}).(*RequestContext)
	return rctx
}

// MustRequestContext extracts the RequestContext from the context, panicking
// if it is not present. Safe to call in handlers that are guaranteed to run
// behind the authentication middleware.
func MustRequestContext(ctx context.Context) *RequestContext {
	rctx := RequestContextFrom(ctx)
	if rctx == nil {
		panic("model: RequestContext not found in context")
	}
	return rctx
}
