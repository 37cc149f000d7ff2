// Package settings is the durable key-value store behind user preferences.
//
// A setting is addressed by its Name plus a Scope (user handle and, for
// per-community settings, the community handle). Values are stored as JSON so
// any backend can hold lists and enums alike.
package settings

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownBackend is returned by Open for an unsupported backend name.
var ErrUnknownBackend = errors.New("unknown settings backend")

// ErrEmptyUser is returned when a scope has no user handle.
var ErrEmptyUser = errors.New("settings scope has no user handle")

// Name is the name of a persisted setting.
type Name string

const (
	FavoriteCommunities Name = "favorite_communities"
	DefaultPostSort     Name = "default_post_sort"
)

// Scope narrows a setting to a user and optionally a community.
type Scope struct {
	UserHandle string
	Community  string
}

func (s Scope) validate() error {
	if strings.TrimSpace(s.UserHandle) == "" {
		return ErrEmptyUser
	}
	return nil
}

func (s Scope) String() string {
	if s.Community == "" {
		return s.UserHandle
	}
	return s.UserHandle + ":" + s.Community
}

// Store persists settings across restarts.
type Store interface {
	// Get decodes the stored value into dst. found is false when nothing is stored.
	Get(ctx context.Context, name Name, scope Scope, dst any) (found bool, err error)
	// Set replaces the stored value.
	Set(ctx context.Context, name Name, value any, scope Scope) error
	Ping(ctx context.Context) error
	Backend() string
	Close() error
}

func wrapErr(op string, name Name, scope Scope, err error) error {
	return fmt.Errorf("settings %s %s[%s]: %w", op, name, scope, err)
}
