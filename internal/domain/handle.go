package domain

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidHandle is returned when a string cannot be turned into a Handle.
var ErrInvalidHandle = errors.New("invalid handle")

// Handle identifies a community or a person as "name@instance".
//
// Handles are always lower-cased and never carry the "!" or "@" sigils used
// in the UI. Build them with NewHandle, ParseHandle or the Handle methods of
// Community and Person so every key in the caches is normalized the same way.
type Handle string

// NewHandle builds a handle from its two parts.
func NewHandle(name, instance string) (Handle, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	instance = strings.ToLower(strings.TrimSpace(instance))

	if name == "" || instance == "" {
		return "", fmt.Errorf("%w: empty name or instance", ErrInvalidHandle)
	}
	if strings.ContainsAny(name, "@ \t\n/") || strings.ContainsAny(instance, "@ \t\n/") {
		return "", fmt.Errorf("%w: %q@%q", ErrInvalidHandle, name, instance)
	}

	return Handle(name + "@" + instance), nil
}

// ParseHandle normalizes user input into a Handle.
// Examples:
//   - "asklemmy" (defaultInstance "lemmy.ml") -> "asklemmy@lemmy.ml"
//   - "!Technology@Lemmy.World"              -> "technology@lemmy.world"
func ParseHandle(raw, defaultInstance string) (Handle, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimLeft(s, "!@")

	name, instance, found := strings.Cut(s, "@")
	if !found {
		instance = defaultInstance
	}
	return NewHandle(name, instance)
}

// MustHandle is ParseHandle for literals known to be valid. It panics otherwise.
func MustHandle(raw string) Handle {
	h, err := ParseHandle(raw, "")
	if err != nil {
		panic(err)
	}
	return h
}

// Name returns the part before "@".
func (h Handle) Name() string {
	name, _, _ := strings.Cut(string(h), "@")
	return name
}

// Instance returns the part after "@".
func (h Handle) Instance() string {
	_, instance, _ := strings.Cut(string(h), "@")
	return instance
}

func (h Handle) String() string { return string(h) }

// handleFromActor derives a handle from an ActivityPub actor id.
func handleFromActor(name, actorID string) (Handle, error) {
	u, err := url.Parse(actorID)
	if err != nil {
		return "", fmt.Errorf("%w: actor id %q: %v", ErrInvalidHandle, actorID, err)
	}
	return NewHandle(name, u.Hostname())
}
