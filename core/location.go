package core

import (
	"fmt"
	"net/url"
	"strings"
)

// Location identifies a remote resource by URI. The zero value is empty and
// unusable; construct one with ParseLocation or LocationFromURL.
type Location struct {
	u *url.URL
}

// ParseLocation parses raw as a URI. The scheme is required so that
// transports can be selected from it.
func ParseLocation(raw string) (Location, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Location{}, fmt.Errorf("%w: %v", ErrInvalidLocation, err)
	}
	if u.Scheme == "" {
		return Location{}, fmt.Errorf("%w: missing scheme in %q", ErrInvalidLocation, raw)
	}
	return Location{u: u}, nil
}

// LocationFromURL wraps an already-parsed URL. The URL is cloned, so later
// mutation of u does not affect the location.
func LocationFromURL(u *url.URL) Location {
	clone := *u
	return Location{u: &clone}
}

// String returns the full URI, or "" for the zero value.
func (l Location) String() string {
	if l.u == nil {
		return ""
	}
	return l.u.String()
}

// ShortName returns the last path segment of the URI, for compact display.
// Falls back to the host when the path is empty, and to the full URI when
// both are.
func (l Location) ShortName() string {
	if l.u == nil {
		return ""
	}
	p := strings.TrimSuffix(l.u.Path, "/")
	if idx := strings.LastIndex(p, "/"); idx >= 0 {
		p = p[idx+1:]
	}
	if p != "" {
		return p
	}
	if l.u.Host != "" {
		return l.u.Host
	}
	return l.u.String()
}

// Scheme returns the URI scheme.
func (l Location) Scheme() string {
	if l.u == nil {
		return ""
	}
	return l.u.Scheme
}

// URL returns a copy of the underlying URL, or nil for the zero value.
func (l Location) URL() *url.URL {
	if l.u == nil {
		return nil
	}
	clone := *l.u
	return &clone
}
