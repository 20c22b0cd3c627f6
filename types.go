package fetchmeter

import (
	"net/url"

	"github.com/Azzadd/fetchmeter/core"
)

// Core types re-exported so that callers only import fetchmeter.

// Location identifies a remote resource by URI.
type Location = core.Location

// Metadata describes a remote resource without its content.
type Metadata = core.Metadata

// ContentAction consumes a resource's content stream.
type ContentAction = core.ContentAction

// Fetcher retrieves remote resource content and metadata.
type Fetcher = core.Fetcher

// ReadDetails identifies the resource of a content read operation.
type ReadDetails = core.ReadDetails

// ReadResult is recorded when a content read operation completes.
type ReadResult = core.ReadResult

// MetadataDetails identifies the resource of a metadata read operation.
type MetadataDetails = core.MetadataDetails

// MetadataResult marks the completion of a metadata read operation.
type MetadataResult = core.MetadataResult

// UnknownSize is the ContentLength of a resource whose size the transport
// could not determine.
const UnknownSize = core.UnknownSize

// ParseLocation parses raw as a URI. The scheme is required.
func ParseLocation(raw string) (Location, error) {
	return core.ParseLocation(raw)
}

// LocationFromURL wraps an already-parsed URL.
func LocationFromURL(u *url.URL) Location {
	return core.LocationFromURL(u)
}
