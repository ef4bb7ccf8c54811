// Package integrations provides HTTP clients for the upstream APIs the plugin
// index reads from.
//
// # Overview
//
// Each upstream has its own subpackage:
//
//   - [rubygems]: paginated gem search on RubyGems.org
//   - [github]: repository info used to attach stars and owner avatars
//
// # Shared Infrastructure
//
// The [Client] type owns one *http.Client and a set of default headers.
// It classifies response status codes into [ErrNotFound], [ErrNetwork] and
// [*StatusError] so that callers can decide whether a failure is fatal
// (registry search) or tolerated (enrichment). No retries are performed and no
// timeout is set beyond the transport defaults.
//
// A Client is safe for concurrent use, but the enrichment workers each own one
// so that connections are not shared across workers. Call
// [Client.CloseIdleConnections] when a worker is done with its client.
//
// [rubygems]: github.com/embulk/pluginindex/pkg/integrations/rubygems
// [github]: github.com/embulk/pluginindex/pkg/integrations/github
package integrations
