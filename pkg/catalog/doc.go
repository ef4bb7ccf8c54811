// Package catalog builds the Embulk plugin listing.
//
// The pipeline has three steps, each usable on its own:
//
//   - [Searcher] pages through the RubyGems search API, drops duplicates and
//     gems that don't follow the embulk-<category>-<name> convention, and
//     yields one [Plugin] per remaining gem.
//   - [Enricher] attaches GitHub stars and owner avatars to plugins that
//     link to a repository, using a small pool of workers. A failed lookup
//     leaves the plugin as it was.
//   - [Assemble] sorts by popularity, fills display fields and groups the
//     plugins by category in a fixed order.
//
// # Popularity Order
//
// Plugins are ordered by [PackedKey], downloads<<16 | stars, which matches
// the ordering of the published page. Once a repository has more than 65535
// stars its count bleeds into the download bits and the relative order
// becomes wrong. [AssembleWith] accepts a different [Ordering], such as
// [ByDownloadsThenStars], without touching the rest of the pipeline.
package catalog
