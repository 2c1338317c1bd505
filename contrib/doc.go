// Package contrib provides adapters built on top of the viewscope core.
//
// Everything in this package extends the core with integrations that are
// not part of the policy layer itself. [github.com/sitekit/viewscope/contrib/viewhttp]
// serves view resolution, rendering, copy on write and copy on unlink over
// HTTP.
//
// Note that this package is outside of the backward compatibility guarantees
// of the core package. Changes to it may be breaking without following
// semantic versioning.
package contrib
