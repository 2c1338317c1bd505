// The [viewscope] package implements website-aware view templates for a
// multi-website content-management system.
//
// One logical template, identified by its key, may exist as several
// records: a generic one shared by every website, website-specific copies
// and theme-specific copies. [Views] keeps websites isolated from each
// other while they share templates.
//
// # Copy on write
//
// [Views.Write] under a website never modifies a generic template. The
// template is copied for that website first, together with the pages it
// owns, the menus of those pages and the templates inheriting from it, and
// the write lands on the copy. While a theme module is being installed
// ([Env.InstallModule]), writes to templates declared by other modules land
// on a theme-specific copy, created once and reused afterwards.
//
// # Copy on unlink
//
// [Views.Unlink] under a website deleting a generic template first gives
// every other website its own copy under a renamed key, so only the current
// website loses it. Every record sharing the deleted keys goes with it.
//
// # Resolution
//
// [Views.ViewID] and [Views.ViewObj] turn a [models.ViewRef] into records,
// picking the most suitable record per key for the website in scope.
// [Views.InheritingViewsArch] lists the extensions applying to a base
// template on a website. Key resolutions are cached per user, key and
// website; every mutation through [Views] drops the cache.
//
// # Rendering
//
// [Views.Render] and [Views.PrepareQContext] add the website values
// (website selector, languages, edit mode) to the rendering context of
// frontend requests and hand the template to a [render.Engine].
//
// # Storage
//
// The policy runs on any [store.Store]. Write and Unlink run in a single
// storage transaction, so a failed fork leaves nothing behind. See
// [github.com/sitekit/viewscope/pkg/store/memory] and
// [github.com/sitekit/viewscope/pkg/store/gormstore].
//
// # Scope
//
// Every operation takes an explicit [Env]: the current website, the acting
// user, the module being installed and whether copy on write is bypassed.
// There is no ambient state.
package viewscope
