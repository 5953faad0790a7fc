// Package fileserver resolves request URIs to files through an ordered
// rewrite pipeline and serves them with an in-memory content cache.
//
// The pipeline runs the stages in a fixed order: version-suffix strip,
// redirect table, alias table, root-directory selection, localization,
// path canonicalization, mime inference, cache-bust and SSI transforms,
// cache-control resolution and finally the content cache. Rule tables are
// ordered; the first matching rule wins.
package fileserver
