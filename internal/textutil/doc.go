// Package textutil provides filename helpers shared by the downloader and the
// composer: accent folding, query slugs, and unsafe-character replacement.
package textutil
