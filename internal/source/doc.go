// Package source resolves a submitted video reference into a local file.
//
// Local paths are validated in place; http(s) URLs are fetched with yt-dlp
// into the job staging directory, capturing the published title and
// description along the way. Either way the caller receives a readable local
// path or an error marking the source unreadable.
package source
