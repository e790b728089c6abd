// Package gmail implements a mail session over the Gmail REST API.
//
// FetchRecent lists INBOX message ids newest first and then fetches each
// message's metadata headers and snippet with a bounded pool of concurrent
// requests. ArchiveOne removes the INBOX label, which Gmail treats as a
// no-op when the label is already gone, so archiving is idempotent.
//
// Authentication is handled by the google package; a Session only needs an
// authenticated HTTP client.
package gmail
