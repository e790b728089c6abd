// Package archive archives every message of a cluster through the mail
// session.
//
// Each message identifier is dispatched exactly once to a bounded pool of
// workers. A dispatch may retry temporary transport failures, which is safe
// because archiving an already archived message succeeds. Outcomes are
// recorded per message and successes are never rolled back, so a Report can
// be partially successful. When the context is cancelled, identifiers that
// were never dispatched are listed in Report.NotAttempted.
package archive
