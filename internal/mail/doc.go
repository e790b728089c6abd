// Package mail defines the message model shared by every part of inboxtriage
// and the narrow Session capability the pipeline depends on.
//
// A Session fetches the most recent messages of a mailbox and archives a
// single message by identifier. Concrete sessions live in their own packages
// (gmail, imap, mbox, demo) and are injected into the pipeline; nothing in
// the core holds a process-wide session or sees credentials.
package mail
