// Package google loads and stores the OAuth2 tokens the Gmail session uses.
//
// Tokens are kept per account under the user cache directory
// (~/.cache/inboxtriage/google-<account>.token on Linux). Refreshed tokens
// are written back so a long-lived refresh token survives restarts.
package google
