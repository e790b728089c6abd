// Package batch parses tool arguments that name one or many items.
package batch
