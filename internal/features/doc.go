// Package features turns a fetched message into the FeatureVector the
// distance engine compares.
//
// A FeatureVector has two halves. The numeric half is a fixed-dimension,
// L2-normalized bag-of-words embedding built with the hashing trick over
// subject and body tokens. The categorical half holds heuristic tags: the
// sender domain, bulk-mail markers found in the headers, and the primary
// subject tokens.
//
// Extraction is pure. The same message and Config always produce the same
// FeatureVector. Quoted replies and signature blocks are removed before
// tokenizing so reply chains cluster by topic rather than by quoted noise.
package features
