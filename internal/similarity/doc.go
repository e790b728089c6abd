// Package similarity blends heuristic tag distances with an embedding
// distance into a single non-negative score.
//
//	d(a, b) = Domain·[domain differs] + Bulk·[bulk flag differs]
//	        + Subject·jaccard(subject tokens) + Embedding·cosine(embeddings)
//
// The result is symmetric and d(a, a) = 0. It is not a metric: the triangle
// inequality may fail, which the clustering engine does not rely on.
package similarity
