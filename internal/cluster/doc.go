// Package cluster partitions a working set into at most k groups with a
// k-medoids (Voronoi iteration) search over a precomputed distance matrix.
//
// Runs are reproducible. The first medoid is the most central point; the
// rest are drawn k-medoids++ style from a PCG generator seeded by
// Options.Seed, walking candidates in input order. Assignment ties keep a
// point in its previous group, or send it to the lowest-indexed group on the
// first pass. Medoid updates keep the current medoid unless a member is
// strictly cheaper.
//
// The search stops when the medoids stop changing or after
// Options.MaxIterations passes. In the second case the cheapest partition
// seen is returned with Converged set to false.
package cluster
