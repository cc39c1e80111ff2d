// Package cluster owns the beneficiary-load clustering pipeline.
//
// Responsibilities: aggregation of beneficiary records into per-center
// counts, standardization of the count feature, the elbow sweep over
// candidate cluster counts with knee detection, and seeded k-means
// assignment.
// Key types: Record, EntityCount, ScaledFeature, WcssCurve, ClusterAssignment.
//
// Dependency rule: no I/O, no SQL and no rendering code in this package.
// Data enters and leaves by value; every call allocates its own results.
package cluster
