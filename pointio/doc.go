// Package pointio reads and writes point sets and search results as ZSTD
// compressed Parquet files.
//
// A points file has one row per point with an int64 "id" column and a
// repeated float64 "coords" column. A results file has one row per query
// with "query", "neighbors", "distances" and "count" columns.
package pointio
