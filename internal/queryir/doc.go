// Package queryir is the filter language for stored runs and findings.
//
// The report command and the scenario harness build queries as values,
// Validate checks them against the stored schema, and querysql compiles
// them to parameterized SQLite. Column names are checked against Tables
// and values are always bound as parameters, so no caller concatenates
// SQL.
//
// Query and Predicate are sealed: only this package implements them, so
// backends can switch exhaustively.
//
//	q := queryir.Select{
//	    From: queryir.TableViolations,
//	    Filter: queryir.And{Predicates: []queryir.Predicate{
//	        queryir.Equals{Field: "run_id", Value: ir.IRString(runID)},
//	        queryir.In{Field: "severity", Values: queryir.Strings("Severe", "Extreme")},
//	    }},
//	}
package queryir
