// Package search turns user supplied criteria into a page of file results.
//
// # Overview
//
// A search runs through four stages:
//
//	Criteria --Validate--> Validated --Backend.Compile--> Query
//	Query --Backend.Execute--> RawPage --Backend.Normalize--> Record
//
// Validation is shared by every backend, so the same malformed input is
// rejected with the same error regardless of where the search would run.
// Compilation and normalization belong to the backend: package index
// compiles to an Elasticsearch style boolean query and package files to a
// comparison operator tree over the local file cache.
//
// # Backends
//
// A Service is bound to exactly one Backend, picked once at startup by
// probing which one is configured (see cmd/utils.go). The Backend contract
// guarantees:
//
//   - Compile fails with MissingSearchTerm when content and filename are empty
//   - Execute reports non-success backend statuses as BackendUnavailable
//   - Normalize drops hits the user cannot see and degrades hits whose
//     enrichment fails, so one bad document never fails a page
//
// # Errors
//
// *QueryError values are caused by the caller and are mapped to HTTP 417 by
// package api. *ConfigError values are caused by the environment and are
// mapped to HTTP 503.
//
// # Usage
//
//	svc := search.NewService(backend, auth.ContextIdentity{}, dates)
//	resp, err := svc.Search(ctx, search.Criteria{
//		Content:   "invoice",
//		FileTypes: []string{"pdfs"},
//	}, search.Paging{Size: 20, Sort: search.SortModified})
package search
