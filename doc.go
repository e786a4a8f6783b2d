// Package qualys provides a Go client for the Qualys Cloud Platform APIs:
// VMDR, Global AssetView, Web Application Scanning, Cloud Agent, CloudView,
// Patch Management and Container Security.
//
// # Features
//
//   - A single dispatch path for every endpoint, driven by a static endpoint table
//   - Parameter validation before any network call
//   - Automatic pagination across the four continuation styles the platform uses
//   - Modern Go 1.25+ iterators for lazy pagination
//   - Typed errors for precise error handling
//   - Functional options for flexible configuration
//
// # Quick Start
//
//	client, err := qualys.NewClient(
//	    qualys.WithPlatform("qg2"),
//	    qualys.WithBasicAuth(username, password),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for host, err := range client.Hosts.List(ctx, &qualys.HostListOptions{IDs: "10-20"}) {
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Printf("Host %d: %s\n", host.ID, host.IP)
//	}
//
// # Generic Dispatch
//
// Any endpoint in the table can be called by module and name. Records are plain
// maps unless a Factory converts them:
//
//	count, err := qualys.Execute(ctx, client, "gav", "count_assets",
//	    qualys.Params{"filter": "asset.name:web01"}, qualys.CountFromRecord)
//
//	jobs, err := qualys.ExecutePaginated(ctx, client, "pm", "list_jobs", 5,
//	    qualys.Params{"pageSize": 100}, qualys.JobFromRecord)
//
// # Error Handling
//
// The package uses typed errors that can be inspected with errors.As:
//
//	_, err := client.Findings.Count(ctx, &qualys.FindingFilter{Severity: "9"})
//	if err != nil {
//	    var paramErr *qualys.ParamError
//	    if errors.As(err, &paramErr) {
//	        // Rejected before any request was sent
//	    }
//	    var statusErr *qualys.UnexpectedStatusError
//	    if errors.As(err, &statusErr) {
//	        // Non-2xx response; RateLimitError and AuthenticationError match too
//	    }
//	}
//
// # Pagination
//
// Use iterators for lazy pagination, or ExecutePaginated to collect:
//
//	// Iterate over all results
//	for asset, err := range client.Assets.List(ctx, nil) {
//	    // ...
//	}
//
//	// Stop after three pages
//	hosts, err := client.Hosts.ListPages(ctx, 3, nil)
//	fmt.Println(hosts.Len(), hosts.Reason())
//
//	// Keep what was collected when the context is canceled mid-way
//	res, err := qualys.ExecutePaginated(ctx, client, "was", "get_findings", 0, nil,
//	    qualys.FindingFromRecord, qualys.KeepPartial())
package qualys
