// Package pagination follows Harvest's link-header pagination and splits large
// identifier lists into batched requests.
//
// Harvest returns a Link response header of comma-separated
// `<url>; rel="value"` segments. Only rel="next" is consumed: ListAll keeps
// requesting the next URL until a response carries none, concatenating every
// page into one ordered slice. A failure on any page fails the whole call.
//
// Example usage:
//
//	p := pagination.NewPaginator(harvestClient, pagination.DefaultConfig())
//	first, _ := harvestClient.BuildURL("jobs", client.Params{"status": "open"})
//	jobs, err := pagination.ListAll[harvest.Job](ctx, p, first)
//
// FetchInBatches issues one fetch per chunk of identifiers, one chunk at a time:
//
//	candidates, err := pagination.FetchInBatches(ctx, ids, 50, fetchChunk)
package pagination
