package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"strings"

	"github.com/Sternrassler/harvest-client/pkg/client"
	"github.com/Sternrassler/harvest-client/pkg/pagination"
)

func (a *app) runRequest(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("request", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	method := fs.String("method", http.MethodGet, "HTTP method")
	path := fs.String("path", "", "API path, e.g. /jobs (required)")
	params := fs.String("params", "", "query parameters as a JSON object")
	body := fs.String("body", "", "request body as JSON")
	paginate := fs.Bool("paginate", false, "follow rel=\"next\" links and print every item")
	onBehalfOf := fs.String("on-behalf-of", "", "user ID sent in the On-Behalf-Of header")
	pretty := fs.Bool("pretty", false, "indent JSON output")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	query, err := parseParams(*params)
	if err != nil {
		fmt.Fprintf(a.stderr, "invalid --params: %v\n", err)
		return 2
	}

	var payload any
	if *body != "" {
		if err := json.Unmarshal([]byte(*body), &payload); err != nil {
			fmt.Fprintf(a.stderr, "invalid --body: %v\n", err)
			return 2
		}
	}

	m := strings.ToUpper(strings.TrimSpace(*method))
	if *paginate && m != http.MethodGet {
		fmt.Fprintln(a.stderr, "--paginate requires --method GET")
		return 2
	}

	if err := a.connect(*onBehalfOf); err != nil {
		return a.fail(err, "response")
	}
	defer a.close()

	if *paginate {
		first, err := a.client.BuildURL(*path, query)
		if err != nil {
			return a.fail(err, "response")
		}
		p := pagination.NewPaginator(a.client, a.cfg.ServiceConfig().Pagination)
		items, err := pagination.ListAll[json.RawMessage](ctx, p, first)
		if err != nil {
			return a.fail(err, "response")
		}
		if err := a.writeJSON(items, *pretty); err != nil {
			return a.fail(err, "response")
		}
		return 0
	}

	resp, err := a.client.Request(ctx, client.Request{
		Method: m,
		Path:   *path,
		Params: query,
		Body:   payload,
	})
	if err != nil {
		return a.fail(err, "response")
	}

	if !resp.IsJSON() {
		fmt.Fprintln(a.stdout, string(resp.Body))
		return 0
	}
	if err := a.writeJSON(json.RawMessage(resp.Body), *pretty); err != nil {
		return a.fail(err, "response")
	}
	return 0
}

func parseParams(raw string) (client.Params, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	// Numbers stay json.Number so large IDs are sent verbatim.
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	return client.Params(m), nil
}
