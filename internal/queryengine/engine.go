// Package queryengine orchestrates the filter-query language: it validates
// a request against a format's schema, resolves pagination defaults,
// enforces the read entitlement, and delegates execution to the store.
package queryengine

import (
	"context"

	"github.com/qazna-labs/recordvault/internal/apperr"
	"github.com/qazna-labs/recordvault/internal/domain"
	"github.com/qazna-labs/recordvault/internal/entitlement"
	"github.com/qazna-labs/recordvault/internal/query"
	"github.com/qazna-labs/recordvault/internal/store"
)

// Engine executes paginated filter queries.
type Engine struct {
	store       store.Store
	resolver    *entitlement.Resolver
	defaultPerPage int
	maxPerPage     int
	returnCount    bool
}

// New builds an Engine bound to the store and entitlement resolver.
func New(s store.Store, resolver *entitlement.Resolver, defaultPerPage, maxPerPage int, returnCount bool) *Engine {
	return &Engine{store: s, resolver: resolver, defaultPerPage: defaultPerPage, maxPerPage: maxPerPage, returnCount: returnCount}
}

// Request is the raw, unvalidated input to Run.
type Request struct {
	FormatID int64
	Query    query.FilterQuery
	Page     int
	PerPage  int
	OrderBy  string
}

// Run validates req against the format's schema and the caller's read
// entitlement, resolves pagination defaults, and executes the query.
func (e *Engine) Run(ctx context.Context, user domain.User, req Request) (query.Result, *apperr.Error) {
	format, err := e.store.Formats().Get(ctx, req.FormatID)
	if err != nil || format == nil {
		return query.Result{}, apperr.New(apperr.NotFound, "format not found")
	}
	if aerr := e.resolver.Require(ctx, user, format.ID, domain.AccessRead); aerr != nil {
		return query.Result{}, aerr
	}
	if aerr := req.Query.Validate(*format); aerr != nil {
		return query.Result{}, aerr
	}
	if aerr := query.ValidateOrderBy(req.OrderBy); aerr != nil {
		return query.Result{}, aerr
	}

	perPage := req.PerPage
	if perPage <= 0 {
		perPage = e.defaultPerPage
	}
	if perPage > e.maxPerPage {
		return query.Result{}, apperr.Newf(apperr.BadRequest, "perPage exceeds maximum of %d", e.maxPerPage)
	}
	page := req.Page
	if page < 0 {
		return query.Result{}, apperr.New(apperr.BadRequest, "page must be >= 0")
	}

	spec := query.Spec{
		FormatID: format.ID,
		Query:    req.Query,
		Page: query.Page{
			Page:      page,
			PerPage:   perPage,
			OrderBy:   req.OrderBy,
			WithCount: e.returnCount,
		},
	}

	res, storeErr := e.store.Records().Query(ctx, spec)
	if storeErr != nil {
		return query.Result{}, apperr.Wrap(apperr.StorageError, "query execution failed", storeErr)
	}
	return res, nil
}
