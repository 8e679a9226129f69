// Package notion adapts the Notion API to notionhelper: block trees are read
// as todo items, pages are reconciliation targets and the project database
// yields the project set.
package notion

import (
	"context"
	"net/http"
	"time"

	"github.com/jomei/notionapi"
)

// Blocks is the part of the block API used here.
type Blocks interface {
	GetChildren(ctx context.Context, id notionapi.BlockID, pagination *notionapi.Pagination) (*notionapi.GetChildrenResponse, error)
	AppendChildren(ctx context.Context, id notionapi.BlockID, req *notionapi.AppendBlockChildrenRequest) (*notionapi.AppendBlockChildrenResponse, error)
}

// Pages is the part of the page API used here.
type Pages interface {
	Get(ctx context.Context, id notionapi.PageID) (*notionapi.Page, error)
	Create(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error)
}

// Databases is the part of the database API used here.
type Databases interface {
	Get(ctx context.Context, id notionapi.DatabaseID) (*notionapi.Database, error)
	Query(ctx context.Context, id notionapi.DatabaseID, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)
}

// Users is the part of the user API used here.
type Users interface {
	Me(ctx context.Context) (*notionapi.User, error)
}

// Client groups the services. Tests substitute fakes per field.
type Client struct {
	Blocks    Blocks
	Pages     Pages
	Databases Databases
	Users     Users
}

// DefaultTimeout bounds one HTTP request.
const DefaultTimeout = 30 * time.Second

// NewClient returns a client authenticated with an integration token.
func NewClient(token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := notionapi.NewClient(notionapi.Token(token), notionapi.WithHTTPClient(&http.Client{Timeout: timeout}))
	return &Client{
		Blocks:    c.Block,
		Pages:     c.Page,
		Databases: c.Database,
		Users:     c.User,
	}
}
