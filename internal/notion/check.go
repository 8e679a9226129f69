package notion

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"

	"notionhelper/internal/types"
)

// Check is the outcome of one connection probe.
type Check struct {
	Name   string
	Detail string
	Err    error
}

// OK reports whether the probe succeeded.
func (c Check) OK() bool { return c.Err == nil }

// TestConnection verifies the token with users.me, then that the project
// database and the daily log page are readable. Empty IDs are skipped.
func TestConnection(ctx context.Context, c *Client, databaseID, dailyLogPageID string) []Check {
	var checks []Check

	me, err := c.Users.Me(ctx)
	if err != nil {
		return append(checks, Check{Name: "notion token", Err: types.Connectivity("notion", "users.me", err)})
	}
	checks = append(checks, Check{Name: "notion token", Detail: fmt.Sprintf("connected as %s", me.Name)})

	if databaseID != "" {
		db, err := c.Databases.Get(ctx, notionapi.DatabaseID(databaseID))
		if err != nil {
			checks = append(checks, Check{Name: "project database", Err: types.Connectivity("notion", "get database", err)})
		} else {
			checks = append(checks, Check{Name: "project database", Detail: plainText(db.Title)})
		}
	}
	if dailyLogPageID != "" {
		page, err := c.Pages.Get(ctx, notionapi.PageID(dailyLogPageID))
		if err != nil {
			checks = append(checks, Check{Name: "daily log page", Err: types.Connectivity("notion", "get page", err)})
		} else {
			checks = append(checks, Check{Name: "daily log page", Detail: pageTitle(*page)})
		}
	}
	return checks
}
