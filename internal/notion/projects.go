package notion

import (
	"context"
	"strings"

	"github.com/jomei/notionapi"

	"notionhelper/internal/logging"
	"notionhelper/internal/project"
	"notionhelper/internal/types"
)

// TitleProperty is the project database's title column.
const TitleProperty = "Name"

// ProjectDB reads and extends the project database.
type ProjectDB struct {
	Client     *Client
	DatabaseID string
}

// List returns every page of the database as a project whose Target is
// the page ID. Pages with an empty title are skipped.
func (d *ProjectDB) List(ctx context.Context) ([]types.Project, error) {
	var out []types.Project
	var cursor notionapi.Cursor
	for {
		resp, err := d.Client.Databases.Query(ctx, notionapi.DatabaseID(d.DatabaseID), &notionapi.DatabaseQueryRequest{
			StartCursor: cursor,
			PageSize:    pageSize,
		})
		if err != nil {
			return nil, types.Connectivity("notion", "query database", err)
		}
		for _, page := range resp.Results {
			name := strings.TrimSpace(pageTitle(page))
			if name == "" {
				continue
			}
			out = append(out, types.Project{
				Name:   name,
				Prefix: project.PrefixFromName(name),
				Target: string(page.ID),
			})
		}
		if !resp.HasMore || resp.NextCursor == "" {
			return out, nil
		}
		cursor = notionapi.Cursor(resp.NextCursor)
	}
}

// FindOrCreate returns the project titled name, creating its page when
// none exists.
func (d *ProjectDB) FindOrCreate(ctx context.Context, name string) (types.Project, error) {
	existing, err := d.List(ctx)
	if err != nil {
		return types.Project{}, err
	}
	for _, p := range existing {
		if p.Name == name {
			return p, nil
		}
	}

	page, err := d.Client.Pages.Create(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(d.DatabaseID),
		},
		Properties: notionapi.Properties{
			TitleProperty: notionapi.TitleProperty{Title: richText(name)},
		},
	})
	if err != nil {
		return types.Project{}, types.Connectivity("notion", "create page", err)
	}
	logging.Notion("created project page %q", name)
	return types.Project{Name: name, Prefix: project.PrefixFromName(name), Target: string(page.ID)}, nil
}

// pageTitle returns the text of the page's title property, whatever its
// column name.
func pageTitle(page notionapi.Page) string {
	for _, prop := range page.Properties {
		switch v := prop.(type) {
		case *notionapi.TitleProperty:
			return plainText(v.Title)
		case notionapi.TitleProperty:
			return plainText(v.Title)
		}
	}
	return ""
}
