package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/retry"
)

// Catalog and design calls go through the retry policy.

func (c *Client) Templates(ctx context.Context) ([]Template, error) {
	return retry.Do(ctx, c.retry.Named("templates.list"), func(ctx context.Context) ([]Template, error) {
		var out templatesResponse
		if err := c.do(ctx, request{
			method:   http.MethodGet,
			path:     "/templates",
			out:      &out,
			fallback: "failed to fetch templates",
		}); err != nil {
			return nil, err
		}
		return out.Templates, nil
	})
}

// CreateDesign saves design and returns it as the backend stored it, with the
// template, metal and gemstone echoed from the request.
func (c *Client) CreateDesign(ctx context.Context, accessToken string, design RingDesign, name *string) (*SavedRingDesign, error) {
	if design.Template == nil || design.Metal == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "template and metal configuration are required")
	}
	if err := requireToken(accessToken); err != nil {
		return nil, err
	}

	body := createDesignRequest{
		TemplateID: design.Template.ID,
		Metal:      *design.Metal,
		Gemstone:   design.Gemstone,
		Name:       name,
	}

	return retry.Do(ctx, c.retry.Named("designs.create"), func(ctx context.Context) (*SavedRingDesign, error) {
		var out createDesignResponse
		if err := c.do(ctx, request{
			method:   http.MethodPost,
			path:     "/ring-designs",
			token:    accessToken,
			body:     body,
			out:      &out,
			fallback: "failed to create design",
		}); err != nil {
			return nil, err
		}
		saved := &SavedRingDesign{
			ID:     out.ID,
			UserID: out.UserID,
			Design: RingDesign{
				Template: design.Template,
				Metal:    design.Metal,
				Gemstone: design.Gemstone,
			},
			CreatedAt: out.CreatedAt,
			UpdatedAt: out.UpdatedAt,
		}
		if out.Name != nil && *out.Name != "" {
			saved.Name = out.Name
		}
		return saved, nil
	})
}

func (c *Client) ListDesigns(ctx context.Context, accessToken string) ([]SavedRingDesign, error) {
	if err := requireToken(accessToken); err != nil {
		return nil, err
	}
	return retry.Do(ctx, c.retry.Named("designs.list"), func(ctx context.Context) ([]SavedRingDesign, error) {
		var out listDesignsResponse
		if err := c.do(ctx, request{
			method:   http.MethodGet,
			path:     "/ring-designs",
			token:    accessToken,
			out:      &out,
			fallback: "failed to fetch designs",
		}); err != nil {
			return nil, err
		}
		return out.Designs, nil
	})
}

func (c *Client) GetDesign(ctx context.Context, accessToken, id string) (*SavedRingDesign, error) {
	if err := requireToken(accessToken); err != nil {
		return nil, err
	}
	if strings.TrimSpace(id) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "design id is required")
	}
	return retry.Do(ctx, c.retry.Named("designs.get"), func(ctx context.Context) (*SavedRingDesign, error) {
		var out SavedRingDesign
		if err := c.do(ctx, request{
			method:   http.MethodGet,
			path:     "/ring-designs/" + url.PathEscape(id),
			token:    accessToken,
			out:      &out,
			fallback: "failed to fetch design",
		}); err != nil {
			return nil, designNotFound(err)
		}
		return &out, nil
	})
}

func (c *Client) DeleteDesign(ctx context.Context, accessToken, id string) error {
	if err := requireToken(accessToken); err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "design id is required")
	}
	_, err := retry.Do(ctx, c.retry.Named("designs.delete"), func(ctx context.Context) (struct{}, error) {
		err := c.do(ctx, request{
			method:   http.MethodDelete,
			path:     "/ring-designs/" + url.PathEscape(id),
			token:    accessToken,
			fallback: "failed to delete design",
		})
		return struct{}{}, designNotFound(err)
	})
	return err
}

func requireToken(accessToken string) error {
	if strings.TrimSpace(accessToken) == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return nil
}

func designNotFound(err error) error {
	if typed := pkgerrors.As(err); typed != nil && typed.Status() == http.StatusNotFound {
		return pkgerrors.FromStatus(http.StatusNotFound, "design not found")
	}
	return err
}
