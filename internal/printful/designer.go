package printful

import (
	"context"
	"fmt"
	"net/url"

	"printful-bridge/internal/model"
)

// ProductTemplate fetches a saved designer template (v1 product-templates/{id}).
func (c *Client) ProductTemplate(ctx context.Context, templateID int64) (*ProductTemplate, error) {
	var env v1Envelope[ProductTemplate]
	if err := c.get(ctx, fmt.Sprintf("product-templates/%d", templateID), &env); err != nil {
		return nil, err
	}
	return &env.Result, nil
}

// ProductTemplateByExternalID looks a template up by the id the storefront assigned
// when the designer session was opened.
func (c *Client) ProductTemplateByExternalID(ctx context.Context, externalID string) (*ProductTemplate, error) {
	var env v1Envelope[ProductTemplate]
	if err := c.get(ctx, "product-templates/@"+url.PathEscape(externalID), &env); err != nil {
		return nil, err
	}
	return &env.Result, nil
}

// EmbeddedDesignerNonce opens an embedded-designer session.
func (c *Client) EmbeddedDesignerNonce(ctx context.Context, nr NonceRequest) (string, error) {
	var env v1Envelope[nonceResult]
	if err := c.post(ctx, "embedded-designer/nonces", nr, &env); err != nil {
		return "", err
	}
	if env.Result.Nonce.Nonce == "" {
		return "", model.NewUpstreamError("Printful", fmt.Errorf("nonce missing from response"))
	}
	return env.Result.Nonce.Nonce, nil
}
