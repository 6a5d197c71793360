package printful

import "context"

// ShippingRates quotes shipping for a set of variants (v1 POST shipping/rates).
func (c *Client) ShippingRates(ctx context.Context, rr RateRequest) ([]ShippingRate, error) {
	var env v1Envelope[[]ShippingRate]
	if err := c.post(ctx, "shipping/rates", rr, &env); err != nil {
		return nil, err
	}
	return env.Result, nil
}
