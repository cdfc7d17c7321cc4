package httpapi

import (
	"context"
	"log/slog"

	"github.com/cockroachdb/errors"

	"github.com/way7creation/catalogx"
)

const availabilityPath = "/api/availability"

// Availability is the volatile per-product data resolved by the
// enrichment endpoint.
type Availability struct {
	Quantity     int    `json:"quantity"`
	DeliveryDate string `json:"delivery_date,omitempty"`
	DeliveryText string `json:"delivery_text,omitempty"`
}

// ApplyAvailability receives resolved availability rows keyed by product
// id and is expected to update the presentation out-of-band.
type ApplyAvailability func(rows map[int64]Availability)

// AvailabilityClient resolves stock and delivery data for rendered rows.
// It implements catalogx.AvailabilityLoader.
type AvailabilityClient struct {
	client *Client
	cityID string
	apply  ApplyAvailability
	log    *slog.Logger
}

// NewAvailabilityClient creates a loader over the given API client.
// apply may be nil when no presentation update is wanted.
func NewAvailabilityClient(client *Client, cityID string, apply ApplyAvailability) *AvailabilityClient {
	return &AvailabilityClient{
		client: client,
		cityID: cityID,
		apply:  apply,
		log:    slog.Default(),
	}
}

type availabilityRequest struct {
	ProductIDs []int64 `json:"product_ids"`
	CityID     string  `json:"city_id,omitempty"`
}

type availabilityResponse struct {
	Success bool `json:"success"`
	Data    *struct {
		Availability map[int64]Availability `json:"availability"`
	} `json:"data"`
}

// Enrich implements catalogx.AvailabilityLoader. Empty id lists are
// skipped without a request.
func (a *AvailabilityClient) Enrich(ctx context.Context, productIDs []int64) error {
	if len(productIDs) == 0 {
		return nil
	}

	var resp availabilityResponse
	err := a.client.postJSON(ctx, availabilityPath, availabilityRequest{
		ProductIDs: productIDs,
		CityID:     a.cityID,
	}, &resp)
	if err != nil {
		return err
	}
	if !resp.Success || resp.Data == nil {
		return errors.WithSecondaryError(
			catalogx.ErrProtocol,
			errors.New("availability response reported failure"),
		)
	}

	a.log.Debug("availability resolved", "requested", len(productIDs), "resolved", len(resp.Data.Availability))
	if a.apply != nil {
		a.apply(resp.Data.Availability)
	}
	return nil
}
