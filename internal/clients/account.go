package clients

import (
	"context"
	"fmt"
	"time"
)

// AccountClient talks to the account service.
type AccountClient struct {
	getter textGetter
}

// NewAccountClient returns a client for the account service at baseURL.
func NewAccountClient(baseURL string, timeout time.Duration) *AccountClient {
	return &AccountClient{getter: newTextGetter(baseURL, timeout)}
}

// GetAccount fetches GET /accounts/{accountID}.
func (c *AccountClient) GetAccount(ctx context.Context, accountID int64) (string, error) {
	return c.getter.get(ctx, fmt.Sprintf("/accounts/%d", accountID))
}

// GetAddress fetches GET /accounts/{accountID}/addresses/{addressID}.
func (c *AccountClient) GetAddress(ctx context.Context, accountID, addressID int64) (string, error) {
	return c.getter.get(ctx, fmt.Sprintf("/accounts/%d/addresses/%d", accountID, addressID))
}
