package crm

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
)

// SearchCustomersByPhone returns every active customer whose contact
// records include the given E.164 phone number.
func (c *Client) SearchCustomersByPhone(ctx context.Context, phone string) ([]Customer, error) {
	q := url.Values{}
	q.Set("phone", phone)
	q.Set("active", "true")

	var list customerList
	if err := c.doRequest(ctx, "GET", "customers", q, nil, &list); err != nil {
		var nf *NotFoundError
		if errors.As(err, &nf) {
			return nil, nil
		}
		return nil, fmt.Errorf("SearchCustomersByPhone error: %w", err)
	}
	return list.Data, nil
}

// SearchCustomersByEmail returns every active customer with the given
// email on file.
func (c *Client) SearchCustomersByEmail(ctx context.Context, email string) ([]Customer, error) {
	q := url.Values{}
	q.Set("email", email)
	q.Set("active", "true")

	var list customerList
	if err := c.doRequest(ctx, "GET", "customers", q, nil, &list); err != nil {
		var nf *NotFoundError
		if errors.As(err, &nf) {
			return nil, nil
		}
		return nil, fmt.Errorf("SearchCustomersByEmail error: %w", err)
	}
	return list.Data, nil
}

// GetCustomer retrieves a single customer record by ID.
func (c *Client) GetCustomer(ctx context.Context, id int64) (*Customer, error) {
	endpoint := fmt.Sprintf("customers/%s", strconv.FormatInt(id, 10))
	var cust Customer
	if err := c.doRequest(ctx, "GET", endpoint, nil, nil, &cust); err != nil {
		return nil, fmt.Errorf("GetCustomer error: %w", err)
	}
	return &cust, nil
}
