// Package cli holds the HTTP client and local profile store behind the
// pbk command tree.
package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"pocketbank/internal/game"

	"github.com/google/uuid"
)

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) Register(ctx context.Context, username string) (game.User, error) {
	var out game.User
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/users",
		map[string]any{"username": username}, &out)
	return out, err
}

func (c *Client) GetUser(ctx context.Context, id int64) (game.User, error) {
	var out game.User
	err := c.jsonRequest(ctx, http.MethodGet, fmt.Sprintf("/v1/users/%d", id), nil, &out)
	return out, err
}

func (c *Client) ListMarket(ctx context.Context) ([]game.MarketListing, error) {
	var out struct {
		Products []game.MarketListing `json:"products"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/marketplace", nil, &out)
	return out.Products, err
}

func (c *Client) SellMarket(ctx context.Context, sellerID int64, name string, price int64, description string) (game.MarketListing, error) {
	var out game.MarketListing
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/marketplace", map[string]any{
		"seller_id":   sellerID,
		"name":        name,
		"price":       price,
		"description": description,
	}, &out)
	return out, err
}

func (c *Client) BuyMarket(ctx context.Context, buyerID, listingID int64) error {
	return c.jsonRequest(ctx, http.MethodPost,
		fmt.Sprintf("/v1/marketplace/%d/buy", listingID),
		map[string]any{"buyer_id": buyerID}, nil)
}

func (c *Client) ListEstate(ctx context.Context) ([]game.EstateListing, error) {
	var out struct {
		Properties []game.EstateListing `json:"properties"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/realestate", nil, &out)
	return out.Properties, err
}

func (c *Client) SellEstate(ctx context.Context, sellerID int64, title string, price int64, address string, rooms int32, area float64) (game.EstateListing, error) {
	var out game.EstateListing
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/realestate", map[string]any{
		"seller_id": sellerID,
		"title":     title,
		"price":     price,
		"address":   address,
		"rooms":     rooms,
		"area":      area,
	}, &out)
	return out, err
}

func (c *Client) BuyEstate(ctx context.Context, buyerID, listingID int64) error {
	return c.jsonRequest(ctx, http.MethodPost,
		fmt.Sprintf("/v1/realestate/%d/buy", listingID),
		map[string]any{"buyer_id": buyerID}, nil)
}

func (c *Client) ListDeposits(ctx context.Context, userID int64) ([]game.Deposit, error) {
	var out struct {
		Deposits []game.Deposit `json:"deposits"`
	}
	err := c.jsonRequest(ctx, http.MethodGet,
		fmt.Sprintf("/v1/deposits?user_id=%d", userID), nil, &out)
	return out.Deposits, err
}

func (c *Client) OpenDeposit(ctx context.Context, userID int64, name string, amount int64, rate float64, termMonths int32) (game.Deposit, error) {
	var out game.Deposit
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/deposits", map[string]any{
		"user_id":      userID,
		"deposit_name": name,
		"amount":       amount,
		"rate":         rate,
		"term_months":  termMonths,
	}, &out)
	return out, err
}

func (c *Client) ListTransactions(ctx context.Context, userID int64) ([]game.Transaction, error) {
	var out struct {
		Transactions []game.Transaction `json:"transactions"`
	}
	err := c.jsonRequest(ctx, http.MethodGet,
		fmt.Sprintf("/v1/users/%d/transactions", userID), nil, &out)
	return out.Transactions, err
}

func (c *Client) jsonRequest(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet {
		req.Header.Set("Idempotency-Key", uuid.NewString())
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return fmt.Errorf("%s", apiErr.Error)
		}
		return fmt.Errorf("server returned %s", resp.Status)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
