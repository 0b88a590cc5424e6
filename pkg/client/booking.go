package client

import (
	"context"
	"fmt"
	"net/url"

	"smstudio/pkg/model"
	"smstudio/pkg/money"
)

type BookingClient struct {
	httpClient *HttpClient
}

func NewBookingClient(httpClient *HttpClient) *BookingClient {
	return &BookingClient{httpClient: httpClient}
}

func (c *BookingClient) Create(ctx context.Context, in model.BookingInput) (*Response, error) {
	return c.httpClient.POST(ctx, "/bookings", in)
}

func (c *BookingClient) Get(ctx context.Context, id int64) (*Response, error) {
	return c.httpClient.GET(ctx, fmt.Sprintf("/bookings/%d", id))
}

func (c *BookingClient) List(ctx context.Context, statuses string, limit int, offset int64) (*Response, error) {
	q := url.Values{}
	if statuses != "" {
		q.Set("status", statuses)
	}
	q.Set("limit", fmt.Sprintf("%d", limit))
	q.Set("offset", fmt.Sprintf("%d", offset))
	return c.httpClient.GET(ctx, "/bookings?"+q.Encode())
}

func (c *BookingClient) UpdateStatus(ctx context.Context, id int64, status, reason string) (*Response, error) {
	body := map[string]string{"status": status}
	if reason != "" {
		body["reason"] = reason
	}
	return c.httpClient.PATCH(ctx, fmt.Sprintf("/bookings/%d/status", id), body)
}

func (c *BookingClient) Reschedule(ctx context.Context, id int64, date, time, reason string) (*Response, error) {
	body := map[string]string{"booking_date": date, "booking_time": time}
	if reason != "" {
		body["reason"] = reason
	}
	return c.httpClient.PATCH(ctx, fmt.Sprintf("/bookings/%d/reschedule", id), body)
}

func (c *BookingClient) MarkInProgress(ctx context.Context, id int64) (*Response, error) {
	return c.httpClient.POST(ctx, fmt.Sprintf("/bookings/%d/in-progress", id), map[string]any{})
}

func (c *BookingClient) MarkComplete(ctx context.Context, id int64) (*Response, error) {
	return c.httpClient.POST(ctx, fmt.Sprintf("/bookings/%d/complete", id), map[string]any{})
}

func (c *BookingClient) RecordPayment(ctx context.Context, id int64, amount money.Amount) (*Response, error) {
	return c.httpClient.POST(ctx, fmt.Sprintf("/bookings/%d/payment", id), map[string]any{"amount": amount})
}

func (c *BookingClient) Quote(ctx context.Context, offeringID string, useCollaboration bool) (*Response, error) {
	return c.httpClient.POST(ctx, "/bookings/quote", map[string]any{
		"offering_id":       offeringID,
		"use_collaboration": useCollaboration,
	})
}

type AvailabilityClient struct {
	httpClient *HttpClient
}

func NewAvailabilityClient(httpClient *HttpClient) *AvailabilityClient {
	return &AvailabilityClient{httpClient: httpClient}
}

func (c *AvailabilityClient) UpsertDay(ctx context.Context, muaID, date string, slots []string) (*Response, error) {
	return c.httpClient.POST(ctx, "/availability", map[string]any{
		"mua_id":         muaID,
		"available_date": date,
		"time_slots":     slots,
	})
}

func (c *AvailabilityClient) FreeSlots(ctx context.Context, muaID, date string) (*Response, error) {
	q := url.Values{}
	q.Set("muaId", muaID)
	q.Set("date", date)
	return c.httpClient.GET(ctx, "/availability/free?"+q.Encode())
}

func (c *AvailabilityClient) Check(ctx context.Context, muaID, date, time string) (*Response, error) {
	q := url.Values{}
	q.Set("muaId", muaID)
	q.Set("date", date)
	q.Set("time", time)
	return c.httpClient.GET(ctx, "/availability/check?"+q.Encode())
}
