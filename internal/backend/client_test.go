package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mmeshcher/shipping-admin/internal/model"
)

func TestListOrders_Array(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Fatalf("method = %s, want GET", r.Method)
		}
		if r.URL.Path != "/api/Order" {
			t.Fatalf("path = %s, want /api/Order", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tkn" {
			t.Fatalf("authorization = %q, want Bearer tkn", got)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":1,"status":"Pending","branch":"Cairo"},{"id":2,"status":4}]`))
	}))
	defer ts.Close()

	client := NewClient(ts.URL).WithToken("tkn")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	orders, err := client.ListOrders(ctx)
	if err != nil {
		t.Fatalf("ListOrders error: %v", err)
	}
	if len(orders) != 2 {
		t.Fatalf("len(orders) = %d, want 2", len(orders))
	}
	if orders[0].Status != model.StatusPending || orders[0].Branch.Name != "Cairo" {
		t.Fatalf("unexpected first order: %+v", orders[0])
	}
	if orders[1].Status != model.StatusDeliveredToCourier {
		t.Fatalf("status = %v, want DeliveredToCourier", orders[1].Status)
	}
}

func TestListOrdersByMerchant_PagedResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/Order/GetAllOrdersByMerchantId" {
			t.Fatalf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("merchantId"); got != "m-7" {
			t.Fatalf("merchantId = %q, want m-7", got)
		}
		_, _ = w.Write([]byte(`{"items":[{"id":5,"status":1}],"totalItems":1}`))
	}))
	defer ts.Close()

	orders, err := NewClient(ts.URL).WithToken("t").ListOrdersByMerchant(context.Background(), "m-7")
	if err != nil {
		t.Fatalf("ListOrdersByMerchant error: %v", err)
	}
	if len(orders) != 1 || orders[0].ID != 5 {
		t.Fatalf("unexpected orders: %+v", orders)
	}
}

func TestUpdateOrderStatus_Request(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/api/Order/UpdateStatus/42" {
			t.Fatalf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("status"); got != "2" {
			t.Fatalf("status = %q, want 2", got)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	err := NewClient(ts.URL).WithToken("t").UpdateOrderStatus(context.Background(), 42, model.StatusInProgress)
	if err != nil {
		t.Fatalf("UpdateOrderStatus error: %v", err)
	}
}

func TestAssignOrderToCourier_NotRetried(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != "/api/Order/AssignOrderToCourier/9/c-1" {
			t.Fatalf("path = %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	err := NewClient(ts.URL, WithRetryMax(3)).WithToken("t").AssignOrderToCourier(context.Background(), 9, "c-1")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", apiErr.StatusCode)
	}
	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1", calls.Load())
	}
}

func TestListCouriersByBranch_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		if got := r.URL.Query().Get("branchId"); got != "3" {
			t.Fatalf("branchId = %q, want 3", got)
		}
		_ = json.NewEncoder(w).Encode([]map[string]string{{"Id": "c-9", "fullName": "Hany", "branchName": "Giza"}})
	}))
	defer ts.Close()

	couriers, err := NewClient(ts.URL, WithRetryMax(2)).WithToken("t").ListCouriersByBranch(context.Background(), 3)
	if err != nil {
		t.Fatalf("ListCouriersByBranch error: %v", err)
	}
	if len(couriers) != 1 || couriers[0].ID != "c-9" {
		t.Fatalf("unexpected couriers: %+v", couriers)
	}
	if calls.Load() != 2 {
		t.Fatalf("calls = %d, want 2", calls.Load())
	}
}

func TestAPIError_FieldErrors(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"title":"One or more validation errors occurred.","errors":{"CustomerName":["Name is required"],"Branch":["Branch is required"]}}`))
	}))
	defer ts.Close()

	_, err := NewClient(ts.URL).WithToken("t").CreateOrder(context.Background(), model.Order{})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if len(apiErr.FieldErrors) != 2 || apiErr.FieldErrors[0] != "Branch is required" {
		t.Fatalf("unexpected field errors: %v", apiErr.FieldErrors)
	}
	if apiErr.Message != "" {
		t.Fatalf("message = %q, want empty", apiErr.Message)
	}
}

func TestAPIError_Message(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Order 5 was not found"}`))
	}))
	defer ts.Close()

	err := NewClient(ts.URL).WithToken("t").DeleteOrder(context.Background(), 5)

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusNotFound || apiErr.Message != "Order 5 was not found" {
		t.Fatalf("unexpected error: %+v", apiErr)
	}
}

func TestLogin(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/Auth/login" {
			t.Fatalf("path = %s", r.URL.Path)
		}
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if req.Email != "a@b.c" || req.Password != "secret" {
			t.Fatalf("unexpected credentials: %+v", req)
		}
		_, _ = w.Write([]byte(`{"id":"u-1","email":"a@b.c","fullName":"Sara","token":"jwt","expiresIn":3600}`))
	}))
	defer ts.Close()

	res, err := NewClient(ts.URL).Login(context.Background(), "a@b.c", "secret")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}
	if res.Token != "jwt" || res.ID != "u-1" || res.ExpiresIn != 3600 {
		t.Fatalf("unexpected response: %+v", res)
	}
}

func TestClientNotConfigured(t *testing.T) {
	_, err := NewClient("").WithToken("t").ListOrders(context.Background())
	if err == nil {
		t.Fatalf("expected error for unconfigured client")
	}
}

func TestOrderEditRequests(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/Order/GetOrderForEdit/12":
			_, _ = w.Write([]byte(`{"merchantId":"m-1","products":[{"name":"Lamp","weight":1,"quantity":2,"price":5}]}`))
		case r.Method == http.MethodPut && r.URL.Path == "/api/Order/12":
			var body model.Order
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body.ID != 12 || body.MerchantID != "m-1" {
				t.Fatalf("unexpected body: %+v", body)
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer ts.Close()

	client := NewClient(ts.URL).WithToken("t")

	o, err := client.GetOrderForEdit(context.Background(), 12)
	if err != nil {
		t.Fatalf("GetOrderForEdit error: %v", err)
	}
	if len(o.Products) != 1 || o.Products[0].Name != "Lamp" {
		t.Fatalf("unexpected order: %+v", o)
	}

	if err := client.UpdateOrder(context.Background(), 12, *o); err != nil {
		t.Fatalf("UpdateOrder error: %v", err)
	}
}
