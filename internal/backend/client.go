// Package backend предоставляет клиент REST API бэкенда службы доставки.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/mmeshcher/shipping-admin/internal/model"
)

const defaultTimeout = 15 * time.Second

// Client инкапсулирует HTTP-взаимодействие с бэкендом.
// Идемпотентные запросы повторяются при сетевых ошибках и ответах 5xx/429,
// изменяющие запросы отправляются ровно один раз.
type Client struct {
	baseURL string
	reads   *retryablehttp.Client
	writes  *retryablehttp.Client
}

// Option настраивает клиент.
type Option func(*options)

type options struct {
	retryMax int
	timeout  time.Duration
	logger   *zap.Logger
}

// WithRetryMax задаёт число повторов идемпотентных запросов.
func WithRetryMax(n int) Option {
	return func(o *options) { o.retryMax = n }
}

// WithTimeout задаёт таймаут одного HTTP-запроса.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithLogger направляет журнал повторов в zap.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// NewClient создаёт клиент бэкенда по указанному адресу.
func NewClient(baseURL string, opts ...Option) *Client {
	o := options{retryMax: 2, timeout: defaultTimeout}
	for _, opt := range opts {
		opt(&o)
	}

	base := strings.TrimRight(baseURL, "/")
	if base != "" && !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	return &Client{
		baseURL: base,
		reads:   newRetryable(o, o.retryMax),
		writes:  newRetryable(o, 0),
	}
}

func newRetryable(o options, retryMax int) *retryablehttp.Client {
	c := retryablehttp.NewClient()
	c.RetryMax = retryMax
	c.RetryWaitMin = 200 * time.Millisecond
	c.RetryWaitMax = 2 * time.Second
	c.HTTPClient.Timeout = o.timeout
	// После исчерпания повторов нужен сам ответ, чтобы разобрать ошибку сервера.
	c.ErrorHandler = retryablehttp.PassthroughErrorHandler
	if o.logger != nil {
		c.Logger = leveledLogger{o.logger.Sugar()}
	} else {
		c.Logger = nil
	}
	return c
}

// LoginResponse описывает ответ бэкенда на вход пользователя.
type LoginResponse struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	FullName     string `json:"fullName"`
	Token        string `json:"token"`
	ExpiresIn    int64  `json:"expiresIn"`
	MerchantName string `json:"merchantName,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login выполняет вход пользователя и возвращает выданный бэкендом токен.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	var res LoginResponse
	err := c.do(ctx, "", http.MethodPost, "/api/Auth/login", nil, loginRequest{Email: email, Password: password}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// WithToken возвращает клиент, действующий от имени владельца токена.
func (c *Client) WithToken(token string) *UserClient {
	return &UserClient{client: c, token: token}
}

// UserClient выполняет запросы с токеном пользователя.
type UserClient struct {
	client *Client
	token  string
}

// ListOrders возвращает все заказы.
func (u *UserClient) ListOrders(ctx context.Context) ([]model.Order, error) {
	return u.listOrders(ctx, "/api/Order", nil)
}

// ListOrdersByMerchant возвращает заказы продавца.
func (u *UserClient) ListOrdersByMerchant(ctx context.Context, merchantID string) ([]model.Order, error) {
	return u.listOrders(ctx, "/api/Order/GetAllOrdersByMerchantId", url.Values{"merchantId": {merchantID}})
}

// ListOrdersByCourier возвращает заказы курьера.
func (u *UserClient) ListOrdersByCourier(ctx context.Context, courierID string) ([]model.Order, error) {
	return u.listOrders(ctx, "/api/Order/GetAllOrdersByCourierId", url.Values{"courierId": {courierID}})
}

func (u *UserClient) listOrders(ctx context.Context, path string, query url.Values) ([]model.Order, error) {
	var raw json.RawMessage
	if err := u.client.do(ctx, u.token, http.MethodGet, path, query, nil, &raw); err != nil {
		return nil, err
	}
	return decodeOrders(raw)
}

// decodeOrders принимает как массив заказов, так и страницу вида {"items": [...]}.
func decodeOrders(raw json.RawMessage) ([]model.Order, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []model.Order{}, nil
	}

	if raw[0] == '[' {
		var orders []model.Order
		if err := json.Unmarshal(raw, &orders); err != nil {
			return nil, fmt.Errorf("decode orders: %w", err)
		}
		return orders, nil
	}

	var page struct {
		Items []model.Order `json:"items"`
	}
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, fmt.Errorf("decode orders page: %w", err)
	}
	if page.Items == nil {
		page.Items = []model.Order{}
	}
	return page.Items, nil
}

// CreateOrder создаёт заказ.
func (u *UserClient) CreateOrder(ctx context.Context, order model.Order) (*model.Order, error) {
	var created model.Order
	if err := u.client.do(ctx, u.token, http.MethodPost, "/api/Order", nil, order, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// GetOrderForEdit возвращает заказ в виде, пригодном для формы редактирования.
func (u *UserClient) GetOrderForEdit(ctx context.Context, orderID int64) (*model.Order, error) {
	var o model.Order
	path := "/api/Order/GetOrderForEdit/" + strconv.FormatInt(orderID, 10)
	if err := u.client.do(ctx, u.token, http.MethodGet, path, nil, nil, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// UpdateOrder сохраняет изменённый заказ целиком.
func (u *UserClient) UpdateOrder(ctx context.Context, orderID int64, order model.Order) error {
	order.ID = orderID
	return u.client.do(ctx, u.token, http.MethodPut, "/api/Order/"+strconv.FormatInt(orderID, 10), nil, order, nil)
}

// UpdateOrderStatus переводит заказ в новый статус.
func (u *UserClient) UpdateOrderStatus(ctx context.Context, orderID int64, status model.OrderStatus) error {
	path := "/api/Order/UpdateStatus/" + strconv.FormatInt(orderID, 10)
	query := url.Values{"status": {strconv.Itoa(int(status))}}
	return u.client.do(ctx, u.token, http.MethodPost, path, query, nil, nil)
}

// AssignOrderToCourier назначает курьера на заказ.
func (u *UserClient) AssignOrderToCourier(ctx context.Context, orderID int64, courierID string) error {
	path := "/api/Order/AssignOrderToCourier/" + strconv.FormatInt(orderID, 10) + "/" + url.PathEscape(courierID)
	return u.client.do(ctx, u.token, http.MethodPost, path, nil, nil, nil)
}

// DeleteOrder удаляет заказ.
func (u *UserClient) DeleteOrder(ctx context.Context, orderID int64) error {
	return u.client.do(ctx, u.token, http.MethodDelete, "/api/Order/"+strconv.FormatInt(orderID, 10), nil, nil, nil)
}

// ListCouriersByBranch возвращает курьеров филиала.
func (u *UserClient) ListCouriersByBranch(ctx context.Context, branchID int64) ([]model.Courier, error) {
	var couriers []model.Courier
	query := url.Values{"branchId": {strconv.FormatInt(branchID, 10)}}
	if err := u.client.do(ctx, u.token, http.MethodGet, "/api/Courier/GetCouriersByBranch", query, nil, &couriers); err != nil {
		return nil, err
	}
	return couriers, nil
}

// ListCouriersByRegion возвращает курьеров региона.
func (u *UserClient) ListCouriersByRegion(ctx context.Context, regionID int64) ([]model.Courier, error) {
	var couriers []model.Courier
	query := url.Values{"RegionId": {strconv.FormatInt(regionID, 10)}}
	if err := u.client.do(ctx, u.token, http.MethodGet, "/api/Courier/GetCouriersByRegion", query, nil, &couriers); err != nil {
		return nil, err
	}
	return couriers, nil
}

// GetCurrentUserPermissions возвращает ключи доступа владельца токена.
func (u *UserClient) GetCurrentUserPermissions(ctx context.Context) ([]string, error) {
	var perms []string
	if err := u.client.do(ctx, u.token, http.MethodGet, "/api/Groups/GetCurrentUserPermissions", nil, nil, &perms); err != nil {
		return nil, err
	}
	return perms, nil
}

func (c *Client) do(ctx context.Context, token, method, path string, query url.Values, in, out any) error {
	if c == nil || c.baseURL == "" {
		return fmt.Errorf("backend client not configured")
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	httpClient := c.writes
	if method == http.MethodGet {
		httpClient = c.reads
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeAPIError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

type leveledLogger struct {
	s *zap.SugaredLogger
}

func (l leveledLogger) Error(msg string, kv ...interface{}) { l.s.Errorw(msg, kv...) }
func (l leveledLogger) Info(msg string, kv ...interface{})  { l.s.Debugw(msg, kv...) }
func (l leveledLogger) Debug(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }
func (l leveledLogger) Warn(msg string, kv ...interface{})  { l.s.Warnw(msg, kv...) }
