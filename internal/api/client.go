// Package api is the authenticated HTTP client for the expensely REST
// API. It attaches the bearer token, maps failures onto the error
// taxonomy, and forces session expiry on authorization failures.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dpereira/expensely/internal/expense"
	"github.com/dpereira/expensely/internal/session"
	"github.com/dpereira/expensely/internal/user"
)

// Session is the slice of the session manager the client needs: the
// current token, and a way to force expiry on an authorization failure.
type Session interface {
	Token() (string, bool)
	ForceExpire()
}

type Client struct {
	baseURL string
	client  *http.Client
	sess    Session
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Bind attaches the session after construction. The session manager
// and the client reference each other, so one side binds late.
func (c *Client) Bind(sess Session) {
	c.sess = sess
}

type RegisterParams struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
}

// call describes one operation for error reporting: its name and the
// generic fallback message used when the server provides none.
type call struct {
	op       string
	fallback string

	// unauthed marks register/login, where 401/403 means rejected
	// credentials rather than an expired session.
	unauthed bool
}

func (c *Client) Register(ctx context.Context, p RegisterParams) error {
	body := map[string]string{
		"username":        p.Username,
		"email":           p.Email,
		"password":        p.Password,
		"confirmPassword": p.ConfirmPassword,
	}

	return c.postJSON(ctx, call{op: "register", fallback: "Registration failed", unauthed: true},
		"/auth/register", body, nil)
}

type loginResponse struct {
	Token    string    `json:"token"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
	Role     user.Role `json:"role"`
}

func (c *Client) Login(ctx context.Context, email, password string) (session.LoginResult, error) {
	body := map[string]string{"email": email, "password": password}

	var resp loginResponse
	err := c.postJSON(ctx, call{op: "login", fallback: "Login failed. Please try again.", unauthed: true},
		"/auth/login", body, &resp)
	if err != nil {
		return session.LoginResult{}, err
	}

	if resp.Token == "" {
		return session.LoginResult{}, &Error{
			Kind:    KindServer,
			Op:      "login",
			Message: "Authentication failed: no token received",
		}
	}

	return session.LoginResult{
		Token:    resp.Token,
		Username: resp.Username,
		Email:    resp.Email,
		Role:     resp.Role,
	}, nil
}

type currentUserResponse struct {
	Username string    `json:"username"`
	Email    string    `json:"email"`
	Role     user.Role `json:"role"`
}

func (c *Client) CurrentUser(ctx context.Context) (session.Identity, error) {
	var resp currentUserResponse

	err := c.getJSON(ctx, call{op: "current-user", fallback: "Session verification failed"},
		"/auth/current-user", &resp)
	if err != nil {
		return session.Identity{}, err
	}

	return session.Identity{
		Username: resp.Username,
		Email:    resp.Email,
		Role:     resp.Role,
	}, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.postJSON(ctx, call{op: "logout", fallback: "Logout failed"}, "/auth/logout", struct{}{}, nil)
}

type expensePayload struct {
	ID          uuid.UUID        `json:"id"`
	Title       string           `json:"title"`
	Amount      decimal.Decimal  `json:"amount"`
	Date        string           `json:"date"`
	Category    expense.Category `json:"category"`
	Description string           `json:"description,omitempty"`
	ImagePath   string           `json:"imagePath,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   *time.Time       `json:"updated_at,omitempty"`
}

func (p expensePayload) toExpense() (*expense.Expense, error) {
	date, err := time.Parse(time.DateOnly, p.Date)
	if err != nil {
		return nil, fmt.Errorf("parsing expense date %q: %w", p.Date, err)
	}

	return &expense.Expense{
		ID:          p.ID,
		Title:       p.Title,
		Amount:      p.Amount,
		Date:        date,
		Category:    p.Category,
		Description: p.Description,
		ImagePath:   p.ImagePath,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}, nil
}

func toExpenses(payloads []expensePayload, cl call) ([]*expense.Expense, error) {
	items := make([]*expense.Expense, 0, len(payloads))

	for _, p := range payloads {
		e, err := p.toExpense()
		if err != nil {
			return nil, &Error{Kind: KindServer, Op: cl.op, Message: cl.fallback, err: err}
		}

		items = append(items, e)
	}

	return items, nil
}

func (c *Client) ListExpenses(ctx context.Context) ([]*expense.Expense, error) {
	var payloads []expensePayload

	err := c.getJSON(ctx, call{op: "fetch", fallback: "Failed to fetch expenses"}, "/expenses", &payloads)
	if err != nil {
		return nil, err
	}

	return toExpenses(payloads, call{op: "fetch", fallback: "Failed to fetch expenses"})
}

type draftPayload struct {
	Title       string           `json:"title"`
	Amount      decimal.Decimal  `json:"amount"`
	Date        string           `json:"date"`
	Category    expense.Category `json:"category"`
	Description string           `json:"description,omitempty"`
}

func draftFrom(title string, amount decimal.Decimal, date time.Time, cat expense.Category, desc string) draftPayload {
	return draftPayload{
		Title:       title,
		Amount:      amount,
		Date:        date.Format(time.DateOnly),
		Category:    cat,
		Description: desc,
	}
}

// CreateExpense sends the draft as the "expense" multipart part, plus
// an optional "image" file part, mirroring the server's create
// contract.
func (c *Client) CreateExpense(ctx context.Context, p expense.CreateParams, att *expense.Attachment) (*expense.Expense, error) {
	cl := call{op: "add", fallback: "Failed to add expense"}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	draft, err := json.Marshal(draftFrom(p.Title, p.Amount, p.Date, p.Category, p.Description))
	if err != nil {
		return nil, fmt.Errorf("encoding expense draft: %w", err)
	}

	if err := mw.WriteField("expense", string(draft)); err != nil {
		return nil, fmt.Errorf("writing expense part: %w", err)
	}

	if att != nil {
		part, err := mw.CreateFormFile("image", att.Filename)
		if err != nil {
			return nil, fmt.Errorf("creating image part: %w", err)
		}

		if _, err := io.Copy(part, att.Reader); err != nil {
			return nil, fmt.Errorf("writing image part: %w", err)
		}
	}

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart body: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/expenses", &buf)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", mw.FormDataContentType())

	var payload expensePayload
	if err := c.exec(req, cl, &payload); err != nil {
		return nil, err
	}

	created, err := payload.toExpense()
	if err != nil {
		return nil, &Error{Kind: KindServer, Op: cl.op, Message: cl.fallback, err: err}
	}

	return created, nil
}

func (c *Client) UpdateExpense(ctx context.Context, id uuid.UUID, p expense.UpdateParams) (*expense.Expense, error) {
	cl := call{op: "update", fallback: "Failed to update expense"}

	body, err := json.Marshal(draftFrom(p.Title, p.Amount, p.Date, p.Category, p.Description))
	if err != nil {
		return nil, fmt.Errorf("encoding expense update: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPut, "/expenses/"+id.String(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")

	var payload expensePayload
	if err := c.exec(req, cl, &payload); err != nil {
		return nil, err
	}

	updated, err := payload.toExpense()
	if err != nil {
		return nil, &Error{Kind: KindServer, Op: cl.op, Message: cl.fallback, err: err}
	}

	return updated, nil
}

func (c *Client) DeleteExpense(ctx context.Context, id uuid.UUID) error {
	cl := call{op: "delete", fallback: "Failed to delete expense"}

	req, err := c.newRequest(ctx, http.MethodDelete, "/expenses/"+id.String(), nil)
	if err != nil {
		return err
	}

	return c.exec(req, cl, nil)
}

// CategorySummary fetches the server-computed per-category totals.
// Callers treat it as a cross-check; local recomputation from the
// cache is canonical.
func (c *Client) CategorySummary(ctx context.Context) (map[expense.Category]decimal.Decimal, error) {
	var totals map[expense.Category]decimal.Decimal

	err := c.getJSON(ctx, call{op: "summary", fallback: "Failed to get summary"}, "/expenses/summary", &totals)
	if err != nil {
		return nil, err
	}

	return totals, nil
}

// DailyTotals fetches the server's per-date totals, keyed YYYY-MM-DD.
func (c *Client) DailyTotals(ctx context.Context) (map[string]decimal.Decimal, error) {
	var totals map[string]decimal.Decimal

	err := c.getJSON(ctx, call{op: "summary", fallback: "Failed to get expenses by date"}, "/expenses/by-date", &totals)
	if err != nil {
		return nil, err
	}

	return totals, nil
}

type userPayload struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
	Role     user.Role `json:"role"`
}

// ListUsers is admin-only.
func (c *Client) ListUsers(ctx context.Context) ([]*user.User, error) {
	var payloads []userPayload

	err := c.getJSON(ctx, call{op: "fetch", fallback: "Failed to fetch users"}, "/admin/users", &payloads)
	if err != nil {
		return nil, err
	}

	users := make([]*user.User, 0, len(payloads))
	for _, p := range payloads {
		users = append(users, &user.User{
			ID:       p.ID,
			Username: p.Username,
			Email:    p.Email,
			Role:     p.Role,
		})
	}

	return users, nil
}

// UpdateUserRole is admin-only.
func (c *Client) UpdateUserRole(ctx context.Context, userID uuid.UUID, role user.Role) error {
	cl := call{op: "update", fallback: "Failed to update role"}

	req, err := c.newRequest(ctx, http.MethodPut,
		"/admin/users/"+userID.String()+"/role?role="+string(role), nil)
	if err != nil {
		return err
	}

	return c.exec(req, cl, nil)
}

// UserExpenses is admin-only: another user's expenses, read-only.
func (c *Client) UserExpenses(ctx context.Context, userID uuid.UUID) ([]*expense.Expense, error) {
	cl := call{op: "fetch", fallback: "Failed to fetch expenses"}

	var payloads []expensePayload

	err := c.getJSON(ctx, cl, "/admin/expenses?userId="+userID.String(), &payloads)
	if err != nil {
		return nil, err
	}

	return toExpenses(payloads, cl)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	return req, nil
}

func (c *Client) getJSON(ctx context.Context, cl call, path string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}

	return c.exec(req, cl, out)
}

func (c *Client) postJSON(ctx context.Context, cl call, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request body: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(data))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	return c.exec(req, cl, out)
}

// exec runs the request, attaching the bearer token when one is
// present, and maps the outcome onto the error taxonomy. On 401/403
// from an authenticated call it forces session expiry exactly once and
// still propagates the error; callers never retry automatically.
func (c *Client) exec(req *http.Request, cl call, out any) error {
	if c.sess != nil {
		if token, ok := c.sess.Token(); ok {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return &Error{Kind: KindNetwork, Op: cl.op, Message: cl.fallback, err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &Error{Kind: KindNetwork, Op: cl.op, Message: cl.fallback, err: err}
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		if cl.unauthed {
			return &Error{
				Kind:    KindAuthentication,
				Op:      cl.op,
				Status:  resp.StatusCode,
				Message: serverMessage(body, "Invalid credentials"),
			}
		}

		if c.sess != nil {
			c.sess.ForceExpire()
		}

		return &Error{
			Kind:    KindAuthorization,
			Op:      cl.op,
			Status:  resp.StatusCode,
			Message: serverMessage(body, "Session expired. Please log in again."),
		}
	}

	if resp.StatusCode == http.StatusNotFound {
		return &Error{
			Kind:    KindNotFound,
			Op:      cl.op,
			Status:  resp.StatusCode,
			Message: serverMessage(body, cl.fallback),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{
			Kind:    KindServer,
			Op:      cl.op,
			Status:  resp.StatusCode,
			Message: serverMessage(body, cl.fallback),
		}
	}

	if out == nil {
		return nil
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &Error{Kind: KindServer, Op: cl.op, Message: cl.fallback, err: err}
	}

	return nil
}

// serverMessage extracts a human-readable message from an error body:
// a JSON {"message": ...} object, or a short plain-text body, else the
// fallback.
func serverMessage(body []byte, fallback string) string {
	var payload struct {
		Message string `json:"message"`
	}

	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}

	text := strings.TrimSpace(string(body))
	if text != "" && len(text) <= 200 && !strings.HasPrefix(text, "{") && !strings.HasPrefix(text, "<") {
		return text
	}

	return fallback
}
