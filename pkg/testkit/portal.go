// Package testkit provides a fake portal backend for end-to-end tests: the
// REST surface the gateway calls plus the websocket push channel.
//
//	p := testkit.NewPortal(t)
//	p.AddAccount(testkit.Account{Identity: ravi, Password: "pw", Token: "tok-ravi"})
//	a := app.New(app.Options{APIBaseURL: p.APIURL(), EventsURL: p.EventsURL()})
//	...
//	p.Push("tok-ravi", event.NewOrder, map[string]any{"order": o})
package testkit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/shashiranjanraj/aquaportal/pkg/event"
	"github.com/shashiranjanraj/aquaportal/pkg/orders"
	"github.com/shashiranjanraj/aquaportal/pkg/session"
)

// Account is one login the portal accepts.
type Account struct {
	Identity session.Identity
	Password string
	Token    string
}

// Portal is an in-memory backend. All methods are safe for concurrent use.
type Portal struct {
	srv      *httptest.Server
	upgrader websocket.Upgrader

	mu       sync.Mutex
	accounts []Account
	orders   []orders.Order
	revoked  map[string]bool
	conns    map[string][]*websocket.Conn
	frames   []event.Event
	calls    map[string]int
}

// NewPortal starts the backend; it stops with the test.
func NewPortal(t *testing.T) *Portal {
	t.Helper()
	p := &Portal{
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		revoked:  make(map[string]bool),
		conns:    make(map[string][]*websocket.Conn),
		calls:    make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/", p.serveREST)
	mux.HandleFunc("/ws", p.serveWS)
	p.srv = httptest.NewServer(mux)

	t.Cleanup(func() {
		p.mu.Lock()
		for _, cs := range p.conns {
			for _, c := range cs {
				c.Close()
			}
		}
		p.mu.Unlock()
		p.srv.Close()
	})
	return p
}

func (p *Portal) APIURL() string    { return p.srv.URL + "/api" }
func (p *Portal) EventsURL() string { return "ws" + strings.TrimPrefix(p.srv.URL, "http") + "/ws" }

func (p *Portal) AddAccount(a Account) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.accounts = append(p.accounts, a)
}

// AddOrder appends o to the backend's order table.
func (p *Portal) AddOrder(o orders.Order) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.orders = append(p.orders, o)
}

// Order returns the backend's copy of id.
func (p *Portal) Order(id string) (orders.Order, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, o := range p.orders {
		if o.ID == id {
			return o, true
		}
	}
	return orders.Order{}, false
}

// Revoke makes token fail every later authenticated call.
func (p *Portal) Revoke(token string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.revoked[token] = true
}

// Calls counts requests by "METHOD /path" (path without the /api prefix).
func (p *Portal) Calls(key string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[key]
}

// Connected reports how many push connections token currently holds.
func (p *Portal) Connected(token string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.conns[token])
}

// Frames returns every client frame received so far.
func (p *Portal) Frames() []event.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]event.Event(nil), p.frames...)
}

// Push sends an event to every connection opened with token.
func (p *Portal) Push(token, name string, data any) {
	raw, _ := json.Marshal(data)
	frame, _ := json.Marshal(event.Event{Name: name, Data: raw})

	p.mu.Lock()
	conns := append([]*websocket.Conn(nil), p.conns[token]...)
	p.mu.Unlock()

	for _, c := range conns {
		_ = c.WriteMessage(websocket.TextMessage, frame)
	}
}

// ─── REST ────────────────────────────────────────────────────────────────────

func (p *Portal) serveREST(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api")

	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls[r.Method+" "+path]++

	if r.Method == http.MethodPost && path == "/auth/login" {
		p.login(w, r)
		return
	}

	acct, ok := p.caller(r)
	if !ok {
		reply(w, http.StatusUnauthorized, map[string]string{"message": "Invalid token"})
		return
	}
	id := path[strings.LastIndex(path, "/")+1:]

	switch {
	case r.Method == http.MethodGet && path == "/auth":
		reply(w, http.StatusOK, acct.Identity)
	case r.Method == http.MethodGet && path == "/orders":
		reply(w, http.StatusOK, map[string]any{"orders": p.filter(func(o orders.Order) bool { return o.User.ID == acct.Identity.ID })})
	case r.Method == http.MethodDelete && strings.HasPrefix(path, "/orders/"):
		p.set(id, orders.StatusCancelled, "")
		reply(w, http.StatusOK, map[string]string{"message": "Order cancelled"})
	case r.Method == http.MethodGet && path == "/suppliers/orders":
		me := acct.Identity.ID
		reply(w, http.StatusOK, map[string]any{"orders": p.filter(func(o orders.Order) bool {
			return o.Status == orders.StatusPaid || o.SupplierID() == me
		})})
	case r.Method == http.MethodPost && strings.HasPrefix(path, "/suppliers/respond/"):
		var body struct {
			Action string `json:"action"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Action == string(orders.ActionAccept) {
			p.set(id, orders.StatusAccepted, acct.Identity.ID)
		} else {
			p.set(id, orders.StatusRejected, "")
		}
		reply(w, http.StatusOK, map[string]string{"message": "ok"})
	case r.Method == http.MethodPut && strings.HasPrefix(path, "/suppliers/deliver/"):
		p.set(id, orders.StatusDelivered, "")
		reply(w, http.StatusOK, map[string]string{"message": "ok"})
	case r.Method == http.MethodGet && path == "/admin/users":
		users := make([]session.Identity, 0, len(p.accounts))
		for _, a := range p.accounts {
			users = append(users, a.Identity)
		}
		reply(w, http.StatusOK, users)
	case r.Method == http.MethodGet && path == "/admin/orders":
		reply(w, http.StatusOK, p.orders)
	default:
		reply(w, http.StatusNotFound, map[string]string{"message": "Not found"})
	}
}

func (p *Portal) login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	for _, a := range p.accounts {
		if a.Identity.Email == body.Email && a.Password == body.Password {
			reply(w, http.StatusOK, map[string]any{
				"token": a.Token,
				"_id":   a.Identity.ID,
				"name":  a.Identity.Name,
				"email": a.Identity.Email,
				"role":  a.Identity.Role,
			})
			return
		}
	}
	reply(w, http.StatusUnauthorized, map[string]string{"message": "Invalid credentials"})
}

// caller resolves the bearer token. Callers hold mu.
func (p *Portal) caller(r *http.Request) (Account, bool) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	if token == "" || p.revoked[token] {
		return Account{}, false
	}
	for _, a := range p.accounts {
		if a.Token == token {
			return a, true
		}
	}
	return Account{}, false
}

func (p *Portal) filter(keep func(orders.Order) bool) []orders.Order {
	out := []orders.Order{}
	for _, o := range p.orders {
		if keep(o) {
			out = append(out, o)
		}
	}
	return out
}

func (p *Portal) set(id string, st orders.Status, supplier string) {
	for i := range p.orders {
		if p.orders[i].ID != id {
			continue
		}
		p.orders[i].Status = st
		if supplier != "" {
			p.orders[i].Supplier = &orders.Party{ID: supplier}
		}
	}
}

func reply(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// ─── Push channel ────────────────────────────────────────────────────────────

func (p *Portal) serveWS(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	acct, ok := p.caller(r)
	p.mu.Unlock()
	if !ok {
		http.Error(w, "Authentication error", http.StatusUnauthorized)
		return
	}

	conn, err := p.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	p.mu.Lock()
	p.conns[acct.Token] = append(p.conns[acct.Token], conn)
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		cs := p.conns[acct.Token]
		for i, c := range cs {
			if c == conn {
				p.conns[acct.Token] = append(cs[:i], cs[i+1:]...)
				break
			}
		}
		p.mu.Unlock()
		conn.Close()
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var ev event.Event
		if json.Unmarshal(msg, &ev) == nil {
			p.mu.Lock()
			p.frames = append(p.frames, ev)
			p.mu.Unlock()
		}
	}
}
