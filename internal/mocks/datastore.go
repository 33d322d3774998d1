package mocks

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"pix-service/internal/payload"
)

// Datastore imitates the PostgREST sales endpoint of Supabase.
type Datastore struct {
	mu         sync.Mutex
	sales      map[string]string
	patches    int
	FailWrites bool
}

func NewDatastore(saleIDs ...string) *Datastore {
	d := &Datastore{sales: make(map[string]string)}
	for _, id := range saleIDs {
		d.sales[id] = "pending"
	}
	return d
}

func (d *Datastore) Register(mux *http.ServeMux) {
	mux.HandleFunc("PATCH /rest/v1/sales", d.patchSale)
}

func (d *Datastore) Status(id string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sales[id]
}

func (d *Datastore) Patches() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.patches
}

func (d *Datastore) patchSale(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("apikey") == "" {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Message: "No API key found in request", Status: http.StatusUnauthorized})
		return
	}

	id, ok := strings.CutPrefix(r.URL.Query().Get("id"), "eq.")
	if !ok || id == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: "missing id filter", Status: http.StatusBadRequest})
		return
	}

	var update payload.StatusUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: "invalid body", Status: http.StatusBadRequest})
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.patches++

	if d.FailWrites {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Message: "service unavailable", Status: http.StatusServiceUnavailable})
		return
	}

	if _, exists := d.sales[id]; !exists {
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	d.sales[id] = string(update.PaymentStatus)
	writeJSON(w, http.StatusOK, []map[string]string{{"id": id, "payment_status": d.sales[id]}})
}
