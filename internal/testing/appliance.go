package testing

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// Credentials accepted by the fake appliance.
const (
	FakeUser     = "admin"
	FakePassword = "smartvm"
	FakeToken    = "fake-token"
)

// ActionFunc handles a posted action for one record. It may mutate rec and
// returns the result entry; a nil result becomes {"success": true}.
type ActionFunc func(f *FakeAppliance, rec, body map[string]any) map[string]any

// ReloadFunc runs on every GET of a record, before it is serialised.
// reloads counts the GETs of that record, starting at 1.
type ReloadFunc func(rec map[string]any, reloads int)

// FakeAppliance is an in-memory appliance REST API.
type FakeAppliance struct {
	server *httptest.Server

	mu          sync.Mutex
	collections map[string]*fakeCollection
	entrypoint  map[string]any
	options     map[string]map[string]any
	actions     map[string]ActionFunc
	reloads     map[string]ReloadFunc
	defaults    map[string]map[string]any
	failures    []int
	requests    []string
}

type fakeCollection struct {
	nextID  int
	order   []string
	records map[string]map[string]any
	reloads map[string]int
}

// NewFakeAppliance starts a fake appliance that is shut down with the test.
func NewFakeAppliance(t *testing.T) *FakeAppliance {
	t.Helper()
	f := &FakeAppliance{
		collections: make(map[string]*fakeCollection),
		options:     make(map[string]map[string]any),
		actions:     make(map[string]ActionFunc),
		reloads:     make(map[string]ReloadFunc),
		defaults:    make(map[string]map[string]any),
		entrypoint: map[string]any{
			"name":        "API",
			"description": "REST API",
			"version":     "2.4.0",
			"server_info": map[string]any{
				"version":   "5.8.0.17",
				"build":     "20170525183055_6317a22",
				"appliance": "EVM",
			},
			"product_info": map[string]any{
				"name":                 "ManageIQ",
				"name_full":            "ManageIQ",
				"copyright":            "Copyright (c) ManageIQ",
				"support_website":      "http://www.manageiq.org",
				"support_website_text": "ManageIQ.org",
			},
			"identity": map[string]any{
				"userid": FakeUser,
				"name":   "Administrator",
				"group":  "EvmGroup-super_administrator",
				"role":   "EvmRole-super_administrator",
				"tenant": "My Company",
				"groups": []any{"EvmGroup-super_administrator"},
			},
			"settings": map[string]any{"locale": "en"},
		},
	}
	f.registerDefaultActions()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api", f.handleEntrypoint)
	mux.HandleFunc("GET /api/{collection}", f.handleList)
	mux.HandleFunc("OPTIONS /api/{collection}", f.handleOptions)
	mux.HandleFunc("POST /api/{collection}", f.handleCollectionAction)
	mux.HandleFunc("GET /api/{collection}/{id}", f.handleGet)
	mux.HandleFunc("POST /api/{collection}/{id}", f.handleResourceAction)
	mux.HandleFunc("DELETE /api/{collection}/{id}", f.handleDelete)

	f.server = httptest.NewServer(f.authenticate(mux))
	t.Cleanup(f.server.Close)
	return f
}

// URL returns the base URL of the fake appliance.
func (f *FakeAppliance) URL() string {
	return f.server.URL
}

// Seed adds records to a collection and returns their ids.
func (f *FakeAppliance) Seed(collection string, records ...map[string]any) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(records))
	for _, rec := range records {
		ids = append(ids, f.insert(collection, rec))
	}
	return ids
}

// Record returns a copy of a stored record.
func (f *FakeAppliance) Record(collection, id string) (map[string]any, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.collections[collection]
	if !ok {
		return nil, false
	}
	rec, ok := c.records[id]
	if !ok {
		return nil, false
	}
	return copyMap(rec), true
}

// Len returns the number of records in a collection.
func (f *FakeAppliance) Len(collection string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.collections[collection]; ok {
		return len(c.order)
	}
	return 0
}

// Href returns the absolute href of a record.
func (f *FakeAppliance) Href(collection, id string) string {
	return f.server.URL + "/api/" + collection + "/" + id
}

// SetServerVersion changes server_info.version.
func (f *FakeAppliance) SetServerVersion(v string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entrypoint["server_info"].(map[string]any)["version"] = v
}

// SetOptions sets the OPTIONS answer of a collection.
func (f *FakeAppliance) SetOptions(collection string, body map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.options[collection] = body
}

// SetDefaults sets attributes merged into every record created in a
// collection.
func (f *FakeAppliance) SetDefaults(collection string, attrs map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.defaults[collection] = attrs
}

// OnAction overrides how an action is applied to records of a collection.
func (f *FakeAppliance) OnAction(collection, action string, fn ActionFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions[collection+"/"+action] = fn
}

// OnReload installs a hook that runs on every GET of a record.
func (f *FakeAppliance) OnReload(collection string, fn ReloadFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reloads[collection] = fn
}

// FailNext makes the next requests answer with the given status codes.
func (f *FakeAppliance) FailNext(statuses ...int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = append(f.failures, statuses...)
}

// Requests returns "METHOD path" for every request served so far.
func (f *FakeAppliance) Requests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

// Insert adds a record while the lock is already held; ActionFuncs use it
// to create follow-up records such as tasks.
func (f *FakeAppliance) Insert(collection string, rec map[string]any) map[string]any {
	id := f.insert(collection, rec)
	return f.collections[collection].records[id]
}

func (f *FakeAppliance) insert(collection string, rec map[string]any) string {
	c := f.collection(collection)
	c.nextID++
	id := strconv.Itoa(c.nextID)

	stored := copyMap(f.defaults[collection])
	for k, v := range rec {
		stored[k] = v
	}
	stored["id"] = id
	stored["href"] = f.Href(collection, id)

	c.records[id] = stored
	c.order = append(c.order, id)
	return id
}

func (f *FakeAppliance) collection(name string) *fakeCollection {
	c, ok := f.collections[name]
	if !ok {
		c = &fakeCollection{records: make(map[string]map[string]any), reloads: make(map[string]int)}
		f.collections[name] = c
	}
	return c
}

func (f *FakeAppliance) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.requests = append(f.requests, r.Method+" "+r.URL.Path)
		var status int
		if len(f.failures) > 0 {
			status, f.failures = f.failures[0], f.failures[1:]
		}
		f.mu.Unlock()

		if status != 0 {
			writeError(w, status, "server_error", "injected failure", "RuntimeError")
			return
		}

		user, pass, ok := r.BasicAuth()
		if !(ok && user == FakeUser && pass == FakePassword) && r.Header.Get("X-Auth-Token") != FakeToken {
			writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication failed", "")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (f *FakeAppliance) handleEntrypoint(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	body := copyMap(f.entrypoint)
	names := make([]string, 0, len(f.collections))
	for name := range f.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	colls := make([]any, 0, len(names))
	for _, name := range names {
		colls = append(colls, map[string]any{"name": name, "href": f.server.URL + "/api/" + name})
	}
	body["collections"] = colls
	writeJSON(w, http.StatusOK, body)
}

func (f *FakeAppliance) handleList(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	name := r.PathValue("collection")
	c := f.collection(name)
	conds := parseFilters(r.URL.Query()["filter[]"])

	resources := []any{}
	for _, id := range c.order {
		rec := c.records[id]
		if matchesAll(rec, conds) {
			resources = append(resources, copyMap(rec))
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"name":      name,
		"count":     len(c.order),
		"subcount":  len(resources),
		"resources": resources,
		"actions": []any{
			map[string]any{"name": "create", "method": "post"},
			map[string]any{"name": "delete", "method": "post"},
			map[string]any{"name": "edit", "method": "post"},
			map[string]any{"name": "query", "method": "post"},
		},
	})
}

func (f *FakeAppliance) handleOptions(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	body, ok := f.options[r.PathValue("collection")]
	if !ok {
		body = map[string]any{"attributes": []any{"id", "name"}}
	}
	writeJSON(w, http.StatusOK, body)
}

func (f *FakeAppliance) handleGet(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	name, id := r.PathValue("collection"), r.PathValue("id")
	rec, ok := f.lookup(name, id)
	if !ok {
		writeNotFound(w, name, id)
		return
	}
	c := f.collections[name]
	c.reloads[id]++
	if hook, ok := f.reloads[name]; ok {
		hook(rec, c.reloads[id])
	}
	writeJSON(w, http.StatusOK, copyMap(rec))
}

func (f *FakeAppliance) handleDelete(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	name, id := r.PathValue("collection"), r.PathValue("id")
	if _, ok := f.lookup(name, id); !ok {
		writeNotFound(w, name, id)
		return
	}
	f.remove(name, id)
	w.WriteHeader(http.StatusNoContent)
}

func (f *FakeAppliance) handleResourceAction(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	name, id := r.PathValue("collection"), r.PathValue("id")
	var payload struct {
		Action   string         `json:"action"`
		Resource map[string]any `json:"resource"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error(), "")
		return
	}

	rec, ok := f.lookup(name, id)
	if !ok {
		writeNotFound(w, name, id)
		return
	}
	writeJSON(w, http.StatusOK, f.apply(name, payload.Action, rec, payload.Resource))
}

func (f *FakeAppliance) handleCollectionAction(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	name := r.PathValue("collection")
	var payload struct {
		Action    string           `json:"action"`
		Resources []map[string]any `json:"resources"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error(), "")
		return
	}

	results := make([]any, 0, len(payload.Resources))
	switch payload.Action {
	case "create":
		for _, body := range payload.Resources {
			id := f.insert(name, body)
			results = append(results, copyMap(f.collections[name].records[id]))
		}
	case "query":
		for _, ref := range payload.Resources {
			rec, ok := f.find(name, ref)
			if !ok {
				writeError(w, http.StatusNotFound, "not_found",
					fmt.Sprintf("Couldn't find %s matching %v", name, ref), "ActiveRecord::RecordNotFound")
				return
			}
			results = append(results, copyMap(rec))
		}
	default:
		targets := make([]map[string]any, 0, len(payload.Resources))
		for _, ref := range payload.Resources {
			rec, ok := f.find(name, ref)
			if !ok {
				writeError(w, http.StatusNotFound, "not_found",
					fmt.Sprintf("Couldn't find %s matching %v", name, ref), "ActiveRecord::RecordNotFound")
				return
			}
			targets = append(targets, rec)
		}
		for i, rec := range targets {
			results = append(results, f.apply(name, payload.Action, rec, payload.Resources[i]))
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// apply runs an action against rec. Must be called with the lock held.
func (f *FakeAppliance) apply(collection, action string, rec, body map[string]any) map[string]any {
	fn, ok := f.actions[collection+"/"+action]
	if !ok {
		fn, ok = f.actions["*/"+action]
	}
	if !ok {
		return map[string]any{"success": false, "message": fmt.Sprintf("unsupported action %s", action)}
	}
	result := fn(f, rec, body)
	if result == nil {
		result = map[string]any{"success": true, "message": fmt.Sprintf("%s %s", action, rec["id"])}
	}
	return result
}

func (f *FakeAppliance) registerDefaultActions() {
	f.actions["*/edit"] = func(_ *FakeAppliance, rec, body map[string]any) map[string]any {
		for k, v := range body {
			if k == "id" || k == "href" {
				continue
			}
			rec[k] = v
		}
		return copyMap(rec)
	}
	f.actions["*/delete"] = func(f *FakeAppliance, rec, _ map[string]any) map[string]any {
		coll, id := splitHref(rec["href"].(string))
		f.remove(coll, id)
		return map[string]any{"success": true, "message": fmt.Sprintf("%s id: %s deleting", coll, id)}
	}
	f.actions["*/approve"] = func(_ *FakeAppliance, rec, body map[string]any) map[string]any {
		rec["approval_state"] = "approved"
		rec["reason"] = body["reason"]
		return nil
	}
	f.actions["*/deny"] = func(_ *FakeAppliance, rec, body map[string]any) map[string]any {
		rec["approval_state"] = "denied"
		rec["reason"] = body["reason"]
		return nil
	}
	f.actions["*/mark_as_seen"] = func(_ *FakeAppliance, rec, _ map[string]any) map[string]any {
		rec["seen"] = true
		return nil
	}
	f.actions["*/scan"] = func(f *FakeAppliance, rec, _ map[string]any) map[string]any {
		task := f.Insert("tasks", map[string]any{
			"name":    fmt.Sprintf("Scan %v", rec["name"]),
			"state":   "Queued",
			"status":  "Ok",
			"message": "queued",
		})
		return map[string]any{
			"success":   true,
			"message":   fmt.Sprintf("Scanning %v", rec["name"]),
			"task_id":   task["id"],
			"task_href": task["href"],
			"href":      rec["href"],
		}
	}
}

func (f *FakeAppliance) lookup(collection, id string) (map[string]any, bool) {
	c, ok := f.collections[collection]
	if !ok {
		return nil, false
	}
	rec, ok := c.records[id]
	return rec, ok
}

// find resolves a reference by id, href or a set of attributes.
func (f *FakeAppliance) find(collection string, ref map[string]any) (map[string]any, bool) {
	if href, ok := ref["href"].(string); ok {
		coll, id := splitHref(href)
		if coll != collection {
			return nil, false
		}
		return f.lookup(collection, id)
	}
	if id, ok := ref["id"]; ok {
		return f.lookup(collection, fmt.Sprint(id))
	}
	c, ok := f.collections[collection]
	if !ok {
		return nil, false
	}
	for _, id := range c.order {
		rec := c.records[id]
		match := true
		for k, v := range ref {
			if fmt.Sprint(rec[k]) != fmt.Sprint(v) {
				match = false
				break
			}
		}
		if match {
			return rec, true
		}
	}
	return nil, false
}

func (f *FakeAppliance) remove(collection, id string) {
	c := f.collections[collection]
	delete(c.records, id)
	for i, v := range c.order {
		if v == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

func splitHref(href string) (collection, id string) {
	idx := strings.Index(href, "/api/")
	if idx < 0 {
		return "", ""
	}
	parts := strings.Split(strings.Trim(href[idx+len("/api/"):], "/"), "/")
	if len(parts) < 2 {
		return parts[0], ""
	}
	return parts[0], parts[1]
}

type condition struct {
	key, value string
}

func parseFilters(raw []string) []condition {
	conds := make([]condition, 0, len(raw))
	for _, expr := range raw {
		key, value, ok := strings.Cut(expr, "=")
		if !ok {
			continue
		}
		conds = append(conds, condition{key: strings.TrimSpace(key), value: strings.Trim(value, "'\"")})
	}
	return conds
}

func matchesAll(rec map[string]any, conds []condition) bool {
	for _, c := range conds {
		if fmt.Sprint(rec[c.key]) != c.value {
			return false
		}
	}
	return true
}

func writeNotFound(w http.ResponseWriter, collection, id string) {
	writeError(w, http.StatusNotFound, "not_found",
		fmt.Sprintf("Couldn't find %s with 'id'=%s", collection, id), "ActiveRecord::RecordNotFound")
}

func writeError(w http.ResponseWriter, status int, kind, message, klass string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{"kind": kind, "message": message, "klass": klass},
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func copyMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
