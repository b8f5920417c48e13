package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/mchmarny/navmenu/pkg/broker"
	"github.com/mchmarny/navmenu/pkg/controller"
	"github.com/mchmarny/navmenu/pkg/menu"
)

// maxBodyBytes caps item set uploads.
const maxBodyBytes = 1 << 20

// MenuView is the JSON shape of one menu.
type MenuView struct {
	Tag   string        `json:"tag"`
	Roots []menu.NodeID `json:"roots"`
	Nodes []menu.Node   `json:"nodes"`
}

// HomeView is the JSON shape of a navigate-home response. Locations lists the
// navigations the request caused, internal before external; it is empty when
// the menu has no home item.
type HomeView struct {
	Tag       string             `json:"tag"`
	Locations []navigationResult `json:"locations,omitempty"`
}

type navigationResult struct {
	Kind   string `json:"kind"`
	Target string `json:"target"`
}

// Handlers returns the HTTP routes keyed by ServeMux pattern.
func (r *Registry) Handlers() map[string]http.Handler {
	return map[string]http.Handler{
		"GET /menus":                        http.HandlerFunc(r.listMenus),
		"GET /menus/{tag}":                  http.HandlerFunc(r.getMenu),
		"PUT /menus/{tag}/items":            http.HandlerFunc(r.replaceItems),
		"POST /menus/{tag}/items":           http.HandlerFunc(r.appendItems),
		"POST /menus/{tag}/items/{id}/{op}": http.HandlerFunc(r.itemOp),
		"POST /menus/{tag}/home":            http.HandlerFunc(r.navigateHome),
		"GET /menus/{tag}/selected":         http.HandlerFunc(r.selected),
		"GET /location":                     http.HandlerFunc(r.location),
	}
}

func (r *Registry) listMenus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"tags": r.Tags()})
}

func (r *Registry) getMenu(w http.ResponseWriter, req *http.Request) {
	tag := req.PathValue("tag")

	c, ok := r.lookup(w, tag)
	if !ok {
		return
	}

	nodes, roots := c.Nodes()
	writeJSON(w, http.StatusOK, MenuView{Tag: tag, Roots: roots, Nodes: nodes})
}

func (r *Registry) replaceItems(w http.ResponseWriter, req *http.Request) {
	r.publishItems(w, req, r.broker.SetItems)
}

func (r *Registry) appendItems(w http.ResponseWriter, req *http.Request) {
	r.publishItems(w, req, r.broker.AddItems)
}

func (r *Registry) publishItems(w http.ResponseWriter, req *http.Request, publish func(string, []menu.Item)) {
	tag := req.PathValue("tag")

	var items []menu.Item
	if err := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxBodyBytes)).Decode(&items); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid item set: %v", err))
		return
	}

	if _, err := r.Controller(tag); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	publish(tag, items)
	r.getMenu(w, req)
}

func (r *Registry) itemOp(w http.ResponseWriter, req *http.Request) {
	tag := req.PathValue("tag")

	id, err := strconv.Atoi(req.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	c, ok := r.lookup(w, tag)
	if !ok {
		return
	}

	var op func(menu.NodeID) (menu.Node, error)
	switch req.PathValue("op") {
	case "toggle":
		op = c.ToggleExpand
	case "select":
		op = c.Select
	case "click":
		op = c.Click
	case "hover":
		op = c.Hover
	default:
		writeError(w, http.StatusNotFound, "unknown operation")
		return
	}

	n, err := op(menu.NodeID(id))
	switch {
	case errors.Is(err, controller.ErrUnknownItem):
		writeError(w, http.StatusNotFound, err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, n)
	}
}

func (r *Registry) navigateHome(w http.ResponseWriter, req *http.Request) {
	tag := req.PathValue("tag")

	if _, ok := r.lookup(w, tag); !ok {
		return
	}

	view := HomeView{Tag: tag}
	for _, e := range r.NavigateHome(tag) {
		view.Locations = append(view.Locations, navigationResult{Kind: string(e.Kind), Target: e.Target})
	}
	writeJSON(w, http.StatusOK, view)
}

func (r *Registry) selected(w http.ResponseWriter, req *http.Request) {
	tag := req.PathValue("tag")

	if _, ok := r.lookup(w, tag); !ok {
		return
	}

	replies := r.broker.SelectedItems(tag)
	if replies == nil {
		replies = []broker.SelectedItem{}
	}
	writeJSON(w, http.StatusOK, replies)
}

func (r *Registry) location(w http.ResponseWriter, _ *http.Request) {
	e, ok := r.history.Current()
	if !ok {
		writeError(w, http.StatusNotFound, "no navigation yet")
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// lookup finds the controller for tag, writing a 404 when there is none.
func (r *Registry) lookup(w http.ResponseWriter, tag string) (*controller.Controller, bool) {
	c, ok := r.Lookup(tag)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown menu: %s", tag))
	}
	return c, ok
}

func writeError(w http.ResponseWriter, status int, message string) {
	slog.Error("handling error response",
		"status", status,
		"message", message,
	)
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		slog.Error("failed to marshal JSON response", "error", err)
		http.Error(w, "error, see logs for details", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(jsonData); err != nil {
		slog.Error("failed to write JSON response", "error", err)
	}
}
