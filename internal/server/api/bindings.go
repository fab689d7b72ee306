package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/mudra/internal/action"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/store"
)

// BindingSink receives binding changes so they apply to the running session.
type BindingSink interface {
	SetBinding(kind gesture.Kind, b action.Binding)
}

// BindingHandler serves the effective key bindings and stores overrides.
type BindingHandler struct {
	store    *store.Store
	defaults action.Bindings
	sink     BindingSink
}

// NewBindingHandler creates a BindingHandler. Overrides read from s are
// layered over defaults. sink may be nil.
func NewBindingHandler(s *store.Store, defaults action.Bindings, sink BindingSink) *BindingHandler {
	return &BindingHandler{store: s, defaults: defaults, sink: sink}
}

type bindingResponse struct {
	Gesture   string   `json:"gesture"`
	Name      string   `json:"name"`
	Key       string   `json:"key"`
	Modifiers []string `json:"modifiers"`
	Combo     string   `json:"combo"`
	Override  bool     `json:"override"`
}

type listBindingsResponse struct {
	Bindings []bindingResponse `json:"bindings"`
}

func toBindingResponse(kind gesture.Kind, b action.Binding, override bool) bindingResponse {
	mods := b.Modifiers
	if mods == nil {
		mods = []string{}
	}
	return bindingResponse{
		Gesture:   string(kind),
		Name:      kind.String(),
		Key:       b.Key,
		Modifiers: mods,
		Combo:     b.String(),
		Override:  override,
	}
}

// ServeHTTP routes /api/bindings and /api/bindings/{gesture}.
func (h *BindingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/bindings")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.list(w, r)
		return
	}

	kind, err := gesture.ParseKind(path)
	if err != nil {
		writeError(w, http.StatusNotFound, "Unknown gesture")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, r, kind)
	case http.MethodPut:
		h.put(w, r, kind)
	case http.MethodDelete:
		h.delete(w, r, kind)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// effective returns the bindings in gesture order and which are overrides.
func (h *BindingHandler) effective() (action.Bindings, map[gesture.Kind]bool, error) {
	stored, err := h.store.Bindings().List()
	if err != nil {
		return nil, nil, err
	}

	overrides := action.Bindings{}
	isOverride := make(map[gesture.Kind]bool, len(stored))
	for _, b := range stored {
		kind := gesture.Kind(b.Gesture)
		overrides[kind] = action.Binding{Key: b.Key, Modifiers: b.Modifiers}
		isOverride[kind] = true
	}
	return h.defaults.Merge(overrides), isOverride, nil
}

// list handles GET /api/bindings.
func (h *BindingHandler) list(w http.ResponseWriter, r *http.Request) {
	bindings, overrides, err := h.effective()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list bindings")
		return
	}

	response := listBindingsResponse{Bindings: make([]bindingResponse, 0, len(bindings))}
	for _, kind := range gesture.Kinds {
		if b, ok := bindings[kind]; ok {
			response.Bindings = append(response.Bindings, toBindingResponse(kind, b, overrides[kind]))
		}
	}
	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/bindings/{gesture}.
func (h *BindingHandler) get(w http.ResponseWriter, r *http.Request, kind gesture.Kind) {
	bindings, overrides, err := h.effective()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get binding")
		return
	}
	b, ok := bindings[kind]
	if !ok {
		writeError(w, http.StatusNotFound, "Gesture is not bound")
		return
	}
	writeJSON(w, http.StatusOK, toBindingResponse(kind, b, overrides[kind]))
}

// put handles PUT /api/bindings/{gesture} and stores an override.
func (h *BindingHandler) put(w http.ResponseWriter, r *http.Request, kind gesture.Kind) {
	var b action.Binding
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if err := b.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	err := h.store.Bindings().Upsert(&store.Binding{
		Gesture:   string(kind),
		Key:       b.Key,
		Modifiers: b.Modifiers,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save binding")
		return
	}

	if h.sink != nil {
		h.sink.SetBinding(kind, b)
	}
	writeJSON(w, http.StatusOK, toBindingResponse(kind, b, true))
}

// delete handles DELETE /api/bindings/{gesture} and restores the default.
func (h *BindingHandler) delete(w http.ResponseWriter, r *http.Request, kind gesture.Kind) {
	if err := h.store.Bindings().Delete(string(kind)); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Binding not overridden")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete binding")
		return
	}

	if h.sink != nil {
		if b, ok := h.defaults[kind]; ok {
			h.sink.SetBinding(kind, b)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}
